/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/structs"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/btptester/btpxact/btp"
	"mynewt.apache.org/btptester/btpxact/btpxutil"
	"mynewt.apache.org/btptester/btpxact/ccp"
	"mynewt.apache.org/btptester/btpxact/core"
	"mynewt.apache.org/btptester/btpxact/xport"
)

// The harness end of a BTP link: sends one command at a time and reports
// events as they arrive.
type harness struct {
	xp    xport.Xport
	rsm   *btp.Reassembler
	rspCh chan *btp.Frame
	evtFn func(s string)
}

func newHarness(xp xport.Xport, evtFn func(s string)) *harness {
	return &harness{
		xp:    xp,
		rsm:   btp.NewReassembler(0xffff),
		rspCh: make(chan *btp.Frame, 16),
		evtFn: evtFn,
	}
}

func (h *harness) start() error {
	return h.xp.Start(h.rx)
}

func (h *harness) stop() error {
	return h.xp.Stop()
}

func (h *harness) rx(data []byte) {
	btpxutil.LogRx(data)

	for _, r := range h.rsm.RxBytes(data) {
		if r.Err != nil {
			log.Warnf("Bad frame from IUT: %s", r.Err.Error())
			continue
		}

		if r.Frame.Hdr.IsEvent() {
			h.evtFn(evtString(r.Frame))
			continue
		}

		select {
		case h.rspCh <- r.Frame:
		default:
			log.Warnf("Dropping unexpected response; %s", r.Frame.Hdr.String())
		}
	}
}

// Sends a command and waits for its response.  An error response is
// returned as an error.
func (h *harness) txRx(f *btp.Frame, timeout time.Duration) (*btp.Frame,
	error) {

	// Discard responses to earlier commands that timed out.
	for len(h.rspCh) > 0 {
		<-h.rspCh
	}

	b := f.Bytes()
	btpxutil.LogTx(b)
	if err := h.xp.Tx(b); err != nil {
		return nil, err
	}

	select {
	case rsp := <-h.rspCh:
		if rsp.Hdr.Opcode == btp.BTP_OP_ERROR {
			status := uint8(btp.BTP_STATUS_FAILED)
			if len(rsp.Payload) > 0 {
				status = rsp.Payload[0]
			}
			return rsp, fmt.Errorf("status=%s", btp.StatusString(status))
		}
		return rsp, nil

	case <-time.After(timeout):
		return nil, fmt.Errorf("no response after %s", timeout.String())
	}
}

func fieldsString(v interface{}) string {
	m := structs.Map(v)

	keys := make([]string, 0, len(m))
	for k, _ := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", strings.ToLower(k), m[k]))
	}

	return strings.Join(parts, " ")
}

func evtString(f *btp.Frame) string {
	prefix := fmt.Sprintf("event %s/0x%02x:", btp.ServiceIdToString(
		f.Hdr.Service), f.Hdr.Opcode)

	switch {
	case f.Hdr.Service == btp.BTP_SERVICE_ID_CORE &&
		f.Hdr.Opcode == core.CORE_EV_IUT_READY:

		return prefix + " iut ready"

	case f.Hdr.Service == btp.BTP_SERVICE_ID_CCP &&
		f.Hdr.Opcode == ccp.CCP_EV_DISCOVERED:

		evt, err := ccp.DecodeDiscoveredEvt(f.Payload)
		if err != nil {
			return prefix + " " + err.Error()
		}
		return prefix + " discovered " + fieldsString(evt)

	case f.Hdr.Service == btp.BTP_SERVICE_ID_CCP &&
		f.Hdr.Opcode == ccp.CCP_EV_CALL_STATES:

		evt, err := ccp.DecodeCallStatesEvt(f.Payload)
		if err != nil {
			return prefix + " " + err.Error()
		}

		s := fmt.Sprintf("%s call states status=%d inst=%s count=%d",
			prefix, evt.Status, ccp.InstString(evt.Inst), len(evt.Calls))
		for _, c := range evt.Calls {
			s += "\n    " + c.String()
		}
		return s

	default:
		return fmt.Sprintf("%s %x", prefix, f.Payload)
	}
}
