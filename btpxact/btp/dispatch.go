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

package btp

import (
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/btptester/btpxact/btpxutil"
)

// A BTP service (Core, CCP, ...): a command table plus whatever state its
// handlers keep.
type Service interface {
	Id() uint8
	Cmds() *CmdTable

	// Drops all per-connection state; called when the harness unregisters
	// the service.
	Reset()
}

// Transmits an encoded frame.
type TxFn func(data []byte) error

// Sends unsolicited frames on behalf of a service.
type EventSender interface {
	SendEvent(service uint8, opcode uint8, index uint8, payload []byte) error
}

type Dispatcher struct {
	svcs       map[uint8]Service
	registered map[uint8]bool
	txFn       TxFn
	mtx        sync.Mutex
}

func NewDispatcher(txFn TxFn) *Dispatcher {
	return &Dispatcher{
		svcs:       map[uint8]Service{},
		registered: map[uint8]bool{},
		txFn:       txFn,
	}
}

func (d *Dispatcher) AddService(s Service, registered bool) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if _, ok := d.svcs[s.Id()]; ok {
		return fmt.Errorf("Duplicate BTP service: %s",
			ServiceIdToString(s.Id()))
	}

	d.svcs[s.Id()] = s
	d.registered[s.Id()] = registered
	return nil
}

// Ids of every service the tester implements, registered or not.
func (d *Dispatcher) ServiceIds() []uint8 {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	ids := make([]uint8, 0, len(d.svcs))
	for id, _ := range d.svcs {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (d *Dispatcher) IsRegistered(id uint8) bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	return d.registered[id]
}

func (d *Dispatcher) Register(id uint8) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.svcs[id] == nil {
		return btpxutil.FmtInvalidPayloadError(
			"cannot register unknown service %d", id)
	}

	d.registered[id] = true
	log.Debugf("Registered BTP service %s", ServiceIdToString(id))
	return nil
}

func (d *Dispatcher) Unregister(id uint8) error {
	d.mtx.Lock()
	s := d.svcs[id]
	if s == nil {
		d.mtx.Unlock()
		return btpxutil.FmtInvalidPayloadError(
			"cannot unregister unknown service %d", id)
	}
	d.registered[id] = false
	d.mtx.Unlock()

	s.Reset()
	log.Debugf("Unregistered BTP service %s", ServiceIdToString(id))
	return nil
}

func (d *Dispatcher) lookup(hdr Hdr) (CmdHandler, error) {
	d.mtx.Lock()
	s := d.svcs[hdr.Service]
	registered := d.registered[hdr.Service]
	d.mtx.Unlock()

	if s == nil || hdr.IsEvent() {
		return nil, btpxutil.NewUnsupportedCmdError(hdr.Service, hdr.Opcode)
	}
	if !registered {
		return nil, btpxutil.NewNotReadyError(fmt.Sprintf(
			"BTP service %s not registered", ServiceIdToString(hdr.Service)))
	}

	return s.Cmds().Lookup(hdr.Opcode)
}

// Maps a handler failure onto the status byte of the generic error
// response.  The specific failure kind is only logged.
func StatusFromError(err error) uint8 {
	switch {
	case err == nil:
		return BTP_STATUS_SUCCESS
	case btpxutil.IsUnsupportedCmd(err):
		return BTP_STATUS_UNKNOWN_CMD
	case btpxutil.IsNotReady(err):
		return BTP_STATUS_NOT_READY
	default:
		return BTP_STATUS_FAILED
	}
}

func (d *Dispatcher) tx(f *Frame) error {
	b := f.Bytes()
	btpxutil.LogTx(b)

	if d.txFn == nil {
		return btpxutil.NewXportError("no BTP transport")
	}
	return d.txFn(b)
}

// Processes one command and transmits exactly one response, success or
// error.  The transmitted frame is returned.
func (d *Dispatcher) Dispatch(f *Frame) *Frame {
	var rsp *Frame

	h, err := d.lookup(f.Hdr)
	if err == nil {
		var payload []byte
		payload, err = h(f)
		if err == nil {
			rsp = RspFrame(f, payload)
		}
	}

	if err != nil {
		log.Debugf("BTP command failed; %s: %s", f.Hdr.String(), err.Error())
		rsp = ErrFrame(f.Hdr, StatusFromError(err))
	}
	btpxutil.Assert(rsp.Hdr.Service == f.Hdr.Service)

	if err := d.tx(rsp); err != nil {
		log.Errorf("Failed to send BTP response: %s", err.Error())
	}

	return rsp
}

// Answers a frame that could not be decoded.  The header is all that is
// known about the command.
func (d *Dispatcher) DispatchErr(hdr Hdr, cause error) *Frame {
	log.Debugf("Malformed BTP frame; %s: %s", hdr.String(), cause.Error())

	rsp := ErrFrame(hdr, StatusFromError(cause))
	if err := d.tx(rsp); err != nil {
		log.Errorf("Failed to send BTP error response: %s", err.Error())
	}

	return rsp
}

func (d *Dispatcher) SendEvent(service uint8, opcode uint8, index uint8,
	payload []byte) error {

	if opcode < BTP_EV_MIN {
		return fmt.Errorf("invalid BTP event opcode: 0x%02x", opcode)
	}

	return d.tx(NewFrame(service, opcode, index, payload))
}
