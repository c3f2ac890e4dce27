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

package ccp

import (
	"encoding/binary"
	"fmt"

	"mynewt.apache.org/btptester/btpxact/bledefs"
	"mynewt.apache.org/btptester/btpxact/btpxutil"
)

const (
	discoverCmdSz       = bledefs.BLE_ADDR_WIRE_SZ
	callCmdSz           = bledefs.BLE_ADDR_WIRE_SZ + 2
	originateCmdHdrSz   = bledefs.BLE_ADDR_WIRE_SZ + 2
	readCallStatesCmdSz = bledefs.BLE_ADDR_WIRE_SZ + 1

	discoveredEvtSz    = 6
	callStatesEvtHdrSz = 6
)

type DiscoverCmd struct {
	Dev bledefs.BleDev
}

// Accept Call and Terminate Call share a layout.
type CallCmd struct {
	Dev       bledefs.BleDev
	Inst      uint8
	CallIndex uint8
}

type OriginateCmd struct {
	Dev  bledefs.BleDev
	Inst uint8

	// Without the zero terminator.
	Uri string
}

type ReadCallStatesCmd struct {
	Dev  bledefs.BleDev
	Inst uint8
}

type DiscoveredEvt struct {
	Status    int32
	TbsCount  uint8
	GtbsFound bool
}

type CallStatesEvt struct {
	Status int32
	Inst   uint8
	Calls  []Call
}

func checkExactLen(name string, data []byte, sz int) error {
	if len(data) != sz {
		return btpxutil.FmtInvalidPayloadError(
			"%s: payload length %d; expected %d", name, len(data), sz)
	}
	return nil
}

func DecodeDiscoverCmd(data []byte) (DiscoverCmd, error) {
	cmd := DiscoverCmd{}

	if err := checkExactLen("discover tbs", data, discoverCmdSz); err != nil {
		return cmd, err
	}

	dev, err := bledefs.DecodeBleDev(data)
	if err != nil {
		return cmd, btpxutil.NewInvalidPayloadError(err.Error())
	}
	cmd.Dev = dev

	return cmd, nil
}

func (c *DiscoverCmd) Bytes() []byte {
	return c.Dev.Bytes()
}

func DecodeCallCmd(data []byte) (CallCmd, error) {
	cmd := CallCmd{}

	if err := checkExactLen("call command", data, callCmdSz); err != nil {
		return cmd, err
	}

	dev, err := bledefs.DecodeBleDev(data)
	if err != nil {
		return cmd, btpxutil.NewInvalidPayloadError(err.Error())
	}

	cmd.Dev = dev
	cmd.Inst = data[bledefs.BLE_ADDR_WIRE_SZ]
	cmd.CallIndex = data[bledefs.BLE_ADDR_WIRE_SZ+1]

	return cmd, nil
}

func (c *CallCmd) Bytes() []byte {
	b := c.Dev.Bytes()
	return append(b, c.Inst, c.CallIndex)
}

// Decodes the structure of an Originate Call command: the length byte must
// cover exactly the remaining payload and the URI must be a single
// zero-terminated string.  The scheme is checked separately, against the
// configured allow-list.
func DecodeOriginateCmd(data []byte) (OriginateCmd, error) {
	cmd := OriginateCmd{}

	if len(data) < originateCmdHdrSz {
		return cmd, btpxutil.FmtInvalidPayloadError(
			"originate call: payload too short: %d bytes", len(data))
	}

	dev, err := bledefs.DecodeBleDev(data)
	if err != nil {
		return cmd, btpxutil.NewInvalidPayloadError(err.Error())
	}

	uriLen := int(data[bledefs.BLE_ADDR_WIRE_SZ+1])
	uri := data[originateCmdHdrSz:]
	if uriLen != len(uri) {
		return cmd, btpxutil.FmtInvalidPayloadError(
			"originate call: uri_len=%d but %d uri bytes present",
			uriLen, len(uri))
	}

	s, err := decodeUriField(uri)
	if err != nil {
		return cmd, err
	}

	cmd.Dev = dev
	cmd.Inst = data[bledefs.BLE_ADDR_WIRE_SZ]
	cmd.Uri = s

	return cmd, nil
}

func (c *OriginateCmd) Bytes() []byte {
	b := c.Dev.Bytes()
	b = append(b, c.Inst, uint8(len(c.Uri)+1))
	b = append(b, c.Uri...)
	return append(b, 0)
}

func DecodeReadCallStatesCmd(data []byte) (ReadCallStatesCmd, error) {
	cmd := ReadCallStatesCmd{}

	if err := checkExactLen("read call states", data,
		readCallStatesCmdSz); err != nil {

		return cmd, err
	}

	dev, err := bledefs.DecodeBleDev(data)
	if err != nil {
		return cmd, btpxutil.NewInvalidPayloadError(err.Error())
	}

	cmd.Dev = dev
	cmd.Inst = data[bledefs.BLE_ADDR_WIRE_SZ]

	return cmd, nil
}

func (c *ReadCallStatesCmd) Bytes() []byte {
	b := c.Dev.Bytes()
	return append(b, c.Inst)
}

func EncodeDiscoveredEvt(evt DiscoveredEvt) []byte {
	b := make([]byte, discoveredEvtSz)

	binary.LittleEndian.PutUint32(b[0:4], uint32(evt.Status))
	b[4] = evt.TbsCount
	if evt.GtbsFound {
		b[5] = 1
	}

	return b
}

func DecodeDiscoveredEvt(data []byte) (DiscoveredEvt, error) {
	evt := DiscoveredEvt{}

	if len(data) != discoveredEvtSz {
		return evt, fmt.Errorf("discover completed event: length %d; "+
			"expected %d", len(data), discoveredEvtSz)
	}

	evt.Status = int32(binary.LittleEndian.Uint32(data[0:4]))
	evt.TbsCount = data[4]
	evt.GtbsFound = data[5] != 0

	return evt, nil
}

// Encodes a Read Call States event.  Calls are written in the order given.
// The count field is a single byte, so at most 255 calls fit.
func EncodeCallStatesEvt(evt CallStatesEvt) ([]byte, error) {
	if len(evt.Calls) > 0xff {
		return nil, fmt.Errorf("too many calls for one event: %d",
			len(evt.Calls))
	}

	b := make([]byte, callStatesEvtHdrSz, callStatesEvtHdrSz+
		len(evt.Calls)*CALL_REC_SZ)

	binary.LittleEndian.PutUint32(b[0:4], uint32(evt.Status))
	b[4] = evt.Inst
	b[5] = uint8(len(evt.Calls))

	for _, c := range evt.Calls {
		b = append(b, c.Index, uint8(c.State), uint8(c.Flags))
	}

	return b, nil
}

func DecodeCallStatesEvt(data []byte) (CallStatesEvt, error) {
	evt := CallStatesEvt{}

	if len(data) < callStatesEvtHdrSz {
		return evt, fmt.Errorf("call states event too short: %d bytes",
			len(data))
	}

	evt.Status = int32(binary.LittleEndian.Uint32(data[0:4]))
	evt.Inst = data[4]
	count := int(data[5])

	recs := data[callStatesEvtHdrSz:]
	if len(recs) != count*CALL_REC_SZ {
		return evt, fmt.Errorf("call states event: count=%d but %d record "+
			"bytes present", count, len(recs))
	}

	evt.Calls = make([]Call, count)
	for i := 0; i < count; i++ {
		off := i * CALL_REC_SZ
		evt.Calls[i] = Call{
			Index: recs[off],
			State: CallState(recs[off+1]),
			Flags: CallFlags(recs[off+2]),
		}
	}

	return evt, nil
}
