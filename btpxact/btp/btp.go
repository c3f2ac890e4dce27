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
	"encoding/binary"
	"fmt"

	"mynewt.apache.org/btptester/btpxact/btpxutil"
)

type Hdr struct {
	Service uint8
	Opcode  uint8
	Index   uint8
	Len     uint16
}

// A single BTP message: command, response, or event.
type Frame struct {
	Hdr     Hdr
	Payload []byte
}

func DecodeHdr(data []byte) (*Hdr, error) {
	if len(data) < BTP_HDR_SIZE {
		return nil, btpxutil.FmtMalformedFrameError(
			"BTP frame too small for header: %d bytes", len(data))
	}

	hdr := &Hdr{}

	hdr.Service = data[0]
	hdr.Opcode = data[1]
	hdr.Index = data[2]
	hdr.Len = binary.LittleEndian.Uint16(data[3:5])

	return hdr, nil
}

func (hdr *Hdr) Bytes() []byte {
	buf := make([]byte, BTP_HDR_SIZE)

	buf[0] = hdr.Service
	buf[1] = hdr.Opcode
	buf[2] = hdr.Index
	binary.LittleEndian.PutUint16(buf[3:5], hdr.Len)

	return buf
}

func (hdr *Hdr) String() string {
	return fmt.Sprintf("svc=%s op=0x%02x idx=0x%02x len=%d",
		ServiceIdToString(hdr.Service), hdr.Opcode, hdr.Index, hdr.Len)
}

func (hdr *Hdr) IsEvent() bool {
	return hdr.Opcode >= BTP_EV_MIN
}

// Decodes exactly one frame.  The buffer must contain the header and exactly
// the number of payload bytes the header declares.
func DecodeFrame(data []byte) (*Frame, error) {
	hdr, err := DecodeHdr(data)
	if err != nil {
		return nil, err
	}

	actualLen := len(data) - BTP_HDR_SIZE
	if actualLen < int(hdr.Len) {
		return nil, btpxutil.FmtMalformedFrameError(
			"truncated BTP frame; hdr.len=%d actualLen=%d", hdr.Len, actualLen)
	}
	if actualLen > int(hdr.Len) {
		return nil, btpxutil.FmtMalformedFrameError(
			"trailing bytes after BTP frame; hdr.len=%d actualLen=%d",
			hdr.Len, actualLen)
	}

	payload := make([]byte, actualLen)
	copy(payload, data[BTP_HDR_SIZE:])

	return &Frame{
		Hdr:     *hdr,
		Payload: payload,
	}, nil
}

func NewFrame(service uint8, opcode uint8, index uint8,
	payload []byte) *Frame {

	return &Frame{
		Hdr: Hdr{
			Service: service,
			Opcode:  opcode,
			Index:   index,
			Len:     uint16(len(payload)),
		},
		Payload: payload,
	}
}

// Encodes a frame.  The header's length field is derived from the payload.
func EncodeFrame(hdr Hdr, payload []byte) []byte {
	hdr.Len = uint16(len(payload))

	data := make([]byte, 0, BTP_HDR_SIZE+len(payload))
	data = append(data, hdr.Bytes()...)
	data = append(data, payload...)

	return data
}

func (f *Frame) Bytes() []byte {
	return EncodeFrame(f.Hdr, f.Payload)
}

// Builds the success response to a command: same service, opcode, and
// controller index.
func RspFrame(cmd *Frame, payload []byte) *Frame {
	return NewFrame(cmd.Hdr.Service, cmd.Hdr.Opcode, cmd.Hdr.Index, payload)
}

// Builds the generic error response for a command header.
func ErrFrame(cmd Hdr, status uint8) *Frame {
	return NewFrame(cmd.Service, BTP_OP_ERROR, cmd.Index, []byte{status})
}
