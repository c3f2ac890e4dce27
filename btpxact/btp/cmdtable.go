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

	"mynewt.apache.org/btptester/btpxact/btpxutil"
)

// Handles one command frame.  A nil error means success; the returned bytes
// become the response payload.
type CmdHandler func(f *Frame) ([]byte, error)

// Opcode to handler map for one service.  Built once at startup; the
// supported-commands bitmap is always derived from it.
type CmdTable struct {
	service  uint8
	handlers map[uint8]CmdHandler
}

func NewCmdTable(service uint8) *CmdTable {
	t := &CmdTable{
		service:  service,
		handlers: map[uint8]CmdHandler{},
	}

	t.Register(BTP_OP_READ_SUPPORTED_CMDS, t.readSupportedCmds)
	return t
}

// Registers a command handler.  Registering the error opcode, an event
// opcode, or the same opcode twice is a programming error.
func (t *CmdTable) Register(op uint8, h CmdHandler) {
	if op == BTP_OP_ERROR || op >= BTP_EV_MIN {
		panic(fmt.Sprintf("invalid BTP command opcode: 0x%02x", op))
	}
	if _, ok := t.handlers[op]; ok {
		panic(fmt.Sprintf("duplicate BTP command handler: svc=%d op=0x%02x",
			t.service, op))
	}

	t.handlers[op] = h
}

func (t *CmdTable) Lookup(op uint8) (CmdHandler, error) {
	h := t.handlers[op]
	if h == nil {
		return nil, btpxutil.NewUnsupportedCmdError(t.service, op)
	}

	return h, nil
}

func (t *CmdTable) Opcodes() []uint8 {
	ops := make([]uint8, 0, len(t.handlers))
	for op, _ := range t.handlers {
		ops = append(ops, op)
	}

	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

func (t *CmdTable) SupportedCmds() []byte {
	return Bitmap(t.Opcodes())
}

func (t *CmdTable) readSupportedCmds(f *Frame) ([]byte, error) {
	if f.Hdr.Index != INDEX_NONE {
		return nil, btpxutil.FmtInvalidPayloadError(
			"read supported commands requires index none; have 0x%02x",
			f.Hdr.Index)
	}
	if len(f.Payload) != 0 {
		return nil, btpxutil.FmtInvalidPayloadError(
			"read supported commands takes no payload; have %d bytes",
			len(f.Payload))
	}

	return t.SupportedCmds(), nil
}

// Builds a little-endian bitmap with bit N set for every N in ids.  The
// bitmap is only as long as its highest set bit requires.
func Bitmap(ids []uint8) []byte {
	max := -1
	for _, id := range ids {
		if int(id) > max {
			max = int(id)
		}
	}
	if max < 0 {
		return []byte{0}
	}

	bm := make([]byte, max/8+1)
	for _, id := range ids {
		bm[id/8] |= 1 << (id % 8)
	}

	return bm
}

// Reports whether bit id is set.  Bits beyond the end of a truncated bitmap
// read as unset.
func BitmapHas(bm []byte, id uint8) bool {
	if int(id/8) >= len(bm) {
		return false
	}

	return bm[id/8]&(1<<(id%8)) != 0
}
