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

package bll

import (
	"github.com/JuulLabs-OSS/ble"

	"mynewt.apache.org/btptester/btpxact/bledefs"
	"mynewt.apache.org/btptester/btpxact/ccp"
)

// One discovered TBS or GTBS instance on a peer.
type tbsInst struct {
	svc       *ble.Service
	callState *ble.Characteristic
	ctlPt     *ble.Characteristic
}

// The TBS instances of a peer, keyed by BTP service index.
type tbsInsts struct {
	insts    map[uint8]*tbsInst
	tbsCount uint8
	gtbs     bool
}

func newTbsInsts() *tbsInsts {
	return &tbsInsts{
		insts: map[uint8]*tbsInst{},
	}
}

// Assigns service indices: ordinary TBS instances are numbered from 0 in
// the order the peer lists them; GTBS always gets ccp.GTBS_INDEX.
func indexServices(svcs []*ble.Service) *tbsInsts {
	ti := newTbsInsts()

	tbsUuid := BllUuid16(bledefs.TbsSvcUuid)
	gtbsUuid := BllUuid16(bledefs.GtbsSvcUuid)

	for _, s := range svcs {
		switch {
		case s.UUID.Equal(gtbsUuid):
			if ti.gtbs {
				continue
			}
			ti.gtbs = true
			ti.insts[ccp.GTBS_INDEX] = &tbsInst{svc: s}

		case s.UUID.Equal(tbsUuid):
			if ti.tbsCount == ccp.GTBS_INDEX {
				continue
			}
			ti.insts[ti.tbsCount] = &tbsInst{svc: s}
			ti.tbsCount++
		}
	}

	return ti
}

// Picks the characteristics the client uses out of a discovered service.
func (inst *tbsInst) setChrs(chrs []*ble.Characteristic) {
	callStateUuid := BllUuid16(bledefs.TbsCallStateChrUuid)
	ctlPtUuid := BllUuid16(bledefs.TbsCallCtlPtChrUuid)

	for _, c := range chrs {
		switch {
		case c.UUID.Equal(callStateUuid):
			inst.callState = c
		case c.UUID.Equal(ctlPtUuid):
			inst.ctlPt = c
		}
	}
}

func (ti *tbsInsts) get(idx uint8) *tbsInst {
	return ti.insts[idx]
}
