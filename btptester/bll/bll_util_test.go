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
	"testing"

	"github.com/JuulLabs-OSS/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mynewt.apache.org/btptester/btpxact/bledefs"
	"mynewt.apache.org/btptester/btpxact/ccp"
)

func TestParseCallStates(t *testing.T) {
	calls, err := ParseCallStates([]byte{1, 0, 0, 2, 3, 1})
	require.NoError(t, err)
	assert.Equal(t, []ccp.Call{
		{Index: 1, State: ccp.CALL_STATE_INCOMING},
		{Index: 2, State: ccp.CALL_STATE_ACTIVE, Flags: ccp.CALL_FLAG_OUTGOING},
	}, calls)

	calls, err = ParseCallStates(nil)
	require.NoError(t, err)
	assert.Empty(t, calls)

	_, err = ParseCallStates([]byte{1, 0})
	assert.Error(t, err)
}

func TestUuid16(t *testing.T) {
	u := BllUuid16(bledefs.TbsSvcUuid)

	u16, err := Uuid16FromBllUuid(u)
	require.NoError(t, err)
	assert.Equal(t, bledefs.TbsSvcUuid, u16)

	_, err = Uuid16FromBllUuid(ble.MustParse(
		"0000180a-0000-1000-8000-00805f9b34fb"))
	assert.Error(t, err)
}

func TestBuildCtlPtCmd(t *testing.T) {
	assert.Equal(t, []byte{CCP_CTL_ACCEPT, 4},
		buildCtlPtCmd(CCP_CTL_ACCEPT, []byte{4}))
	assert.Equal(t, []byte{CCP_CTL_ORIGINATE, 0, 't', 'e', 'l', ':', '1'},
		buildCtlPtCmd(CCP_CTL_ORIGINATE, []byte("\x00tel:1")))
}

func svc(u bledefs.BleUuid16) *ble.Service {
	return &ble.Service{UUID: BllUuid16(u)}
}

func TestIndexServices(t *testing.T) {
	svcs := []*ble.Service{
		svc(bledefs.TbsSvcUuid),
		svc(0x180a),
		svc(bledefs.GtbsSvcUuid),
		svc(bledefs.TbsSvcUuid),
		svc(bledefs.GtbsSvcUuid),
	}

	ti := indexServices(svcs)
	assert.Equal(t, uint8(2), ti.tbsCount)
	assert.True(t, ti.gtbs)
	assert.Len(t, ti.insts, 3)

	assert.Equal(t, svcs[0], ti.get(0).svc)
	assert.Equal(t, svcs[3], ti.get(1).svc)
	assert.Equal(t, svcs[2], ti.get(ccp.GTBS_INDEX).svc)
	assert.Nil(t, ti.get(2))

	ti = indexServices(nil)
	assert.Equal(t, uint8(0), ti.tbsCount)
	assert.False(t, ti.gtbs)
}

func TestSetChrs(t *testing.T) {
	inst := &tbsInst{svc: svc(bledefs.TbsSvcUuid)}
	cs := &ble.Characteristic{UUID: BllUuid16(bledefs.TbsCallStateChrUuid)}
	cp := &ble.Characteristic{UUID: BllUuid16(bledefs.TbsCallCtlPtChrUuid)}
	other := &ble.Characteristic{UUID: BllUuid16(bledefs.TbsUriSchemesChrUuid)}

	inst.setChrs([]*ble.Characteristic{other, cp, cs})
	assert.Equal(t, cs, inst.callState)
	assert.Equal(t, cp, inst.ctlPt)
}

func TestBllAddr(t *testing.T) {
	addr, err := bledefs.ParseBleAddr("AA:BB:CC:DD:EE:01")
	require.NoError(t, err)

	a := bllAddr(bledefs.BleDev{Addr: addr})
	assert.Equal(t, "aa:bb:cc:dd:ee:01", a.String())
}
