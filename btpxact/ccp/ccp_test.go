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
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mynewt.apache.org/btptester/btpxact/bledefs"
	"mynewt.apache.org/btptester/btpxact/btp"
	"mynewt.apache.org/btptester/btpxact/btpxutil"
)

type clientReq struct {
	op        string
	dev       bledefs.BleDev
	inst      uint8
	callIndex uint8
	uri       string
}

// Records requests; completion is driven by the test through the service's
// listener methods.
type fakeClient struct {
	reqs   []clientReq
	reject error
	mtx    sync.Mutex
}

func (c *fakeClient) add(r clientReq) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.reject != nil {
		return c.reject
	}
	c.reqs = append(c.reqs, r)
	return nil
}

func (c *fakeClient) count(op string) int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	n := 0
	for _, r := range c.reqs {
		if r.op == op {
			n++
		}
	}
	return n
}

func (c *fakeClient) Start(l Listener) error { return nil }
func (c *fakeClient) Stop() error            { return nil }

func (c *fakeClient) Discover(dev bledefs.BleDev) error {
	return c.add(clientReq{op: "discover", dev: dev})
}

func (c *fakeClient) AcceptCall(dev bledefs.BleDev, inst uint8,
	callIndex uint8) error {

	return c.add(clientReq{op: "accept", dev: dev, inst: inst,
		callIndex: callIndex})
}

func (c *fakeClient) TerminateCall(dev bledefs.BleDev, inst uint8,
	callIndex uint8) error {

	return c.add(clientReq{op: "terminate", dev: dev, inst: inst,
		callIndex: callIndex})
}

func (c *fakeClient) OriginateCall(dev bledefs.BleDev, inst uint8,
	uri string) error {

	return c.add(clientReq{op: "originate", dev: dev, inst: inst, uri: uri})
}

func (c *fakeClient) ReadCallStates(dev bledefs.BleDev, inst uint8) error {
	return c.add(clientReq{op: "read", dev: dev, inst: inst})
}

type fixture struct {
	t      *testing.T
	client *fakeClient
	svc    *Service
	disp   *btp.Dispatcher
	frames []*btp.Frame
}

func newFixture(t *testing.T) *fixture {
	fx := &fixture{
		t:      t,
		client: &fakeClient{},
	}

	fx.disp = btp.NewDispatcher(func(data []byte) error {
		f, err := btp.DecodeFrame(data)
		if err != nil {
			return err
		}
		fx.frames = append(fx.frames, f)
		return nil
	})
	fx.svc = NewService(NewServiceCfg(), fx.client, fx.disp)
	require.NoError(t, fx.disp.AddService(fx.svc, true))

	return fx
}

// Sends a command and returns the frames it produced.
func (fx *fixture) cmd(op uint8, payload []byte) *btp.Frame {
	fx.frames = nil
	return fx.disp.Dispatch(btp.NewFrame(btp.BTP_SERVICE_ID_CCP, op, 0,
		payload))
}

func (fx *fixture) takeFrames() []*btp.Frame {
	f := fx.frames
	fx.frames = nil
	return f
}

func testDev() bledefs.BleDev {
	addr, err := bledefs.ParseBleAddr("aa:bb:cc:dd:ee:ff")
	if err != nil {
		panic(err)
	}
	return bledefs.BleDev{Addr: addr}
}

func (fx *fixture) discover(tbsCount uint8, gtbs bool) {
	cmd := DiscoverCmd{Dev: testDev()}
	rsp := fx.cmd(CCP_OP_DISCOVER_TBS, cmd.Bytes())
	require.Equal(fx.t, uint8(CCP_OP_DISCOVER_TBS), rsp.Hdr.Opcode)

	fx.svc.OnDiscoveryComplete(testDev(), 0, tbsCount, gtbs)
	fx.takeFrames()
}

func assertErrRsp(t *testing.T, rsp *btp.Frame) {
	assert.Equal(t, uint8(btp.BTP_OP_ERROR), rsp.Hdr.Opcode)
	assert.Equal(t, []byte{btp.BTP_STATUS_FAILED}, rsp.Payload)
}

func TestDiscoverThenReadCallStates(t *testing.T) {
	fx := newFixture(t)
	dev := testDev()

	rsp := fx.cmd(CCP_OP_DISCOVER_TBS, []byte{
		0x00, 0xff, 0xee, 0xdd, 0xcc, 0xbb, 0xaa})
	assert.Equal(t, uint8(CCP_OP_DISCOVER_TBS), rsp.Hdr.Opcode)
	assert.Empty(t, rsp.Payload)
	require.Equal(t, 1, fx.client.count("discover"))
	assert.Equal(t, dev, fx.client.reqs[0].dev)
	assert.Len(t, fx.takeFrames(), 1)

	fx.svc.OnDiscoveryComplete(dev, 0, 2, true)
	frames := fx.takeFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, uint8(CCP_EV_DISCOVERED), frames[0].Hdr.Opcode)
	assert.Equal(t, []byte{0, 0, 0, 0, 2, 1}, frames[0].Payload)

	rsp = fx.cmd(CCP_OP_READ_CALL_STATES, append(dev.Bytes(), 1))
	assert.Equal(t, uint8(CCP_OP_READ_CALL_STATES), rsp.Hdr.Opcode)
	assert.Empty(t, rsp.Payload)
	require.Equal(t, 1, fx.client.count("read"))
	fx.takeFrames()

	fx.svc.OnCallStates(dev, 0, 1, []Call{
		{Index: 5, State: CALL_STATE_ACTIVE, Flags: 0},
	})
	frames = fx.takeFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, uint8(CCP_EV_CALL_STATES), frames[0].Hdr.Opcode)
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 1, 5, 3, 0}, frames[0].Payload)

	assert.Equal(t, []Call{{Index: 5, State: CALL_STATE_ACTIVE}},
		fx.svc.Registry().Calls(PeerKey{Dev: dev}, 1))
}

func TestReadBeforeDiscover(t *testing.T) {
	fx := newFixture(t)

	cmd := ReadCallStatesCmd{Dev: testDev(), Inst: 1}
	assertErrRsp(t, fx.cmd(CCP_OP_READ_CALL_STATES, cmd.Bytes()))
	assert.Equal(t, 0, fx.client.count("read"))
}

func TestAcceptOnGtbs(t *testing.T) {
	fx := newFixture(t)
	fx.discover(1, true)

	cmd := CallCmd{Dev: testDev(), Inst: GTBS_INDEX, CallIndex: 3}
	rsp := fx.cmd(CCP_OP_ACCEPT_CALL, cmd.Bytes())
	assert.Equal(t, uint8(CCP_OP_ACCEPT_CALL), rsp.Hdr.Opcode)
	assert.Empty(t, rsp.Payload)

	require.Equal(t, 1, fx.client.count("accept"))
	assert.Equal(t, uint8(GTBS_INDEX), fx.client.reqs[1].inst)
	assert.Equal(t, uint8(3), fx.client.reqs[1].callIndex)
}

func TestTerminateCall(t *testing.T) {
	fx := newFixture(t)
	fx.discover(2, false)

	cmd := CallCmd{Dev: testDev(), Inst: 1, CallIndex: 7}
	rsp := fx.cmd(CCP_OP_TERMINATE_CALL, cmd.Bytes())
	assert.Equal(t, uint8(CCP_OP_TERMINATE_CALL), rsp.Hdr.Opcode)
	assert.Equal(t, 1, fx.client.count("terminate"))

	cmd.Inst = 2
	assertErrRsp(t, fx.cmd(CCP_OP_TERMINATE_CALL, cmd.Bytes()))
	assert.Equal(t, 1, fx.client.count("terminate"))
}

func TestDuplicateDiscover(t *testing.T) {
	fx := newFixture(t)
	cmd := DiscoverCmd{Dev: testDev()}

	fx.cmd(CCP_OP_DISCOVER_TBS, cmd.Bytes())
	assertErrRsp(t, fx.cmd(CCP_OP_DISCOVER_TBS, cmd.Bytes()))
	assert.Equal(t, 1, fx.client.count("discover"))
	assert.Equal(t, PEER_STATE_DISC_PENDING,
		fx.svc.Registry().State(PeerKey{Dev: testDev()}))
}

func TestDiscoverRejected(t *testing.T) {
	fx := newFixture(t)
	fx.client.reject = btpxutil.NewClientRejectError("not connected")
	cmd := DiscoverCmd{Dev: testDev()}

	assertErrRsp(t, fx.cmd(CCP_OP_DISCOVER_TBS, cmd.Bytes()))
	assert.Equal(t, PEER_STATE_IDLE,
		fx.svc.Registry().State(PeerKey{Dev: testDev()}))

	// The rejection rolled back the pending flag.
	fx.client.reject = nil
	rsp := fx.cmd(CCP_OP_DISCOVER_TBS, cmd.Bytes())
	assert.Equal(t, uint8(CCP_OP_DISCOVER_TBS), rsp.Hdr.Opcode)
}

func TestFailedDiscovery(t *testing.T) {
	fx := newFixture(t)
	cmd := DiscoverCmd{Dev: testDev()}

	fx.cmd(CCP_OP_DISCOVER_TBS, cmd.Bytes())
	fx.svc.OnDiscoveryComplete(testDev(), -5, 0, false)
	frames := fx.takeFrames()
	require.Len(t, frames, 1)

	evt, err := DecodeDiscoveredEvt(frames[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, int32(-5), evt.Status)

	rc := ReadCallStatesCmd{Dev: testDev(), Inst: GTBS_INDEX}
	assertErrRsp(t, fx.cmd(CCP_OP_READ_CALL_STATES, rc.Bytes()))
}

func TestUnexpectedDiscoveryCompletion(t *testing.T) {
	fx := newFixture(t)

	fx.svc.OnDiscoveryComplete(testDev(), 0, 1, false)
	assert.Empty(t, fx.takeFrames())
}

func TestOriginateCall(t *testing.T) {
	fx := newFixture(t)
	fx.discover(1, false)

	cmd := OriginateCmd{Dev: testDev(), Inst: 0, Uri: "tel:+1234"}
	rsp := fx.cmd(CCP_OP_ORIGINATE_CALL, cmd.Bytes())
	assert.Equal(t, uint8(CCP_OP_ORIGINATE_CALL), rsp.Hdr.Opcode)
	require.Equal(t, 1, fx.client.count("originate"))
	assert.Equal(t, "tel:+1234", fx.client.reqs[1].uri)

	cmd.Uri = "http://example.com"
	assertErrRsp(t, fx.cmd(CCP_OP_ORIGINATE_CALL, cmd.Bytes()))
	assert.Equal(t, 1, fx.client.count("originate"))
}

func TestOriginateBadUriLen(t *testing.T) {
	fx := newFixture(t)
	fx.discover(1, false)

	cmd := OriginateCmd{Dev: testDev(), Inst: 0, Uri: "tel:1"}
	for _, delta := range []int{-1, 1, 10} {
		b := cmd.Bytes()
		b[bledefs.BLE_ADDR_WIRE_SZ+1] = uint8(int(b[bledefs.BLE_ADDR_WIRE_SZ+1]) +
			delta)
		assertErrRsp(t, fx.cmd(CCP_OP_ORIGINATE_CALL, b))
	}
	assert.Equal(t, 0, fx.client.count("originate"))
}

func TestWrongControllerIndex(t *testing.T) {
	fx := newFixture(t)
	cmd := DiscoverCmd{Dev: testDev()}

	rsp := fx.disp.Dispatch(btp.NewFrame(btp.BTP_SERVICE_ID_CCP,
		CCP_OP_DISCOVER_TBS, 1, cmd.Bytes()))
	assertErrRsp(t, rsp)
	assert.Equal(t, 0, fx.client.count("discover"))
}

func TestBadPayloadLength(t *testing.T) {
	fx := newFixture(t)
	fx.discover(1, false)

	assertErrRsp(t, fx.cmd(CCP_OP_DISCOVER_TBS, make([]byte, 6)))
	assertErrRsp(t, fx.cmd(CCP_OP_ACCEPT_CALL, make([]byte, 10)))
	assertErrRsp(t, fx.cmd(CCP_OP_READ_CALL_STATES, make([]byte, 7)))
}

func TestSupportedCmds(t *testing.T) {
	fx := newFixture(t)

	rsp := fx.disp.Dispatch(btp.NewFrame(btp.BTP_SERVICE_ID_CCP,
		CCP_OP_READ_SUPPORTED_CMDS, btp.INDEX_NONE, nil))
	require.Equal(t, uint8(CCP_OP_READ_SUPPORTED_CMDS), rsp.Hdr.Opcode)
	assert.Equal(t, []byte{0x7e}, rsp.Payload)
}

func TestStaleReadDropped(t *testing.T) {
	fx := newFixture(t)
	fx.discover(2, false)
	dev := testDev()

	rc := ReadCallStatesCmd{Dev: dev, Inst: 1}
	fx.cmd(CCP_OP_READ_CALL_STATES, rc.Bytes())

	// A new discovery completes before the read result arrives.
	fx.discover(2, false)

	fx.svc.OnCallStates(dev, 0, 1, []Call{{Index: 1}})
	assert.Empty(t, fx.takeFrames())
	assert.Nil(t, fx.svc.Registry().Calls(PeerKey{Dev: dev}, 1))

	// Later reads are delivered.
	fx.cmd(CCP_OP_READ_CALL_STATES, rc.Bytes())
	fx.takeFrames()
	fx.svc.OnCallStates(dev, 0, 1, []Call{{Index: 2}})
	assert.Len(t, fx.takeFrames(), 1)
}

func TestUnsolicitedCallStates(t *testing.T) {
	fx := newFixture(t)
	dev := testDev()

	fx.svc.OnCallStateNotify(dev, 0, []Call{{Index: 1}})
	assert.Empty(t, fx.takeFrames())

	fx.discover(1, true)

	fx.svc.OnCallStateNotify(dev, GTBS_INDEX, []Call{{Index: 1}})
	assert.Len(t, fx.takeFrames(), 1)

	fx.svc.OnCallStateNotify(dev, 4, []Call{{Index: 1}})
	assert.Empty(t, fx.takeFrames())

	// A read result nobody asked for is not taken for a notification.
	fx.svc.OnCallStates(dev, 0, 0, []Call{{Index: 2}})
	assert.Empty(t, fx.takeFrames())
	assert.Nil(t, fx.svc.Registry().Calls(PeerKey{Dev: dev}, 0))
}

func TestNotificationDuringStaleRead(t *testing.T) {
	fx := newFixture(t)
	fx.discover(2, false)
	dev := testDev()
	key := PeerKey{Dev: dev}

	rc := ReadCallStatesCmd{Dev: dev, Inst: 1}
	fx.cmd(CCP_OP_READ_CALL_STATES, rc.Bytes())
	fx.takeFrames()

	fx.discover(2, false)

	// A fresh notification arrives before the old read's result.
	fresh := []Call{{Index: 7, State: CALL_STATE_ACTIVE}}
	fx.svc.OnCallStateNotify(dev, 1, fresh)
	frames := fx.takeFrames()
	require.Len(t, frames, 1)
	evt, err := DecodeCallStatesEvt(frames[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, fresh, evt.Calls)

	fx.svc.OnCallStates(dev, 0, 1, []Call{{Index: 1,
		State: CALL_STATE_INCOMING}})
	assert.Empty(t, fx.takeFrames())
	assert.Equal(t, fresh, fx.svc.Registry().Calls(key, 1))
}

func TestReadFailureStatus(t *testing.T) {
	fx := newFixture(t)
	fx.discover(1, false)
	dev := testDev()

	rc := ReadCallStatesCmd{Dev: dev, Inst: 0}
	fx.cmd(CCP_OP_READ_CALL_STATES, rc.Bytes())
	fx.takeFrames()

	fx.svc.OnCallStates(dev, -116, 0, []Call{{Index: 9}})
	frames := fx.takeFrames()
	require.Len(t, frames, 1)

	evt, err := DecodeCallStatesEvt(frames[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, int32(-116), evt.Status)
	assert.Empty(t, evt.Calls)
}

func TestUnregisterResets(t *testing.T) {
	fx := newFixture(t)
	fx.discover(1, false)

	require.NoError(t, fx.disp.Unregister(btp.BTP_SERVICE_ID_CCP))
	require.NoError(t, fx.disp.Register(btp.BTP_SERVICE_ID_CCP))

	cmd := CallCmd{Dev: testDev(), Inst: 0, CallIndex: 1}
	assertErrRsp(t, fx.cmd(CCP_OP_ACCEPT_CALL, cmd.Bytes()))
}

func TestRegistryResolveIndex(t *testing.T) {
	for _, tbsCount := range []uint8{0, 1, 3} {
		for _, gtbs := range []bool{false, true} {
			r := NewRegistry()
			key := PeerKey{Dev: testDev()}

			for _, i := range []uint8{0, 1, 2, 3, GTBS_INDEX} {
				assert.Error(t, r.ResolveIndex(key, i))
			}

			require.NoError(t, r.BeginDiscovery(key))
			require.NoError(t, r.CompleteDiscovery(key, 0, tbsCount, gtbs))

			for _, i := range []uint8{0, 1, 2, 3, GTBS_INDEX} {
				want := i == GTBS_INDEX || i < tbsCount
				err := r.ResolveIndex(key, i)
				assert.Equal(t, want, err == nil,
					fmt.Sprintf("tbs_count=%d gtbs=%v i=%d", tbsCount, gtbs, i))
				if err != nil {
					assert.True(t, btpxutil.IsUnknownInstance(err))
				}
			}
		}
	}
}

func TestRegistryPeersIndependent(t *testing.T) {
	r := NewRegistry()
	k1 := PeerKey{Dev: testDev()}
	k2 := k1
	k2.Dev.AddrType = bledefs.BLE_ADDR_TYPE_RANDOM

	require.NoError(t, r.BeginDiscovery(k1))
	require.NoError(t, r.BeginDiscovery(k2))
	assert.True(t, btpxutil.IsDiscoveryInProgress(r.BeginDiscovery(k1)))

	require.NoError(t, r.CompleteDiscovery(k1, 0, 1, false))
	assert.NoError(t, r.ResolveIndex(k1, 0))
	assert.Error(t, r.ResolveIndex(k2, 0))

	assert.True(t, btpxutil.IsNoPendingDiscovery(
		r.CompleteDiscovery(k1, 0, 1, false)))

	res := r.Result(k1)
	require.NotNil(t, res)
	assert.Equal(t, DiscoveryResult{Status: 0, TbsCount: 1}, *res)
	assert.Nil(t, r.Result(k2))
}

func TestRegistryCallsCopy(t *testing.T) {
	r := NewRegistry()
	key := PeerKey{Dev: testDev()}
	require.NoError(t, r.BeginDiscovery(key))
	require.NoError(t, r.CompleteDiscovery(key, 0, 1, false))

	calls := []Call{{Index: 1, State: CALL_STATE_DIALING}}
	require.NoError(t, r.RecordCallStates(key, 0, calls))
	calls[0].Index = 9

	got := r.Calls(key, 0)
	assert.Equal(t, uint8(1), got[0].Index)
	got[0].Index = 8
	assert.Equal(t, uint8(1), r.Calls(key, 0)[0].Index)

	assert.Error(t, r.RecordCallStates(key, 1, calls))

	// Rediscovery clears snapshots.
	require.NoError(t, r.BeginDiscovery(key))
	require.NoError(t, r.CompleteDiscovery(key, 0, 1, false))
	assert.Nil(t, r.Calls(key, 0))
}

func TestRegistryTickets(t *testing.T) {
	r := NewRegistry()
	key := PeerKey{Dev: testDev()}
	require.NoError(t, r.BeginDiscovery(key))
	require.NoError(t, r.CompleteDiscovery(key, 0, 1, false))

	r.AddReadTicket(key, 0)
	r.AddReadTicket(key, 0)
	r.CancelReadTicket(key, 0)

	// Notifications leave the outstanding read alone.
	assert.True(t, r.ApplyNotification(key, 0, nil))
	assert.True(t, r.ApplyReadResult(key, 0, 0, nil))

	// No ticket left.
	assert.False(t, r.ApplyReadResult(key, 0, 0, nil))
	assert.True(t, r.ApplyNotification(key, 0, nil))
	assert.False(t, r.ApplyNotification(key, 1, nil))
	assert.False(t, r.ApplyNotification(PeerKey{Index: 1, Dev: testDev()},
		0, nil))
}
