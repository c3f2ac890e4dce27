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
	"runtime"
	"sync"
	"time"

	"github.com/JuulLabs-OSS/ble"
	"github.com/JuulLabs-OSS/ble/examples/lib/dev"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"mynewt.apache.org/btptester/btptester/btputil"
	"mynewt.apache.org/btptester/btpxact/bledefs"
	"mynewt.apache.org/btptester/btpxact/btpxutil"
	"mynewt.apache.org/btptester/btpxact/ccp"
	"mynewt.apache.org/btptester/btpxact/task"
)

type ClientCfg struct {
	CtlrName     string
	DialTimeout  time.Duration
	PreferredMtu uint16
	QueueDepth   int
	HciIdx       int
}

func NewClientCfg() ClientCfg {
	return ClientCfg{
		CtlrName:     "default",
		DialTimeout:  10 * time.Second,
		PreferredMtu: 512,
		QueueDepth:   16,
	}
}

// A CCP client that uses the host machine's native BLE support.
type BllClient struct {
	cfg      ClientCfg
	listener ccp.Listener
	peers    map[bledefs.BleDev]*peer
	started  bool
	mtx      sync.Mutex
}

func NewBllClient(cfg ClientCfg) *BllClient {
	return &BllClient{
		cfg:   cfg,
		peers: map[bledefs.BleDev]*peer{},
	}
}

func (c *BllClient) Start(l ccp.Listener) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.started {
		return btpxutil.NewClientRejectError("bll client already started")
	}

	var opts []ble.Option
	if runtime.GOOS == "linux" {
		opts = append(opts, ble.OptDeviceID(c.cfg.HciIdx))
	}

	d, err := dev.NewDevice(c.cfg.CtlrName, opts...)
	if err != nil {
		return err
	}
	ble.SetDefaultDevice(d)

	c.listener = l
	c.started = true
	return nil
}

func (c *BllClient) Stop() error {
	c.mtx.Lock()
	peers := c.peers
	c.peers = map[bledefs.BleDev]*peer{}
	wasStarted := c.started
	c.started = false
	c.mtx.Unlock()

	if !wasStarted {
		return btpxutil.NewClientRejectError("bll client not started")
	}

	for _, p := range peers {
		p.close()
	}

	return ble.Stop()
}

// Retrieves the peer entry for dev, creating it if requested.
func (c *BllClient) getPeer(dev bledefs.BleDev, create bool) (*peer, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if !c.started {
		return nil, btpxutil.NewClientRejectError("bll client not started")
	}

	p := c.peers[dev]
	if p == nil {
		if !create {
			return nil, btpxutil.FmtClientRejectError(
				"peer %s not discovered", dev.String())
		}

		p = newPeer(dev)
		if err := p.q.Start(c.cfg.QueueDepth); err != nil {
			return nil, err
		}
		c.peers[dev] = p
	}

	return p, nil
}

func (c *BllClient) dropPeer(p *peer) {
	c.mtx.Lock()
	if c.peers[p.dev] == p {
		delete(c.peers, p.dev)
	}
	c.mtx.Unlock()

	p.close()
}

func (c *BllClient) getListener() ccp.Listener {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.listener
}

func (c *BllClient) connect(p *peer) (ble.Client, error) {
	if cln := p.getCln(); cln != nil {
		return cln, nil
	}

	log.Debugf("Connecting to %s", p.dev.String())

	ctx := ble.WithSigHandler(context.WithTimeout(context.Background(),
		c.cfg.DialTimeout))

	cln, err := ble.Dial(ctx, bllAddr(p.dev))
	if err != nil {
		return nil, err
	}

	p.setCln(cln)

	go func() {
		<-cln.Disconnected()
		log.Debugf("Peer %s disconnected", p.dev.String())
		c.dropPeer(p)
	}()

	if mtu, err := cln.ExchangeMTU(int(c.cfg.PreferredMtu)); err != nil {
		log.Debugf("MTU exchange with %s failed: %s", p.dev.String(),
			err.Error())
	} else {
		log.Debugf("Exchanged MTU with %s; ATT MTU = %d", p.dev.String(), mtu)
	}

	return cln, nil
}

func (c *BllClient) subscribe(p *peer, cln ble.Client, idx uint8,
	inst *tbsInst) error {

	if inst.callState == nil {
		return nil
	}

	if _, err := cln.DiscoverDescriptors(nil, inst.callState); err != nil {
		return err
	}
	if inst.callState.CCCD == nil {
		log.Debugf("%s: call state not notifiable", ccp.InstString(idx))
		return nil
	}

	onNotify := func(data []byte) {
		calls, err := ParseCallStates(data)
		if err != nil {
			log.Warnf("Bad call state notification from %s: %s",
				p.dev.String(), err.Error())
			return
		}

		if l := c.getListener(); l != nil {
			l.OnCallStateNotify(p.dev, idx, calls)
		}
	}

	return cln.Subscribe(inst.callState, false, onNotify)
}

// Performs service and characteristic discovery.  Runs in the peer's queue.
func (c *BllClient) discover(p *peer) (int32, *tbsInsts) {
	cln, err := c.connect(p)
	if err != nil {
		log.Debugf("Failed to connect to %s: %s", p.dev.String(), err.Error())
		if btputil.IsDeadline(err) {
			return BLE_STATUS_ETIMEOUT, nil
		}
		return BLE_STATUS_ENOTCONN, nil
	}

	if p.getInsts() != nil {
		if err := cln.ClearSubscriptions(); err != nil {
			log.Debugf("Failed to clear subscriptions: %s", err.Error())
		}
		p.setInsts(nil)
	}

	svcs, err := cln.DiscoverServices([]ble.UUID{
		BllUuid16(bledefs.TbsSvcUuid),
		BllUuid16(bledefs.GtbsSvcUuid),
	})
	if err != nil {
		log.Debugf("Service discovery failed: %s", err.Error())
		return BLE_STATUS_EIO, nil
	}

	ti := indexServices(svcs)
	for idx, inst := range ti.insts {
		chrs, err := cln.DiscoverCharacteristics([]ble.UUID{
			BllUuid16(bledefs.TbsCallStateChrUuid),
			BllUuid16(bledefs.TbsCallCtlPtChrUuid),
		}, inst.svc)
		if err != nil {
			log.Debugf("Characteristic discovery failed: %s", err.Error())
			return BLE_STATUS_EIO, nil
		}
		inst.setChrs(chrs)

		if err := c.subscribe(p, cln, idx, inst); err != nil {
			log.Debugf("Subscribe failed: %s", err.Error())
			return BLE_STATUS_EIO, nil
		}
	}

	p.setInsts(ti)
	return BLE_STATUS_OK, ti
}

func (c *BllClient) Discover(dev bledefs.BleDev) error {
	p, err := c.getPeer(dev, true)
	if err != nil {
		return err
	}

	report := func(status int32, tbsCount uint8, gtbs bool) {
		if l := c.getListener(); l != nil {
			l.OnDiscoveryComplete(dev, status, tbsCount, gtbs)
		}
	}

	p.post(func() {
		status, ti := c.discover(p)
		if ti == nil {
			report(status, 0, false)
		} else {
			report(status, ti.tbsCount, ti.gtbs)
		}
	}, func() {
		report(BLE_STATUS_ENOTCONN, 0, false)
	})

	return nil
}

// Looks up a discovered instance of a peer.
func (c *BllClient) inst(dev bledefs.BleDev, idx uint8) (
	*peer, *tbsInst, error) {

	p, err := c.getPeer(dev, false)
	if err != nil {
		return nil, nil, err
	}

	ti := p.getInsts()
	if ti == nil {
		return nil, nil, btpxutil.FmtClientRejectError(
			"peer %s not discovered", dev.String())
	}

	inst := ti.get(idx)
	if inst == nil {
		return nil, nil, btpxutil.FmtClientRejectError(
			"peer %s has no %s", dev.String(), ccp.InstString(idx))
	}

	return p, inst, nil
}

func (c *BllClient) writeCtlPt(dev bledefs.BleDev, idx uint8,
	b []byte) error {

	p, inst, err := c.inst(dev, idx)
	if err != nil {
		return err
	}
	if inst.ctlPt == nil {
		return btpxutil.FmtClientRejectError(
			"%s on %s has no call control point",
			ccp.InstString(idx), dev.String())
	}

	p.post(func() {
		cln := p.getCln()
		if cln == nil {
			log.Warnf("Call control write to %s dropped; disconnected",
				dev.String())
			return
		}

		if err := cln.WriteCharacteristic(inst.ctlPt, b, false); err != nil {
			log.Warnf("Call control write to %s failed: %s",
				dev.String(), err.Error())
		}
	}, func() {
		log.Debugf("Call control write to %s aborted", dev.String())
	})

	return nil
}

func (c *BllClient) AcceptCall(dev bledefs.BleDev, inst uint8,
	callIndex uint8) error {

	return c.writeCtlPt(dev, inst,
		buildCtlPtCmd(CCP_CTL_ACCEPT, []byte{callIndex}))
}

func (c *BllClient) TerminateCall(dev bledefs.BleDev, inst uint8,
	callIndex uint8) error {

	return c.writeCtlPt(dev, inst,
		buildCtlPtCmd(CCP_CTL_TERMINATE, []byte{callIndex}))
}

func (c *BllClient) OriginateCall(dev bledefs.BleDev, inst uint8,
	uri string) error {

	return c.writeCtlPt(dev, inst,
		buildCtlPtCmd(CCP_CTL_ORIGINATE, []byte(uri)))
}

func (c *BllClient) ReadCallStates(dev bledefs.BleDev, idx uint8) error {
	p, inst, err := c.inst(dev, idx)
	if err != nil {
		return err
	}
	if inst.callState == nil {
		return btpxutil.FmtClientRejectError(
			"%s on %s has no call state characteristic",
			ccp.InstString(idx), dev.String())
	}

	report := func(status int32, calls []ccp.Call) {
		if l := c.getListener(); l != nil {
			l.OnCallStates(dev, status, idx, calls)
		}
	}

	p.post(func() {
		cln := p.getCln()
		if cln == nil {
			report(BLE_STATUS_ENOTCONN, nil)
			return
		}

		data, err := cln.ReadCharacteristic(inst.callState)
		if err != nil {
			log.Debugf("Call state read failed: %s", err.Error())
			report(BLE_STATUS_EIO, nil)
			return
		}

		calls, err := ParseCallStates(data)
		if err != nil {
			log.Debugf("Bad call state value: %s", err.Error())
			report(BLE_STATUS_EIO, nil)
			return
		}

		report(BLE_STATUS_OK, calls)
	}, func() {
		report(BLE_STATUS_ENOTCONN, nil)
	})

	return nil
}

type peer struct {
	dev   bledefs.BleDev
	q     *task.TaskQueue
	cln   ble.Client
	insts *tbsInsts
	mtx   sync.Mutex
}

func newPeer(dev bledefs.BleDev) *peer {
	return &peer{
		dev: dev,
		q:   task.NewTaskQueue("bll-" + dev.String()),
	}
}

func (p *peer) getCln() ble.Client {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return p.cln
}

func (p *peer) setCln(cln ble.Client) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.cln = cln
}

func (p *peer) getInsts() *tbsInsts {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return p.insts
}

func (p *peer) setInsts(ti *tbsInsts) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.insts = ti
}

// Queues a GATT procedure.  onAbort runs instead of fn if the queue is
// stopped before fn gets to run.
func (p *peer) post(fn func(), onAbort func()) {
	ch := p.q.Enqueue(func() error {
		fn()
		return nil
	})

	go func() {
		if err := <-ch; err != nil {
			onAbort()
		}
	}()
}

func (p *peer) close() {
	if p.q.Active() {
		p.q.StopNoWait(btpxutil.NewSesnClosedError(
			"peer " + p.dev.String() + " closed"))
	}

	if cln := p.getCln(); cln != nil {
		p.setCln(nil)
		if err := cln.CancelConnection(); err != nil {
			log.Debugf("Cancel connection to %s: %s", p.dev.String(),
				err.Error())
		}
	}
}
