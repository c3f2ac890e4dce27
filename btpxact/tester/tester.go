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

package tester

import (
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/btptester/btpxact/bledefs"
	"mynewt.apache.org/btptester/btpxact/btp"
	"mynewt.apache.org/btptester/btpxact/btpxutil"
	"mynewt.apache.org/btptester/btpxact/ccp"
	"mynewt.apache.org/btptester/btpxact/core"
	"mynewt.apache.org/btptester/btpxact/task"
	"mynewt.apache.org/btptester/btpxact/xport"
)

type TesterCfg struct {
	MaxPayload      int
	QueueDepth      int
	RequireRegister bool
	Ccp             ccp.ServiceCfg
}

func NewTesterCfg() TesterCfg {
	return TesterCfg{
		MaxPayload: btp.BTP_MTU,
		QueueDepth: 64,
		Ccp:        ccp.NewServiceCfg(),
	}
}

// The IUT side of one BTP connection.  Commands and client callbacks run
// one at a time in a single task queue, so every event is written after the
// response of the command that caused it.
type Tester struct {
	cfg    TesterCfg
	xp     xport.Xport
	client ccp.Client

	rsm   *btp.Reassembler
	disp  *btp.Dispatcher
	core  *core.Service
	ccp   *ccp.Service
	queue *task.TaskQueue
}

func NewTester(cfg TesterCfg, xp xport.Xport, client ccp.Client) *Tester {
	t := &Tester{
		cfg:    cfg,
		xp:     xp,
		client: client,
		rsm:    btp.NewReassembler(cfg.MaxPayload),
		queue:  task.NewTaskQueue("btp-tester"),
	}

	t.disp = btp.NewDispatcher(xp.Tx)
	t.core = core.NewService(t.disp)
	t.ccp = ccp.NewService(cfg.Ccp, client, t.disp)

	t.disp.AddService(t.core, true)
	t.disp.AddService(t.ccp, !cfg.RequireRegister)

	return t
}

func (t *Tester) Dispatcher() *btp.Dispatcher {
	return t.disp
}

func (t *Tester) CcpService() *ccp.Service {
	return t.ccp
}

func (t *Tester) Start() error {
	if err := t.queue.Start(t.cfg.QueueDepth); err != nil {
		return err
	}

	if err := t.client.Start(&queuedListener{
		q:    t.queue,
		next: t.ccp,
	}); err != nil {
		t.queue.Stop(btpxutil.NewSesnClosedError("client start failed"))
		return err
	}

	if err := t.xp.Start(t.rx); err != nil {
		t.client.Stop()
		t.queue.Stop(btpxutil.NewSesnClosedError("transport start failed"))
		return err
	}

	return t.queue.Run(func() error {
		return core.SendIutReady(t.disp)
	})
}

func (t *Tester) Stop() error {
	xerr := t.xp.Stop()

	if err := t.client.Stop(); err != nil {
		log.Debugf("Stopping CCP client: %s", err.Error())
	}

	if err := t.queue.Stop(btpxutil.NewSesnClosedError(
		"tester stopped")); err != nil {

		return err
	}

	return xerr
}

// Handles one chunk from the transport.  Called from the transport's read
// goroutine.
func (t *Tester) rx(data []byte) {
	btpxutil.LogRx(data)

	for _, r := range t.rsm.RxBytes(data) {
		r := r
		err := t.queue.Run(func() error {
			t.process(r)
			return nil
		})
		if err != nil {
			log.Debugf("Dropping BTP frame: %s", err.Error())
		}
	}
}

func (t *Tester) process(r btp.RxResult) {
	switch {
	case r.Err == nil:
		t.disp.Dispatch(r.Frame)

	case r.Frame != nil:
		t.disp.DispatchErr(r.Frame.Hdr, r.Err)

	default:
		// The reassembler only returns complete frames, so a decode failure
		// without a header cannot happen.
		log.Errorf("Undecodable BTP frame: %s", r.Err.Error())
	}
}

// Defers client callbacks into the tester's task queue.
type queuedListener struct {
	q    *task.TaskQueue
	next ccp.Listener
}

func (ql *queuedListener) OnDiscoveryComplete(dev bledefs.BleDev,
	status int32, tbsCount uint8, gtbsFound bool) {

	ql.q.Post(func() error {
		ql.next.OnDiscoveryComplete(dev, status, tbsCount, gtbsFound)
		return nil
	})
}

func (ql *queuedListener) OnCallStates(dev bledefs.BleDev, status int32,
	inst uint8, calls []ccp.Call) {

	snap := make([]ccp.Call, len(calls))
	copy(snap, calls)

	ql.q.Post(func() error {
		ql.next.OnCallStates(dev, status, inst, snap)
		return nil
	})
}

func (ql *queuedListener) OnCallStateNotify(dev bledefs.BleDev, inst uint8,
	calls []ccp.Call) {

	snap := make([]ccp.Call, len(calls))
	copy(snap, calls)

	ql.q.Post(func() error {
		ql.next.OnCallStateNotify(dev, inst, snap)
		return nil
	})
}
