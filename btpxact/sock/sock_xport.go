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

package sock

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/btptester/btpxact/btpxutil"
	"mynewt.apache.org/btptester/btpxact/xport"
)

const DFLT_UNIX_PATH = "/tmp/bt-stack-tester"

type XportCfg struct {
	// "unix" or "tcp".
	Network string
	Addr    string

	// Accept one connection instead of dialing.
	Listen bool
}

func NewXportCfg() *XportCfg {
	return &XportCfg{
		Network: "unix",
		Addr:    DFLT_UNIX_PATH,
	}
}

// BTP over a stream socket.
type SockXport struct {
	cfg *XportCfg

	ln   net.Listener
	conn net.Conn

	wg    sync.WaitGroup
	txMtx sync.Mutex
	mtx   sync.Mutex
}

func NewSockXport(cfg *XportCfg) *SockXport {
	return &SockXport{
		cfg: cfg,
	}
}

func (sx *SockXport) open() (net.Conn, error) {
	if !sx.cfg.Listen {
		return net.Dial(sx.cfg.Network, sx.cfg.Addr)
	}

	if sx.cfg.Network == "unix" {
		// A stale socket file from an earlier run blocks the bind.
		os.Remove(sx.cfg.Addr)
	}

	ln, err := net.Listen(sx.cfg.Network, sx.cfg.Addr)
	if err != nil {
		return nil, err
	}

	sx.mtx.Lock()
	sx.ln = ln
	sx.mtx.Unlock()

	log.Infof("Waiting for BTP connection on %s:%s", sx.cfg.Network,
		sx.cfg.Addr)
	conn, err := ln.Accept()
	if err != nil {
		ln.Close()
		return nil, err
	}

	return conn, nil
}

func (sx *SockXport) Start(rxFn xport.RxFn) error {
	sx.mtx.Lock()
	started := sx.conn != nil
	sx.mtx.Unlock()
	if started {
		return btpxutil.NewXportError("socket transport started twice")
	}

	conn, err := sx.open()
	if err != nil {
		return errors.Wrapf(err, "%s:%s", sx.cfg.Network, sx.cfg.Addr)
	}

	sx.mtx.Lock()
	sx.conn = conn
	sx.mtx.Unlock()

	sx.wg.Add(1)
	go func() {
		defer sx.wg.Done()

		b := make([]byte, 2048)
		for {
			n, err := conn.Read(b)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, b[:n])
				rxFn(chunk)
			}
			if err != nil {
				log.Debugf("Socket read loop done: %s", err.Error())
				return
			}
		}
	}()

	return nil
}

func (sx *SockXport) Stop() error {
	sx.mtx.Lock()
	conn := sx.conn
	ln := sx.ln
	sx.conn = nil
	sx.ln = nil
	sx.mtx.Unlock()

	if conn == nil {
		return btpxutil.NewXportError("socket transport not started")
	}

	err := conn.Close()
	if ln != nil {
		ln.Close()
	}

	sx.wg.Wait()
	return err
}

func (sx *SockXport) Tx(data []byte) error {
	sx.txMtx.Lock()
	defer sx.txMtx.Unlock()

	sx.mtx.Lock()
	conn := sx.conn
	sx.mtx.Unlock()

	if conn == nil {
		return btpxutil.NewXportError("socket transport closed")
	}

	if _, err := conn.Write(data); err != nil {
		return btpxutil.NewXportError(fmt.Sprintf("%s:%s: %s",
			sx.cfg.Network, sx.cfg.Addr, err.Error()))
	}

	return nil
}
