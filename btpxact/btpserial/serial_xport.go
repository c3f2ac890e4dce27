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

package btpserial

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tarm/serial"

	"mynewt.apache.org/btptester/btpxact/btpxutil"
	"mynewt.apache.org/btptester/btpxact/xport"
)

type XportCfg struct {
	DevPath     string
	Baud        int
	ReadTimeout time.Duration
}

func NewXportCfg() *XportCfg {
	return &XportCfg{
		Baud:        115200,
		ReadTimeout: 1 * time.Second,
	}
}

// BTP over a UART.  Frames are written as-is; the BTP header's length field
// delimits them.
type SerialXport struct {
	cfg  *XportCfg
	port *serial.Port

	wg      sync.WaitGroup
	txMtx   sync.Mutex
	mtx     sync.Mutex
	closing bool
}

func NewSerialXport(cfg *XportCfg) *SerialXport {
	return &SerialXport{
		cfg: cfg,
	}
}

func (sx *SerialXport) isClosing() bool {
	sx.mtx.Lock()
	defer sx.mtx.Unlock()

	return sx.closing
}

func (sx *SerialXport) Start(rxFn xport.RxFn) error {
	c := &serial.Config{
		Name:        sx.cfg.DevPath,
		Baud:        sx.cfg.Baud,
		ReadTimeout: sx.cfg.ReadTimeout,
	}

	port, err := serial.OpenPort(c)
	if err != nil {
		return errors.Wrapf(err, "open %s", sx.cfg.DevPath)
	}

	if err := port.Flush(); err != nil {
		port.Close()
		return err
	}

	sx.mtx.Lock()
	sx.port = port
	sx.closing = false
	sx.mtx.Unlock()

	sx.wg.Add(1)
	go func() {
		defer sx.wg.Done()

		buf := make([]byte, 2048)
		for {
			n, err := port.Read(buf)
			if sx.isClosing() {
				return
			}

			if n > 0 {
				b := make([]byte, n)
				copy(b, buf[:n])
				rxFn(b)
			}

			// A read timeout shows up as a zero-length read or EOF; just
			// keep polling.
			if err != nil && err != io.EOF {
				log.Errorf("Serial read failed: %s", err.Error())
				return
			}
		}
	}()

	return nil
}

func (sx *SerialXport) Stop() error {
	sx.mtx.Lock()
	if sx.port == nil || sx.closing {
		sx.mtx.Unlock()
		return btpxutil.NewXportError("serial transport not started")
	}
	sx.closing = true
	port := sx.port
	sx.mtx.Unlock()

	err := port.Close()
	sx.wg.Wait()
	return err
}

func (sx *SerialXport) Tx(data []byte) error {
	sx.txMtx.Lock()
	defer sx.txMtx.Unlock()

	sx.mtx.Lock()
	port := sx.port
	closing := sx.closing
	sx.mtx.Unlock()

	if port == nil || closing {
		return btpxutil.NewXportError("serial transport closed")
	}

	if _, err := port.Write(data); err != nil {
		return btpxutil.NewXportError(err.Error())
	}

	return nil
}
