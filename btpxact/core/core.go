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

package core

import (
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/btptester/btpxact/btp"
	"mynewt.apache.org/btptester/btpxact/btpxutil"
)

const (
	CORE_OP_READ_SUPPORTED_CMDS = 0x01
	CORE_OP_READ_SUPPORTED_SVCS = 0x02
	CORE_OP_REGISTER_SERVICE    = 0x03
	CORE_OP_UNREGISTER_SERVICE  = 0x04
)

const CORE_EV_IUT_READY = 0x80

// The services the Core service manages.  Implemented by btp.Dispatcher.
type Registrar interface {
	ServiceIds() []uint8
	Register(id uint8) error
	Unregister(id uint8) error
}

// BTP service 0: capability queries and service registration.
type Service struct {
	reg  Registrar
	cmds *btp.CmdTable
}

func NewService(reg Registrar) *Service {
	s := &Service{
		reg:  reg,
		cmds: btp.NewCmdTable(btp.BTP_SERVICE_ID_CORE),
	}

	s.cmds.Register(CORE_OP_READ_SUPPORTED_SVCS, s.readSupportedSvcs)
	s.cmds.Register(CORE_OP_REGISTER_SERVICE, s.registerService)
	s.cmds.Register(CORE_OP_UNREGISTER_SERVICE, s.unregisterService)

	return s
}

func (s *Service) Id() uint8 {
	return btp.BTP_SERVICE_ID_CORE
}

func (s *Service) Cmds() *btp.CmdTable {
	return s.cmds
}

// Core keeps no state.
func (s *Service) Reset() {
}

func checkNoIndex(f *btp.Frame) error {
	if f.Hdr.Index != btp.INDEX_NONE {
		return btpxutil.FmtInvalidPayloadError(
			"core command requires index none; have 0x%02x", f.Hdr.Index)
	}
	return nil
}

func (s *Service) readSupportedSvcs(f *btp.Frame) ([]byte, error) {
	if err := checkNoIndex(f); err != nil {
		return nil, err
	}
	if len(f.Payload) != 0 {
		return nil, btpxutil.FmtInvalidPayloadError(
			"read supported services takes no payload; have %d bytes",
			len(f.Payload))
	}

	return btp.Bitmap(s.reg.ServiceIds()), nil
}

func svcIdArg(f *btp.Frame) (uint8, error) {
	if err := checkNoIndex(f); err != nil {
		return 0, err
	}
	if len(f.Payload) != 1 {
		return 0, btpxutil.FmtInvalidPayloadError(
			"service id payload must be 1 byte; have %d", len(f.Payload))
	}

	id := f.Payload[0]
	if id == btp.BTP_SERVICE_ID_CORE {
		return 0, btpxutil.NewInvalidPayloadError(
			"core service cannot be (un)registered")
	}

	return id, nil
}

func (s *Service) registerService(f *btp.Frame) ([]byte, error) {
	id, err := svcIdArg(f)
	if err != nil {
		return nil, err
	}

	if err := s.reg.Register(id); err != nil {
		return nil, err
	}

	log.Infof("Service %s registered", btp.ServiceIdToString(id))
	return nil, nil
}

func (s *Service) unregisterService(f *btp.Frame) ([]byte, error) {
	id, err := svcIdArg(f)
	if err != nil {
		return nil, err
	}

	if err := s.reg.Unregister(id); err != nil {
		return nil, err
	}

	log.Infof("Service %s unregistered", btp.ServiceIdToString(id))
	return nil, nil
}

// Announces that the IUT is ready for commands.
func SendIutReady(sender btp.EventSender) error {
	return sender.SendEvent(btp.BTP_SERVICE_ID_CORE, CORE_EV_IUT_READY,
		btp.INDEX_NONE, nil)
}
