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
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/btptester/btpxact/bledefs"
	"mynewt.apache.org/btptester/btpxact/btp"
	"mynewt.apache.org/btptester/btpxact/btpxutil"
)

type ServiceCfg struct {
	// Controller index every CCP command must carry.
	Index uint8

	// Allowed URI schemes for Originate Call.
	UriSchemes []string
}

func NewServiceCfg() ServiceCfg {
	return ServiceCfg{
		Index:      0,
		UriSchemes: DefaultUriSchemes,
	}
}

// The CCP BTP service.  It validates harness commands, forwards them to the
// client, and turns client callbacks into events.
type Service struct {
	cfg    ServiceCfg
	client Client
	reg    *Registry
	sender btp.EventSender
	cmds   *btp.CmdTable
}

func NewService(cfg ServiceCfg, client Client,
	sender btp.EventSender) *Service {

	s := &Service{
		cfg:    cfg,
		client: client,
		reg:    NewRegistry(),
		sender: sender,
		cmds:   btp.NewCmdTable(btp.BTP_SERVICE_ID_CCP),
	}

	s.cmds.Register(CCP_OP_DISCOVER_TBS, s.discoverTbs)
	s.cmds.Register(CCP_OP_ACCEPT_CALL, s.acceptCall)
	s.cmds.Register(CCP_OP_TERMINATE_CALL, s.terminateCall)
	s.cmds.Register(CCP_OP_ORIGINATE_CALL, s.originateCall)
	s.cmds.Register(CCP_OP_READ_CALL_STATES, s.readCallStates)

	return s
}

func (s *Service) Id() uint8 {
	return btp.BTP_SERVICE_ID_CCP
}

func (s *Service) Cmds() *btp.CmdTable {
	return s.cmds
}

func (s *Service) Reset() {
	s.reg.Reset()
}

func (s *Service) Registry() *Registry {
	return s.reg
}

func (s *Service) Client() Client {
	return s.client
}

func (s *Service) key(dev bledefs.BleDev) PeerKey {
	return PeerKey{
		Index: s.cfg.Index,
		Dev:   dev,
	}
}

func (s *Service) checkIndex(f *btp.Frame) error {
	if f.Hdr.Index != s.cfg.Index {
		return btpxutil.FmtInvalidPayloadError(
			"unknown controller index %d; have %d", f.Hdr.Index, s.cfg.Index)
	}
	return nil
}

func (s *Service) discoverTbs(f *btp.Frame) ([]byte, error) {
	if err := s.checkIndex(f); err != nil {
		return nil, err
	}

	cmd, err := DecodeDiscoverCmd(f.Payload)
	if err != nil {
		return nil, err
	}

	key := s.key(cmd.Dev)
	if err := s.reg.BeginDiscovery(key); err != nil {
		return nil, err
	}

	if err := s.client.Discover(cmd.Dev); err != nil {
		s.reg.AbortDiscovery(key)
		return nil, errors.Wrapf(err, "discover %s", cmd.Dev.String())
	}

	log.Debugf("TBS discovery started; %s", key.String())
	return nil, nil
}

func (s *Service) decodeCallCmd(f *btp.Frame) (CallCmd, error) {
	if err := s.checkIndex(f); err != nil {
		return CallCmd{}, err
	}

	cmd, err := DecodeCallCmd(f.Payload)
	if err != nil {
		return cmd, err
	}

	if err := s.reg.ResolveIndex(s.key(cmd.Dev), cmd.Inst); err != nil {
		return cmd, err
	}

	return cmd, nil
}

func (s *Service) acceptCall(f *btp.Frame) ([]byte, error) {
	cmd, err := s.decodeCallCmd(f)
	if err != nil {
		return nil, err
	}

	if err := s.client.AcceptCall(cmd.Dev, cmd.Inst,
		cmd.CallIndex); err != nil {

		return nil, errors.Wrapf(err, "accept call %d on %s",
			cmd.CallIndex, InstString(cmd.Inst))
	}

	return nil, nil
}

func (s *Service) terminateCall(f *btp.Frame) ([]byte, error) {
	cmd, err := s.decodeCallCmd(f)
	if err != nil {
		return nil, err
	}

	if err := s.client.TerminateCall(cmd.Dev, cmd.Inst,
		cmd.CallIndex); err != nil {

		return nil, errors.Wrapf(err, "terminate call %d on %s",
			cmd.CallIndex, InstString(cmd.Inst))
	}

	return nil, nil
}

func (s *Service) originateCall(f *btp.Frame) ([]byte, error) {
	if err := s.checkIndex(f); err != nil {
		return nil, err
	}

	cmd, err := DecodeOriginateCmd(f.Payload)
	if err != nil {
		return nil, err
	}

	if err := ValidateUri(cmd.Uri, s.cfg.UriSchemes); err != nil {
		return nil, err
	}

	if err := s.reg.ResolveIndex(s.key(cmd.Dev), cmd.Inst); err != nil {
		return nil, err
	}

	if err := s.client.OriginateCall(cmd.Dev, cmd.Inst, cmd.Uri); err != nil {
		return nil, errors.Wrapf(err, "originate %q on %s",
			cmd.Uri, InstString(cmd.Inst))
	}

	return nil, nil
}

func (s *Service) readCallStates(f *btp.Frame) ([]byte, error) {
	if err := s.checkIndex(f); err != nil {
		return nil, err
	}

	cmd, err := DecodeReadCallStatesCmd(f.Payload)
	if err != nil {
		return nil, err
	}

	key := s.key(cmd.Dev)
	if err := s.reg.ResolveIndex(key, cmd.Inst); err != nil {
		return nil, err
	}

	s.reg.AddReadTicket(key, cmd.Inst)
	if err := s.client.ReadCallStates(cmd.Dev, cmd.Inst); err != nil {
		s.reg.CancelReadTicket(key, cmd.Inst)
		return nil, errors.Wrapf(err, "read call states on %s",
			InstString(cmd.Inst))
	}

	return nil, nil
}

func (s *Service) sendEvent(op uint8, payload []byte) {
	if s.sender == nil {
		log.Debugf("No event sender; dropping CCP event 0x%02x", op)
		return
	}

	if err := s.sender.SendEvent(btp.BTP_SERVICE_ID_CCP, op, s.cfg.Index,
		payload); err != nil {

		log.Errorf("Failed to send CCP event 0x%02x: %s", op, err.Error())
	}
}

// OnDiscoveryComplete is called by the client when a discovery finishes.
func (s *Service) OnDiscoveryComplete(dev bledefs.BleDev, status int32,
	tbsCount uint8, gtbsFound bool) {

	key := s.key(dev)
	if err := s.reg.CompleteDiscovery(key, status, tbsCount,
		gtbsFound); err != nil {

		log.Warnf("Unexpected discovery completion: %s", err.Error())
		return
	}

	log.Debugf("TBS discovery complete; %s status=%d tbs_count=%d gtbs=%v",
		key.String(), status, tbsCount, gtbsFound)

	s.sendEvent(CCP_EV_DISCOVERED, EncodeDiscoveredEvt(DiscoveredEvt{
		Status:    status,
		TbsCount:  tbsCount,
		GtbsFound: gtbsFound,
	}))
}

// OnCallStates is called by the client with a read result.
func (s *Service) OnCallStates(dev bledefs.BleDev, status int32, inst uint8,
	calls []Call) {

	if !s.reg.ApplyReadResult(s.key(dev), status, inst, calls) {
		return
	}
	s.sendCallStates(status, inst, calls)
}

// OnCallStateNotify is called by the client with a Call State notification.
func (s *Service) OnCallStateNotify(dev bledefs.BleDev, inst uint8,
	calls []Call) {

	if !s.reg.ApplyNotification(s.key(dev), inst, calls) {
		return
	}
	s.sendCallStates(0, inst, calls)
}

func (s *Service) sendCallStates(status int32, inst uint8, calls []Call) {
	evt := CallStatesEvt{
		Status: status,
		Inst:   inst,
	}
	if status == 0 {
		evt.Calls = calls
	}

	b, err := EncodeCallStatesEvt(evt)
	if err != nil {
		log.Errorf("Failed to encode call states event: %s", err.Error())
		return
	}

	s.sendEvent(CCP_EV_CALL_STATES, b)
}
