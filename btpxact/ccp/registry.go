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

	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/btptester/btpxact/bledefs"
	"mynewt.apache.org/btptester/btpxact/btpxutil"
)

type PeerState int

const (
	PEER_STATE_IDLE PeerState = iota
	PEER_STATE_DISC_PENDING
	PEER_STATE_DISCOVERED
)

var peerStateNameMap = map[PeerState]string{
	PEER_STATE_IDLE:         "idle",
	PEER_STATE_DISC_PENDING: "discovery_pending",
	PEER_STATE_DISCOVERED:   "discovered",
}

func (s PeerState) String() string {
	return peerStateNameMap[s]
}

// Identifies a peer as seen through one local controller.
type PeerKey struct {
	Index uint8
	Dev   bledefs.BleDev
}

func (k PeerKey) String() string {
	return fmt.Sprintf("idx=%d peer=%s", k.Index, k.Dev.String())
}

type DiscoveryResult struct {
	Status    int32
	TbsCount  uint8
	GtbsFound bool
}

type peerState struct {
	pending bool
	result  *DiscoveryResult

	// Incremented by every completed discovery.
	gen uint32

	calls map[uint8][]Call

	// Per instance: generation at which each outstanding Read Call States
	// was issued, oldest first.
	tickets map[uint8][]uint32
}

// Per-peer discovery results and call snapshots.  All methods are safe for
// concurrent use; the one mutex is the synchronization point between command
// handling and client callbacks.
type Registry struct {
	peers map[PeerKey]*peerState
	mtx   sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		peers: map[PeerKey]*peerState{},
	}
}

func (r *Registry) peer(key PeerKey) *peerState {
	ps := r.peers[key]
	if ps == nil {
		ps = &peerState{
			calls:   map[uint8][]Call{},
			tickets: map[uint8][]uint32{},
		}
		r.peers[key] = ps
	}

	return ps
}

func (r *Registry) BeginDiscovery(key PeerKey) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	ps := r.peer(key)
	if ps.pending {
		return btpxutil.NewDiscoveryInProgressError(
			"discovery already pending for " + key.String())
	}

	ps.pending = true
	return nil
}

// Rolls back a discovery that the client refused to start.
func (r *Registry) AbortDiscovery(key PeerKey) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if ps := r.peers[key]; ps != nil {
		ps.pending = false
	}
}

func (r *Registry) CompleteDiscovery(key PeerKey, status int32,
	tbsCount uint8, gtbsFound bool) error {

	r.mtx.Lock()
	defer r.mtx.Unlock()

	ps := r.peers[key]
	if ps == nil || !ps.pending {
		return btpxutil.NewNoPendingDiscoveryError(
			"no discovery pending for " + key.String())
	}

	ps.pending = false
	ps.result = &DiscoveryResult{
		Status:    status,
		TbsCount:  tbsCount,
		GtbsFound: gtbsFound,
	}
	ps.gen++
	ps.calls = map[uint8][]Call{}

	return nil
}

func (r *Registry) resolveNoLock(key PeerKey, inst uint8) error {
	ps := r.peers[key]
	if ps == nil || ps.result == nil {
		return btpxutil.FmtUnknownInstanceError(inst,
			"no completed discovery for %s", key.String())
	}

	if ps.result.Status != 0 {
		return btpxutil.FmtUnknownInstanceError(inst,
			"last discovery for %s failed; status=%d",
			key.String(), ps.result.Status)
	}

	if inst != GTBS_INDEX && inst >= ps.result.TbsCount {
		return btpxutil.FmtUnknownInstanceError(inst,
			"tbs_count=%d for %s", ps.result.TbsCount, key.String())
	}

	return nil
}

// Validates a service index against the peer's latest discovery result.
// GTBS_INDEX resolves once any discovery has succeeded.
func (r *Registry) ResolveIndex(key PeerKey, inst uint8) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.resolveNoLock(key, inst)
}

func (r *Registry) recordNoLock(ps *peerState, inst uint8, calls []Call) {
	snap := make([]Call, len(calls))
	copy(snap, calls)
	ps.calls[inst] = snap
}

// Replaces the call snapshot of one instance.
func (r *Registry) RecordCallStates(key PeerKey, inst uint8,
	calls []Call) error {

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if err := r.resolveNoLock(key, inst); err != nil {
		return err
	}

	r.recordNoLock(r.peers[key], inst, calls)
	return nil
}

// Returns a copy of the latest call snapshot of one instance.
func (r *Registry) Calls(key PeerKey, inst uint8) []Call {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	ps := r.peers[key]
	if ps == nil {
		return nil
	}

	calls := ps.calls[inst]
	if calls == nil {
		return nil
	}

	snap := make([]Call, len(calls))
	copy(snap, calls)
	return snap
}

func (r *Registry) AddReadTicket(key PeerKey, inst uint8) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	ps := r.peer(key)
	ps.tickets[inst] = append(ps.tickets[inst], ps.gen)
}

// Withdraws the newest ticket, for a read the client refused.
func (r *Registry) CancelReadTicket(key PeerKey, inst uint8) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	ps := r.peers[key]
	if ps == nil {
		return
	}

	t := ps.tickets[inst]
	if len(t) > 0 {
		ps.tickets[inst] = t[:len(t)-1]
	}
}

// Decides whether a Read Call States result is still current and, if so,
// records it.  Each result answers the oldest outstanding read on the
// instance; one issued before the latest discovery completed is stale.
// Returns false when the result must be dropped.
func (r *Registry) ApplyReadResult(key PeerKey, status int32, inst uint8,
	calls []Call) bool {

	r.mtx.Lock()
	defer r.mtx.Unlock()

	ps := r.peers[key]
	if ps == nil {
		log.Debugf("Dropping read result from unknown %s", key.String())
		return false
	}

	t := ps.tickets[inst]
	if len(t) == 0 {
		log.Warnf("Dropping read result with no outstanding read; "+
			"%s inst=%s", key.String(), InstString(inst))
		return false
	}

	gen := t[0]
	if len(t) == 1 {
		delete(ps.tickets, inst)
	} else {
		ps.tickets[inst] = t[1:]
	}

	if gen != ps.gen {
		log.Debugf("Dropping stale call states; %s inst=%s gen=%d cur=%d",
			key.String(), InstString(inst), gen, ps.gen)
		return false
	}

	if status == 0 {
		r.recordNoLock(ps, inst, calls)
	}

	return true
}

// Records an unsolicited Call State notification.  Outstanding reads are
// left alone.  Returns false when the instance no longer resolves.
func (r *Registry) ApplyNotification(key PeerKey, inst uint8,
	calls []Call) bool {

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if err := r.resolveNoLock(key, inst); err != nil {
		log.Debugf("Dropping call state notification: %s", err.Error())
		return false
	}

	r.recordNoLock(r.peers[key], inst, calls)
	return true
}

func (r *Registry) State(key PeerKey) PeerState {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	ps := r.peers[key]
	switch {
	case ps == nil:
		return PEER_STATE_IDLE
	case ps.pending:
		return PEER_STATE_DISC_PENDING
	case ps.result != nil && ps.result.Status == 0:
		return PEER_STATE_DISCOVERED
	default:
		return PEER_STATE_IDLE
	}
}

// Returns a copy of the peer's latest completed discovery, or nil.
func (r *Registry) Result(key PeerKey) *DiscoveryResult {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	ps := r.peers[key]
	if ps == nil || ps.result == nil {
		return nil
	}

	res := *ps.result
	return &res
}

func (r *Registry) Reset() {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.peers = map[PeerKey]*peerState{}
}
