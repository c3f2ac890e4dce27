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
	"strings"
)

const (
	CCP_OP_READ_SUPPORTED_CMDS = 0x01
	CCP_OP_DISCOVER_TBS        = 0x02
	CCP_OP_ACCEPT_CALL         = 0x03
	CCP_OP_TERMINATE_CALL      = 0x04
	CCP_OP_ORIGINATE_CALL      = 0x05
	CCP_OP_READ_CALL_STATES    = 0x06
)

const (
	CCP_EV_DISCOVERED  = 0x80
	CCP_EV_CALL_STATES = 0x81
)

// Service index that always denotes the Generic TBS instance.
const GTBS_INDEX = 0xff

// Wire size of one call record: index, state, flags.
const CALL_REC_SZ = 3

type CallState uint8

const (
	CALL_STATE_INCOMING CallState = iota
	CALL_STATE_DIALING
	CALL_STATE_ALERTING
	CALL_STATE_ACTIVE
	CALL_STATE_LOCALLY_HELD
	CALL_STATE_REMOTELY_HELD
	CALL_STATE_LOCALLY_AND_REMOTELY_HELD
)

var callStateNameMap = map[CallState]string{
	CALL_STATE_INCOMING:                  "incoming",
	CALL_STATE_DIALING:                   "dialing",
	CALL_STATE_ALERTING:                  "alerting",
	CALL_STATE_ACTIVE:                    "active",
	CALL_STATE_LOCALLY_HELD:              "locally_held",
	CALL_STATE_REMOTELY_HELD:             "remotely_held",
	CALL_STATE_LOCALLY_AND_REMOTELY_HELD: "locally_and_remotely_held",
}

func (cs CallState) String() string {
	s := callStateNameMap[cs]
	if s == "" {
		return fmt.Sprintf("state-%d", uint8(cs))
	}

	return s
}

type CallFlags uint8

const (
	CALL_FLAG_OUTGOING         CallFlags = 1 << 0
	CALL_FLAG_WITHHELD         CallFlags = 1 << 1
	CALL_FLAG_NETWORK_WITHHELD CallFlags = 1 << 2
)

func (f CallFlags) String() string {
	var parts []string

	if f&CALL_FLAG_OUTGOING != 0 {
		parts = append(parts, "outgoing")
	} else {
		parts = append(parts, "incoming")
	}
	if f&CALL_FLAG_WITHHELD != 0 {
		parts = append(parts, "withheld")
	}
	if f&CALL_FLAG_NETWORK_WITHHELD != 0 {
		parts = append(parts, "network_withheld")
	}

	return strings.Join(parts, "|")
}

// A call as reported by one TBS instance.  Index is assigned by the server
// and is unique only within that instance.
type Call struct {
	Index uint8
	State CallState
	Flags CallFlags
}

func (c Call) String() string {
	return fmt.Sprintf("call=%d state=%s flags=%s",
		c.Index, c.State.String(), c.Flags.String())
}

func InstString(inst uint8) string {
	if inst == GTBS_INDEX {
		return "gtbs"
	}
	return fmt.Sprintf("tbs%d", inst)
}
