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
	"encoding/binary"
	"fmt"

	"github.com/JuulLabs-OSS/ble"

	"mynewt.apache.org/btptester/btpxact/bledefs"
	"mynewt.apache.org/btptester/btpxact/ccp"
)

// Status values reported in CCP events.  Negated errno values, as the
// embedded host reports them.
const (
	BLE_STATUS_OK       int32 = 0
	BLE_STATUS_EIO      int32 = -5
	BLE_STATUS_ENODEV   int32 = -19
	BLE_STATUS_ETIMEOUT int32 = -116
	BLE_STATUS_ENOTCONN int32 = -128
)

// Call Control Point opcodes.
const (
	CCP_CTL_ACCEPT    = 0x00
	CCP_CTL_TERMINATE = 0x01
	CCP_CTL_ORIGINATE = 0x02
)

func BllUuid16(u bledefs.BleUuid16) ble.UUID {
	return ble.UUID16(uint16(u))
}

func Uuid16FromBllUuid(bllUuid ble.UUID) (bledefs.BleUuid16, error) {
	if len(bllUuid) != 2 {
		return 0, fmt.Errorf("Not a 16-bit UUID: %s", bllUuid.String())
	}

	return bledefs.BleUuid16(binary.LittleEndian.Uint16(bllUuid)), nil
}

// Parses the value of a Call State characteristic: a sequence of
// (call index, state, flags) records.
func ParseCallStates(data []byte) ([]ccp.Call, error) {
	if len(data)%ccp.CALL_REC_SZ != 0 {
		return nil, fmt.Errorf("Call State value length %d not a multiple "+
			"of %d", len(data), ccp.CALL_REC_SZ)
	}

	calls := make([]ccp.Call, 0, len(data)/ccp.CALL_REC_SZ)
	for off := 0; off < len(data); off += ccp.CALL_REC_SZ {
		calls = append(calls, ccp.Call{
			Index: data[off],
			State: ccp.CallState(data[off+1]),
			Flags: ccp.CallFlags(data[off+2]),
		})
	}

	return calls, nil
}

func buildCtlPtCmd(op uint8, arg []byte) []byte {
	b := make([]byte, 0, 1+len(arg))
	b = append(b, op)
	return append(b, arg...)
}

// Converts a peer to the address form go-ble dials.
func bllAddr(dev bledefs.BleDev) ble.Addr {
	return ble.NewAddr(dev.Addr.String())
}
