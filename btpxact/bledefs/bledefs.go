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

package bledefs

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Size of an LE address on the BTP wire: type byte plus six address bytes.
const BLE_ADDR_WIRE_SZ = 7

// Telephone Bearer Service and Generic TBS.
const TbsSvcUuid BleUuid16 = 0x184b
const GtbsSvcUuid BleUuid16 = 0x184c

// TBS characteristics the CCP client uses.
const (
	TbsUriSchemesChrUuid BleUuid16 = 0x2bb6
	TbsCallStateChrUuid  BleUuid16 = 0x2bbd
	TbsCallCtlPtChrUuid  BleUuid16 = 0x2bbe
)

type BleAddrType int

const (
	BLE_ADDR_TYPE_PUBLIC  BleAddrType = 0
	BLE_ADDR_TYPE_RANDOM              = 1
	BLE_ADDR_TYPE_RPA_PUB             = 2
	BLE_ADDR_TYPE_RPA_RND             = 3
)

var BleAddrTypeStringMap = map[BleAddrType]string{
	BLE_ADDR_TYPE_PUBLIC:  "public",
	BLE_ADDR_TYPE_RANDOM:  "random",
	BLE_ADDR_TYPE_RPA_PUB: "rpa_pub",
	BLE_ADDR_TYPE_RPA_RND: "rpa_rnd",
}

func BleAddrTypeToString(addrType BleAddrType) string {
	s := BleAddrTypeStringMap[addrType]
	if s == "" {
		return "???"
	}

	return s
}

func BleAddrTypeFromString(s string) (BleAddrType, error) {
	for addrType, name := range BleAddrTypeStringMap {
		if s == name {
			return addrType, nil
		}
	}

	// Accept the numeric form the harness uses.
	if u64, err := strconv.ParseUint(s, 0, 8); err == nil {
		return BleAddrType(u64), nil
	}

	return BleAddrType(0), fmt.Errorf("Invalid BleAddrType string: %s", s)
}

// Bytes are held most significant octet first, i.e., in the order they are
// written as a string.
type BleAddr struct {
	Bytes [6]byte
}

func ParseBleAddr(s string) (BleAddr, error) {
	ba := BleAddr{}

	toks := strings.Split(strings.ToLower(s), ":")
	if len(toks) != 6 {
		return ba, fmt.Errorf("invalid BLE addr string: %s", s)
	}

	for i, t := range toks {
		u64, err := strconv.ParseUint(t, 16, 8)
		if err != nil {
			return ba, err
		}
		ba.Bytes[i] = byte(u64)
	}

	return ba, nil
}

func (ba BleAddr) String() string {
	var buf bytes.Buffer
	buf.Grow(len(ba.Bytes) * 3)

	for i, b := range ba.Bytes {
		if i != 0 {
			buf.WriteString(":")
		}
		fmt.Fprintf(&buf, "%02x", b)
	}

	return buf.String()
}

// A peer device.  Comparable; used as a map key.
type BleDev struct {
	AddrType BleAddrType
	Addr     BleAddr
}

func (bd BleDev) String() string {
	return fmt.Sprintf("%s,%s",
		BleAddrTypeToString(bd.AddrType),
		bd.Addr.String())
}

// Decodes the 7-byte BTP address field.  The address octets are carried
// least significant first.
func DecodeBleDev(data []byte) (BleDev, error) {
	bd := BleDev{}

	if len(data) < BLE_ADDR_WIRE_SZ {
		return bd, fmt.Errorf("BLE address field too short: %d bytes",
			len(data))
	}

	bd.AddrType = BleAddrType(data[0])
	for i := 0; i < 6; i++ {
		bd.Addr.Bytes[5-i] = data[1+i]
	}

	return bd, nil
}

func (bd BleDev) Bytes() []byte {
	b := make([]byte, BLE_ADDR_WIRE_SZ)

	b[0] = byte(bd.AddrType)
	for i := 0; i < 6; i++ {
		b[1+i] = bd.Addr.Bytes[5-i]
	}

	return b
}

type BleUuid16 uint16

func (bu16 BleUuid16) String() string {
	return fmt.Sprintf("0x%04x", uint16(bu16))
}
