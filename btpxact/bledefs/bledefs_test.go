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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBleDevWire(t *testing.T) {
	wire := []byte{0x01, 0xff, 0xee, 0xdd, 0xcc, 0xbb, 0xaa}

	bd, err := DecodeBleDev(wire)
	require.NoError(t, err)
	assert.Equal(t, BleAddrType(BLE_ADDR_TYPE_RANDOM), bd.AddrType)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", bd.Addr.String())
	assert.Equal(t, "random,aa:bb:cc:dd:ee:ff", bd.String())
	assert.Equal(t, wire, bd.Bytes())

	_, err = DecodeBleDev(wire[:6])
	assert.Error(t, err)
}

func TestParseBleAddr(t *testing.T) {
	a, err := ParseBleAddr("AA:bb:0C:dd:EE:01")
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0xaa, 0xbb, 0x0c, 0xdd, 0xee, 0x01}, a.Bytes)

	for _, s := range []string{"", "aa:bb", "aa:bb:cc:dd:ee:gg",
		"aa:bb:cc:dd:ee:ff:00", "aaa:bb:cc:dd:ee:ff"} {

		_, err := ParseBleAddr(s)
		assert.Error(t, err, s)
	}
}

func TestBleAddrType(t *testing.T) {
	at, err := BleAddrTypeFromString("public")
	require.NoError(t, err)
	assert.Equal(t, BLE_ADDR_TYPE_PUBLIC, at)

	at, err = BleAddrTypeFromString("1")
	require.NoError(t, err)
	assert.Equal(t, "random", BleAddrTypeToString(at))

	_, err = BleAddrTypeFromString("static")
	assert.Error(t, err)
}

func TestUuid16String(t *testing.T) {
	assert.Equal(t, "0x184c", GtbsSvcUuid.String())
	assert.Equal(t, "0x2bbd", TbsCallStateChrUuid.String())
}
