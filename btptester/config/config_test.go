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

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mynewt.apache.org/btptester/btpxact/sock"
)

func TestParseSettings(t *testing.T) {
	s, err := ParseSettings(`
controller_index = 1
require_register = true
uri_schemes = ["tel", "sips"]

[ble]
dial_timeout = "3s"
`)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), s.ControllerIndex)
	assert.True(t, s.RequireRegister)

	// Unset keys keep their defaults.
	assert.Equal(t, 64, s.QueueDepth)
	assert.Equal(t, "default", s.Ble.Device)

	tc := s.TesterCfg()
	assert.Equal(t, uint8(1), tc.Ccp.Index)
	assert.Equal(t, []string{"tel", "sips"}, tc.Ccp.UriSchemes)
	assert.True(t, tc.RequireRegister)

	bc := s.BllClientCfg()
	assert.Equal(t, 3*time.Second, bc.DialTimeout)
	assert.Equal(t, uint16(512), bc.PreferredMtu)
}

func TestSettingsValidate(t *testing.T) {
	bad := []string{
		`controller_index = 255`,
		`max_payload = 0`,
		`max_payload = 70000`,
		`queue_depth = 0`,
		`uri_schemes = []`,
		`uri_schemes = ["tel:"]`,
		"[ble]\ndial_timeout = \"soon\"",
		`controller_index = "one"`,
	}

	for _, text := range bad {
		_, err := ParseSettings(text)
		assert.Error(t, err, text)
	}
}

func TestLoadSettings(t *testing.T) {
	dir, err := ioutil.TempDir("", "btptester")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)

	s, err = LoadSettings(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)

	path := filepath.Join(dir, "settings.toml")
	require.NoError(t, ioutil.WriteFile(path, []byte("queue_depth = 8\n"),
		0644))
	s, err = LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 8, s.QueueDepth)
}

func TestParseSerialConnString(t *testing.T) {
	sc, err := ParseSerialConnString("dev=/dev/ttyACM0,baud=1000000")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", sc.DevPath)
	assert.Equal(t, 1000000, sc.Baud)

	sc, err = ParseSerialConnString("/dev/ttyUSB1")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", sc.DevPath)
	assert.Equal(t, 115200, sc.Baud)

	for _, cs := range []string{"", "baud=9600", "dev=/dev/x,baud=fast",
		"dev=/dev/x,parity=none"} {

		_, err := ParseSerialConnString(cs)
		assert.Error(t, err, cs)
	}
}

func TestParseSockConnString(t *testing.T) {
	sc, err := ParseSockConnString("unix", "")
	require.NoError(t, err)
	assert.Equal(t, sock.DFLT_UNIX_PATH, sc.Addr)
	assert.False(t, sc.Listen)

	sc, err = ParseSockConnString("tcp", "addr=127.0.0.1:5000,listen=true")
	require.NoError(t, err)
	assert.Equal(t, "tcp", sc.Network)
	assert.Equal(t, "127.0.0.1:5000", sc.Addr)
	assert.True(t, sc.Listen)

	_, err = ParseSockConnString("tcp", "")
	assert.Error(t, err)
	_, err = ParseSockConnString("unix", "listen=maybe")
	assert.Error(t, err)
	_, err = ParseSockConnString("unix", "port=1")
	assert.Error(t, err)
}

func TestConnProfileMgr(t *testing.T) {
	dir, err := ioutil.TempDir("", "btptester")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "cp.json")
	cpm, err := NewConnProfileMgrAt(path)
	require.NoError(t, err)
	assert.Empty(t, cpm.GetConnProfileList())

	require.NoError(t, cpm.AddConnProfile(&ConnProfile{
		Name:       "pts",
		Type:       CONN_TYPE_UNIX,
		ConnString: "addr=/tmp/bt-stack-tester",
	}))
	require.NoError(t, cpm.AddConnProfile(&ConnProfile{
		Name:       "board",
		Type:       CONN_TYPE_SERIAL,
		ConnString: "dev=/dev/ttyACM0",
	}))
	assert.Error(t, cpm.AddConnProfile(&ConnProfile{Type: CONN_TYPE_TCP}))

	// A second manager sees the saved profiles.
	cpm2, err := NewConnProfileMgrAt(path)
	require.NoError(t, err)
	list := cpm2.GetConnProfileList()
	require.Len(t, list, 2)
	assert.Equal(t, "board", list[0].Name)
	assert.Equal(t, "pts", list[1].Name)

	cp, err := cpm2.GetConnProfile("pts")
	require.NoError(t, err)
	assert.Equal(t, CONN_TYPE_UNIX, cp.Type)

	require.NoError(t, cpm2.DeleteConnProfile("pts"))
	assert.Error(t, cpm2.DeleteConnProfile("pts"))
	_, err = cpm2.GetConnProfile("pts")
	assert.Error(t, err)
}

func TestConnType(t *testing.T) {
	for _, s := range []string{"serial", "unix", "tcp"} {
		ct, err := ConnTypeFromString(s)
		require.NoError(t, err)
		assert.Equal(t, s, ConnTypeToString(ct))
	}

	_, err := ConnTypeFromString("ble")
	assert.Error(t, err)
	_, err = ConnTypeFromString("???")
	assert.Error(t, err)
}
