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
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/newt/util"

	"mynewt.apache.org/btptester/btptester/bll"
	"mynewt.apache.org/btptester/btpxact/btp"
	"mynewt.apache.org/btptester/btpxact/ccp"
	"mynewt.apache.org/btptester/btpxact/tester"
)

type BleSettings struct {
	Device       string `toml:"device"`
	DialTimeout  string `toml:"dial_timeout"`
	PreferredMtu uint16 `toml:"preferred_mtu"`
}

// Tester settings file contents.  Keys missing from the file keep their
// defaults.
type Settings struct {
	ControllerIndex uint8       `toml:"controller_index"`
	MaxPayload      int         `toml:"max_payload"`
	QueueDepth      int         `toml:"queue_depth"`
	RequireRegister bool        `toml:"require_register"`
	UriSchemes      []string    `toml:"uri_schemes"`
	Ble             BleSettings `toml:"ble"`
}

func DefaultSettings() Settings {
	return Settings{
		ControllerIndex: 0,
		MaxPayload:      btp.BTP_MTU,
		QueueDepth:      64,
		RequireRegister: false,
		UriSchemes:      append([]string(nil), ccp.DefaultUriSchemes...),
		Ble: BleSettings{
			Device:       "default",
			DialTimeout:  "10s",
			PreferredMtu: 512,
		},
	}
}

// Reads a settings file.  An empty path or a missing file yields the
// defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	if path == "" {
		return s, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Debugf("No settings file at %s; using defaults", path)
		return s, nil
	}

	if _, err := toml.DecodeFile(path, &s); err != nil {
		return s, util.FmtNewtError("error reading settings (%s): %s",
			path, err.Error())
	}

	if err := s.Validate(); err != nil {
		return s, err
	}

	return s, nil
}

// Parses settings from TOML text.
func ParseSettings(text string) (Settings, error) {
	s := DefaultSettings()

	if _, err := toml.Decode(text, &s); err != nil {
		return s, util.ChildNewtError(err)
	}

	if err := s.Validate(); err != nil {
		return s, err
	}

	return s, nil
}

func (s *Settings) Validate() error {
	if s.ControllerIndex == btp.INDEX_NONE {
		return util.FmtNewtError("controller_index 0x%02x is reserved",
			s.ControllerIndex)
	}
	if s.MaxPayload <= 0 || s.MaxPayload > 0xffff {
		return util.FmtNewtError("invalid max_payload: %d", s.MaxPayload)
	}
	if s.QueueDepth <= 0 {
		return util.FmtNewtError("invalid queue_depth: %d", s.QueueDepth)
	}
	if len(s.UriSchemes) == 0 {
		return util.NewNewtError("uri_schemes must not be empty")
	}
	for _, scheme := range s.UriSchemes {
		if scheme == "" || strings.ContainsAny(scheme, ": ") {
			return util.FmtNewtError("invalid uri scheme: %q", scheme)
		}
	}
	if _, err := s.dialTimeout(); err != nil {
		return err
	}

	return nil
}

func (s *Settings) dialTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(s.Ble.DialTimeout)
	if err != nil || d <= 0 {
		return 0, util.FmtNewtError("invalid ble.dial_timeout: %q",
			s.Ble.DialTimeout)
	}

	return d, nil
}

func (s *Settings) TesterCfg() tester.TesterCfg {
	tc := tester.NewTesterCfg()

	tc.MaxPayload = s.MaxPayload
	tc.QueueDepth = s.QueueDepth
	tc.RequireRegister = s.RequireRegister
	tc.Ccp.Index = s.ControllerIndex
	tc.Ccp.UriSchemes = s.UriSchemes

	return tc
}

func (s *Settings) BllClientCfg() bll.ClientCfg {
	bc := bll.NewClientCfg()

	bc.CtlrName = s.Ble.Device
	if d, err := s.dialTimeout(); err == nil {
		bc.DialTimeout = d
	}
	if s.Ble.PreferredMtu != 0 {
		bc.PreferredMtu = s.Ble.PreferredMtu
	}

	return bc
}
