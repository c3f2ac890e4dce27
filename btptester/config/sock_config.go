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
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"mynewt.apache.org/newt/util"

	"mynewt.apache.org/btptester/btpxact/sock"
)

func einvalSockConnString(f string, args ...interface{}) error {
	suffix := fmt.Sprintf(f, args...)
	return util.FmtNewtError("Invalid socket connstring; %s", suffix)
}

// Parses "addr=<path or host:port>,listen=<bool>".  A lone token is taken
// as the address.
func ParseSockConnString(network string, cs string) (*sock.XportCfg, error) {
	sc := sock.NewXportCfg()
	sc.Network = network
	if network != "unix" {
		sc.Addr = ""
	}

	for _, p := range strings.Split(cs, ",") {
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 1 {
			kv = []string{"addr", kv[0]}
		}

		k := kv[0]
		v := kv[1]

		switch k {
		case "addr":
			sc.Addr = v

		case "listen":
			b, err := cast.ToBoolE(v)
			if err != nil {
				return nil, einvalSockConnString("Invalid listen: %s", v)
			}
			sc.Listen = b

		default:
			return nil, einvalSockConnString("Unrecognized key: %s", k)
		}
	}

	if sc.Addr == "" {
		return nil, einvalSockConnString("addr required")
	}

	return sc, nil
}

func BuildSockXport(sc *sock.XportCfg) *sock.SockXport {
	return sock.NewSockXport(sc)
}
