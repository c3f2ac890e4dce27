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

	"mynewt.apache.org/btptester/btpxact/btpserial"
)

func einvalSerialConnString(f string, args ...interface{}) error {
	suffix := fmt.Sprintf(f, args...)
	return util.FmtNewtError("Invalid serial connstring; %s", suffix)
}

// Parses "dev=<path>,baud=<rate>".  A lone token is taken as the device
// path.
func ParseSerialConnString(cs string) (*btpserial.XportCfg, error) {
	sc := btpserial.NewXportCfg()

	for _, p := range strings.Split(cs, ",") {
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 1 {
			kv = []string{"dev", kv[0]}
		}

		k := kv[0]
		v := kv[1]

		switch k {
		case "dev":
			sc.DevPath = v

		case "baud":
			baud, err := cast.ToIntE(v)
			if err != nil || baud <= 0 {
				return nil, einvalSerialConnString("Invalid baud: %s", v)
			}
			sc.Baud = baud

		default:
			return nil, einvalSerialConnString("Unrecognized key: %s", k)
		}
	}

	if sc.DevPath == "" {
		return nil, einvalSerialConnString("dev required")
	}

	return sc, nil
}

func BuildSerialXport(sc *btpserial.XportCfg) *btpserial.SerialXport {
	return btpserial.NewSerialXport(sc)
}
