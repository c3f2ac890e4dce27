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

package cli

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"

	"mynewt.apache.org/btptester/btptester/btputil"
	"mynewt.apache.org/btptester/btptester/config"
	"mynewt.apache.org/btptester/btpxact/xport"
)

var globalXport xport.Xport
var onExitFn func()

func BtSetOnExit(fn func()) {
	onExitFn = fn
}

func btExit(code int) {
	if onExitFn != nil {
		onExitFn()
	}
	os.Exit(code)
}

// Prints an error and, for usage errors, the command's help text; then
// exits.
func btUsage(cmd *cobra.Command, err error) {
	if err != nil {
		text := err.Error()
		if nerr, ok := err.(*util.NewtError); ok {
			log.Debugf("%s", nerr.StackTrace)
			text = nerr.Text
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", text)
	}

	if cmd != nil {
		fmt.Printf("\n")
		fmt.Printf("%s - ", cmd.Name())
		cmd.Help()
	}

	btExit(1)
}

// Resolves the connection profile, applying --conntype and --connstring
// overrides.
func getConnProfile() (*config.ConnProfile, error) {
	var cp *config.ConnProfile

	if btputil.Opts.ConnProfile != "" {
		p, err := config.GlobalConnProfileMgr().GetConnProfile(
			btputil.Opts.ConnProfile)
		if err != nil {
			return nil, err
		}

		cpy := *p
		cp = &cpy
	} else {
		if !btputil.Opts.HasConnOverride() {
			return nil, util.NewNewtError(
				"no connection; specify --conn or --conntype")
		}
		cp = config.NewConnProfile()
		cp.Name = "<cmdline>"
	}

	if btputil.Opts.ConnType != "" {
		ct, err := config.ConnTypeFromString(btputil.Opts.ConnType)
		if err != nil {
			return nil, err
		}
		cp.Type = ct
	}
	if btputil.Opts.ConnString != "" {
		cp.ConnString = btputil.Opts.ConnString
	}

	if cp.Type == config.CONN_TYPE_NONE {
		return nil, util.NewNewtError(
			"no connection; specify --conn or --conntype")
	}

	return cp, nil
}

// Builds, but does not start, the transport described by the connection
// profile.
func GetXport() (xport.Xport, error) {
	if globalXport != nil {
		return globalXport, nil
	}

	cp, err := getConnProfile()
	if err != nil {
		return nil, err
	}

	switch cp.Type {
	case config.CONN_TYPE_SERIAL:
		sc, err := config.ParseSerialConnString(cp.ConnString)
		if err != nil {
			return nil, err
		}
		globalXport = config.BuildSerialXport(sc)

	case config.CONN_TYPE_UNIX, config.CONN_TYPE_TCP:
		sc, err := config.ParseSockConnString(
			config.ConnTypeToString(cp.Type), cp.ConnString)
		if err != nil {
			return nil, err
		}
		globalXport = config.BuildSockXport(sc)

	default:
		return nil, util.FmtNewtError("Unknown connection type: %s (%d)",
			config.ConnTypeToString(cp.Type), int(cp.Type))
	}

	log.Debugf("Using connection %s", cp.String())
	return globalXport, nil
}

func GetXportIfOpen() (xport.Xport, error) {
	if globalXport == nil {
		return nil, fmt.Errorf("xport not initialized")
	}

	return globalXport, nil
}

func getSettings() config.Settings {
	s, err := config.LoadSettings(btputil.Opts.SettingsPath)
	if err != nil {
		btUsage(nil, err)
	}

	return s
}
