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
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"

	"mynewt.apache.org/btptester/btptester/bll"
	"mynewt.apache.org/btptester/btptester/btputil"
	"mynewt.apache.org/btptester/btpxact/ccp"
	"mynewt.apache.org/btptester/btpxact/tester"
)

var globalTester *tester.Tester

func GetTesterIfOpen() *tester.Tester {
	return globalTester
}

func buildClient() ccp.Client {
	if btputil.Opts.NullClient {
		log.Infof("Using null CCP client; every request will be rejected")
		return &ccp.NullClient{}
	}

	s := getSettings()
	bc := s.BllClientCfg()
	bc.HciIdx = btputil.Opts.HciIdx

	return bll.NewBllClient(bc)
}

func serveRunCmd(cmd *cobra.Command, args []string) {
	s := getSettings()

	x, err := GetXport()
	if err != nil {
		btUsage(cmd, err)
	}

	t := tester.NewTester(s.TesterCfg(), x, buildClient())
	if err := t.Start(); err != nil {
		btUsage(nil, util.ChildNewtError(err))
	}
	globalTester = t

	log.Infof("BTP tester running; controller index %d", s.ControllerIndex)

	// Runs until the process is signalled; main's handler stops the tester.
	select {}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve CCP commands from a BTP harness",
		Long: "Opens the connection profile's transport and serves BTP Core " +
			"and CCP\ncommands until interrupted.",
		Example: "  " + btputil.ToolInfo.ExeName +
			" serve --conntype unix --connstring addr=/tmp/bt-stack-tester",
		Run: serveRunCmd,
	}

	cmd.Flags().BoolVar(&btputil.Opts.NullClient, "null-client", false,
		"Reject all CCP requests instead of using the BLE controller")

	return cmd
}
