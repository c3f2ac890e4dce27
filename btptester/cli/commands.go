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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"

	"mynewt.apache.org/btptester/btptester/btputil"
	"mynewt.apache.org/btptester/btpxact/btpxutil"
)

var BtLogLevel log.Level

func Commands() *cobra.Command {
	logLevelStr := ""
	btCmd := &cobra.Command{
		Use:   btputil.ToolInfo.ExeName,
		Short: btputil.ToolInfo.ShortName + " exposes Call Control Profile " +
			"operations to a BTP test harness",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			BtLogLevel, err = log.ParseLevel(logLevelStr)
			if err != nil {
				btUsage(nil, util.ChildNewtError(err))
			}

			err = util.Init(BtLogLevel, "", util.VERBOSITY_DEFAULT)
			if err != nil {
				btUsage(nil, err)
			}
			btpxutil.SetLogLevel(BtLogLevel)
			btpxutil.Debug = BtLogLevel >= log.DebugLevel

			OSSpecificInit()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	btCmd.PersistentFlags().StringVarP(&btputil.Opts.ConnProfile, "conn", "c",
		"", "connection profile to use")

	btCmd.PersistentFlags().StringVar(&btputil.Opts.ConnType, "conntype", "",
		"Connection type to use instead of using the profile's type")

	btCmd.PersistentFlags().StringVar(&btputil.Opts.ConnString, "connstring", "",
		"Connection key-value pairs to use instead of using the profile's "+
			"connstring")

	btCmd.PersistentFlags().StringVar(&btputil.Opts.SettingsPath, "settings", "",
		"tester settings file (TOML)")

	btCmd.PersistentFlags().StringVarP(&logLevelStr, "loglevel", "l", "info",
		"log level to use")

	btCmd.PersistentFlags().Float64VarP(&btputil.Opts.Timeout, "timeout", "t",
		10.0, "timeout in seconds (partial seconds allowed)")

	btCmd.PersistentFlags().IntVarP(&btputil.Opts.HciIdx, "hci", "i",
		0, "HCI index for the controller on Linux machine")

	versCmd := &cobra.Command{
		Use:     "version",
		Short:   "Display the " + btputil.ToolInfo.ShortName + " version number",
		Example: "  " + btputil.ToolInfo.ExeName + " version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n",
				btputil.ToolInfo.LongName,
				btputil.ToolInfo.VersionString)
		},
	}
	btCmd.AddCommand(versCmd)

	btCmd.AddCommand(serveCmd())
	btCmd.AddCommand(shellCmd())
	btCmd.AddCommand(connProfileCmd())

	return btCmd
}
