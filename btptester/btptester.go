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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mynewt.apache.org/newt/util"

	"mynewt.apache.org/btptester/btptester/btputil"
	"mynewt.apache.org/btptester/btptester/cli"
	"mynewt.apache.org/btptester/btptester/config"
	"mynewt.apache.org/btptester/btpxact/btpserial"
)

func main() {
	btputil.ToolInfo = btputil.ToolInfoType{
		ExeName:       "btptester",
		ShortName:     "btptester",
		LongName:      "Apache Mynewt BTP CCP tester",
		VersionString: "0.1.0",
		CfgFilename:   ".btptester.cp.json",
	}

	if err := config.InitGlobalConnProfileMgr(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}

	onExit := func() {
		if t := cli.GetTesterIfOpen(); t != nil {
			// Stops the transport too.
			t.Stop()
			return
		}

		x, err := cli.GetXportIfOpen()
		if err == nil {
			// Don't attempt to close a serial transport.  Closing the port
			// while a read is in progress (in MacOS) blocks until the read
			// completes.  Let the OS close it on termination.
			if _, ok := x.(*btpserial.SerialXport); !ok {
				x.Stop()
			}
		}
	}
	defer onExit()
	cli.BtSetOnExit(onExit)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan)

	go func() {
		for {
			s := <-sigChan
			switch s {
			case os.Interrupt, syscall.SIGTERM:
				onExit()
				os.Exit(0)

			case syscall.SIGQUIT:
				util.PrintStacks()
			}
		}
	}()

	cli.Commands().Execute()
}
