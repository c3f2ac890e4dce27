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
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gopkg.in/abiosoft/ishell.v2"

	"mynewt.apache.org/newt/util"

	"mynewt.apache.org/btptester/btptester/btputil"
	"mynewt.apache.org/btptester/btpxact/bledefs"
	"mynewt.apache.org/btptester/btpxact/btp"
	"mynewt.apache.org/btptester/btpxact/ccp"
	"mynewt.apache.org/btptester/btpxact/core"
)

var shellHarness *harness

// Parses "key=value" shell arguments.
func extractKv(args []string) (map[string]string, error) {
	m := map[string]string{}

	for _, arg := range args {
		kv := strings.SplitN(arg, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("expected key=value; have %s", arg)
		}
		m[kv[0]] = kv[1]
	}

	return m, nil
}

func kvUint8(m map[string]string, key string, dflt *uint8) (uint8, error) {
	s, ok := m[key]
	if !ok {
		if dflt == nil {
			return 0, fmt.Errorf("missing %s", key)
		}
		return *dflt, nil
	}

	if key == "idx" && strings.EqualFold(s, "gtbs") {
		return ccp.GTBS_INDEX, nil
	}

	u, err := cast.ToUint8E(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, s)
	}
	return u, nil
}

func kvDev(m map[string]string) (bledefs.BleDev, error) {
	dev := bledefs.BleDev{}

	s, ok := m["addr"]
	if !ok {
		return dev, fmt.Errorf("missing addr")
	}

	addr, err := bledefs.ParseBleAddr(s)
	if err != nil {
		return dev, err
	}
	dev.Addr = addr

	if t, ok := m["type"]; ok {
		at, err := bledefs.BleAddrTypeFromString(t)
		if err != nil {
			return dev, err
		}
		dev.AddrType = at
	}

	return dev, nil
}

func kvSvc(m map[string]string) (uint8, error) {
	s, ok := m["svc"]
	if !ok {
		return btp.BTP_SERVICE_ID_CCP, nil
	}

	if id, err := btp.ServiceIdFromString(s); err == nil {
		return id, nil
	}

	id, err := cast.ToUint8E(s)
	if err != nil {
		return 0, fmt.Errorf("invalid svc: %s", s)
	}
	return id, nil
}

var ccpIndex uint8

// Runs one shell command: builds a frame from the arguments, sends it, and
// prints the outcome.
func shellRun(c *ishell.Context, build func(m map[string]string) (
	*btp.Frame, error), rspFn func(rsp *btp.Frame)) {

	m, err := extractKv(c.Args)
	if err != nil {
		c.Println("Error:", err)
		return
	}

	f, err := build(m)
	if err != nil {
		c.Println("Error:", err)
		c.Println(c.HelpText())
		return
	}

	rsp, err := shellHarness.txRx(f, btputil.Opts.TimeoutDuration())
	if err != nil {
		c.Println("Error:", err)
		return
	}

	if rspFn != nil {
		rspFn(rsp)
	} else {
		c.Println("ok")
	}
}

func printBitmap(c *ishell.Context, bm []byte, nameFn func(id uint8) string) {
	for id := 0; id < len(bm)*8; id++ {
		if btp.BitmapHas(bm, uint8(id)) {
			c.Printf("  0x%02x %s\n", id, nameFn(uint8(id)))
		}
	}
}

func supportedCmd(c *ishell.Context) {
	shellRun(c, func(m map[string]string) (*btp.Frame, error) {
		svc, err := kvSvc(m)
		if err != nil {
			return nil, err
		}
		return btp.NewFrame(svc, btp.BTP_OP_READ_SUPPORTED_CMDS,
			btp.INDEX_NONE, nil), nil
	}, func(rsp *btp.Frame) {
		printBitmap(c, rsp.Payload, func(id uint8) string { return "" })
	})
}

func servicesCmd(c *ishell.Context) {
	shellRun(c, func(m map[string]string) (*btp.Frame, error) {
		return btp.NewFrame(btp.BTP_SERVICE_ID_CORE,
			core.CORE_OP_READ_SUPPORTED_SVCS, btp.INDEX_NONE, nil), nil
	}, func(rsp *btp.Frame) {
		printBitmap(c, rsp.Payload, btp.ServiceIdToString)
	})
}

func registerSvcCmd(op uint8) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		shellRun(c, func(m map[string]string) (*btp.Frame, error) {
			svc, err := kvSvc(m)
			if err != nil {
				return nil, err
			}
			return btp.NewFrame(btp.BTP_SERVICE_ID_CORE, op, btp.INDEX_NONE,
				[]byte{svc}), nil
		}, nil)
	}
}

func discoverCmd(c *ishell.Context) {
	shellRun(c, func(m map[string]string) (*btp.Frame, error) {
		dev, err := kvDev(m)
		if err != nil {
			return nil, err
		}

		cmd := ccp.DiscoverCmd{Dev: dev}
		return btp.NewFrame(btp.BTP_SERVICE_ID_CCP, ccp.CCP_OP_DISCOVER_TBS,
			ccpIndex, cmd.Bytes()), nil
	}, nil)
}

func callCmd(op uint8) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		shellRun(c, func(m map[string]string) (*btp.Frame, error) {
			dev, err := kvDev(m)
			if err != nil {
				return nil, err
			}
			inst, err := kvUint8(m, "idx", nil)
			if err != nil {
				return nil, err
			}
			call, err := kvUint8(m, "call", nil)
			if err != nil {
				return nil, err
			}

			cmd := ccp.CallCmd{Dev: dev, Inst: inst, CallIndex: call}
			return btp.NewFrame(btp.BTP_SERVICE_ID_CCP, op, ccpIndex,
				cmd.Bytes()), nil
		}, nil)
	}
}

func originateCmd(c *ishell.Context) {
	shellRun(c, func(m map[string]string) (*btp.Frame, error) {
		dev, err := kvDev(m)
		if err != nil {
			return nil, err
		}
		inst, err := kvUint8(m, "idx", nil)
		if err != nil {
			return nil, err
		}
		uri, ok := m["uri"]
		if !ok {
			return nil, fmt.Errorf("missing uri")
		}

		cmd := ccp.OriginateCmd{Dev: dev, Inst: inst, Uri: uri}
		return btp.NewFrame(btp.BTP_SERVICE_ID_CCP, ccp.CCP_OP_ORIGINATE_CALL,
			ccpIndex, cmd.Bytes()), nil
	}, nil)
}

func statesCmd(c *ishell.Context) {
	shellRun(c, func(m map[string]string) (*btp.Frame, error) {
		dev, err := kvDev(m)
		if err != nil {
			return nil, err
		}
		inst, err := kvUint8(m, "idx", nil)
		if err != nil {
			return nil, err
		}

		cmd := ccp.ReadCallStatesCmd{Dev: dev, Inst: inst}
		return btp.NewFrame(btp.BTP_SERVICE_ID_CCP,
			ccp.CCP_OP_READ_CALL_STATES, ccpIndex, cmd.Bytes()), nil
	}, nil)
}

func startShell(cmd *cobra.Command, args []string) {
	s := getSettings()
	ccpIndex = s.ControllerIndex

	x, err := GetXport()
	if err != nil {
		btUsage(cmd, err)
	}

	shell := ishell.New()
	shell.SetPrompt("btp> ")

	shellHarness = newHarness(x, func(evt string) {
		shell.Println(evt)
	})
	if err := shellHarness.start(); err != nil {
		btUsage(nil, util.ChildNewtError(err))
	}

	shell.Println()
	shell.Println(" BTP harness shell for CCP:")
	shell.Println("	Connection profile: ", btputil.Opts.ConnProfile)
	shell.Println()

	shell.AddCmd(&ishell.Cmd{
		Name: "supported",
		Help: "Read supported commands: supported [svc=core|ccp]",
		Func: supportedCmd,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "services",
		Help: "Read supported services: services",
		Func: servicesCmd,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "register",
		Help: "Register a service: register svc=ccp",
		Func: registerSvcCmd(core.CORE_OP_REGISTER_SERVICE),
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "unregister",
		Help: "Unregister a service: unregister svc=ccp",
		Func: registerSvcCmd(core.CORE_OP_UNREGISTER_SERVICE),
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "discover",
		Help: "Discover TBS instances: discover addr=v [type=public|random]",
		Func: discoverCmd,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "accept",
		Help: "Accept a call: accept addr=v idx=v|gtbs call=v",
		Func: callCmd(ccp.CCP_OP_ACCEPT_CALL),
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "terminate",
		Help: "Terminate a call: terminate addr=v idx=v|gtbs call=v",
		Func: callCmd(ccp.CCP_OP_TERMINATE_CALL),
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "originate",
		Help: "Originate a call: originate addr=v idx=v|gtbs uri=tel:123",
		Func: originateCmd,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "states",
		Help: "Read call states: states addr=v idx=v|gtbs",
		Func: statesCmd,
	})

	shell.Run()
	shell.Close()

	shellHarness.stop()
}

func shellCmd() *cobra.Command {
	shellCmd := &cobra.Command{
		Use: "shell",
		Short: "Run an interactive BTP harness against a " +
			btputil.ToolInfo.ShortName + " IUT",
		Example: "  " + btputil.ToolInfo.ExeName +
			" shell --conntype unix --connstring " +
			"addr=/tmp/bt-stack-tester,listen=true",
		Run: startShell,
	}

	return shellCmd
}
