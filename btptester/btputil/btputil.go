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

package btputil

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type ToolInfoType struct {
	ExeName       string
	ShortName     string
	LongName      string
	VersionString string
	CfgFilename   string
}

var ToolInfo ToolInfoType

// Values of the global command-line flags.
type GlobalOpts struct {
	// Connection profile name; ConnType and ConnString override its fields.
	ConnProfile string
	ConnType    string
	ConnString  string

	SettingsPath string

	// Seconds; partial seconds allowed.
	Timeout float64

	HciIdx     int
	NullClient bool
}

var Opts GlobalOpts

func (o *GlobalOpts) TimeoutDuration() time.Duration {
	return time.Duration(o.Timeout * float64(time.Second))
}

// Whether the connection was described on the command line rather than
// entirely by a stored profile.
func (o *GlobalOpts) HasConnOverride() bool {
	return o.ConnType != "" || o.ConnString != ""
}

// Reports whether err, or anything it wraps, is a context deadline.
func IsDeadline(err error) bool {
	for cur := err; cur != nil; {
		if cur == context.DeadlineExceeded {
			return true
		}

		child := errors.Cause(cur)
		if child == cur {
			return false
		}
		cur = child
	}

	return false
}
