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
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsDeadline(t *testing.T) {
	assert.True(t, IsDeadline(context.DeadlineExceeded))
	assert.True(t, IsDeadline(errors.Wrap(context.DeadlineExceeded, "dial")))
	assert.True(t, IsDeadline(errors.Wrap(
		errors.Wrap(context.DeadlineExceeded, "dial"), "connect")))

	assert.False(t, IsDeadline(nil))
	assert.False(t, IsDeadline(context.Canceled))
	assert.False(t, IsDeadline(fmt.Errorf("%s", context.DeadlineExceeded)))
}

func TestGlobalOpts(t *testing.T) {
	o := GlobalOpts{Timeout: 1.5}
	assert.Equal(t, 1500*time.Millisecond, o.TimeoutDuration())
	assert.False(t, o.HasConnOverride())

	o.ConnProfile = "dev"
	assert.False(t, o.HasConnOverride())

	o.ConnString = "addr=/tmp/bt-stack-tester"
	assert.True(t, o.HasConnOverride())
}
