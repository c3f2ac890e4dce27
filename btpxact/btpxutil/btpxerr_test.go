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

package btpxutil

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPredicatesSeeThroughWrap(t *testing.T) {
	errs := []error{
		NewMalformedFrameError("a"),
		NewUnsupportedCmdError(19, 9),
		NewNotReadyError("b"),
		NewUnknownInstanceError(3, "c"),
		NewDiscoveryInProgressError("d"),
		NewNoPendingDiscoveryError("e"),
		NewInvalidPayloadError("f"),
		NewClientRejectError("g"),
		NewXportError("h"),
		NewSesnClosedError("i"),
	}
	preds := []func(error) bool{
		IsMalformedFrame,
		IsUnsupportedCmd,
		IsNotReady,
		IsUnknownInstance,
		IsDiscoveryInProgress,
		IsNoPendingDiscovery,
		IsInvalidPayload,
		IsClientReject,
		IsXport,
		IsSesnClosed,
	}

	for i, err := range errs {
		wrapped := errors.Wrapf(err, "layer %d", i)
		for j, pred := range preds {
			assert.Equal(t, i == j, pred(wrapped), "err %d pred %d", i, j)
		}
	}

	assert.False(t, IsXport(nil))
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "unsupported command: service=0x13 opcode=0x09",
		NewUnsupportedCmdError(19, 9).Error())
	assert.Equal(t, "bad len 3",
		FmtInvalidPayloadError("bad len %d", 3).Error())
}
