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

package ccp

import (
	"mynewt.apache.org/btptester/btpxact/bledefs"
	"mynewt.apache.org/btptester/btpxact/btpxutil"
)

// Receives the results of asynchronous client operations.  Methods may be
// called from any goroutine.
type Listener interface {
	OnDiscoveryComplete(dev bledefs.BleDev, status int32, tbsCount uint8,
		gtbsFound bool)

	// Reports the result of a ReadCallStates request.  calls is ignored
	// when status is nonzero.
	OnCallStates(dev bledefs.BleDev, status int32, inst uint8, calls []Call)

	// Reports an unsolicited Call State notification.
	OnCallStateNotify(dev bledefs.BleDev, inst uint8, calls []Call)
}

// The Bluetooth CCP client the service drives.  Each request method returns
// once the request has been accepted for processing; a non-nil error means it
// was rejected and no callback will follow.
type Client interface {
	Start(l Listener) error
	Stop() error

	// Completion is reported via Listener.OnDiscoveryComplete.
	Discover(dev bledefs.BleDev) error

	AcceptCall(dev bledefs.BleDev, inst uint8, callIndex uint8) error
	TerminateCall(dev bledefs.BleDev, inst uint8, callIndex uint8) error
	OriginateCall(dev bledefs.BleDev, inst uint8, uri string) error

	// Result is reported via Listener.OnCallStates.
	ReadCallStates(dev bledefs.BleDev, inst uint8) error
}

// A client with no Bluetooth behind it; it rejects every request.  Used to
// bring up a transport without a controller.
type NullClient struct{}

func (c *NullClient) Start(l Listener) error {
	return nil
}

func (c *NullClient) Stop() error {
	return nil
}

func (c *NullClient) reject() error {
	return btpxutil.NewClientRejectError("no bluetooth client")
}

func (c *NullClient) Discover(dev bledefs.BleDev) error {
	return c.reject()
}

func (c *NullClient) AcceptCall(dev bledefs.BleDev, inst uint8,
	callIndex uint8) error {

	return c.reject()
}

func (c *NullClient) TerminateCall(dev bledefs.BleDev, inst uint8,
	callIndex uint8) error {

	return c.reject()
}

func (c *NullClient) OriginateCall(dev bledefs.BleDev, inst uint8,
	uri string) error {

	return c.reject()
}

func (c *NullClient) ReadCallStates(dev bledefs.BleDev, inst uint8) error {
	return c.reject()
}
