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

package xport

// Receives raw bytes from the transport.  Chunks carry no framing; the
// caller reassembles them.
type RxFn func(data []byte)

// A byte-stream link to the BTP peer.
type Xport interface {
	// Opens the link and starts delivering received bytes to rxFn.
	Start(rxFn RxFn) error
	Stop() error

	// Sends one complete frame.  Safe for concurrent use; concurrent frames
	// are never interleaved.
	Tx(data []byte) error
}
