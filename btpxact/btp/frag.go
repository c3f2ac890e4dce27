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

package btp

import (
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/btptester/btpxact/btpxutil"
)

// Outcome of reassembling one frame from the byte stream.  Err is set when
// the header arrived but the frame cannot be accepted; Frame then carries the
// header only, so the caller can still address an error response.
type RxResult struct {
	Frame *Frame
	Err   error
}

// Splits a byte stream into BTP frames.  Not thread safe.
type Reassembler struct {
	cur        []byte
	maxPayload int
}

func NewReassembler(maxPayload int) *Reassembler {
	if maxPayload <= 0 {
		maxPayload = BTP_MTU
	}

	return &Reassembler{
		maxPayload: maxPayload,
	}
}

// Accepts an arbitrary chunk of the stream and returns every frame it
// completes.
func (r *Reassembler) RxBytes(b []byte) []RxResult {
	r.cur = append(r.cur, b...)

	var results []RxResult
	for {
		hdr, err := DecodeHdr(r.cur)
		if err != nil {
			// Incomplete header.
			break
		}

		if int(hdr.Len) > r.maxPayload {
			// The stream cannot be resynchronised past an oversized frame;
			// discard everything buffered.
			log.Debugf("oversized btp frame; %s max=%d", hdr.String(),
				r.maxPayload)
			results = append(results, RxResult{
				Frame: &Frame{Hdr: *hdr},
				Err: btpxutil.FmtMalformedFrameError(
					"BTP payload too large: %d > %d", hdr.Len, r.maxPayload),
			})
			r.cur = nil
			break
		}

		total := BTP_HDR_SIZE + int(hdr.Len)
		if len(r.cur) < total {
			// More fragments to come.
			break
		}

		f, err := DecodeFrame(r.cur[:total])
		results = append(results, RxResult{Frame: f, Err: err})
		r.cur = r.cur[total:]
	}

	if len(r.cur) == 0 {
		r.cur = nil
	}

	return results
}

// Number of buffered bytes that do not yet form a frame.
func (r *Reassembler) Pending() int {
	return len(r.cur)
}

func (r *Reassembler) Reset() {
	r.cur = nil
}
