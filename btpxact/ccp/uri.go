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
	"bytes"
	"strings"
	"unicode/utf8"

	"mynewt.apache.org/btptester/btpxact/btpxutil"
)

var DefaultUriSchemes = []string{"tel", "sip", "skype"}

func decodeUriField(b []byte) (string, error) {
	if len(b) == 0 || b[len(b)-1] != 0 {
		return "", btpxutil.NewInvalidPayloadError(
			"originate call: uri not zero-terminated")
	}

	b = b[:len(b)-1]
	if bytes.IndexByte(b, 0) >= 0 {
		return "", btpxutil.NewInvalidPayloadError(
			"originate call: uri contains a NUL")
	}
	if !utf8.Valid(b) {
		return "", btpxutil.NewInvalidPayloadError(
			"originate call: uri is not valid UTF-8")
	}

	return string(b), nil
}

// Extracts the scheme of a "<scheme>:<rest>" URI.
func UriScheme(uri string) (string, error) {
	colon := strings.IndexByte(uri, ':')
	if colon <= 0 {
		return "", btpxutil.FmtInvalidPayloadError(
			"uri has no scheme: %q", uri)
	}

	return uri[:colon], nil
}

// Verifies that the URI's scheme is in the allow-list.  Schemes compare
// case-insensitively.
func ValidateUri(uri string, schemes []string) error {
	scheme, err := UriScheme(uri)
	if err != nil {
		return err
	}

	for _, s := range schemes {
		if strings.EqualFold(s, scheme) {
			return nil
		}
	}

	return btpxutil.FmtInvalidPayloadError(
		"uri scheme not allowed: %q", scheme)
}
