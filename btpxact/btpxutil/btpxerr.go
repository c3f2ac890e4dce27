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
	"fmt"

	"github.com/pkg/errors"
)

// Returns the innermost cause of err as a value of the requested kind.  All
// predicates below look through errors.Wrap() layers so that handlers are
// free to add context.
func cause(err error) error {
	if err == nil {
		return nil
	}
	return errors.Cause(err)
}

// Indicates a truncated, oversized, or otherwise unparseable BTP frame.
type MalformedFrameError struct {
	Text string
}

func NewMalformedFrameError(text string) *MalformedFrameError {
	return &MalformedFrameError{
		Text: text,
	}
}

func FmtMalformedFrameError(format string,
	args ...interface{}) *MalformedFrameError {

	return NewMalformedFrameError(fmt.Sprintf(format, args...))
}

func (e *MalformedFrameError) Error() string {
	return e.Text
}

func IsMalformedFrame(err error) bool {
	_, ok := cause(err).(*MalformedFrameError)
	return ok
}

// Indicates a service id or opcode with no registered handler.
type UnsupportedCmdError struct {
	Service uint8
	Opcode  uint8
}

func NewUnsupportedCmdError(service uint8, opcode uint8) *UnsupportedCmdError {
	return &UnsupportedCmdError{
		Service: service,
		Opcode:  opcode,
	}
}

func (e *UnsupportedCmdError) Error() string {
	return fmt.Sprintf("unsupported command: service=0x%02x opcode=0x%02x",
		e.Service, e.Opcode)
}

func IsUnsupportedCmd(err error) bool {
	_, ok := cause(err).(*UnsupportedCmdError)
	return ok
}

// Indicates a command for a service that the harness has not registered.
type NotReadyError struct {
	Text string
}

func NewNotReadyError(text string) *NotReadyError {
	return &NotReadyError{text}
}

func (e *NotReadyError) Error() string {
	return e.Text
}

func IsNotReady(err error) bool {
	_, ok := cause(err).(*NotReadyError)
	return ok
}

// Indicates a service index that does not resolve against the peer's most
// recent discovery result.
type UnknownInstanceError struct {
	Text  string
	Index uint8
}

func NewUnknownInstanceError(index uint8, text string) *UnknownInstanceError {
	return &UnknownInstanceError{
		Text:  text,
		Index: index,
	}
}

func FmtUnknownInstanceError(index uint8, format string,
	args ...interface{}) *UnknownInstanceError {

	return NewUnknownInstanceError(index, fmt.Sprintf(format, args...))
}

func (e *UnknownInstanceError) Error() string {
	return e.Text
}

func IsUnknownInstance(err error) bool {
	_, ok := cause(err).(*UnknownInstanceError)
	return ok
}

type DiscoveryInProgressError struct {
	Text string
}

func NewDiscoveryInProgressError(text string) *DiscoveryInProgressError {
	return &DiscoveryInProgressError{text}
}

func (e *DiscoveryInProgressError) Error() string {
	return e.Text
}

func IsDiscoveryInProgress(err error) bool {
	_, ok := cause(err).(*DiscoveryInProgressError)
	return ok
}

// Indicates a discovery completion that arrived with nothing pending.  This
// is a protocol inconsistency in the profile client.
type NoPendingDiscoveryError struct {
	Text string
}

func NewNoPendingDiscoveryError(text string) *NoPendingDiscoveryError {
	return &NoPendingDiscoveryError{text}
}

func (e *NoPendingDiscoveryError) Error() string {
	return e.Text
}

func IsNoPendingDiscovery(err error) bool {
	_, ok := cause(err).(*NoPendingDiscoveryError)
	return ok
}

// Represents a command payload that fails validation (length, URI, scheme).
type InvalidPayloadError struct {
	Text string
}

func NewInvalidPayloadError(text string) *InvalidPayloadError {
	return &InvalidPayloadError{text}
}

func FmtInvalidPayloadError(format string,
	args ...interface{}) *InvalidPayloadError {

	return NewInvalidPayloadError(fmt.Sprintf(format, args...))
}

func (e *InvalidPayloadError) Error() string {
	return e.Text
}

func IsInvalidPayload(err error) bool {
	_, ok := cause(err).(*InvalidPayloadError)
	return ok
}

// Represents the profile client refusing a request (peer disconnected,
// missing characteristic, busy).
type ClientRejectError struct {
	Text string
}

func NewClientRejectError(text string) *ClientRejectError {
	return &ClientRejectError{text}
}

func FmtClientRejectError(format string,
	args ...interface{}) *ClientRejectError {

	return NewClientRejectError(fmt.Sprintf(format, args...))
}

func (e *ClientRejectError) Error() string {
	return e.Text
}

func IsClientReject(err error) bool {
	_, ok := cause(err).(*ClientRejectError)
	return ok
}

// Represents a low-level transport error.
type XportError struct {
	Text string
}

func NewXportError(text string) *XportError {
	return &XportError{text}
}

func (e *XportError) Error() string {
	return e.Text
}

func IsXport(err error) bool {
	if err == nil {
		return false
	}

	_, ok := cause(err).(*XportError)
	return ok
}

type SesnClosedError struct {
	Text string
}

func NewSesnClosedError(text string) *SesnClosedError {
	return &SesnClosedError{
		Text: text,
	}
}

func (e *SesnClosedError) Error() string {
	return e.Text
}

func IsSesnClosed(err error) bool {
	_, ok := cause(err).(*SesnClosedError)
	return ok
}
