// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package poolsrv

import (
	"errors"
	"fmt"

	"github.com/rayyan224/rundler/entrypoint"
	"github.com/rayyan224/rundler/uop"
)

// ErrChannelClosed is returned by a Handle when the transport to or
// from the Runner is no longer available: the request sender observed
// a closed channel, or the reply sink was dropped because the Runner
// shut down mid-request. It is never retried by the core.
var ErrChannelClosed = errors.New("pool: channel closed")

// ErrUnexpectedResponse indicates the Response variant the Runner
// delivered does not match the Request kind a Handle sent. This is a
// programmer error in the core, not a remote failure. When the Runner
// itself answers a request kind it has no handler for with this error,
// it logs it at error severity but does not treat it as fatal; a Handle
// that receives a payload of the wrong type returns this error without
// logging it.
var ErrUnexpectedResponse = errors.New("pool: unexpected response variant")

// UnknownEntryPointError is returned inline, without ever touching a
// Mempool, when a request targets an EntryPoint the Runner was not
// configured with.
type UnknownEntryPointError struct {
	EntryPoint entrypoint.ID
}

func (e *UnknownEntryPointError) Error() string {
	return fmt.Sprintf("pool: unknown entrypoint %s", e.EntryPoint)
}

func NewUnknownEntryPointError(id entrypoint.ID) error {
	return &UnknownEntryPointError{EntryPoint: id}
}

// InvalidVersionError is returned inline by add_op when the submitted
// UserOperation's version tag disagrees with the target mempool's
// declared version (I2). No call is made into the Mempool.
type InvalidVersionError struct {
	Got, Want uop.Version
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("pool: invalid user operation version: got %s, mempool wants %s", e.Got, e.Want)
}

func NewInvalidVersionError(got, want uop.Version) error {
	return &InvalidVersionError{Got: got, Want: want}
}

// IsUnknownEntryPoint reports whether err (or any error it wraps) is an
// UnknownEntryPointError.
func IsUnknownEntryPoint(err error) bool {
	var target *UnknownEntryPointError
	return errors.As(err, &target)
}

// IsInvalidVersion reports whether err (or any error it wraps) is an
// InvalidVersionError.
func IsInvalidVersion(err error) bool {
	var target *InvalidVersionError
	return errors.As(err, &target)
}
