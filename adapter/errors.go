// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package adapter

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// ErrThresholdNotReached is returned by a Protocol (or synthesized by
// Dispatcher) when the authorised-subset check fails after excluding
// malicious senders (spec §4.1/§7: "Transient (retry on new input)").
var ErrThresholdNotReached = errors.New("adapter: threshold not reached")

// FatalError wraps any other protocol error (spec §7: "Fatal-to-
// session ... adapter returns any non-threshold error"). Ground:
// v2/tss/error.go's cause-wrapping idiom, reimplemented with
// github.com/pkg/errors so callers get a stack at the point the
// protocol failed.
type FatalError struct {
	cause error
}

func NewFatalError(cause error) *FatalError {
	return &FatalError{cause: pkgerrors.WithStack(cause)}
}

func (e *FatalError) Unwrap() error { return e.cause }

func (e *FatalError) Error() string {
	return "adapter: fatal: " + e.cause.Error()
}

// IsThresholdNotReached reports whether err is (or wraps)
// ErrThresholdNotReached.
func IsThresholdNotReached(err error) bool {
	return errors.Is(err, ErrThresholdNotReached)
}

// AsFatal reports whether err is (or wraps) a *FatalError and returns it.
func AsFatal(err error) (*FatalError, bool) {
	var fe *FatalError
	ok := errors.As(err, &fe)
	return fe, ok
}
