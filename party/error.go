// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package party

import "fmt"

// Error is the core's shared error type: every component that can
// blame a round on a specific party (or set of parties) wraps its
// cause in one of these. Ground: v2/tss/error.go's task/round/victim/
// culprits shape, with the "task" string dropped: an Error carries only
// the round number, the victim and the culprits.
type Error struct {
	cause    error
	round    uint64
	victim   ID
	culprits []ID
}

func NewError(cause error, round uint64, victim ID, culprits ...ID) *Error {
	return &Error{cause: cause, round: round, victim: victim, culprits: culprits}
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Round() uint64 { return e.round }

func (e *Error) Victim() ID { return e.victim }

func (e *Error) Culprits() []ID { return e.culprits }

func (e *Error) Error() string {
	if e == nil || e.cause == nil {
		return "party: nil error"
	}
	if len(e.culprits) > 0 {
		return fmt.Sprintf("party %s, round %d, culprits %v: %v", e.victim, e.round, e.culprits, e.cause)
	}
	return fmt.Sprintf("party %s, round %d: %v", e.victim, e.round, e.cause)
}
