// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package adapter

import (
	"io"

	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/wire"
)

// RoundMessages is round_msgs from spec §4.1: map r -> map PartyID ->
// payload, opaque to everything but the protocol implementation that
// deserialises it.
type RoundMessages map[uint64]map[party.ID]wire.Payload

// Outcome discriminates AdvanceResult's two success variants (spec
// §4.1: AdvanceResult ∈ { Advance{...}, Finalize{...}, Err(...) }).
type Outcome uint8

const (
	OutcomeAdvance Outcome = iota + 1
	OutcomeFinalize
)

// Result is AdvanceResult from spec §4.1, with Err represented as a
// separate Go error return from Advance rather than folded into this
// struct.
type Result struct {
	Outcome Outcome

	// Malicious is the union of senders excluded during this call's
	// deserialisation preprocessing and any additional parties the
	// protocol implementation itself blamed.
	Malicious party.Set

	// OutMsg is set when Outcome == OutcomeAdvance: the opaque payload
	// to emit for the next round.
	OutMsg wire.Payload

	// PublicOut/PrivateOut are set when Outcome == OutcomeFinalize.
	// PublicOut is suitable for checkpointing; PrivateOut must never be
	// disclosed outside the validator (spec §4.1).
	PublicOut  []byte
	PrivateOut []byte
}

// Context bundles everything Advance needs for one call (spec §4.1's
// advance(session_id, self_party, access_structure, round_msgs,
// public_input, private_input, rng)).
type Context struct {
	Session      wire.SessionID
	Self         party.ID
	Access       *party.AccessStructure
	RoundMsgs    RoundMessages
	PublicInput  []byte
	PrivateInput []byte
	RNG          io.Reader
	CurrentRound uint64
}
