// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package wire defines the on-the-wire shapes exchanged with the
// consensus collaborator (spec §6.2) and the append-only audit-log
// entry shape (spec §6 "Persisted state layout"). Ground: tss/
// message.go's Message/MessageRouting envelope (kept the opaque
// payload-bytes idea; there is no To field, every RoundMessage is a
// broadcast), re-encoded
// with CBOR instead of protobuf/Any — see SPEC_FULL.md "Domain stack"
// for why.
package wire

import (
	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/protocol"
)

// SessionID is the 32-byte opaque digest the event source assigns to a
// session (spec §3).
type SessionID [32]byte

func (s SessionID) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 8)
	for i := 0; i < 4; i++ {
		buf[i*2] = hextable[s[i]>>4]
		buf[i*2+1] = hextable[s[i]&0x0f]
	}
	return string(buf) + "…"
}

// Payload is opaque to everything except the Party Adapter (spec §3:
// "payload_bytes is opaque to the scheduler").
type Payload []byte

// RoundMessage is the wire tuple (session, mpc_round, sender, payload)
// from spec §3, as published to / received from consensus.
type RoundMessage struct {
	Session   SessionID `cbor:"1,keyasint"`
	MPCRound  uint64    `cbor:"2,keyasint"`
	Sender    party.ID  `cbor:"3,keyasint"`
	Payload   Payload   `cbor:"4,keyasint"`
}

// MaliciousReport is published when a validator accuses a set of
// parties of misbehaviour in a given session/round (spec §4.6).
type MaliciousReport struct {
	Session  SessionID  `cbor:"1,keyasint"`
	Round    uint64     `cbor:"2,keyasint"`
	Reporter party.ID   `cbor:"3,keyasint"`
	Accused  []party.ID `cbor:"4,keyasint"`
}

// ThresholdNotReachedReport is published when a validator's Party
// Adapter returns ThresholdNotReached, so other validators can
// correlate and choose to wait rather than retry (spec §4.6).
type ThresholdNotReachedReport struct {
	Session       SessionID `cbor:"1,keyasint"`
	Round         uint64    `cbor:"2,keyasint"`
	Reporter      party.ID  `cbor:"3,keyasint"`
	ConsensusRound uint64   `cbor:"4,keyasint"`
}

// Output is the finalized public output of a session, as published to
// consensus for checkpointing (spec §4.3/§6).
type Output struct {
	Session  SessionID      `cbor:"1,keyasint"`
	PublicOut []byte        `cbor:"2,keyasint"`
	Kind     protocol.Kind  `cbor:"3,keyasint"`
}

// CapabilityNotification and CheckpointSignature are passed through
// unchanged by the core (spec §6.2: "passed through, not interpreted by
// the core") — modeled as opaque payloads so the codec round-trips them
// without this core needing to understand their shape.
type CapabilityNotification struct {
	Payload []byte `cbor:"1,keyasint"`
}

type CheckpointSignature struct {
	Payload []byte `cbor:"1,keyasint"`
}

// ConsensusMessageKind discriminates the ConsensusMessage union (spec
// §6.2).
type ConsensusMessageKind uint8

const (
	KindRoundMessage ConsensusMessageKind = iota + 1
	KindOutput
	KindMaliciousReport
	KindThresholdNotReachedReport
	KindCapabilityNotification
	KindCheckpointSignature
)

// ConsensusMessage is the tagged union of everything the consensus
// collaborator carries (spec §6.2). Exactly one of the typed fields is
// set, selected by Kind; modeled as a struct-of-pointers rather than an
// interface so it round-trips through CBOR without a registry.
type ConsensusMessage struct {
	Kind ConsensusMessageKind `cbor:"1,keyasint"`

	RoundMessage              *RoundMessage              `cbor:"2,keyasint,omitempty"`
	Output                    *Output                    `cbor:"3,keyasint,omitempty"`
	MaliciousReport           *MaliciousReport           `cbor:"4,keyasint,omitempty"`
	ThresholdNotReachedReport *ThresholdNotReachedReport `cbor:"5,keyasint,omitempty"`
	CapabilityNotification    *CapabilityNotification    `cbor:"6,keyasint,omitempty"`
	CheckpointSignature       *CheckpointSignature       `cbor:"7,keyasint,omitempty"`
}

// Delivered pairs a ConsensusMessage with the consensus round it was
// delivered at (spec §3's "c").
type Delivered struct {
	ConsensusRound uint64
	Message        ConsensusMessage
}

// ConsensusClient is the bidirectional external collaborator from spec
// §6.2.
type ConsensusClient interface {
	Publish(msg ConsensusMessage) error
	Stream() <-chan Delivered
}

// LogEntry is one row of the per-session append-only audit log (spec
// §6: "(c, r, sender, payload_hash)").
type LogEntry struct {
	ConsensusRound uint64
	MPCRound       uint64
	Sender         party.ID
	PayloadHash    [32]byte
}
