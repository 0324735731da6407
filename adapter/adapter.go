// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package adapter wraps a black-box cryptographic Party behind a
// uniform byte-oriented interface (spec §4.1 / C1). It is the systems-
// language stand-in for the source's generic Party trait family (spec
// §9): one Protocol implementation per protocol.Kind, dispatched
// through a single byte-oriented Advance call. Ground:
// keygen/rounds.go's base-round dispatch shape and tss/party.go's
// BaseParty shared validate/update logic, generalized from "one
// concrete ECDSA protocol" to "any black-box protocol selected by
// protocol.Kind".
package adapter

import (
	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/protocol"
	"github.com/dwallet-labs/mpc-core/wire"
)

// Protocol is the black-box MPC party contract a concrete protocol
// implementation (DKG, presign, sign, ...) must satisfy. It receives
// only already-deserialisation-filtered messages for rounds strictly
// before ctx.CurrentRound; Dispatcher owns the deserialisation and
// authorised-subset preprocessing described in spec §4.1.
type Protocol interface {
	// DecodePayload attempts to deserialise a single round's payload
	// enough to validate it structurally. A non-nil error marks the
	// sender malicious for this call (spec §4.1: "payloads that fail
	// deserialisation MUST cause the sender to be added to a malicious
	// list ... and are then excluded").
	DecodePayload(round uint64, payload wire.Payload) error

	// Advance runs the protocol-specific state transition given
	// messages that have already survived deserialisation and the
	// authorised-subset check. Returning ErrThresholdNotReached (or a
	// wrapping error) signals spec §4.1's ThresholdNotReached; any
	// other non-nil error is fatal-to-session (spec §7).
	Advance(ctx Context) (Result, error)
}

// Dispatcher owns one Protocol per protocol.Kind (spec §9's
// replacement for a generic Party trait hierarchy) and implements the
// shared preprocessing every protocol needs.
type Dispatcher struct {
	protocols map[protocol.Kind]Protocol
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{protocols: make(map[protocol.Kind]Protocol)}
}

// Register installs the Protocol implementation for kind. Intended to
// be called once per kind at process start-up.
func (d *Dispatcher) Register(kind protocol.Kind, p Protocol) {
	d.protocols[kind] = p
}

// Advance is the C1 public contract from spec §4.1, with the
// deserialisation-failure and authorised-subset-after-exclusion
// preprocessing (also spec §4.1) performed generically here rather
// than duplicated in every Protocol implementation.
//
// inputRound is the MPC round whose senders must form an authorised
// subset (current_round - 1). Round 1 needs no input: Session passes
// inputRound 0 for it and the authorised-subset check is skipped.
func (d *Dispatcher) Advance(kind protocol.Kind, ctx Context, inputRound uint64) (Result, error) {
	p, ok := d.protocols[kind]
	if !ok {
		return Result{}, NewFatalError(errUnregisteredProtocol(kind))
	}

	preprocessMalicious := party.NewSet()
	for round, bySender := range ctx.RoundMsgs {
		for sender, payload := range bySender {
			if err := p.DecodePayload(round, payload); err != nil {
				preprocessMalicious.Add(sender)
				delete(bySender, sender)
			}
		}
		ctx.RoundMsgs[round] = bySender
		_ = round
	}

	if inputRound > 0 {
		senders := party.NewSet()
		for sender := range ctx.RoundMsgs[inputRound] {
			senders[sender] = struct{}{}
		}
		if !ctx.Access.IsAuthorized(senders) {
			return Result{Malicious: preprocessMalicious}, ErrThresholdNotReached
		}
	}

	result, err := p.Advance(ctx)
	if err != nil {
		if IsThresholdNotReached(err) {
			result.Malicious = preprocessMalicious.Union(result.Malicious)
			return result, err
		}
		if _, ok := AsFatal(err); ok {
			return Result{Malicious: preprocessMalicious}, err
		}
		return Result{Malicious: preprocessMalicious}, NewFatalError(err)
	}
	result.Malicious = preprocessMalicious.Union(result.Malicious)
	return result, nil
}

type errUnregisteredProtocol protocol.Kind

func (k errUnregisteredProtocol) Error() string {
	return "adapter: no Protocol registered for kind " + protocol.Kind(k).String()
}
