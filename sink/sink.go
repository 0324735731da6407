// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package sink implements the Output Sink (C7, spec §4.7): the
// idempotent hand-off of a session's finalized public output to
// checkpointing. Ground: tss/party.go's end-channel hand-off pattern,
// generalized with an explicit "already forwarded" guard since here
// the same output may be offered more than once (spec §8's round-trip
// property).
package sink

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/dwallet-labs/mpc-core/internal/log"
	"github.com/dwallet-labs/mpc-core/protocol"
	"github.com/dwallet-labs/mpc-core/wire"
)

var logger = log.Named("sink")

// CheckpointClient is the outbound collaborator a finalized output is
// forwarded to (spec §6.3).
type CheckpointClient interface {
	Checkpoint(session wire.SessionID, publicOut []byte, kind protocol.Kind) error
}

// Sink forwards finalized session outputs exactly once each.
type Sink struct {
	mu        sync.Mutex
	client    CheckpointClient
	forwarded map[wire.SessionID]struct{}
}

func New(client CheckpointClient) *Sink {
	return &Sink{client: client, forwarded: make(map[wire.SessionID]struct{})}
}

// Handle forwards (session, publicOut, kind) to the checkpoint client
// unless this session has already been forwarded, in which case it is
// a documented no-op (spec §4.7, §8). The forwarded mark is only set
// once Checkpoint actually succeeds, so a transient checkpoint error
// leaves the session eligible for a later retry instead of silently
// losing the output.
func (s *Sink) Handle(session wire.SessionID, publicOut []byte, kind protocol.Kind) error {
	s.mu.Lock()
	if _, already := s.forwarded[session]; already {
		s.mu.Unlock()
		logger.Debugf("session %s: output already forwarded, skipping", session)
		return nil
	}
	s.mu.Unlock()

	if err := s.client.Checkpoint(session, publicOut, kind); err != nil {
		return errors.Wrapf(err, "sink: checkpointing session %s", session)
	}

	s.mu.Lock()
	s.forwarded[session] = struct{}{}
	s.mu.Unlock()
	return nil
}

// Forwarded reports whether session's output has already been handed
// off, for diagnostics/testing.
func (s *Sink) Forwarded(session wire.SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.forwarded[session]
	return ok
}
