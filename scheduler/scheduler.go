// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package scheduler implements the Round Scheduler (C2, spec §4.2): a
// pure function of a session's current round, its delay policy, its
// threshold-not-reached bookkeeping, and its consensus-ordered message
// history, deciding whether and with what input a session should
// attempt to advance. No direct teacher analogue exists (the teacher
// runs one party per process and advances eagerly per tss/party.go's
// BaseUpdate/CanProceed); this generalizes that immediate-completion
// check into spec §4.2's cross-consensus-round delay-and-retry
// algorithm.
package scheduler

import (
	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/wire"
)

// RoundMessages is round -> sender -> payload, the same shape Session
// stores and the adapter consumes.
type RoundMessages map[uint64]map[party.ID]wire.Payload

// History is the read-only view over a session's consensus-ordered
// message log that TryAdvance needs. Session implements this directly
// over its sparse map, realizing spec §9's "Densification of
// consensus-round history... maintain (min_c, max_c) plus a sparse map
// and compute densified iteration on demand".
type History interface {
	// Bounds returns the minimum and maximum consensus round observed
	// so far, and whether any have been observed at all.
	Bounds() (min, max uint64, ok bool)
	// At returns the round->sender->payload messages delivered exactly
	// at consensus round c (nil/empty if c was never observed — this is
	// the densification: empty entries are synthesized, not stored).
	At(c uint64) RoundMessages
}

// Ready is the scheduler's positive result: either the session's first
// round (no consensus round, no input required) or the consensus round
// at which advancement is being attempted plus the merged message
// bundle to feed the Party Adapter (spec §4.2).
type Ready struct {
	ConsensusRound   uint64
	HasConsensusRound bool
	Messages         RoundMessages
}

// TryAdvance implements spec §4.2's five-step algorithm exactly.
//
//   - r is the session's current_round.
//   - delay is the session's configured delay policy D.
//   - thresholdNotReachedRounds is threshold_not_reached_rounds[r]: the
//     set of consensus rounds at which this MPC round was already
//     attempted and failed.
//   - h is the session's message history.
//   - access decides authorised subsets.
func TryAdvance(r uint64, delay uint64, thresholdNotReachedRounds map[uint64]struct{}, h History, access *party.AccessStructure) (*Ready, bool) {
	// Step 1: round 1 needs no prior messages.
	if r == 1 {
		return &Ready{Messages: RoundMessages{}}, true
	}

	minC, maxC, ok := h.Bounds()
	if !ok {
		return nil, false
	}

	messagesForAdvance := make(RoundMessages)
	var delayedRounds uint64
	gotNewSinceLastThresholdNotReached := false

	// Steps 2-6: densified ascending iteration over consensus rounds.
	for c := minC; c <= maxC; c++ {
		entries := h.At(c)
		for round, bySender := range entries {
			if round >= r {
				continue // only rounds strictly before r feed this advance
			}
			dst, exists := messagesForAdvance[round]
			if !exists {
				dst = make(map[party.ID]wire.Payload)
				messagesForAdvance[round] = dst
			}
			for sender, payload := range bySender {
				if _, already := dst[sender]; already {
					continue // first-writer-wins, invariant 2
				}
				dst[sender] = payload
				gotNewSinceLastThresholdNotReached = true
			}
		}

		senders := party.NewSet()
		for sender := range messagesForAdvance[r-1] {
			senders[sender] = struct{}{}
		}
		if !access.IsAuthorized(senders) {
			continue
		}

		if delayedRounds != delay {
			delayedRounds++
			continue
		}

		if _, attempted := thresholdNotReachedRounds[c]; attempted {
			gotNewSinceLastThresholdNotReached = false
			continue
		}

		if gotNewSinceLastThresholdNotReached {
			return &Ready{ConsensusRound: c, HasConsensusRound: true, Messages: messagesForAdvance}, true
		}
	}

	return nil, false
}
