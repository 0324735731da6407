// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package reporter implements the Malicious-Actor Reporter (C6, spec
// §4.6): publishes this validator's own accusations and threshold-not-
// reached notices, and aggregates inbound ones to decide when an
// accusation has been confirmed by an authorised subset of the
// committee. Ground: v2/tss/error.go's culprits-list shape, generalized
// from "one local accusation" to "cross-validator agreed accusation".
package reporter

import (
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/dwallet-labs/mpc-core/internal/log"
	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/wire"
)

var logger = log.Named("reporter")

// roundKey identifies one (session, mpc_round) accusation ledger.
type roundKey struct {
	session wire.SessionID
	round   uint64
}

// OnAgreed is invoked once a subset of reporters authorised by the
// access structure has accused the same party in the same
// (session, round). The composition root (cmd/mpcd) registers this to
// fold the agreed set into the relevant session via session.Session's
// own AddGloballyMalicious, breaking the direct reporter->session
// dependency (spec §9).
type OnAgreed func(session wire.SessionID, round uint64, accused party.Set)

// Reporter aggregates MaliciousReport and ThresholdNotReachedReport
// messages (spec §4.6).
type Reporter struct {
	mu sync.Mutex

	client wire.ConsensusClient
	access *party.AccessStructure
	onAgreed OnAgreed

	// accusations[roundKey][accused] = set of reporters who accused them.
	accusations map[roundKey]map[party.ID]party.Set
	// agreed[roundKey] = accused parties already reported to onAgreed,
	// so a later re-publication of the same agreement is a no-op.
	agreed map[roundKey]party.Set

	// thresholdNotReached[roundKey][c] = set of validators that reported
	// that round as threshold-not-reached at consensus round c.
	thresholdNotReached map[roundKey]map[uint64]party.Set
	// stallAgreed[roundKey][c] marks a (session, round, c) already
	// logged as corroborated by a validity-weight subset of reporters,
	// so the warning below fires once.
	stallAgreed map[roundKey]map[uint64]struct{}
}

// New constructs a Reporter publishing through client and judging
// agreement against access.
func New(client wire.ConsensusClient, access *party.AccessStructure, onAgreed OnAgreed) *Reporter {
	return &Reporter{
		client:              client,
		access:              access,
		onAgreed:            onAgreed,
		accusations:         make(map[roundKey]map[party.ID]party.Set),
		agreed:              make(map[roundKey]party.Set),
		thresholdNotReached: make(map[roundKey]map[uint64]party.Set),
		stallAgreed:         make(map[roundKey]map[uint64]struct{}),
	}
}

// ReportMalicious publishes this validator's own accusation and folds
// it into the local tally (a validator's own report counts towards
// agreement just like any other validator's).
func (r *Reporter) ReportMalicious(session wire.SessionID, round uint64, self party.ID, accused party.Set) error {
	if err := r.client.Publish(wire.ConsensusMessage{
		Kind: wire.KindMaliciousReport,
		MaliciousReport: &wire.MaliciousReport{
			Session:  session,
			Round:    round,
			Reporter: self,
			Accused:  accused.Sorted(),
		},
	}); err != nil {
		return err
	}
	r.foldAccusation(session, round, self, accused)
	return nil
}

// ReportThresholdNotReached publishes this validator's own
// ThresholdNotReached notice (spec §4.6).
func (r *Reporter) ReportThresholdNotReached(session wire.SessionID, round uint64, self party.ID, consensusRound uint64) error {
	if err := r.client.Publish(wire.ConsensusMessage{
		Kind: wire.KindThresholdNotReachedReport,
		ThresholdNotReachedReport: &wire.ThresholdNotReachedReport{
			Session:        session,
			Round:          round,
			Reporter:       self,
			ConsensusRound: consensusRound,
		},
	}); err != nil {
		return err
	}
	r.foldThresholdNotReached(session, round, self, consensusRound)
	return nil
}

// HandleConsensusMessage folds an inbound MaliciousReport or
// ThresholdNotReachedReport into the aggregate. Any other kind is
// ignored (reporter is not the consumer of round messages or outputs).
func (r *Reporter) HandleConsensusMessage(msg wire.ConsensusMessage) {
	switch msg.Kind {
	case wire.KindMaliciousReport:
		if msg.MaliciousReport == nil {
			return
		}
		rep := msg.MaliciousReport
		r.foldAccusation(rep.Session, rep.Round, rep.Reporter, party.NewSet(rep.Accused...))
	case wire.KindThresholdNotReachedReport:
		if msg.ThresholdNotReachedReport == nil {
			return
		}
		rep := msg.ThresholdNotReachedReport
		r.foldThresholdNotReached(rep.Session, rep.Round, rep.Reporter, rep.ConsensusRound)
	}
}

func (r *Reporter) foldAccusation(session wire.SessionID, round uint64, reporter party.ID, accused party.Set) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := roundKey{session: session, round: round}
	byAccused, ok := r.accusations[key]
	if !ok {
		byAccused = make(map[party.ID]party.Set)
		r.accusations[key] = byAccused
	}

	newlyAgreed := party.NewSet()
	for accusedID := range accused {
		reporters, ok := byAccused[accusedID]
		if !ok {
			reporters = party.NewSet()
			byAccused[accusedID] = reporters
		}
		reporters.Add(reporter)

		if r.access.IsAuthorized(reporters) {
			if r.agreed[key] == nil {
				r.agreed[key] = party.NewSet()
			}
			if !r.agreed[key].Contains(accusedID) {
				r.agreed[key].Add(accusedID)
				newlyAgreed.Add(accusedID)
			}
		}
	}

	if len(newlyAgreed) > 0 {
		logger.Warnf("session %s round %d: agreed malicious parties %v", session, round, newlyAgreed.Sorted())
		if r.onAgreed != nil {
			r.onAgreed(session, round, newlyAgreed)
		}
	}
}

func (r *Reporter) foldThresholdNotReached(session wire.SessionID, round uint64, reporter party.ID, consensusRound uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := roundKey{session: session, round: round}
	byRound, ok := r.thresholdNotReached[key]
	if !ok {
		byRound = make(map[uint64]party.Set)
		r.thresholdNotReached[key] = byRound
	}
	reporters, ok := byRound[consensusRound]
	if !ok {
		reporters = party.NewSet()
		byRound[consensusRound] = reporters
	}
	reporters.Add(reporter)

	// A stall is corroborated once a validity-weight subset of the
	// committee (a weaker bar than the quorum IsAuthorized uses for
	// accusation agreement) has observed it independently, worth a
	// louder log than any single validator's own report.
	if !r.access.IsValid(reporters) {
		return
	}
	byC, ok := r.stallAgreed[key]
	if !ok {
		byC = make(map[uint64]struct{})
		r.stallAgreed[key] = byC
	}
	if _, already := byC[consensusRound]; already {
		return
	}
	byC[consensusRound] = struct{}{}
	logger.Warnf("session %s round %d: threshold-not-reached at consensus round %d corroborated by a validity-weight subset of reporters", session, round, consensusRound)
}

// ThresholdNotReachedAgreed reports whether a validity-weight subset of
// the committee has independently reported round as threshold-not-
// reached at consensusRound, for diagnostics/testing.
func (r *Reporter) ThresholdNotReachedAgreed(session wire.SessionID, round, consensusRound uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := roundKey{session: session, round: round}
	byRound, ok := r.thresholdNotReached[key]
	if !ok {
		return false
	}
	return r.access.IsValid(byRound[consensusRound])
}

// ThresholdNotReachedReporters returns the set of validators that
// reported round as threshold-not-reached at consensusRound, for
// diagnostics/testing.
func (r *Reporter) ThresholdNotReachedReporters(session wire.SessionID, round, consensusRound uint64) party.Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := roundKey{session: session, round: round}
	byRound, ok := r.thresholdNotReached[key]
	if !ok {
		return party.NewSet()
	}
	out := make(party.Set, len(byRound[consensusRound]))
	for id := range byRound[consensusRound] {
		out[id] = struct{}{}
	}
	return out
}

// Summary aggregates every agreed accusation across all sessions into
// one error, one party.Error per (session, round) (spec §7's
// aggregate-failures taxonomy). Manager.OnEpochChange does not call it.
func (r *Reporter) Summary() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result *multierror.Error
	for key, accused := range r.agreed {
		if len(accused) == 0 {
			continue
		}
		result = multierror.Append(result, newAgreedAccusationError(key.session, key.round, accused.Sorted()))
	}
	return result.ErrorOrNil()
}
