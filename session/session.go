// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package session implements the Session state machine (C3, spec
// §4.3): one MPC protocol instance's round counter, accumulated
// messages, RNG, malicious set, and retry bookkeeping. Ground:
// keygen/local_party.go + keygen/party_state.go's round-counter/
// advance-on-proceed shape and tss/party.go's mutex-guarded
// lock/unlock/advance discipline, generalized from "one concrete
// ECDSA LocalParty" to "any black-box protocol.Kind driven through
// adapter.Dispatcher".
package session

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/dwallet-labs/mpc-core/adapter"
	"github.com/dwallet-labs/mpc-core/internal/digest"
	"github.com/dwallet-labs/mpc-core/internal/log"
	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/protocol"
	"github.com/dwallet-labs/mpc-core/scheduler"
	"github.com/dwallet-labs/mpc-core/wire"
)

var logger = log.Named("session")

// Observer is the narrow notifier interface a Session reports to,
// replacing a direct back-reference to the Session Manager (spec §9:
// "Cyclic collaboration between Session and Session Manager: break by
// passing lightweight handles ... never direct references").
type Observer interface {
	OnOutboundMessage(id wire.SessionID, round uint64, msg wire.RoundMessage)
	OnMaliciousParties(id wire.SessionID, round uint64, accused party.Set)
	OnThresholdNotReached(id wire.SessionID, round uint64, consensusRound uint64)
	OnFinalized(id wire.SessionID, kind protocol.Kind, publicOut []byte)
	OnFailed(id wire.SessionID, failure FailureKind, err error)
}

// Config is the per-session tuning a Session needs beyond its protocol
// inputs: the delay policy D (spec §4.2) for this protocol kind.
type Config struct {
	Delay uint64
}

// Session is one MPC protocol instance (spec §3's "Session state").
type Session struct {
	mu sync.Mutex

	id       wire.SessionID
	kind     protocol.Kind
	self     party.ID
	access   *party.AccessStructure
	config   Config
	observer Observer
	dispatch *adapter.Dispatcher

	publicInput  []byte
	privateInput []byte

	currentRound uint64
	status       Status
	failure      FailureKind
	failureErr   error

	// messagesByConsensusRound[c][r][sender] = payload (spec §3). Sparse;
	// densified on demand via Bounds/At (spec §9).
	messagesByConsensusRound map[uint64]map[uint64]map[party.ID]wire.Payload
	hasEntries               bool
	minC, maxC               uint64

	// thresholdNotReachedRounds[r] = set of c (spec §3 invariant 6).
	thresholdNotReachedRounds map[uint64]map[uint64]struct{}

	maliciousParties party.Set

	auditLog []wire.LogEntry

	publicOut  []byte
	privateOut []byte
}

// New constructs a Pending session. The caller (Event Router, via the
// Session Manager) admits it to Active by calling Activate once its
// public/private input is attached.
func New(id wire.SessionID, kind protocol.Kind, self party.ID, access *party.AccessStructure, publicInput, privateInput []byte, cfg Config, dispatch *adapter.Dispatcher, observer Observer) *Session {
	return &Session{
		id:                        id,
		kind:                      kind,
		self:                      self,
		access:                    access,
		config:                    cfg,
		observer:                  observer,
		dispatch:                  dispatch,
		publicInput:               publicInput,
		privateInput:              privateInput,
		currentRound:              1,
		status:                    Pending,
		messagesByConsensusRound:  make(map[uint64]map[uint64]map[party.ID]wire.Payload),
		thresholdNotReachedRounds: make(map[uint64]map[uint64]struct{}),
		maliciousParties:          party.NewSet(),
	}
}

func (s *Session) ID() wire.SessionID { return s.id }
func (s *Session) Kind() protocol.Kind { return s.kind }

// Activate moves a Pending session to Active (spec §4.3 state diagram).
func (s *Session) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == Pending {
		s.status = Active
	}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) CurrentRound() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRound
}

// MaliciousParties returns a snapshot of the session's locally known
// malicious set (spec §3 invariant 5).
func (s *Session) MaliciousParties() party.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(party.Set, len(s.maliciousParties))
	for id := range s.maliciousParties {
		out[id] = struct{}{}
	}
	return out
}

// AuditLog returns a snapshot of the append-only (c, r, sender,
// payload_hash) log (spec §6 "Persisted state layout").
func (s *Session) AuditLog() []wire.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.LogEntry, len(s.auditLog))
	copy(out, s.auditLog)
	return out
}

// ThresholdNotReachedSnapshot returns a copy of the session's
// threshold_not_reached_rounds bookkeeping: MPC round -> set of
// consensus rounds at which advancing it returned ThresholdNotReached
// (the persisted-state surface in SPEC_FULL.md §6).
func (s *Session) ThresholdNotReachedSnapshot() map[uint64]map[uint64]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint64]map[uint64]struct{}, len(s.thresholdNotReachedRounds))
	for r, set := range s.thresholdNotReachedRounds {
		cp := make(map[uint64]struct{}, len(set))
		for c := range set {
			cp[c] = struct{}{}
		}
		out[r] = cp
	}
	return out
}

// AddGloballyMalicious folds the cross-validator-agreed malicious set
// (spec §4.6) into this session's local set. Non-retroactive per
// SPEC_FULL.md's open-question resolution: only future Deliver calls
// consult the updated set.
func (s *Session) AddGloballyMalicious(ids party.Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range ids {
		s.maliciousParties.Add(id)
	}
}

// Deliver implements spec §4.3's deliver operation: reject messages
// from already-malicious parties, otherwise insert first-writer-wins,
// densifying consensus-round bookkeeping as it goes (spec §3
// invariants 2, 3, 5).
func (s *Session) Deliver(c, r uint64, sender party.ID, payload wire.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == Finalized || s.status == Failed {
		return // spec §4.3 edge case: messages for finished sessions are discarded
	}
	if s.maliciousParties.Contains(sender) {
		return // spec §3 invariant 5: future messages from known-malicious parties discarded
	}

	byRound, ok := s.messagesByConsensusRound[c]
	if !ok {
		byRound = make(map[uint64]map[party.ID]wire.Payload)
		s.messagesByConsensusRound[c] = byRound
	}
	bySender, ok := byRound[r]
	if !ok {
		bySender = make(map[party.ID]wire.Payload)
		byRound[r] = bySender
	}
	if _, dup := bySender[sender]; dup {
		return // spec §3 invariant 2: first payload observed wins, duplicates dropped
	}
	bySender[sender] = payload

	if !s.hasEntries || c < s.minC {
		s.minC = c
	}
	if !s.hasEntries || c > s.maxC {
		s.maxC = c
	}
	s.hasEntries = true

	s.auditLog = append(s.auditLog, wire.LogEntry{
		ConsensusRound: c,
		MPCRound:       r,
		Sender:         sender,
		PayloadHash:    digest.SHA512_256(payload),
	})
}

// Bounds and At implement scheduler.History directly over the sparse
// per-consensus-round map, so TryAdvance can densify on demand (spec
// §9) without Session pre-materializing empty entries.
func (s *Session) Bounds() (min, max uint64, ok bool) {
	return s.minC, s.maxC, s.hasEntries
}

func (s *Session) At(c uint64) scheduler.RoundMessages {
	return scheduler.RoundMessages(s.messagesByConsensusRound[c])
}

var _ scheduler.History = (*Session)(nil)

// TryAdvance implements spec §4.3's try_advance operation: ask the
// Round Scheduler whether there is enough input, and if so call the
// Party Adapter and apply exactly one of its outcomes.
func (s *Session) TryAdvance() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Active {
		return
	}

	r := s.currentRound
	var trn map[uint64]struct{}
	if set, ok := s.thresholdNotReachedRounds[r]; ok {
		trn = set
	}

	ready, ok := scheduler.TryAdvance(r, s.config.Delay, trn, s, s.access)
	if !ok {
		return
	}

	inputRound := uint64(0)
	if r > 1 {
		inputRound = r - 1
	}

	rng, err := deterministicRNG(s.id, s.self, r)
	if err != nil {
		s.fail(errors.Wrap(err, "session: deriving deterministic RNG"))
		return
	}

	ctx := adapter.Context{
		Session:      s.id,
		Self:         s.self,
		Access:       s.access,
		RoundMsgs:    adapter.RoundMessages(ready.Messages),
		PublicInput:  s.publicInput,
		PrivateInput: s.privateInput,
		RNG:          rng,
		CurrentRound: r,
	}

	result, err := s.dispatch.Advance(s.kind, ctx, inputRound)
	if err != nil {
		if adapter.IsThresholdNotReached(err) {
			s.recordThresholdNotReached(r, ready, result.Malicious)
			return
		}
		s.fail(err)
		return
	}

	s.maliciousParties = s.maliciousParties.Union(result.Malicious)
	if len(result.Malicious) > 0 && s.observer != nil {
		s.observer.OnMaliciousParties(s.id, r, result.Malicious)
	}

	switch result.Outcome {
	case adapter.OutcomeAdvance:
		out := wire.RoundMessage{Session: s.id, MPCRound: r, Sender: s.self, Payload: result.OutMsg}
		if s.observer != nil {
			s.observer.OnOutboundMessage(s.id, r, out)
		}
		s.currentRound = r + 1
	case adapter.OutcomeFinalize:
		s.publicOut = result.PublicOut
		s.privateOut = result.PrivateOut
		s.status = Finalized
		if s.observer != nil {
			s.observer.OnFinalized(s.id, s.kind, result.PublicOut)
		}
	default:
		s.fail(errors.Errorf("session: adapter returned unknown outcome %d", result.Outcome))
	}
}

func (s *Session) recordThresholdNotReached(r uint64, ready *scheduler.Ready, malicious party.Set) {
	if !ready.HasConsensusRound {
		return
	}
	set, ok := s.thresholdNotReachedRounds[r]
	if !ok {
		set = make(map[uint64]struct{})
		s.thresholdNotReachedRounds[r] = set
	}
	set[ready.ConsensusRound] = struct{}{} // spec §3 invariant 6: idempotent insertion
	s.maliciousParties = s.maliciousParties.Union(malicious)
	if s.observer != nil {
		s.observer.OnThresholdNotReached(s.id, r, ready.ConsensusRound)
	}
	logger.Debugf("session %s round %d: threshold not reached at consensus round %d", s.id, r, ready.ConsensusRound)
}

func (s *Session) fail(err error) {
	s.status = Failed
	s.failure = FailureFatal
	s.failureErr = err
	logger.Errorf("session %s: fatal: %v", s.id, err)
	if s.observer != nil {
		s.observer.OnFailed(s.id, FailureFatal, err)
	}
}

// Abort moves a non-terminal session to Failed(kind) (spec §4.4's
// on_epoch_change and §5's cancellation policy). It returns
// ErrAlreadyTerminal if the session raced to Finalized or Failed
// between the caller's own status check and this call (manager.go's
// OnEpochChange checks status before calling Abort, but TryAdvance
// runs concurrently on an errgroup worker and can finalize a session
// in between).
func (s *Session) Abort(kind FailureKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == Finalized || s.status == Failed {
		return ErrAlreadyTerminal
	}
	s.status = Failed
	s.failure = kind
	s.failureErr = errors.New("session: " + kind.String())
	if s.observer != nil {
		s.observer.OnFailed(s.id, kind, s.failureErr)
	}
	return nil
}

// Output returns the finalized public output, if any.
func (s *Session) Output() (publicOut []byte, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != Finalized {
		return nil, false
	}
	return s.publicOut, true
}

// FailureInfo returns why a Failed session terminated.
func (s *Session) FailureInfo() (FailureKind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure, s.failureErr
}
