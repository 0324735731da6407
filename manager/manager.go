// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package manager implements the Session Manager (C4, spec §4.4): owns
// every live Session, admits new ones (throttling user sessions,
// passing system sessions through unbounded), routes inbound consensus
// messages to the right session, drives the tick loop, and sweeps
// non-finalized sessions on epoch close. Ground: tss/party.go's
// UpdateFromBytes dispatch-by-message-type shape and keygen/rounds.go's
// round-driving loop, generalized from "one local party" to "every
// concurrently live session this validator runs".
package manager

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dwallet-labs/mpc-core/adapter"
	"github.com/dwallet-labs/mpc-core/config"
	"github.com/dwallet-labs/mpc-core/internal/log"
	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/reporter"
	"github.com/dwallet-labs/mpc-core/router"
	"github.com/dwallet-labs/mpc-core/session"
	"github.com/dwallet-labs/mpc-core/sink"
	"github.com/dwallet-labs/mpc-core/wire"
)

var logger = log.Named("manager")

// Telemetry receives ambient counters the manager produces as it runs
// (SPEC_FULL.md §4.4 supplement), kept as a narrow injected interface
// so no concrete metrics backend is required by the core.
type Telemetry interface {
	ActiveSessions(n int)
	PendingUserSessions(n int)
	ThresholdNotReachedRetries()
	MaliciousPartiesDetected(n int)
}

// noopTelemetry discards every counter; New installs it when
// Deps.Telemetry is nil, so Telemetry is optional.
type noopTelemetry struct{}

func (noopTelemetry) ActiveSessions(int)           {}
func (noopTelemetry) PendingUserSessions(int)      {}
func (noopTelemetry) ThresholdNotReachedRetries()  {}
func (noopTelemetry) MaliciousPartiesDetected(int) {}

// Manager owns every live Session for this validator.
type Manager struct {
	self     party.ID
	access   *party.AccessStructure
	cfg      config.Config
	dispatch *adapter.Dispatcher
	consensus wire.ConsensusClient
	reporter  *reporter.Reporter
	sink      *sink.Sink
	keys      router.PrivateKeyMaterialSource
	telemetry Telemetry

	mu          sync.Mutex
	sessions    map[wire.SessionID]*session.Session
	userHeld    map[wire.SessionID]bool
	pendingUser []wire.SessionID

	userSlots *semaphore.Weighted

	reorder *reorderBuffer
}

// Deps groups the collaborators a Manager is wired against.
type Deps struct {
	Self      party.ID
	Access    *party.AccessStructure
	Config    config.Config
	Dispatch  *adapter.Dispatcher
	Consensus wire.ConsensusClient
	Reporter  *reporter.Reporter
	Sink      *sink.Sink
	Keys      router.PrivateKeyMaterialSource
	Telemetry Telemetry
}

func New(deps Deps) *Manager {
	if deps.Telemetry == nil {
		deps.Telemetry = noopTelemetry{}
	}
	m := &Manager{
		self:      deps.Self,
		access:    deps.Access,
		cfg:       deps.Config,
		dispatch:  deps.Dispatch,
		consensus: deps.Consensus,
		reporter:  deps.Reporter,
		sink:      deps.Sink,
		keys:      deps.Keys,
		telemetry: deps.Telemetry,
		sessions:  make(map[wire.SessionID]*session.Session),
		userHeld:  make(map[wire.SessionID]bool),
		userSlots: semaphore.NewWeighted(int64(maxInt(1, int(deps.Config.MaxActiveUserSessions)))),
		reorder:   newReorderBuffer(maxInt(1, deps.Config.EventReorderBuffer)),
	}
	return m
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// OnEvent implements spec §4.4's on_event: build this event's input via
// the Event Router, admit a new session (throttled for user sessions,
// unbounded and FIFO for system sessions), and flush any consensus
// messages that arrived for this session before it existed.
func (m *Manager) OnEvent(ev router.Event) error {
	kind, publicInput, privateInput, err := router.BuildInput(ev, m.keys)
	if err != nil {
		return err
	}

	s := session.New(ev.Session, kind, m.self, m.access, publicInput, privateInput, session.Config{Delay: m.cfg.DelayFor(kind)}, m.dispatch, m)

	m.mu.Lock()
	if _, exists := m.sessions[ev.Session]; exists {
		m.mu.Unlock()
		return errors.Errorf("manager: session %s already exists", ev.Session)
	}
	m.sessions[ev.Session] = s
	m.mu.Unlock()

	if kind.IsSystem() {
		s.Activate()
	} else if m.userSlots.TryAcquire(1) {
		m.mu.Lock()
		m.userHeld[ev.Session] = true
		m.mu.Unlock()
		s.Activate()
	} else {
		m.mu.Lock()
		m.pendingUser = append(m.pendingUser, ev.Session)
		m.mu.Unlock()
	}

	for _, buffered := range m.reorder.drain(ev.Session) {
		s.Deliver(buffered.consensusRound, buffered.round, buffered.sender, buffered.payload)
	}

	return nil
}

// OnConsensusMessage implements spec §4.4's on_consensus_message:
// route round messages to their session (buffering briefly if the
// session is not yet known, per SPEC_FULL.md §9), and hand accusation/
// retry reports to the reporter. Output/capability/checkpoint messages
// pass through untouched (spec §6.2).
func (m *Manager) OnConsensusMessage(d wire.Delivered) {
	switch d.Message.Kind {
	case wire.KindRoundMessage:
		rm := d.Message.RoundMessage
		if rm == nil {
			return
		}
		m.mu.Lock()
		s, ok := m.sessions[rm.Session]
		m.mu.Unlock()
		if !ok {
			m.reorder.buffer(rm.Session, d.ConsensusRound, rm.MPCRound, rm.Sender, rm.Payload)
			return
		}
		s.Deliver(d.ConsensusRound, rm.MPCRound, rm.Sender, rm.Payload)

	case wire.KindMaliciousReport, wire.KindThresholdNotReachedReport:
		if m.reporter != nil {
			m.reporter.HandleConsensusMessage(d.Message)
		}

	default:
		// Output, CapabilityNotification, CheckpointSignature: not
		// interpreted by the core (spec §6.2).
	}
}

// Tick implements spec §4.4's tick(): admit as many pending user
// sessions as slots allow, then fan try_advance() out across every
// active session in parallel, each still serialized by its own mutex.
func (m *Manager) Tick(ctx context.Context) error {
	m.admitPending()

	m.mu.Lock()
	active := make([]*session.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.Status() == session.Active {
			active = append(active, s)
		}
	}
	m.mu.Unlock()

	m.telemetry.ActiveSessions(len(active))

	g, _ := errgroup.WithContext(ctx)
	for _, s := range active {
		s := s
		g.Go(func() error {
			s.TryAdvance()
			return nil
		})
	}
	return g.Wait()
}

func (m *Manager) admitPending() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.telemetry.PendingUserSessions(len(m.pendingUser))

	var stillPending []wire.SessionID
	for i, id := range m.pendingUser {
		if !m.userSlots.TryAcquire(1) {
			stillPending = append(stillPending, m.pendingUser[i:]...)
			break
		}
		m.userHeld[id] = true
		if s, ok := m.sessions[id]; ok {
			s.Activate()
		}
	}
	m.pendingUser = stillPending
}

// OnEpochChange implements spec §4.4's on_epoch_change: abort every
// session not already in a terminal state as Failed(EpochClosed),
// aggregating their failure reasons into one error.
func (m *Manager) OnEpochChange() error {
	m.mu.Lock()
	sessions := make([]*session.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var result *multierror.Error
	for _, s := range sessions {
		status := s.Status()
		if status == session.Finalized || status == session.Failed {
			continue
		}
		if err := s.Abort(session.FailureEpochClosed); err != nil {
			// Lost the race against a concurrent TryAdvance that
			// finalized or failed this session first; nothing to abort.
			continue
		}
		result = multierror.Append(result, errors.Errorf("session %s aborted: epoch closed", s.ID()))
	}
	return result.ErrorOrNil()
}

// Session returns the session for id, if this manager knows it.
func (m *Manager) Session(id wire.SessionID) (*session.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

var _ session.Observer = (*Manager)(nil)
