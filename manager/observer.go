// Copyright © 2024 dWallet Labs
//
// This file is part of mpc-core. The full mpc-core copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package manager

import (
	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/protocol"
	"github.com/dwallet-labs/mpc-core/session"
	"github.com/dwallet-labs/mpc-core/wire"
)

// OnOutboundMessage implements session.Observer: publish the session's
// new round message to consensus (spec §4.3/§6.2).
func (m *Manager) OnOutboundMessage(id wire.SessionID, round uint64, msg wire.RoundMessage) {
	if err := m.consensus.Publish(wire.ConsensusMessage{Kind: wire.KindRoundMessage, RoundMessage: &msg}); err != nil {
		logger.Errorf("session %s round %d: publishing outbound message: %v", id, round, err)
	}
}

// OnMaliciousParties implements session.Observer: report this
// validator's local accusation (spec §4.6).
func (m *Manager) OnMaliciousParties(id wire.SessionID, round uint64, accused party.Set) {
	m.telemetry.MaliciousPartiesDetected(len(accused))
	if m.reporter == nil {
		return
	}
	if err := m.reporter.ReportMalicious(id, round, m.self, accused); err != nil {
		logger.Errorf("session %s round %d: reporting malicious parties: %v", id, round, err)
	}
}

// OnThresholdNotReached implements session.Observer: report this
// validator's own threshold-not-reached observation (spec §4.6).
func (m *Manager) OnThresholdNotReached(id wire.SessionID, round uint64, consensusRound uint64) {
	m.telemetry.ThresholdNotReachedRetries()
	if m.reporter == nil {
		return
	}
	if err := m.reporter.ReportThresholdNotReached(id, round, m.self, consensusRound); err != nil {
		logger.Errorf("session %s round %d: reporting threshold not reached: %v", id, round, err)
	}
}

// OnFinalized implements session.Observer: forward the public output
// to the Output Sink and release this session's admission slot, if any
// (spec §4.7, §4.4).
func (m *Manager) OnFinalized(id wire.SessionID, kind protocol.Kind, publicOut []byte) {
	m.releaseSlot(id)
	if m.sink == nil {
		return
	}
	if err := m.sink.Handle(id, publicOut, kind); err != nil {
		logger.Errorf("session %s: forwarding finalized output: %v", id, err)
	}
}

// OnFailed implements session.Observer: release the session's
// admission slot, if any (spec §4.4).
func (m *Manager) OnFailed(id wire.SessionID, failure session.FailureKind, err error) {
	logger.Warnf("session %s: failed (%s): %v", id, failure, err)
	m.releaseSlot(id)
}

func (m *Manager) releaseSlot(id wire.SessionID) {
	m.mu.Lock()
	held := m.userHeld[id]
	if held {
		delete(m.userHeld, id)
	}
	m.mu.Unlock()
	if held {
		m.userSlots.Release(1)
	}
}
