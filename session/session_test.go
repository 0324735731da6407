package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwallet-labs/mpc-core/adapter"
	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/protocol"
	"github.com/dwallet-labs/mpc-core/session"
	"github.com/dwallet-labs/mpc-core/wire"
)

// fakeProtocol is a minimal adapter.Protocol: by default round 1
// advances and any later round finalizes, whatever messages ctx holds;
// a set onAdvanceErr or advanceErr replaces that behaviour.
type fakeProtocol struct {
	decodeErr    error
	advanceErr   error
	onAdvanceErr func(ctx adapter.Context) (adapter.Result, error)
}

func (p *fakeProtocol) DecodePayload(round uint64, payload wire.Payload) error {
	return p.decodeErr
}

func (p *fakeProtocol) Advance(ctx adapter.Context) (adapter.Result, error) {
	if p.onAdvanceErr != nil {
		return p.onAdvanceErr(ctx)
	}
	if p.advanceErr != nil {
		return adapter.Result{}, p.advanceErr
	}
	if ctx.CurrentRound == 1 {
		return adapter.Result{Outcome: adapter.OutcomeAdvance, OutMsg: wire.Payload("round1-out")}, nil
	}
	return adapter.Result{Outcome: adapter.OutcomeFinalize, PublicOut: []byte("done")}, nil
}

type recordingObserver struct {
	outbound   []wire.RoundMessage
	malicious  []party.Set
	trn        int
	finalized  bool
	finalPub   []byte
	failed     bool
	failureErr error
}

func (o *recordingObserver) OnOutboundMessage(id wire.SessionID, round uint64, msg wire.RoundMessage) {
	o.outbound = append(o.outbound, msg)
}
func (o *recordingObserver) OnMaliciousParties(id wire.SessionID, round uint64, accused party.Set) {
	o.malicious = append(o.malicious, accused)
}
func (o *recordingObserver) OnThresholdNotReached(id wire.SessionID, round uint64, consensusRound uint64) {
	o.trn++
}
func (o *recordingObserver) OnFinalized(id wire.SessionID, kind protocol.Kind, publicOut []byte) {
	o.finalized = true
	o.finalPub = publicOut
}
func (o *recordingObserver) OnFailed(id wire.SessionID, failure session.FailureKind, err error) {
	o.failed = true
	o.failureErr = err
}

func quorum3of3() *party.AccessStructure {
	c := party.NewCommittee(map[party.AuthorityName]uint64{"a": 1, "b": 1, "c": 1}, 6700, 5000)
	return c.AccessStructure()
}

// quorum3of4 is satisfied by any 3 of 4 equally-weighted parties,
// leaving a 4th party free to deliver a genuinely new message later.
func quorum3of4() *party.AccessStructure {
	c := party.NewCommittee(map[party.AuthorityName]uint64{"a": 1, "b": 1, "c": 1, "d": 1}, 7500, 5000)
	return c.AccessStructure()
}

func newTestSessionWithAccess(t *testing.T, p adapter.Protocol, obs *recordingObserver, access *party.AccessStructure) *session.Session {
	t.Helper()
	dispatch := adapter.NewDispatcher()
	dispatch.Register(protocol.Sign, p)

	var id wire.SessionID
	copy(id[:], []byte("test-session-deadbeefdeadbeef00"))

	s := session.New(id, protocol.Sign, party.ID(1), access, []byte("pub"), []byte("priv"), session.Config{Delay: 0}, dispatch, obs)
	s.Activate()
	return s
}

func newTestSession(t *testing.T, p adapter.Protocol, obs *recordingObserver) *session.Session {
	t.Helper()
	return newTestSessionWithAccess(t, p, obs, quorum3of3())
}

func TestSession_RoundOneAdvancesWithoutInput(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestSession(t, &fakeProtocol{}, obs)

	s.TryAdvance()

	assert.EqualValues(t, 2, s.CurrentRound())
	require.Len(t, obs.outbound, 1)
	assert.Equal(t, wire.Payload("round1-out"), obs.outbound[0].Payload)
	assert.Equal(t, session.Active, s.Status())
}

func TestSession_FinalizesOnSecondRound(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestSession(t, &fakeProtocol{}, obs)

	s.TryAdvance() // round 1 -> 2
	s.Deliver(1, 1, party.ID(1), wire.Payload("m1"))
	s.Deliver(1, 1, party.ID(2), wire.Payload("m2"))
	s.Deliver(1, 1, party.ID(3), wire.Payload("m3"))
	s.TryAdvance() // round 2 -> finalize

	assert.Equal(t, session.Finalized, s.Status())
	require.True(t, obs.finalized)
	assert.Equal(t, []byte("done"), obs.finalPub)

	out, ok := s.Output()
	require.True(t, ok)
	assert.Equal(t, []byte("done"), out)
}

func TestSession_DeliverIsFirstWriterWins(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestSession(t, &fakeProtocol{}, obs)

	s.Deliver(1, 1, party.ID(1), wire.Payload("first"))
	s.Deliver(1, 1, party.ID(1), wire.Payload("second"))

	entries := s.At(1)
	assert.Equal(t, wire.Payload("first"), entries[1][party.ID(1)])
}

func TestSession_DeliverFromMaliciousPartyIsDiscarded(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestSession(t, &fakeProtocol{}, obs)

	s.AddGloballyMalicious(party.NewSet(party.ID(2)))
	s.Deliver(1, 1, party.ID(2), wire.Payload("ignored"))

	entries := s.At(1)
	assert.Nil(t, entries[1])
}

func TestSession_FatalErrorMovesToFailed(t *testing.T) {
	obs := &recordingObserver{}
	boom := assertionError("boom")
	s := newTestSession(t, &fakeProtocol{advanceErr: boom}, obs)

	s.TryAdvance()

	assert.Equal(t, session.Failed, s.Status())
	require.True(t, obs.failed)
	kind, err := s.FailureInfo()
	assert.Equal(t, session.FailureFatal, kind)
	require.Error(t, err)
}

func TestSession_ThresholdNotReachedIsRecordedAndRetried(t *testing.T) {
	obs := &recordingObserver{}
	calls := 0
	p := &fakeProtocol{
		onAdvanceErr: func(ctx adapter.Context) (adapter.Result, error) {
			if ctx.CurrentRound == 1 {
				return adapter.Result{Outcome: adapter.OutcomeAdvance, OutMsg: wire.Payload("round1-out")}, nil
			}
			calls++
			if calls == 1 {
				return adapter.Result{}, adapter.ErrThresholdNotReached
			}
			return adapter.Result{Outcome: adapter.OutcomeAdvance, OutMsg: wire.Payload("out")}, nil
		},
	}
	s := newTestSessionWithAccess(t, p, obs, quorum3of4())
	s.TryAdvance() // round 1 -> 2

	s.Deliver(1, 1, party.ID(1), wire.Payload("m1"))
	s.Deliver(1, 1, party.ID(2), wire.Payload("m2"))
	s.Deliver(1, 1, party.ID(3), wire.Payload("m3"))

	s.TryAdvance() // attempt at c=1: reports ThresholdNotReached
	assert.Equal(t, session.Active, s.Status())
	assert.Equal(t, 1, obs.trn)
	assert.EqualValues(t, 2, s.CurrentRound())

	// No new message: retry should not call Advance again (scheduler
	// withholds readiness since nothing changed since the attempt).
	s.TryAdvance()
	assert.Equal(t, 1, calls)

	// A genuinely new sender's message at a later consensus round
	// unlocks retry (quorum was already met, so this party's message
	// wasn't needed for authorisation, only for the gotNew flag).
	s.Deliver(2, 1, party.ID(4), wire.Payload("m4"))
	s.TryAdvance()
	assert.Equal(t, 2, calls)
	assert.EqualValues(t, 3, s.CurrentRound())
}

func TestSession_AbortMovesNonTerminalToFailed(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestSession(t, &fakeProtocol{}, obs)

	require.NoError(t, s.Abort(session.FailureEpochClosed))

	assert.Equal(t, session.Failed, s.Status())
	kind, _ := s.FailureInfo()
	assert.Equal(t, session.FailureEpochClosed, kind)
	require.True(t, obs.failed)
}

func TestSession_AbortIsNoopOnFinalized(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestSession(t, &fakeProtocol{}, obs)

	s.Deliver(1, 1, party.ID(1), wire.Payload("m1"))
	s.Deliver(1, 1, party.ID(2), wire.Payload("m2"))
	s.Deliver(1, 1, party.ID(3), wire.Payload("m3"))
	s.TryAdvance()
	s.TryAdvance()
	require.Equal(t, session.Finalized, s.Status())

	obs.failed = false
	assert.ErrorIs(t, s.Abort(session.FailureEpochClosed), session.ErrAlreadyTerminal)

	assert.Equal(t, session.Finalized, s.Status())
	assert.False(t, obs.failed)
}

type assertionError string

func (e assertionError) Error() string { return string(e) }
