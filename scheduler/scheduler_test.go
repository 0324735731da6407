package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/scheduler"
	"github.com/dwallet-labs/mpc-core/wire"
)

// fakeHistory is an in-memory scheduler.History for table-driven tests,
// grounded on the same plain-map-of-maps shape Session stores.
type fakeHistory struct {
	byConsensusRound map[uint64]scheduler.RoundMessages
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{byConsensusRound: make(map[uint64]scheduler.RoundMessages)}
}

func (h *fakeHistory) put(c, round uint64, sender party.ID, payload string) {
	if h.byConsensusRound[c] == nil {
		h.byConsensusRound[c] = make(scheduler.RoundMessages)
	}
	if h.byConsensusRound[c][round] == nil {
		h.byConsensusRound[c][round] = make(map[party.ID]wire.Payload)
	}
	h.byConsensusRound[c][round][sender] = wire.Payload(payload)
}

// touch marks consensus round c as observed with no new messages, the
// densification spec §4.2 step 2 requires for intermediate rounds.
func (h *fakeHistory) touch(c uint64) {
	if h.byConsensusRound[c] == nil {
		h.byConsensusRound[c] = make(scheduler.RoundMessages)
	}
}

func (h *fakeHistory) Bounds() (min, max uint64, ok bool) {
	if len(h.byConsensusRound) == 0 {
		return 0, 0, false
	}
	first := true
	for c := range h.byConsensusRound {
		if first || c < min {
			min = c
		}
		if first || c > max {
			max = c
		}
		first = false
	}
	return min, max, true
}

func (h *fakeHistory) At(c uint64) scheduler.RoundMessages {
	return h.byConsensusRound[c]
}

func quorum3of4() *party.AccessStructure {
	c := party.NewCommittee(map[party.AuthorityName]uint64{"a": 1, "b": 1, "c": 1, "d": 1}, 7500, 5000)
	return c.AccessStructure()
}

func TestTryAdvance_RoundOneNeedsNoInput(t *testing.T) {
	ready, ok := scheduler.TryAdvance(1, 0, nil, newFakeHistory(), quorum3of4())
	require.True(t, ok)
	assert.False(t, ready.HasConsensusRound)
	assert.Empty(t, ready.Messages)
}

func TestTryAdvance_HappyPath(t *testing.T) {
	// scenario 1: 4 parties, quorum 3, D=0, all 4 send r=1 at c=1.
	h := newFakeHistory()
	h.put(1, 1, 1, "m1")
	h.put(1, 1, 2, "m2")
	h.put(1, 1, 3, "m3")
	h.put(1, 1, 4, "m4")

	ready, ok := scheduler.TryAdvance(2, 0, nil, h, quorum3of4())
	require.True(t, ok)
	require.True(t, ready.HasConsensusRound)
	assert.EqualValues(t, 1, ready.ConsensusRound)
	assert.Len(t, ready.Messages[1], 4)
}

func TestTryAdvance_ThresholdNotReachedRetry(t *testing.T) {
	// 7 parties, quorum ~71% (5/7). At c=3 only 5 arrive, adapter will
	// fail; at c=4 a 6th arrives and scheduler should pick it up.
	committee := party.NewCommittee(map[party.AuthorityName]uint64{
		"a": 1, "b": 1, "c": 1, "d": 1, "e": 1, "f": 1, "g": 1,
	}, 7100, 5000)
	access := committee.AccessStructure()

	h := newFakeHistory()
	h.put(3, 1, 1, "m1")
	h.put(3, 1, 2, "m2")
	h.put(3, 1, 3, "m3")
	h.put(3, 1, 4, "m4")
	h.put(3, 1, 5, "m5")

	ready, ok := scheduler.TryAdvance(2, 0, nil, h, access)
	require.True(t, ok)
	assert.EqualValues(t, 3, ready.ConsensusRound)
	assert.Len(t, ready.Messages[1], 5)

	// Adapter reports ThresholdNotReached at c=3; session records it.
	trn := map[uint64]struct{}{3: {}}

	// Re-run before any new message arrives: must yield None (no new
	// message since the last threshold-not-reached attempt).
	_, ok = scheduler.TryAdvance(2, 0, trn, h, access)
	assert.False(t, ok)

	// Party 6 arrives at c=4.
	h.put(4, 1, 6, "m6")
	ready, ok = scheduler.TryAdvance(2, 0, trn, h, access)
	require.True(t, ok)
	assert.EqualValues(t, 4, ready.ConsensusRound)
	assert.Len(t, ready.Messages[1], 6)
}

func TestTryAdvance_DelaySatisfied(t *testing.T) {
	// D=2: quorum first reached at c=5, delay counted at c=5 and c=6,
	// ready at the first observed consensus round after that (c=7). With
	// no threshold-not-reached attempt recorded, the c=5 batch already
	// counts as new input.
	h := newFakeHistory()
	h.put(5, 1, 1, "m1")
	h.put(5, 1, 2, "m2")
	h.put(5, 1, 3, "m3")

	_, ok := scheduler.TryAdvance(2, 2, nil, h, quorum3of4())
	assert.False(t, ok, "delayed_rounds 0->1 at c=5")

	h.touch(6)
	_, ok = scheduler.TryAdvance(2, 2, nil, h, quorum3of4())
	assert.False(t, ok, "delayed_rounds 1->2 at c=6")

	// Re-running on the same history is still not ready: c=7 has not
	// been observed, so the delay is spent but no later round exists.
	_, ok = scheduler.TryAdvance(2, 2, nil, h, quorum3of4())
	assert.False(t, ok)

	// A message delivered at c=7 makes c=7 observed.
	h.put(7, 1, 4, "m4")
	ready, ok := scheduler.TryAdvance(2, 2, nil, h, quorum3of4())
	require.True(t, ok)
	assert.EqualValues(t, 7, ready.ConsensusRound)
}

func TestTryAdvance_NoMessagesYet(t *testing.T) {
	_, ok := scheduler.TryAdvance(2, 0, nil, newFakeHistory(), quorum3of4())
	assert.False(t, ok)
}

func TestTryAdvance_DuplicateSenderFirstWriterWins(t *testing.T) {
	h := newFakeHistory()
	h.put(1, 1, 1, "first")
	h.put(1, 1, 2, "m2") // only 2/4 at c=1: not yet quorum

	h.put(2, 1, 1, "second") // duplicate from party 1: must be dropped
	h.put(2, 1, 3, "m3")     // genuinely new sender, brings quorum to 3/4

	ready, ok := scheduler.TryAdvance(2, 0, nil, h, quorum3of4())
	require.True(t, ok)
	assert.EqualValues(t, 2, ready.ConsensusRound)
	assert.Equal(t, wire.Payload("first"), ready.Messages[1][1])
	assert.Len(t, ready.Messages[1], 3)
}
