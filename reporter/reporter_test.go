package reporter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwallet-labs/mpc-core/party"
	"github.com/dwallet-labs/mpc-core/reporter"
	"github.com/dwallet-labs/mpc-core/wire"
)

type fakeClient struct {
	published []wire.ConsensusMessage
	publishErr error
}

func (c *fakeClient) Publish(msg wire.ConsensusMessage) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeClient) Stream() <-chan wire.Delivered { return nil }

func quorum3of4() *party.AccessStructure {
	c := party.NewCommittee(map[party.AuthorityName]uint64{"a": 1, "b": 1, "c": 1, "d": 1}, 7500, 5000)
	return c.AccessStructure()
}

func TestReporter_AgreementRequiresAuthorisedSubset(t *testing.T) {
	var session wire.SessionID
	copy(session[:], []byte("s1"))

	var agreedCalls int
	var lastAccused party.Set
	onAgreed := func(s wire.SessionID, round uint64, accused party.Set) {
		agreedCalls++
		lastAccused = accused
	}

	client := &fakeClient{}
	r := reporter.New(client, quorum3of4(), onAgreed)

	require.NoError(t, r.ReportMalicious(session, 1, party.ID(1), party.NewSet(party.ID(4))))
	assert.Equal(t, 0, agreedCalls, "single accuser is not yet an authorised subset")

	r.HandleConsensusMessage(wire.ConsensusMessage{
		Kind: wire.KindMaliciousReport,
		MaliciousReport: &wire.MaliciousReport{Session: session, Round: 1, Reporter: party.ID(2), Accused: []party.ID{4}},
	})
	assert.Equal(t, 0, agreedCalls)

	r.HandleConsensusMessage(wire.ConsensusMessage{
		Kind: wire.KindMaliciousReport,
		MaliciousReport: &wire.MaliciousReport{Session: session, Round: 1, Reporter: party.ID(3), Accused: []party.ID{4}},
	})
	require.Equal(t, 1, agreedCalls, "3 of 4 reporters meets the 75%% quorum")
	assert.True(t, lastAccused.Contains(party.ID(4)))

	// A further accusation from the same set of reporters must not
	// re-fire onAgreed.
	r.HandleConsensusMessage(wire.ConsensusMessage{
		Kind: wire.KindMaliciousReport,
		MaliciousReport: &wire.MaliciousReport{Session: session, Round: 1, Reporter: party.ID(3), Accused: []party.ID{4}},
	})
	assert.Equal(t, 1, agreedCalls)

	require.Len(t, client.published, 1)
}

func TestReporter_ThresholdNotReachedIsTallied(t *testing.T) {
	var session wire.SessionID
	client := &fakeClient{}
	r := reporter.New(client, quorum3of4(), nil)

	require.NoError(t, r.ReportThresholdNotReached(session, 1, party.ID(1), 5))
	r.HandleConsensusMessage(wire.ConsensusMessage{
		Kind: wire.KindThresholdNotReachedReport,
		ThresholdNotReachedReport: &wire.ThresholdNotReachedReport{Session: session, Round: 1, Reporter: party.ID(2), ConsensusRound: 5},
	})

	reporters := r.ThresholdNotReachedReporters(session, 1, 5)
	assert.True(t, reporters.Contains(party.ID(1)))
	assert.True(t, reporters.Contains(party.ID(2)))
	assert.Len(t, reporters, 2)

	// quorum3of4's validity threshold is 50%; 2 of 4 equal-weight
	// reporters meets it even though the 75% quorum used for malicious-
	// accusation agreement would not be met by the same pair.
	assert.True(t, r.ThresholdNotReachedAgreed(session, 1, 5))
	assert.False(t, r.ThresholdNotReachedAgreed(session, 1, 6), "no reports at a different consensus round")
}

func TestReporter_SummaryAggregatesAgreedAccusations(t *testing.T) {
	var session wire.SessionID
	client := &fakeClient{}
	r := reporter.New(client, quorum3of4(), nil)

	require.NoError(t, r.ReportMalicious(session, 1, party.ID(1), party.NewSet(party.ID(4))))
	r.HandleConsensusMessage(wire.ConsensusMessage{
		Kind: wire.KindMaliciousReport,
		MaliciousReport: &wire.MaliciousReport{Session: session, Round: 1, Reporter: party.ID(2), Accused: []party.ID{4}},
	})
	r.HandleConsensusMessage(wire.ConsensusMessage{
		Kind: wire.KindMaliciousReport,
		MaliciousReport: &wire.MaliciousReport{Session: session, Round: 1, Reporter: party.ID(3), Accused: []party.ID{4}},
	})

	err := r.Summary()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agreed malicious parties")
}
