package consensus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CA-git-com-co/ACGS-sub011/internal/consensus"
	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

func newEngine() *consensus.Engine {
	return consensus.NewEngine(nil, discardLogger())
}

func options(ids ...string) []model.VoteOption {
	opts := make([]model.VoteOption, len(ids))
	for i, id := range ids {
		opts[i] = model.VoteOption{ID: id, Name: id, ConstitutionalScore: 0.8}
	}
	return opts
}

func TestCastVote_Uniqueness(t *testing.T) {
	e := newEngine()
	sid := e.InitiateConsensus("conflict-1", model.AlgorithmMajorityVote, []string{"a", "b", "c"}, options("opt1", "opt2"), 1, nil)

	ok, err := e.CastVote(sid, "a", model.VoterAgent, "opt1", 0.8, "", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.CastVote(sid, "a", model.VoterAgent, "opt2", 0.9, "changed mind", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.CastVote(sid, "b", model.VoterAgent, "opt1", 0.7, "", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	session, err := e.GetSession(sid)
	require.NoError(t, err)
	require.Len(t, session.Votes, 2)
	for _, v := range session.Votes {
		if v.VoterID == "a" {
			assert.Equal(t, "opt2", v.OptionID)
		}
	}
}

func TestCastVote_RejectsNonParticipant(t *testing.T) {
	e := newEngine()
	sid := e.InitiateConsensus("conflict-1", model.AlgorithmMajorityVote, []string{"a"}, options("opt1"), 1, nil)

	ok, err := e.CastVote(sid, "stranger", model.VoterAgent, "opt1", 0.9, "", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCastVote_RejectsUnknownOption(t *testing.T) {
	e := newEngine()
	sid := e.InitiateConsensus("conflict-1", model.AlgorithmMajorityVote, []string{"a"}, options("opt1"), 1, nil)

	ok, err := e.CastVote(sid, "a", model.VoterAgent, "nope", 0.9, "", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExecuteConsensus_Idempotent(t *testing.T) {
	e := newEngine()
	sid := e.InitiateConsensus("conflict-1", model.AlgorithmMajorityVote, []string{"a", "b", "c"}, options("opt1", "opt2"), 1, nil)
	_, _ = e.CastVote(sid, "a", model.VoterAgent, "opt1", 0.9, "", 1)
	_, _ = e.CastVote(sid, "b", model.VoterAgent, "opt1", 0.8, "", 1)
	_, _ = e.CastVote(sid, "c", model.VoterAgent, "opt2", 0.7, "", 1)

	first, err := e.ExecuteConsensus(sid)
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, "opt1", first.WinningOption)

	second, err := e.ExecuteConsensus(sid)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExecuteConsensus_MajorityVote_NoConsensus_Scenario(t *testing.T) {
	e := newEngine()
	sid := e.InitiateConsensus("conflict-1", model.AlgorithmMajorityVote, []string{"a", "b", "c", "d"}, options("opt1", "opt2"), 1, nil)
	_, _ = e.CastVote(sid, "a", model.VoterAgent, "opt1", 0.9, "", 1)
	_, _ = e.CastVote(sid, "b", model.VoterAgent, "opt1", 0.9, "", 1)
	_, _ = e.CastVote(sid, "c", model.VoterAgent, "opt2", 0.9, "", 1)
	_, _ = e.CastVote(sid, "d", model.VoterAgent, "opt2", 0.9, "", 1)

	result, err := e.ExecuteConsensus(sid)
	require.NoError(t, err)
	assert.False(t, result.Success, "exactly half on the leading option must not be a strict majority")
}

func TestExecuteConsensus_WeightedVote_BelowThreshold_Scenario(t *testing.T) {
	e := newEngine()
	sid := e.InitiateConsensus("conflict-1", model.AlgorithmWeightedVote, []string{"a", "b"}, options("opt1", "opt2"), 1,
		map[string]float64{"weighted_threshold": 0.9})
	_, _ = e.CastVote(sid, "a", model.VoterAgent, "opt1", 0.6, "", 1)
	_, _ = e.CastVote(sid, "b", model.VoterAgent, "opt2", 0.5, "", 1)

	result, err := e.ExecuteConsensus(sid)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, model.SessionEscalated, func() model.SessionStatus {
		session, _ := e.GetSession(sid)
		return session.Status
	}())
}

func TestExecuteConsensus_EmptyVotes(t *testing.T) {
	e := newEngine()
	sid := e.InitiateConsensus("conflict-1", model.AlgorithmMajorityVote, []string{"a"}, options("opt1"), 1, nil)

	result, err := e.ExecuteConsensus(sid)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "No votes cast", result.Reason)
}

func TestExecuteConsensus_ConstitutionalPriority_SucceedsWithNoVotes(t *testing.T) {
	e := newEngine()
	sid := e.InitiateConsensus("conflict-1", model.AlgorithmConstitutionalPriority, []string{"a"}, options("opt1"), 1, nil)

	result, err := e.ExecuteConsensus(sid)
	require.NoError(t, err)
	assert.True(t, result.Success, "constitutional_priority has an option-based path independent of votes")
}

func TestCheckSessionDeadlines_EscalatesExpiredSession(t *testing.T) {
	e := newEngine()
	sid := e.InitiateConsensus("conflict-1", model.AlgorithmWeightedVote, []string{"a", "b"}, options("opt1", "opt2"), 1e-9,
		map[string]float64{"weighted_threshold": 0.99})
	_, _ = e.CastVote(sid, "a", model.VoterAgent, "opt1", 0.9, "", 1)
	_, _ = e.CastVote(sid, "b", model.VoterAgent, "opt2", 0.1, "", 1)

	expired := e.CheckSessionDeadlines()
	assert.Contains(t, expired, sid)

	session, err := e.GetSession(sid)
	require.NoError(t, err)
	assert.Equal(t, model.SessionEscalated, session.Status, "an expired session is failed and then escalated for human review")
}

func TestGetConsensusMetrics(t *testing.T) {
	e := newEngine()
	sid := e.InitiateConsensus("conflict-1", model.AlgorithmMajorityVote, []string{"a"}, options("opt1"), 1, nil)
	_, _ = e.CastVote(sid, "a", model.VoterAgent, "opt1", 0.9, "", 1)
	_, err := e.ExecuteConsensus(sid)
	require.NoError(t, err)

	metrics := e.GetConsensusMetrics()
	assert.Equal(t, 1, metrics.TotalSessions)
	assert.Equal(t, 1, metrics.CompletedSessions)
}
