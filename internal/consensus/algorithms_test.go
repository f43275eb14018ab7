package consensus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CA-git-com-co/ACGS-sub011/internal/consensus"
	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

func TestHierarchicalOverride_HighAuthorityWins(t *testing.T) {
	e := consensus.NewEngine(nil, discardLogger())
	sid := e.InitiateConsensus("c1", model.AlgorithmHierarchicalOverride, []string{"coord", "agent1"}, options("opt1", "opt2"), 1, nil)
	_, _ = e.CastVote(sid, "agent1", model.VoterAgent, "opt2", 0.9, "", 1)
	_, _ = e.CastVote(sid, "coord", model.VoterCoordinator, "opt1", 0.5, "", 1)

	result, err := e.ExecuteConsensus(sid)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "opt1", result.WinningOption)
}

func TestHierarchicalOverride_FallsBackBelowThreshold(t *testing.T) {
	e := consensus.NewEngine(nil, discardLogger())
	sid := e.InitiateConsensus("c1", model.AlgorithmHierarchicalOverride, []string{"a", "b"}, options("opt1", "opt2"), 1,
		map[string]float64{"override_threshold": 1000})
	_, _ = e.CastVote(sid, "a", model.VoterAgent, "opt1", 0.9, "", 1)
	_, _ = e.CastVote(sid, "b", model.VoterAgent, "opt1", 0.8, "", 1)

	result, err := e.ExecuteConsensus(sid)
	require.NoError(t, err)
	assert.True(t, result.Success, "falls back to majority_vote which should succeed with a strict majority")
	assert.Equal(t, "opt1", result.WinningOption)
}

func TestExpertMediation_NoExpertsFails(t *testing.T) {
	e := consensus.NewEngine(nil, discardLogger())
	sid := e.InitiateConsensus("c1", model.AlgorithmExpertMediation, []string{"a"}, options("opt1"), 1, nil)
	_, _ = e.CastVote(sid, "a", model.VoterAgent, "opt1", 0.9, "", 1)

	result, err := e.ExecuteConsensus(sid)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "No expert votes cast", result.Reason)
}

func TestExpertMediation_ExpertConsensusReached(t *testing.T) {
	e := consensus.NewEngine(nil, discardLogger())
	sid := e.InitiateConsensus("c1", model.AlgorithmExpertMediation, []string{"e1", "e2"}, options("opt1", "opt2"), 1, nil)
	_, _ = e.CastVote(sid, "e1", model.VoterHumanExpert, "opt1", 0.9, "", 1)
	_, _ = e.CastVote(sid, "e2", model.VoterHumanExpert, "opt1", 0.9, "", 1)

	result, err := e.ExecuteConsensus(sid)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "opt1", result.WinningOption)
}

func TestRankedChoice_SingleOptionFullConfidence(t *testing.T) {
	e := consensus.NewEngine(nil, discardLogger())
	sid := e.InitiateConsensus("c1", model.AlgorithmRankedChoice, []string{"a"}, options("opt1"), 1, nil)
	_, _ = e.CastVote(sid, "a", model.VoterAgent, "opt1", 0.5, "", 1)

	result, err := e.ExecuteConsensus(sid)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1.0, result.ConfidenceScore)
}

func TestConsensusThreshold_NoCandidateMeetsBarFails(t *testing.T) {
	e := consensus.NewEngine(nil, discardLogger())
	sid := e.InitiateConsensus("c1", model.AlgorithmConsensusThreshold, []string{"a", "b", "c"}, options("opt1"), 1, nil)
	_, _ = e.CastVote(sid, "a", model.VoterAgent, "opt1", 0.5, "", 1)

	result, err := e.ExecuteConsensus(sid)
	require.NoError(t, err)
	assert.False(t, result.Success)
}
