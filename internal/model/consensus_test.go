package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

func TestUpsertVote_LatestWins(t *testing.T) {
	var votes []model.Vote
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	votes = model.UpsertVote(votes, model.Vote{VoterID: "a", OptionID: "opt1", CastAt: t0})
	votes = model.UpsertVote(votes, model.Vote{VoterID: "b", OptionID: "opt2", CastAt: t0})
	assert.Len(t, votes, 2)

	votes = model.UpsertVote(votes, model.Vote{VoterID: "a", OptionID: "opt2", CastAt: t0.Add(time.Minute)})
	assert.Len(t, votes, 2)

	for _, v := range votes {
		if v.VoterID == "a" {
			assert.Equal(t, "opt2", v.OptionID)
		}
	}
}

func TestConsensusSession_IsParticipant(t *testing.T) {
	s := model.ConsensusSession{Participants: []string{"a", "b"}}
	assert.True(t, s.IsParticipant("a"))
	assert.False(t, s.IsParticipant("z"))
}

func TestConsensusSession_HasOption(t *testing.T) {
	s := model.ConsensusSession{Options: []model.VoteOption{{ID: "opt1"}}}
	assert.True(t, s.HasOption("opt1"))
	assert.False(t, s.HasOption("opt2"))
}

func TestConsensusSession_ConfigFloat_Default(t *testing.T) {
	s := model.ConsensusSession{}
	assert.Equal(t, 0.6, s.ConfigFloat("threshold", 0.6))

	s.SessionConfig = map[string]float64{"threshold": 0.9}
	assert.Equal(t, 0.9, s.ConfigFloat("threshold", 0.6))
}

func TestSessionStatus_IsTerminal(t *testing.T) {
	assert.True(t, model.SessionCompleted.IsTerminal())
	assert.True(t, model.SessionFailed.IsTerminal())
	assert.True(t, model.SessionEscalated.IsTerminal())
	assert.False(t, model.SessionActive.IsTerminal())
}

func TestAuthorityScore_Ordering(t *testing.T) {
	assert.Greater(t, model.AuthorityScore[model.VoterCoordinator], model.AuthorityScore[model.VoterHumanExpert])
	assert.Greater(t, model.AuthorityScore[model.VoterHumanExpert], model.AuthorityScore[model.VoterSeniorAgent])
	assert.Greater(t, model.AuthorityScore[model.VoterSeniorAgent], model.AuthorityScore[model.VoterAgent])
	assert.Greater(t, model.AuthorityScore[model.VoterAgent], model.AuthorityScore[model.VoterAutomatedSystem])
}
