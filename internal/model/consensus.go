package model

import "time"

// SessionStatus is the lifecycle state of a ConsensusSession.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionEscalated SessionStatus = "escalated"
)

// IsTerminal reports whether s is an absorbing state.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionEscalated
}

// Algorithm names one of the seven interchangeable consensus algorithms.
type Algorithm string

const (
	AlgorithmMajorityVote          Algorithm = "majority_vote"
	AlgorithmWeightedVote          Algorithm = "weighted_vote"
	AlgorithmRankedChoice          Algorithm = "ranked_choice"
	AlgorithmConsensusThreshold    Algorithm = "consensus_threshold"
	AlgorithmHierarchicalOverride  Algorithm = "hierarchical_override"
	AlgorithmConstitutionalPriority Algorithm = "constitutional_priority"
	AlgorithmExpertMediation       Algorithm = "expert_mediation"
)

// VoterType categorizes who cast a Vote; used by hierarchical_override's
// authority table and expert_mediation's filter.
type VoterType string

const (
	VoterAgent          VoterType = "agent"
	VoterHuman          VoterType = "human"
	VoterHumanExpert    VoterType = "human_expert"
	VoterCoordinator    VoterType = "coordinator"
	VoterSeniorAgent    VoterType = "senior_agent"
	VoterAutomatedSystem VoterType = "automated_system"
)

// AuthorityScore is the fixed per-voter-type authority table used by
// hierarchical_override, lifted from the original Python implementation's
// constants (original_source/services/core/consensus_engine/consensus_mechanisms.py).
var AuthorityScore = map[VoterType]float64{
	VoterCoordinator:     100,
	VoterHumanExpert:     80,
	VoterSeniorAgent:     60,
	VoterAgent:           40,
	VoterAutomatedSystem: 20,
}

// VoteOption is a candidate resolution in a ConsensusSession.
type VoteOption struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Description         string         `json:"description,omitempty"`
	ProposedBy          string         `json:"proposed_by,omitempty"`
	SupportingData      map[string]any `json:"supporting_data,omitempty"`
	ConstitutionalScore float64        `json:"constitutional_score"` // [0,1]
	RiskAssessment      string         `json:"risk_assessment,omitempty"`
}

// Vote is a single voter's cast ballot. At most one is retained per
// (session, voter_id); the latest CastAt wins (I4).
type Vote struct {
	VoterID   string    `json:"voter_id"`
	VoterType VoterType `json:"voter_type"`
	OptionID  string    `json:"option_id"`
	Confidence float64  `json:"confidence"` // [0,1]
	Reasoning string    `json:"reasoning,omitempty"`
	CastAt    time.Time `json:"cast_at"`
	Weight    float64   `json:"weight"`
}

// ConsensusResult is the structured output of running a session's algorithm.
// Algorithm-specific fields live in Extra.
type ConsensusResult struct {
	Success            bool           `json:"success"`
	Algorithm          Algorithm      `json:"algorithm"`
	WinningOption      string         `json:"winning_option,omitempty"`
	ConfidenceScore    float64        `json:"confidence_score"`
	Reason             string         `json:"reason,omitempty"`
	NextSteps          []string       `json:"next_steps,omitempty"`
	Extra              map[string]any `json:"extra,omitempty"`
	Escalation         map[string]any `json:"escalation,omitempty"`
	ConstitutionalHash string         `json:"constitutional_hash"`
}

// ConsensusSession is a scoped voting episode over a fixed set of options and
// participants, resolved by a named algorithm.
type ConsensusSession struct {
	ID             string                 `json:"id"`
	ConflictID     string                 `json:"conflict_id"`
	Algorithm      Algorithm              `json:"algorithm"`
	Participants   []string               `json:"participants"`
	Options        []VoteOption           `json:"options"`
	Votes          []Vote                 `json:"votes"`
	Status         SessionStatus          `json:"status"`
	CreatedAt      time.Time              `json:"created_at"`
	Deadline       time.Time              `json:"deadline"`
	Result         *ConsensusResult       `json:"result,omitempty"`
	SessionConfig  map[string]float64     `json:"session_config,omitempty"`
}

// IsParticipant reports whether voterID is allowed to vote in this session.
func (s ConsensusSession) IsParticipant(voterID string) bool {
	for _, p := range s.Participants {
		if p == voterID {
			return true
		}
	}
	return false
}

// HasOption reports whether optionID names one of the session's options.
func (s ConsensusSession) HasOption(optionID string) bool {
	for _, o := range s.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// ConfigFloat returns the algorithm-specific config value for key, or def if absent.
func (s ConsensusSession) ConfigFloat(key string, def float64) float64 {
	if s.SessionConfig == nil {
		return def
	}
	if v, ok := s.SessionConfig[key]; ok {
		return v
	}
	return def
}

// UpsertVote replaces any existing vote from v.VoterID with v, enforcing I4
// (at most one vote per voter, latest CastAt wins). Returns the updated slice.
func UpsertVote(votes []Vote, v Vote) []Vote {
	for i, existing := range votes {
		if existing.VoterID == v.VoterID {
			votes[i] = v
			return votes
		}
	}
	return append(votes, v)
}
