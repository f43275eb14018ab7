// Package consensus implements the seven interchangeable voting/arbitration
// algorithms over a common ConsensusSession model, plus the session
// lifecycle (initiate, vote, execute, deadline sweep, escalate) that drives
// them to a terminal state.
package consensus

import (
	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

// algorithmFunc runs one consensus algorithm over session and returns its
// result. None mutate session; the caller (session.go) is responsible for
// persisting the result and transitioning status.
type algorithmFunc func(session model.ConsensusSession) model.ConsensusResult

var algorithms = map[model.Algorithm]algorithmFunc{
	model.AlgorithmMajorityVote:           majorityVote,
	model.AlgorithmWeightedVote:           weightedVote,
	model.AlgorithmRankedChoice:           rankedChoice,
	model.AlgorithmConsensusThreshold:     consensusThreshold,
	model.AlgorithmHierarchicalOverride:   hierarchicalOverride,
	model.AlgorithmConstitutionalPriority: constitutionalPriority,
	model.AlgorithmExpertMediation:        expertMediation,
}

func baseResult(session model.ConsensusSession) model.ConsensusResult {
	return model.ConsensusResult{
		Algorithm:          session.Algorithm,
		ConstitutionalHash: model.ComplianceTag,
	}
}

func noVotesResult(session model.ConsensusSession) model.ConsensusResult {
	r := baseResult(session)
	r.Success = false
	r.Reason = "No votes cast"
	r.NextSteps = []string{"escalate"}
	return r
}

func countByOption(votes []model.Vote) map[string]int {
	counts := make(map[string]int)
	for _, v := range votes {
		counts[v.OptionID]++
	}
	return counts
}

func weightedScoreByOption(votes []model.Vote) map[string]float64 {
	scores := make(map[string]float64)
	for _, v := range votes {
		scores[v.OptionID] += v.Weight * v.Confidence
	}
	return scores
}

// highestKey returns the key with the highest value in m, breaking ties by
// the order candidates appear in order (insertion-order tiebreak per
// spec.md §4.1's priority-queue convention, reused here for ties).
func highestKey(m map[string]float64, order []string) (string, float64) {
	var best string
	var bestScore float64
	first := true
	for _, key := range order {
		score, ok := m[key]
		if !ok {
			continue
		}
		if first || score > bestScore {
			best, bestScore = key, score
			first = false
		}
	}
	return best, bestScore
}

func optionOrder(session model.ConsensusSession) []string {
	order := make([]string, 0, len(session.Options))
	for _, o := range session.Options {
		order = append(order, o.ID)
	}
	return order
}

func majorityVote(session model.ConsensusSession) model.ConsensusResult {
	if len(session.Votes) == 0 {
		return noVotesResult(session)
	}
	counts := countByOption(session.Votes)
	total := len(session.Votes)

	winner, winCount := "", 0
	for _, id := range optionOrder(session) {
		c := counts[id]
		if c > winCount {
			winner, winCount = id, c
		}
	}

	r := baseResult(session)
	if winner != "" && winCount*2 > total {
		r.Success = true
		r.WinningOption = winner
		r.ConfidenceScore = float64(winCount) / float64(total)
	} else {
		r.Success = false
		r.Reason = "No strict majority"
		r.NextSteps = []string{"add_participants"}
	}
	return r
}

func weightedVote(session model.ConsensusSession) model.ConsensusResult {
	if len(session.Votes) == 0 {
		return noVotesResult(session)
	}
	scores := weightedScoreByOption(session.Votes)
	var total float64
	for _, v := range scores {
		total += v
	}
	winner, winScore := highestKey(scores, optionOrder(session))

	threshold := session.ConfigFloat("weighted_threshold", 0.5)
	r := baseResult(session)
	r.Extra = map[string]any{"winner_score": winScore, "total_score": total}
	if total > 0 && winScore/total >= threshold {
		r.Success = true
		r.WinningOption = winner
		r.ConfidenceScore = winScore / total
	} else {
		r.Success = false
		r.Reason = "Winning option below weighted threshold"
		r.NextSteps = []string{"escalate"}
	}
	return r
}

func rankedChoice(session model.ConsensusSession) model.ConsensusResult {
	if len(session.Votes) == 0 {
		return noVotesResult(session)
	}
	scores := weightedScoreByOption(session.Votes)
	order := optionOrder(session)
	winner, winScore := highestKey(scores, order)

	// Runner-up: highest score among all options other than winner.
	runnerUp := 0.0
	for _, id := range order {
		if id == winner {
			continue
		}
		if s := scores[id]; s > runnerUp {
			runnerUp = s
		}
	}

	confidence := 1.0
	if len(order) > 1 && winScore > 0 {
		confidence = (winScore - runnerUp) / winScore
	}

	threshold := session.ConfigFloat("min_confidence", 0.6)
	r := baseResult(session)
	r.WinningOption = winner
	r.ConfidenceScore = confidence
	if confidence >= threshold {
		r.Success = true
	} else {
		r.Success = false
		r.Reason = "Ranked-choice confidence below threshold"
		r.NextSteps = []string{"expert_review"}
	}
	return r
}

func consensusThreshold(session model.ConsensusSession) model.ConsensusResult {
	if len(session.Votes) == 0 {
		return noVotesResult(session)
	}
	threshold := session.ConfigFloat("consensus_threshold", 0.8)
	participants := float64(len(session.Participants))
	if participants == 0 {
		participants = 1
	}

	support := make(map[string]float64)
	for _, v := range session.Votes {
		support[v.OptionID] += v.Confidence
	}
	for id := range support {
		support[id] /= participants
	}

	order := optionOrder(session)
	var candidates []string
	for _, id := range order {
		if support[id] >= threshold {
			candidates = append(candidates, id)
		}
	}

	r := baseResult(session)
	r.Extra = map[string]any{"weighted_support": support}
	if len(candidates) > 0 {
		winner, score := highestKey(support, candidates)
		r.Success = true
		r.WinningOption = winner
		r.ConfidenceScore = score
		return r
	}

	winner, score := highestKey(support, order)
	r.Success = false
	r.WinningOption = winner
	r.ConfidenceScore = score
	r.Reason = "No option met the consensus threshold"
	r.NextSteps = []string{"extend_deadline"}
	return r
}

func hierarchicalOverride(session model.ConsensusSession) model.ConsensusResult {
	if len(session.Votes) == 0 {
		return noVotesResult(session)
	}
	threshold := session.ConfigFloat("override_threshold", 60)

	var topVote *model.Vote
	var topAuthority float64
	for i, v := range session.Votes {
		authority := model.AuthorityScore[v.VoterType]
		if topVote == nil || authority > topAuthority {
			topVote = &session.Votes[i]
			topAuthority = authority
		}
	}

	overrideSuccess := topAuthority >= threshold
	r := baseResult(session)
	if overrideSuccess {
		r.Success = true
		r.WinningOption = topVote.OptionID
		r.ConfidenceScore = topVote.Confidence
		r.Extra = map[string]any{"override_authority": topAuthority, "fallback_used": false}
		return r
	}

	fallback := majorityVote(session)
	r.Success = fallback.Success
	r.WinningOption = fallback.WinningOption
	r.ConfidenceScore = fallback.ConfidenceScore
	r.Extra = map[string]any{"override_authority": topAuthority, "fallback_used": true}
	if !fallback.Success {
		r.Reason = "Override authority insufficient and fallback majority failed"
		r.NextSteps = []string{"escalate"}
	}
	return r
}

func constitutionalPriority(session model.ConsensusSession) model.ConsensusResult {
	if len(session.Options) == 0 {
		r := baseResult(session)
		r.Success = false
		r.Reason = "No options to rank"
		r.NextSteps = []string{"escalate"}
		return r
	}

	voteScores := weightedScoreByOption(session.Votes)
	combined := make(map[string]float64, len(session.Options))
	byID := make(map[string]model.VoteOption, len(session.Options))
	order := make([]string, 0, len(session.Options))
	for _, opt := range session.Options {
		byID[opt.ID] = opt
		order = append(order, opt.ID)
		combined[opt.ID] = 0.7*opt.ConstitutionalScore + 0.3*voteScores[opt.ID]
	}

	winner, _ := highestKey(combined, order)
	winOpt := byID[winner]

	r := baseResult(session)
	r.WinningOption = winner
	r.ConfidenceScore = winOpt.ConstitutionalScore
	threshold := session.ConfigFloat("min_constitutional_score", 0.7)
	if winOpt.ConstitutionalScore >= threshold {
		r.Success = true
	} else {
		r.Success = false
		r.Reason = "Winning option below minimum constitutional score"
		r.NextSteps = []string{"escalate"}
	}
	return r
}

func expertMediation(session model.ConsensusSession) model.ConsensusResult {
	var expertVotes []model.Vote
	for _, v := range session.Votes {
		if v.VoterType == model.VoterHuman || v.VoterType == model.VoterHumanExpert {
			expertVotes = append(expertVotes, v)
		}
	}

	r := baseResult(session)
	if len(expertVotes) == 0 {
		r.Success = false
		r.Reason = "No expert votes cast"
		r.NextSteps = []string{"expert_review"}
		return r
	}

	counts := countByOption(expertVotes)
	total := float64(len(expertVotes))
	threshold := session.ConfigFloat("expert_consensus_threshold", 0.7)

	order := optionOrder(session)
	for _, id := range order {
		agreement := float64(counts[id]) / total
		if agreement >= threshold {
			r.Success = true
			r.WinningOption = id
			r.ConfidenceScore = agreement
			return r
		}
	}

	// No option met the bar: report the highest-agreement option with failure.
	bestID, bestAgreement := "", 0.0
	for _, id := range order {
		agreement := float64(counts[id]) / total
		if agreement > bestAgreement {
			bestID, bestAgreement = id, agreement
		}
	}
	r.Success = false
	r.WinningOption = bestID
	r.ConfidenceScore = bestAgreement
	r.Reason = "No option reached expert consensus"
	r.NextSteps = []string{"expert_review"}
	return r
}
