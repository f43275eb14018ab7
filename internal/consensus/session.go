package consensus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CA-git-com-co/ACGS-sub011/internal/blackboard"
	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

// knowledgePublisher is the narrow slice of blackboard.Store the engine
// needs: emitting consensus_session_event knowledge items. Kept as an
// interface so tests can substitute a recording fake without a Redis
// instance where only event emission matters.
type knowledgePublisher interface {
	AddKnowledge(ctx context.Context, item model.KnowledgeItem) (string, error)
}

// Engine operates ConsensusSessions to a terminal state. Sessions are kept
// in memory (cleanup_old_sessions prunes terminal sessions older than its
// threshold); only session-transition events are mirrored onto the
// blackboard as consensus_session_event knowledge items, per spec.md §4.4.
type Engine struct {
	mu       sync.Mutex
	sessions map[string]*model.ConsensusSession

	store  knowledgePublisher
	logger *slog.Logger
}

// NewEngine builds a consensus Engine publishing session events through
// store. store may be nil (e.g. in tests that only exercise algorithm
// logic), in which case session events are simply not emitted.
func NewEngine(store *blackboard.Store, logger *slog.Logger) *Engine {
	e := &Engine{
		sessions: make(map[string]*model.ConsensusSession),
		logger:   logger,
	}
	if store != nil {
		e.store = store
	}
	return e
}

func (e *Engine) emit(eventType string, session model.ConsensusSession) {
	if e.store == nil {
		return
	}
	item := model.KnowledgeItem{
		Space:         model.SpaceCoordination,
		KnowledgeType: "consensus_session_event",
		Priority:      3,
		Content: map[string]any{
			"event_type": eventType,
			"session_id": session.ID,
			"status":     session.Status,
		},
	}
	if _, err := e.store.AddKnowledge(context.Background(), item); err != nil {
		e.logger.Warn("consensus: emit session event", "session_id", session.ID, "error", err)
	}
}

// InitiateConsensus creates a new active session for conflict, to be
// resolved by algorithm among participants over options, expiring after
// deadlineHours (default 24 if zero).
func (e *Engine) InitiateConsensus(conflictID string, algorithm model.Algorithm, participants []string, options []model.VoteOption, deadlineHours float64, config map[string]float64) string {
	if deadlineHours <= 0 {
		deadlineHours = 24
	}
	now := time.Now().UTC()
	session := &model.ConsensusSession{
		ID:            uuid.NewString(),
		ConflictID:    conflictID,
		Algorithm:     algorithm,
		Participants:  participants,
		Options:       options,
		Status:        model.SessionActive,
		CreatedAt:     now,
		Deadline:      now.Add(time.Duration(deadlineHours * float64(time.Hour))),
		SessionConfig: config,
	}

	e.mu.Lock()
	e.sessions[session.ID] = session
	e.mu.Unlock()

	e.emit("session_initiated", *session)
	return session.ID
}

// CastVote replaces voterID's prior vote (I4). Returns false without error
// if the session is not active, the voter isn't a participant, or the
// option doesn't exist on the session.
func (e *Engine) CastVote(sessionID, voterID string, voterType model.VoterType, optionID string, confidence float64, reasoning string, weight float64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	session, ok := e.sessions[sessionID]
	if !ok {
		return false, model.NewError("consensus.cast_vote", model.KindNotFound, model.ErrNotFound)
	}
	if session.Status != model.SessionActive {
		return false, nil
	}
	if !session.IsParticipant(voterID) {
		return false, nil
	}
	if !session.HasOption(optionID) {
		return false, nil
	}
	if weight <= 0 {
		weight = 1
	}

	session.Votes = model.UpsertVote(session.Votes, model.Vote{
		VoterID: voterID, VoterType: voterType, OptionID: optionID,
		Confidence: confidence, Reasoning: reasoning, CastAt: time.Now().UTC(), Weight: weight,
	})
	return true, nil
}

// ExecuteConsensus runs session's algorithm if not already terminal. On
// non-success it applies the failure-handling routine (escalate, expand
// participants, or extend deadline) per spec.md §4.4. Repeated invocations
// after a terminal outcome are no-ops returning the stored result (R2).
func (e *Engine) ExecuteConsensus(sessionID string) (model.ConsensusResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	session, ok := e.sessions[sessionID]
	if !ok {
		return model.ConsensusResult{}, model.NewError("consensus.execute_consensus", model.KindNotFound, model.ErrNotFound)
	}
	if session.Status.IsTerminal() && session.Result != nil {
		return *session.Result, nil
	}

	fn, ok := algorithms[session.Algorithm]
	if !ok {
		return model.ConsensusResult{}, model.NewError("consensus.execute_consensus", model.KindInvalidTransition, nil)
	}

	result := fn(*session)
	if result.Success {
		session.Status = model.SessionCompleted
		session.Result = &result
		e.emit("session_completed", *session)
		return result, nil
	}

	session.Status = model.SessionFailed
	session.Result = &result
	e.emit("session_failed", *session)
	e.applyFailureHandling(session, result)
	return result, nil
}

// applyFailureHandling inspects result.NextSteps per spec.md §4.4: escalate
// or expert_review ⇒ escalate to human_review; add_participants ⇒ (left to
// the caller, which owns the participant roster — the engine records the
// intent via escalation metadata since it has no authority to invent new
// participant ids); extend_deadline ⇒ push the deadline out 24h and
// reactivate. Anything else defaults to human_review escalation.
func (e *Engine) applyFailureHandling(session *model.ConsensusSession, result model.ConsensusResult) {
	hasStep := func(step string) bool {
		for _, s := range result.NextSteps {
			if s == step {
				return true
			}
		}
		return false
	}

	switch {
	case hasStep("extend_deadline"):
		session.Deadline = session.Deadline.Add(24 * time.Hour)
		session.Status = model.SessionActive
	case hasStep("add_participants"):
		session.Status = model.SessionEscalated
		session.Result.Escalation = map[string]any{"escalation_type": "add_participants"}
	case hasStep("escalate"), hasStep("expert_review"):
		session.Status = model.SessionEscalated
		session.Result.Escalation = map[string]any{"escalation_type": "human_review"}
	default:
		session.Status = model.SessionEscalated
		session.Result.Escalation = map[string]any{"escalation_type": "human_review"}
	}
	e.emit("session_"+string(session.Status), *session)
}

// CheckSessionDeadlines marks every active session past its deadline as
// failed with reason "Deadline expired", then subjects it to the same
// failure-handling routine as ExecuteConsensus, returning the expired
// session ids.
func (e *Engine) CheckSessionDeadlines() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	var expired []string
	for id, session := range e.sessions {
		if session.Status != model.SessionActive || !now.After(session.Deadline) {
			continue
		}
		result := model.ConsensusResult{
			Success:            false,
			Algorithm:          session.Algorithm,
			Reason:             "Deadline expired",
			ConstitutionalHash: model.ComplianceTag,
		}
		session.Status = model.SessionFailed
		session.Result = &result
		e.emit("session_deadline_expired", *session)
		e.applyFailureHandling(session, result)
		expired = append(expired, id)
	}
	return expired
}

// EscalateSession force-escalates session, attaching escalationType/data to
// its result.
func (e *Engine) EscalateSession(sessionID, escalationType string, data map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	session, ok := e.sessions[sessionID]
	if !ok {
		return model.NewError("consensus.escalate_session", model.KindNotFound, model.ErrNotFound)
	}
	session.Status = model.SessionEscalated
	if session.Result == nil {
		session.Result = &model.ConsensusResult{Algorithm: session.Algorithm, ConstitutionalHash: model.ComplianceTag}
	}
	escalation := map[string]any{"escalation_type": escalationType}
	for k, v := range data {
		escalation[k] = v
	}
	session.Result.Escalation = escalation
	e.emit("session_escalated", *session)
	return nil
}

// ConsensusMetrics aggregates session counts and mean resolution time.
type ConsensusMetrics struct {
	TotalSessions     int
	ActiveSessions    int
	CompletedSessions int
	FailedSessions    int
	EscalatedSessions int
	MeanResolutionSec float64
}

// GetConsensusMetrics aggregates counts and the mean resolution time across
// terminal sessions (CreatedAt to now, as a proxy for resolution instant —
// the engine does not separately timestamp the terminal transition).
func (e *Engine) GetConsensusMetrics() ConsensusMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	var m ConsensusMetrics
	var totalSec float64
	var terminalCount int
	now := time.Now()
	for _, session := range e.sessions {
		m.TotalSessions++
		switch session.Status {
		case model.SessionActive:
			m.ActiveSessions++
		case model.SessionCompleted:
			m.CompletedSessions++
			totalSec += now.Sub(session.CreatedAt).Seconds()
			terminalCount++
		case model.SessionFailed:
			m.FailedSessions++
			totalSec += now.Sub(session.CreatedAt).Seconds()
			terminalCount++
		case model.SessionEscalated:
			m.EscalatedSessions++
			totalSec += now.Sub(session.CreatedAt).Seconds()
			terminalCount++
		}
	}
	if terminalCount > 0 {
		m.MeanResolutionSec = totalSec / float64(terminalCount)
	}
	return m
}

// CleanupOldSessions drops terminal sessions older than maxAgeDays (default
// 7 if zero) from memory. Returns the number dropped.
func (e *Engine) CleanupOldSessions(maxAgeDays float64) int {
	if maxAgeDays <= 0 {
		maxAgeDays = 7
	}
	cutoff := time.Now().Add(-time.Duration(maxAgeDays*24) * time.Hour)

	e.mu.Lock()
	defer e.mu.Unlock()

	dropped := 0
	for id, session := range e.sessions {
		if session.Status.IsTerminal() && session.CreatedAt.Before(cutoff) {
			delete(e.sessions, id)
			dropped++
		}
	}
	return dropped
}

// GetSession returns a copy of the session by id, for callers (e.g. the
// coordinator's conflict resolution loop) that need to inspect state
// without mutating it directly.
func (e *Engine) GetSession(sessionID string) (model.ConsensusSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	session, ok := e.sessions[sessionID]
	if !ok {
		return model.ConsensusSession{}, model.NewError("consensus.get_session", model.KindNotFound, model.ErrNotFound)
	}
	return *session, nil
}
