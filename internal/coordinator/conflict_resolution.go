package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

// conflictResolver runs the background conflict-resolution loop described
// in coordinator_agent.py's _conflict_resolution_loop, dispatching by
// ConflictType: decision conflicts go through the consensus engine,
// resource and policy conflicts resolve immediately via static strategies.
type conflictResolver struct {
	store     conflictStore
	consensus consensusRunner
	logger    *slog.Logger

	mu               sync.Mutex
	pendingSessions  map[string]string // conflict id -> consensus session id
}

type conflictStore interface {
	GetOpenConflicts(ctx context.Context) ([]model.ConflictItem, error)
	ResolveConflict(ctx context.Context, conflictID string, newStatus model.ConflictStatus, strategy string, data map[string]any) (bool, error)
}

type consensusRunner interface {
	InitiateConsensus(conflictID string, algorithm model.Algorithm, participants []string, options []model.VoteOption, deadlineHours float64, config map[string]float64) string
	ExecuteConsensus(sessionID string) (model.ConsensusResult, error)
}

func newConflictResolver(store conflictStore, engine consensusRunner, logger *slog.Logger) *conflictResolver {
	return &conflictResolver{store: store, consensus: engine, logger: logger, pendingSessions: make(map[string]string)}
}

// Run polls GetOpenConflicts every interval until ctx is cancelled.
func (r *conflictResolver) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *conflictResolver) tick(ctx context.Context) {
	conflicts, err := r.store.GetOpenConflicts(ctx)
	if err != nil {
		r.logger.Warn("coordinator: get open conflicts", "error", err)
		return
	}
	for _, conflict := range conflicts {
		r.resolve(ctx, conflict)
	}
	r.checkPendingSessions(ctx)
}

func (r *conflictResolver) resolve(ctx context.Context, conflict model.ConflictItem) {
	switch conflict.ConflictType {
	case "resource_conflict":
		r.resolveImmediate(ctx, conflict, "priority_based_allocation", map[string]any{
			"allocation_decision": "highest_priority_wins",
			"reasoning":           "resource allocated based on task priority",
		})
	case "policy_conflict":
		r.resolveImmediate(ctx, conflict, "constitutional_precedence", map[string]any{
			"decision":  "defer_to_constitutional_principles",
			"reasoning": "constitutional principles take precedence over conflicting policies",
		})
	default: // decision_conflict and anything unrecognized
		r.resolveThroughConsensus(ctx, conflict)
	}
}

func (r *conflictResolver) resolveImmediate(ctx context.Context, conflict model.ConflictItem, strategy string, data map[string]any) {
	if _, err := r.store.ResolveConflict(ctx, conflict.ID, model.ConflictInResolution, strategy, data); err != nil {
		r.logger.Warn("coordinator: move conflict to in_resolution", "conflict_id", conflict.ID, "error", err)
		return
	}
	if _, err := r.store.ResolveConflict(ctx, conflict.ID, model.ConflictResolved, strategy, data); err != nil {
		r.logger.Warn("coordinator: resolve conflict", "conflict_id", conflict.ID, "error", err)
	}
}

func (r *conflictResolver) resolveThroughConsensus(ctx context.Context, conflict model.ConflictItem) {
	r.mu.Lock()
	_, tracked := r.pendingSessions[conflict.ID]
	r.mu.Unlock()
	if tracked {
		return
	}

	participants := conflict.InvolvedAgents
	if len(participants) == 0 {
		participants = []string{"coordinator"}
	}
	sessionID := r.consensus.InitiateConsensus(
		conflict.ID, model.AlgorithmConstitutionalPriority, participants,
		resolutionOptions(conflict), 24, nil,
	)

	r.mu.Lock()
	r.pendingSessions[conflict.ID] = sessionID
	r.mu.Unlock()

	if _, err := r.store.ResolveConflict(ctx, conflict.ID, model.ConflictInResolution, "consensus_delegated", map[string]any{
		"session_id": sessionID,
	}); err != nil {
		r.logger.Warn("coordinator: move conflict to in_resolution", "conflict_id", conflict.ID, "error", err)
	}
}

// checkPendingSessions finalizes any tracked consensus session that has
// reached a terminal outcome, moving its conflict to resolved or escalated.
func (r *conflictResolver) checkPendingSessions(ctx context.Context) {
	r.mu.Lock()
	pending := make(map[string]string, len(r.pendingSessions))
	for k, v := range r.pendingSessions {
		pending[k] = v
	}
	r.mu.Unlock()

	for conflictID, sessionID := range pending {
		result, err := r.consensus.ExecuteConsensus(sessionID)
		if err != nil {
			continue
		}
		newStatus := model.ConflictResolved
		if !result.Success {
			newStatus = model.ConflictEscalated
		}
		if _, err := r.store.ResolveConflict(ctx, conflictID, newStatus, "consensus_"+string(result.Algorithm), map[string]any{
			"consensus_result": result,
		}); err != nil {
			r.logger.Warn("coordinator: finalize conflict from consensus", "conflict_id", conflictID, "error", err)
			continue
		}
		r.mu.Lock()
		delete(r.pendingSessions, conflictID)
		r.mu.Unlock()
	}
}

// resolutionOptions mirrors _generate_resolution_options: conflict-type
// specific candidate resolutions, falling back to escalation/constitutional
// review for anything else. Every option carries a risk-informed
// ConstitutionalScore: options that err toward caution, human oversight, or
// the constitutional framework itself score highest, since
// constitutionalPriority (the only algorithm this loop drives) weighs
// ConstitutionalScore at 0.7 against a 0.3 vote share this background loop
// never actually casts.
func resolutionOptions(conflict model.ConflictItem) []model.VoteOption {
	switch conflict.ConflictType {
	case "risk_assessment_conflict":
		return []model.VoteOption{
			{ID: "use_highest_risk", Name: "Use the highest risk assessment for safety", ConstitutionalScore: 0.9},
			{ID: "require_consensus", Name: "Require agents to reach consensus", ConstitutionalScore: 0.75},
			{ID: "use_average_risk", Name: "Use average of all risk assessments", ConstitutionalScore: 0.4},
		}
	case "approval_conflict":
		return []model.VoteOption{
			{ID: "constitutional_override", Name: "Apply constitutional principles", ConstitutionalScore: 0.95},
			{ID: "require_unanimous_approval", Name: "Require all agents to approve", ConstitutionalScore: 0.8},
			{ID: "majority_rule", Name: "Use majority decision", ConstitutionalScore: 0.5},
		}
	default: // decision_conflict and anything unrecognized
		return []model.VoteOption{
			{ID: "apply_constitutional_principles", Name: "Apply constitutional framework", ConstitutionalScore: 0.95},
			{ID: "escalate_to_human", Name: "Escalate to human oversight", ConstitutionalScore: 0.85},
		}
	}
}
