package blackboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

// ReportConflict persists a new open conflict, indexed by severity (critical
// first). Publishes conflict_detected.
func (s *Store) ReportConflict(ctx context.Context, conflict model.ConflictItem) (string, error) {
	if conflict.ID == "" {
		conflict.ID = uuid.NewString()
	}
	if conflict.CreatedAt.IsZero() {
		conflict.CreatedAt = time.Now().UTC()
	}
	conflict.Status = model.ConflictOpen

	payload, err := json.Marshal(conflict)
	if err != nil {
		return "", model.NewError("blackboard.report_conflict", model.KindTransient, err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, conflictKey(conflict.ID), dataField, payload)
	pipe.ZAdd(ctx, conflictStatusPriorityKey(model.ConflictOpen), redis.Z{
		Score: model.SeverityScore(conflict.Severity), Member: conflict.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", model.NewError("blackboard.report_conflict", model.KindTransient, err)
	}

	s.publish(ctx, ChannelConflictDetected, "conflict_detected", conflict)
	return conflict.ID, nil
}

// ResolveConflict transitions a conflict to newStatus (in_resolution,
// resolved or escalated), recording strategy/data and, for terminal moves,
// ResolvedAt.
func (s *Store) ResolveConflict(ctx context.Context, conflictID string, newStatus model.ConflictStatus, strategy string, data map[string]any) (bool, error) {
	conflict, err := s.GetConflict(ctx, conflictID)
	if err != nil {
		return false, err
	}
	if !model.CanTransitionConflict(conflict.Status, newStatus) {
		return false, model.NewError("blackboard.resolve_conflict", model.KindInvalidTransition, nil)
	}

	from := conflict.Status
	conflict.Status = newStatus
	conflict.ResolutionStrategy = strategy
	conflict.ResolutionData = data
	if newStatus == model.ConflictResolved || newStatus == model.ConflictEscalated {
		now := time.Now().UTC()
		conflict.ResolvedAt = &now
	}

	payload, err := json.Marshal(conflict)
	if err != nil {
		return false, model.NewError("blackboard.resolve_conflict", model.KindTransient, err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, conflictKey(conflict.ID), dataField, payload)
	pipe.ZRem(ctx, conflictStatusPriorityKey(from), conflict.ID)
	pipe.ZAdd(ctx, conflictStatusPriorityKey(newStatus), redis.Z{
		Score: model.SeverityScore(conflict.Severity), Member: conflict.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return false, model.NewError("blackboard.resolve_conflict", model.KindTransient, err)
	}
	return true, nil
}

// GetConflict returns the conflict by id, or ErrNotFound if absent.
func (s *Store) GetConflict(ctx context.Context, conflictID string) (model.ConflictItem, error) {
	raw, err := s.rdb.HGet(ctx, conflictKey(conflictID), dataField).Result()
	if err == redis.Nil {
		return model.ConflictItem{}, model.NewError("blackboard.get_conflict", model.KindNotFound, model.ErrNotFound)
	}
	if err != nil {
		return model.ConflictItem{}, model.NewError("blackboard.get_conflict", model.KindTransient, err)
	}
	var conflict model.ConflictItem
	if err := json.Unmarshal([]byte(raw), &conflict); err != nil {
		return model.ConflictItem{}, model.NewError("blackboard.get_conflict", model.KindTransient, err)
	}
	return conflict, nil
}

// GetOpenConflicts returns open conflicts ordered severity-first
// (critical, high, medium, low).
func (s *Store) GetOpenConflicts(ctx context.Context) ([]model.ConflictItem, error) {
	ids, err := s.rdb.ZRange(ctx, conflictStatusPriorityKey(model.ConflictOpen), 0, -1).Result()
	if err != nil {
		return nil, model.NewError("blackboard.get_open_conflicts", model.KindTransient, err)
	}
	results := make([]model.ConflictItem, 0, len(ids))
	for _, id := range ids {
		conflict, err := s.GetConflict(ctx, id)
		if err != nil {
			if model.Is(err, model.KindNotFound) {
				continue
			}
			return nil, err
		}
		results = append(results, conflict)
	}
	return results, nil
}
