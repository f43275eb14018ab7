package blackboard

import (
	"context"

	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

// Metrics is the cardinality snapshot returned by GetMetrics.
type Metrics struct {
	PendingTasks      int64            `json:"pending_tasks"`
	ClaimedTasks      int64            `json:"claimed_tasks"`
	InProgressTasks   int64            `json:"in_progress_tasks"`
	CompletedTasks    int64            `json:"completed_tasks"`
	FailedTasks       int64            `json:"failed_tasks"`
	OpenConflicts     int64            `json:"open_conflicts"`
	ActiveAgents      int64            `json:"active_agents"`
	KnowledgeBySpace  map[string]int64 `json:"knowledge_by_space"`
}

// GetMetrics returns cardinalities of each queue/index.
func (s *Store) GetMetrics(ctx context.Context) (Metrics, error) {
	m := Metrics{KnowledgeBySpace: make(map[string]int64)}

	var err error
	if m.PendingTasks, err = s.rdb.ZCard(ctx, taskStatusPriorityKey(model.TaskPending)).Result(); err != nil {
		return Metrics{}, model.NewError("blackboard.get_metrics", model.KindTransient, err)
	}
	if m.ClaimedTasks, err = s.rdb.ZCard(ctx, taskStatusPriorityKey(model.TaskClaimed)).Result(); err != nil {
		return Metrics{}, model.NewError("blackboard.get_metrics", model.KindTransient, err)
	}
	if m.InProgressTasks, err = s.rdb.ZCard(ctx, taskStatusPriorityKey(model.TaskInProgress)).Result(); err != nil {
		return Metrics{}, model.NewError("blackboard.get_metrics", model.KindTransient, err)
	}
	if m.CompletedTasks, err = s.rdb.ZCard(ctx, taskStatusPriorityKey(model.TaskCompleted)).Result(); err != nil {
		return Metrics{}, model.NewError("blackboard.get_metrics", model.KindTransient, err)
	}
	if m.FailedTasks, err = s.rdb.ZCard(ctx, taskStatusPriorityKey(model.TaskFailed)).Result(); err != nil {
		return Metrics{}, model.NewError("blackboard.get_metrics", model.KindTransient, err)
	}
	if m.OpenConflicts, err = s.rdb.ZCard(ctx, conflictStatusPriorityKey(model.ConflictOpen)).Result(); err != nil {
		return Metrics{}, model.NewError("blackboard.get_metrics", model.KindTransient, err)
	}
	if m.ActiveAgents, err = s.rdb.SCard(ctx, activeAgentsKey).Result(); err != nil {
		return Metrics{}, model.NewError("blackboard.get_metrics", model.KindTransient, err)
	}

	spaces := []model.Space{
		model.SpaceGovernance, model.SpaceCompliance, model.SpacePerformance,
		model.SpaceCoordination, model.SpaceTasks, model.SpaceConflicts, model.SpaceAgents,
	}
	for _, space := range spaces {
		count, err := s.rdb.ZCard(ctx, spacePriorityKey(space)).Result()
		if err != nil {
			return Metrics{}, model.NewError("blackboard.get_metrics", model.KindTransient, err)
		}
		m.KnowledgeBySpace[string(space)] = count
	}
	return m, nil
}
