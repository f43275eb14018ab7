package blackboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

// CreateTask persists task, adding it to the pending priority queue. If
// task.ID is empty one is generated. Publishes task_created.
func (s *Store) CreateTask(ctx context.Context, task model.TaskDefinition) (string, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.Status = model.TaskPending
	if task.MaxRetries == 0 {
		task.MaxRetries = model.DefaultMaxRetries
	}
	if !model.ValidPriority(task.Priority) {
		task.Priority = 5
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return "", model.NewError("blackboard.create_task", model.KindTransient, err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, taskKey(task.ID), dataField, payload)
	pipe.ZAdd(ctx, taskStatusPriorityKey(model.TaskPending), redis.Z{Score: float64(task.Priority), Member: task.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", model.NewError("blackboard.create_task", model.KindTransient, err)
	}

	s.publish(ctx, ChannelTaskCreated, "task_created", task)
	return task.ID, nil
}

// ClaimTask atomically claims task_id for agent_id. Returns false (not an
// error) if the task is absent, already claimed, or lost a race (P1): the
// caller treats a false return as ContentionExhausted-equivalent, not a
// fault of its own.
func (s *Store) ClaimTask(ctx context.Context, taskID, agentID string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.claimScript.Run(ctx, s.rdb, []string{
		taskKey(taskID),
		taskStatusPriorityKey(model.TaskPending),
		taskStatusPriorityKey(model.TaskClaimed),
		agentTaskIndexKey(agentID),
	}, taskID, agentID, now).Int()
	if err != nil {
		return false, model.NewError("blackboard.claim_task", model.KindTransient, err)
	}
	claimed := res == 1
	if claimed {
		s.publish(ctx, ChannelTaskClaimed, "task_claimed", map[string]any{"task_id": taskID, "agent_id": agentID})
	}
	return claimed, nil
}

// hasTimestampIndex reports whether status maintains the terminal
// timestamp index (completed/failed, per the storage backend table).
func hasTimestampIndex(status model.TaskStatus) bool {
	return status == model.TaskCompleted || status == model.TaskFailed
}

// UpdateTaskStatus validates and applies a transition per I2 (only the
// holding agent may move a task to a terminal state) and the state machine
// in internal/model. currentStatus is the caller's last-known status,
// asserted by the script to guard against acting on stale reads.
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID, agentID string, currentStatus, newStatus model.TaskStatus, output, errDetails map[string]any) (bool, error) {
	if !model.CanTransition(currentStatus, newStatus) {
		return false, model.NewError("blackboard.update_task_status", model.KindInvalidTransition, nil)
	}

	outputJSON := []byte("null")
	if output != nil {
		b, err := json.Marshal(output)
		if err != nil {
			return false, model.NewError("blackboard.update_task_status", model.KindTransient, err)
		}
		outputJSON = b
	}
	errJSON := []byte("null")
	if errDetails != nil {
		b, err := json.Marshal(errDetails)
		if err != nil {
			return false, model.NewError("blackboard.update_task_status", model.KindTransient, err)
		}
		errJSON = b
	}

	now := time.Now().UTC()
	timestampFlag := "0"
	timestampKey := taskStatusTimestampKey(newStatus)
	if hasTimestampIndex(newStatus) {
		timestampFlag = "1"
	}

	res, err := s.statusScript.Run(ctx, s.rdb, []string{
		taskKey(taskID),
		taskStatusPriorityKey(currentStatus),
		taskStatusPriorityKey(newStatus),
		timestampKey,
	},
		taskID, string(newStatus), now.Format(time.RFC3339Nano), now.Unix(),
		string(outputJSON), string(errJSON), agentID, string(currentStatus), timestampFlag,
	).Int()
	if err != nil {
		return false, model.NewError("blackboard.update_task_status", model.KindTransient, err)
	}

	switch res {
	case 0:
		return false, model.NewError("blackboard.update_task_status", model.KindNotFound, model.ErrNotFound)
	case 1:
		return false, model.NewError("blackboard.update_task_status", model.KindInvalidTransition, nil)
	case 2:
		return false, model.NewError("blackboard.update_task_status", model.KindUnauthorizedActor, nil)
	}

	if newStatus == model.TaskCompleted {
		s.publish(ctx, ChannelTaskCompleted, "task_completed", map[string]any{"task_id": taskID, "output": output})
	} else if newStatus == model.TaskFailed {
		s.publish(ctx, ChannelTaskFailed, "task_failed", map[string]any{"task_id": taskID, "error": errDetails})
	}
	return true, nil
}

// GetTask returns the task by id, or ErrNotFound if absent.
func (s *Store) GetTask(ctx context.Context, taskID string) (model.TaskDefinition, error) {
	raw, err := s.rdb.HGet(ctx, taskKey(taskID), dataField).Result()
	if err == redis.Nil {
		return model.TaskDefinition{}, model.NewError("blackboard.get_task", model.KindNotFound, model.ErrNotFound)
	}
	if err != nil {
		return model.TaskDefinition{}, model.NewError("blackboard.get_task", model.KindTransient, err)
	}
	var task model.TaskDefinition
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return model.TaskDefinition{}, model.NewError("blackboard.get_task", model.KindTransient, err)
	}
	return task, nil
}

// GetAvailableTasks returns the highest-priority pending tasks, optionally
// filtered by taskTypes, excluding any whose dependencies are not all
// completed (I3, P3). Results are ordered non-decreasing by priority (P7).
func (s *Store) GetAvailableTasks(ctx context.Context, taskTypes []string, limit int) ([]model.TaskDefinition, error) {
	if limit <= 0 {
		limit = 10
	}
	ids, err := s.rdb.ZRange(ctx, taskStatusPriorityKey(model.TaskPending), 0, -1).Result()
	if err != nil {
		return nil, model.NewError("blackboard.get_available_tasks", model.KindTransient, err)
	}

	wantType := make(map[string]bool, len(taskTypes))
	for _, t := range taskTypes {
		wantType[t] = true
	}

	results := make([]model.TaskDefinition, 0, limit)
	for _, id := range ids {
		if len(results) >= limit {
			break
		}
		task, err := s.GetTask(ctx, id)
		if err != nil {
			if model.Is(err, model.KindNotFound) {
				continue
			}
			return nil, err
		}
		if task.Status != model.TaskPending {
			continue
		}
		if len(wantType) > 0 && !wantType[task.TaskType] {
			continue
		}
		satisfied, err := s.dependenciesCompleted(ctx, task.Dependencies)
		if err != nil {
			return nil, err
		}
		if !satisfied {
			continue
		}
		results = append(results, task)
	}
	return results, nil
}

func (s *Store) dependenciesCompleted(ctx context.Context, deps []string) (bool, error) {
	if len(deps) == 0 {
		return true, nil
	}
	completed := make(map[string]bool, len(deps))
	for _, dep := range deps {
		task, err := s.GetTask(ctx, dep)
		if err != nil {
			if model.Is(err, model.KindNotFound) {
				completed[dep] = false
				continue
			}
			return false, err
		}
		completed[dep] = task.Status == model.TaskCompleted
	}
	return model.DependenciesSatisfied(deps, completed), nil
}

// GetAgentTasks returns agentID's tasks, optionally filtered to statuses.
func (s *Store) GetAgentTasks(ctx context.Context, agentID string, statuses []model.TaskStatus) ([]model.TaskDefinition, error) {
	ids, err := s.rdb.SMembers(ctx, agentTaskIndexKey(agentID)).Result()
	if err != nil {
		return nil, model.NewError("blackboard.get_agent_tasks", model.KindTransient, err)
	}

	wantStatus := make(map[model.TaskStatus]bool, len(statuses))
	for _, st := range statuses {
		wantStatus[st] = true
	}

	results := make([]model.TaskDefinition, 0, len(ids))
	for _, id := range ids {
		task, err := s.GetTask(ctx, id)
		if err != nil {
			if model.Is(err, model.KindNotFound) {
				continue
			}
			return nil, err
		}
		if len(wantStatus) > 0 && !wantStatus[task.Status] {
			continue
		}
		results = append(results, task)
	}
	return results, nil
}
