package blackboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

// RegisterAgent persists agent and adds it to the active set. Publishes
// agent_status.
func (s *Store) RegisterAgent(ctx context.Context, agent model.AgentRegistration) error {
	now := time.Now().UTC()
	if agent.RegisteredAt.IsZero() {
		agent.RegisteredAt = now
	}
	agent.LastHeartbeat = now
	agent.Status = model.AgentActive

	payload, err := json.Marshal(agent)
	if err != nil {
		return model.NewError("blackboard.register_agent", model.KindTransient, err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, agentKey(agent.AgentID), dataField, payload)
	pipe.SAdd(ctx, activeAgentsKey, agent.AgentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.NewError("blackboard.register_agent", model.KindTransient, err)
	}

	s.publish(ctx, ChannelAgentStatus, "agent_registered", agent)
	return nil
}

// AgentHeartbeat refreshes agentID's last-heartbeat instant.
func (s *Store) AgentHeartbeat(ctx context.Context, agentID string) error {
	agent, err := s.getAgent(ctx, agentID)
	if err != nil {
		return err
	}
	agent.LastHeartbeat = time.Now().UTC()
	agent.Status = model.AgentActive

	payload, err := json.Marshal(agent)
	if err != nil {
		return model.NewError("blackboard.agent_heartbeat", model.KindTransient, err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, agentKey(agentID), dataField, payload)
	pipe.SAdd(ctx, activeAgentsKey, agentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.NewError("blackboard.agent_heartbeat", model.KindTransient, err)
	}
	return nil
}

func (s *Store) getAgent(ctx context.Context, agentID string) (model.AgentRegistration, error) {
	raw, err := s.rdb.HGet(ctx, agentKey(agentID), dataField).Result()
	if err == redis.Nil {
		return model.AgentRegistration{}, model.NewError("blackboard.get_agent", model.KindNotFound, model.ErrNotFound)
	}
	if err != nil {
		return model.AgentRegistration{}, model.NewError("blackboard.get_agent", model.KindTransient, err)
	}
	var agent model.AgentRegistration
	if err := json.Unmarshal([]byte(raw), &agent); err != nil {
		return model.AgentRegistration{}, model.NewError("blackboard.get_agent", model.KindTransient, err)
	}
	return agent, nil
}

// GetActiveAgents returns every agent currently in the active set.
func (s *Store) GetActiveAgents(ctx context.Context) ([]model.AgentRegistration, error) {
	ids, err := s.rdb.SMembers(ctx, activeAgentsKey).Result()
	if err != nil {
		return nil, model.NewError("blackboard.get_active_agents", model.KindTransient, err)
	}
	results := make([]model.AgentRegistration, 0, len(ids))
	for _, id := range ids {
		agent, err := s.getAgent(ctx, id)
		if err != nil {
			if model.Is(err, model.KindNotFound) {
				continue
			}
			return nil, err
		}
		results = append(results, agent)
	}
	return results, nil
}

// CheckAgentTimeouts removes agents whose last heartbeat is older than
// thresholdMinutes (default 5) from the active set and returns their ids.
// Per the recovery policy (spec §9): for each timed-out agent, its
// claimed/in_progress tasks are requeued to pending with retries
// incremented, or failed with error_details={"reason":"agent_timeout"} once
// the retry budget is exhausted.
func (s *Store) CheckAgentTimeouts(ctx context.Context, thresholdMinutes int) ([]string, error) {
	if thresholdMinutes <= 0 {
		thresholdMinutes = 5
	}
	agents, err := s.GetActiveAgents(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var timedOut []string
	for _, agent := range agents {
		if !agent.TimedOut(now, thresholdMinutes) {
			continue
		}
		timedOut = append(timedOut, agent.AgentID)

		if err := s.rdb.SRem(ctx, activeAgentsKey, agent.AgentID).Err(); err != nil {
			return nil, model.NewError("blackboard.check_agent_timeouts", model.KindTransient, err)
		}
		agent.Status = model.AgentInactive
		payload, err := json.Marshal(agent)
		if err == nil {
			s.rdb.HSet(ctx, agentKey(agent.AgentID), dataField, payload)
		}
		s.publish(ctx, ChannelAgentStatus, "agent_timeout", map[string]any{"agent_id": agent.AgentID})

		if err := s.requeueAgentTasks(ctx, agent.AgentID); err != nil {
			return nil, err
		}
	}
	return timedOut, nil
}

// requeueAgentTasks implements the agent-timeout recovery policy: each
// claimed/in_progress task held by agentID is returned to pending with
// Retries incremented, or failed with a well-known reason once its retry
// budget is exhausted.
func (s *Store) requeueAgentTasks(ctx context.Context, agentID string) error {
	tasks, err := s.GetAgentTasks(ctx, agentID, []model.TaskStatus{model.TaskClaimed, model.TaskInProgress})
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if task.Retries+1 > task.MaxRetries {
			if _, err := s.UpdateTaskStatus(ctx, task.ID, agentID, task.Status, model.TaskFailed, nil,
				map[string]any{"reason": "agent_timeout"}); err != nil {
				return err
			}
			continue
		}
		if err := s.requeueTask(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

// requeueTask moves task directly back to pending bypassing the normal
// caller-asserted UpdateTaskStatus path, since the originating agent is no
// longer a trustworthy actor to assert on its own behalf; the store itself
// is the actor here; it increments Retries and clears the claimant.
func (s *Store) requeueTask(ctx context.Context, task model.TaskDefinition) error {
	from := task.Status
	task.Status = model.TaskPending
	task.AgentID = ""
	task.ClaimedAt = nil
	task.Retries++

	payload, err := json.Marshal(task)
	if err != nil {
		return model.NewError("blackboard.requeue_task", model.KindTransient, err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, taskKey(task.ID), dataField, payload)
	pipe.ZRem(ctx, taskStatusPriorityKey(from), task.ID)
	pipe.ZAdd(ctx, taskStatusPriorityKey(model.TaskPending), redis.Z{Score: float64(task.Priority), Member: task.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return model.NewError("blackboard.requeue_task", model.KindTransient, err)
	}
	return nil
}
