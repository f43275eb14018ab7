// Package worker provides the uniform scaffold an external worker agent
// plugs into: claim loop, per-task dispatch to a domain handler, heartbeat,
// and result publishing. The harness knows nothing about domain logic
// (spec.md §4.3) — handlers are supplied by the embedder.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/CA-git-com-co/ACGS-sub011/internal/blackboard"
	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

// Handler executes one task's domain logic and returns a structured
// payload. It MUST be JSON-serializable and SHOULD include a "confidence"
// field for the coordinator's result integration.
type Handler func(ctx context.Context, task model.TaskDefinition) (map[string]any, error)

// Config configures a Harness's polling cadence and claim batch size.
type Config struct {
	AgentID           string
	AgentType         string
	TaskTypes         []string
	ClaimPollInterval time.Duration
	ClaimBatchSize    int
	HeartbeatInterval time.Duration
}

// Harness runs a claim loop and heartbeat loop against store, dispatching
// claimed tasks to the registered handler by task type.
type Harness struct {
	cfg      Config
	store    *blackboard.Store
	handlers map[string]Handler
	logger   *slog.Logger
}

// New builds a Harness with the given handler map (task_type -> Handler).
func New(cfg Config, store *blackboard.Store, handlers map[string]Handler, logger *slog.Logger) *Harness {
	if cfg.ClaimPollInterval <= 0 {
		cfg.ClaimPollInterval = 5 * time.Second
	}
	if cfg.ClaimBatchSize <= 0 {
		cfg.ClaimBatchSize = 5
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	return &Harness{cfg: cfg, store: store, handlers: handlers, logger: logger}
}

// Run registers the agent and starts the claim and heartbeat loops. It
// blocks until ctx is cancelled.
func (h *Harness) Run(ctx context.Context) error {
	if err := h.store.RegisterAgent(ctx, model.AgentRegistration{
		AgentID: h.cfg.AgentID, AgentType: h.cfg.AgentType, Capabilities: h.cfg.TaskTypes,
	}); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.claimLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		h.heartbeatLoop(ctx)
	}()
	wg.Wait()
	return nil
}

func (h *Harness) claimLoop(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.ClaimPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.claimAndDispatch(ctx)
		}
	}
}

func (h *Harness) claimAndDispatch(ctx context.Context) {
	tasks, err := h.store.GetAvailableTasks(ctx, h.cfg.TaskTypes, h.cfg.ClaimBatchSize)
	if err != nil {
		h.logger.Warn("worker: get available tasks", "agent_id", h.cfg.AgentID, "error", err)
		return
	}
	for _, task := range tasks {
		ok, err := h.store.ClaimTask(ctx, task.ID, h.cfg.AgentID)
		if err != nil {
			h.logger.Warn("worker: claim task", "task_id", task.ID, "error", err)
			continue
		}
		if !ok {
			continue // lost the race; another agent claimed it first
		}
		go h.execute(ctx, task)
	}
}

func (h *Harness) execute(ctx context.Context, task model.TaskDefinition) {
	handler, ok := h.handlers[task.TaskType]
	if !ok {
		h.logger.Warn("worker: no handler registered", "task_type", task.TaskType)
		return
	}

	start := time.Now()
	output, err := handler(ctx, task)
	elapsed := time.Since(start)

	if err != nil {
		_, uErr := h.store.UpdateTaskStatus(ctx, task.ID, h.cfg.AgentID, model.TaskClaimed, model.TaskFailed, nil,
			map[string]any{"error": err.Error(), "type": task.TaskType, "processing_time_ms": elapsed.Milliseconds()})
		if uErr != nil {
			h.logger.Warn("worker: update task status after handler error", "task_id", task.ID, "error", uErr)
		}
		return
	}

	if _, err := h.store.UpdateTaskStatus(ctx, task.ID, h.cfg.AgentID, model.TaskClaimed, model.TaskCompleted, output, nil); err != nil {
		h.logger.Warn("worker: update task status after handler success", "task_id", task.ID, "error", err)
		return
	}

	h.emitKnowledge(ctx, task, output)
}

// emitKnowledge writes the *_analysis_result knowledge item carrying the
// handler output and governance_request_id. Result integration in
// internal/coordinator reads each task's output_data from the task record and
// does not consult these items.
func (h *Harness) emitKnowledge(ctx context.Context, task model.TaskDefinition, output map[string]any) {
	governanceRequestID, _ := task.Requirements["governance_request_id"].(string)
	item := model.KnowledgeItem{
		Space:         model.SpaceGovernance,
		AgentID:       h.cfg.AgentID,
		TaskID:        task.ID,
		KnowledgeType: task.TaskType + "_analysis_result",
		Priority:      task.Priority,
		Content:       output,
		Tags:          []string{task.TaskType, "analysis_complete"},
		Dependencies:  nil,
	}
	if governanceRequestID != "" {
		if item.Content == nil {
			item.Content = map[string]any{}
		}
		item.Content["governance_request_id"] = governanceRequestID
	}
	if _, err := h.store.AddKnowledge(ctx, item); err != nil {
		h.logger.Warn("worker: emit analysis result knowledge", "task_id", task.ID, "error", err)
	}
}

func (h *Harness) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.AgentHeartbeat(ctx, h.cfg.AgentID); err != nil {
				h.logger.Warn("worker: heartbeat", "agent_id", h.cfg.AgentID, "error", err)
			}
		}
	}
}
