// Package coordinator ties the blackboard, consensus engine, and
// constitutional validator into the end-to-end governance-request
// workflow: decompose a request into a task graph, create and track its
// tasks, and integrate their results into a single GovernanceResult once
// all tasks finish (spec.md §4.2).
package coordinator

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CA-git-com-co/ACGS-sub011/internal/blackboard"
	"github.com/CA-git-com-co/ACGS-sub011/internal/consensus"
	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
	"github.com/CA-git-com-co/ACGS-sub011/internal/validator"
)

// coordinationMonitor is the narrow slice of *monitor.Monitor the
// coordinator needs, kept as an interface to avoid an import cycle
// (internal/monitor does not depend on internal/coordinator, but neither
// package should need to know the other's full surface).
type coordinationMonitor interface {
	RecordCoordinationStarted()
	RecordCoordinationCompleted()
}

// Coordinator decomposes GovernanceRequests, tracks their tasks to
// completion, and integrates results. One Coordinator instance is the
// "acgs_coordinator" agent registered on the blackboard.
type Coordinator struct {
	agentID   string
	store     *blackboard.Store
	validator validator.Validator
	consensus *consensus.Engine
	monitor   coordinationMonitor
	logger    *slog.Logger

	mu             sync.Mutex
	activeRequests map[string]model.GovernanceRequest
	requestTasks   map[string][]string // request id -> all task ids
	completedTasks map[string]map[string]bool
}

// New builds a Coordinator. v and mon may be nil (validator.NoopValidator
// semantics apply; monitor recording is skipped).
func New(agentID string, store *blackboard.Store, v validator.Validator, engine *consensus.Engine, mon coordinationMonitor, logger *slog.Logger) *Coordinator {
	if v == nil {
		v = validator.NoopValidator{}
	}
	return &Coordinator{
		agentID:        agentID,
		store:          store,
		validator:      v,
		consensus:      engine,
		monitor:        mon,
		logger:         logger,
		activeRequests: make(map[string]model.GovernanceRequest),
		requestTasks:   make(map[string][]string),
		completedTasks: make(map[string]map[string]bool),
	}
}

// Register registers the coordinator as an agent on the blackboard.
func (c *Coordinator) Register(ctx context.Context) error {
	return c.store.RegisterAgent(ctx, model.AgentRegistration{
		AgentID:      c.agentID,
		AgentType:    "coordinator",
		Capabilities: []string{"task_decomposition", "conflict_resolution", "integration_management"},
	})
}

// RunConflictResolution starts the background conflict-resolution loop,
// polling open conflicts every interval until ctx is cancelled. Requires a
// non-nil consensus engine; if c.consensus is nil this is a no-op.
func (c *Coordinator) RunConflictResolution(ctx context.Context, interval time.Duration) {
	if c.consensus == nil {
		return
	}
	newConflictResolver(c.store, c.consensus, c.logger).Run(ctx, interval)
}

// ProcessGovernanceRequest decomposes req into tasks on the blackboard and
// returns immediately once they're created; the fused GovernanceResult
// arrives later, once WatchTaskCompletions observes every task for req.ID
// reach a terminal state (spec.md §4.2 step 3-4).
func (c *Coordinator) ProcessGovernanceRequest(ctx context.Context, req model.GovernanceRequest) (model.GovernanceResult, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if c.monitor != nil {
		c.monitor.RecordCoordinationStarted()
	}

	compliance, err := c.validator.Validate(ctx, validator.Input{
		RequestType:  string(req.RequestType),
		InputData:    req.InputData,
		Requirements: req.ConstitutionalRequirements,
	})
	if err != nil {
		return model.GovernanceResult{}, model.NewError("coordinator.process_governance_request", model.KindTransient, err)
	}
	if !compliance.Compliant {
		if c.monitor != nil {
			c.monitor.RecordCoordinationCompleted()
		}
		return model.GovernanceResult{
			RequestID:           req.ID,
			Success:             false,
			ValidatorViolations: compliance.Violations,
			FailingComponent:    "constitutional_precheck",
			Reason:              "constitutional compliance check failed",
			ErrorKind:           model.KindValidatorViolation,
			CreatedAt:           time.Now().UTC(),
			ConstitutionalHash:  model.ComplianceTag,
		}, nil
	}

	decompose, ok := decomposers[req.RequestType]
	if !ok {
		if c.monitor != nil {
			c.monitor.RecordCoordinationCompleted()
		}
		return model.GovernanceResult{}, model.NewError("coordinator.process_governance_request", model.KindInvalidTransition, nil)
	}

	tasks, graph, err := c.buildTasks(req, decompose(req))
	if err != nil {
		return model.GovernanceResult{}, err
	}

	taskIDs := make([]string, 0, len(tasks))
	for _, task := range tasks {
		if _, err := c.store.CreateTask(ctx, task); err != nil {
			return model.GovernanceResult{}, err
		}
		taskIDs = append(taskIDs, task.ID)
	}

	c.mu.Lock()
	c.activeRequests[req.ID] = req
	c.requestTasks[req.ID] = taskIDs
	c.completedTasks[req.ID] = make(map[string]bool)
	c.mu.Unlock()

	c.emitCoordinationKnowledge(ctx, req, taskIDs, graph)
	c.store.PublishGovernanceWorkflowStarted(ctx, map[string]any{
		"request_id": req.ID, "request_type": req.RequestType, "task_count": len(taskIDs), "priority": req.Priority,
	})

	return model.GovernanceResult{
		RequestID:          req.ID,
		Success:            true,
		Outputs:            map[string]any{"task_ids": taskIDs, "status": "tasks_created"},
		CreatedAt:          time.Now().UTC(),
		ConstitutionalHash: model.ComplianceTag,
	}, nil
}

// buildTasks assigns each template a concrete id, resolves sibling
// dependencies (named by TaskType) to those ids, and rejects a cyclic
// decomposition before anything is written to the blackboard.
func (c *Coordinator) buildTasks(req model.GovernanceRequest, templates []model.TaskTemplate) ([]model.TaskDefinition, dependencyGraph, error) {
	idByType := make(map[string]string, len(templates))
	for _, tmpl := range templates {
		idByType[tmpl.TaskType] = uuid.NewString()
	}

	tasks := make([]model.TaskDefinition, 0, len(templates))
	graph := make(dependencyGraph, len(templates))
	for _, tmpl := range templates {
		deps := make([]string, 0, len(tmpl.Dependencies))
		for _, depType := range tmpl.Dependencies {
			if depID, ok := idByType[depType]; ok {
				deps = append(deps, depID)
			}
		}
		requirements := map[string]any{}
		for k, v := range tmpl.Requirements {
			requirements[k] = v
		}
		requirements["governance_request_id"] = req.ID
		requirements["constitutional_requirements"] = req.ConstitutionalRequirements

		task := model.TaskDefinition{
			ID:           idByType[tmpl.TaskType],
			TaskType:     tmpl.TaskType,
			Priority:     tmpl.Priority,
			Requirements: requirements,
			InputData:    tmpl.InputData,
			Dependencies: deps,
			Deadline:     req.Deadline,
		}
		tasks = append(tasks, task)
		graph[task.ID] = deps
	}

	if hasCycle(graph) {
		return nil, nil, model.NewError("coordinator.build_tasks", model.KindInvalidTransition, nil)
	}
	return tasks, graph, nil
}

// emitCoordinationKnowledge writes the governance_context item (governance
// space) and the task_dependencies item (coordination space), matching the
// original coordinator_agent.py's _add_coordination_knowledge.
func (c *Coordinator) emitCoordinationKnowledge(ctx context.Context, req model.GovernanceRequest, taskIDs []string, graph dependencyGraph) {
	_, err := c.store.AddKnowledge(ctx, model.KnowledgeItem{
		Space:         model.SpaceGovernance,
		AgentID:       c.agentID,
		KnowledgeType: "governance_context",
		Priority:      req.Priority,
		Content: map[string]any{
			"request_id":            req.ID,
			"request_type":          req.RequestType,
			"task_ids":              taskIDs,
			"priority":              req.Priority,
			"complexity_score":      req.ComplexityScore,
			"coordination_strategy": "hybrid_hierarchical_blackboard",
		},
		Tags: []string{"governance", "coordination", string(req.RequestType)},
	})
	if err != nil {
		c.logger.Warn("coordinator: emit governance_context", "request_id", req.ID, "error", err)
	}

	if len(taskIDs) == 0 {
		return
	}
	adjacency := make(map[string][]string, len(graph))
	for id, deps := range graph {
		adjacency[id] = deps
	}
	_, err = c.store.AddKnowledge(ctx, model.KnowledgeItem{
		Space:         model.SpaceCoordination,
		AgentID:       c.agentID,
		KnowledgeType: "task_dependencies",
		Priority:      req.Priority,
		Content: map[string]any{
			"request_id":               req.ID,
			"task_dependency_graph":    adjacency,
			"critical_path":            criticalPath(graph),
			"parallel_execution_groups": parallelGroups(graph),
		},
		Tags: []string{"coordination", "dependencies", "workflow"},
	})
	if err != nil {
		c.logger.Warn("coordinator: emit task_dependencies", "request_id", req.ID, "error", err)
	}
}

// WatchTaskCompletions subscribes to task_completed/task_failed and, for
// every request whose full task set has reached a terminal state, runs
// result integration and invokes onResult. It blocks until ctx is
// cancelled.
func (c *Coordinator) WatchTaskCompletions(ctx context.Context, onResult func(model.GovernanceResult)) {
	messages, closer := c.store.Subscribe(ctx, blackboard.ChannelTaskCompleted, blackboard.ChannelTaskFailed)
	defer closer()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			taskID, ok := taskIDFromEvent(msg.Payload)
			if !ok {
				continue
			}
			c.handleTaskCompletion(ctx, taskID, onResult)
		}
	}
}

func (c *Coordinator) handleTaskCompletion(ctx context.Context, taskID string, onResult func(model.GovernanceResult)) {
	task, err := c.store.GetTask(ctx, taskID)
	if err != nil {
		return
	}
	requestID, _ := task.Requirements["governance_request_id"].(string)
	if requestID == "" {
		return
	}

	c.mu.Lock()
	req, active := c.activeRequests[requestID]
	if !active {
		c.mu.Unlock()
		return
	}
	c.completedTasks[requestID][taskID] = true
	done := len(c.completedTasks[requestID]) >= len(c.requestTasks[requestID])
	taskIDs := append([]string(nil), c.requestTasks[requestID]...)
	c.mu.Unlock()

	if !done {
		return
	}

	result := c.integrateResults(ctx, req, taskIDs)

	c.mu.Lock()
	delete(c.activeRequests, requestID)
	delete(c.requestTasks, requestID)
	delete(c.completedTasks, requestID)
	c.mu.Unlock()

	if c.monitor != nil {
		c.monitor.RecordCoordinationCompleted()
	}
	c.store.PublishGovernanceRequestCompleted(ctx, map[string]any{
		"request_id": requestID, "success": result.Success, "task_count": len(taskIDs),
	})
	if onResult != nil {
		onResult(result)
	}
}

// taskIDFromEvent extracts "task_id" from a task_completed/task_failed
// event envelope without fully decoding its Data payload.
func taskIDFromEvent(payload string) (string, bool) {
	var envelope struct {
		Data struct {
			TaskID string `json:"task_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return "", false
	}
	return envelope.Data.TaskID, envelope.Data.TaskID != ""
}
