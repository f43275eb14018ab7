package coordinator

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CA-git-com-co/ACGS-sub011/internal/blackboard"
	"github.com/CA-git-com-co/ACGS-sub011/internal/consensus"
	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
	"github.com/CA-git-com-co/ACGS-sub011/internal/validator"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *blackboard.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return blackboard.NewWithClient(rdb, discardLogger())
}

func newTestCoordinator(t *testing.T) (*Coordinator, *blackboard.Store) {
	store := newTestStore(t)
	engine := consensus.NewEngine(store, discardLogger())
	c := New("acgs_coordinator", store, validator.NoopValidator{}, engine, nil, discardLogger())
	return c, store
}

// completeTask claims and completes task with output, then drives the
// coordinator's completion bookkeeping directly (bypassing the pub/sub
// loop, which real callers reach via WatchTaskCompletions).
func completeTask(t *testing.T, ctx context.Context, c *Coordinator, store *blackboard.Store, taskID string, output map[string]any, results *[]model.GovernanceResult) {
	t.Helper()
	ok, err := store.ClaimTask(ctx, taskID, "worker-1")
	require.NoError(t, err)
	require.True(t, ok)
	_, err = store.UpdateTaskStatus(ctx, taskID, "worker-1", model.TaskClaimed, model.TaskCompleted, output, nil)
	require.NoError(t, err)
	c.handleTaskCompletion(ctx, taskID, func(r model.GovernanceResult) { *results = append(*results, r) })
}

func TestProcessGovernanceRequest_ModelDeployment_DecomposesWithDependency(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()

	result, err := c.ProcessGovernanceRequest(ctx, model.GovernanceRequest{
		RequestType: model.RequestModelDeployment,
		RequesterID: "requester-1",
		Priority:    2,
		InputData:   map[string]any{"model_info": map[string]any{"name": "risk-model-v3"}},
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	taskIDs, _ := result.Outputs["task_ids"].([]string)
	require.Len(t, taskIDs, 3)

	var ethicalID, operationalID string
	for _, id := range taskIDs {
		task, err := store.GetTask(ctx, id)
		require.NoError(t, err)
		switch task.TaskType {
		case "ethical_analysis":
			ethicalID = task.ID
		case "operational_validation":
			operationalID = task.ID
			assert.Contains(t, task.Dependencies, ethicalID)
		}
	}
	assert.NotEmpty(t, ethicalID)
	assert.NotEmpty(t, operationalID)
}

func TestEndToEnd_HappyPathModelDeployment(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()

	result, err := c.ProcessGovernanceRequest(ctx, model.GovernanceRequest{
		RequestType: model.RequestModelDeployment,
		RequesterID: "requester-1",
		Priority:    1,
		InputData:   map[string]any{},
	})
	require.NoError(t, err)
	taskIDs, _ := result.Outputs["task_ids"].([]string)
	require.Len(t, taskIDs, 3)

	var final []model.GovernanceResult
	for _, id := range taskIDs {
		task, err := store.GetTask(ctx, id)
		require.NoError(t, err)
		completeTask(t, ctx, c, store, id, map[string]any{
			"approved": true, "risk_level": "low", "confidence": 0.9,
		}, &final)
		_ = task
	}

	require.Len(t, final, 1)
	assert.True(t, final[0].Success)
	assert.True(t, final[0].DeploymentApproved)
	assert.Empty(t, final[0].Conflicts)
	assert.InDelta(t, 0.9, final[0].ConfidenceScore, 0.01)
}

func TestEndToEnd_RecommendationsSurviveRedisJSONRoundTrip(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()

	result, err := c.ProcessGovernanceRequest(ctx, model.GovernanceRequest{
		RequestType: model.RequestModelDeployment,
		RequesterID: "requester-1",
		Priority:    1,
		InputData:   map[string]any{},
	})
	require.NoError(t, err)
	taskIDs, _ := result.Outputs["task_ids"].([]string)
	require.Len(t, taskIDs, 3)

	var final []model.GovernanceResult
	for _, id := range taskIDs {
		task, err := store.GetTask(ctx, id)
		require.NoError(t, err)
		output := map[string]any{"approved": true, "risk_level": "low", "confidence": 0.9}
		if task.TaskType == "ethical_analysis" {
			output["recommendations"] = []string{"Run an additional fairness audit"}
		}
		completeTask(t, ctx, c, store, id, output, &final)
	}

	require.Len(t, final, 1)
	// output_data round-trips through Redis as JSON (UpdateTaskStatus marshals
	// it in, GetTask unmarshals into map[string]any), so by the time
	// integrateResults reads it back, "recommendations" decodes as
	// []interface{}, never []string. buildRecommendations must handle both.
	assert.Contains(t, final[0].Recommendations, "Run an additional fairness audit")
}

func TestEndToEnd_ConflictingApprovalsRaiseConflictAndFailIntegration(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()

	result, err := c.ProcessGovernanceRequest(ctx, model.GovernanceRequest{
		RequestType: model.RequestModelDeployment,
		RequesterID: "requester-1",
		Priority:    1,
		InputData:   map[string]any{},
	})
	require.NoError(t, err)
	taskIDs, _ := result.Outputs["task_ids"].([]string)
	require.Len(t, taskIDs, 3)

	outputsByType := map[string]map[string]any{
		"ethical_analysis":        {"approved": true, "risk_level": "low", "confidence": 0.9},
		"legal_compliance":        {"approved": false, "risk_level": "low", "confidence": 0.8},
		"operational_validation":  {"approved": true, "risk_level": "low", "confidence": 0.85},
	}

	var final []model.GovernanceResult
	for _, id := range taskIDs {
		task, err := store.GetTask(ctx, id)
		require.NoError(t, err)
		completeTask(t, ctx, c, store, id, outputsByType[task.TaskType], &final)
	}

	require.Len(t, final, 1)
	assert.False(t, final[0].Success)
	require.Len(t, final[0].Conflicts, 1)
	assert.Equal(t, "decision_conflict", final[0].Conflicts[0].ConflictType)

	open, err := store.GetOpenConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
}

func TestConflictResolver_ResourceConflictResolvesImmediately(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	engine := consensus.NewEngine(store, discardLogger())

	_, err := store.ReportConflict(ctx, model.ConflictItem{
		ConflictType: "resource_conflict",
		Description:  "two tasks want the same GPU slot",
		Severity:     model.SeverityMedium,
	})
	require.NoError(t, err)

	resolver := newConflictResolver(store, engine, discardLogger())
	resolver.tick(ctx)

	open, err := store.GetOpenConflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestConflictResolver_DecisionConflictGoesThroughConsensus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	engine := consensus.NewEngine(store, discardLogger())

	conflictID, err := store.ReportConflict(ctx, model.ConflictItem{
		ConflictType:   "decision_conflict",
		Description:    "conflicting approvals",
		Severity:       model.SeverityHigh,
		InvolvedAgents: []string{"ethics_agent", "legal_agent"},
	})
	require.NoError(t, err)

	resolver := newConflictResolver(store, engine, discardLogger())
	resolver.tick(ctx)

	conflict, err := store.GetConflict(ctx, conflictID)
	require.NoError(t, err)
	// constitutionalPriority picks "apply_constitutional_principles"
	// (ConstitutionalScore 0.95), clearing the 0.7 threshold, so this must
	// land on resolved rather than escalated.
	assert.Equal(t, model.ConflictResolved, conflict.Status)
}
