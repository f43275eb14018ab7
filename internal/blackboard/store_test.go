package blackboard_test

import (
	"context"
	"log/slog"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CA-git-com-co/ACGS-sub011/internal/blackboard"
	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

func newTestStore(t *testing.T) *blackboard.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return blackboard.NewWithClient(rdb, logger)
}

func TestClaimTask_Exclusivity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	taskID, err := store.CreateTask(ctx, model.TaskDefinition{TaskType: "ethical_analysis", Priority: 1})
	require.NoError(t, err)

	const agents = 20
	var successes int64
	var wg sync.WaitGroup
	for i := 0; i < agents; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := store.ClaimTask(ctx, taskID, "agent-"+string(rune('a'+n)))
			assert.NoError(t, err)
			if ok {
				atomic.AddInt64(&successes, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes)

	task, err := store.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskClaimed, task.Status)
	assert.NotEmpty(t, task.AgentID)
	assert.NotNil(t, task.ClaimedAt)
}

func TestClaimTask_AbsentOrNonPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.ClaimTask(ctx, "missing", "agent-a")
	require.NoError(t, err)
	assert.False(t, ok)

	taskID, err := store.CreateTask(ctx, model.TaskDefinition{TaskType: "x", Priority: 1})
	require.NoError(t, err)
	ok, err = store.ClaimTask(ctx, taskID, "agent-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ClaimTask(ctx, taskID, "agent-b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateTaskStatus_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	taskID, err := store.CreateTask(ctx, model.TaskDefinition{TaskType: "legal_compliance", Priority: 2})
	require.NoError(t, err)

	ok, err := store.ClaimTask(ctx, taskID, "agent-a")
	require.NoError(t, err)
	require.True(t, ok)

	output := map[string]any{"approved": true, "confidence": 0.9}
	ok, err = store.UpdateTaskStatus(ctx, taskID, "agent-a", model.TaskClaimed, model.TaskCompleted, output, nil)
	require.NoError(t, err)
	require.True(t, ok)

	task, err := store.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, "agent-a", task.AgentID)
	assert.Equal(t, true, task.OutputData["approved"])
	assert.NotNil(t, task.CompletedAt)
}

func TestUpdateTaskStatus_UnauthorizedActor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	taskID, err := store.CreateTask(ctx, model.TaskDefinition{TaskType: "x", Priority: 1})
	require.NoError(t, err)
	_, err = store.ClaimTask(ctx, taskID, "agent-a")
	require.NoError(t, err)

	ok, err := store.UpdateTaskStatus(ctx, taskID, "agent-b", model.TaskClaimed, model.TaskCompleted, nil, nil)
	assert.False(t, ok)
	assert.True(t, model.Is(err, model.KindUnauthorizedActor))
}

func TestGetAvailableTasks_DependencyGating(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	depID, err := store.CreateTask(ctx, model.TaskDefinition{TaskType: "ethical_analysis", Priority: 1})
	require.NoError(t, err)

	blockedID, err := store.CreateTask(ctx, model.TaskDefinition{
		TaskType: "operational_validation", Priority: 2, Dependencies: []string{depID},
	})
	require.NoError(t, err)

	available, err := store.GetAvailableTasks(ctx, nil, 10)
	require.NoError(t, err)
	var ids []string
	for _, task := range available {
		ids = append(ids, task.ID)
	}
	assert.Contains(t, ids, depID)
	assert.NotContains(t, ids, blockedID)

	_, err = store.ClaimTask(ctx, depID, "agent-a")
	require.NoError(t, err)
	_, err = store.UpdateTaskStatus(ctx, depID, "agent-a", model.TaskClaimed, model.TaskCompleted, map[string]any{}, nil)
	require.NoError(t, err)

	available, err = store.GetAvailableTasks(ctx, nil, 10)
	require.NoError(t, err)
	ids = nil
	for _, task := range available {
		ids = append(ids, task.ID)
	}
	assert.Contains(t, ids, blockedID)
}

func TestGetAvailableTasks_PriorityOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateTask(ctx, model.TaskDefinition{TaskType: "c", Priority: 5})
	require.NoError(t, err)
	_, err = store.CreateTask(ctx, model.TaskDefinition{TaskType: "a", Priority: 1})
	require.NoError(t, err)
	_, err = store.CreateTask(ctx, model.TaskDefinition{TaskType: "b", Priority: 3})
	require.NoError(t, err)

	available, err := store.GetAvailableTasks(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, available, 3)
	for i := 1; i < len(available); i++ {
		assert.LessOrEqual(t, available[i-1].Priority, available[i].Priority)
	}
}

func TestKnowledge_TTLHonesty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expired := time.Now().Add(-time.Second)
	id, err := store.AddKnowledge(ctx, model.KnowledgeItem{
		Space: model.SpaceGovernance, AgentID: "agent-a", KnowledgeType: "note",
		Content: map[string]any{"x": 1}, Priority: 1, ExpiresAt: &expired,
	})
	require.NoError(t, err)

	_, err = store.GetKnowledge(ctx, model.SpaceGovernance, id)
	assert.True(t, model.Is(err, model.KindNotFound))

	items, err := store.QueryKnowledge(ctx, model.SpaceGovernance, blackboard.QueryKnowledgeFilter{})
	require.NoError(t, err)
	for _, item := range items {
		assert.NotEqual(t, id, item.ID)
	}
}

func TestQueryKnowledge_TagSubsetMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddKnowledge(ctx, model.KnowledgeItem{
		Space: model.SpaceGovernance, KnowledgeType: "note", Priority: 1,
		Content: map[string]any{}, Tags: []string{"bias", "urgent"},
	})
	require.NoError(t, err)
	_, err = store.AddKnowledge(ctx, model.KnowledgeItem{
		Space: model.SpaceGovernance, KnowledgeType: "note", Priority: 2,
		Content: map[string]any{}, Tags: []string{"bias"},
	})
	require.NoError(t, err)

	items, err := store.QueryKnowledge(ctx, model.SpaceGovernance, blackboard.QueryKnowledgeFilter{Tags: []string{"bias", "urgent"}})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCheckAgentTimeouts_FreshAgentNotTimedOut(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterAgent(ctx, model.AgentRegistration{AgentID: "agent-a", AgentType: "ethics"}))

	timedOut, err := store.CheckAgentTimeouts(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, timedOut)

	agents, err := store.GetActiveAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, agents, 1)
}
