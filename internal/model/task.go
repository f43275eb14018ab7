package model

import "time"

// TaskStatus is the lifecycle state of a TaskDefinition.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskClaimed    TaskStatus = "claimed"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// IsTerminal reports whether s is an absorbing state.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// DefaultMaxRetries is the default retry budget for a failed task.
const DefaultMaxRetries = 3

// TaskDefinition is a unit of work with an explicit state machine:
// pending -> claimed (atomic) -> optionally in_progress -> completed|failed.
// A failed task with Retries < MaxRetries may be returned to pending.
type TaskDefinition struct {
	ID           string         `json:"id"`
	TaskType     string         `json:"task_type"`
	Status       TaskStatus     `json:"status"`
	AgentID      string         `json:"agent_id,omitempty"` // claimant; empty until claimed
	Priority     int            `json:"priority"`           // 1 (highest) .. 5 (lowest)
	Requirements map[string]any `json:"requirements,omitempty"`
	InputData    map[string]any `json:"input_data,omitempty"`
	OutputData   map[string]any `json:"output_data,omitempty"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Deadline     *time.Time     `json:"deadline,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ClaimedAt    *time.Time     `json:"claimed_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Retries      int            `json:"retries"`
	MaxRetries   int            `json:"max_retries"`
}

// validTaskTransitions enumerates every legal (from, to) pair in the task
// state machine, per spec §3's lifecycle description.
var validTaskTransitions = map[TaskStatus]map[TaskStatus]bool{
	TaskPending:    {TaskClaimed: true},
	TaskClaimed:    {TaskInProgress: true, TaskCompleted: true, TaskFailed: true},
	TaskInProgress: {TaskCompleted: true, TaskFailed: true},
	TaskFailed:     {TaskPending: true}, // retry re-queue, gated on Retries < MaxRetries by the caller
}

// CanTransition reports whether moving from `from` to `to` is legal.
func CanTransition(from, to TaskStatus) bool {
	return validTaskTransitions[from][to]
}

// DependenciesSatisfied reports whether every dependency id in deps appears
// in completed with status TaskCompleted. Used to gate get_available_tasks
// (I3, P3).
func DependenciesSatisfied(deps []string, completed map[string]bool) bool {
	for _, d := range deps {
		if !completed[d] {
			return false
		}
	}
	return true
}

// Retryable reports whether a failed task may be returned to pending.
func (t TaskDefinition) Retryable() bool {
	return t.Status == TaskFailed && t.Retries < t.MaxRetries
}
