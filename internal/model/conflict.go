package model

import "time"

// ConflictSeverity ranks a ConflictItem for ordering (critical first).
type ConflictSeverity string

const (
	SeverityLow      ConflictSeverity = "low"
	SeverityMedium   ConflictSeverity = "medium"
	SeverityHigh     ConflictSeverity = "high"
	SeverityCritical ConflictSeverity = "critical"
)

// severityScore orders severities for priority-queue ranking: critical=1 (first) .. low=4.
var severityScore = map[ConflictSeverity]float64{
	SeverityCritical: 1,
	SeverityHigh:     2,
	SeverityMedium:   3,
	SeverityLow:      4,
}

// SeverityScore returns the sort key for s (lower sorts first).
func SeverityScore(s ConflictSeverity) float64 {
	if v, ok := severityScore[s]; ok {
		return v
	}
	return severityScore[SeverityLow]
}

// ConflictStatus is the lifecycle state of a ConflictItem.
type ConflictStatus string

const (
	ConflictOpen        ConflictStatus = "open"
	ConflictInResolution ConflictStatus = "in_resolution"
	ConflictResolved    ConflictStatus = "resolved"
	ConflictEscalated   ConflictStatus = "escalated"
)

var validConflictTransitions = map[ConflictStatus]map[ConflictStatus]bool{
	ConflictOpen:         {ConflictInResolution: true, ConflictEscalated: true},
	ConflictInResolution: {ConflictResolved: true, ConflictEscalated: true},
}

// CanTransitionConflict reports whether moving from `from` to `to` is legal.
func CanTransitionConflict(from, to ConflictStatus) bool {
	return validConflictTransitions[from][to]
}

// ConflictItem is a recorded disagreement between agents or tasks.
type ConflictItem struct {
	ID                 string           `json:"id"`
	ConflictType       string           `json:"conflict_type"` // e.g. decision_conflict, resource_conflict, policy_conflict
	InvolvedAgents     []string         `json:"involved_agents,omitempty"`
	InvolvedTasks      []string         `json:"involved_tasks,omitempty"`
	Description        string           `json:"description"`
	Severity           ConflictSeverity `json:"severity"`
	Status             ConflictStatus   `json:"status"`
	ResolutionStrategy string           `json:"resolution_strategy,omitempty"`
	ResolutionData     map[string]any   `json:"resolution_data,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	ResolvedAt         *time.Time       `json:"resolved_at,omitempty"`
}
