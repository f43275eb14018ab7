// Package model defines the core domain types for the governance
// coordination substrate: knowledge items, tasks, conflicts, consensus
// sessions, and agent registrations. Types correspond directly to the
// blackboard's Redis-backed key layout and favor strong typing over
// interface{} except where payloads are genuinely opaque (see Kind-tagged
// content fields on KnowledgeItem, TaskDefinition, and ConflictItem).
package model

// Space is a logical partition of the blackboard. Items in different spaces
// never collide, even if they share an ID.
type Space string

const (
	SpaceGovernance  Space = "governance"
	SpaceCompliance  Space = "compliance"
	SpacePerformance Space = "performance"
	SpaceCoordination Space = "coordination"
	SpaceTasks       Space = "tasks"
	SpaceConflicts   Space = "conflicts"
	SpaceAgents      Space = "agents"
)

// Valid reports whether s is one of the fixed enumeration of spaces.
func (s Space) Valid() bool {
	switch s {
	case SpaceGovernance, SpaceCompliance, SpacePerformance, SpaceCoordination, SpaceTasks, SpaceConflicts, SpaceAgents:
		return true
	default:
		return false
	}
}

// ComplianceTag is the fixed compliance hash every produced result must carry
// verbatim (spec invariant: every result payload contains this field). The
// coordinator, consensus engine and monitor stamp this constant directly;
// config.Config.ComplianceTag holds the same default but is not read by them.
const ComplianceTag = "cdd01ef066bc6cf2"
