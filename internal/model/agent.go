package model

import "time"

// AgentStatus tracks whether a registered agent is considered live.
type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
)

// AgentRegistration records a worker agent's identity and capabilities.
type AgentRegistration struct {
	AgentID       string    `json:"agent_id"`
	AgentType     string    `json:"agent_type"`
	Capabilities  []string  `json:"capabilities,omitempty"`
	Status        AgentStatus `json:"status"`
	RegisteredAt  time.Time `json:"registered_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// TimedOut reports whether the agent's last heartbeat is older than
// threshold minutes before now.
func (a AgentRegistration) TimedOut(now time.Time, thresholdMinutes int) bool {
	return now.Sub(a.LastHeartbeat) > time.Duration(thresholdMinutes)*time.Minute
}
