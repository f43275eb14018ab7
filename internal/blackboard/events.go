package blackboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel names, verbatim from the event channels table.
const (
	ChannelTaskCreated                = "events:task_created"
	ChannelTaskClaimed                = "events:task_claimed"
	ChannelTaskCompleted              = "events:task_completed"
	ChannelTaskFailed                 = "events:task_failed"
	ChannelConflictDetected           = "events:conflict_detected"
	ChannelKnowledgeAdded             = "events:knowledge_added"
	ChannelAgentStatus                = "events:agent_status"
	ChannelGovernanceWorkflowStarted  = "events:governance_workflow_started"
	ChannelGovernanceRequestCompleted = "events:governance_request_completed"
)

// event is the envelope every publish carries: event_type, timestamp, data.
type event struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// publish JSON-encodes an envelope and publishes it on channel. Publish
// failures are logged here and never fail the operation they
// accompany — delivery is best-effort, at-most-once (spec's notification
// model: subscribers treat events as hints and re-query for truth).
func (s *Store) publish(ctx context.Context, channel, eventType string, data any) {
	payload, err := json.Marshal(event{EventType: eventType, Timestamp: time.Now().UTC(), Data: data})
	if err != nil {
		s.logger.Warn("blackboard: marshal event", "channel", channel, "error", err)
		return
	}
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		s.logger.Warn("blackboard: publish", "channel", channel, "error", err)
	}
}

// PublishGovernanceWorkflowStarted announces a newly decomposed governance
// request to interested agents.
func (s *Store) PublishGovernanceWorkflowStarted(ctx context.Context, data any) {
	s.publish(ctx, ChannelGovernanceWorkflowStarted, "governance_workflow_started", data)
}

// PublishGovernanceRequestCompleted announces a governance request's final,
// integrated outcome.
func (s *Store) PublishGovernanceRequestCompleted(ctx context.Context, data any) {
	s.publish(ctx, ChannelGovernanceRequestCompleted, "governance_request_completed", data)
}

// Subscribe opens a pub/sub subscription on channels, returning the raw
// message stream and a closer. Subscribers treat delivery as a hint —
// messages may be lost across a reconnect — and should re-query the
// blackboard for authoritative state rather than trust payload contents
// alone (spec's notification model).
func (s *Store) Subscribe(ctx context.Context, channels ...string) (<-chan *redis.Message, func() error) {
	ps := s.rdb.Subscribe(ctx, channels...)
	return ps.Channel(), ps.Close
}
