// Package blackboard implements the shared, partitioned, typed store with
// atomic task claiming, priority-ordered retrieval, TTL-based expiry, and
// notification fan-out described by the coordination substrate. Redis is
// the only shared mutable state; every other component funnels mutation
// through this package's operations.
package blackboard

import (
	"fmt"

	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

// Key patterns, verbatim from the storage backend table: hashes hold a
// single "data" field of JSON; sorted sets back priority queues and
// timestamp indexes and status queues; plain sets back agent indexes and the
// active-agent set.

func knowledgeKey(space model.Space, id string) string {
	return fmt.Sprintf("bb:%s:knowledge:%s", space, id)
}

func spacePriorityKey(space model.Space) string {
	return fmt.Sprintf("bb:%s:priority", space)
}

func agentKnowledgeIndexKey(agentID string) string {
	return fmt.Sprintf("bb:agents:%s:knowledge", agentID)
}

func taskKey(id string) string {
	return fmt.Sprintf("bb:tasks:%s", id)
}

func taskStatusPriorityKey(status model.TaskStatus) string {
	return fmt.Sprintf("bb:tasks:%s:priority", status)
}

func taskStatusTimestampKey(status model.TaskStatus) string {
	return fmt.Sprintf("bb:tasks:%s:timestamp", status)
}

func agentTaskIndexKey(agentID string) string {
	return fmt.Sprintf("bb:agents:%s:tasks", agentID)
}

func conflictKey(id string) string {
	return fmt.Sprintf("bb:conflicts:%s", id)
}

func conflictStatusPriorityKey(status model.ConflictStatus) string {
	return fmt.Sprintf("bb:conflicts:%s:priority", status)
}

func agentKey(agentID string) string {
	return fmt.Sprintf("bb:agents:%s", agentID)
}

const activeAgentsKey = "bb:agents:active"

// dataField is the hash field every record is stored under, matching the
// storage backend table's "field data holds JSON" contract.
const dataField = "data"
