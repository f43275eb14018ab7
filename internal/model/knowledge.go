package model

import "time"

// KnowledgeItem is an immutable-after-publish fact recorded by any agent.
// Once created it is never mutated; it remains queryable until ExpiresAt (if
// set), after which it is purged and absent from every read (I6).
type KnowledgeItem struct {
	ID            string         `json:"id"`
	Space         Space          `json:"space"`
	AgentID       string         `json:"agent_id"`
	TaskID        string         `json:"task_id,omitempty"`
	KnowledgeType string         `json:"knowledge_type"`
	Content       map[string]any `json:"content"`
	Timestamp     time.Time      `json:"timestamp"`
	Priority      int            `json:"priority"` // 1 (highest) .. 5 (lowest)
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	Dependencies  []string       `json:"dependencies,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
}

// Expired reports whether the item is no longer visible at instant now.
func (k KnowledgeItem) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// HasAllTags reports whether k's tag set is a superset of want (subset-match
// semantics per the tag-query resolution in spec §9: every requested tag
// must be present in the candidate's tag set).
func (k KnowledgeItem) HasAllTags(want []string) bool {
	if len(want) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(k.Tags))
	for _, t := range k.Tags {
		have[t] = struct{}{}
	}
	for _, w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}

// ValidPriority reports whether p is in the accepted [1,5] range.
func ValidPriority(p int) bool { return p >= 1 && p <= 5 }
