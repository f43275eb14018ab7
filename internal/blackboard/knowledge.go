package blackboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
)

// AddKnowledge inserts item into item.Space, indexing by author and the
// space's priority queue (ascending priority, 1 first). If item.ID is
// empty one is generated. Sets a Redis TTL from ExpiresAt when present and
// publishes knowledge_added.
func (s *Store) AddKnowledge(ctx context.Context, item model.KnowledgeItem) (string, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now().UTC()
	}
	if !model.ValidPriority(item.Priority) {
		item.Priority = 5
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return "", model.NewError("blackboard.add_knowledge", model.KindTransient, err)
	}

	key := knowledgeKey(item.Space, item.ID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, dataField, payload)
	pipe.ZAdd(ctx, spacePriorityKey(item.Space), redis.Z{Score: float64(item.Priority), Member: item.ID})
	if item.AgentID != "" {
		pipe.SAdd(ctx, agentKnowledgeIndexKey(item.AgentID), item.ID)
	}
	if item.ExpiresAt != nil {
		if ttl := time.Until(*item.ExpiresAt); ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", model.NewError("blackboard.add_knowledge", model.KindTransient, err)
	}

	s.publish(ctx, ChannelKnowledgeAdded, "knowledge_added", item)
	return item.ID, nil
}

// GetKnowledge returns the item by id in space, or ErrNotFound if absent or
// expired (I6, P5): TTL is re-validated against time.Now() here even if
// Redis has not yet evicted the key.
func (s *Store) GetKnowledge(ctx context.Context, space model.Space, id string) (model.KnowledgeItem, error) {
	raw, err := s.rdb.HGet(ctx, knowledgeKey(space, id), dataField).Result()
	if err == redis.Nil {
		return model.KnowledgeItem{}, model.NewError("blackboard.get_knowledge", model.KindNotFound, model.ErrNotFound)
	}
	if err != nil {
		return model.KnowledgeItem{}, model.NewError("blackboard.get_knowledge", model.KindTransient, err)
	}

	var item model.KnowledgeItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return model.KnowledgeItem{}, model.NewError("blackboard.get_knowledge", model.KindTransient, err)
	}
	if item.Expired(time.Now()) {
		return model.KnowledgeItem{}, model.NewError("blackboard.get_knowledge", model.KindNotFound, model.ErrNotFound)
	}
	return item, nil
}

// QueryKnowledgeFilter narrows QueryKnowledge's result set.
type QueryKnowledgeFilter struct {
	KnowledgeType string
	AgentID       string
	Tags          []string
	Limit         int
}

// QueryKnowledge returns up to filter.Limit (default 100) items from space's
// priority queue, lowest-priority-score first, applying filter.KnowledgeType,
// filter.AgentID, and subset-match filter.Tags (every listed tag must be
// present — see the design notes on the subset-vs-intersection ambiguity).
// Expired items are silently skipped (I6).
func (s *Store) QueryKnowledge(ctx context.Context, space model.Space, filter QueryKnowledgeFilter) ([]model.KnowledgeItem, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	ids, err := s.rdb.ZRange(ctx, spacePriorityKey(space), 0, -1).Result()
	if err != nil {
		return nil, model.NewError("blackboard.query_knowledge", model.KindTransient, err)
	}

	results := make([]model.KnowledgeItem, 0, limit)
	now := time.Now()
	for _, id := range ids {
		if len(results) >= limit {
			break
		}
		raw, err := s.rdb.HGet(ctx, knowledgeKey(space, id), dataField).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, model.NewError("blackboard.query_knowledge", model.KindTransient, err)
		}
		var item model.KnowledgeItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, model.NewError("blackboard.query_knowledge", model.KindTransient, err)
		}
		if item.Expired(now) {
			continue
		}
		if filter.KnowledgeType != "" && item.KnowledgeType != filter.KnowledgeType {
			continue
		}
		if filter.AgentID != "" && item.AgentID != filter.AgentID {
			continue
		}
		if !item.HasAllTags(filter.Tags) {
			continue
		}
		results = append(results, item)
	}
	return results, nil
}
