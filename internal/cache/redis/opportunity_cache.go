package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andrewqian/spreadbot/internal/domain"
)

// opportunityKey is where the most recent evaluation result lives. There is
// only ever one: the cache answers "what does the market look like right
// now", not "what did it look like".
const opportunityKey = "opportunity:latest"

// opportunityTTL bounds staleness: an engine that stops ticking leaves no
// lingering snapshot behind.
const opportunityTTL = 30 * time.Second

// OpportunityCache implements domain.OpportunityCache using a single Redis
// key holding the JSON-encoded latest Opportunity.
type OpportunityCache struct {
	rdb *redis.Client
}

// NewOpportunityCache creates an OpportunityCache backed by the given Client.
func NewOpportunityCache(c *Client) *OpportunityCache {
	return &OpportunityCache{rdb: c.Underlying()}
}

// SetLatest overwrites the cached opportunity with this tick's evaluation.
func (oc *OpportunityCache) SetLatest(ctx context.Context, opp domain.Opportunity) error {
	data, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("redis: marshal opportunity: %w", err)
	}
	if err := oc.rdb.Set(ctx, opportunityKey, data, opportunityTTL).Err(); err != nil {
		return fmt.Errorf("redis: set opportunity: %w", err)
	}
	return nil
}

// GetLatest returns the most recently cached opportunity. It returns
// domain.ErrNotFound when no snapshot exists or the last one has expired.
func (oc *OpportunityCache) GetLatest(ctx context.Context) (domain.Opportunity, error) {
	data, err := oc.rdb.Get(ctx, opportunityKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Opportunity{}, domain.ErrNotFound
		}
		return domain.Opportunity{}, fmt.Errorf("redis: get opportunity: %w", err)
	}

	var opp domain.Opportunity
	if err := json.Unmarshal(data, &opp); err != nil {
		return domain.Opportunity{}, fmt.Errorf("redis: unmarshal opportunity: %w", err)
	}
	return opp, nil
}

// Compile-time interface check.
var _ domain.OpportunityCache = (*OpportunityCache)(nil)
