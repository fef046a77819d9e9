// Package memory provides in-process fallbacks for the cache interfaces,
// used when Redis is not configured.
package memory

import (
	"context"
	"sync"

	"github.com/andrewqian/spreadbot/internal/domain"
)

// OpportunityCache implements domain.OpportunityCache with a mutex-guarded
// value. It never fails and costs nothing, but the snapshot is lost on
// restart and invisible to other processes.
type OpportunityCache struct {
	mu     sync.RWMutex
	latest domain.Opportunity
	set    bool
}

// NewOpportunityCache creates an empty in-process cache.
func NewOpportunityCache() *OpportunityCache {
	return &OpportunityCache{}
}

// SetLatest overwrites the cached opportunity.
func (c *OpportunityCache) SetLatest(_ context.Context, opp domain.Opportunity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = opp
	c.set = true
	return nil
}

// GetLatest returns the cached opportunity, or domain.ErrNotFound before the
// first SetLatest.
func (c *OpportunityCache) GetLatest(_ context.Context) (domain.Opportunity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set {
		return domain.Opportunity{}, domain.ErrNotFound
	}
	return c.latest, nil
}

// Compile-time interface check.
var _ domain.OpportunityCache = (*OpportunityCache)(nil)
