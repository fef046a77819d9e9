package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for history queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// TradeStore persists the append-only closed-trade record. It is an external
// collaborator of the decision core: the engine keeps working when writes
// fail, it only loses durability.
type TradeStore interface {
	Insert(ctx context.Context, trade ClosedTrade) error
	ListRecent(ctx context.Context, limit int) ([]ClosedTrade, error)
	SumRealizedPnL(ctx context.Context, since time.Time) (float64, error)
}

// OpportunityCache exposes the most recent Opportunity (profitable or not)
// for observability consumers.
type OpportunityCache interface {
	SetLatest(ctx context.Context, opp Opportunity) error
	GetLatest(ctx context.Context) (Opportunity, error)
}

// SignalBus publishes engine events (position_opened, position_closed,
// compensation_failed) for the excluded presentation/logging layer.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// StreamMessage is one entry read back from a durable event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// LockManager hands out exclusive named locks. Live trading acquires a
// per-wallet lock at startup so two instances never trade the same account.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
