package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andrewqian/spreadbot/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `position_id, direction, entry_spread,
	entry_bid_a, entry_ask_a, entry_bid_b, entry_ask_b,
	exit_bid_a, exit_ask_a, exit_bid_b, exit_ask_b,
	notional_size, opened_at, closed_at, holding_seconds,
	exit_method, realized_pnl`

func scanTradeRows(rows pgx.Rows) ([]domain.ClosedTrade, error) {
	var trades []domain.ClosedTrade
	for rows.Next() {
		var t domain.ClosedTrade
		if err := rows.Scan(
			&t.PositionID, &t.Direction, &t.EntrySpread,
			&t.EntryQuote.BidA, &t.EntryQuote.AskA, &t.EntryQuote.BidB, &t.EntryQuote.AskB,
			&t.ExitQuote.BidA, &t.ExitQuote.AskA, &t.ExitQuote.BidB, &t.ExitQuote.AskB,
			&t.NotionalSize, &t.OpenedAt, &t.ClosedAt, &t.HoldingSeconds,
			&t.ExitMethod, &t.RealizedPnL,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert persists a single closed trade. Replays of the same position ID are
// silently skipped via ON CONFLICT DO NOTHING.
func (s *TradeStore) Insert(ctx context.Context, t domain.ClosedTrade) error {
	const query = `
		INSERT INTO closed_trades (
			position_id, direction, entry_spread,
			entry_bid_a, entry_ask_a, entry_bid_b, entry_ask_b,
			exit_bid_a, exit_ask_a, exit_bid_b, exit_ask_b,
			notional_size, opened_at, closed_at, holding_seconds,
			exit_method, realized_pnl
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17
		) ON CONFLICT (position_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		t.PositionID, t.Direction, t.EntrySpread,
		t.EntryQuote.BidA, t.EntryQuote.AskA, t.EntryQuote.BidB, t.EntryQuote.AskB,
		t.ExitQuote.BidA, t.ExitQuote.AskA, t.ExitQuote.BidB, t.ExitQuote.AskB,
		t.NotionalSize, t.OpenedAt, t.ClosedAt, t.HoldingSeconds,
		t.ExitMethod, t.RealizedPnL,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert closed trade %s: %w", t.PositionID, err)
	}
	return nil
}

// ListRecent returns the most recently closed trades, newest first.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.ClosedTrade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM closed_trades ORDER BY closed_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent trades: %w", err)
	}
	return trades, nil
}

// SumRealizedPnL returns the total realized PnL across trades closed at or
// after the given time. An empty window sums to zero.
func (s *TradeStore) SumRealizedPnL(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(realized_pnl), 0) FROM closed_trades WHERE closed_at >= $1`,
		since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum realized pnl: %w", err)
	}
	return total, nil
}
