package domain

import (
	"fmt"
	"time"
)

// PositionState tracks where a position is in its lifecycle. A position only
// enters the ledger once its dual-leg open is confirmed, and leaves it only
// on a confirmed dual-leg close.
type PositionState string

const (
	PositionStateOpen    PositionState = "open"
	PositionStateClosing PositionState = "closing"
	PositionStateClosed  PositionState = "closed"
)

// ExitMethod records which exit rule closed a position.
type ExitMethod string

const (
	ExitReversal   ExitMethod = "REVERSAL"
	ExitTakeProfit ExitMethod = "TAKE_PROFIT"
	ExitTimeout    ExitMethod = "TIMEOUT"
)

// Position is an open cross-venue position. EntrySpread is the realized
// executable spread at the moment of opening and is frozen for the life of
// the position; UnrealizedPnL is recomputed every tick by the ledger.
type Position struct {
	ID            string        `json:"id"`
	Direction     Direction     `json:"direction"`
	EntrySpread   float64       `json:"entry_spread"`
	EntryQuote    Quote         `json:"entry_quote"`
	NotionalSize  float64       `json:"notional_size"`
	Quantity      float64       `json:"quantity"` // shared unit quantity submitted on both legs
	OpenedAt      time.Time     `json:"opened_at"`
	UnrealizedPnL float64       `json:"unrealized_pnl"`
	State         PositionState `json:"state"`
}

// PositionID derives the position identifier from direction and open time,
// e.g. "A_TO_B_20260826153000".
func PositionID(dir Direction, openedAt time.Time) string {
	return fmt.Sprintf("%s_%s", dir, openedAt.Format("20060102150405"))
}

// HoldingSeconds returns how long the position has been held as of now.
func (p Position) HoldingSeconds(now time.Time) float64 {
	return now.Sub(p.OpenedAt).Seconds()
}

// HoldingHours returns the holding duration in hours as of now.
func (p Position) HoldingHours(now time.Time) float64 {
	return p.HoldingSeconds(now) / 3600
}

// ClosedTrade is the immutable record created when a position is closed. It
// is append-only and feeds the aggregate statistics.
type ClosedTrade struct {
	PositionID     string     `json:"position_id"`
	Direction      Direction  `json:"direction"`
	EntrySpread    float64    `json:"entry_spread"`
	EntryQuote     Quote      `json:"entry_quote"`
	ExitQuote      Quote      `json:"exit_quote"`
	NotionalSize   float64    `json:"notional_size"`
	OpenedAt       time.Time  `json:"opened_at"`
	ClosedAt       time.Time  `json:"closed_at"`
	HoldingSeconds float64    `json:"holding_seconds"`
	ExitMethod     ExitMethod `json:"exit_method"`
	RealizedPnL    float64    `json:"realized_pnl"`
}

// LedgerStats is a derived read-only view over closed trades. An empty
// history yields the zero value, not an error.
type LedgerStats struct {
	TotalTrades      int     `json:"total_trades"`
	ProfitableTrades int     `json:"profitable_trades"`
	LosingTrades     int     `json:"losing_trades"`
	TotalRealizedPnL float64 `json:"total_realized_pnl"`
	WinRate          float64 `json:"win_rate"` // percent
	AvgPnL           float64 `json:"avg_pnl"`
	AvgHoldingSec    float64 `json:"avg_holding_seconds"`
}
