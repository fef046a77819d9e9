package domain

import "time"

// DirectionDetail carries the per-direction breakdown behind an Opportunity,
// kept for monitoring and logging.
type DirectionDetail struct {
	SpreadAToB    float64 `json:"spread_a_to_b"`
	SpreadBToA    float64 `json:"spread_b_to_a"`
	NetProfitAToB float64 `json:"net_profit_a_to_b"`
	NetProfitBToA float64 `json:"net_profit_b_to_a"`
	AvgPrice      float64 `json:"avg_price"`
}

// Opportunity is the derived, ephemeral result of evaluating one quote. It is
// recomputed every tick and never persisted. When IsProfitable is false the
// Direction still names the larger raw spread so observers can see how far
// the market is from the entry threshold, but it must never feed the open
// path.
type Opportunity struct {
	Direction    Direction       `json:"direction"`
	Spread       float64         `json:"spread"`
	OpenFee      float64         `json:"open_fee"`
	NetProfit    float64         `json:"net_profit"`
	IsProfitable bool            `json:"is_profitable"`
	Detail       DirectionDetail `json:"detail"`
	DetectedAt   time.Time       `json:"detected_at"`
}
