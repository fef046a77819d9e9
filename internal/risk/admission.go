// Package risk enforces the pre-trade admission rules: position-count and
// total-notional caps, and the spread-watermark conditions for adding to an
// existing position set.
package risk

import "fmt"

// AdmissionConfig holds the tunable caps and add-on thresholds.
type AdmissionConfig struct {
	MaxPositions     int
	MaxTotalNotional float64
	// Add-on rules: the current spread must exceed the best spread seen by
	// MinSpreadIncrease and be at least MinTotalSpread in absolute terms.
	MinSpreadIncrease float64
	MinTotalSpread    float64
}

// LedgerView is the read-only slice of ledger state admission needs.
type LedgerView interface {
	OpenCount() int
	TotalNotional() float64
}

// AdmissionController decides whether a new position may be opened or added.
// All checks are pure given their inputs; the best-spread watermark is owned
// by the engine loop, not the controller.
type AdmissionController struct {
	cfg AdmissionConfig
}

// NewAdmissionController creates an AdmissionController with the given caps.
func NewAdmissionController(cfg AdmissionConfig) *AdmissionController {
	return &AdmissionController{cfg: cfg}
}

// CanOpen reports whether a new position fits under the count and notional
// caps. A false result carries a human-readable reason; it is information,
// not an error.
func (a *AdmissionController) CanOpen(view LedgerView) (bool, string) {
	if view.OpenCount() >= a.cfg.MaxPositions {
		return false, fmt.Sprintf("max positions reached (%d/%d)", view.OpenCount(), a.cfg.MaxPositions)
	}
	if view.TotalNotional() >= a.cfg.MaxTotalNotional {
		return false, fmt.Sprintf("total notional cap reached (%.2f/%.2f)", view.TotalNotional(), a.cfg.MaxTotalNotional)
	}
	return true, "ok"
}

// CanAdd reports whether an additional position may be opened while others
// are already held. It requires CanOpen to pass, the spread to have widened
// past the watermark by MinSpreadIncrease, and the absolute spread to reach
// MinTotalSpread.
func (a *AdmissionController) CanAdd(currentSpread, bestSpreadSeen float64, view LedgerView) (bool, string) {
	if ok, reason := a.CanOpen(view); !ok {
		return false, reason
	}

	if increase := currentSpread - bestSpreadSeen; increase < a.cfg.MinSpreadIncrease {
		return false, fmt.Sprintf("spread increase %.4f below add-on threshold %.4f", increase, a.cfg.MinSpreadIncrease)
	}
	if currentSpread < a.cfg.MinTotalSpread {
		return false, fmt.Sprintf("spread %.4f below add-on minimum %.4f", currentSpread, a.cfg.MinTotalSpread)
	}
	return true, "ok"
}
