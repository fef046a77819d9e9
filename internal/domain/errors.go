package domain

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist, e.g.
	// closing a position that is not in the open set.
	ErrNotFound = errors.New("not found")

	// ErrQuoteUnavailable signals that a complete venue-pair snapshot could
	// not be produced this tick. The tick is skipped with no state change.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrLegFailure signals that a two-leg operation did not complete; any
	// partial fill has already been compensated.
	ErrLegFailure = errors.New("leg submission failed")

	// ErrCompensationFailed signals that the compensating close of a partial
	// fill did not fill: a naked, unhedged leg may exist. Fatal; automated
	// opens halt until an operator acknowledges.
	ErrCompensationFailed = errors.New("compensation order failed")

	// ErrTradingHalted is returned while the coordinator is halted after a
	// compensation failure. Open positions are still monitored for exits.
	ErrTradingHalted = errors.New("trading halted pending acknowledgement")

	// ErrInvariantViolation marks a programming error in call ordering, such
	// as opening past the caps. It is a defect to fix, never recovered from.
	ErrInvariantViolation = errors.New("ledger invariant violation")

	// ErrLockHeld is returned when a distributed lock is already held by
	// another party.
	ErrLockHeld = errors.New("lock already held")
)
