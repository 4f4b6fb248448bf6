package domain

import "errors"

var (
	// ErrInvalidInput indicates a malformed or out-of-range argument:
	// a non-positive amount, a probability outside (0,1), a slippage
	// tolerance outside [0,1).
	ErrInvalidInput = errors.New("invalid input")

	// ErrDivisionByZero indicates a degenerate denominator, such as a
	// zero price sum or empty liquidity pool.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrState indicates an illegal position state transition. The
	// position is left unchanged.
	ErrState = errors.New("illegal state transition")

	// ErrNetwork indicates a feed fetch or transaction submission failure.
	ErrNetwork = errors.New("network failure")

	// ErrStaleData is returned when a caller requires fresh feed data and
	// only a stale entry is available.
	ErrStaleData = errors.New("stale feed data")

	// ErrNotFound indicates a missing position or feed entry.
	ErrNotFound = errors.New("not found")
)
