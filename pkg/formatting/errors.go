package formatting

import "errors"

var (
	// ErrInvalidInput is returned for non-finite, negative or zero values where a
	// positive finite decimal is required.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOverflow is returned when a value does not fit in uint64 chain units.
	ErrOverflow = errors.New("chain unit overflow")

	// ErrInvalidMarketConfig is returned when a MarketConfig breaks its invariants.
	ErrInvalidMarketConfig = errors.New("market config invariant violated")
)
