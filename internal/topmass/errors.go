package topmass

import "errors"

var (
	// ErrInvalidParameter reports an out-of-range configuration value.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrMissingDimension reports a dimension mask lacking a dimension
	// that the requested scan always samples.
	ErrMissingDimension = errors.New("dimension mask is missing a required dimension")

	// ErrNotImplemented reports a feature combination that the engine
	// does not support yet.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNoHypothesis reports an event for which no jet assignment has a
	// non-zero prior weight.
	ErrNoHypothesis = errors.New("no feasible jet assignment")
)
