package models

import "errors"

var (
	// ErrInvalidTimestamp reports an instant that cannot be represented as a
	// calendar date between 0001-01-01 and 9999-12-31 UTC.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrEmptyIdentity reports a relation constructed without an account handle.
	ErrEmptyIdentity = errors.New("empty identity")
	// ErrEmptyRange reports a month series whose end precedes its start.
	ErrEmptyRange = errors.New("empty range")
)
