package service

import "errors"

var (
	// ErrInvalidInput marks a request rejected before any mutation: bad
	// amount, bad identity, deposits below the minimum or off the step grid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDataIntegrity marks corrupted referral data (a sponsor cycle).
	// It aborts the operation and must never be silently tolerated.
	ErrDataIntegrity = errors.New("data integrity fault")
)
