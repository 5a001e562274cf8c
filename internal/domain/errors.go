package domain

import "errors"

var (
	// ErrInvalidRate indicates a settings save with a non-positive rate or markup.
	ErrInvalidRate = errors.New("rate and markup values must be positive")

	// ErrFetchFailed indicates the price API could not be reached or returned bad data.
	ErrFetchFailed = errors.New("price fetch failed")

	// ErrUnknownSymbol indicates a field name outside the supported set.
	ErrUnknownSymbol = errors.New("unknown currency symbol")
)
