package graph

import "errors"

var (
	// ErrNoFetcher is returned by Request when the client has no transport.
	ErrNoFetcher = errors.New("graph client has no url fetcher")
	// ErrInvalidExpiresIn is returned when an expires_in value is not a non-negative integer.
	ErrInvalidExpiresIn = errors.New("invalid expires_in value")
)
