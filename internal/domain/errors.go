package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrClientNotFound is returned when a client lookup misses
	ErrClientNotFound = errors.New("client not found")

	// ErrDuplicateJob is returned when an enqueue hits an existing dedup key.
	// This is a normal outcome, not a failure: repeated status-change
	// triggers are expected and must not duplicate sends.
	ErrDuplicateJob = errors.New("job with this dedup key already exists")
)
