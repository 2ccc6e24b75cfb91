package memstore

import "errors"

var (
	// ErrNotFound is returned when a record does not exist in the store.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable is returned when the backend cannot be reached.
	// Durability is at stake, so this always propagates to the caller.
	ErrUnavailable = errors.New("memory store unavailable")
)
