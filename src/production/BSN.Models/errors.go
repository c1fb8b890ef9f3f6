package bsnmodels

import "errors"

// Error taxonomy shared by ingest, graph feed and report services.
// Controllers translate these to HTTP statuses.
var (
	// ErrUnknownUnit is returned for a unit_ID with no provisioned board state.
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrInvalidTimeFormat is returned when caller-supplied window bounds
	// fail to parse.
	ErrInvalidTimeFormat = errors.New("invalid time format")

	// ErrStoreWriteFailed is returned when the persistence layer rejects a
	// write. Nothing has been broadcast when this is returned.
	ErrStoreWriteFailed = errors.New("store write failed")

	// ErrNoData is returned by aggregate queries that match zero entries.
	ErrNoData = errors.New("no data")

	// ErrDuplicateUnit is returned when provisioning collides with an
	// existing unit.
	ErrDuplicateUnit = errors.New("duplicate unit")
)
