package domain

import (
	"errors"
)

// Sentinel errors for the session protocol. Handlers map these to HTTP
// status codes; the core only ever wraps them with context.
var (
	// ErrSessionNotFound is returned for an unknown session id on any
	// session-scoped operation.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidState is returned when the session's state machine
	// forbids the requested operation (start while processing, fetch
	// results before completed, feedback with no prior results).
	ErrInvalidState = errors.New("operation not allowed in current session state")

	// ErrNoComplaints is returned when processing is started on a
	// session whose complaint list is empty.
	ErrNoComplaints = errors.New("no complaints to process")

	// ErrNoRiskTable is returned when processing is started without a
	// risk table loaded.
	ErrNoRiskTable = errors.New("no risk table loaded")
)
