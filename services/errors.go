package services

import "errors"

// Typed failures surfaced to the HTTP layer, which decides status codes and
// user-visible messages. The services never retry and never swallow these.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInactiveToken     = errors.New("qr code is inactive")
	ErrInvalidSession    = errors.New("invalid session token")
	ErrSessionExpired    = errors.New("session has expired, scan the qr code again")
	ErrSessionNotActive  = errors.New("session is not active")
	ErrAlreadyTerminal   = errors.New("session is already in a terminal state")
	ErrCrossTenant       = errors.New("referenced record belongs to a different business")
	ErrAccessDenied      = errors.New("access denied for this business")
	ErrTenantResolution  = errors.New("cannot resolve business for this account")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrNoAgentsAvailable = errors.New("no delivery agents available")
	ErrAgentUnavailable  = errors.New("agent is not available for delivery")
	ErrTrackingExists    = errors.New("delivery tracking already exists for this order")
	ErrEmptyOrder        = errors.New("order must contain at least one item")
	ErrGuestNameRequired = errors.New("guest name is required")
)
