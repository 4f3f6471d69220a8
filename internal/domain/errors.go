package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCode       = errors.New("invalid or expired code")
	ErrNotVerified       = errors.New("email and mobile must both be verified")
	ErrAlreadyRegistered = errors.New("user already registered")
	ErrDelivery          = errors.New("delivery failed")
	ErrBackend           = errors.New("backend unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)
