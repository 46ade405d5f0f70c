package service

import "errors"

var (
	// ErrTokenInvalid covers signature, expiry and tokenCount failures. The
	// session layer degrades it to an unauthenticated request; it never
	// reaches a client distinguishably from "no session at all".
	ErrTokenInvalid = errors.New("token invalid")

	// ErrPrincipalNotFound is treated identically to ErrTokenInvalid on the
	// refresh path.
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrStoreUnavailable is the one fatal session error: it must surface as
	// a service failure rather than a false unauthenticated state.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)
