// Package gateway talks to the remote identity/data gateway that hosts
// authentication, the relational tables and object storage. The rest of the
// application consumes the hosted backend exclusively through this package;
// nothing else in the repository knows the wire protocol.
package gateway

import "errors"

// Sentinel errors returned by gateway calls. Handlers translate these into
// HTTP responses; the auth state machine branches on them. ErrUnavailable
// covers transport failures, timeouts and 5xx responses and must never be
// conflated with an unauthenticated or rejected account.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrEmailExists        = errors.New("email already registered")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrUnavailable        = errors.New("gateway unavailable")
)

// IsTransient reports whether err indicates a temporary gateway problem
// (down, unreachable, overloaded) rather than a definitive answer about the
// caller's request.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRateLimited)
}
