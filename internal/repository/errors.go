// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a record owned by someone
// else, while ErrConflict signals that an operation cannot proceed
// because of conflicting state (e.g. importing a contact whose phone
// number is already on the list).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a record they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a create or update cannot be
// performed because of conflicting state. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrUnauthenticated is returned when an operation requires a signed-in
// user and no session is available. Handlers should translate this into
// an HTTP 401 response.
var ErrUnauthenticated = errors.New("no active session")
