// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a resource owned by
// someone else, while ErrConflict signals that an operation
// cannot proceed because of the current state of dependent
// records (e.g. completing a booking that is no longer CONFIRMED).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own, such as an instructor issuing a
// QR token for someone else's class. Handlers should translate
// this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed
// because of conflicting state, such as the conditional
// CONFIRMED → COMPLETED booking transition matching no row.
// Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
