package rbac

import (
	"errors"
	"fmt"
)

// Closed error taxonomy for role and permission operations. Callers branch with
// errors.Is; anything outside the taxonomy is treated as internal and its
// message is never shown to end users.
var (
	// ErrValidation indicates input that fails a local invariant.
	ErrValidation = errors.New("rbac: validation failed")
	// ErrNotFound indicates the operation targeted an id no longer present.
	ErrNotFound = errors.New("rbac: not found")
	// ErrConflict indicates a delete blocked by existing references or an
	// overlapping in-flight mutation.
	ErrConflict = errors.New("rbac: conflict")
)

// ErrIntegrity marks a dangling permission reference. It is a subtype of
// ErrValidation: errors.Is(err, ErrValidation) also holds.
var ErrIntegrity = fmt.Errorf("%w: dangling permission reference", ErrValidation)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func validationConflict(refs int) error {
	if refs == 1 {
		return fmt.Errorf("%w: permission is still assigned to 1 role", ErrConflict)
	}
	return fmt.Errorf("%w: permission is still assigned to %d roles", ErrConflict, refs)
}

// UserMessage maps an error kind to text safe for end users. Internal errors
// collapse to a generic line.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIntegrity):
		return "The selection references a permission that no longer exists. Refresh and try again."
	case errors.Is(err, ErrValidation):
		return trimPrefix(err)
	case errors.Is(err, ErrNotFound):
		return "The record no longer exists. Refresh the listing and try again."
	case errors.Is(err, ErrConflict):
		return trimPrefix(err)
	default:
		return "Something went wrong. Please try again."
	}
}

func trimPrefix(err error) string {
	msg := err.Error()
	const p = "rbac: "
	if len(msg) > len(p) && msg[:len(p)] == p {
		return msg[len(p):]
	}
	return msg
}
