package auth

import "errors"

var ErrForbidden = errors.New("forbidden")

// Authorize gates an operation by role. An empty requiredRole means any valid
// identity may proceed; otherwise the roles must match exactly. Pure function,
// both policy points in the system go through it.
func Authorize(identity Identity, requiredRole string) error {
	if requiredRole == "" {
		return nil
	}

	if identity.Role != requiredRole {
		return ErrForbidden
	}

	return nil
}
