package identity

import "errors"

var (
	// ErrNotFound is returned when no identity is stored for a gateway.
	ErrNotFound = errors.New("identity: not found")

	// ErrInvalid is returned when an identity is missing its username or key.
	ErrInvalid = errors.New("identity: invalid")
)
