package bridge

import "errors"

var (
	// ErrInvalidAddress is returned for topic addresses that are not
	// "device-<id>" or "group-<id>".
	ErrInvalidAddress = errors.New("bridge: invalid address")

	// ErrInvalidCommand is returned for unknown command names.
	ErrInvalidCommand = errors.New("bridge: invalid command")

	// ErrInvalidParameters is returned for bad "set" parameters.
	ErrInvalidParameters = errors.New("bridge: invalid parameters")
)
