package gateway

import "errors"

// Errors returned by the gateway pipeline. Each stage fails with exactly one
// of these (wrapped with context); callers distinguish them with errors.Is.
var (
	// ErrConnectivity means coap-client produced no usable output: the
	// gateway could not be reached or the binary could not be started.
	ErrConnectivity = errors.New("gateway: failed to connect")

	// ErrInvalidResponse means output was produced but no JSON body was
	// found on the expected line.
	ErrInvalidResponse = errors.New("gateway: invalid response")

	// ErrDataTransform means a decoded payload did not have the shape
	// expected for the target entity.
	ErrDataTransform = errors.New("gateway: unexpected payload shape")

	// ErrTimeout means coap-client exceeded its budget and was killed.
	ErrTimeout = errors.New("gateway: request timed out")

	// ErrUnknownKind is returned by ParseKind.
	ErrUnknownKind = errors.New("gateway: unknown resource kind")
)
