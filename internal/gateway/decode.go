package gateway

import (
	"bytes"
	"fmt"
)

// bodyLine is the zero-based line of coap-client output carrying the JSON
// body. The lines before it are the tool's banner (version, URI, decrypt
// notice) and are ignored.
const bodyLine = 3

// Decode extracts the JSON body from raw coap-client output.
//
// Empty output means the gateway was never reached and yields
// ErrConnectivity. Output without a JSON document on the body line yields
// ErrInvalidResponse.
func Decode(output []byte) (RawPayload, error) {
	if len(bytes.TrimSpace(output)) == 0 {
		return RawPayload{}, ErrConnectivity
	}

	lines := bytes.Split(output, []byte("\n"))
	if len(lines) <= bodyLine {
		return RawPayload{}, fmt.Errorf("%w: %d lines of output, body expected on line %d",
			ErrInvalidResponse, len(lines), bodyLine+1)
	}

	line := bytes.TrimSpace(lines[bodyLine])
	if len(line) == 0 {
		return RawPayload{}, fmt.Errorf("%w: body line is empty", ErrInvalidResponse)
	}

	p, err := ParsePayload(line)
	if err != nil {
		return RawPayload{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return p, nil
}
