package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-tradfri/internal/bridge"
	"github.com/nerrad567/gray-logic-tradfri/internal/gateway"
)

// Error is the body of every error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeValidation         = "validation_error"
	ErrCodeInternal           = "internal_error"
	ErrCodeGatewayUnreachable = "gateway_unreachable"
	ErrCodeGatewayTimeout     = "gateway_timeout"
	ErrCodeBadGateway         = "bad_gateway_response"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // connection may already be gone
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeGatewayError maps a failed gateway call onto a status code:
//
//	invalid parameters        400
//	gateway unreachable       502
//	unparseable response      502
//	coap-client timed out     504
func writeGatewayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bridge.ErrInvalidParameters), errors.Is(err, bridge.ErrInvalidCommand):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, gateway.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrCodeGatewayTimeout, err.Error())
	case errors.Is(err, gateway.ErrConnectivity):
		writeError(w, http.StatusBadGateway, ErrCodeGatewayUnreachable, err.Error())
	case errors.Is(err, gateway.ErrInvalidResponse), errors.Is(err, gateway.ErrDataTransform):
		writeError(w, http.StatusBadGateway, ErrCodeBadGateway, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
