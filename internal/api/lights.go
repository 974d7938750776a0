package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-tradfri/internal/bridge"
	"github.com/nerrad567/gray-logic-tradfri/internal/gateway"
)

// handleListDevices returns every device. With ?cached=true it answers from
// the bridge's last poll instead of asking the gateway.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if cached(r) {
		devices := s.bridge.CachedDevices()
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}
	devices, err := s.gateway.Devices(r.Context(), nil)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := s.gateway.Device(r.Context(), id)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	if cached(r) {
		groups := s.bridge.CachedGroups()
		writeJSON(w, http.StatusOK, map[string]any{"groups": groups, "count": len(groups)})
		return
	}
	groups, err := s.gateway.Groups(r.Context())
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups, "count": len(groups)})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	g, err := s.gateway.Group(r.Context(), id)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handleOverview returns every group with its member devices.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	all, err := s.gateway.All(r.Context())
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": all, "count": len(all)})
}

func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	s.setState(w, r, gateway.KindDevice)
}

func (s *Server) handleSetGroupState(w http.ResponseWriter, r *http.Request) {
	s.setState(w, r, gateway.KindGroup)
}

// setState applies a body such as {"state":"toggle"} or
// {"brightness":128,"transition_time":10}. It accepts the same parameters
// as an MQTT "set" command.
func (s *Server) setState(w http.ResponseWriter, r *http.Request, kind gateway.Kind) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var params map[string]any
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		if errors.Is(err, io.EOF) {
			writeBadRequest(w, "request body is required")
			return
		}
		writeBadRequest(w, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	cmd := bridge.CommandMessage{Command: bridge.CommandSet, Parameters: params}
	props, err := cmd.Properties()
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	if err := s.bridge.Apply(r.Context(), kind, id, props); err != nil {
		s.logger.Warn("state change failed",
			"address", bridge.Address(kind, id),
			"request_id", requestID(r),
			"error", err)
		writeGatewayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address": bridge.Address(kind, id),
		"status":  "applied",
	})
}

// pathID parses {id}. Trådfri ids are non-negative integers.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		writeBadRequest(w, fmt.Sprintf("invalid id %q", raw))
		return 0, false
	}
	return id, true
}

func cached(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("cached")) //nolint:errcheck // anything else means false
	return v
}
