package api

import (
	"net/http"
	"time"
)

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status        string        `json:"status"`
	Version       string        `json:"version"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	MQTTConnected bool          `json:"mqtt_connected"`
	WSClients     int           `json:"websocket_clients"`
	Gateway       GatewayHealth `json:"gateway"`
}

// GatewayHealth summarises polling and coap-client activity.
type GatewayHealth struct {
	LastPoll       *time.Time `json:"last_poll,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	Devices        int        `json:"devices"`
	Groups         int        `json:"groups"`
	Polls          uint64     `json:"polls"`
	PollErrors     uint64     `json:"poll_errors"`
	CommandsOK     uint64     `json:"commands_ok"`
	CommandsFailed uint64     `json:"commands_failed"`
	Requests       uint64     `json:"requests"`
	Failures       uint64     `json:"failures"`
	Timeouts       uint64     `json:"timeouts"`
	QueueDepth     int        `json:"queue_depth"`
	LastLatencyMS  int64      `json:"last_latency_ms"`
}

// handleHealth never calls the gateway; it reports what the bridge last
// saw. Status is "degraded" when the last poll failed or MQTT is down.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	m := s.bridge.Metrics()

	resp := HealthResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		MQTTConnected: s.mqtt != nil && s.mqtt.IsConnected(),
		WSClients:     s.hub.ClientCount(),
		Gateway: GatewayHealth{
			Devices:        m.Devices,
			Groups:         m.Groups,
			Polls:          m.Polls,
			PollErrors:     m.PollErrors,
			CommandsOK:     m.CommandsOK,
			CommandsFailed: m.CommandsFailed,
			Requests:       m.Gateway.Requests,
			Failures:       m.Gateway.Failures,
			Timeouts:       m.Gateway.Timeouts,
			QueueDepth:     m.Gateway.QueueDepth,
			LastLatencyMS:  m.Gateway.LastLatency.Milliseconds(),
		},
	}
	if !m.LastPoll.IsZero() {
		last := m.LastPoll.UTC()
		resp.Gateway.LastPoll = &last
	}
	if m.LastPollError != nil {
		resp.Gateway.LastError = m.LastPollError.Error()
		resp.Status = "degraded"
	}
	if s.mqtt != nil && !resp.MQTTConnected {
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}
