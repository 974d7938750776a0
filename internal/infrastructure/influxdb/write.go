package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementLightState = "light_state"
	MeasurementGateway    = "gateway_requests"
)

// LightState is one observation of a device or group.
type LightState struct {
	Gateway    string // gateway host
	Kind       string // "device" or "group"
	ID         int
	Name       string
	On         bool
	Brightness *int
	Color      *string
}

// WriteLightState records a light observation. Brightness and colour are
// only written when the gateway reported them.
//
//	client.WriteLightState(influxdb.LightState{Gateway: "10.0.0.5", Kind: "device", ID: 65537, On: true}, time.Now())
func (c *Client) WriteLightState(s LightState, at time.Time) {
	fields := map[string]any{"on": s.On}
	if s.Brightness != nil {
		fields["brightness"] = *s.Brightness
	}
	if s.Color != nil {
		fields["color"] = *s.Color
	}

	c.WritePointWithTime(MeasurementLightState, map[string]string{
		"gateway": s.Gateway,
		"kind":    s.Kind,
		"id":      strconv.Itoa(s.ID),
		"name":    s.Name,
	}, fields, at)
}

// GatewayStats summarises coap-client invocations since start.
type GatewayStats struct {
	Gateway       string
	Runs          uint64
	Failures      uint64
	Timeouts      uint64
	LastLatencyMS int64
	QueueDepth    int
}

// WriteGatewayStats records request counters for a gateway.
func (c *Client) WriteGatewayStats(s GatewayStats, at time.Time) {
	c.WritePointWithTime(MeasurementGateway, map[string]string{"gateway": s.Gateway}, map[string]any{
		"runs":            int64(s.Runs),     // #nosec G115 -- counters stay far below 2^63
		"failures":        int64(s.Failures), // #nosec G115
		"timeouts":        int64(s.Timeouts), // #nosec G115
		"last_latency_ms": s.LastLatencyMS,
		"queue_depth":     s.QueueDepth,
	}, at)
}

// WritePointWithTime writes a custom point.
//
// This is non-blocking; the point is batched and sent asynchronously.
// Points written after Close are dropped silently.
//
// Parameters:
//   - measurement: measurement name, e.g. "light_state"
//   - tags: indexed metadata (gateway, kind, id, name)
//   - fields: the values; at least one is required by InfluxDB
//   - at: observation time
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
