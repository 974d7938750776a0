// Package influxdb records light state and gateway request telemetry in
// InfluxDB v2.
//
// Every poll of the gateway writes one light_state point per device and
// group, giving an on/off and brightness history without touching the
// gateway again. gateway_requests points track how many coap-client calls
// ran, failed or timed out.
//
// Writes are batched (batch_size, flush_interval in config.yaml) and never
// block the caller. The integration is optional: Connect returns
// ErrDisabled when influxdb.enabled is false.
package influxdb
