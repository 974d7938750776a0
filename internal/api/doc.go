// Package api serves the bridge's HTTP REST API and WebSocket feed.
//
// Routes, all under /api/v1:
//
//	GET /health               bridge and gateway status, never calls the gateway
//	GET /overview             every group with its member devices
//	GET /devices              every device (?cached=true for the last poll)
//	GET /devices/{id}
//	PUT /devices/{id}/state   {"state":"on"|"off"|"toggle"|bool, "brightness":0-254, "color":..., "transition_time":...}
//	GET /groups               every group (?cached=true for the last poll)
//	GET /groups/{id}
//	PUT /groups/{id}/state
//	GET /ws                   WebSocket; subscribe to the "state" channel
//
// Reads go straight to the gateway and are therefore slow: each device is
// one coap-client run, and runs are serialised. Writes go through the
// bridge so the new state is also published on MQTT.
//
// Gateway failures map to 502 (unreachable or unparseable) and 504
// (coap-client timed out).
package api
