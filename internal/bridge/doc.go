// Package bridge connects a Trådfri gateway to the Gray Logic MQTT bus.
//
// The bridge polls the gateway and publishes one retained state message
// per device and group:
//
//	graylogic/state/tradfri/device-65537
//	{"address":"device-65537","kind":"device","id":65537,"name":"Hallway",
//	 "state":{"on":true,"brightness":254,"color":"f1e0b5"}, ...}
//
// Commands arrive on graylogic/command/tradfri/{address}:
//
//	{"id":"c1","command":"set","parameters":{"brightness":128,"transition_time":10}}
//
// and are acknowledged on graylogic/ack/tradfri/{address}, first "accepted"
// and then "completed", "failed" or "timeout". Health is published retained
// on graylogic/health/tradfri, which is also the MQTT last will.
//
// Commands and polls share one gateway queue, so a command may wait behind
// a poll. CommandTimeout bounds that wait together with the write itself.
package bridge
