// Package gateway speaks to an IKEA Trådfri gateway through libcoap's
// coap-client.
//
// A call flows through four stages, each of which can fail on its own:
//
//	Encoder   builds a Request (verb, path, credentials, JSON payload)
//	Executor  queues it on the shared throttle lane and runs coap-client
//	Decode    pulls the JSON body off the fourth line of output
//	Transform maps the payload to a Device, Group, Identity or id list
//
// Errors are one of ErrConnectivity, ErrInvalidResponse, ErrDataTransform or
// ErrTimeout (wrapped; test with errors.Is). An unrecognised colour on a PUT
// is not an error: the property is left out of the payload.
//
// Resource identifiers follow the gateway's LWM2M-style object model:
//
//	9003  id                  5850  on/off
//	9001  name                5706  colour (hex)
//	3/1   device type/model   5712  transition time
//	3311  light control       5851  brightness
//	9018/15002/9003  group member ids
//	9090  client identity     9091  issued PSK
//
// This package does not log.
package gateway
