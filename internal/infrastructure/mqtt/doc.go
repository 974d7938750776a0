// Package mqtt connects the bridge to the Gray Logic message bus.
//
// The bridge publishes retained device and group state, command
// acknowledgements and its own health, and receives commands:
//
//	graylogic/state/tradfri/{address}    bridge -> core, retained
//	graylogic/command/tradfri/{address}  core -> bridge
//	graylogic/ack/tradfri/{address}      bridge -> core
//	graylogic/health/tradfri             bridge -> core, retained, LWT
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{Topic: topics.Health(), Payload: offline, QoS: 1})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(topics.AllCommands(), 1, handle)
//
// TLS should be enabled whenever the broker is not on localhost.
package mqtt
