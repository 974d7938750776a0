// Package tradfri is the device and group API of the bridge.
//
// It composes the gateway pipeline (encode, queue, run, decode, transform)
// into operations callers actually want: list ids, fetch one or many
// devices and groups, switch things on and off, and register a new client
// identity.
//
// Usage:
//
//	client := tradfri.New(executor, gateway.NewEncoder(session, bootstrap))
//	devices, err := client.Devices(ctx, nil) // every device
//	err = client.SetDeviceState(ctx, 65537, gateway.Properties{State: "toggle"})
package tradfri
