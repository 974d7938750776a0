package gateway

// Device is a single Trådfri accessory (bulb, driver, plug, remote).
// Devices are read-only snapshots; changes are made with a PUT and observed
// by fetching again.
type Device struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	// Type is the numeric device type when the gateway reports one.
	Type int `json:"type"`
	// Model is the product name some firmware reports in place of Type.
	Model      string  `json:"model,omitempty"`
	On         bool    `json:"on"`
	Color      *string `json:"color,omitempty"`
	Brightness *int    `json:"brightness,omitempty"`
}

// Group is a gateway-defined set of devices switched together.
type Group struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Devices    []int  `json:"devices"`
	On         bool   `json:"on"`
	Brightness *int   `json:"brightness,omitempty"`
}

// Identity is the result of registering a client with the gateway.
type Identity struct {
	Username string `json:"username"`
	// SecurityID is the issued PSK. WARNING: Never log this value.
	SecurityID string `json:"securityId"`
}

// GroupWithDevices pairs a group with the devices fetched for it.
type GroupWithDevices struct {
	Group
	Members []Device `json:"members"`
}
