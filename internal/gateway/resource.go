package gateway

import (
	"fmt"
	"strings"
)

// DefaultPort is the CoAPS port every Trådfri gateway listens on.
const DefaultPort = 5684

// BootstrapIdentity is the fixed identity used, together with the security
// code printed on the gateway, to request a session key.
const BootstrapIdentity = "Client_identity"

// Endpoints (first path segment of the CoAP URI).
const (
	EndpointDevices  = "15001"
	EndpointGroups   = "15004"
	EndpointRegister = "15011/9063"
)

// Resource identifiers used in gateway payloads.
const (
	ResID             = "9003"
	ResName           = "9001"
	ResDeviceInfo     = "3"
	ResDeviceModel    = "1" // nested under ResDeviceInfo
	ResLightControl   = "3311"
	ResOnOff          = "5850"
	ResColor          = "5706"
	ResTransitionTime = "5712"
	ResBrightness     = "5851"
	ResGroupMembers   = "9018"
	ResMemberDevices  = "15002" // nested under ResGroupMembers
	ResSecurityID     = "9091"
	ResClientIdentity = "9090"
)

// Kind selects the device or group collection.
type Kind int

// Resource kinds.
const (
	KindDevice Kind = iota + 1
	KindGroup
)

// Endpoint returns the collection endpoint for the kind.
func (k Kind) Endpoint() string {
	switch k {
	case KindDevice:
		return EndpointDevices
	case KindGroup:
		return EndpointGroups
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "device"
	case KindGroup:
		return "group"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses "device" or "group" (case-insensitive, plural accepted).
func ParseKind(s string) (Kind, error) {
	switch strings.TrimSuffix(strings.ToLower(s), "s") {
	case "device":
		return KindDevice, nil
	case "group":
		return KindGroup, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}
