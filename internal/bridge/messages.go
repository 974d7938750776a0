package bridge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-tradfri/internal/gateway"
)

// Protocol is the protocol segment of every topic this bridge uses.
const Protocol = "tradfri"

// Commands accepted on graylogic/command/tradfri/{address}.
const (
	CommandOn     = "on"
	CommandOff    = "off"
	CommandToggle = "toggle"
	CommandSet    = "set"
)

// CommandMessage is sent from Core to the bridge.
// Topic: graylogic/command/tradfri/{address}
type CommandMessage struct {
	// ID correlates the command with its acknowledgements. The bridge
	// generates one when Core leaves it empty.
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`

	// Parameters for "set": state, brightness (0-254), color (preset or
	// hex), transition_time (tenths of a second).
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source is where the command came from ("api", "automation", "scene").
	Source string `json:"source,omitempty"`
}

// AckStatus is the outcome reported for a command.
type AckStatus string

const (
	// AckAccepted means the command is valid and queued for the gateway.
	AckAccepted AckStatus = "accepted"

	// AckCompleted means the gateway accepted the write.
	AckCompleted AckStatus = "completed"

	AckFailed  AckStatus = "failed"
	AckTimeout AckStatus = "timeout"
)

// Ack error codes.
const (
	ErrCodeGatewayUnreachable = "GATEWAY_UNREACHABLE"
	ErrCodeInvalidCommand     = "INVALID_COMMAND"
	ErrCodeInvalidParameters  = "INVALID_PARAMETERS"
	ErrCodeInvalidAddress     = "INVALID_ADDRESS"
	ErrCodeProtocolError      = "PROTOCOL_ERROR"
	ErrCodeTimeout            = "TIMEOUT"
)

// AckMessage reports a command's progress.
// Topic: graylogic/ack/tradfri/{address}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`
	Address   string    `json:"address"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError details a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StateMessage carries the current state of a device or group.
// Topic: graylogic/state/tradfri/{address}, QoS 1, retained.
type StateMessage struct {
	Address   string         `json:"address"`
	Kind      string         `json:"kind"`
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	Timestamp time.Time      `json:"timestamp"`
	State     map[string]any `json:"state"`
	Protocol  string         `json:"protocol"`
}

// HealthStatus is the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"

	// HealthOffline is only ever published by the broker, as the LWT.
	HealthOffline HealthStatus = "offline"
)

// HealthMessage reports bridge status.
// Topic: graylogic/health/tradfri, QoS 1, retained.
type HealthMessage struct {
	Bridge        string            `json:"bridge"`
	Timestamp     time.Time         `json:"timestamp"`
	Status        HealthStatus      `json:"status"`
	Version       string            `json:"version,omitempty"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Gateway       *GatewayStatus    `json:"gateway,omitempty"`
	Statistics    *BridgeStatistics `json:"statistics,omitempty"`
	Devices       int               `json:"devices_managed"`
	Groups        int               `json:"groups_managed"`
	Reason        string            `json:"reason,omitempty"`
}

// GatewayStatus describes reachability of the hub.
type GatewayStatus struct {
	Host      string     `json:"host"`
	Status    string     `json:"status"` // "reachable", "unreachable" or "unknown"
	LastPoll  *time.Time `json:"last_poll,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// BridgeStatistics are counters since start.
type BridgeStatistics struct {
	Requests       uint64 `json:"requests"`
	Failures       uint64 `json:"failures"`
	Timeouts       uint64 `json:"timeouts"`
	QueueDepth     int    `json:"queue_depth"`
	Polls          uint64 `json:"polls"`
	PollErrors     uint64 `json:"poll_errors"`
	CommandsOK     uint64 `json:"commands_ok"`
	CommandsFailed uint64 `json:"commands_failed"`
}

// NewLWTMessage is the health message the broker publishes if the bridge
// disappears without a clean disconnect.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// LWTPayload marshals NewLWTMessage.
func LWTPayload(bridgeID string) []byte {
	b, _ := json.Marshal(NewLWTMessage(bridgeID)) //nolint:errchkjson // plain struct
	return b
}

// Address names a device or group in topics: "device-65537", "group-131073".
func Address(kind gateway.Kind, id int) string {
	return kind.String() + "-" + strconv.Itoa(id)
}

// ParseAddress reverses Address.
func ParseAddress(addr string) (gateway.Kind, int, error) {
	kindPart, idPart, ok := strings.Cut(addr, "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	kind, err := gateway.ParseKind(kindPart)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	id, err := strconv.Atoi(idPart)
	if err != nil || id < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return kind, id, nil
}

// DeviceState renders a device as a state map.
func DeviceState(d gateway.Device) map[string]any {
	s := map[string]any{"on": d.On}
	if d.Brightness != nil {
		s["brightness"] = *d.Brightness
	}
	if d.Color != nil {
		s["color"] = *d.Color
	}
	return s
}

// GroupState renders a group as a state map.
func GroupState(g gateway.Group) map[string]any {
	s := map[string]any{"on": g.On, "devices": g.Devices}
	if g.Brightness != nil {
		s["brightness"] = *g.Brightness
	}
	return s
}

func newDeviceStateMessage(d gateway.Device, at time.Time) StateMessage {
	return StateMessage{
		Address:   Address(gateway.KindDevice, d.ID),
		Kind:      gateway.KindDevice.String(),
		ID:        d.ID,
		Name:      d.Name,
		Timestamp: at.UTC(),
		State:     DeviceState(d),
		Protocol:  Protocol,
	}
}

func newGroupStateMessage(g gateway.Group, at time.Time) StateMessage {
	return StateMessage{
		Address:   Address(gateway.KindGroup, g.ID),
		Kind:      gateway.KindGroup.String(),
		ID:        g.ID,
		Name:      g.Name,
		Timestamp: at.UTC(),
		State:     GroupState(g),
		Protocol:  Protocol,
	}
}

// Properties converts a command into gateway properties.
func (c CommandMessage) Properties() (gateway.Properties, error) {
	switch c.Command {
	case CommandOn:
		return gateway.Properties{State: "on"}, nil
	case CommandOff:
		return gateway.Properties{State: "off"}, nil
	case CommandToggle:
		return gateway.Properties{State: "toggle"}, nil
	case CommandSet:
		return setProperties(c.Parameters)
	default:
		return gateway.Properties{}, fmt.Errorf("%w: %q", ErrInvalidCommand, c.Command)
	}
}

func setProperties(params map[string]any) (gateway.Properties, error) {
	var p gateway.Properties
	if len(params) == 0 {
		return p, fmt.Errorf("%w: set needs at least one parameter", ErrInvalidParameters)
	}

	for key, v := range params {
		switch key {
		case "state":
			switch s := v.(type) {
			case bool:
				p.State = s
			case string:
				p.State = s
			case float64:
				p.State = s
			default:
				return p, fmt.Errorf("%w: state must be a string, bool or number", ErrInvalidParameters)
			}
		case "brightness":
			n, err := intParam(key, v, 0, 254)
			if err != nil {
				return p, err
			}
			p.Brightness = &n
		case "transition_time":
			n, err := intParam(key, v, 0, 65535)
			if err != nil {
				return p, err
			}
			p.TransitionTime = &n
		case "color":
			s, ok := v.(string)
			if !ok {
				return p, fmt.Errorf("%w: color must be a string", ErrInvalidParameters)
			}
			p.Color = &s
		default:
			return p, fmt.Errorf("%w: unknown parameter %q", ErrInvalidParameters, key)
		}
	}
	return p, nil
}

func intParam(key string, v any, lo, hi int) (int, error) {
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidParameters, key)
	}
	n := int(f)
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: %s must be %d-%d", ErrInvalidParameters, key, lo, hi)
	}
	return n, nil
}
