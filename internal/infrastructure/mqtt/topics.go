package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every Gray Logic topic.
//
// Bridge topics are flat: graylogic/{category}/{protocol}/{address}.
const TopicPrefix = "graylogic"

// Topic categories.
const (
	CategoryState   = "state"
	CategoryCommand = "command"
	CategoryAck     = "ack"
	CategoryHealth  = "health"
)

// Topics builds bridge topics for one protocol.
//
//	t := mqtt.Topics{Protocol: "tradfri"}
//	t.State("device-65537") // graylogic/state/tradfri/device-65537
type Topics struct {
	Protocol string
}

// State is the retained state topic of an address.
func (t Topics) State(address string) string {
	return t.build(CategoryState, address)
}

// Command is the topic commands for an address arrive on.
func (t Topics) Command(address string) string {
	return t.build(CategoryCommand, address)
}

// Ack is the topic command acknowledgements are published to.
func (t Topics) Ack(address string) string {
	return t.build(CategoryAck, address)
}

// Health is the bridge's retained health topic. It is also the LWT topic.
func (t Topics) Health() string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefix, CategoryHealth, t.Protocol)
}

// AllCommands matches every command for the protocol.
func (t Topics) AllCommands() string {
	return t.build(CategoryCommand, "+")
}

// AllStates matches every state topic for the protocol.
func (t Topics) AllStates() string {
	return t.build(CategoryState, "+")
}

// Address extracts the address from a concrete topic of the given category.
// It returns false for topics of another protocol or category.
func (t Topics) Address(category, topic string) (string, bool) {
	prefix := fmt.Sprintf("%s/%s/%s/", TopicPrefix, category, t.Protocol)
	addr, ok := strings.CutPrefix(topic, prefix)
	if !ok || addr == "" || strings.ContainsAny(addr, "/+#") {
		return "", false
	}
	return addr, true
}

func (t Topics) build(category, address string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefix, category, t.Protocol, address)
}
