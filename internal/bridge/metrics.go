package bridge

import (
	"sort"
	"time"

	"github.com/nerrad567/gray-logic-tradfri/internal/gateway"
)

// Metrics is a point-in-time view of the bridge's counters.
type Metrics struct {
	Polls          uint64
	PollErrors     uint64
	CommandsOK     uint64
	CommandsFailed uint64
	Devices        int
	Groups         int
	LastPoll       time.Time
	LastPollError  error
	Gateway        GatewayStats
}

// Metrics returns the current counters.
func (b *Bridge) Metrics() Metrics {
	m := Metrics{
		Polls:          b.polls.Load(),
		PollErrors:     b.pollErrors.Load(),
		CommandsOK:     b.commandsOK.Load(),
		CommandsFailed: b.commandsFailed.Load(),
		Devices:        b.deviceCount(),
		Groups:         b.groupCount(),
	}
	b.statusMu.RLock()
	m.LastPoll = b.lastPoll
	m.LastPollError = b.lastPollErr
	b.statusMu.RUnlock()
	if b.opts.Stats != nil {
		m.Gateway = b.opts.Stats()
	}
	return m
}

// CachedDevices returns the devices seen by the last poll, sorted by ID.
func (b *Bridge) CachedDevices() []gateway.Device {
	b.cacheMu.RLock()
	out := make([]gateway.Device, 0, len(b.devices))
	for _, d := range b.devices {
		out = append(out, d)
	}
	b.cacheMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CachedGroups returns the groups seen by the last poll, sorted by ID.
func (b *Bridge) CachedGroups() []gateway.Group {
	b.cacheMu.RLock()
	out := make([]gateway.Group, 0, len(b.groups))
	for _, g := range b.groups {
		out = append(out, g)
	}
	b.cacheMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// healthSnapshot reports degraded while the last poll failed.
func (b *Bridge) healthSnapshot() HealthMessage {
	m := b.Metrics()

	gw := &GatewayStatus{Host: b.opts.GatewayHost, Status: "unknown"}
	if !m.LastPoll.IsZero() {
		last := m.LastPoll.UTC()
		gw.LastPoll = &last
		gw.Status = "reachable"
	}

	status := HealthHealthy
	reason := ""
	if m.LastPollError != nil {
		status = HealthDegraded
		reason = "gateway poll failing"
		gw.Status = "unreachable"
		gw.LastError = m.LastPollError.Error()
	}

	return HealthMessage{
		Status:  status,
		Reason:  reason,
		Gateway: gw,
		Statistics: &BridgeStatistics{
			Requests:       m.Gateway.Requests,
			Failures:       m.Gateway.Failures,
			Timeouts:       m.Gateway.Timeouts,
			QueueDepth:     m.Gateway.QueueDepth,
			Polls:          m.Polls,
			PollErrors:     m.PollErrors,
			CommandsOK:     m.CommandsOK,
			CommandsFailed: m.CommandsFailed,
		},
		Devices: m.Devices,
		Groups:  m.Groups,
	}
}
