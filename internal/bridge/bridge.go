package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-tradfri/internal/gateway"
	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/mqtt"
)

const (
	defaultPollInterval = 30 * time.Second

	// defaultCommandTimeout covers a toggle (read then write) waiting
	// behind a full poll in the gateway queue.
	defaultCommandTimeout = 30 * time.Second
)

// Hub is the gateway API the bridge drives. *tradfri.Client satisfies it.
type Hub interface {
	Devices(ctx context.Context, ids []int) ([]gateway.Device, error)
	Groups(ctx context.Context) ([]gateway.Group, error)
	Device(ctx context.Context, id int) (gateway.Device, error)
	Group(ctx context.Context, id int) (gateway.Group, error)
	SetState(ctx context.Context, kind gateway.Kind, id int, props gateway.Properties) error
}

// MQTTClient is the part of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Telemetry records observations. *influxdb.Client satisfies it.
type Telemetry interface {
	WriteLightState(s influxdb.LightState, at time.Time)
	WriteGatewayStats(s influxdb.GatewayStats, at time.Time)
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// GatewayStats are request counters supplied by the process runner and
// the request queue.
type GatewayStats struct {
	Requests    uint64
	Failures    uint64
	Timeouts    uint64
	LastLatency time.Duration
	QueueDepth  int
}

// Options configures a Bridge.
type Options struct {
	BridgeID    string
	Version     string
	GatewayHost string

	Hub  Hub
	MQTT MQTTClient

	// Telemetry is optional.
	Telemetry Telemetry

	// Stats is optional.
	Stats func() GatewayStats

	PollInterval   time.Duration
	HealthInterval time.Duration
	CommandTimeout time.Duration

	Logger Logger
}

// Bridge mirrors gateway state onto MQTT and applies MQTT commands to the
// gateway.
//
// State is polled: the gateway is asked for every device and group each
// PollInterval, and a retained state message is published for each one
// that changed since the last poll. Successful writes re-fetch the target
// so its new state is published without waiting for the next poll.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	opts   Options
	topics mqtt.Topics
	health *HealthReporter
	log    Logger

	cacheMu sync.RWMutex
	devices map[int]gateway.Device
	groups  map[int]gateway.Group

	// observed is when the cached value of each address was read from the
	// gateway. Older reads are discarded.
	observed map[string]time.Time

	listenersMu sync.RWMutex
	listeners   []func(StateMessage)

	pollMu      sync.Mutex // one poll at a time
	statusMu    sync.RWMutex
	lastPoll    time.Time
	lastPollErr error

	polls          atomic.Uint64
	pollErrors     atomic.Uint64
	commandsOK     atomic.Uint64
	commandsFailed atomic.Uint64

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a bridge. Call Start to begin polling and accepting commands.
func New(opts Options) (*Bridge, error) {
	if opts.Hub == nil {
		return nil, fmt.Errorf("hub is required")
	}
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaultCommandTimeout
	}
	log := opts.Logger
	if log == nil {
		log = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		opts:    opts,
		topics:  mqtt.Topics{Protocol: Protocol},
		log:     log,
		devices:  make(map[int]gateway.Device),
		groups:   make(map[int]gateway.Group),
		observed: make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}
	b.health = NewHealthReporter(opts.BridgeID, opts.Version, opts.HealthInterval, opts.MQTT, b.healthSnapshot)
	b.health.logger = log
	return b, nil
}

// Start subscribes to commands, runs a first poll and starts the poll and
// health loops. A failed first poll is logged, not returned: the gateway
// may come up after the bridge.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.log.Warn("failed to publish starting status", "error", err)
	}

	topic := b.topics.AllCommands()
	if err := b.opts.MQTT.Subscribe(topic, 1, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.log.Info("subscribed to commands", "topic", topic)

	if err := b.Poll(ctx); err != nil {
		b.log.Warn("initial poll failed", "error", err)
	}

	b.wg.Add(1)
	go b.pollLoop()
	b.health.Start(b.ctx)

	b.log.Info("bridge started",
		"bridge_id", b.opts.BridgeID,
		"poll_interval", b.opts.PollInterval,
		"devices", b.deviceCount(),
		"groups", b.groupCount())
	return nil
}

// Stop cancels in-flight commands, stops the loops and publishes a final
// "stopping" health message. Safe to call more than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.cancel()
		b.wg.Wait()
		b.health.Stop()
		b.log.Info("bridge stopped")
	})
}

// OnStateChange registers fn to be called with every state message the
// bridge publishes. fn runs on the publishing goroutine and must not block.
func (b *Bridge) OnStateChange(fn func(StateMessage)) {
	b.listenersMu.Lock()
	b.listeners = append(b.listeners, fn)
	b.listenersMu.Unlock()
}

func (b *Bridge) pollLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			if err := b.Poll(b.ctx); err != nil && b.ctx.Err() == nil {
				b.log.Warn("poll failed", "error", err)
			}
		}
	}
}

// Poll fetches every device and group, publishes those that changed and
// clears the retained state of those that disappeared.
func (b *Bridge) Poll(ctx context.Context) error {
	b.pollMu.Lock()
	defer b.pollMu.Unlock()

	b.polls.Add(1)
	err := b.poll(ctx)

	b.statusMu.Lock()
	b.lastPoll = time.Now()
	b.lastPollErr = err
	b.statusMu.Unlock()

	if err != nil {
		b.pollErrors.Add(1)
	}
	b.writeGatewayStats()
	return err
}

func (b *Bridge) poll(ctx context.Context) error {
	started := time.Now()
	devices, err := b.opts.Hub.Devices(ctx, nil)
	if err != nil {
		return fmt.Errorf("polling devices: %w", err)
	}
	groups, err := b.opts.Hub.Groups(ctx)
	if err != nil {
		return fmt.Errorf("polling groups: %w", err)
	}

	now := time.Now()
	seenDevices := make(map[int]bool, len(devices))
	for _, d := range devices {
		seenDevices[d.ID] = true
		b.updateDevice(d, started, now)
	}
	seenGroups := make(map[int]bool, len(groups))
	for _, g := range groups {
		seenGroups[g.ID] = true
		b.updateGroup(g, started, now)
	}
	b.forgetMissing(seenDevices, seenGroups, started)
	return nil
}

// observeLocked records that addr was read from the gateway at readAt. It
// reports false when the cache already holds a later read, as happens when
// a write refreshes a device while a poll is still running.
func (b *Bridge) observeLocked(addr string, readAt time.Time) bool {
	if last, ok := b.observed[addr]; ok && last.After(readAt) {
		return false
	}
	b.observed[addr] = readAt
	return true
}

// updateDevice caches d, publishing it if it changed, and records telemetry.
// readAt is when the gateway request that returned d was started.
func (b *Bridge) updateDevice(d gateway.Device, readAt, at time.Time) {
	b.cacheMu.Lock()
	if !b.observeLocked(Address(gateway.KindDevice, d.ID), readAt) {
		b.cacheMu.Unlock()
		return
	}
	prev, known := b.devices[d.ID]
	b.devices[d.ID] = d
	b.cacheMu.Unlock()

	b.writeLightState(influxdb.LightState{
		Gateway: b.opts.GatewayHost, Kind: gateway.KindDevice.String(), ID: d.ID, Name: d.Name,
		On: d.On, Brightness: d.Brightness, Color: d.Color,
	}, at)

	if known && reflect.DeepEqual(prev, d) {
		return
	}
	b.publishState(newDeviceStateMessage(d, at))
}

func (b *Bridge) updateGroup(g gateway.Group, readAt, at time.Time) {
	b.cacheMu.Lock()
	if !b.observeLocked(Address(gateway.KindGroup, g.ID), readAt) {
		b.cacheMu.Unlock()
		return
	}
	prev, known := b.groups[g.ID]
	b.groups[g.ID] = g
	b.cacheMu.Unlock()

	b.writeLightState(influxdb.LightState{
		Gateway: b.opts.GatewayHost, Kind: gateway.KindGroup.String(), ID: g.ID, Name: g.Name,
		On: g.On, Brightness: g.Brightness,
	}, at)

	if known && reflect.DeepEqual(prev, g) {
		return
	}
	b.publishState(newGroupStateMessage(g, at))
}

// forgetMissing drops cached entities the poll started at readAt did not
// return, unless they were read again after it started.
func (b *Bridge) forgetMissing(devices, groups map[int]bool, readAt time.Time) {
	var gone []string

	b.cacheMu.Lock()
	for id := range b.devices {
		addr := Address(gateway.KindDevice, id)
		if !devices[id] && !b.observed[addr].After(readAt) {
			delete(b.devices, id)
			delete(b.observed, addr)
			gone = append(gone, addr)
		}
	}
	for id := range b.groups {
		addr := Address(gateway.KindGroup, id)
		if !groups[id] && !b.observed[addr].After(readAt) {
			delete(b.groups, id)
			delete(b.observed, addr)
			gone = append(gone, addr)
		}
	}
	b.cacheMu.Unlock()

	// An empty retained message deletes the retained state on the broker.
	for _, addr := range gone {
		b.log.Info("removed from gateway", "address", addr)
		if err := b.opts.MQTT.Publish(b.topics.State(addr), nil, 1, true); err != nil {
			b.log.Warn("failed to clear retained state", "address", addr, "error", err)
		}
	}
}

func (b *Bridge) publishState(msg StateMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		b.log.Error("failed to marshal state", "address", msg.Address, "error", err)
		return
	}
	if err := b.opts.MQTT.Publish(b.topics.State(msg.Address), payload, 1, true); err != nil {
		b.log.Warn("failed to publish state", "address", msg.Address, "error", err)
	}

	b.listenersMu.RLock()
	listeners := b.listeners
	b.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(msg)
	}
}

// Apply writes props to a device or group and publishes the resulting
// state. It is the single write path for MQTT commands and the HTTP API.
func (b *Bridge) Apply(ctx context.Context, kind gateway.Kind, id int, props gateway.Properties) error {
	if err := b.opts.Hub.SetState(ctx, kind, id, props); err != nil {
		b.commandsFailed.Add(1)
		return err
	}
	b.commandsOK.Add(1)

	if err := b.refresh(ctx, kind, id); err != nil {
		b.log.Warn("failed to refresh after write", "address", Address(kind, id), "error", err)
	}
	return nil
}

// refresh fetches one device or group and publishes it if it changed.
func (b *Bridge) refresh(ctx context.Context, kind gateway.Kind, id int) error {
	started := time.Now()
	if kind == gateway.KindGroup {
		g, err := b.opts.Hub.Group(ctx, id)
		if err != nil {
			return err
		}
		b.updateGroup(g, started, time.Now())
		return nil
	}
	d, err := b.opts.Hub.Device(ctx, id)
	if err != nil {
		return err
	}
	b.updateDevice(d, started, time.Now())
	return nil
}

// handleCommand processes graylogic/command/tradfri/{address}. Every
// outcome is acknowledged on the matching ack topic.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	addr, ok := b.topics.Address(mqtt.CategoryCommand, topic)
	if !ok {
		return fmt.Errorf("%w: topic %s", ErrInvalidAddress, topic)
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		cmd.ID = uuid.NewString()
		b.publishAckError(cmd, addr, ErrCodeInvalidCommand, fmt.Sprintf("malformed command: %v", err))
		return fmt.Errorf("parsing command: %w", err)
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	kind, id, err := ParseAddress(addr)
	if err != nil {
		b.publishAckError(cmd, addr, ErrCodeInvalidAddress, err.Error())
		return err
	}
	props, err := cmd.Properties()
	if err != nil {
		code := ErrCodeInvalidCommand
		if errors.Is(err, ErrInvalidParameters) {
			code = ErrCodeInvalidParameters
		}
		b.publishAckError(cmd, addr, code, err.Error())
		return err
	}

	b.log.Info("received command", "command_id", cmd.ID, "address", addr, "command", cmd.Command, "source", cmd.Source)
	b.publishAck(cmd, addr, AckAccepted)

	ctx, cancel := context.WithTimeout(b.ctx, b.opts.CommandTimeout)
	defer cancel()

	if err := b.Apply(ctx, kind, id, props); err != nil {
		b.publishAckError(cmd, addr, errorCode(err), err.Error())
		return fmt.Errorf("command %s on %s: %w", cmd.ID, addr, err)
	}
	b.publishAck(cmd, addr, AckCompleted)
	return nil
}

// errorCode maps a gateway failure onto an ack error code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, gateway.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, gateway.ErrConnectivity):
		return ErrCodeGatewayUnreachable
	default:
		return ErrCodeProtocolError
	}
}

func (b *Bridge) publishAck(cmd CommandMessage, address string, status AckStatus) {
	b.sendAck(address, AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Status:    status,
		Protocol:  Protocol,
		Address:   address,
	})
}

func (b *Bridge) publishAckError(cmd CommandMessage, address, code, message string) {
	status := AckFailed
	if code == ErrCodeTimeout {
		status = AckTimeout
	}
	b.log.Warn("command failed", "command_id", cmd.ID, "address", address, "code", code, "message", message)
	b.sendAck(address, AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Status:    status,
		Protocol:  Protocol,
		Address:   address,
		Error:     &AckError{Code: code, Message: message},
	})
}

func (b *Bridge) sendAck(address string, ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.log.Error("failed to marshal ack", "error", err)
		return
	}
	if err := b.opts.MQTT.Publish(b.topics.Ack(address), payload, 1, false); err != nil {
		b.log.Warn("failed to publish ack", "address", address, "error", err)
	}
}

func (b *Bridge) writeLightState(s influxdb.LightState, at time.Time) {
	if b.opts.Telemetry != nil {
		b.opts.Telemetry.WriteLightState(s, at)
	}
}

func (b *Bridge) writeGatewayStats() {
	if b.opts.Telemetry == nil || b.opts.Stats == nil {
		return
	}
	s := b.opts.Stats()
	b.opts.Telemetry.WriteGatewayStats(influxdb.GatewayStats{
		Gateway:       b.opts.GatewayHost,
		Runs:          s.Requests,
		Failures:      s.Failures,
		Timeouts:      s.Timeouts,
		LastLatencyMS: s.LastLatency.Milliseconds(),
		QueueDepth:    s.QueueDepth,
	}, time.Now())
}

func (b *Bridge) deviceCount() int {
	b.cacheMu.RLock()
	defer b.cacheMu.RUnlock()
	return len(b.devices)
}

func (b *Bridge) groupCount() int {
	b.cacheMu.RLock()
	defer b.cacheMu.RUnlock()
	return len(b.groups)
}
