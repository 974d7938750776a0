package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/mqtt"
)

const defaultHealthInterval = 30 * time.Second

// HealthReporter publishes the bridge's health on a fixed interval.
type HealthReporter struct {
	bridgeID  string
	version   string
	startTime time.Time
	interval  time.Duration
	topic     string
	publisher Publisher
	snapshot  func() HealthMessage

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// Publisher is the part of the MQTT client the reporter needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// NewHealthReporter creates a reporter. snapshot supplies everything but
// the identity and timing fields, which the reporter fills in.
func NewHealthReporter(bridgeID, version string, interval time.Duration, publisher Publisher, snapshot func() HealthMessage) *HealthReporter {
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthReporter{
		bridgeID:  bridgeID,
		version:   version,
		startTime: time.Now(),
		interval:  interval,
		topic:     mqtt.Topics{Protocol: Protocol}.Health(),
		publisher: publisher,
		snapshot:  snapshot,
		done:      make(chan struct{}),
		logger:    noopLogger{},
	}
}

// Start publishes immediately and then every interval until ctx ends or
// Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final "stopping" status. Safe to
// call more than once.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()
		if err := h.publish(HealthMessage{Status: HealthStopping, Reason: "shutdown"}); err != nil {
			h.logger.Warn("failed to publish stopping status", "error", err)
		}
	})
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publish(HealthMessage{Status: HealthStarting, Reason: "bridge starting"})
}

// PublishNow publishes the current status.
func (h *HealthReporter) PublishNow() error {
	var msg HealthMessage
	if h.snapshot != nil {
		msg = h.snapshot()
	}
	if msg.Status == "" {
		msg.Status = HealthHealthy
	}
	return h.publish(msg)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logger.Error("failed to publish initial health", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logger.Error("failed to publish health", "error", err)
			}
		}
	}
}

func (h *HealthReporter) publish(msg HealthMessage) error {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return nil
	}
	msg.Bridge = h.bridgeID
	msg.Version = h.version
	msg.Timestamp = time.Now().UTC()
	msg.UptimeSeconds = int64(time.Since(h.startTime).Seconds())

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.publisher.Publish(h.topic, payload, 1, true)
}
