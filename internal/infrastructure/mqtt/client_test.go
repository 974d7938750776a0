package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "tradfri-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// offlineClient returns a client that was never connected.
func offlineClient(t *testing.T) *Client {
	t.Helper()
	cfg := testConfig()
	c := newClient(cfg)
	c.client = pahomqtt.NewClient(buildClientOptions(cfg, nil))
	return c
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Auth = config.MQTTAuthConfig{Username: "bridge", Password: "secret"}
	will := &Will{Topic: "graylogic/health/tradfri", Payload: []byte(`{"status":"offline"}`), QoS: 1}

	opts := buildClientOptions(cfg, will)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want ssl://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "tradfri-test" || opts.Username != "bridge" || opts.Password != "secret" {
		t.Errorf("identity = %q/%q/%q", opts.ClientID, opts.Username, opts.Password)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion == 0 {
		t.Error("TLS enabled but no TLS config set")
	}
	if !opts.WillEnabled || opts.WillTopic != will.Topic || !opts.WillRetained || string(opts.WillPayload) != string(will.Payload) {
		t.Errorf("will = enabled %v topic %q retained %v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
	}
}

func TestBuildClientOptionsDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.Reconnect = config.MQTTReconnectConfig{}

	opts := buildClientOptions(cfg, nil)

	if opts.Servers[0].Scheme != "tcp" {
		t.Errorf("scheme = %q, want tcp", opts.Servers[0].Scheme)
	}
	if opts.WillEnabled {
		t.Error("no will configured, but WillEnabled = true")
	}
	if opts.Username != "" {
		t.Errorf("Username = %q, want anonymous", opts.Username)
	}
	if opts.ConnectRetryInterval != time.Second || opts.MaxReconnectInterval != time.Minute {
		t.Errorf("reconnect = %v..%v, want 1s..1m", opts.ConnectRetryInterval, opts.MaxReconnectInterval)
	}
}

func TestPublishValidation(t *testing.T) {
	c := offlineClient(t)
	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"bad qos", "a/b", []byte("x"), 3, ErrInvalidQoS},
		{"too large", "a/b", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "a/b", []byte("x"), 1, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	c := offlineClient(t)
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := c.Subscribe("a/b", 3, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos error = %v", err)
	}
	if err := c.Subscribe("a/b", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}
	if err := c.Subscribe("a/b", 1, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("offline error = %v", err)
	}
	if c.HasSubscription("a/b") {
		t.Error("a rejected subscription must not be tracked")
	}
	if err := c.Unsubscribe("a/b"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() offline error = %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	c := offlineClient(t)
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestCloseNil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestWrapHandler(t *testing.T) {
	c := offlineClient(t)
	log := &recordingLogger{}
	c.SetLogger(log)

	var got string
	ok := c.wrapHandler(func(topic string, payload []byte) error {
		got = topic + "=" + string(payload)
		return nil
	})
	ok(nil, fakeMessage{topic: "a/b", payload: []byte("1")})
	if got != "a/b=1" {
		t.Errorf("handler saw %q", got)
	}

	c.wrapHandler(func(string, []byte) error { return errors.New("bad payload") })(nil, fakeMessage{topic: "a/b"})
	c.wrapHandler(func(string, []byte) error { panic("boom") })(nil, fakeMessage{topic: "a/b"})

	if len(log.warns) != 1 || len(log.errors) != 1 {
		t.Errorf("logged %d warnings and %d errors, want 1 and 1", len(log.warns), len(log.errors))
	}
}

func TestCallbacks(t *testing.T) {
	c := offlineClient(t)
	var connects int
	var lost error
	c.SetOnConnect(func() { connects++ })
	c.SetOnDisconnect(func(err error) { lost = err })

	c.handleConnect()
	c.handleDisconnect(errors.New("eof"))

	if connects != 1 {
		t.Errorf("onConnect called %d times, want 1", connects)
	}
	if lost == nil || lost.Error() != "eof" {
		t.Errorf("onDisconnect error = %v", lost)
	}
	if c.IsConnected() {
		t.Error("IsConnected() after disconnect = true")
	}
}

// TestBrokerRoundtrip needs a broker on 127.0.0.1:1883 and skips otherwise.
func TestBrokerRoundtrip(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "tradfri-test-roundtrip"
	client, err := Connect(cfg, nil)
	if err != nil {
		t.Skipf("no MQTT broker available: %v", err)
	}
	defer client.Close() //nolint:errcheck // test cleanup

	topics := Topics{Protocol: "tradfri-test"}
	received := make(chan string, 1)
	if err := client.Subscribe(topics.AllCommands(), 1, func(topic string, payload []byte) error {
		addr, _ := topics.Address(CategoryCommand, topic)
		received <- addr + ":" + string(payload)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := client.Publish(topics.Command("device-1"), []byte("on"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if !strings.HasPrefix(got, "device-1:on") {
			t.Errorf("received %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("message not received")
	}
}
