package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/influxdb"
)

// fakeInflux answers /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	mu    sync.Mutex
	lines []string
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping", "/health":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		for _, l := range strings.Split(strings.TrimSpace(string(body)), "\n") {
			if l != "" {
				f.lines = append(f.lines, l)
			}
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func startFake(t *testing.T) (*fakeInflux, config.InfluxDBConfig) {
	t.Helper()
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, config.InfluxDBConfig{
		Enabled:       true,
		URL:           srv.URL,
		Token:         "test-token",
		Org:           "graylogic",
		Bucket:        "tradfri",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func waitForLines(t *testing.T, fake *fakeInflux, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if lines := fake.Lines(); len(lines) >= n {
			return lines
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server received %d lines, want %d", len(fake.Lines()), n)
	return nil
}

func TestConnect_Disabled(t *testing.T) {
	_, err := influxdb.Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := influxdb.Connect(config.InfluxDBConfig{Enabled: true, URL: url, Token: "t"})
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectAndHealthCheck(t *testing.T) {
	_, cfg := startFake(t)
	cfg.BatchSize = 0
	cfg.FlushInterval = -1

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestWriteLightState(t *testing.T) {
	fake, cfg := startFake(t)
	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // test cleanup

	at := time.Unix(1767225600, 0)
	brightness := 128
	color := "efd275"
	client.WriteLightState(influxdb.LightState{
		Gateway: "10.0.0.5", Kind: "device", ID: 65537, Name: "Hall",
		On: true, Brightness: &brightness, Color: &color,
	}, at)
	client.WriteLightState(influxdb.LightState{Gateway: "10.0.0.5", Kind: "group", ID: 131073, Name: "Kitchen"}, at)
	client.Flush()

	lines := waitForLines(t, fake, 2)
	device := lines[0]
	for _, want := range []string{"light_state,", "gateway=10.0.0.5", "id=65537", "kind=device", "name=Hall", "on=true", "brightness=128i", `color="efd275"`, " 1767225600000000000"} {
		if !strings.Contains(device, want) {
			t.Errorf("device line %q missing %q", device, want)
		}
	}
	group := lines[1]
	if !strings.Contains(group, "on=false") || strings.Contains(group, "brightness") {
		t.Errorf("group line %q, want on=false and no brightness", group)
	}
}

func TestWriteGatewayStats(t *testing.T) {
	fake, cfg := startFake(t)
	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // test cleanup

	client.WriteGatewayStats(influxdb.GatewayStats{
		Gateway: "10.0.0.5", Runs: 10, Failures: 2, Timeouts: 1, LastLatencyMS: 85, QueueDepth: 3,
	}, time.Now())
	client.Flush()

	line := waitForLines(t, fake, 1)[0]
	for _, want := range []string{"gateway_requests,gateway=10.0.0.5", "runs=10i", "failures=2i", "timeouts=1i", "last_latency_ms=85i", "queue_depth=3i"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestWriteAfterCloseIsDropped(t *testing.T) {
	fake, cfg := startFake(t)
	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatal(err)
	}
	client.Close() //nolint:errcheck // closing is the point

	client.WriteLightState(influxdb.LightState{Kind: "device", ID: 1}, time.Now())
	client.Flush()
	time.Sleep(50 * time.Millisecond)
	if n := len(fake.Lines()); n != 0 {
		t.Errorf("server received %d lines after Close, want 0", n)
	}
}
