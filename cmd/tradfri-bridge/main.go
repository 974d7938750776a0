// Gray Logic Trådfri bridge
//
// Connects an IKEA Trådfri gateway to the Gray Logic MQTT bus. The gateway
// is driven through libcoap's coap-client, one call at a time; light state
// is polled and published, commands are applied and acknowledged, and a
// small REST/WebSocket API exposes the same lights over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-tradfri/internal/api"
	"github.com/nerrad567/gray-logic-tradfri/internal/bridge"
	"github.com/nerrad567/gray-logic-tradfri/internal/gateway"
	"github.com/nerrad567/gray-logic-tradfri/internal/identity"
	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-tradfri/internal/process"
	"github.com/nerrad567/gray-logic-tradfri/internal/throttle"
	"github.com/nerrad567/gray-logic-tradfri/internal/tradfri"
	"github.com/nerrad567/gray-logic-tradfri/migrations"
)

// Set at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component, blocks until ctx is cancelled and then shuts
// down in reverse order.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Trådfri bridge", "version", version, "commit", commit, "build_date", date)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"gateway", cfg.Gateway.Host,
		"psk", logging.Redact(cfg.Gateway.PresharedKey),
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Gateway pipeline.
	queue := throttle.New(throttle.Config{
		LaneLimits: map[string]int{gateway.Lane: cfg.Gateway.Concurrency},
	})
	defer queue.Close()

	runner := process.NewRunner()
	runner.SetLogger(log)

	executor := gateway.NewExecutor(gateway.ExecutorConfig{
		Host:    cfg.Gateway.Host,
		Port:    cfg.Gateway.Port,
		Binary:  cfg.Gateway.CoapClient,
		Timeout: cfg.GetGatewayTimeout(),
	}, queue, runner)

	encoder := gateway.NewEncoder(
		gateway.Credentials{Identity: cfg.Gateway.Identity, Secret: cfg.Gateway.PresharedKey},
		gateway.Credentials{Identity: gateway.BootstrapIdentity, Secret: cfg.Gateway.SecurityCode},
	)
	client := tradfri.New(executor, encoder)

	provisioner := &identity.Provisioner{
		Host:       cfg.Gateway.Host,
		Configured: gateway.Identity{Username: cfg.Gateway.Identity, SecurityID: cfg.Gateway.PresharedKey},
		Repo:       identity.NewSQLiteRepository(db.DB),
		Logger:     log,
	}
	if cfg.Gateway.SecurityCode != "" {
		provisioner.Registrar = client
	}
	id, source, err := provisioner.Resolve(ctx)
	if err != nil && id.Username == "" {
		return fmt.Errorf("resolving gateway identity: %w", err)
	}
	if err != nil {
		log.Warn("identity registered but not stored; it will be re-registered on restart", "error", err)
	}
	client.SetSession(id)
	log.Info("gateway identity ready", "identity", id.Username, "source", source)

	// MQTT, with the bridge's offline status as last will.
	mqttClient, err := mqtt.Connect(cfg.MQTT, &mqtt.Will{
		Topic:   mqtt.Topics{Protocol: bridge.Protocol}.Health(),
		Payload: bridge.LWTPayload(cfg.Bridge.ID),
		QoS:     1,
	})
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() { log.Info("MQTT connected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	var telemetry bridge.Telemetry
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		log.Warn("InfluxDB unavailable, running without telemetry", "url", cfg.InfluxDB.URL, "error", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) { log.Error("InfluxDB write error", "error", err) })
		telemetry = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	br, err := bridge.New(bridge.Options{
		BridgeID:       cfg.Bridge.ID,
		Version:        version,
		GatewayHost:    cfg.Gateway.Host,
		Hub:            client,
		MQTT:           mqttClient,
		Telemetry:      telemetry,
		Stats:          gatewayStats(runner, queue),
		PollInterval:   cfg.GetPollInterval(),
		HealthInterval: cfg.GetHealthInterval(),
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := br.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer br.Stop()

	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log,
			Gateway: client,
			Bridge:  br,
			MQTT:    mqttClient,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("Trådfri bridge running", "bridge_id", cfg.Bridge.ID)
	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// gatewayStats combines coap-client counters with the gateway queue depth.
func gatewayStats(runner *process.Runner, queue *throttle.Queue) func() bridge.GatewayStats {
	return func() bridge.GatewayStats {
		rs := runner.Stats()
		lane := queue.Stats()[gateway.Lane]
		return bridge.GatewayStats{
			Requests:    rs.Runs,
			Failures:    rs.Failures,
			Timeouts:    rs.Timeouts,
			LastLatency: rs.LastDuration,
			QueueDepth:  lane.Active + lane.Pending,
		}
	}
}

// getConfigPath returns TRADFRI_CONFIG or the default path.
func getConfigPath() string {
	if path := os.Getenv("TRADFRI_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
