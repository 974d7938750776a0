package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is everything tradfri-bridge reads from config.yaml.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GatewayConfig describes how to reach the Trådfri gateway through coap-client.
type GatewayConfig struct {
	// Host is the gateway's IP address or hostname.
	Host string `yaml:"host"`

	// Port is the CoAPS port. The gateway always listens on 5684.
	Port int `yaml:"port"`

	// CoapClient is the path to the libcoap coap-client binary (built with DTLS).
	CoapClient string `yaml:"coap_client"`

	// Identity is the client identity registered with the gateway.
	// If empty, one is generated on first registration.
	Identity string `yaml:"identity"`

	// PresharedKey is the session key issued by the gateway for Identity.
	// WARNING: Never log this value.
	PresharedKey string `yaml:"preshared_key"`

	// SecurityCode is the code printed on the underside of the gateway.
	// Only needed for registration. WARNING: Never log this value.
	SecurityCode string `yaml:"security_code"`

	// TimeoutSeconds is the hard execution budget for one coap-client call.
	// Default: 5
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// Concurrency is how many coap-client calls may run at once.
	// The gateway's DTLS stack cannot multiplex, so the default is 1.
	Concurrency int `yaml:"concurrency"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// ReadTimeout is Read as a Duration. It also bounds request headers.
func (t APITimeoutConfig) ReadTimeout() time.Duration { return time.Duration(t.Read) * time.Second }

// WriteTimeout is Write as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration { return time.Duration(t.Write) * time.Second }

// IdleTimeout is Idle as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration { return time.Duration(t.Idle) * time.Second }

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// BridgeConfig contains MQTT bridge behaviour settings.
type BridgeConfig struct {
	// ID identifies this bridge in health messages.
	ID string `yaml:"id"`

	// PollInterval is how often the gateway is polled for state (seconds).
	PollInterval int `yaml:"poll_interval"`

	// HealthInterval is how often health status is published (seconds).
	HealthInterval int `yaml:"health_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load builds a Config from defaultConfig, then the YAML file at path, then
// any TRADFRI_* variables (see envOverrides), and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig is a working setup for a gateway on the local network;
// only gateway.host has no usable default.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Port:           5684,
			CoapClient:     "/usr/local/bin/coap-client",
			TimeoutSeconds: 5,
			Concurrency:    1,
		},
		Database: DatabaseConfig{
			Path:        "./data/tradfri.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-tradfri",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Bridge: BridgeConfig{
			ID:             "tradfri-bridge-01",
			PollInterval:   30,
			HealthInterval: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// envOverrides maps TRADFRI_* variables onto string settings. Secrets
// (PSK, security code, broker password, InfluxDB token) belong here rather
// than in the YAML file.
func envOverrides(cfg *Config) map[string]*string {
	return map[string]*string{
		"TRADFRI_GATEWAY_HOST":          &cfg.Gateway.Host,
		"TRADFRI_GATEWAY_IDENTITY":      &cfg.Gateway.Identity,
		"TRADFRI_GATEWAY_PSK":           &cfg.Gateway.PresharedKey,
		"TRADFRI_GATEWAY_SECURITY_CODE": &cfg.Gateway.SecurityCode,
		"TRADFRI_DATABASE_PATH":         &cfg.Database.Path,
		"TRADFRI_MQTT_HOST":             &cfg.MQTT.Broker.Host,
		"TRADFRI_MQTT_USERNAME":         &cfg.MQTT.Auth.Username,
		"TRADFRI_MQTT_PASSWORD":         &cfg.MQTT.Auth.Password,
		"TRADFRI_INFLUXDB_TOKEN":        &cfg.InfluxDB.Token,
		"TRADFRI_BRIDGE_ID":             &cfg.Bridge.ID,
	}
}

// applyEnvOverrides replaces settings whose variable is set and non-empty.
func applyEnvOverrides(cfg *Config) {
	for name, field := range envOverrides(cfg) {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.Host == "" {
		errs = append(errs, "gateway.host is required (set TRADFRI_GATEWAY_HOST environment variable)")
	}
	if c.Gateway.CoapClient == "" {
		errs = append(errs, "gateway.coap_client is required")
	}
	if c.Gateway.TimeoutSeconds < 1 {
		errs = append(errs, "gateway.timeout_seconds must be at least 1")
	}
	if c.Gateway.Concurrency < 1 {
		errs = append(errs, "gateway.concurrency must be at least 1")
	}
	// Without a session key the bridge has to register, which needs the security code.
	if c.Gateway.PresharedKey == "" && c.Gateway.SecurityCode == "" {
		errs = append(errs, "gateway.preshared_key or gateway.security_code is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Bridge validation
	if c.Bridge.PollInterval < 1 {
		errs = append(errs, "bridge.poll_interval must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetGatewayTimeout returns the per-request coap-client budget as a Duration.
func (c *Config) GetGatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}

// GetPollInterval returns the bridge poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Bridge.PollInterval) * time.Second
}

// GetHealthInterval returns the bridge health publish interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}
