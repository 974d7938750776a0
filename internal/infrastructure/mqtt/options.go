package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-tradfri/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	// milliseconds
	defaultDisconnectQuiesce = 1000
	defaultKeepAlive         = 60 * time.Second
	maxQoS                   = 2
)

// Will is the Last Will and Testament the broker publishes if the client
// drops without disconnecting.
type Will struct {
	Topic   string
	Payload []byte
	QoS     byte
}

// brokerURL renders tcp://host:port or ssl://host:port.
func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}

// buildClientOptions maps config onto paho options: auth, auto-reconnect
// with backoff between Reconnect.InitialDelay and Reconnect.MaxDelay, and
// TLS 1.2+ when enabled.
func buildClientOptions(cfg config.MQTTConfig, will *Will) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectRetryInterval(seconds(cfg.Reconnect.InitialDelay, time.Second))
	opts.SetMaxReconnectInterval(seconds(cfg.Reconnect.MaxDelay, time.Minute))
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	if will != nil && will.Topic != "" {
		opts.SetBinaryWill(will.Topic, will.Payload, will.QoS, true)
	}
	return opts
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
