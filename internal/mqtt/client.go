package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// ConnectHandler runs after every successful connect, including automatic
// reconnects. Paho calls it on its own goroutine, so it may block on tokens.
type ConnectHandler func(client mqtt.Client)

// Client owns the broker connection. Subscriber and Publisher use the
// native client it exposes.
type Client struct {
	client mqtt.Client
	logger *zap.Logger
}

// ClientConfig holds MQTT client configuration
type ClientConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration // zero means 10s

	// OnConnect handlers restore per-session state such as subscriptions.
	// With a clean session the broker forgets subscriptions on disconnect.
	OnConnect []ConnectHandler
}

// NewClient connects to the broker and returns once the first connect succeeded
func NewClient(config ClientConfig, logger *zap.Logger) (*Client, error) {
	client := mqtt.NewClient(newClientOptions(config, logger))

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout(config)) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", config.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	logger.Info("MQTT client connected", zap.String("broker", config.Broker), zap.String("client_id", config.ClientID))

	return &Client{client: client, logger: logger}, nil
}

func newClientOptions(config ClientConfig, logger *zap.Logger) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetConnectTimeout(connectTimeout(config))
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		logger.Debug("MQTT message without handler", zap.String("topic", msg.Topic()))
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		logger.Info("MQTT connection established", zap.Int("handlers", len(config.OnConnect)))
		for _, h := range config.OnConnect {
			h(c)
		}
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		logger.Warn("MQTT reconnecting", zap.String("broker", config.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})
	return opts
}

func connectTimeout(config ClientConfig) time.Duration {
	if config.ConnectTimeout <= 0 {
		return 10 * time.Second
	}
	return config.ConnectTimeout
}

// GetNativeClient returns the underlying paho MQTT client
func (c *Client) GetNativeClient() mqtt.Client {
	return c.client
}

// IsConnected reports whether the broker connection is currently up.
// It is false while paho is reconnecting.
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Close disconnects, allowing 250ms for in-flight work
func (c *Client) Close() {
	c.client.Disconnect(250)
	c.logger.Info("MQTT client disconnected")
}
