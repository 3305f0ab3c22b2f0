package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"doorsync/logger"
)

// Client wraps the MQTT client with the node's status and control topics.
type Client struct {
	client       paho.Client
	clientID     string
	enabled      bool
	log          *logger.Logger
	onConnect    func()
	onDisconnect func(err error)
	onMessage    func(topic string, payload []byte)
}

// Config holds MQTT broker connection settings.
type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

// Handlers holds callback functions for MQTT events.
type Handlers struct {
	OnConnect    func()
	OnDisconnect func(err error)
	OnMessage    func(topic string, payload []byte)
}

// StatusTopic is where the node publishes kind ("event", "ping").
func StatusTopic(clientID, kind string) string {
	return fmt.Sprintf("doorsync/status/node/%s/%s", clientID, kind)
}

// ControlTopic is where the node listens for action ("poll").
func ControlTopic(clientID, action string) string {
	return fmt.Sprintf("doorsync/control/node/%s/%s", clientID, action)
}

// New creates a new MQTT client. Returns a disabled no-op client if host is empty.
func New(cfg Config, clientID string, handlers Handlers, log *logger.Logger) (*Client, error) {
	c := &Client{
		clientID:     clientID,
		log:          log,
		onConnect:    handlers.OnConnect,
		onDisconnect: handlers.OnDisconnect,
		onMessage:    handlers.OnMessage,
	}

	if cfg.Host == "" {
		log.Infow("MQTT disabled (no host configured)")
		return c, nil
	}
	c.enabled = true

	var broker string
	var tlsConfig *tls.Config

	if cfg.CACert != "" || cfg.ClientCert != "" {
		if cfg.Port == 0 {
			cfg.Port = 8883
		}
		broker = fmt.Sprintf("ssl://%s:%d", cfg.Host, cfg.Port)

		var err error
		tlsConfig, err = buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
	} else {
		if cfg.Port == 0 {
			cfg.Port = 1883
		}
		broker = fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)
		log.Warnw("MQTT using non-TLS connection", "broker", broker)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(60 * time.Second).
		SetConnectionLostHandler(c.handleConnectionLost).
		SetOnConnectHandler(c.handleConnect).
		SetDefaultPublishHandler(c.handleMessage)

	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}

	c.client = paho.NewClient(opts)

	paho.ERROR = log.Std(logger.ErrorLevel, "paho")
	paho.CRITICAL = log.Std(logger.ErrorLevel, "paho")
	paho.WARN = log.Std(logger.WarnLevel, "paho")

	return c, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		caPool.AppendCertsFromPEM(caCert)
		tlsConfig.RootCAs = caPool
	}

	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Connect connects to the broker. paho keeps retrying in the background,
// so this returns once the first attempt is queued or fails outright.
func (c *Client) Connect() error {
	if !c.enabled {
		return nil
	}
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect: %w", token.Error())
	}
	return nil
}

// Disconnect disconnects from the broker. No-op if disabled.
func (c *Client) Disconnect() {
	if !c.enabled || c.client == nil {
		return
	}
	c.client.Disconnect(250)
}

// Subscribe subscribes to a topic. No-op if disabled.
func (c *Client) Subscribe(topic string) error {
	if !c.enabled {
		return nil
	}
	if token := c.client.Subscribe(topic, 0, nil); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}

// Publish publishes a message without waiting for delivery. No-op if
// disabled or not currently connected.
func (c *Client) Publish(topic string, payload string) {
	if !c.enabled || !c.client.IsConnectionOpen() {
		return
	}
	c.client.Publish(topic, 0, false, payload)
}

// IsEnabled returns whether MQTT is enabled.
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// ClientID returns the node id used in topics.
func (c *Client) ClientID() string {
	return c.clientID
}

func (c *Client) handleConnect(paho.Client) {
	c.log.Infow("MQTT connection established")
	if c.onConnect != nil {
		c.onConnect()
	}
}

func (c *Client) handleConnectionLost(_ paho.Client, err error) {
	c.log.Warnw("MQTT connection lost", "err", err)
	if c.onDisconnect != nil {
		c.onDisconnect(err)
	}
}

func (c *Client) handleMessage(_ paho.Client, msg paho.Message) {
	if c.onMessage != nil {
		c.onMessage(msg.Topic(), msg.Payload())
	}
}
