// Package uplink forwards decoded telemetry to an MQTT broker.
package uplink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"powermon-go/host/sample"
)

type Options struct {
	Broker   string
	Port     int
	ClientID string // a random suffix is always appended
	QoS      byte
}

type Client struct {
	client mqtt.Client
	opts   Options
	log    *slog.Logger

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// ClientID makes base unique per process so two terminals never evict each
// other from the broker.
func ClientID(base string) string {
	if base == "" {
		base = "ebike-terminal"
	}
	return base + "-" + uuid.New().String()
}

// Topic is where samples of device are published.
func Topic(device string) string { return "ebike/" + device + "/telemetry" }

// Payload encodes s as published.
func Payload(s sample.Sample) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal sample: %w", err)
	}
	return b, nil
}

func NewClient(opts Options, log *slog.Logger) *Client {
	c := &Client{opts: opts, log: log, stopCh: make(chan struct{})}

	mo := mqtt.NewClientOptions()
	mo.AddBroker(fmt.Sprintf("tcp://%s:%d", opts.Broker, opts.Port))
	mo.SetClientID(ClientID(opts.ClientID))
	mo.SetCleanSession(true)
	mo.SetAutoReconnect(true)
	mo.SetConnectRetry(true)
	mo.SetConnectRetryInterval(5 * time.Second)
	mo.SetMaxReconnectInterval(60 * time.Second)
	mo.SetKeepAlive(30 * time.Second)
	mo.SetPingTimeout(10 * time.Second)

	mo.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		log.Info("mqtt connected", "broker", opts.Broker, "port", opts.Port)
	})
	mo.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		log.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(mo)
	return c
}

// Connect waits for the initial connection, honouring ctx and Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}
	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

// Publish sends one sample on Topic(s.Device).
func (c *Client) Publish(s sample.Sample) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}
	data, err := Payload(s)
	if err != nil {
		return err
	}
	topic := Topic(s.Device)
	token := c.client.Publish(topic, c.opts.QoS, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish telemetry: %w", err)
	}
	c.log.Debug("published telemetry", "topic", topic)
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect is idempotent. Connect fails afterwards.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.client.Disconnect(250)
	c.setConnected(false)
	c.log.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
