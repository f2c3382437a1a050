package mqtt

import (
	"log"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const waitTimeout = 10 * time.Second

// Broker is the part of a broker connection the viewer needs.
type Broker interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, handler paho.MessageHandler) error
	IsConnected() bool
}

// Client wraps a Paho client.
type Client struct {
	client paho.Client
	mu     sync.Mutex

	subsMu sync.Mutex
	subs   map[string]paho.MessageHandler
}

// BrokerURL returns MQTT_URL or the local default broker.
func BrokerURL() string {
	if url := os.Getenv("MQTT_URL"); url != "" {
		return url
	}
	return "tcp://localhost:1883"
}

// NewClient creates a client without connecting. Subscriptions are restored
// after every reconnect.
func NewClient(clientID string) *Client {
	c := &Client{subs: make(map[string]paho.MessageHandler)}
	opts := paho.NewClientOptions().
		AddBroker(BrokerURL()).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetOnConnectHandler(c.resubscribe)

	c.client = paho.NewClient(opts)
	return c
}

// Connect connects to the broker, giving up after a bounded wait.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(waitTimeout) {
		return &ConnectTimeoutError{}
	}
	return token.Error()
}

// Subscribe subscribes at QoS 1 and remembers the subscription.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.subsMu.Lock()
	c.subs[topic] = handler
	c.subsMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	token := c.client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(waitTimeout) {
		return &TimeoutError{Op: "subscribe", Topic: topic}
	}
	return token.Error()
}

// Publish sends payload at QoS 1.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(waitTimeout) {
		return &TimeoutError{Op: "publish", Topic: topic}
	}
	return token.Error()
}

func (c *Client) resubscribe(pc paho.Client) {
	c.subsMu.Lock()
	subs := make(map[string]paho.MessageHandler, len(c.subs))
	for t, h := range c.subs {
		subs[t] = h
	}
	c.subsMu.Unlock()

	for topic, handler := range subs {
		token := pc.Subscribe(topic, 1, handler)
		if !token.WaitTimeout(waitTimeout) || token.Error() != nil {
			log.Printf("mqtt: failed to resubscribe to %s: %v", topic, token.Error())
		}
	}
}

// Disconnect waits up to a second for in-flight work, then disconnects.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client.Disconnect(1000)
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// TimeoutError indicates a subscribe or publish timed out.
type TimeoutError struct {
	Op    string
	Topic string
}

func (e *TimeoutError) Error() string {
	return "mqtt " + e.Op + " timeout: " + e.Topic
}
