// Package mqtt adapts an MQTT broker to the transport.Bus contract using the
// Eclipse Paho client.
package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/san-kum/levelctl/internal/telemetry"
	"github.com/san-kum/levelctl/internal/transport"
)

const (
	DefaultKeepAlive     = 30 * time.Second
	DefaultRetryInterval = 5 * time.Second
	disconnectQuiesce    = 250 // ms
)

type Options struct {
	BrokerURL     string
	ClientID      string
	Username      string
	Password      string
	KeepAlive     time.Duration
	RetryInterval time.Duration
	QoS           byte
	Retain        bool
}

type subscription struct {
	topics  []telemetry.Topic
	handler transport.Handler
}

// Client is a transport.Bus over MQTT. It reconnects on its own and
// re-subscribes every registered handler after each connect.
type Client struct {
	client paho.Client
	opts   Options
	logger *zap.Logger

	mu   sync.Mutex
	subs []subscription
}

var _ transport.Bus = (*Client)(nil)

func New(opts Options, logger *zap.Logger) *Client {
	return newClient(opts, logger, paho.NewClient)
}

func newClient(opts Options, logger *zap.Logger, build func(*paho.ClientOptions) paho.Client) *Client {
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	c := &Client{opts: opts, logger: logger.Named("mqtt")}

	po := paho.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetKeepAlive(opts.KeepAlive).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(opts.RetryInterval).
		SetCleanSession(true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
			c.logger.Info("reconnecting to broker", zap.String("broker", opts.BrokerURL))
		})
	if opts.Username != "" {
		po.SetUsername(opts.Username)
		po.SetPassword(opts.Password)
	}
	// The broker announces our loss when the connection drops uncleanly.
	po.SetWill(string(telemetry.TopicBrokerState), telemetry.BrokerDisconnected, opts.QoS, opts.Retain)

	c.client = build(po)
	return c
}

// Connect blocks until the first connection succeeds or ctx is done.
// Retries happen inside the Paho client.
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info("connecting to broker", zap.String("broker", c.opts.BrokerURL), zap.String("client_id", c.opts.ClientID))
	tok := c.client.Connect()
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return fmt.Errorf("mqtt connect %s: %w", c.opts.BrokerURL, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish never waits on the network. Messages published while the
// connection is down are dropped.
func (c *Client) Publish(topic telemetry.Topic, payload string) {
	if !c.client.IsConnectionOpen() {
		c.logger.Debug("dropping message while disconnected", zap.String("topic", string(topic)))
		return
	}
	tok := c.client.Publish(string(topic), c.opts.QoS, c.opts.Retain, payload)
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			c.logger.Warn("publish failed", zap.String("topic", string(topic)), zap.Error(err))
		}
	default:
	}
}

func (c *Client) Subscribe(topics []telemetry.Topic, h transport.Handler) error {
	sub := subscription{topics: append([]telemetry.Topic(nil), topics...), handler: h}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		// onConnect picks it up.
		return nil
	}
	return c.subscribe(c.client, sub)
}

func (c *Client) Close() {
	c.client.Disconnect(disconnectQuiesce)
}

func (c *Client) subscribe(client paho.Client, sub subscription) error {
	filters := make(map[string]byte, len(sub.topics))
	for _, t := range sub.topics {
		filters[string(t)] = c.opts.QoS
	}
	tok := client.SubscribeMultiple(filters, func(_ paho.Client, m paho.Message) {
		sub.handler(telemetry.Topic(m.Topic()), string(m.Payload()))
	})
	if !tok.WaitTimeout(c.opts.KeepAlive) {
		return fmt.Errorf("mqtt subscribe: timed out after %s", c.opts.KeepAlive)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe: %w", err)
	}
	return nil
}

func (c *Client) onConnect(client paho.Client) {
	c.logger.Info("connected to broker", zap.String("broker", c.opts.BrokerURL))
	client.Publish(string(telemetry.TopicBrokerState), c.opts.QoS, c.opts.Retain, telemetry.BrokerConnected)

	c.mu.Lock()
	subs := append([]subscription(nil), c.subs...)
	c.mu.Unlock()

	// Runs on Paho's goroutine; blocking here is allowed.
	for _, sub := range subs {
		if err := c.subscribe(client, sub); err != nil {
			c.logger.Error("resubscribe failed", zap.Error(err))
		}
	}
}

func (c *Client) onConnectionLost(_ paho.Client, err error) {
	c.logger.Warn("broker connection lost", zap.Error(err))
}
