package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/mikey-austin/signage/pkg/signage"
)

// Options configures the MQTT client.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	TLSCA     string
	TLSCert   string
	TLSKey    string
	TopicBase string
	Timeout   time.Duration
	Logger    *zap.Logger
	Debug     bool
}

// Client is an MQTT adapter implementing the EventBus port.
type Client struct {
	client    paho.Client
	topicBase string
	timeout   time.Duration
	log       *zap.Logger
	debug     bool
}

// NewClient creates and connects an MQTT client.
func NewClient(opts Options) (*Client, error) {
	opts = withDefaults(opts)

	clientOpts := paho.NewClientOptions().AddBroker(opts.BrokerURL)
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetConnectTimeout(opts.Timeout)
	clientOpts.SetAutoReconnect(true)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}

	tlsConfig, err := buildTLSConfig(opts.TLSCA, opts.TLSCert, opts.TLSKey)
	if err != nil {
		return nil, err
	}
	if tlsConfig != nil {
		clientOpts.SetTLSConfig(tlsConfig)
	}

	client := paho.NewClient(clientOpts)
	if token := client.Connect(); !token.WaitTimeout(opts.Timeout) {
		return nil, fmt.Errorf("connect %s: timeout", opts.BrokerURL)
	} else if token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.BrokerURL, token.Error())
	}
	return newWithClient(client, opts), nil
}

func withDefaults(opts Options) Options {
	if opts.TopicBase == "" {
		opts.TopicBase = signage.BaseTopic
	}
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return opts
}

func newWithClient(client paho.Client, opts Options) *Client {
	opts = withDefaults(opts)
	return &Client{
		client:    client,
		topicBase: opts.TopicBase,
		timeout:   opts.Timeout,
		log:       opts.Logger,
		debug:     opts.Debug,
	}
}

// Publish sends an invalidation event for its entity.
func (c *Client) Publish(ctx context.Context, evt signage.InvalidateEvent) error {
	if err := signage.ValidateEvent(evt); err != nil {
		return err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	topic := signage.TopicInvalidate(c.topicBase, evt.Entity)
	if c.debug {
		c.log.Debug("mqtt publish", zap.String("topic", topic), zap.Int("bytes", len(payload)), zap.String("payload", truncatePayload(payload)))
	}
	return c.wait(ctx, c.client.Publish(topic, 1, false, payload))
}

// Subscribe streams events for entity, or for every entity when entity is
// empty. Channels close when ctx ends.
func (c *Client) Subscribe(ctx context.Context, entity string) (<-chan signage.InvalidateEvent, <-chan error) {
	events := make(chan signage.InvalidateEvent, 16)
	errCh := make(chan error, 1)

	topic := signage.TopicInvalidateAll(c.topicBase)
	if entity != "" {
		topic = signage.TopicInvalidate(c.topicBase, entity)
	}

	handler := func(_ paho.Client, msg paho.Message) {
		if c.debug {
			c.log.Debug("mqtt message", zap.String("topic", msg.Topic()), zap.Int("bytes", len(msg.Payload())), zap.String("payload", truncatePayload(msg.Payload())))
		}
		evt, err := signage.DecodeEvent(msg.Payload())
		if err != nil {
			c.log.Debug("drop invalid event", zap.String("topic", msg.Topic()), zap.Error(err))
			return
		}
		select {
		case events <- evt:
		default:
			c.log.Warn("event buffer full", zap.String("entity", evt.Entity))
		}
	}

	if err := c.wait(ctx, c.client.Subscribe(topic, 1, handler)); err != nil {
		errCh <- err
		close(events)
		close(errCh)
		return events, errCh
	}

	go func() {
		<-ctx.Done()
		token := c.client.Unsubscribe(topic)
		token.WaitTimeout(c.timeout)
		close(events)
		close(errCh)
	}()
	return events, errCh
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(250)
}

func (c *Client) wait(ctx context.Context, token paho.Token) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	case <-time.After(c.timeout):
		return errors.New("timeout waiting for broker")
	}
}

func truncatePayload(payload []byte) string {
	const max = 2048
	if len(payload) <= max {
		return string(payload)
	}
	return string(payload[:max]) + "..."
}

func buildTLSConfig(caPath, certPath, keyPath string) (*tls.Config, error) {
	if caPath == "" && certPath == "" && keyPath == "" {
		return nil, nil
	}

	config := &tls.Config{}
	if caPath != "" {
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("failed to parse CA bundle")
		}
		config.RootCAs = pool
	}

	if certPath != "" || keyPath != "" {
		if certPath == "" || keyPath == "" {
			return nil, errors.New("both tls cert and key are required")
		}
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, err
		}
		config.Certificates = []tls.Certificate{cert}
	}

	return config, nil
}
