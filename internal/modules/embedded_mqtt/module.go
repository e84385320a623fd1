package embeddedmqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"go.uber.org/zap"

	"github.com/mikey-austin/signage/pkg/signage"
)

// Config configures the embedded MQTT broker.
type Config struct {
	Listen         string
	AllowAnonymous bool
	Username       string
	Password       string
	TLSCA          string
	TLSCert        string
	TLSKey         string
	TopicBase      string
}

// Module runs the broker that carries invalidation events between clients.
type Module struct {
	log    *zap.Logger
	server *mqtt.Server
	config Config
}

// NewModule creates a new embedded broker module.
func NewModule(log *zap.Logger, cfg Config) (*Module, error) {
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = "127.0.0.1:1883"
	}
	if strings.TrimSpace(cfg.TopicBase) == "" {
		cfg.TopicBase = signage.BaseTopic
	}
	if log == nil {
		log = zap.NewNop()
	}

	server, err := newServer(log, cfg)
	if err != nil {
		return nil, err
	}
	return &Module{log: log, server: server, config: cfg}, nil
}

// Run starts the embedded broker.
func (m *Module) Run(ctx context.Context) error {
	lc := listeners.Config{ID: "signage-bus", Address: m.config.Listen}
	if m.config.tlsEnabled() {
		tlsConfig, err := serverTLS(m.config)
		if err != nil {
			return err
		}
		lc.TLSConfig = tlsConfig
	}
	if err := m.server.AddListener(listeners.NewTCP(lc)); err != nil {
		return fmt.Errorf("listen %s: %w", m.config.Listen, err)
	}

	served := make(chan error, 1)
	go func() { served <- m.server.Serve() }()
	m.log.Info("invalidation bus listening",
		zap.String("addr", m.config.Listen),
		zap.Bool("tls", lc.TLSConfig != nil),
		zap.String("topic_base", m.config.TopicBase))

	select {
	case <-ctx.Done():
		return m.server.Close()
	case err := <-served:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		<-ctx.Done()
		return m.server.Close()
	}
}

func newServer(log *zap.Logger, cfg Config) (*mqtt.Server, error) {
	options := &mqtt.Options{InlineClient: true, Logger: slog.New(&busLogHandler{log: log})}
	server := mqtt.New(options)

	base := cfg.TopicBase
	if base == "" {
		base = signage.BaseTopic
	}
	if err := server.AddHook(&eventHook{log: log, prefix: base + "/invalidate/"}, nil); err != nil {
		return nil, err
	}

	if cfg.AllowAnonymous {
		if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
			return nil, err
		}
	} else if cfg.Username != "" {
		ledger := &auth.Ledger{
			Auth: auth.AuthRules{{Username: auth.RString(cfg.Username), Password: auth.RString(cfg.Password), Allow: true}},
			ACL:  auth.ACLRules{{Username: auth.RString(cfg.Username), Filters: auth.Filters{auth.RString(base + "/#"): auth.ReadWrite}}},
		}
		if err := server.AddHook(new(auth.Hook), &auth.Options{Ledger: ledger}); err != nil {
			return nil, err
		}
	} else {
		return nil, errors.New("embedded mqtt requires allow_anonymous or username")
	}

	return server, nil
}

// eventHook drops malformed payloads published under the invalidation
// prefix so subscribers only ever see decodable events.
type eventHook struct {
	mqtt.HookBase
	log    *zap.Logger
	prefix string
}

func (h *eventHook) ID() string {
	return "signage-events"
}

func (h *eventHook) Provides(b byte) bool {
	return b == mqtt.OnPublish
}

func (h *eventHook) OnPublish(cl *mqtt.Client, pk packets.Packet) (packets.Packet, error) {
	if !strings.HasPrefix(pk.TopicName, h.prefix) {
		return pk, nil
	}
	evt, err := signage.DecodeEvent(pk.Payload)
	if err != nil {
		h.log.Warn("rejecting invalidation event", zap.String("client", cl.ID), zap.String("topic", pk.TopicName), zap.Error(err))
		return pk, packets.ErrRejectPacket
	}
	if strings.TrimPrefix(pk.TopicName, h.prefix) != evt.Entity {
		h.log.Warn("rejecting invalidation event", zap.String("client", cl.ID), zap.String("topic", pk.TopicName), zap.String("entity", evt.Entity))
		return pk, packets.ErrRejectPacket
	}
	h.log.Debug("invalidation event", zap.String("entity", evt.Entity), zap.String("scope", evt.Scope), zap.String("origin", evt.Origin))
	return pk, nil
}

// serverTLS builds the listener TLS config. A CA bundle turns on client
// certificate verification.
func serverTLS(cfg Config) (*tls.Config, error) {
	if cfg.TLSCert == "" || cfg.TLSKey == "" {
		return nil, errors.New("embedded mqtt tls needs both tls_cert and tls_key")
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("load broker key pair: %w", err)
	}
	out := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if cfg.TLSCA == "" {
		return out, nil
	}
	pem, err := os.ReadFile(cfg.TLSCA)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates in %s", cfg.TLSCA)
	}
	out.ClientCAs = pool
	out.ClientAuth = tls.RequireAndVerifyClientCert
	return out, nil
}

func (c Config) tlsEnabled() bool {
	return c.TLSCert != "" || c.TLSKey != "" || c.TLSCA != ""
}

// BrokerURL returns the broker URL for a listen address.
func BrokerURL(listen string, tlsEnabled bool) string {
	scheme := "mqtt"
	if tlsEnabled {
		scheme = "mqtts"
	}
	return fmt.Sprintf("%s://%s", scheme, listen)
}
