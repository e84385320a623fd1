package embeddedmqtt

import (
	"io"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mikey-austin/signage/pkg/signage"
)

func TestNewServerAllowAnonymous(t *testing.T) {
	server, err := newServer(zap.NewNop(), Config{AllowAnonymous: true})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	if server == nil {
		t.Fatalf("expected server")
	}
}

func TestNewServerRequiresAuthConfig(t *testing.T) {
	_, err := newServer(zap.NewNop(), Config{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func subscribeInline(t *testing.T, server *mqtt.Server, filter string) <-chan packets.Packet {
	t.Helper()
	received := make(chan packets.Packet, 4)
	handler := func(_ *mqtt.Client, _ packets.Subscription, pk packets.Packet) {
		received <- pk
	}
	if err := server.Subscribe(filter, 1, handler); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return received
}

func TestInlinePublishSubscribe(t *testing.T) {
	server, err := newServer(zap.NewNop(), Config{AllowAnonymous: true})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	received := subscribeInline(t, server, signage.TopicInvalidateAll(signage.BaseTopic))

	payload := []byte(`{"entity":"players","ts":1700000000,"origin":"sg"}`)
	if err := server.Publish(signage.TopicInvalidate(signage.BaseTopic, signage.EntityPlayers), payload, false, 0); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case pk := <-received:
		if string(pk.Payload) != string(payload) {
			t.Fatalf("unexpected payload %s", pk.Payload)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
}

func TestMalformedEventsAreDropped(t *testing.T) {
	server, err := newServer(zap.NewNop(), Config{AllowAnonymous: true})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	received := subscribeInline(t, server, signage.TopicInvalidateAll(signage.BaseTopic))

	bad := map[string]string{
		"signage/v1/invalidate/files":   `not json`,
		"signage/v1/invalidate/folders": `{"entity":"files","ts":1,"origin":"sg"}`,
		"signage/v1/invalidate/widgets": `{"entity":"widgets","ts":1,"origin":"sg"}`,
	}
	for topic, payload := range bad {
		_ = server.Publish(topic, []byte(payload), false, 0)
	}

	select {
	case pk := <-received:
		t.Fatalf("expected malformed event to be dropped, got %s on %s", pk.Payload, pk.TopicName)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestOtherTopicsPassThrough(t *testing.T) {
	server, err := newServer(zap.NewNop(), Config{AllowAnonymous: true})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	received := subscribeInline(t, server, "signage/v1/status/#")
	if err := server.Publish("signage/v1/status/sgd", []byte("up"), false, 0); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-received:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
}

func TestBrokerURL(t *testing.T) {
	if BrokerURL("127.0.0.1:1883", false) != "mqtt://127.0.0.1:1883" {
		t.Fatalf("expected mqtt scheme")
	}
	if BrokerURL("127.0.0.1:8883", true) != "mqtts://127.0.0.1:8883" {
		t.Fatalf("expected mqtts scheme")
	}
}

func TestServerTLSRequiresKeyPair(t *testing.T) {
	if _, err := serverTLS(Config{TLSCA: "/tmp/ca.pem"}); err == nil {
		t.Fatalf("expected key pair error")
	}
	if _, err := serverTLS(Config{TLSCert: "/missing/cert.pem", TLSKey: "/missing/key.pem"}); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestBusLogHandlerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := slog.New(&busLogHandler{log: zap.New(core)})

	logger.Debug("hidden")
	logger.Warn("client error", "client", "sg-1", "error", io.EOF)
	logger.With("listener", "signage-bus").Info("started")

	entries := logs.All()
	if len(entries) != 1 || entries[0].Message != "started" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].ContextMap()["listener"] != "signage-bus" {
		t.Fatalf("expected listener field, got %v", entries[0].ContextMap())
	}
}
