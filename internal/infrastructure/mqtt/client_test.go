package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "graylogic-climate-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// mockLogger implements Logger for testing.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"Intents", Topics{}.Intents(), "graylogic/voice/intent/climate"},
		{"Response", Topics{}.Response("req-123"), "graylogic/voice/response/req-123"},
		{"Command", Topics{}.Command("thermostat-living"), "graylogic/command/climate/thermostat-living"},
		{"Ack", Topics{}.Ack("thermostat-living"), "graylogic/ack/climate/thermostat-living"},
		{"AllAcks", Topics{}.AllAcks(), "graylogic/ack/climate/+"},
		{"CoreEvent", Topics{}.CoreEvent("device_state_changed"), "graylogic/core/event/device_state_changed"},
		{"RegistryChanged", Topics{}.RegistryChanged(), "graylogic/core/event/registry_changed"},
		{"SkillStatus default", Topics{}.SkillStatus(), "graylogic/skill/climate/status"},
		{"SkillStatus named", Topics{SkillID: "climate-upstairs"}.SkillStatus(), "graylogic/skill/climate-upstairs/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestLastSegment(t *testing.T) {
	tests := map[string]string{
		"graylogic/ack/climate/thermostat-living": "thermostat-living",
		"graylogic/voice/response/req-1":          "req-1",
		"plain":                                   "plain",
		"trailing/":                               "",
	}
	for topic, want := range tests {
		if got := LastSegment(topic); got != want {
			t.Errorf("LastSegment(%q) = %q, want %q", topic, got, want)
		}
	}
}

// =============================================================================
// Option Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "skill", Password: "secret"}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "graylogic-climate-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "skill" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if !opts.CleanSession || !opts.AutoReconnect {
		t.Errorf("CleanSession=%v AutoReconnect=%v, want both true", opts.CleanSession, opts.AutoReconnect)
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
	}
	if opts.Order {
		t.Error("Order = true, want unordered delivery")
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
		t.Error("TLS configured for a plain connection")
	}
}

func TestBuildClientOptionsTLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].String(); got != "ssl://127.0.0.1:8883" {
		t.Errorf("broker = %q, want ssl://127.0.0.1:8883", got)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS minimum version not applied")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, Topics{SkillID: "climate"}, "graylogic-climate-test")

	if !opts.WillEnabled || !opts.WillRetained || opts.WillQos != 1 {
		t.Errorf("will enabled=%v retained=%v qos=%d", opts.WillEnabled, opts.WillRetained, opts.WillQos)
	}
	if opts.WillTopic != "graylogic/skill/climate/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}

	var p presence
	if err := json.Unmarshal(opts.WillPayload, &p); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if p.Status != statusOffline || p.Reason != reasonUnexpected || p.ClientID != "graylogic-climate-test" {
		t.Errorf("will payload = %+v", p)
	}
}

func TestBuildPresencePayload(t *testing.T) {
	raw := buildPresencePayload("skill-1", statusOnline, "")

	if strings.Contains(raw, "reason") {
		t.Errorf("online payload carries a reason: %s", raw)
	}

	var p presence
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, p.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339", p.Timestamp)
	}
}

// =============================================================================
// Validation Tests (no broker)
// =============================================================================

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "graylogic/x", []byte("x"), 3, ErrInvalidQoS},
		{"oversized", "graylogic/x", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "graylogic/x", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPublishJSONEncodeError(t *testing.T) {
	client := &Client{}

	err := client.PublishJSON("graylogic/x", map[string]any{"bad": make(chan int)})
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("PublishJSON() error = %v, want ErrPublishFailed", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		want    error
	}{
		{"empty topic", "", 1, noop, ErrInvalidTopic},
		{"invalid qos", "graylogic/x", 3, noop, ErrInvalidQoS},
		{"nil handler", "graylogic/x", 1, nil, ErrSubscribeFailed},
		{"not connected", "graylogic/x", 1, noop, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Subscribe(tt.topic, tt.qos, tt.handler)
			if !errors.Is(err, tt.want) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.want)
			}
		})
	}

	if client.HasSubscription("graylogic/x") {
		t.Error("HasSubscription() = true after failed subscribes")
	}
	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v", err)
	}
}

func TestHasSubscription(t *testing.T) {
	client := &Client{subscriptions: map[string]subscription{
		"graylogic/voice/intent/climate": {topic: "graylogic/voice/intent/climate", qos: 1},
	}}

	tests := []struct {
		topic string
		want  bool
	}{
		{"graylogic/voice/intent/climate", true},
		{"graylogic/voice/intent/+", false},
		{"graylogic/core/event/registry_changed", false},
	}
	for _, tt := range tests {
		if got := client.HasSubscription(tt.topic); got != tt.want {
			t.Errorf("HasSubscription(%q) = %v, want %v", tt.topic, got, tt.want)
		}
	}

	client.forget("graylogic/voice/intent/climate")
	if client.HasSubscription("graylogic/voice/intent/climate") {
		t.Error("HasSubscription() = true after forget")
	}
}

func TestDeliverRecoversPanics(t *testing.T) {
	logger := &mockLogger{}
	client := &Client{}
	client.SetLogger(logger)

	client.deliver(func(string, []byte) error { panic("boom") }, "graylogic/x", nil)
	client.deliver(func(string, []byte) error { return errors.New("bad payload") }, "graylogic/x", nil)

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.errors) != 1 {
		t.Errorf("errors logged = %d, want 1 (panic)", len(logger.errors))
	}
	if len(logger.warns) != 1 {
		t.Errorf("warnings logged = %d, want 1 (handler error)", len(logger.warns))
	}
}
