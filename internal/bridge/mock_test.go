package bridge

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
)

// MockBus implements Bus for testing.
type MockBus struct {
	mu            sync.Mutex
	published     []mockPublish
	subscriptions []mockSubscription
	unsubscribed  []string
	handlers      map[string]mqtt.MessageHandler
	connected     bool

	// jsonQoS is the QoS recorded for PublishJSON, standing in for the
	// client's configured default.
	jsonQoS byte

	// publishErr is returned from every Publish when set.
	publishErr error

	// onPublish runs after a publish is recorded, outside the lock.
	onPublish func(topic string, payload []byte)
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type mockSubscription struct {
	Topic string
	QoS   byte
}

func NewMockBus() *MockBus {
	return &MockBus{
		connected: true,
		jsonQoS:   1,
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (m *MockBus) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	if m.publishErr != nil {
		err := m.publishErr
		m.mu.Unlock()
		return err
	}
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	hook := m.onPublish
	m.mu.Unlock()

	if hook != nil {
		hook(topic, payload)
	}
	return nil
}

func (m *MockBus) PublishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	qos := m.jsonQoS
	m.mu.Unlock()
	return m.Publish(topic, payload, qos, false)
}

func (m *MockBus) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, mockSubscription{Topic: topic, QoS: qos})
	m.handlers[topic] = handler
	return nil
}

func (m *MockBus) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed = append(m.unsubscribed, topic)
	delete(m.handlers, topic)
	return nil
}

func (m *MockBus) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockBus) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

func (m *MockBus) GetSubscriptions() []mockSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockSubscription(nil), m.subscriptions...)
}

func (m *MockBus) GetUnsubscribed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.unsubscribed...)
}

// SimulateMessage delivers payload to every handler whose pattern matches
// topic and returns the first handler error.
func (m *MockBus) SimulateMessage(topic string, payload []byte) error {
	m.mu.Lock()
	var matched []mqtt.MessageHandler
	for pattern, h := range m.handlers {
		if topicMatches(pattern, topic) {
			matched = append(matched, h)
		}
	}
	m.mu.Unlock()

	var first error
	for _, h := range matched {
		if err := h(topic, payload); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// topicMatches implements MQTT + and # wildcard matching.
func topicMatches(pattern, topic string) bool {
	p := strings.Split(pattern, "/")
	t := strings.Split(topic, "/")
	for i, seg := range p {
		if seg == "#" {
			return true
		}
		if i >= len(t) {
			return false
		}
		if seg != "+" && seg != t[i] {
			return false
		}
	}
	return len(p) == len(t)
}
