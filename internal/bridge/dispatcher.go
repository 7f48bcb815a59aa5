package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/device"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
)

// Bus is the subset of the MQTT client the bridge needs.
// *mqtt.Client satisfies it.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishJSON(topic string, v any) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// DispatcherOptions configures an MQTTDispatcher.
type DispatcherOptions struct {
	// Source is written into every command envelope. Usually the skill ID.
	Source string

	// QoS for command publishes.
	QoS byte

	// AwaitAck makes standard-envelope dispatches wait for the device
	// acknowledgement instead of returning once published.
	AwaitAck bool

	// Topics builds default command and ack topics.
	Topics mqtt.Topics

	// NewID generates command IDs. Defaults to uuid.NewString.
	NewID func() string
}

// MQTTDispatcher publishes climate commands on the bus and correlates
// acknowledgements by command ID. It implements climate.Dispatcher.
type MQTTDispatcher struct {
	bus  Bus
	opts DispatcherOptions

	pending   map[string]chan AckMessage
	pendingMu sync.Mutex

	logger Logger
}

// NewMQTTDispatcher creates a dispatcher. Call Start before the first
// Dispatch when AwaitAck is set.
func NewMQTTDispatcher(bus Bus, opts DispatcherOptions) *MQTTDispatcher {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &MQTTDispatcher{
		bus:     bus,
		opts:    opts,
		pending: make(map[string]chan AckMessage),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *MQTTDispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Start subscribes to device acknowledgements. It is a no-op when acks
// are not awaited.
func (d *MQTTDispatcher) Start() error {
	if !d.opts.AwaitAck {
		return nil
	}
	topic := d.opts.Topics.AllAcks()
	if err := d.bus.Subscribe(topic, 1, d.handleAck); err != nil {
		return fmt.Errorf("subscribe to acks: %w", err)
	}
	d.logger.Info("subscribed to acks", "topic", topic)
	return nil
}

// Stop drops the ack subscription. Commands still awaiting an ack run
// until their own context is done.
func (d *MQTTDispatcher) Stop() error {
	if !d.opts.AwaitAck {
		return nil
	}
	if err := d.bus.Unsubscribe(d.opts.Topics.AllAcks()); err != nil {
		return fmt.Errorf("unsubscribe from acks: %w", err)
	}
	return nil
}

// Dispatch publishes cmd to target's command topic.
//
// A device payload template for the action replaces the standard envelope
// and completes on publish. Otherwise, with AwaitAck set, Dispatch blocks
// until the matching ack arrives or ctx is done.
func (d *MQTTDispatcher) Dispatch(ctx context.Context, cmd climate.Command, target device.Device) error {
	msg := CommandMessage{
		ID:       d.opts.NewID(),
		DeviceID: target.ID,
		Action:   string(cmd.Action),
		Value:    cmd.Value,
		IssuedAt: cmd.IssuedAt,
		Source:   d.opts.Source,
	}

	topic := target.Topic
	if topic == "" {
		topic = d.opts.Topics.Command(target.ID)
	}

	if body, ok := target.PayloadTemplates[msg.Action]; ok {
		payload, err := renderPayload(msg, body)
		if err != nil {
			return err
		}
		return d.publish(topic, payload, msg)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encoding command: %w", ErrPublishFailed, err)
	}

	if !d.opts.AwaitAck {
		return d.publish(topic, payload, msg)
	}

	acks := d.expect(msg.ID)
	defer d.forget(msg.ID)

	if err := d.publish(topic, payload, msg); err != nil {
		return err
	}

	select {
	case ack := <-acks:
		if ack.Status == AckFailed {
			return fmt.Errorf("%w: %s", climate.ErrDispatchRejected, ack.Error.String())
		}
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: no ack for command %s", climate.ErrDispatchTimeout, msg.ID)
		}
		return ctx.Err()
	}
}

func (d *MQTTDispatcher) publish(topic string, payload []byte, msg CommandMessage) error {
	if err := d.bus.Publish(topic, payload, d.opts.QoS, false); err != nil {
		return fmt.Errorf("%w: command %s to %s: %w", ErrPublishFailed, msg.ID, topic, err)
	}
	d.logger.Debug("command published",
		"command_id", msg.ID,
		"device_id", msg.DeviceID,
		"action", msg.Action,
		"topic", topic)
	return nil
}

func (d *MQTTDispatcher) expect(id string) <-chan AckMessage {
	ch := make(chan AckMessage, 1)
	d.pendingMu.Lock()
	d.pending[id] = ch
	d.pendingMu.Unlock()
	return ch
}

func (d *MQTTDispatcher) forget(id string) {
	d.pendingMu.Lock()
	delete(d.pending, id)
	d.pendingMu.Unlock()
}

// Pending returns the number of commands awaiting an ack.
func (d *MQTTDispatcher) Pending() int {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	return len(d.pending)
}

// handleAck routes an acknowledgement to the waiting Dispatch call.
// Acks for unknown or already settled commands are dropped.
func (d *MQTTDispatcher) handleAck(topic string, payload []byte) error {
	var ack AckMessage
	if err := json.Unmarshal(payload, &ack); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedAck, err)
	}
	if ack.CommandID == "" {
		return fmt.Errorf("%w: missing command_id", ErrMalformedAck)
	}

	deviceID := mqtt.LastSegment(topic)
	if ack.DeviceID != "" && ack.DeviceID != deviceID {
		d.logger.Warn("ack device mismatch",
			"command_id", ack.CommandID,
			"topic", topic,
			"device_id", ack.DeviceID)
		return nil
	}

	d.pendingMu.Lock()
	ch, ok := d.pending[ack.CommandID]
	d.pendingMu.Unlock()
	if !ok {
		d.logger.Debug("ack for unknown command", "command_id", ack.CommandID)
		return nil
	}

	select {
	case ch <- ack:
	default:
		// Duplicate ack (QoS 1 redelivery); the first one wins.
	}
	return nil
}

// renderPayload executes a device payload template against msg.
func renderPayload(msg CommandMessage, body string) ([]byte, error) {
	tmpl, err := template.New(msg.Action).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s for %s: %w", ErrPayloadTemplate, msg.Action, msg.DeviceID, err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, templateData{
		ID:       msg.ID,
		DeviceID: msg.DeviceID,
		Action:   msg.Action,
		Value:    msg.Value,
		IssuedAt: msg.IssuedAt.UTC().Format(time.RFC3339),
		Source:   msg.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s for %s: %w", ErrPayloadTemplate, msg.Action, msg.DeviceID, err)
	}
	return buf.Bytes(), nil
}
