package influxdb

import (
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// MetricSetpoint is the device metric written after a successful
// temperature change.
const MetricSetpoint = "setpoint_c"

// Observer writes engine activity to InfluxDB. It implements
// climate.Observer; writes are buffered so it never blocks the engine.
type Observer struct {
	client *Client
}

// NewObserver returns an observer writing through c.
func NewObserver(c *Client) *Observer {
	return &Observer{client: c}
}

// RequestHandled implements climate.Observer.
func (o *Observer) RequestHandled(_ climate.Request, reply climate.Reply, elapsed time.Duration) {
	o.client.WriteRequest(reply.Outcome, len(reply.Results), elapsed)
}

// CommandDispatched implements climate.Observer.
func (o *Observer) CommandDispatched(result climate.DeviceResult) {
	p := CommandPoint{
		RequestID: result.RequestID,
		DeviceID:  result.DeviceID,
		Room:      result.RoomName,
		Status:    string(result.Status),
		Duration:  result.Duration,
	}
	if cmd := result.Command; cmd != nil {
		p.Action = string(cmd.Action)
		p.Value = cmd.Value
		p.IssuedAt = cmd.IssuedAt
	}
	o.client.WriteCommandResult(p)

	if result.Status != climate.StatusOK || result.Command == nil || result.Command.Action != climate.CommandSetTemperature {
		return
	}
	if v, ok := result.Command.Value.(float64); ok {
		o.client.WriteDeviceMetric(result.DeviceID, MetricSetpoint, v)
	}
}
