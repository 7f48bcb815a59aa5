package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the climate skill.
const (
	MeasurementCommands = "climate_commands"
	MeasurementRequests = "climate_requests"
	MeasurementDevices  = "device_metrics"
)

// CommandPoint is one dispatched device command.
type CommandPoint struct {
	RequestID string
	DeviceID  string
	Room      string
	Action    string
	Status    string

	// Value is the commanded value: a number, a mode name or a bool.
	Value any

	Duration time.Duration

	// IssuedAt timestamps the point. Zero means now.
	IssuedAt time.Time
}

// WriteCommandResult records the outcome of one device command.
//
// Tags are device_id, room, action and status; fields are duration_ms,
// request_id and the commanded value under a type-specific key
// (value, mode or on).
func (c *Client) WriteCommandResult(p CommandPoint) {
	tags := map[string]string{
		"device_id": p.DeviceID,
		"action":    p.Action,
		"status":    p.Status,
	}
	if p.Room != "" {
		tags["room"] = p.Room
	}

	fields := map[string]any{
		"duration_ms": float64(p.Duration.Microseconds()) / 1000,
	}
	if p.RequestID != "" {
		fields["request_id"] = p.RequestID
	}
	switch v := p.Value.(type) {
	case float64:
		fields["value"] = v
	case string:
		fields["mode"] = v
	case bool:
		fields["on"] = v
	}

	at := p.IssuedAt
	if at.IsZero() {
		at = c.now()
	}
	c.WritePointWithTime(MeasurementCommands, tags, fields, at)
}

// WriteRequest records one handled voice request.
func (c *Client) WriteRequest(outcome string, devices int, elapsed time.Duration) {
	c.WritePoint(MeasurementRequests,
		map[string]string{"outcome": outcome},
		map[string]any{
			"devices":     devices,
			"duration_ms": float64(elapsed.Microseconds()) / 1000,
		})
}

// WriteDeviceMetric writes a single device measurement, such as the
// setpoint a thermostat was last asked for.
//
// Example:
//
//	client.WriteDeviceMetric("thermostat-living", "setpoint_c", 21.5)
func (c *Client) WriteDeviceMetric(deviceID string, measurement string, value float64) {
	c.WritePoint(MeasurementDevices,
		map[string]string{
			"device_id":   deviceID,
			"measurement": measurement,
		},
		map[string]any{
			"value": value,
		})
}

// WritePoint writes a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, c.now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
// Writes on a closed client are dropped.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
