package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDeviceState  = "device_state"
	MeasurementEnvironment  = "environment"
	MeasurementTriggerFired = "trigger_fired"
)

// WriteDeviceState records a relay state change.
//
// Parameters:
//   - deviceID: Device identifier (e.g., "FOGGER")
//   - on: New relay state
//   - source: Who asked for the change (e.g., "api", "trigger:low_humidity")
//   - at: When the owner applied the change
func (c *Client) WriteDeviceState(deviceID string, on bool, source string, at time.Time) {
	state := 0
	if on {
		state = 1
	}
	c.WritePointWithTime(MeasurementDeviceState,
		map[string]string{
			"device_id": deviceID,
			"source":    source,
		},
		map[string]any{
			"on":    on,
			"state": state,
		},
		at,
	)
}

// WriteEnvironment records one sensor reading.
func (c *Client) WriteEnvironment(sensor string, co2 uint16, temperature, humidity float64, at time.Time) {
	c.WritePointWithTime(MeasurementEnvironment,
		map[string]string{"sensor": sensor},
		map[string]any{
			"co2_ppm":       int64(co2),
			"temperature_c": temperature,
			"humidity_pct":  humidity,
		},
		at,
	)
}

// WriteTriggerFired records an automation trigger firing.
func (c *Client) WriteTriggerFired(triggerID string, at time.Time) {
	c.WritePointWithTime(MeasurementTriggerFired,
		map[string]string{"trigger_id": triggerID},
		map[string]any{"count": 1},
		at,
	)
}

// WritePoint writes a custom point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Writes on a disconnected or nil client are dropped.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
