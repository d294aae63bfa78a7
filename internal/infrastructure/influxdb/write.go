package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementSensorReadings = "sensor_readings"
	MeasurementControl        = "control_outputs"
)

// WriteSensorReading records one simulated environmental reading, tagged
// by device and source ("api" or the reporter thing name).
func (c *Client) WriteSensorReading(device, source string, temperature, humidity, pressure float64, at time.Time) {
	c.writePoint(MeasurementSensorReadings,
		map[string]string{
			"device": device,
			"source": source,
		},
		map[string]any{
			"temperature": temperature,
			"humidity":    humidity,
			"pressure":    pressure,
		},
		at,
	)
}

// WriteTemperature records a lone temperature sample, as produced by the
// dweet reporter.
func (c *Client) WriteTemperature(device, source string, temperature float64, at time.Time) {
	c.writePoint(MeasurementSensorReadings,
		map[string]string{
			"device": device,
			"source": source,
		},
		map[string]any{
			"temperature": temperature,
		},
		at,
	)
}

// WriteControlOutput records the level of an actuator after a command.
// on is stored as 1 or 0 so it can be graphed.
func (c *Client) WriteControlOutput(device, actuator string, on bool, at time.Time) {
	level := 0
	if on {
		level = 1
	}
	c.writePoint(MeasurementControl,
		map[string]string{
			"device":   device,
			"actuator": actuator,
		},
		map[string]any{
			"level": level,
		},
		at,
	)
}

// writePoint queues a point with an explicit timestamp. It is a no-op while
// disconnected.
func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
