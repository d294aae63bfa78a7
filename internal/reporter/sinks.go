package reporter

import (
	"context"
	"time"
)

// Sink receives every generated temperature, whether or not dweet.io
// accepted it.
type Sink interface {
	RecordTemperature(ctx context.Context, thing string, value int, at time.Time) error
}

// Publisher is satisfied by *mqtt.Client.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// TemperatureWriter is satisfied by *influxdb.Client.
type TemperatureWriter interface {
	WriteTemperature(device, source string, temperature float64, at time.Time)
}

// SourceDweet tags reporter values in InfluxDB.
const SourceDweet = "dweet"

// Reading is the MQTT payload of one reporter value.
type Reading struct {
	Thing       string    `json:"thing"`
	Temperature int       `json:"temperature"`
	Timestamp   time.Time `json:"timestamp"`
}

// MQTTSink publishes each value as a Reading on Topic.
type MQTTSink struct {
	Client Publisher
	Topic  string
}

// RecordTemperature implements Sink.
func (s MQTTSink) RecordTemperature(_ context.Context, thing string, value int, at time.Time) error {
	return s.Client.PublishJSON(s.Topic, Reading{Thing: thing, Temperature: value, Timestamp: at}, false)
}

// InfluxSink writes each value as a temperature point tagged with the thing.
type InfluxSink struct {
	Writer TemperatureWriter
}

// RecordTemperature implements Sink. Writes are batched by the client, so
// it never fails here.
func (s InfluxSink) RecordTemperature(_ context.Context, thing string, value int, at time.Time) error {
	s.Writer.WriteTemperature(thing, SourceDweet, float64(value), at)
	return nil
}
