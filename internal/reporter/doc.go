// Package reporter sends a fake temperature reading to dweet.io at a fixed
// interval and logs what the service answered.
//
// Values can also be mirrored to MQTT and InfluxDB through Sinks.
package reporter
