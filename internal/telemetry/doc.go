// Package telemetry connects the simulator to the outside world beyond
// HTTP.
//
// A Pipeline registered as a device.Listener forwards every event to MQTT,
// InfluxDB and the SQLite history on one worker goroutine. SubscribeCommands
// accepts control commands from the MQTT command topic. RunSampler produces
// a reading every sensor_interval, and RunPruner enforces history retention.
//
// Every sink is optional; a simulator with none configured still serves
// its REST API.
package telemetry
