package device

import "time"

// EventType names a simulator state change.
type EventType string

// Event types, also used as websocket message types.
const (
	EventSensorReading  EventType = "sensors.reading"
	EventControlChanged EventType = "control.changed"
	EventConfigChanged  EventType = "config.changed"
	EventRebooted       EventType = "device.rebooted"
)

// Event is emitted after the simulator state changes. Payload is a
// SensorReading, ControlResult, Config or Status depending on Type.
type Event struct {
	Type       EventType `json:"type"`
	DeviceName string    `json:"device"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

// Listener receives simulator events. It runs on the goroutine that
// changed the state, after the simulator lock is released, so it must
// not block.
type Listener func(Event)
