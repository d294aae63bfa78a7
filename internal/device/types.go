package device

import "time"

// Actuator is a controllable output of the simulated board.
type Actuator string

// Supported actuators.
const (
	ActuatorLED   Actuator = "led"
	ActuatorRelay Actuator = "relay"
	ActuatorGPIO  Actuator = "gpio"
)

// Actuators lists every supported actuator in a stable order.
var Actuators = []Actuator{ActuatorLED, ActuatorRelay, ActuatorGPIO}

// Valid reports whether a is one of the supported actuators.
func (a Actuator) Valid() bool {
	switch a {
	case ActuatorLED, ActuatorRelay, ActuatorGPIO:
		return true
	}
	return false
}

// Action is the requested change of an actuator.
type Action string

// Supported actions.
const (
	ActionOn     Action = "on"
	ActionOff    Action = "off"
	ActionToggle Action = "toggle"
)

// Valid reports whether a is one of the supported actions.
func (a Action) Valid() bool {
	switch a {
	case ActionOn, ActionOff, ActionToggle:
		return true
	}
	return false
}

// Level is the resulting output of an actuator.
type Level string

// Output levels.
const (
	LevelOn  Level = "on"
	LevelOff Level = "off"
)

func levelOf(on bool) Level {
	if on {
		return LevelOn
	}
	return LevelOff
}

// Command sources recorded in history.
const (
	SourceAPI  = "api"
	SourceMQTT = "mqtt"
)

// Status is the identity and health snapshot served by GET /api/status.
type Status struct {
	Device    string `json:"device"`
	Uptime    int64  `json:"uptime"`
	FreeHeap  uint64 `json:"free_heap"`
	ChipID    string `json:"chip_id"`
	WiFiRSSI  int    `json:"wifi_rssi"`
	IPAddress string `json:"ip_address"`
}

// SensorReading is one simulated environmental sample.
// Timestamp is milliseconds since the simulated boot.
type SensorReading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	Timestamp   int64   `json:"timestamp"`
}

// Config is the mutable device configuration. It lives in memory only and
// returns to its defaults on reboot.
type Config struct {
	SensorInterval int    `json:"sensor_interval"`
	LEDEnabled     bool   `json:"led_enabled"`
	DeviceName     string `json:"device_name"`
	Version        string `json:"version"`
}

// ConfigPatch holds the fields present in a config update. Nil fields keep
// their current value.
type ConfigPatch struct {
	SensorInterval *int
	LEDEnabled     *bool
	DeviceName     *string
	Version        *string
}

// ControlCommand asks for an actuator change.
type ControlCommand struct {
	Device Actuator `json:"device"`
	State  Action   `json:"state"`
}

// ControlResult is an applied command and the actuator level it produced.
type ControlResult struct {
	Device Actuator `json:"device"`
	State  Action   `json:"state"`
	Output Level    `json:"output"`
	Source string   `json:"source"`
}

// ReadingRecord is a stored sensor reading.
type ReadingRecord struct {
	ID         int64         `json:"id"`
	DeviceName string        `json:"device_name"`
	Reading    SensorReading `json:"reading"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// CommandRecord is a stored control command.
type CommandRecord struct {
	ID         string    `json:"id"`
	Device     Actuator  `json:"device"`
	State      Action    `json:"state"`
	Output     Level     `json:"output"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at"`
}
