package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "esp32sim"

// Topics builds the MQTT topics of one simulated device:
//
//	<prefix>/<device>/sensors   sensor readings
//	<prefix>/<device>/state     actuator outputs after a control command
//	<prefix>/<device>/status    online/offline (retained, LWT)
//	<prefix>/<device>/command   inbound {device,state} control payloads
//
// The device segment is taken from the name the client connected with and
// does not follow later device_name changes. Payloads carry the current name.
type Topics struct {
	Prefix string
	Device string
}

// NewTopics returns the topic set for deviceName under prefix.
// The device name is lowercased and spaces, '+' and '#' become '-'
// so it is a single valid topic level.
func NewTopics(prefix, deviceName string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Prefix: strings.TrimSuffix(prefix, "/"),
		Device: TopicSegment(deviceName),
	}
}

// TopicSegment makes s safe to use as a single topic level.
func TopicSegment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "device"
	}
	return strings.NewReplacer(" ", "-", "/", "-", "+", "-", "#", "-").Replace(s)
}

func (t Topics) base() string {
	return fmt.Sprintf("%s/%s", t.Prefix, t.Device)
}

// Sensors returns the sensor readings topic.
//
// Example: esp32sim/esp32-simulator/sensors
func (t Topics) Sensors() string {
	return t.base() + "/sensors"
}

// State returns the actuator state topic.
func (t Topics) State() string {
	return t.base() + "/state"
}

// Status returns the retained online/offline topic, also used for the LWT.
func (t Topics) Status() string {
	return t.base() + "/status"
}

// Command returns the topic the simulator listens on for control commands.
func (t Topics) Command() string {
	return t.base() + "/command"
}

// All returns a wildcard matching every topic of the device.
func (t Topics) All() string {
	return t.base() + "/#"
}
