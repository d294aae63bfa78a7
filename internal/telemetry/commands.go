package telemetry

import (
	"fmt"

	"github.com/devicesim/esp32-rest-sim/internal/device"
	"github.com/devicesim/esp32-rest-sim/internal/infrastructure/mqtt"
)

// Subscriber is the inbound MQTT side. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Controller applies control commands. *device.Simulator satisfies it.
type Controller interface {
	Control(cmd device.ControlCommand, source string) (device.ControlResult, error)
}

// SubscribeCommands listens on the command topic and applies every
// {"device":...,"state":...} payload as if it had been POSTed to
// /api/control. Invalid payloads are logged and dropped.
func SubscribeCommands(sub Subscriber, topic string, qos byte, ctrl Controller, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}

	err := sub.Subscribe(topic, qos, func(t string, payload []byte) error {
		cmd, err := device.ParseControlCommand(payload)
		if err != nil {
			logger.Warn("ignoring malformed mqtt command", "topic", t, "error", err)
			return nil
		}

		result, err := ctrl.Control(cmd, device.SourceMQTT)
		if err != nil {
			logger.Warn("rejected mqtt command", "topic", t, "device", cmd.Device, "state", cmd.State, "error", err)
			return nil
		}

		logger.Debug("mqtt command applied", "device", result.Device, "state", result.State, "output", result.Output)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	return nil
}
