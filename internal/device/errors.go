package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrInvalidDevice) {
//	    // answer 400
//	}
var (
	// ErrInvalidDevice is returned when a control command names an actuator
	// other than led, relay or gpio.
	ErrInvalidDevice = errors.New("device: invalid device")

	// ErrInvalidState is returned when a control command asks for a state
	// other than on, off or toggle.
	ErrInvalidState = errors.New("device: invalid state")

	// ErrInvalidConfig is returned when a config update is not a JSON
	// object or a field cannot be coerced to its type.
	ErrInvalidConfig = errors.New("device: invalid config")

	// ErrInvalidCommand is returned when a control payload is not a JSON object.
	ErrInvalidCommand = errors.New("device: invalid command")
)
