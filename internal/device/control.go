package device

import (
	"encoding/json"
	"fmt"
)

// Control validates cmd against the actuator and action allow-lists and
// applies it. toggle inverts the current level; on and off set it.
// source is recorded on the result (SourceAPI or SourceMQTT).
func (s *Simulator) Control(cmd ControlCommand, source string) (ControlResult, error) {
	if !cmd.Device.Valid() {
		return ControlResult{}, fmt.Errorf("%w: %q", ErrInvalidDevice, cmd.Device)
	}
	if !cmd.State.Valid() {
		return ControlResult{}, fmt.Errorf("%w: %q", ErrInvalidState, cmd.State)
	}

	s.mu.Lock()
	on := s.outputs[cmd.Device]
	switch cmd.State {
	case ActionOn:
		on = true
	case ActionOff:
		on = false
	case ActionToggle:
		on = !on
	}
	s.outputs[cmd.Device] = on
	name := s.config.DeviceName
	now := s.now()
	s.mu.Unlock()

	result := ControlResult{
		Device: cmd.Device,
		State:  cmd.State,
		Output: levelOf(on),
		Source: source,
	}
	s.emit(EventControlChanged, name, now, result)
	return result, nil
}

// Outputs returns the current level of every actuator.
func (s *Simulator) Outputs() map[Actuator]Level {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Actuator]Level, len(Actuators))
	for _, a := range Actuators {
		out[a] = levelOf(s.outputs[a])
	}
	return out
}

// ParseControlCommand decodes a {"device":...,"state":...} body. Missing
// fields decode as empty strings and fail validation in Control.
func ParseControlCommand(body []byte) (ControlCommand, error) {
	var cmd ControlCommand
	if err := json.Unmarshal(body, &cmd); err != nil {
		return ControlCommand{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return cmd, nil
}
