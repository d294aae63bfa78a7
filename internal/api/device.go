package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/devicesim/esp32-rest-sim/internal/device"
)

// Response messages returned by the device routes.
const (
	msgControlApplied  = "Command executed"
	msgInvalidControl  = "Invalid device or state"
	msgConfigUpdated   = "Configuration updated"
	msgRebooting       = "Rebooting..."
	msgRebootPending   = "Reboot already pending"
	msgUnreadableBody  = "request body could not be read"
	msgRequestTooLarge = "request body too large"
)

// ControlResponse is the reply to POST /api/control.
type ControlResponse struct {
	Success bool            `json:"success"`
	Device  device.Actuator `json:"device"`
	State   device.Action   `json:"state"`
	Output  device.Level    `json:"output"`
	Message string          `json:"message"`
}

// ConfigResponse is the reply to POST /api/config.
type ConfigResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Config  device.Config `json:"config"`
}

// RebootResponse is the reply to POST /api/reboot.
type RebootResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleStatus returns the device identity and health snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Status())
}

// handleSensors returns a freshly generated sensor reading.
func (s *Server) handleSensors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.ReadSensors())
}

// handleControl applies a {device, state} command to an actuator.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	cmd, err := device.ParseControlCommand(body)
	if err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.sim.Control(cmd, device.SourceAPI)
	if err != nil {
		if errors.Is(err, device.ErrInvalidDevice) || errors.Is(err, device.ErrInvalidState) {
			writeValidationError(w, msgInvalidControl)
			return
		}
		s.logger.Error("control failed", "error", err)
		writeInternalError(w, "control failed")
		return
	}

	s.logger.Debug("control applied",
		"device", result.Device,
		"state", result.State,
		"output", result.Output,
		"subject", subjectFromContext(r.Context()),
	)

	writeJSON(w, http.StatusOK, ControlResponse{
		Success: true,
		Device:  result.Device,
		State:   result.State,
		Output:  result.Output,
		Message: msgControlApplied,
	})
}

// handleGetConfig returns the current device configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Config())
}

// handleUpdateConfig merges the fields present in the body into the
// configuration. Omitted fields keep their values.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	patch, err := device.ParseConfigPatch(body)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	updated := s.sim.UpdateConfig(patch)
	s.logger.Info("config updated", "config", updated)

	writeJSON(w, http.StatusOK, ConfigResponse{
		Success: true,
		Message: msgConfigUpdated,
		Config:  updated,
	})
}

// handleReboot answers first and reboots the simulator after the
// configured delay, as the board does after flushing its response.
func (s *Server) handleReboot(w http.ResponseWriter, _ *http.Request) {
	if !s.sim.ScheduleReboot(s.rebootDelay) {
		writeJSON(w, http.StatusOK, RebootResponse{Success: true, Message: msgRebootPending})
		return
	}

	s.logger.Info("reboot scheduled", "delay", s.rebootDelay)
	writeJSON(w, http.StatusOK, RebootResponse{Success: true, Message: msgRebooting})
}

// readBody reads the full request body. On failure it writes the error
// response and returns false.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, msgRequestTooLarge)
			return nil, false
		}
		writeBadRequest(w, msgUnreadableBody)
		return nil, false
	}
	return body, true
}
