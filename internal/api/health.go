package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/devicesim/esp32-rest-sim/internal/device"
)

// healthCheckTimeout bounds each service check.
const healthCheckTimeout = 2 * time.Second

const (
	healthOK       = "ok"
	healthDegraded = "degraded"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Services map[string]string `json:"services,omitempty"`
	Device   DeviceHealth      `json:"device"`
}

// DeviceHealth is the simulator part of the health report.
type DeviceHealth struct {
	Name          string                           `json:"name"`
	RebootPending bool                             `json:"reboot_pending"`
	Outputs       map[device.Actuator]device.Level `json:"outputs"`
}

// handleHealth runs the configured service checks. Any failure answers 503
// with status "degraded"; the failing service carries its error text.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  healthOK,
		Version: s.version,
		Device: DeviceHealth{
			Name:          s.sim.DeviceName(),
			RebootPending: s.sim.RebootPending(),
			Outputs:       s.sim.Outputs(),
		},
	}

	if len(s.checks) > 0 {
		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp.Services = make(map[string]string, len(names))
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := s.checks[name].HealthCheck(ctx)
			cancel()

			if err != nil {
				resp.Status = healthDegraded
				resp.Services[name] = err.Error()
				s.logger.Warn("health check failed", "service", name, "error", err)
				continue
			}
			resp.Services[name] = healthOK
		}
	}

	status := http.StatusOK
	if resp.Status != healthOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
