package api

import (
	"net/http"
	"strconv"

	"github.com/devicesim/esp32-rest-sim/internal/device"
)

// HistoryResponse wraps a page of history records.
type HistoryResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
	Limit int `json:"limit"`
}

// handleSensorHistory returns recently served sensor readings.
func (s *Server) handleSensorHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "history is disabled")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	records, err := s.history.ListReadings(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing sensor history", "error", err)
		writeInternalError(w, "failed to list sensor history")
		return
	}
	writeHistory(w, records, limit)
}

// handleControlHistory returns recently applied control commands.
func (s *Server) handleControlHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "history is disabled")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	records, err := s.history.ListCommands(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing control history", "error", err)
		writeInternalError(w, "failed to list control history")
		return
	}
	writeHistory(w, records, limit)
}

func writeHistory[T any](w http.ResponseWriter, records []T, limit int) {
	if records == nil {
		records = []T{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse[T]{
		Items: records,
		Count: len(records),
		Limit: limit,
	})
}

// parseLimit reads the optional ?limit= query parameter and clamps it.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return device.ClampHistoryLimit(0), true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeBadRequest(w, "limit must be an integer")
		return 0, false
	}
	return device.ClampHistoryLimit(n), true
}
