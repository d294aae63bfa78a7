package device

import (
	"context"
	"time"
)

// History stores recent readings and commands so clients can see what the
// device did. Implementations must be thread-safe.
type History interface {
	// RecordReading stores a reading served for deviceName.
	RecordReading(ctx context.Context, deviceName string, reading SensorReading) error

	// RecordCommand stores an applied control command.
	RecordCommand(ctx context.Context, result ControlResult) error

	// ListReadings returns the most recent readings, newest first.
	// limit is clamped to [1, 200]; zero or negative means 50.
	ListReadings(ctx context.Context, limit int) ([]ReadingRecord, error)

	// ListCommands returns the most recent commands, newest first, with
	// the same limit rules as ListReadings.
	ListCommands(ctx context.Context, limit int) ([]CommandRecord, error)

	// Prune deletes entries recorded before now-olderThan and returns how
	// many rows were removed.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// ClampHistoryLimit applies the history limit rules.
func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
