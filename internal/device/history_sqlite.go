package device

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLiteHistory implements History on the sensor_readings and
// control_commands tables. Timestamps are stored as Unix milliseconds.
type SQLiteHistory struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteHistory returns a History backed by db. The schema comes from
// the embedded migrations.
func NewSQLiteHistory(db *sql.DB) *SQLiteHistory {
	return &SQLiteHistory{db: db, now: time.Now}
}

// RecordReading inserts a sensor reading.
func (h *SQLiteHistory) RecordReading(ctx context.Context, deviceName string, reading SensorReading) error {
	if deviceName == "" {
		return fmt.Errorf("device name is required")
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO sensor_readings
		 (device_name, temperature, humidity, pressure, uptime_ms, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		deviceName,
		reading.Temperature,
		reading.Humidity,
		reading.Pressure,
		reading.Timestamp,
		h.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting sensor reading: %w", err)
	}
	return nil
}

// RecordCommand inserts an applied control command under a new UUID.
func (h *SQLiteHistory) RecordCommand(ctx context.Context, result ControlResult) error {
	source := result.Source
	if source == "" {
		source = SourceAPI
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO control_commands (id, device, state, output, source, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		string(result.Device),
		string(result.State),
		string(result.Output),
		source,
		h.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting control command: %w", err)
	}
	return nil
}

// ListReadings returns recent readings, newest first.
func (h *SQLiteHistory) ListReadings(ctx context.Context, limit int) ([]ReadingRecord, error) {
	limit = ClampHistoryLimit(limit)

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, device_name, temperature, humidity, pressure, uptime_ms, recorded_at
		 FROM sensor_readings
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sensor readings: %w", err)
	}
	defer rows.Close()

	records := make([]ReadingRecord, 0, limit)
	for rows.Next() {
		var rec ReadingRecord
		var recordedAt int64
		if err := rows.Scan(
			&rec.ID,
			&rec.DeviceName,
			&rec.Reading.Temperature,
			&rec.Reading.Humidity,
			&rec.Reading.Pressure,
			&rec.Reading.Timestamp,
			&recordedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning sensor reading: %w", err)
		}
		rec.RecordedAt = time.UnixMilli(recordedAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor readings: %w", err)
	}
	return records, nil
}

// ListCommands returns recent control commands, newest first.
func (h *SQLiteHistory) ListCommands(ctx context.Context, limit int) ([]CommandRecord, error) {
	limit = ClampHistoryLimit(limit)

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, device, state, output, source, recorded_at
		 FROM control_commands
		 ORDER BY recorded_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying control commands: %w", err)
	}
	defer rows.Close()

	records := make([]CommandRecord, 0, limit)
	for rows.Next() {
		var rec CommandRecord
		var recordedAt int64
		if err := rows.Scan(&rec.ID, &rec.Device, &rec.State, &rec.Output, &rec.Source, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning control command: %w", err)
		}
		rec.RecordedAt = time.UnixMilli(recordedAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating control commands: %w", err)
	}
	return records, nil
}

// Prune deletes readings and commands older than olderThan in one
// transaction.
func (h *SQLiteHistory) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}
	cutoff := h.now().UTC().Add(-olderThan).UnixMilli()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting prune: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	var total int64
	for _, table := range []string{"sensor_readings", "control_commands"} {
		result, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE recorded_at < ?", cutoff)
		if err != nil {
			return 0, fmt.Errorf("pruning %s: %w", table, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("checking rows affected: %w", err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing prune: %w", err)
	}
	return total, nil
}
