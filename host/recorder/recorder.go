// Package recorder stores decoded telemetry samples in SQLite.
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"powermon-go/host/sample"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  device        TEXT    NOT NULL,
  ts            TEXT    NOT NULL,
  voltage_v     REAL    NOT NULL,
  current_a     REAL    NOT NULL,
  power_w       REAL    NOT NULL,
  temperature_c REAL    NOT NULL,
  battery_pct   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_device_ts ON readings(device, ts);
`

const tsLayout = "2006-01-02T15:04:05.000Z"

type Recorder struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Recorder, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	// One writer; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db schema: %w", err)
	}
	return &Recorder{db: db}, nil
}

func buildDSN(path string) (string, error) {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL", nil
}

func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Recorder) Insert(ctx context.Context, s sample.Sample) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO readings (device, ts, voltage_v, current_a, power_w, temperature_c, battery_pct)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.Device, s.Timestamp.UTC().Format(tsLayout), s.VoltageV, s.CurrentA, s.PowerW, s.TempC, int(s.BatteryPct))
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// Recent returns up to limit samples of device, newest first.
func (r *Recorder) Recent(ctx context.Context, device string, limit int) ([]sample.Sample, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT device, ts, voltage_v, current_a, power_w, temperature_c, battery_pct
		   FROM readings WHERE device = ? ORDER BY ts DESC, id DESC LIMIT ?`, device, limit)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var out []sample.Sample
	for rows.Next() {
		var s sample.Sample
		var ts string
		var pct int
		if err := rows.Scan(&s.Device, &ts, &s.VoltageV, &s.CurrentA, &s.PowerW, &s.TempC, &pct); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		if s.Timestamp, err = time.Parse(tsLayout, ts); err != nil {
			return nil, fmt.Errorf("parse ts %q: %w", ts, err)
		}
		s.BatteryPct = uint8(pct)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Count returns the number of stored samples of device.
func (r *Recorder) Count(ctx context.Context, device string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings WHERE device = ?`, device).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}
