// Package db persists receiver telemetry to sqlite: finger lock-state
// transitions and accepted speed updates. The daemon keeps one database per
// deployment; the tables are small and append-only.
package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/rake.receiver/internal/rake"
)

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the sqlite database at path and bootstraps the
// schema. The bootstrap DDL matches migration 0001; MigrateUp is only needed
// for schema changes beyond the baseline.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS finger_events (
			event_id          TEXT PRIMARY KEY,
			finger            BIGINT,
			delay             BIGINT,
			from_state        TEXT,
			to_state          TEXT,
			magnitude         DOUBLE,
			sample_count      BIGINT,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS speed_updates (
			update_id         TEXT PRIMARY KEY,
			source            TEXT,
			speed_kmh         DOUBLE,
			path_search_rate  DOUBLE,
			tracking_bandwidth DOUBLE,
			adaptive          BOOLEAN,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS finger_events_timestamp ON finger_events (timestamp);
		CREATE INDEX IF NOT EXISTS speed_updates_timestamp ON speed_updates (timestamp);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// InsertFingerEvent writes a single finger event row.
func (db *DB) InsertFingerEvent(ev rake.FingerEvent) error {
	_, err := db.Exec(
		`INSERT INTO finger_events (
			event_id, finger, delay, from_state, to_state, magnitude, sample_count
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), ev.Finger, ev.Delay, string(ev.From), string(ev.To),
		ev.Magnitude, int64(ev.SampleCount),
	)
	return err
}

// InsertSpeedUpdate writes a single speed update row.
func (db *DB) InsertSpeedUpdate(up rake.SpeedUpdate) error {
	_, err := db.Exec(
		`INSERT INTO speed_updates (
			update_id, source, speed_kmh, path_search_rate, tracking_bandwidth, adaptive
		) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), up.Source, up.SpeedKmh, up.PathSearchRate,
		up.TrackingBandwidth, up.Adaptive,
	)
	return err
}

// FingerEventRow is a persisted finger event together with its row metadata.
type FingerEventRow struct {
	EventID     string    `json:"event_id"`
	Finger      int       `json:"finger"`
	Delay       int       `json:"delay"`
	FromState   string    `json:"from_state"`
	ToState     string    `json:"to_state"`
	Magnitude   float64   `json:"magnitude"`
	SampleCount int64     `json:"sample_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// RecentFingerEvents returns the most recent finger events, newest first.
func (db *DB) RecentFingerEvents(limit int) ([]FingerEventRow, error) {
	rows, err := db.Query(
		`SELECT event_id, finger, delay, from_state, to_state, magnitude, sample_count, timestamp
		 FROM finger_events ORDER BY timestamp DESC, event_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []FingerEventRow
	for rows.Next() {
		var ev FingerEventRow
		if err := rows.Scan(
			&ev.EventID, &ev.Finger, &ev.Delay, &ev.FromState, &ev.ToState,
			&ev.Magnitude, &ev.SampleCount, &ev.Timestamp,
		); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SpeedUpdateRow is a persisted speed update together with its row metadata.
type SpeedUpdateRow struct {
	UpdateID          string    `json:"update_id"`
	Source            string    `json:"source"`
	SpeedKmh          float64   `json:"speed_kmh"`
	PathSearchRate    float64   `json:"path_search_rate"`
	TrackingBandwidth float64   `json:"tracking_bandwidth"`
	Adaptive          bool      `json:"adaptive"`
	Timestamp         time.Time `json:"timestamp"`
}

// RecentSpeedUpdates returns the most recent speed updates, newest first.
func (db *DB) RecentSpeedUpdates(limit int) ([]SpeedUpdateRow, error) {
	rows, err := db.Query(
		`SELECT update_id, source, speed_kmh, path_search_rate, tracking_bandwidth, adaptive, timestamp
		 FROM speed_updates ORDER BY timestamp DESC, update_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []SpeedUpdateRow
	for rows.Next() {
		var up SpeedUpdateRow
		if err := rows.Scan(
			&up.UpdateID, &up.Source, &up.SpeedKmh, &up.PathSearchRate,
			&up.TrackingBandwidth, &up.Adaptive, &up.Timestamp,
		); err != nil {
			return nil, err
		}
		updates = append(updates, up)
	}
	return updates, rows.Err()
}
