package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tempestwx/stationcore/internal/derive"
	"github.com/tempestwx/stationcore/internal/units"
)

// ErrNotFound is returned when no snapshot has been saved for a station.
var ErrNotFound = errors.New("no snapshot for station")

const schema = `
CREATE TABLE IF NOT EXISTS rolling_stats (
	station   TEXT    NOT NULL,
	quantity  TEXT    NOT NULL,
	value     REAL,
	unit      TEXT    NOT NULL,
	anchor    INTEGER NOT NULL,
	aux_key   TEXT    NOT NULL DEFAULT '',
	aux_value REAL    NOT NULL DEFAULT 0,
	PRIMARY KEY (station, quantity, aux_key)
);`

// SnapshotStore persists rolling-statistic snapshots to SQLite so a restart
// resumes without a cold-start history backfill.
type SnapshotStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*SnapshotStore, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("snapshot db open: %w", err)
	}
	// The snapshot writer is a single scheduled job.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot db ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot db schema: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

func (s *SnapshotStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces the persisted snapshot set for a station.
func (s *SnapshotStore) Save(station string, stats map[string]derive.StatSnapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM rolling_stats WHERE station = ?`, station); err != nil {
		return fmt.Errorf("snapshot clear: %w", err)
	}

	insert, err := tx.Prepare(`INSERT INTO rolling_stats
		(station, quantity, value, unit, anchor, aux_key, aux_value)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("snapshot prepare: %w", err)
	}
	defer func() { _ = insert.Close() }()

	for quantity, stat := range stats {
		var value sql.NullFloat64
		if stat.Value != nil {
			value = sql.NullFloat64{Float64: *stat.Value, Valid: true}
		}
		if _, err := insert.Exec(station, quantity, value, string(stat.Unit), stat.Anchor, "", 0.0); err != nil {
			return fmt.Errorf("snapshot insert %s: %w", quantity, err)
		}
		for auxKey, auxValue := range stat.Aux {
			if _, err := insert.Exec(station, quantity, value, string(stat.Unit), stat.Anchor, auxKey, auxValue); err != nil {
				return fmt.Errorf("snapshot insert %s/%s: %w", quantity, auxKey, err)
			}
		}
	}
	return tx.Commit()
}

// Load returns the persisted snapshot set for a station.
func (s *SnapshotStore) Load(station string) (map[string]derive.StatSnapshot, error) {
	rows, err := s.db.Query(`SELECT quantity, value, unit, anchor, aux_key, aux_value
		FROM rolling_stats WHERE station = ?`, station)
	if err != nil {
		return nil, fmt.Errorf("snapshot load: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]derive.StatSnapshot)
	for rows.Next() {
		var (
			quantity, unit, auxKey string
			value                  sql.NullFloat64
			anchor                 int64
			auxValue               float64
		)
		if err := rows.Scan(&quantity, &value, &unit, &anchor, &auxKey, &auxValue); err != nil {
			return nil, fmt.Errorf("snapshot scan: %w", err)
		}

		stat, ok := out[quantity]
		if !ok {
			stat = derive.StatSnapshot{Unit: units.Unit(unit), Anchor: anchor}
			if value.Valid {
				v := value.Float64
				stat.Value = &v
			}
		}
		if auxKey != "" {
			if stat.Aux == nil {
				stat.Aux = make(map[string]float64)
			}
			stat.Aux[auxKey] = auxValue
		}
		out[quantity] = stat
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot rows: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func buildDSN(path string) (string, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
