package sqlite

import (
	"fmt"
	"strings"

	"github.com/OpenCHAMI/pductl/internal/cache"
	"github.com/OpenCHAMI/pductl/internal/util"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const TABLE_NAME = "pductl_outlet_events"

func CreateOutletEventsIfNotExists(path string) (*sqlx.DB, error) {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id 			INTEGER PRIMARY KEY AUTOINCREMENT,
		host 		TEXT NOT NULL,
		port 		INTEGER NOT NULL,
		outlet 		INTEGER NOT NULL,
		action 		TEXT NOT NULL,
		state 		TEXT,
		error 		TEXT,
		timestamp 	TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS %s_host ON %s (host, outlet);
	`, TABLE_NAME, TABLE_NAME, TABLE_NAME)
	if err := util.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}

func InsertOutletEvents(path string, events ...cache.OutletEvent) error {
	if len(events) == 0 {
		return nil
	}

	db, err := CreateOutletEventsIfNotExists(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	sql := fmt.Sprintf(`INSERT INTO %s (host, port, outlet, action, state, error, timestamp)
		VALUES (:host, :port, :outlet, :action, :state, :error, :timestamp);`, TABLE_NAME)
	for _, event := range events {
		if _, err := tx.NamedExec(sql, &event); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetOutletEvents returns the journal, oldest first. An empty host returns
// events for every device.
func GetOutletEvents(path string, host string) ([]cache.OutletEvent, error) {
	// check if path exists first to prevent creating the database
	if _, exists := util.PathExists(path); !exists {
		return nil, fmt.Errorf("no journal found at %s", path)
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT host, port, outlet, action, state, error, timestamp FROM %s", TABLE_NAME)
	args := []any{}
	if host != "" {
		query += " WHERE host = ?"
		args = append(args, host)
	}
	query += " ORDER BY timestamp ASC, id ASC;"

	events := []cache.OutletEvent{}
	if err := db.Select(&events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}
	return events, nil
}

// DeleteOutletEvents removes the events of the given hosts, or all events
// when no host is given.
func DeleteOutletEvents(path string, hosts ...string) (int64, error) {
	if _, exists := util.PathExists(path); !exists {
		return 0, nil
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return 0, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf("DELETE FROM %s", TABLE_NAME)
	args := []any{}
	if len(hosts) > 0 {
		query += fmt.Sprintf(" WHERE host IN (?%s)", strings.Repeat(", ?", len(hosts)-1))
		for _, h := range hosts {
			args = append(args, h)
		}
	}
	res, err := db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}
	return res.RowsAffected()
}

// Journal writes events to the SQLite database at Path.
type Journal struct {
	Path string
}

func (j Journal) Record(events ...cache.OutletEvent) error {
	return InsertOutletEvents(j.Path, events...)
}
