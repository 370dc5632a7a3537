package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "source tables",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS asana_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    gid TEXT,
    name TEXT NOT NULL,
    project TEXT,
    completed INTEGER DEFAULT 0,
    date TEXT
);

CREATE TABLE IF NOT EXISTS toggl_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    description TEXT,
    project_name TEXT,
    start_time TEXT NOT NULL,
    duration_minutes REAL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS habitica_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_name TEXT NOT NULL,
    item_type TEXT,
    tags TEXT,
    date_completed TEXT,
    completed INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS google_fit_steps (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT NOT NULL,
    steps INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS google_fit_general (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    data_type TEXT NOT NULL,
    value REAL,
    date TEXT NOT NULL
);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "date indexes",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_asana_items_date ON asana_items(date);
CREATE INDEX IF NOT EXISTS idx_toggl_items_start ON toggl_items(start_time);
CREATE INDEX IF NOT EXISTS idx_habitica_items_completed ON habitica_items(date_completed);
CREATE INDEX IF NOT EXISTS idx_google_fit_steps_ts ON google_fit_steps(timestamp);
CREATE INDEX IF NOT EXISTS idx_google_fit_general_date ON google_fit_general(date);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
