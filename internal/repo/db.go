package repo

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS notes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL,
		author TEXT NOT NULL,
		kind TEXT NOT NULL,
		auxiliary TEXT NOT NULL DEFAULT '',
		ctime INTEGER NOT NULL,
		mtime INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notes_ctime ON notes(ctime DESC)`,
	`CREATE TABLE IF NOT EXISTS bindings (
		user_id TEXT PRIMARY KEY,
		is_binding INTEGER NOT NULL,
		ctime INTEGER NOT NULL,
		mtime INTEGER NOT NULL
	)`,
}

func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func ApplyMigrations(db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
