package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite archives bulletins in a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite archive at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	// Several decoders may share one archive file.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rsfc_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	atcfid TEXT NOT NULL,
	rsfcid TEXT,
	technique TEXT NOT NULL,
	msg_hdr TEXT NOT NULL DEFAULT '',
	msg_type TEXT NOT NULL,
	msg_advnr INTEGER,
	msg_time TEXT NOT NULL,
	lat REAL NOT NULL,
	lon REAL NOT NULL,
	vmax INTEGER,
	mslp INTEGER,
	movement TEXT,
	message TEXT,
	created_at TEXT DEFAULT (datetime('now')),
	UNIQUE (atcfid, technique, msg_hdr, msg_time)
);

CREATE INDEX IF NOT EXISTS idx_rsfc_messages_atcfid ON rsfc_messages(atcfid);
CREATE INDEX IF NOT EXISTS idx_rsfc_messages_time ON rsfc_messages(msg_time);
`

// Save inserts r unless the same bulletin is already archived.
func (s *SQLite) Save(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rsfc_messages
			(atcfid, rsfcid, technique, msg_hdr, msg_type, msg_advnr, msg_time, lat, lon, vmax, mslp, movement, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (atcfid, technique, msg_hdr, msg_time) DO NOTHING`,
		r.ATCFID, nullString(r.AgencyID), r.Technique, r.Header, r.Type, r.Advisory,
		r.MsgTime.UTC().Format(time.RFC3339), r.Lat, r.Lon, r.MaxWind, r.Pressure,
		nullString(r.Movement), nullString(r.Message),
	)
	if err != nil {
		return fmt.Errorf("archive %s: %w", r.ATCFID, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
