package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crimson-sun/sigflow/internal/model"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const writeTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS generation_log (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  timestamp    TEXT    NOT NULL,
  request_id   TEXT    NOT NULL,
  input_name   TEXT    NOT NULL,
  mode         TEXT    NOT NULL,
  sample_index INTEGER NOT NULL,
  output_file  TEXT    NOT NULL,
  source_path  TEXT    NOT NULL DEFAULT '',
  text_form    TEXT    NOT NULL DEFAULT '',
  font_file    TEXT    NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS generation_log_slot_uq ON generation_log(request_id, sample_index);
CREATE INDEX IF NOT EXISTS generation_log_name_idx ON generation_log(input_name);
`

// Store mirrors audit records into a SQLite table with the same columns
// as the CSV log, so history can be queried by request or name.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dsn and ensures schema and PRAGMAs.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite output: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite output: ping: %w", err)
	}
	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite output: set %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite output: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Write inserts one row. A repeated (request_id, sample_index) pair is
// rejected by the unique index.
func (s *Store) Write(ctx context.Context, rec model.AuditRecord) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite output: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO generation_log(timestamp, request_id, input_name, mode, sample_index, output_file, source_path, text_form, font_file)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.Format(model.AuditTimeLayout), rec.RequestID, rec.InputName, string(rec.Mode),
		rec.SampleIndex, rec.OutputFile, rec.SourcePath, rec.TextForm, rec.FontFile); err != nil {
		return fmt.Errorf("sqlite output: insert %s/%d: %w", rec.RequestID, rec.SampleIndex, err)
	}
	return tx.Commit()
}

// ByRequest returns the rows of one request ordered by slot.
func (s *Store) ByRequest(ctx context.Context, requestID string) ([]model.AuditRecord, error) {
	return s.query(ctx, `WHERE request_id = ? ORDER BY sample_index ASC`, requestID)
}

// ByName returns every row generated for a trimmed input name, oldest first.
func (s *Store) ByName(ctx context.Context, name string) ([]model.AuditRecord, error) {
	return s.query(ctx, `WHERE input_name = ? ORDER BY id ASC`, name)
}

func (s *Store) query(ctx context.Context, where string, arg any) ([]model.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, request_id, input_name, mode, sample_index, output_file, source_path, text_form, font_file
		 FROM generation_log `+where, arg)
	if err != nil {
		return nil, fmt.Errorf("sqlite output: query: %w", err)
	}
	defer rows.Close()

	var out []model.AuditRecord
	for rows.Next() {
		var (
			rec  model.AuditRecord
			ts   string
			mode string
		)
		if err := rows.Scan(&ts, &rec.RequestID, &rec.InputName, &mode, &rec.SampleIndex,
			&rec.OutputFile, &rec.SourcePath, &rec.TextForm, &rec.FontFile); err != nil {
			return nil, fmt.Errorf("sqlite output: scan: %w", err)
		}
		rec.Mode = model.Source(mode)
		if rec.Timestamp, err = time.ParseInLocation(model.AuditTimeLayout, ts, time.Local); err != nil {
			return nil, fmt.Errorf("sqlite output: timestamp %q: %w", ts, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
