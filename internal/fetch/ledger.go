package fetch

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Ledger is a small SQLite record of what the fetcher has downloaded and
// how often cached copies were reused. Purely informational; every caller
// treats ledger failures as non-fatal.
type Ledger struct {
	db *sql.DB
}

// Entry is one ledger row.
type Entry struct {
	RemoteID  string
	LocalPath string
	SizeBytes int64
	FetchedAt time.Time
	HitCount  int
}

// OpenLedger opens or creates the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// single writer, matching the pipeline's non-concurrent model
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := &Ledger{db: db}
	if err := l.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fetched_files (
		remote_id TEXT PRIMARY KEY,
		local_path TEXT NOT NULL,
		size_bytes INTEGER DEFAULT 0,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		hit_count INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_fetched_path ON fetched_files(local_path);
	`
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create fetched_files table: %w", err)
	}
	return nil
}

// RecordDownload upserts a row after a successful download.
func (l *Ledger) RecordDownload(remoteID, localPath string, sizeBytes int64) error {
	_, err := l.db.Exec(`
		INSERT INTO fetched_files (remote_id, local_path, size_bytes, fetched_at, hit_count)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, 0)
		ON CONFLICT(remote_id) DO UPDATE SET
			local_path = excluded.local_path,
			size_bytes = excluded.size_bytes,
			fetched_at = CURRENT_TIMESTAMP`,
		remoteID, localPath, sizeBytes)
	return err
}

// Touch bumps the hit count for a cache reuse, inserting a stub row for
// files that were already present before the ledger existed.
func (l *Ledger) Touch(remoteID, localPath string) error {
	res, err := l.db.Exec(`UPDATE fetched_files SET hit_count = hit_count + 1 WHERE remote_id = ?`, remoteID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err = l.db.Exec(`
			INSERT INTO fetched_files (remote_id, local_path, hit_count)
			VALUES (?, ?, 1)
			ON CONFLICT(remote_id) DO NOTHING`,
			remoteID, localPath)
	}
	return err
}

// Entries returns all ledger rows, most recently fetched first.
func (l *Ledger) Entries() ([]Entry, error) {
	rows, err := l.db.Query(`
		SELECT remote_id, local_path, size_bytes, fetched_at, hit_count
		FROM fetched_files ORDER BY fetched_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var fetchedAt sql.NullString
		if err := rows.Scan(&e.RemoteID, &e.LocalPath, &e.SizeBytes, &fetchedAt, &e.HitCount); err != nil {
			return nil, err
		}
		if fetchedAt.Valid {
			e.FetchedAt, _ = time.Parse("2006-01-02 15:04:05", fetchedAt.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
