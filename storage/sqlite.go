package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStorage struct {
	SQLiteConfig

	db *sql.DB
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = filepath.Join(directory, "transit.db")
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each connection to :memory: is a separate database, and
	// on disk, concurrent writers would hit SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS feed_record (
    run_id TEXT NOT NULL,
    feed_id TEXT NOT NULL,
    source_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    url TEXT NOT NULL,
    status TEXT NOT NULL,
    error TEXT NOT NULL,
    sha256 TEXT NOT NULL,
    publisher_name TEXT NOT NULL,
    publisher_url TEXT NOT NULL,
    lang TEXT NOT NULL,
    discarded_rows INTEGER NOT NULL,
    synthesized BOOLEAN NOT NULL,
    processed_at TIMESTAMP NOT NULL,
PRIMARY KEY (run_id, feed_id)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating feed_record table: %w", err)
	}

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db: db,
	}, nil
}

func (s *SQLiteStorage) WriteFeedRecord(record *FeedRecord) error {
	_, err := s.db.Exec(`
INSERT OR REPLACE INTO feed_record (
    run_id,
    feed_id,
    source_id,
    provider,
    url,
    status,
    error,
    sha256,
    publisher_name,
    publisher_url,
    lang,
    discarded_rows,
    synthesized,
    processed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.FeedID,
		record.SourceID,
		record.Provider,
		record.URL,
		string(record.Status),
		record.Error,
		record.SHA256,
		record.PublisherName,
		record.PublisherURL,
		record.Lang,
		record.DiscardedRows,
		record.Synthesized,
		record.ProcessedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting feed record: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListFeedRecords(filter ListFeedRecordsFilter) ([]*FeedRecord, error) {
	query := `
SELECT
    run_id,
    feed_id,
    source_id,
    provider,
    url,
    status,
    error,
    sha256,
    publisher_name,
    publisher_url,
    lang,
    discarded_rows,
    synthesized,
    processed_at
FROM feed_record`

	conditions := []string{}
	params := []interface{}{}
	if filter.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		params = append(params, filter.RunID)
	}
	if filter.FeedID != "" {
		conditions = append(conditions, "feed_id = ?")
		params = append(params, filter.FeedID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		params = append(params, string(filter.Status))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY processed_at DESC, feed_id ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("listing feed records: %w", err)
	}
	defer rows.Close()

	records := []*FeedRecord{}
	for rows.Next() {
		var r FeedRecord
		var status string
		err := rows.Scan(
			&r.RunID,
			&r.FeedID,
			&r.SourceID,
			&r.Provider,
			&r.URL,
			&status,
			&r.Error,
			&r.SHA256,
			&r.PublisherName,
			&r.PublisherURL,
			&r.Lang,
			&r.DiscardedRows,
			&r.Synthesized,
			&r.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning feed record: %w", err)
		}
		r.Status = Status(status)
		r.ProcessedAt = r.ProcessedAt.UTC()
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feed records: %w", err)
	}

	return records, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
