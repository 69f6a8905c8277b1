package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

type PSQLStorage struct {
	db *sql.DB
}

// Creates a new Postgres Storage using the provided connection string.
//
// If clearDB is true, the database will be cleared on startup. You
// probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*PSQLStorage, error) {

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if clearDB {
		_, err = db.Exec(`DROP TABLE IF EXISTS feed_record;`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("clearing db: %w", err)
		}
	}

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
    processed_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (run_id, feed_id)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating feed_record table: %w", err)
	}

	return &PSQLStorage{
		db: db,
	}, nil
}

func (s *PSQLStorage) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close db: %w", err)
	}
	return nil
}

func (s *PSQLStorage) WriteFeedRecord(record *FeedRecord) error {
	_, err := s.db.Exec(`
INSERT INTO feed_record (
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
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (run_id, feed_id) DO UPDATE SET
    source_id = EXCLUDED.source_id,
    provider = EXCLUDED.provider,
    url = EXCLUDED.url,
    status = EXCLUDED.status,
    error = EXCLUDED.error,
    sha256 = EXCLUDED.sha256,
    publisher_name = EXCLUDED.publisher_name,
    publisher_url = EXCLUDED.publisher_url,
    lang = EXCLUDED.lang,
    discarded_rows = EXCLUDED.discarded_rows,
    synthesized = EXCLUDED.synthesized,
    processed_at = EXCLUDED.processed_at`,
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

func (s *PSQLStorage) ListFeedRecords(filter ListFeedRecordsFilter) ([]*FeedRecord, error) {
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
		params = append(params, filter.RunID)
		conditions = append(conditions, fmt.Sprintf("run_id = $%d", len(params)))
	}
	if filter.FeedID != "" {
		params = append(params, filter.FeedID)
		conditions = append(conditions, fmt.Sprintf("feed_id = $%d", len(params)))
	}
	if filter.Status != "" {
		params = append(params, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(params)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY processed_at DESC, feed_id ASC"

	if filter.Limit > 0 {
		params = append(params, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(params))
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
		var processedAt pq.NullTime
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
			&processedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning feed record: %w", err)
		}
		r.Status = Status(status)
		if processedAt.Valid {
			r.ProcessedAt = processedAt.Time.UTC()
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feed records: %w", err)
	}

	return records, nil
}
