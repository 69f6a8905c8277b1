package storage

import (
	"time"
)

// Storage holds a ledger of feeds processed by each run. It's a
// record of what happened, and is never consulted to decide whether
// a feed needs processing.
type Storage interface {
	// Writes a FeedRecord. If a record with the same run and feed
	// ID exists, it is replaced.
	WriteFeedRecord(record *FeedRecord) error

	// Retrieves all records matching the given filter, most
	// recently processed first.
	ListFeedRecords(filter ListFeedRecordsFilter) ([]*FeedRecord, error)

	Close() error
}

type ListFeedRecordsFilter struct {
	// If set, only include records from the given run.
	RunID string

	// If set, only include records for the given feed.
	FeedID string

	// If set, only include records with the given status.
	Status Status

	// If positive, return at most this many records.
	Limit int
}

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Outcome of processing one feed in one run.
type FeedRecord struct {
	RunID    string
	FeedID   string
	SourceID string
	Provider string
	URL      string

	Status Status
	Error  string

	// Hex encoded SHA-256 of the normalized archive. Blank on
	// failure.
	SHA256 string

	PublisherName string
	PublisherURL  string
	Lang          string
	DiscardedRows int
	Synthesized   bool

	ProcessedAt time.Time
}

func (f ListFeedRecordsFilter) matches(r *FeedRecord) bool {
	if f.RunID != "" && r.RunID != f.RunID {
		return false
	}
	if f.FeedID != "" && r.FeedID != f.FeedID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}
