package storage

import (
	"sort"
	"sync"
)

// In memory implementation of Storage below

type memoryRecordKey struct {
	RunID  string
	FeedID string
}

type MemoryStorage struct {
	mutex   sync.Mutex
	Records map[memoryRecordKey]*FeedRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		Records: map[memoryRecordKey]*FeedRecord{},
	}
}

func (s *MemoryStorage) WriteFeedRecord(record *FeedRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	r := *record
	r.ProcessedAt = r.ProcessedAt.UTC()
	s.Records[memoryRecordKey{record.RunID, record.FeedID}] = &r
	return nil
}

func (s *MemoryStorage) ListFeedRecords(filter ListFeedRecordsFilter) ([]*FeedRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	records := []*FeedRecord{}
	for _, r := range s.Records {
		if !filter.matches(r) {
			continue
		}
		copied := *r
		records = append(records, &copied)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].ProcessedAt.Equal(records[j].ProcessedAt) {
			return records[i].ProcessedAt.After(records[j].ProcessedAt)
		}
		return records[i].FeedID < records[j].FeedID
	})

	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}

	return records, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
