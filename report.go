package transit

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"headway.dev/transit/storage"
)

// One line of a run report.
type ReportRow struct {
	RunID         string `csv:"run_id"`
	FeedID        string `csv:"feed_id"`
	SourceID      string `csv:"mdb_source_id"`
	Provider      string `csv:"provider"`
	Status        string `csv:"status"`
	Error         string `csv:"error"`
	SHA256        string `csv:"sha256"`
	PublisherName string `csv:"feed_publisher_name"`
	Lang          string `csv:"feed_lang"`
	DiscardedRows int    `csv:"discarded_feed_info_rows"`
	Synthesized   bool   `csv:"feed_info_synthesized"`
	ProcessedAt   string `csv:"processed_at"`
	URL           string `csv:"url"`
}

// WriteReport writes ledger records as CSV.
func WriteReport(w io.Writer, records []*storage.FeedRecord) error {
	rows := make([]*ReportRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, &ReportRow{
			RunID:         r.RunID,
			FeedID:        r.FeedID,
			SourceID:      r.SourceID,
			Provider:      r.Provider,
			Status:        string(r.Status),
			Error:         r.Error,
			SHA256:        r.SHA256,
			PublisherName: r.PublisherName,
			Lang:          r.Lang,
			DiscardedRows: r.DiscardedRows,
			Synthesized:   r.Synthesized,
			ProcessedAt:   r.ProcessedAt.UTC().Format(time.RFC3339),
			URL:           r.URL,
		})
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return nil
}
