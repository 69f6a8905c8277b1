package parse

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spkg/bom"

	"headway.dev/transit/model"
)

const FeedInfoFile = "feed_info.txt"

const (
	FeedInfoID            = "feed_id"
	FeedInfoPublisherName = "feed_publisher_name"
	FeedInfoPublisherURL  = "feed_publisher_url"
	FeedInfoLang          = "feed_lang"
	FeedInfoStartDate     = "feed_start_date"
	FeedInfoEndDate       = "feed_end_date"
	FeedInfoVersion       = "feed_version"
)

// Language assumed for feeds that don't declare one.
const DefaultFeedLang = "en"

// FeedInfo holds the header and the single row of a feed_info.txt.
type FeedInfo struct {
	Header []string
	Row    []string

	// Rows dropped because only the first is kept.
	Discarded int

	// True if there was no row to start from.
	Synthesized bool
}

// NewFeedInfo returns an empty FeedInfo, for archives lacking
// feed_info.txt.
func NewFeedInfo() *FeedInfo {
	return &FeedInfo{
		Header:      []string{},
		Row:         []string{},
		Synthesized: true,
	}
}

// ReadFeedInfo reads feed_info.txt, keeping the first row only.
//
// Aggregate feeds commonly list one row per publisher. Nothing else
// in an archive references these rows, so there's no way to tell which
// one "owns" any given entity. The trip planner only looks at the
// first, and so do we.
func ReadFeedInfo(data io.Reader) (*FeedInfo, error) {
	r := csv.NewReader(bom.NewReader(data))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return NewFeedInfo(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading feed_info header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	fi := &FeedInfo{Header: header}

	for i := 0; ; i++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading feed_info (row %d)", i+1)
		}
		if fi.Row == nil {
			fi.Row = record
		} else {
			fi.Discarded++
		}
	}

	if fi.Row == nil {
		fi.Row = []string{}
		fi.Synthesized = true
	}

	// Short rows are padded out, long ones truncated.
	row := make([]string, len(fi.Header))
	copy(row, fi.Row)
	fi.Row = row

	return fi, nil
}

// Get returns the value of a column, or blank if missing.
func (fi *FeedInfo) Get(column string) string {
	i := fi.index(column)
	if i < 0 {
		return ""
	}
	return fi.Row[i]
}

// Set sets the value of a column. Missing columns are appended.
func (fi *FeedInfo) Set(column string, value string) {
	i := fi.index(column)
	if i < 0 {
		fi.Header = append(fi.Header, column)
		fi.Row = append(fi.Row, value)
		return
	}
	fi.Row[i] = value
}

func (fi *FeedInfo) index(column string) int {
	for i, c := range fi.Header {
		if c == column {
			return i
		}
	}
	return -1
}

// Normalize forces feed_id to the given ID and fills in any blank
// publisher name, publisher URL or language with placeholders, since
// the trip planner rejects feeds lacking them.
//
// The feed_id column is placed first if it wasn't already present.
// Nothing in a GTFS archive references feed_id, so overwriting it is
// safe.
func (fi *FeedInfo) Normalize(feedID string) {
	if fi.index(FeedInfoID) < 0 {
		fi.Header = append([]string{FeedInfoID}, fi.Header...)
		fi.Row = append([]string{""}, fi.Row...)
	}
	fi.Set(FeedInfoID, feedID)

	placeholders := []struct {
		column string
		value  string
	}{
		{FeedInfoPublisherName, "Feed Publisher: " + feedID},
		{FeedInfoPublisherURL, "https://0.0.0.0/missing/feed_publisher_url/feed-id/" + feedID},
		{FeedInfoLang, DefaultFeedLang},
	}
	for _, p := range placeholders {
		if strings.TrimSpace(fi.Get(p.column)) == "" {
			fi.Set(p.column, p.value)
		}
	}
}

// Missing returns the required columns that are blank.
func (fi *FeedInfo) Missing() []string {
	missing := []string{}
	for _, col := range []string{FeedInfoID, FeedInfoPublisherName, FeedInfoPublisherURL, FeedInfoLang} {
		if strings.TrimSpace(fi.Get(col)) == "" {
			missing = append(missing, col)
		}
	}
	return missing
}

func (fi *FeedInfo) Record() model.FeedInfo {
	return model.FeedInfo{
		ID:            fi.Get(FeedInfoID),
		PublisherName: fi.Get(FeedInfoPublisherName),
		PublisherURL:  fi.Get(FeedInfoPublisherURL),
		Lang:          fi.Get(FeedInfoLang),
		StartDate:     fi.Get(FeedInfoStartDate),
		EndDate:       fi.Get(FeedInfoEndDate),
		Version:       fi.Get(FeedInfoVersion),
	}
}

// Write writes the header and the single row.
func (fi *FeedInfo) Write(out io.Writer) error {
	w := csv.NewWriter(out)
	if err := w.Write(fi.Header); err != nil {
		return errors.Wrap(err, "writing feed_info header")
	}
	if err := w.Write(fi.Row); err != nil {
		return errors.Wrap(err, "writing feed_info row")
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flushing feed_info")
}
