package transit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"headway.dev/transit/model"
	"headway.dev/transit/storage"
)

// Suffix of normalized archives written to the output directory.
const ArchiveSuffix = ".gtfs.zip"

// What to do with the rest of a batch when one feed fails.
type FailurePolicy string

const (
	ContinueOnError FailurePolicy = "continue"
	AbortOnError    FailurePolicy = "abort"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case ContinueOnError, AbortOnError:
		return FailurePolicy(s), nil
	}
	return "", fmt.Errorf("%w: failure policy must be %q or %q, got %q", model.ErrConfig, ContinueOnError, AbortOnError, s)
}

// ArchiveName is the file name a feed's normalized archive is written
// under.
func ArchiveName(feedID string) string {
	return feedID + ArchiveSuffix
}

// Manager normalizes batches of static feeds into a directory.
type Manager struct {
	Normalizer    *Normalizer
	OutputDir     string
	FailurePolicy FailurePolicy

	// Number of feeds processed concurrently. 1 if < 1.
	Workers int

	// Identifies this run in storage. Random if blank.
	RunID string

	Logger zerolog.Logger
	Now    func() time.Time

	storage storage.Storage
}

// Creates a new Manager recording outcomes in the given storage. The
// output directory and failure policy must be set before use.
func NewManager(n *Normalizer, s storage.Storage) *Manager {
	if s == nil {
		s = storage.NewMemoryStorage()
	}
	return &Manager{
		Normalizer: n,
		Workers:    1,
		RunID:      uuid.New().String(),
		Logger:     zerolog.Nop(),
		Now:        time.Now,
		storage:    s,
	}
}

// BatchReport summarizes a NormalizeAll call. Feeds appear in input
// order.
type BatchReport struct {
	RunID string

	// IDs of feeds written to the output directory.
	Succeeded []string
	Failed    []*FeedError

	// Source IDs of descriptors that weren't processed, either for
	// not being static or because the batch was aborted.
	Skipped []string
}

type outcome struct {
	attempted bool
	err       *FeedError
}

// NormalizeAll normalizes every static descriptor into OutputDir as
// <feedId>.gtfs.zip.
//
// With ContinueOnError, failing feeds are reported and the rest of
// the batch proceeds. With AbortOnError, the first failure cancels
// outstanding work and is returned alongside the report.
func (m *Manager) NormalizeAll(ctx context.Context, descs []*model.FeedDescriptor) (*BatchReport, error) {
	policy, err := ParseFailurePolicy(string(m.FailurePolicy))
	if err != nil {
		return nil, err
	}
	if m.OutputDir == "" {
		return nil, fmt.Errorf("%w: no output directory", model.ErrConfig)
	}
	if m.Normalizer == nil {
		return nil, fmt.Errorf("%w: no normalizer", model.ErrConfig)
	}
	if m.RunID == "" {
		m.RunID = uuid.New().String()
	}

	if err := os.MkdirAll(m.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	workers := m.Workers
	if workers < 1 {
		workers = 1
	}

	log := m.Logger.With().Str("run_id", m.RunID).Logger()
	log.Info().Int("feeds", len(descs)).Int("workers", workers).Str("policy", string(policy)).Msg("normalizing feeds")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	outcomes := make([]outcome, len(descs))
	for i, d := range descs {
		if d.Kind != model.FeedKindStatic {
			log.Debug().Str("source_id", d.SourceID).Str("kind", string(d.Kind)).Msg("skipping non-static feed")
			continue
		}

		if gctx.Err() != nil {
			break
		}

		i, d := i, d
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			outcomes[i].attempted = true
			outcomes[i].err = m.process(gctx, log, d)
			if outcomes[i].err != nil && policy == AbortOnError {
				return outcomes[i].err
			}
			return nil
		})
	}

	waitErr := g.Wait()

	report := &BatchReport{
		RunID:     m.RunID,
		Succeeded: []string{},
		Failed:    []*FeedError{},
		Skipped:   []string{},
	}
	for i, o := range outcomes {
		switch {
		case !o.attempted:
			report.Skipped = append(report.Skipped, descs[i].SourceID)
		case o.err != nil:
			report.Failed = append(report.Failed, o.err)
		default:
			report.Succeeded = append(report.Succeeded, descs[i].FeedID())
		}
	}

	log.Info().
		Int("succeeded", len(report.Succeeded)).
		Int("failed", len(report.Failed)).
		Int("skipped", len(report.Skipped)).
		Msg("done normalizing feeds")

	if waitErr != nil {
		return report, waitErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// Normalizes and writes a single feed, recording the outcome.
func (m *Manager) process(ctx context.Context, log zerolog.Logger, d *model.FeedDescriptor) *FeedError {
	feedID := d.FeedID()
	log = log.With().Str("feed_id", feedID).Str("provider", d.Provider).Logger()

	record := &storage.FeedRecord{
		RunID:    m.RunID,
		FeedID:   feedID,
		SourceID: d.SourceID,
		Provider: d.Provider,
		URL:      d.URL,
	}

	var err error
	if d.URL == "" {
		err = errors.New("no download URL")
	} else {
		var result *NormalizeResult
		result, err = m.Normalizer.NormalizeFeed(ctx, d.URL, d.SourceID)
		if err == nil {
			err = m.writeArchive(feedID, result.Archive)
		}
		if err == nil {
			record.SHA256 = result.SHA256
			record.PublisherName = result.FeedInfo.PublisherName
			record.PublisherURL = result.FeedInfo.PublisherURL
			record.Lang = result.FeedInfo.Lang
			record.DiscardedRows = result.DiscardedRows
			record.Synthesized = result.Synthesized
		}
	}

	record.Status = storage.StatusOK
	if err != nil {
		record.Status = storage.StatusFailed
		record.Error = err.Error()
	}
	record.ProcessedAt = m.Now().UTC()

	if storeErr := m.storage.WriteFeedRecord(record); storeErr != nil {
		err = errors.Join(err, fmt.Errorf("recording outcome: %w", storeErr))
	}

	if err != nil {
		log.Error().Err(err).Str("url", d.URL).Msg("feed failed")
		return &FeedError{
			FeedID:   feedID,
			SourceID: d.SourceID,
			URL:      d.URL,
			Err:      err,
		}
	}

	log.Info().Str("sha256", record.SHA256).Msg("feed normalized")
	return nil
}

// Writes to a temporary file and renames, so a partially written
// archive is never left under its final name.
func (m *Manager) writeArchive(feedID string, data []byte) error {
	f, err := os.CreateTemp(m.OutputDir, "."+feedID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := f.Name()

	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing archive: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(m.OutputDir, ArchiveName(feedID))); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming archive: %w", err)
	}

	return nil
}

// History returns the ledger records of this manager's run.
func (m *Manager) History() ([]*storage.FeedRecord, error) {
	return m.storage.ListFeedRecords(storage.ListFeedRecordsFilter{RunID: m.RunID})
}
