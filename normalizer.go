package transit

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"headway.dev/transit/archive"
	"headway.dev/transit/downloader"
	"headway.dev/transit/model"
	"headway.dev/transit/parse"
)

const (
	DefaultStaticTimeout = 120 * time.Second
	DefaultStaticMaxSize = 800 << 20 // 800 MB

	DefaultStaticMaxUnpackedSize = 8 << 30 // 8 GB
)

// Normalizer fetches static archives and rewrites them for the trip
// planner.
type Normalizer struct {
	Downloader downloader.Downloader
	Timeout    time.Duration
	MaxSize    int

	// Limit on the extracted size of an archive. Unlimited if < 1.
	MaxUnpackedSize int64

	// Sent with every request.
	Headers map[string]string

	// Parent of per-feed working directories. System default if
	// blank.
	TempDir string

	// Mark trips lacking bikes_allowed as allowing bikes.
	AssumeBikesAllowed bool

	Logger zerolog.Logger
}

func NewNormalizer(d downloader.Downloader) *Normalizer {
	if d == nil {
		d = downloader.HTTP{}
	}
	return &Normalizer{
		Downloader:      d,
		Timeout:         DefaultStaticTimeout,
		MaxSize:         DefaultStaticMaxSize,
		MaxUnpackedSize: DefaultStaticMaxUnpackedSize,
		Logger:          zerolog.Nop(),
	}
}

// NormalizeResult describes a normalized archive.
type NormalizeResult struct {
	FeedID   string
	Archive  []byte
	FeedInfo model.FeedInfo

	// Hex encoded SHA-256 of Archive.
	SHA256 string

	// feed_info.txt rows dropped.
	DiscardedRows int

	// True if feed_info.txt had to be made up from scratch.
	Synthesized bool

	// Trips changed by the bikes_allowed rewrite.
	BikesAllowedChanged int
}

// Normalize fetches the archive at sourceURL and returns it with a
// feed_info.txt identifying it as the feed for sourceID.
func (n *Normalizer) Normalize(ctx context.Context, sourceURL string, sourceID string) ([]byte, error) {
	result, err := n.NormalizeFeed(ctx, sourceURL, sourceID)
	if err != nil {
		return nil, err
	}
	return result.Archive, nil
}

// NormalizeFeed is Normalize, but with details on what was done.
//
// Transfer failures and unreadable archives are errors. Problems with
// the contents of feed_info.txt are fixed and logged.
func (n *Normalizer) NormalizeFeed(ctx context.Context, sourceURL string, sourceID string) (*NormalizeResult, error) {
	feedID := model.FeedID(sourceID)
	log := n.Logger.With().Str("feed_id", feedID).Logger()

	log.Debug().Str("url", sourceURL).Msg("downloading")

	body, err := n.Downloader.Get(ctx, sourceURL, n.Headers, downloader.GetOptions{
		Timeout: n.Timeout,
		MaxSize: n.MaxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", sourceURL, err)
	}

	dir, err := os.MkdirTemp(n.TempDir, "transit-"+feedID+"-")
	if err != nil {
		return nil, fmt.Errorf("creating working directory: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := archive.Unpack(body, dir, n.MaxUnpackedSize); err != nil {
		return nil, fmt.Errorf("unpacking: %w", err)
	}

	root := archive.FeedRoot(dir)
	if root != dir {
		rel, _ := filepath.Rel(dir, root)
		log.Warn().Str("subdirectory", rel).Msg("feed files nested in subdirectory")
	}

	fi, err := readFeedInfo(root, log)
	if err != nil {
		return nil, err
	}

	if fi.Synthesized {
		log.Warn().Msg("feed_info.txt missing or empty, synthesizing")
	}
	if fi.Discarded > 0 {
		log.Warn().Int("discarded", fi.Discarded).Msg("feed_info.txt has multiple rows, keeping the first")
	}
	if missing := fi.Missing(); len(missing) > 0 && !fi.Synthesized {
		log.Info().Strs("columns", missing).Msg("filling in blank feed_info.txt values")
	}

	fi.Normalize(feedID)

	if err := writeFile(filepath.Join(root, parse.FeedInfoFile), fi.Write); err != nil {
		return nil, err
	}

	result := &NormalizeResult{
		FeedID:        feedID,
		FeedInfo:      fi.Record(),
		DiscardedRows: fi.Discarded,
		Synthesized:   fi.Synthesized,
	}

	if n.AssumeBikesAllowed {
		changed, err := assumeBikesAllowed(root)
		if err != nil {
			return nil, err
		}
		if changed > 0 {
			log.Debug().Int("trips", changed).Msg("assumed bikes allowed")
		}
		result.BikesAllowedChanged = changed
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Archive, err = archive.Pack(root)
	if err != nil {
		return nil, fmt.Errorf("packing: %w", err)
	}
	result.SHA256 = fmt.Sprintf("%x", sha256.Sum256(result.Archive))

	return result, nil
}

func readFeedInfo(root string, log zerolog.Logger) (*parse.FeedInfo, error) {
	f, err := os.Open(filepath.Join(root, parse.FeedInfoFile))
	if os.IsNotExist(err) {
		return parse.NewFeedInfo(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening feed_info.txt: %w", err)
	}
	defer f.Close()

	fi, err := parse.ReadFeedInfo(f)
	if err != nil {
		// Unreadable feed_info is a data problem, not a
		// transfer problem. Start over with a blank one.
		log.Warn().Err(err).Msg("feed_info.txt unreadable, synthesizing")
		return parse.NewFeedInfo(), nil
	}

	return fi, nil
}

func assumeBikesAllowed(root string) (int, error) {
	path := filepath.Join(root, parse.TripsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading trips.txt: %w", err)
	}

	out := &bytes.Buffer{}
	changed, err := parse.AssumeBikesAllowed(bytes.NewReader(data), out)
	if err != nil {
		return 0, fmt.Errorf("rewriting trips.txt: %w", err)
	}
	if changed == 0 {
		return 0, nil
	}

	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("writing trips.txt: %w", err)
	}
	return changed, nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	buf := &bytes.Buffer{}
	if err := write(buf); err != nil {
		return fmt.Errorf("rendering %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
