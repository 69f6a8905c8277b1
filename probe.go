package transit

import (
	"context"
	"fmt"
	"time"

	"headway.dev/transit/downloader"
	"headway.dev/transit/model"
	"headway.dev/transit/parse"
)

const (
	DefaultRealtimeTimeout = 30 * time.Second
	DefaultRealtimeMaxSize = 1 << 20 // 1 MB
)

type ProbeResult struct {
	FeedID  string
	Kind    model.FeedKind
	URL     string
	Summary *parse.RealtimeSummary

	// False if the feed has entities, but none of the kind the
	// catalog claims.
	Matches bool
}

// Probe fetches a realtime feed and checks that it carries what the
// catalog says it does. Nothing is written anywhere.
func Probe(
	ctx context.Context,
	d downloader.Downloader,
	desc *model.FeedDescriptor,
	headers map[string]string,
) (*ProbeResult, error) {
	if !desc.Kind.IsRealtime() {
		return nil, fmt.Errorf("%w: source %s is not a realtime feed", model.ErrConfig, desc.SourceID)
	}

	body, err := d.Get(ctx, desc.URL, headers, downloader.GetOptions{
		Timeout: DefaultRealtimeTimeout,
		MaxSize: DefaultRealtimeMaxSize,
	})
	if err != nil {
		return nil, &FeedError{
			FeedID:   desc.FeedID(),
			SourceID: desc.SourceID,
			URL:      desc.URL,
			Err:      fmt.Errorf("downloading: %w", err),
		}
	}

	summary, err := parse.SummarizeRealtime(body)
	if err != nil {
		return nil, &FeedError{
			FeedID:   desc.FeedID(),
			SourceID: desc.SourceID,
			URL:      desc.URL,
			Err:      err,
		}
	}

	var n int
	switch desc.Kind {
	case model.FeedKindRealtimeServiceAlerts:
		n = summary.NumAlerts
	case model.FeedKindRealtimeTripUpdates:
		n = summary.NumTripUpdates
	case model.FeedKindRealtimeVehiclePositions:
		n = summary.NumVehiclePositions
	}

	return &ProbeResult{
		FeedID:  desc.FeedID(),
		Kind:    desc.Kind,
		URL:     desc.URL,
		Summary: summary,
		Matches: n > 0 || summary.NumEntities == 0,
	}, nil
}
