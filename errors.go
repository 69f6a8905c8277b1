package transit

import (
	"fmt"
)

// FeedError is a failure to fetch or normalize one feed. It is fatal
// for that feed only.
type FeedError struct {
	FeedID   string
	SourceID string
	URL      string
	Err      error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s (%s): %v", e.FeedID, e.URL, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}
