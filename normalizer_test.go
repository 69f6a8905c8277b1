package transit_test

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headway.dev/transit"
	"headway.dev/transit/archive"
	"headway.dev/transit/downloader"
	"headway.dev/transit/model"
	"headway.dev/transit/testutil"
)

func emptyDir(t *testing.T, dir string) {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, len(entries), "working directory left behind")
}

func TestNormalize(t *testing.T) {
	server := feedServer()
	defer server.Server.Close()

	files := testutil.FeedFiles([]string{
		"feed_publisher_name,feed_publisher_url,feed_lang,feed_version",
		"First,https://first,fr,1",
		"Second,https://second,de,2",
	})
	server.Feeds["/static.zip"] = testutil.BuildZip(t, files)

	tmp := t.TempDir()
	n := transit.NewNormalizer(nil)
	n.TempDir = tmp

	result, err := n.NormalizeFeed(context.Background(), server.URL("/static.zip"), "42")
	require.NoError(t, err)

	assert.Equal(t, "headway-42", result.FeedID)
	assert.Equal(t, 1, result.DiscardedRows)
	assert.False(t, result.Synthesized)
	assert.Equal(t, model.FeedInfo{
		ID:            "headway-42",
		PublisherName: "First",
		PublisherURL:  "https://first",
		Lang:          "fr",
		Version:       "1",
	}, result.FeedInfo)
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256(result.Archive)), result.SHA256)

	contents := testutil.ReadZip(t, result.Archive)
	assert.Equal(t, "feed_id,feed_publisher_name,feed_publisher_url,feed_lang,feed_version\nheadway-42,First,https://first,fr,1\n", contents["feed_info.txt"])

	// Everything else passes through untouched
	for name, lines := range files {
		if name == "feed_info.txt" {
			continue
		}
		expected := ""
		for i, line := range lines {
			if i > 0 {
				expected += "\n"
			}
			expected += line
		}
		assert.Equal(t, expected, contents[name], name)
	}
	assert.Equal(t, len(files), len(contents))

	emptyDir(t, tmp)

	// Plain Normalize returns the same bytes
	buf, err := n.Normalize(context.Background(), server.URL("/static.zip"), "42")
	require.NoError(t, err)
	assert.Equal(t, result.Archive, buf)
}

func TestNormalizeSynthesizesFeedInfo(t *testing.T) {
	server := feedServer()
	defer server.Server.Close()

	server.Feeds["/missing.zip"] = testutil.BuildZip(t, testutil.FeedFiles(nil))
	server.Feeds["/empty.zip"] = testutil.BuildZip(t, testutil.FeedFiles([]string{}))
	server.Feeds["/header_only.zip"] = testutil.BuildZip(t, testutil.FeedFiles([]string{"feed_publisher_name,feed_lang"}))

	n := transit.NewNormalizer(nil)

	for _, path := range []string{"/missing.zip", "/empty.zip", "/header_only.zip"} {
		t.Run(path, func(t *testing.T) {
			result, err := n.NormalizeFeed(context.Background(), server.URL(path), "7")
			require.NoError(t, err)
			assert.True(t, result.Synthesized)
			assert.Equal(t, 0, result.DiscardedRows)
			assert.Equal(t, "headway-7", result.FeedInfo.ID)
			assert.Equal(t, "Feed Publisher: headway-7", result.FeedInfo.PublisherName)
			assert.Equal(t, "https://0.0.0.0/missing/feed_publisher_url/feed-id/headway-7", result.FeedInfo.PublisherURL)
			assert.Equal(t, "en", result.FeedInfo.Lang)

			contents := testutil.ReadZip(t, result.Archive)
			assert.Contains(t, contents, "feed_info.txt")
			assert.Contains(t, contents, "stop_times.txt")
		})
	}
}

func TestNormalizeNestedArchive(t *testing.T) {
	server := feedServer()
	defer server.Server.Close()

	files := map[string][]string{}
	for name, content := range testutil.FeedFiles([]string{"feed_id", "x"}) {
		files["google_transit/"+name] = content
	}
	server.Feeds["/nested.zip"] = testutil.BuildZip(t, files)

	result, err := transit.NewNormalizer(nil).NormalizeFeed(context.Background(), server.URL("/nested.zip"), "3")
	require.NoError(t, err)

	contents := testutil.ReadZip(t, result.Archive)
	assert.Contains(t, contents, "agency.txt")
	assert.Contains(t, contents, "feed_info.txt")
	assert.NotContains(t, contents, "google_transit/agency.txt")
	assert.Equal(t, "headway-3", result.FeedInfo.ID)
}

func TestNormalizeAssumeBikesAllowed(t *testing.T) {
	server := feedServer()
	defer server.Server.Close()

	files := testutil.FeedFiles(nil)
	files["trips.txt"] = []string{
		"route_id,service_id,trip_id,bikes_allowed",
		"r,mondays,t1,",
		"r,mondays,t2,2",
	}
	server.Feeds["/static.zip"] = testutil.BuildZip(t, files)

	n := transit.NewNormalizer(nil)
	result, err := n.NormalizeFeed(context.Background(), server.URL("/static.zip"), "1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.BikesAllowedChanged)
	assert.Equal(t, "route_id,service_id,trip_id,bikes_allowed\nr,mondays,t1,\nr,mondays,t2,2", testutil.ReadZip(t, result.Archive)["trips.txt"])

	n.AssumeBikesAllowed = true
	result, err = n.NormalizeFeed(context.Background(), server.URL("/static.zip"), "1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.BikesAllowedChanged)
	assert.Equal(t, "route_id,service_id,trip_id,bikes_allowed\nr,mondays,t1,1\nr,mondays,t2,2\n", testutil.ReadZip(t, result.Archive)["trips.txt"])
}

func TestNormalizeFailures(t *testing.T) {
	server := feedServer()
	defer server.Server.Close()

	server.Feeds["/not_a_zip.zip"] = []byte("<html>Service Unavailable</html>")
	server.Feeds["/static.zip"] = testutil.BuildZip(t, testutil.FeedFiles(nil))

	tmp := t.TempDir()
	n := transit.NewNormalizer(nil)
	n.TempDir = tmp

	// 404
	_, err := n.Normalize(context.Background(), server.URL("/nope.zip"), "1")
	var statusErr *downloader.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 404, statusErr.StatusCode)

	// Garbage
	_, err = n.Normalize(context.Background(), server.URL("/not_a_zip.zip"), "1")
	assert.True(t, errors.Is(err, archive.ErrCorrupt))

	// Too large
	n.MaxSize = 10
	_, err = n.Normalize(context.Background(), server.URL("/static.zip"), "1")
	assert.True(t, errors.Is(err, downloader.ErrTooLarge))
	n.MaxSize = transit.DefaultStaticMaxSize

	// Expands too much
	n.MaxUnpackedSize = 64
	_, err = n.Normalize(context.Background(), server.URL("/static.zip"), "1")
	assert.True(t, errors.Is(err, archive.ErrCorrupt), "%v", err)
	n.MaxUnpackedSize = transit.DefaultStaticMaxUnpackedSize

	// Cancelled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = n.Normalize(ctx, server.URL("/static.zip"), "1")
	assert.True(t, errors.Is(err, context.Canceled))

	emptyDir(t, tmp)
}

func TestNormalizeSendsHeaders(t *testing.T) {
	server := feedServer()
	defer server.Server.Close()

	server.Feeds["/static.zip"] = testutil.BuildZip(t, testutil.FeedFiles(nil))

	n := transit.NewNormalizer(downloader.HTTP{})
	n.Headers = map[string]string{"Authorization": "Bearer abc"}

	_, err := n.Normalize(context.Background(), server.URL("/static.zip"), "1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", server.Headers["/static.zip"].Get("Authorization"))
}
