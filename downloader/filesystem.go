package downloader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Filesystem reads file:// URLs and bare paths from local disk, and
// hands anything else to Fallback. This lets a catalog point at a
// mirrored copy of a feed.
type Filesystem struct {
	// Relative paths are resolved against Root.
	Root string

	// Used for non-local URLs. HTTP if nil.
	Fallback Downloader
}

func NewFilesystem(root string) *Filesystem {
	return &Filesystem{
		Root:     root,
		Fallback: HTTP{},
	}
}

func (f *Filesystem) Get(
	ctx context.Context,
	rawURL string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	path, local := f.localPath(rawURL)
	if !local {
		fallback := f.Fallback
		if fallback == nil {
			fallback = HTTP{}
		}
		return fallback.Get(ctx, rawURL, headers, options)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fh.Close()

	var reader io.Reader = fh
	if options.MaxSize > 0 {
		reader = io.LimitReader(fh, int64(options.MaxSize)+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if options.MaxSize > 0 && len(body) > options.MaxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, options.MaxSize)
	}

	return body, nil
}

func (f *Filesystem) localPath(rawURL string) (string, bool) {
	if strings.HasPrefix(rawURL, "file://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", false
		}
		return filepath.FromSlash(u.Path), true
	}

	if strings.Contains(rawURL, "://") {
		return "", false
	}

	if filepath.IsAbs(rawURL) || f.Root == "" {
		return rawURL, true
	}
	return filepath.Join(f.Root, rawURL), true
}
