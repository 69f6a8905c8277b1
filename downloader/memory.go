package downloader

import (
	"context"
	"fmt"
	"sync"
)

// Serves files from memory. Unknown URLs yield a 404 StatusError.
type Memory struct {
	mutex sync.Mutex
	files map[string][]byte

	// URLs requested, in order.
	Requests []string
}

func NewMemory() *Memory {
	return &Memory{
		files: map[string][]byte{},
	}
}

// Put makes data available at url.
func (d *Memory) Put(url string, data []byte) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.files[url] = data
}

func (d *Memory) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.Requests = append(d.Requests, url)

	data, ok := d.files[url]
	if !ok {
		return nil, &StatusError{URL: url, StatusCode: 404}
	}

	if options.MaxSize > 0 && len(data) > options.MaxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, options.MaxSize)
	}

	return data, nil
}
