package transit_test

// Helpers for tests in this package.

import (
	"net/http"
	"net/http/httptest"
	"sync"
)

// Serves feeds by path, and remembers what was asked for.
type MockFeedServer struct {
	Feeds    map[string][]byte
	Headers  map[string]http.Header
	Requests []string
	Server   *httptest.Server

	mutex sync.Mutex
}

func (m *MockFeedServer) handler(w http.ResponseWriter, r *http.Request) {
	m.mutex.Lock()
	m.Requests = append(m.Requests, r.URL.Path)
	m.Headers[r.URL.Path] = r.Header.Clone()
	feed, found := m.Feeds[r.URL.Path]
	m.mutex.Unlock()

	if found {
		w.Write(feed)
	} else {
		w.WriteHeader(http.StatusNotFound)
	}
}

func feedServer() *MockFeedServer {
	m := &MockFeedServer{
		Feeds:    map[string][]byte{},
		Headers:  map[string]http.Header{},
		Requests: []string{},
	}

	m.Server = httptest.NewServer(http.HandlerFunc(m.handler))

	return m
}

func (m *MockFeedServer) URL(path string) string {
	return m.Server.URL + path
}
