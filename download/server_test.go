package download

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fileServer serves in-memory files with Range and HEAD support and records
// what went over the wire.
type fileServer struct {
	files map[string][]byte
	delay time.Duration

	bodyBytes atomic.Int64
	gets      atomic.Int64
	heads     atomic.Int64
	active    atomic.Int64
	maxActive atomic.Int64

	mu     sync.Mutex
	ranges []string
}

func newFileServer(t *testing.T, files map[string][]byte) (*fileServer, *httptest.Server) {
	t.Helper()
	fs := &fileServer{files: files}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)
	return fs, srv
}

func (s *fileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")
	data, ok := s.files[name]
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodHead:
		s.heads.Add(1)
	case http.MethodGet:
		s.gets.Add(1)
		if rng := r.Header.Get("Range"); rng != "" {
			s.mu.Lock()
			s.ranges = append(s.ranges, rng)
			s.mu.Unlock()
		}

		n := s.active.Add(1)
		defer s.active.Add(-1)
		for {
			m := s.maxActive.Load()
			if n <= m || s.maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(s.delay)
	}

	http.ServeContent(&countingWriter{ResponseWriter: w, n: &s.bodyBytes}, r, name, time.Time{}, bytes.NewReader(data))
}

func (s *fileServer) rangeHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ranges...)
}

type countingWriter struct {
	http.ResponseWriter
	n *atomic.Int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.ResponseWriter.Write(p)
	c.n.Add(int64(n))
	return n, err
}

// recordingDrawer keeps every snapshot it is handed
type recordingDrawer struct {
	mu     sync.Mutex
	draws  []Snapshot
	finals []bool
}

func (d *recordingDrawer) Draw(snap Snapshot, final bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draws = append(d.draws, snap)
	d.finals = append(d.finals, final)
}

func (d *recordingDrawer) calls() ([]Snapshot, []bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Snapshot(nil), d.draws...), append([]bool(nil), d.finals...)
}

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}
