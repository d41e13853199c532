package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lepinkainen/iadl/download"
	"github.com/lepinkainen/iadl/types"
)

type archiveServer struct {
	*httptest.Server
	files     map[string][]byte
	bodyBytes atomic.Int64
}

// newArchiveServer serves a listing page at /download/item/ linking every file
// plus any extra hrefs, and the files themselves below it.
func newArchiveServer(t *testing.T, files map[string][]byte, order []string, extraHrefs ...string) *archiveServer {
	t.Helper()
	s := &archiveServer{files: files}

	var rows strings.Builder
	rows.WriteString(`<tr><td><a href="../">Go to parent directory</a></td></tr>`)
	for _, name := range order {
		fmt.Fprintf(&rows, `<tr><td><a href="%s">%s</a></td></tr>`, strings.ReplaceAll(name, " ", "%20"), name)
	}
	for _, href := range extraHrefs {
		fmt.Fprintf(&rows, `<tr><td><a href="%s">extra</a></td></tr>`, href)
	}
	page := `<html><body><table class="directory-listing-table">` + rows.String() + `</table></body></html>`

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/download/item/" {
			_, _ = w.Write([]byte(page))
			return
		}
		data, ok := s.files[strings.TrimPrefix(r.URL.Path, "/download/item/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(&countingWriter{ResponseWriter: w, n: &s.bodyBytes}, r, "", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(s.Close)
	return s
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

func testPayload(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%7)
	}
	return b
}

func TestDownloadCmd_ResumesAndSkips(t *testing.T) {
	dataA := testPayload(300, 'a')
	dataB := testPayload(100, 'k')
	dataD := testPayload(64, 'q')
	srv := newArchiveServer(t,
		map[string][]byte{"A": dataA, "B": dataB, "my file.txt": dataD},
		[]string{"A", "B", "my file.txt"},
		"missing.bin", "subdir/",
	)

	dest := t.TempDir()
	itemDir := filepath.Join(dest, "item")
	if err := os.MkdirAll(itemDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(itemDir, "A"), dataA[:120], 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(itemDir, "B"), dataB, 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := &DownloadCmd{
		URL:       srv.URL + "/download/item/",
		Workers:   2,
		Dest:      dest,
		ChunkSize: 32,
		Interval:  5 * time.Millisecond,
	}
	if err := cmd.Run(&types.AppContext{Version: "test"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for name, want := range map[string][]byte{"A": dataA, "B": dataB, "my file.txt": dataD} {
		got, err := os.ReadFile(filepath.Join(itemDir, name))
		if err != nil {
			t.Errorf("Failed to read %s: %v", name, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s content mismatch: got %d bytes, expected %d", name, len(got), len(want))
		}
	}

	// rest of A plus all of the new file; B is already complete
	if got, want := srv.bodyBytes.Load(), int64(300-120+64); got != want {
		t.Errorf("Expected %d body bytes on the wire, got %d", want, got)
	}

	for _, name := range []string{"missing.bin", "UNNAMED"} {
		if _, err := os.Stat(filepath.Join(itemDir, name)); !os.IsNotExist(err) {
			t.Errorf("Expected no file for failed target %s", name)
		}
	}
}

func TestDownloadCmd_SecondRunIsNoop(t *testing.T) {
	files := map[string][]byte{"one.bin": testPayload(500, 'a'), "two.bin": testPayload(70, 'b')}
	srv := newArchiveServer(t, files, []string{"one.bin", "two.bin"})

	cmd := &DownloadCmd{
		URL:       srv.URL + "/download/item/",
		Workers:   4,
		Dest:      t.TempDir(),
		ChunkSize: 64,
		Interval:  5 * time.Millisecond,
	}
	if err := cmd.Run(nil); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	first := srv.bodyBytes.Load()
	if first != 570 {
		t.Fatalf("Expected 570 bytes on the first run, got %d", first)
	}

	if err := cmd.Run(nil); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if got := srv.bodyBytes.Load(); got != first {
		t.Errorf("Expected no body bytes on the second run, got %d more", got-first)
	}
}

func TestDownloadCmd_UnreachableListingFails(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL + "/download/item/"
	dead.Close()

	cmd := &DownloadCmd{URL: url, Workers: 1, Dest: t.TempDir(), Interval: 5 * time.Millisecond}
	if err := cmd.Run(nil); err == nil {
		t.Error("Expected an error for an unreachable listing")
	}
}

func TestResolveTargets_PageWithoutListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>nothing here</body></html>"))
	}))
	defer srv.Close()

	targets, err := resolveTargets(context.Background(), srv.Client(), srv.URL+"/download/item/")
	if err != nil {
		t.Fatalf("Expected no error for a page without a listing, got %v", err)
	}
	if len(targets) != 0 {
		t.Errorf("Expected no targets, got %+v", targets)
	}
}

func TestDescribeTarget(t *testing.T) {
	destDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(destDir, "partial.bin"), make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(destDir, "folder"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		fileName string
		contains string
	}{
		{"Missing file", "new.bin", "⬜ new.bin"},
		{"Partial file", "partial.bin", "2.0 KiB on disk"},
		{"Directory", "folder", download.DirectoryFallbackName},
	}

	var onDisk int64
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := describeTarget(destDir, download.Target{FileName: tt.fileName}, &onDisk)
			if !strings.Contains(line, tt.contains) {
				t.Errorf("Expected %q in %q", tt.contains, line)
			}
		})
	}

	if onDisk != 2048 {
		t.Errorf("Expected 2048 bytes on disk, got %d", onDisk)
	}
}

func TestListCmd_DoesNotDownload(t *testing.T) {
	srv := newArchiveServer(t, map[string][]byte{"a.bin": testPayload(10, 'a')}, []string{"a.bin"})
	dest := t.TempDir()

	cmd := &ListCmd{URL: srv.URL + "/download/item/", Dest: dest}
	if err := cmd.Run(&types.AppContext{Version: "test"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if srv.bodyBytes.Load() != 0 {
		t.Errorf("Expected no file bodies fetched, got %d bytes", srv.bodyBytes.Load())
	}
	if _, err := os.Stat(filepath.Join(dest, "item", "a.bin")); !os.IsNotExist(err) {
		t.Error("Expected list not to create files")
	}
}
