package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultChunkSize is the read buffer used while streaming a body
	DefaultChunkSize = 80 * 1024

	// DirectoryFallbackName is written inside a directory that collides with a target name
	DirectoryFallbackName = "__directory_content__"
)

// Worker performs one file's resumable, streamed transfer
type Worker struct {
	client    *http.Client
	ledger    *Ledger
	chunkSize int
	logger    *log.Logger
}

// NewWorker creates a worker publishing to ledger. A nil logger discards output.
func NewWorker(client *http.Client, ledger *Ledger, chunkSize int, logger *log.Logger) *Worker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Worker{
		client:    client,
		ledger:    ledger,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Download fetches target into destDir. Failures never escape as panics or
// returned errors: they mark the ledger entry errored and land in Result.Err.
func (w *Worker) Download(ctx context.Context, target Target, destDir string) (result Result) {
	name := target.FileName
	result = Result{Target: target, State: StatePending}

	defer func() {
		if result.Err != nil {
			w.ledger.MarkErrored(name)
			result.State = StateErrored
			w.logger.Printf("[%s] failed: %v", name, result.Err)
		}
	}()

	dest, err := destinationPath(destDir, name)
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrIO, err)
		return result
	}
	result.Path = dest

	existing, exists, err := existingSize(dest)
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrIO, err)
		return result
	}

	if exists {
		remote, err := w.remoteSize(ctx, target.URL)
		if err != nil {
			result.Err = fmt.Errorf("%w: %w", ErrMetadata, err)
			return result
		}
		if remote >= 0 && existing == remote {
			w.logger.Printf("[%s] already complete (%d bytes), skipping", name, existing)
			w.ledger.Upsert(name, existing, remote, 100)
			w.ledger.MarkCompleted(name)
			result.State = StateCompleted
			result.Skipped = true
			return result
		}
		w.logger.Printf("[%s] resuming at byte %d of %d", name, existing, remote)
	}

	n, err := w.transfer(ctx, target, dest, existing)
	result.BytesTransferred = n
	if err != nil {
		result.Err = err
		return result
	}

	w.ledger.MarkCompleted(name)
	result.State = StateCompleted
	return result
}

// transfer streams the body of target into dest starting at offset existing
func (w *Worker) transfer(ctx context.Context, target Target, dest string, existing int64) (int64, error) {
	name := target.FileName

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create request: %w", ErrDownloadFailed, err)
	}
	setHeaders(req)
	if existing > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", existing))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: unexpected status %s", ErrDownloadFailed, resp.Status)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if existing > 0 && resp.StatusCode != http.StatusPartialContent {
		// The server sent the whole file, so the partial prefix is rewritten.
		w.logger.Printf("[%s] range ignored by server (status %d), restarting from zero", name, resp.StatusCode)
		existing = 0
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("%w: failed to create directory: %w", ErrIO, err)
	}
	f, err := os.OpenFile(dest, flags, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to open file: %w", ErrIO, err)
	}

	var total int64
	if resp.ContentLength >= 0 {
		total = existing + resp.ContentLength
	}
	w.publish(name, existing, total)

	buf := make([]byte, w.chunkSize)
	var written int64
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				_ = f.Close()
				return written, fmt.Errorf("%w: %w", ErrIO, err)
			}
			written += int64(n)
			w.publish(name, existing+written, total)
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			_ = f.Close()
			return written, fmt.Errorf("%w: stream interrupted: %w", ErrDownloadFailed, readErr)
		}
	}

	if err := f.Close(); err != nil {
		return written, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return written, nil
}

// publish pushes the current byte counts to the ledger
func (w *Worker) publish(name string, downloaded, total int64) {
	percentage := IndeterminatePercent
	if total > 0 {
		percentage = float64(downloaded) * 100 / float64(total)
	}
	w.ledger.Upsert(name, downloaded, total, percentage)
}

// remoteSize issues a HEAD request and returns the Content-Length, -1 if unknown
func (w *Worker) remoteSize(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req)

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.ContentLength, nil
}

// destinationPath joins name under destDir, keeping the result inside destDir.
// A directory already sitting at the path is redirected to DirectoryFallbackName.
func destinationPath(destDir, name string) (string, error) {
	dest := filepath.Join(destDir, name)
	rel, err := filepath.Rel(destDir, dest)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		dest = filepath.Join(destDir, filepath.Base(filepath.Clean("/"+name)))
	}

	fi, err := os.Stat(dest)
	if err == nil && fi.IsDir() {
		return filepath.Join(dest, DirectoryFallbackName), nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	return dest, nil
}

// existingSize returns the size of path and whether a file is there
func existingSize(path string) (int64, bool, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if fi.IsDir() {
		return 0, false, fmt.Errorf("%s is a directory", path)
	}
	return fi.Size(), true, nil
}
