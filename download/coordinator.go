package download

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	DefaultMaxConcurrency = 10
	DefaultInterval       = 700 * time.Millisecond
)

// Drawer receives ledger snapshots from the poll loop. The last call of a run
// has final set. Draw must not block for long; its failures are its own.
type Drawer interface {
	Draw(snap Snapshot, final bool)
}

// Options holds configuration for a download run
type Options struct {
	MaxConcurrency int           // simultaneous transfers
	ChunkSize      int           // body read buffer in bytes
	Interval       time.Duration // time between draws
}

// DefaultOptions returns the defaults used by the CLI
func DefaultOptions() *Options {
	return &Options{
		MaxConcurrency: DefaultMaxConcurrency,
		ChunkSize:      DefaultChunkSize,
		Interval:       DefaultInterval,
	}
}

func (o *Options) normalize() {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = DefaultMaxConcurrency
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
}

// Coordinator drives a single run: one worker per target behind a counting
// limiter, plus the poll loop feeding the drawer.
type Coordinator struct {
	opts   Options
	client *http.Client
	ledger *Ledger
	drawer Drawer
	logger *log.Logger
}

// NewCoordinator creates a coordinator with a fresh ledger. drawer and logger may be nil.
func NewCoordinator(client *http.Client, drawer Drawer, opts *Options, logger *log.Logger) *Coordinator {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	o.normalize()

	if client == nil {
		client = NewHTTPClient(o.MaxConcurrency)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Coordinator{
		opts:   o,
		client: client,
		ledger: NewLedger(),
		drawer: drawer,
		logger: logger,
	}
}

// Ledger returns the ledger the run publishes to
func (c *Coordinator) Ledger() *Ledger {
	return c.ledger
}

// Run downloads every target into destDir and returns once each one reached a
// terminal state and the final draw happened. A failing file never stops its siblings.
func (c *Coordinator) Run(ctx context.Context, targets []Target, destDir string) Summary {
	targets = c.uniqueTargets(targets)
	worker := NewWorker(c.client, c.ledger, c.opts.ChunkSize, c.logger)
	limiter := semaphore.NewWeighted(int64(c.opts.MaxConcurrency))

	c.logger.Printf("starting %d downloads into %s (max %d concurrent)", len(targets), destDir, c.opts.MaxConcurrency)

	done := make(chan struct{})
	drawn := make(chan struct{})
	go func() {
		defer close(drawn)
		c.poll(done)
	}()

	results := make([]Result, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target Target) {
			defer wg.Done()
			if err := limiter.Acquire(ctx, 1); err != nil {
				c.ledger.MarkErrored(target.FileName)
				results[i] = Result{
					Target: target,
					State:  StateErrored,
					Err:    fmt.Errorf("%w: %w", ErrDownloadFailed, err),
				}
				return
			}
			defer limiter.Release(1)
			results[i] = worker.Download(ctx, target, destDir)
		}(i, target)
	}

	wg.Wait()
	close(done)
	<-drawn

	return c.summarize(results)
}

// poll draws a snapshot every interval until done closes, then draws once more
func (c *Coordinator) poll(done <-chan struct{}) {
	if c.drawer == nil {
		<-done
		return
	}

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			c.drawer.Draw(c.ledger.Snapshot(), true)
			return
		case <-ticker.C:
			c.drawer.Draw(c.ledger.Snapshot(), false)
		}
	}
}

// uniqueTargets drops repeated file names so each ledger key has one writer
func (c *Coordinator) uniqueTargets(targets []Target) []Target {
	seen := make(map[string]bool, len(targets))
	unique := make([]Target, 0, len(targets))
	for _, t := range targets {
		if seen[t.FileName] {
			c.logger.Printf("[%s] duplicate listing entry %s ignored", t.FileName, t.URL)
			continue
		}
		seen[t.FileName] = true
		unique = append(unique, t)
	}
	return unique
}

func (c *Coordinator) summarize(results []Result) Summary {
	final := c.ledger.Snapshot()
	summary := Summary{
		Total:     len(results),
		Completed: len(final.Completed),
		Errored:   len(final.Errored),
		Results:   results,
		Final:     final,
	}
	for _, r := range results {
		summary.BytesTransferred += r.BytesTransferred
	}
	c.logger.Printf("run finished: %d completed, %d errored, %d bytes transferred",
		summary.Completed, summary.Errored, summary.BytesTransferred)
	return summary
}
