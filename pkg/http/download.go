// Package http downloads a URL to a local file, splitting the transfer into
// concurrent byte-range requests when the server allows it, and exposes the
// progress figures a status message needs (percentage, speed, ETA).
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/itssu4012650/ur-mwe/pkg/logger"
)

type Status string

const (
	StatusReady       Status = "ready"
	StatusDownloading Status = "downloading"
	StatusFinished    Status = "finished"
	StatusFailed      Status = "failed"
)

const (
	DefaultThreads      = 4
	DefaultMinSplitSize = 4 * 1024 * 1024

	speedWindow = 10
	sampleEvery = 500 * time.Millisecond
)

var ErrBadStatus = errors.New("unexpected http status")

// errRangeIgnored means a ranged GET was answered with the whole body.
var errRangeIgnored = errors.New("server ignored range request")

type Options struct {
	// Threads is the number of concurrent range requests.
	Threads int
	// MinSplitSize is the smallest file that is split into ranges.
	MinSplitSize int64
	Client       *http.Client
	Headers      map[string]string
}

type sample struct {
	at    time.Time
	bytes int64
}

type Download struct {
	ID   string
	URL  string
	Dest string

	opts Options

	mu        sync.Mutex
	status    Status
	size      int64
	rangeable bool
	err       error
	started   time.Time
	finished  time.Time
	samples   []sample

	downloaded atomic.Int64
	done       chan struct{}
}

func New(url, dest string, opts Options) *Download {
	if opts.Threads <= 0 {
		opts.Threads = DefaultThreads
	}
	if opts.MinSplitSize <= 0 {
		opts.MinSplitSize = DefaultMinSplitSize
	}
	return &Download{
		ID:     uuid.NewString(),
		URL:    url,
		Dest:   dest,
		opts:   opts,
		status: StatusReady,
		size:   -1,
		done:   make(chan struct{}),
	}
}

func (d *Download) client() *http.Client {
	if d.opts.Client != nil {
		return d.opts.Client
	}
	return DownloadClient()
}

// Start runs the download in the background. Calling it twice is a no-op.
func (d *Download) Start(ctx context.Context) {
	d.mu.Lock()
	if d.status != StatusReady {
		d.mu.Unlock()
		return
	}
	d.status = StatusDownloading
	d.started = time.Now()
	d.samples = append(d.samples[:0], sample{at: d.started})
	d.mu.Unlock()

	go d.sampleSpeed(ctx)
	go func() {
		err := d.run(ctx)
		d.finish(err)
	}()
}

// Wait blocks until the download ends and returns its error.
func (d *Download) Wait() error {
	<-d.done
	return d.Err()
}

// Done is closed when the download has finished or failed.
func (d *Download) Done() <-chan struct{} {
	return d.done
}

func (d *Download) run(ctx context.Context) error {
	start := time.Now()
	log := logger.With("id", d.ID, "url", d.URL)
	log.Info("Starting download", "dest", d.Dest)

	if err := d.probe(ctx); err != nil {
		return err
	}

	f, err := os.OpenFile(d.Dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open destination failed: %w", err)
	}

	size, rangeable := d.Size(), d.isRangeable()
	if rangeable && size >= d.opts.MinSplitSize && d.opts.Threads > 1 {
		err = d.fetchSplit(ctx, f, size)
		if errors.Is(err, errRangeIgnored) {
			log.Warn("Server ignored byte ranges, downloading in one piece")
			err = d.refetchWhole(ctx, f)
		}
	} else {
		err = d.fetchWhole(ctx, f)
	}

	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close destination failed: %w", closeErr)
	}
	if err != nil {
		if rmErr := os.Remove(d.Dest); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warn("Failed to remove partial file", "error", rmErr)
		}
		return err
	}

	logger.InfoWithDuration("Download completed", start, "id", d.ID, "bytes", d.Downloaded())
	return nil
}

func (d *Download) fetchSplit(ctx context.Context, f *os.File, size int64) error {
	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("preallocate failed: %w", err)
	}

	ranges := splitRanges(size, d.opts.Threads)
	logger.Debug("Splitting download", "id", d.ID, "parts", len(ranges), "size", size)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(d.opts.Threads)
	for _, r := range ranges {
		eg.Go(func() error {
			return d.fetchRange(gctx, f, r[0], r[1])
		})
	}
	return eg.Wait()
}

// refetchWhole drops whatever the split attempt wrote and streams the body
// from the start.
func (d *Download) refetchWhole(ctx context.Context, f *os.File) error {
	d.setInfo(d.Size(), false)
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate failed: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek failed: %w", err)
	}
	d.downloaded.Store(0)
	return d.fetchWhole(ctx, f)
}

func (d *Download) finish(err error) {
	d.mu.Lock()
	d.finished = time.Now()
	if err != nil {
		d.status = StatusFailed
		d.err = err
		logger.Error("Download failed", "id", d.ID, "url", d.URL, "error", err)
	} else {
		d.status = StatusFinished
		if d.size <= 0 {
			d.size = d.downloaded.Load()
		}
	}
	d.mu.Unlock()
	close(d.done)
}

func (d *Download) sampleSpeed(ctx context.Context) {
	ticker := time.NewTicker(sampleEvery)
	defer ticker.Stop()
	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.mu.Lock()
			d.samples = append(d.samples, sample{at: now, bytes: d.downloaded.Load()})
			if len(d.samples) > speedWindow {
				d.samples = d.samples[len(d.samples)-speedWindow:]
			}
			d.mu.Unlock()
		}
	}
}

func (d *Download) setInfo(size int64, rangeable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if size > 0 {
		d.size = size
	}
	d.rangeable = rangeable
}

func (d *Download) isRangeable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rangeable
}

func (d *Download) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Size is the content length in bytes, or -1 while unknown.
func (d *Download) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

func (d *Download) Downloaded() int64 {
	return d.downloaded.Load()
}

// Progress returns the completed fraction in [0, 1].
func (d *Download) Progress() float64 {
	if d.IsSuccessful() {
		return 1
	}
	size := d.Size()
	if size <= 0 {
		return 0
	}
	p := float64(d.Downloaded()) / float64(size)
	if p > 1 {
		p = 1
	}
	return p
}

// Speed is bytes per second over the recent sampling window, falling back to
// the average since start.
func (d *Download) Speed() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.status != StatusDownloading {
		return 0
	}
	if len(d.samples) >= 2 {
		first, last := d.samples[0], d.samples[len(d.samples)-1]
		if elapsed := last.at.Sub(first.at).Seconds(); elapsed > 0 {
			return float64(last.bytes-first.bytes) / elapsed
		}
	}
	if elapsed := time.Since(d.started).Seconds(); elapsed > 0 {
		return float64(d.downloaded.Load()) / elapsed
	}
	return 0
}

// ETA estimates the remaining time; it is zero when speed or size is unknown.
func (d *Download) ETA() time.Duration {
	size := d.Size()
	speed := d.Speed()
	if size <= 0 || speed <= 0 {
		return 0
	}
	remaining := size - d.Downloaded()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / speed * float64(time.Second))
}

// Elapsed is the time since Start, frozen once the download ends.
func (d *Download) Elapsed() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started.IsZero() {
		return 0
	}
	if !d.finished.IsZero() {
		return d.finished.Sub(d.started)
	}
	return time.Since(d.started)
}

func (d *Download) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *Download) IsFinished() bool {
	s := d.Status()
	return s == StatusFinished || s == StatusFailed
}

func (d *Download) IsSuccessful() bool {
	return d.Status() == StatusFinished
}
