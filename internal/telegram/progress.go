package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/itssu4012650/ur-mwe/internal/messaging"
	"github.com/itssu4012650/ur-mwe/pkg/logger"
	"github.com/itssu4012650/ur-mwe/pkg/worker"
)

// ProgressFunc receives transferred and total bytes. total is zero when unknown.
type ProgressFunc func(current, total int64)

// StatusReporter throttles edits of a status message. Periodic edits run on
// the worker pool so the transfer never waits on Telegram and are dropped
// while the pool is saturated. Forced edits always get queued.
type StatusReporter struct {
	ctx      context.Context
	editor   Editor
	pool     *worker.Pool
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastEdit time.Time
	lastText string
	wg       sync.WaitGroup
}

func NewStatusReporter(ctx context.Context, editor Editor, pool *worker.Pool, interval time.Duration) *StatusReporter {
	return &StatusReporter{
		ctx:      ctx,
		editor:   editor,
		pool:     pool,
		interval: interval,
		now:      time.Now,
	}
}

// Report edits the message with render() when interval elapsed since the
// last edit or force is set. Identical text is never re-sent.
func (r *StatusReporter) Report(force bool, render func() string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !force && !r.lastEdit.IsZero() && now.Sub(r.lastEdit) < r.interval {
		return
	}

	text := render()
	if text == r.lastText {
		return
	}

	if !r.submit(force, text) {
		logger.Debug("Progress edit dropped", "reason", "pool saturated")
		return
	}
	r.lastEdit = now
	r.lastText = text
}

// submit queues the edit. Forced edits wait for room in the queue, periodic
// ones are dropped when it is full. Without a pool the edit runs inline.
func (r *StatusReporter) submit(force bool, text string) bool {
	if r.pool == nil {
		if err := r.editor.Edit(r.ctx, text); err != nil {
			logger.Warn("Progress edit failed", "error", err)
		}
		return true
	}

	job := func() error {
		defer r.wg.Done()
		return r.editor.Edit(r.ctx, text)
	}
	r.wg.Add(1)
	var ok bool
	if force {
		ok = r.pool.Submit(job)
	} else {
		ok = r.pool.TrySubmit(job)
	}
	if !ok {
		r.wg.Done()
	}
	return ok
}

// Stop waits for in-flight edits so a final status cannot be overwritten.
func (r *StatusReporter) Stop() {
	r.wg.Wait()
}

// TransferReporter renders chat transfer progress through a StatusReporter.
type TransferReporter struct {
	status   *StatusReporter
	label    string
	fileName string
	start    time.Time
}

func NewTransferReporter(status *StatusReporter, label, fileName string) *TransferReporter {
	return &TransferReporter{
		status:   status,
		label:    label,
		fileName: fileName,
		start:    status.now(),
	}
}

// Update is a ProgressFunc. The last chunk is always reported.
func (t *TransferReporter) Update(current, total int64) {
	force := total > 0 && current >= total
	t.status.Report(force, func() string {
		return messaging.FormatTransferProgress(messaging.TransferProgress{
			Label:    t.label,
			FileName: t.fileName,
			Current:  current,
			Total:    total,
			Elapsed:  t.status.now().Sub(t.start),
		})
	})
}
