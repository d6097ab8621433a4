package handler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/itssu4012650/ur-mwe/internal/messaging"
	"github.com/itssu4012650/ur-mwe/internal/stats"
	"github.com/itssu4012650/ur-mwe/internal/telegram"
	pkghttp "github.com/itssu4012650/ur-mwe/pkg/http"
	"github.com/itssu4012650/ur-mwe/pkg/logger"
)

type DownloadHandler struct {
	transport Transport
	opts      Options
}

func NewDownloadHandler(t Transport, opts Options) *DownloadHandler {
	opts.normalize()
	return &DownloadHandler{
		transport: t,
		opts:      opts,
	}
}

// Handle downloads "url | name" into the download directory, or the media
// of the replied message when there is no pipe in the argument.
func (h *DownloadHandler) Handle(ctx context.Context, cmd *Command) error {
	edit(ctx, cmd, messaging.Processing)

	if err := os.MkdirAll(h.opts.DownloadDir, 0o755); err != nil {
		edit(ctx, cmd, messaging.Error(err))
		return fmt.Errorf("create download dir failed: %w", err)
	}

	switch {
	case strings.Contains(cmd.Arg, "|"):
		return h.fromURL(ctx, cmd)
	case cmd.ReplyToID() != 0:
		return h.fromReply(ctx, cmd)
	default:
		edit(ctx, cmd, messaging.ReplyToDownload)
		return nil
	}
}

func (h *DownloadHandler) fromURL(ctx context.Context, cmd *Command) error {
	rawURL, name := splitURLArg(cmd.Arg)

	target, err := resolveTarget(h.opts.DownloadDir, name)
	if err != nil {
		edit(ctx, cmd, messaging.IncorrectFileName)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		edit(ctx, cmd, messaging.Error(err))
		return fmt.Errorf("create target dir failed: %w", err)
	}

	dlCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	d := pkghttp.New(rawURL, target, pkghttp.Options{Threads: h.opts.HTTPThreads})
	log := logger.With("task", cmd.ID, "download", d.ID)
	log.Info("Starting URL download", "url", rawURL, "target", target)
	d.Start(dlCtx)

	reporter := newReporter(ctx, cmd, h.opts)
	ticker := time.NewTicker(h.opts.PollInterval)
	defer ticker.Stop()

	noSpace := false
poll:
	for {
		select {
		case <-d.Done():
			break poll
		case <-ticker.C:
			if !noSpace && !h.hasRoom(d.Size(), d.Downloaded()) {
				log.Warn("Not enough disk space, canceling download", "size", d.Size())
				noSpace = true
				cancel()
				continue
			}
			reporter.Report(false, func() string {
				return messaging.FormatDownloadStatus(messaging.DownloadStatus{
					Name:       name,
					Status:     string(d.Status()),
					Percent:    d.Progress() * 100,
					Downloaded: d.Downloaded(),
					Total:      d.Size(),
					Speed:      d.Speed(),
					ETA:        d.ETA(),
				})
			})
		}
	}
	reporter.Stop()

	stats.RecordTransfer(stats.KindDownload, d.Downloaded(), d.Elapsed(), d.Err())

	switch {
	case d.IsSuccessful():
		log.Info("URL download finished", "size", d.Size(), "elapsed", d.Elapsed())
		edit(ctx, cmd, messaging.DownloadedTo(target))
		return nil
	case noSpace:
		edit(ctx, cmd, messaging.NotEnoughDiskSpace)
		return fmt.Errorf("download %s: not enough disk space", rawURL)
	default:
		log.Warn("URL download failed", "url", rawURL, "error", d.Err())
		edit(ctx, cmd, messaging.IncorrectURL(rawURL))
		return d.Err()
	}
}

func (h *DownloadHandler) fromReply(ctx context.Context, cmd *Command) error {
	replied, err := h.transport.RepliedMessage(ctx, cmd.Peer, cmd.Msg)
	if err != nil {
		edit(ctx, cmd, messaging.Error(err))
		return err
	}

	file, err := telegram.MediaFromMessage(replied)
	if errors.Is(err, telegram.ErrNoMedia) {
		edit(ctx, cmd, messaging.NoMediaInReply)
		return nil
	}
	if err != nil {
		edit(ctx, cmd, messaging.Error(err))
		return err
	}

	if !h.hasRoom(file.Size, 0) {
		edit(ctx, cmd, messaging.NotEnoughDiskSpace)
		return fmt.Errorf("download %s: not enough disk space", file.Name)
	}

	dest := uniquePath(filepath.Join(h.opts.DownloadDir, safeBaseName(file.Name)))

	reporter := newReporter(ctx, cmd, h.opts)
	progress := telegram.NewTransferReporter(reporter, "[DOWNLOAD]", filepath.Base(dest))

	start := time.Now()
	err = h.transport.DownloadMedia(ctx, file, dest, progress.Update)
	reporter.Stop()

	stats.RecordTransfer(stats.KindDownload, file.Size, time.Since(start), err)

	if err != nil {
		edit(ctx, cmd, messaging.Error(err))
		return err
	}

	logger.Info("Media downloaded", "task", cmd.ID, "file", dest, "size", file.Size)
	edit(ctx, cmd, messaging.DownloadedTo(dest))
	return nil
}

// hasRoom reports whether the rest of a size byte transfer fits on disk.
// Unknown sizes and failed probes are treated as fitting.
func (h *DownloadHandler) hasRoom(size, downloaded int64) bool {
	if size <= 0 || h.opts.DiskFree == nil {
		return true
	}
	free, err := h.opts.DiskFree(h.opts.DownloadDir)
	if err != nil {
		return true
	}
	return free+uint64(max(downloaded, 0)) >= uint64(size)
}
