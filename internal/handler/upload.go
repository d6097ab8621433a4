package handler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/itssu4012650/ur-mwe/internal/media"
	"github.com/itssu4012650/ur-mwe/internal/messaging"
	"github.com/itssu4012650/ur-mwe/internal/stats"
	"github.com/itssu4012650/ur-mwe/internal/telegram"
	"github.com/itssu4012650/ur-mwe/pkg/logger"
)

// ThumbName is the per-directory thumbnail used for uploaded videos.
const ThumbName = "thumb.jpg"

type UploadHandler struct {
	transport Transport
	prober    Prober
	opts      Options
}

func NewUploadHandler(t Transport, prober Prober, opts Options) *UploadHandler {
	opts.normalize()
	return &UploadHandler{
		transport: t,
		prober:    prober,
		opts:      opts,
	}
}

// UploadDir sends every regular file under the directory in cmd.Arg to the
// chat and removes each one once it is sent.
func (h *UploadHandler) UploadDir(ctx context.Context, cmd *Command) error {
	dir := cmd.Arg
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		edit(ctx, cmd, messaging.DirectoryNotFound)
		return fmt.Errorf("%w: %s", ErrNotFound, dir)
	}

	edit(ctx, cmd, messaging.Processing)

	thumb := filepath.Join(dir, ThumbName)
	hasThumb := fileExists(thumb)

	all, err := collectFiles(dir)
	if err != nil {
		edit(ctx, cmd, messaging.Error(err))
		return fmt.Errorf("walk %s failed: %w", dir, err)
	}

	files := make([]string, 0, len(all))
	for _, path := range all {
		if hasThumb && path == thumb {
			continue
		}
		if isProtected(path, h.opts.Protected, h.opts.ProtectedDirs) {
			logger.Warn("Skipping protected file", "task", cmd.ID, "file", path)
			continue
		}
		files = append(files, path)
	}
	logger.Info("Files queued for upload", "task", cmd.ID, "dir", dir, "files", files)

	edit(ctx, cmd, messaging.FoundFiles(len(files)))

	uploaded := 0
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			continue
		}

		out := telegram.OutgoingFile{
			Path:    path,
			Caption: filepath.Base(path),
		}
		if media.IsVideo(path) {
			meta, err := h.prober.Probe(ctx, path)
			if err != nil {
				logger.Warn("Video probe failed, sending without metadata", "file", path, "error", err)
			}
			out.Video = &meta
			if hasThumb {
				out.Thumb = thumb
			}
		}

		if err := h.send(ctx, cmd, out); err != nil {
			edit(ctx, cmd, messaging.Error(err))
			return err
		}
		if err := os.Remove(path); err != nil {
			logger.Warn("Failed to remove uploaded file", "file", path, "error", err)
		}
		uploaded++
	}

	edit(ctx, cmd, messaging.UploadedFiles(uploaded))
	return nil
}

// Upload sends the file in cmd.Arg to the chat as a document.
func (h *UploadHandler) Upload(ctx context.Context, cmd *Command) error {
	edit(ctx, cmd, messaging.Processing)

	path := cmd.Arg
	if isProtected(path, h.opts.Protected, h.opts.ProtectedDirs) {
		logger.Warn("Refused to upload protected file", "task", cmd.ID, "file", path)
		edit(ctx, cmd, messaging.NotPermitted)
		return fmt.Errorf("%w: %s", ErrNotPermitted, path)
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		edit(ctx, cmd, messaging.FileNotFound)
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	err = h.send(ctx, cmd, telegram.OutgoingFile{
		Path:          path,
		ForceDocument: true,
	})
	if err != nil {
		edit(ctx, cmd, messaging.Error(err))
		return err
	}

	edit(ctx, cmd, messaging.UploadedSuccess)
	return nil
}

func (h *UploadHandler) send(ctx context.Context, cmd *Command, out telegram.OutgoingFile) error {
	var size int64
	if info, err := os.Stat(out.Path); err == nil {
		size = info.Size()
	}

	reporter := newReporter(ctx, cmd, h.opts)
	progress := telegram.NewTransferReporter(reporter, "[UPLOAD]", filepath.Base(out.Path))

	start := time.Now()
	err := h.transport.SendFile(ctx, cmd.Peer, cmd.MsgID(), out, progress.Update)
	reporter.Stop()

	stats.RecordTransfer(stats.KindUpload, size, time.Since(start), err)
	if err != nil {
		return err
	}

	logger.InfoWithDuration("File uploaded", start, "task", cmd.ID, "file", out.Path, "size", size)
	return nil
}
