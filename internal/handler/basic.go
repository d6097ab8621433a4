package handler

import (
	"context"

	"github.com/itssu4012650/ur-mwe/internal/messaging"
	"github.com/itssu4012650/ur-mwe/internal/stats"
)

type BasicHandler struct {
	prefix      string
	downloadDir string
}

func NewBasicHandler(prefix, downloadDir string) *BasicHandler {
	return &BasicHandler{prefix: prefix, downloadDir: downloadDir}
}

func (h *BasicHandler) Help(ctx context.Context, cmd *Command) error {
	edit(ctx, cmd, messaging.Help(h.prefix, cmd.Arg))
	return nil
}

func (h *BasicHandler) Stats(ctx context.Context, cmd *Command) error {
	edit(ctx, cmd, messaging.Processing)

	info := stats.GetSystemInfo(h.downloadDir)
	edit(ctx, cmd, messaging.FormatStats(
		info,
		stats.GetSnapshot(stats.KindDownload),
		stats.GetSnapshot(stats.KindUpload),
	))
	return nil
}
