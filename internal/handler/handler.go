package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gotd/td/tg"

	"github.com/itssu4012650/ur-mwe/internal/media"
	"github.com/itssu4012650/ur-mwe/internal/telegram"
	"github.com/itssu4012650/ur-mwe/pkg/logger"
	"github.com/itssu4012650/ur-mwe/pkg/worker"
)

var (
	ErrNotPermitted = errors.New("operation not permitted")
	ErrNotFound     = errors.New("path not found")
	ErrBadFileName  = errors.New("incorrect file name")
)

const DefaultPollInterval = time.Second

// Command is one parsed command message. Handlers report back by editing
// the command message itself.
type Command struct {
	ID     string
	Msg    *tg.Message
	Peer   tg.InputPeerClass
	Name   string
	Arg    string
	Editor telegram.Editor
}

func (c *Command) ReplyToID() int {
	return telegram.ReplyToID(c.Msg)
}

// MsgID is the ID of the command message, zero when unknown.
func (c *Command) MsgID() int {
	if c.Msg == nil {
		return 0
	}
	return c.Msg.ID
}

// Transport moves files between the server and chats.
type Transport interface {
	RepliedMessage(ctx context.Context, peer tg.InputPeerClass, msg *tg.Message) (*tg.Message, error)
	DownloadMedia(ctx context.Context, file *telegram.MediaFile, dest string, progress telegram.ProgressFunc) error
	SendFile(ctx context.Context, peer tg.InputPeerClass, replyTo int, file telegram.OutgoingFile, progress telegram.ProgressFunc) error
}

type Prober interface {
	Probe(ctx context.Context, file string) (media.Metadata, error)
}

type Options struct {
	DownloadDir      string
	ProgressInterval time.Duration
	// PollInterval is how often a URL download is sampled.
	PollInterval time.Duration
	// HTTPThreads is the number of connections per URL download.
	HTTPThreads int
	// Protected files are never uploaded, matched by base name or path.
	Protected []string
	// ProtectedDirs are directories whose files are never uploaded.
	ProtectedDirs []string
	// Pool runs progress edits. The caller owns it; without one edits run
	// inline on the transfer goroutine.
	Pool *worker.Pool
	// DiskFree reports free bytes on the filesystem holding a path.
	DiskFree func(path string) (uint64, error)
}

func (o *Options) normalize() {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = 10 * time.Second
	}
}

func edit(ctx context.Context, cmd *Command, text string) {
	if err := cmd.Editor.Edit(ctx, text); err != nil {
		logger.Error("Failed to edit message", "command", cmd.Name, "msg_id", cmd.MsgID(), "error", err)
	}
}

func newReporter(ctx context.Context, cmd *Command, opts Options) *telegram.StatusReporter {
	return telegram.NewStatusReporter(ctx, cmd.Editor, opts.Pool, opts.ProgressInterval)
}
