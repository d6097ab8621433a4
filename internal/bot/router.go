package bot

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/gotd/td/tg"

	"github.com/itssu4012650/ur-mwe/internal/handler"
	"github.com/itssu4012650/ur-mwe/internal/telegram"
	"github.com/itssu4012650/ur-mwe/pkg/logger"
)

type HandlerFunc func(ctx context.Context, cmd *handler.Command) error

// EditorFunc returns an editor for a message in peer.
type EditorFunc func(peer tg.InputPeerClass, msgID int) telegram.Editor

type route struct {
	handle   HandlerFunc
	needsArg bool
}

type Router struct {
	prefix   string
	selfID   func() int64
	resolver telegram.PeerResolver
	editors  EditorFunc
	routes   map[string]route
}

// NewRouter builds a router. resolver is consulted for peers the update
// carried no entities for and may be nil.
func NewRouter(prefix string, selfID func() int64, resolver telegram.PeerResolver, editors EditorFunc) *Router {
	return &Router{
		prefix:   prefix,
		selfID:   selfID,
		resolver: resolver,
		editors:  editors,
		routes:   make(map[string]route),
	}
}

// Handle registers a command. Commands with needsArg are ignored when sent
// without an argument.
func (r *Router) Handle(name string, needsArg bool, h HandlerFunc) {
	r.routes[name] = route{handle: h, needsArg: needsArg}
}

// Register wires the transfer commands and their helpers.
func (r *Router) Register(dl *handler.DownloadHandler, up *handler.UploadHandler, basic *handler.BasicHandler) {
	r.Handle("download", false, dl.Handle)
	r.Handle("uploadir", true, up.UploadDir)
	r.Handle("upload", true, up.Upload)
	r.Handle("help", false, basic.Help)
	r.Handle("stats", false, basic.Stats)
}

func (r *Router) OnMessage(ctx context.Context, e tg.Entities, update *tg.UpdateNewMessage) error {
	msg, ok := update.Message.(*tg.Message)
	if !ok {
		return nil
	}
	return r.HandleMessage(ctx, e, msg)
}

func (r *Router) OnChannelMessage(ctx context.Context, e tg.Entities, update *tg.UpdateNewChannelMessage) error {
	msg, ok := update.Message.(*tg.Message)
	if !ok {
		return nil
	}
	return r.HandleMessage(ctx, e, msg)
}

// HandleMessage runs the command in an outgoing message. Everything else,
// including unknown commands, is ignored.
func (r *Router) HandleMessage(ctx context.Context, e tg.Entities, msg *tg.Message) error {
	if !msg.Out {
		return nil
	}

	name, arg, ok := ParseCommand(r.prefix, msg.Message)
	if !ok {
		return nil
	}
	rt, ok := r.routes[name]
	if !ok {
		return nil
	}
	if rt.needsArg && arg == "" {
		return nil
	}

	var self int64
	if r.selfID != nil {
		self = r.selfID()
	}
	peer, err := telegram.ResolvePeer(msg.PeerID, e, self)
	if errors.Is(err, telegram.ErrPeerNotInEntities) && r.resolver != nil {
		peer, err = r.resolver.ResolveMessagePeer(ctx, msg)
	}
	if err != nil {
		return err
	}

	cmd := &handler.Command{
		ID:     uuid.NewString(),
		Msg:    msg,
		Peer:   peer,
		Name:   name,
		Arg:    arg,
		Editor: r.editors(peer, msg.ID),
	}
	logger.Info("Command received", "task", cmd.ID, "command", name, "arg", arg, "msg_id", msg.ID)

	return rt.handle(ctx, cmd)
}

// ParseCommand splits "<prefix><name> <arg>" into name and trimmed arg.
func ParseCommand(prefix, text string) (name, arg string, ok bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", "", false
	}
	rest := text[len(prefix):]

	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end == -1 {
		end = len(rest)
	}
	name = rest[:end]
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(rest[end:]), true
}
