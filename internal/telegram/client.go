package telegram

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/updates"
	"github.com/gotd/td/tg"

	"github.com/itssu4012650/ur-mwe/config"
	"github.com/itssu4012650/ur-mwe/pkg/logger"
)

// Client is a user-account MTProto session. Updates are routed through a
// gap-recovering updates manager and the peer cache into the dispatcher.
type Client struct {
	client   *telegram.Client
	api      *tg.Client
	gaps     *updates.Manager
	resolver *Resolver
	cfg      *config.Config
	codeIn   io.Reader
	selfID   atomic.Int64
}

func NewClient(cfg *config.Config, dispatcher tg.UpdateDispatcher) (*Client, error) {
	if err := os.MkdirAll(cfg.SessionDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir failed: %w", err)
	}

	// The updates manager needs the peer cache, which needs the API of the
	// client being built.
	var gaps *updates.Manager
	opts := clientOptions(cfg, telegram.UpdateHandlerFunc(func(ctx context.Context, u tg.UpdatesClass) error {
		return gaps.Handle(ctx, u)
	}))

	client := telegram.NewClient(cfg.AppID, cfg.AppHash, opts)
	resolver := NewResolver(client.API())
	gaps = updates.New(updates.Config{
		Handler: resolver.UpdateHook(dispatcher),
	})

	return &Client{
		client:   client,
		api:      client.API(),
		gaps:     gaps,
		resolver: resolver,
		cfg:      cfg,
		codeIn:   os.Stdin,
	}, nil
}

// clientOptions stores the session on disk and sleeps through FLOOD_WAIT
// errors instead of failing the call.
func clientOptions(cfg *config.Config, h telegram.UpdateHandler) telegram.Options {
	return telegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionPath()},
		UpdateHandler:  h,
		Middlewares: []telegram.Middleware{
			floodwait.NewSimpleWaiter(),
		},
	}
}

// Start logs in when the session is not authorized yet and blocks
// receiving updates until ctx is done.
func (c *Client) Start(ctx context.Context) error {
	return c.client.Run(ctx, func(ctx context.Context) error {
		flow := auth.NewFlow(
			auth.Constant(c.cfg.Phone, c.cfg.Password, auth.CodeAuthenticatorFunc(c.promptCode)),
			auth.SendCodeOptions{},
		)
		if err := c.client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("user login failed: %w", err)
		}

		me, err := c.client.Self(ctx)
		if err != nil {
			return fmt.Errorf("get self failed: %w", err)
		}
		c.selfID.Store(me.ID)

		logger.Info("Telegram client connected", "username", me.Username, "id", me.ID)

		return c.gaps.Run(ctx, c.api, me.ID, updates.AuthOptions{
			OnStart: func(ctx context.Context) {
				logger.Info("Listening for commands", "prefix", c.cfg.CmdPrefix)
			},
		})
	})
}

func (c *Client) promptCode(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
	fmt.Fprintf(os.Stdout, "Enter the login code sent to %s: ", c.cfg.Phone)
	line, err := bufio.NewReader(c.codeIn).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read login code failed: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Resolver resolves peers of messages that arrived without entities.
func (c *Client) Resolver() *Resolver {
	return c.resolver
}

func (c *Client) API() *tg.Client {
	return c.api
}

// SelfID is the logged in user's ID, or zero before login completes.
func (c *Client) SelfID() int64 {
	return c.selfID.Load()
}
