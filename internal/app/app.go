package app

import (
	"context"
	"runtime"

	"github.com/gotd/td/tg"

	"github.com/itssu4012650/ur-mwe/config"
	"github.com/itssu4012650/ur-mwe/internal/bot"
	"github.com/itssu4012650/ur-mwe/internal/handler"
	"github.com/itssu4012650/ur-mwe/internal/media"
	"github.com/itssu4012650/ur-mwe/internal/middleware"
	"github.com/itssu4012650/ur-mwe/internal/stats"
	"github.com/itssu4012650/ur-mwe/internal/telegram"
	"github.com/itssu4012650/ur-mwe/pkg/logger"
	"github.com/itssu4012650/ur-mwe/pkg/worker"
)

type App struct {
	Bot  *bot.Bot
	Cfg  *config.Config
	pool *worker.Pool
}

func New(cfg *config.Config) (*App, error) {
	dispatcher := tg.NewUpdateDispatcher()

	client, err := telegram.NewClient(cfg, dispatcher)
	if err != nil {
		return nil, err
	}

	// Progress edits from every running command share this pool.
	pool := worker.NewPool(runtime.NumCPU())

	transfer := telegram.NewTransfer(client.API(), cfg.DownloadThreads, cfg.UploadThreads)
	opts := handler.Options{
		DownloadDir:      cfg.DownloadDir,
		ProgressInterval: cfg.ProgressInterval,
		HTTPThreads:      cfg.DownloadThreads,
		Protected:        cfg.ProtectedPaths(),
		ProtectedDirs:    []string{cfg.SessionDir},
		Pool:             pool,
		DiskFree:         stats.DiskFree,
	}

	dlHandler := handler.NewDownloadHandler(transfer, opts)
	upHandler := handler.NewUploadHandler(transfer, media.NewProber(cfg.FFProbePath), opts)
	basicHandler := handler.NewBasicHandler(cfg.CmdPrefix, cfg.DownloadDir)

	router := bot.NewRouter(cfg.CmdPrefix, client.SelfID, client.Resolver(), transfer.Editor)
	router.Register(dlHandler, upHandler, basicHandler)

	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, update *tg.UpdateNewMessage) error {
		run := func() {
			if err := router.OnMessage(ctx, e, update); err != nil {
				logger.Error("OnMessage failed", "error", err)
			}
		}
		go middleware.Chain(run, middleware.Recover("OnNewMessage"), middleware.Logger("OnNewMessage"))()
		return nil
	})

	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, update *tg.UpdateNewChannelMessage) error {
		run := func() {
			if err := router.OnChannelMessage(ctx, e, update); err != nil {
				logger.Error("OnChannelMessage failed", "error", err)
			}
		}
		go middleware.Chain(run, middleware.Recover("OnNewChannelMessage"), middleware.Logger("OnNewChannelMessage"))()
		return nil
	})

	logger.Info("Application initialized",
		"download_dir", cfg.DownloadDir,
		"session", cfg.SessionPath(),
		"prefix", cfg.CmdPrefix,
	)

	return &App{
		Bot:  bot.New(client),
		Cfg:  cfg,
		pool: pool,
	}, nil
}

// Start runs the bot until ctx is canceled, then drains pending edits.
func (a *App) Start(ctx context.Context) error {
	defer a.pool.Stop()
	return a.Bot.Run(ctx)
}
