package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/itssu4012650/ur-mwe/config"
	"github.com/itssu4012650/ur-mwe/internal/app"
	"github.com/itssu4012650/ur-mwe/pkg/logger"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "userbot",
	Short:         "Telegram userbot that moves files between chats and the server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "dotenv config file (default config.env when present)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger.Setup(os.Stdout, logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init failed: %w", err)
	}

	start := time.Now()
	logger.Info("Starting userbot")
	err = a.Start(cmd.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.InfoWithDuration("Userbot stopped", start)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("Userbot exited", "error", err)
		stop()
		os.Exit(1)
	}
}
