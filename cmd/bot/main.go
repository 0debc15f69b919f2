package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kapu/discord-dispatch-bot/internal/app"
	"github.com/kapu/discord-dispatch-bot/internal/config"
	"github.com/kapu/discord-dispatch-bot/internal/constants"
	"github.com/kapu/discord-dispatch-bot/internal/util"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Discord dispatch bot starting...",
		zap.String("log_level", cfg.Logging.Level),
		zap.String("timezone", cfg.Bot.Timezone),
	)

	buildCtx, buildCancel := context.WithTimeout(context.Background(), constants.LifecycleConfig.BuildTimeout)
	container, err := app.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		os.Exit(1)
	}

	discordBot, err := container.NewBot()
	if err != nil {
		logger.Error("Failed to initialize bot", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// SIGHUP re-reads the plugin file; listeners read settings per dispatch
	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)

	errCh := make(chan error, 1)
	go func() {
		errCh <- discordBot.Start(ctx)
	}()

	logger.Info("Bot started, waiting for signals...")

	exitCode := 0
wait:
	for {
		select {
		case <-hupCh:
			if err := container.Plugins.Reload(); err != nil {
				logger.Error("Plugin config reload failed, keeping previous settings", zap.Error(err))
				continue
			}
			logger.Info("Plugin config reloaded", zap.String("file", cfg.Plugins.File))
		case sig := <-sigCh:
			logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			break wait
		case err := <-errCh:
			if err != nil {
				logger.Error("Bot error", zap.Error(err))
				exitCode = 1
			}
			break wait
		}
	}

	logger.Info("Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.LifecycleConfig.ShutdownTimeout)
	defer shutdownCancel()

	if err := discordBot.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	if exitCode != 0 {
		_ = logger.Sync()
		os.Exit(exitCode)
	}
}
