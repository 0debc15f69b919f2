package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kapu/discord-dispatch-bot/internal/discord"
	"github.com/kapu/discord-dispatch-bot/internal/emitter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies is everything the bot needs at run time, assembled by app.Build.
type Dependencies struct {
	Logger        *zap.Logger
	Emitter       *emitter.Emitter
	Client        *discord.Client
	Collaborators emitter.Collaborators
	MetricsAddr   string
	Gatherer      prometheus.Gatherer
	Closers       []func()
}

type Bot struct {
	deps    *Dependencies
	logger  *zap.Logger
	metrics *http.Server
}

func NewBot(deps *Dependencies) (*Bot, error) {
	if deps == nil || deps.Emitter == nil || deps.Client == nil {
		return nil, fmt.Errorf("bot dependencies not configured")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{deps: deps, logger: logger}, nil
}

// Start registers every collaborator, opens the gateway and blocks until ctx
// is cancelled or a service fails.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.deps.Emitter.Initialize(ctx, b.deps.Collaborators); err != nil {
		return fmt.Errorf("failed to initialize emitter: %w", err)
	}

	if b.deps.MetricsAddr != "" && b.deps.Gatherer != nil {
		b.startMetricsServer()
	}

	if err := b.deps.Client.Open(); err != nil {
		return err
	}
	b.logger.Info("Gateway connection opened")

	select {
	case <-ctx.Done():
		return nil
	case err := <-b.deps.Emitter.Fatal():
		return fmt.Errorf("scheduled service failed: %w", err)
	case err := <-b.deps.Client.Errors():
		return fmt.Errorf("service listener failed: %w", err)
	}
}

func (b *Bot) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(b.deps.Gatherer, promhttp.HandlerOpts{}))

	b.metrics = &http.Server{
		Addr:              b.deps.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		b.logger.Info("Metrics server listening", zap.String("addr", b.deps.MetricsAddr))
		if err := b.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
}

// Shutdown closes the gateway first so no new dispatches start, then waits
// for running cron jobs and releases infrastructure.
func (b *Bot) Shutdown(ctx context.Context) error {
	var errs []error

	if err := b.deps.Client.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := b.deps.Emitter.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop cron jobs: %w", err))
	}
	if b.metrics != nil {
		if err := b.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop metrics server: %w", err))
		}
	}
	for i := len(b.deps.Closers) - 1; i >= 0; i-- {
		b.deps.Closers[i]()
	}
	return errors.Join(errs...)
}
