package app

import (
	"context"
	"fmt"

	"github.com/kapu/discord-dispatch-bot/internal/bot"
	"github.com/kapu/discord-dispatch-bot/internal/cache"
	"github.com/kapu/discord-dispatch-bot/internal/config"
	"github.com/kapu/discord-dispatch-bot/internal/constants"
	"github.com/kapu/discord-dispatch-bot/internal/discord"
	"github.com/kapu/discord-dispatch-bot/internal/emitter"
	"github.com/kapu/discord-dispatch-bot/internal/plugins/ping"
	"github.com/kapu/discord-dispatch-bot/internal/plugins/slowmode"
	"github.com/kapu/discord-dispatch-bot/internal/plugins/whois"
	"github.com/kapu/discord-dispatch-bot/internal/services/commands"
	"github.com/kapu/discord-dispatch-bot/internal/services/presence"
	"github.com/kapu/discord-dispatch-bot/internal/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Container bundles assembled services for constructing the Bot.
type Container struct {
	Config  *config.Config
	Plugins *config.PluginConfig
	Logger  *zap.Logger

	botDeps *bot.Dependencies
}

// NewBot instantiates a bot using the pre-built dependency graph.
func (c *Container) NewBot() (*bot.Bot, error) {
	if c == nil || c.botDeps == nil {
		return nil, fmt.Errorf("bot dependencies not initialized")
	}
	return bot.NewBot(c.botDeps)
}

// Build assembles the infrastructure and every collaborator. Nothing touches
// the gateway until the bot starts.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	pluginConfig, err := config.LoadPluginConfig(cfg.Plugins.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin config: %w", err)
	}

	busyStore, closeBusy, err := newBusyStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeBusy)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := emitter.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	em := emitter.New(logger.Named("emitter"),
		emitter.WithBusyStore(busyStore),
		emitter.WithMetrics(metrics),
		emitter.WithAdminMention(cfg.AdminMention()),
		emitter.WithLocation(cfg.Location()),
	)

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		return nil, err
	}
	client := discord.NewClient(session, em, logger.Named("discord"))
	if err := client.RegisterMetrics(registry); err != nil {
		return nil, fmt.Errorf("failed to register gateway metrics: %w", err)
	}

	collaborators := emitter.Collaborators{
		Plugins: []emitter.Module{
			ping.New(pluginConfig, logger.Named(ping.Name)),
			whois.New(pluginConfig, logger.Named(whois.Name)),
			slowmode.New(pluginConfig, session, logger.Named(slowmode.Name)),
		},
		Services: []emitter.Module{
			commands.New(cfg.Discord.AppID, cfg.Discord.GuildIDs, session, logger.Named(commands.Name)),
			presence.New(pluginConfig, session, cfg.Location(), logger.Named(presence.Name)),
		},
	}

	logger.Info("Application assembled",
		zap.String("busy_backend", cfg.Busy.Backend),
		zap.Int("guilds", len(cfg.Discord.GuildIDs)),
		zap.Int("plugins", len(collaborators.Plugins)),
		zap.Int("services", len(collaborators.Services)),
	)

	return &Container{
		Config:  cfg,
		Plugins: pluginConfig,
		Logger:  logger,
		botDeps: &bot.Dependencies{
			Logger:        logger,
			Emitter:       em,
			Client:        client,
			Collaborators: collaborators,
			MetricsAddr:   cfg.Metrics.Addr,
			Gatherer:      registry,
			Closers:       closers,
		},
	}, nil
}

func newBusyStore(cfg *config.Config, logger *zap.Logger) (emitter.BusyStore, func(), error) {
	if cfg.Busy.Backend != config.BusyBackendRedis {
		return emitter.NewMemoryBusyStore(cfg.Busy.TTL), func() {}, nil
	}

	redisStore, err := cache.NewRedisBusyStore(cache.RedisConfig{
		Host:      cfg.Redis.Host,
		Port:      cfg.Redis.Port,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
		TTL:       cfg.Busy.TTL,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create busy store: %w", err)
	}

	breaker := util.NewCircuitBreaker("busy-store",
		constants.CircuitBreakerConfig.FailureThreshold,
		constants.CircuitBreakerConfig.ResetTimeout,
		logger,
	)
	store := cache.NewFallbackBusyStore(redisStore, cfg.Busy.TTL, breaker, logger)
	return store, func() { _ = redisStore.Close() }, nil
}
