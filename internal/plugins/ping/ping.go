package ping

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kapu/discord-dispatch-bot/internal/config"
	"github.com/kapu/discord-dispatch-bot/internal/emitter"
	"go.uber.org/zap"
)

const (
	Name       = "ping"
	CommandKey = "ping"
	RefreshKey = "ping:refresh"
)

type responder interface {
	Respond(ctx context.Context, resp *discordgo.InteractionResponse) error
}

// Plugin answers /ping with the gateway latency and a button that measures
// it again. Refreshes hold the busy lock so repeated clicks are rejected.
type Plugin struct {
	settings *config.PluginConfig
	logger   *zap.Logger

	latency func(*discordgo.Session) time.Duration
	// held between measuring and answering a refresh
	settle time.Duration
}

func New(settings *config.PluginConfig, logger *zap.Logger) *Plugin {
	return &Plugin{
		settings: settings,
		logger:   logger,
		latency:  heartbeatLatency,
		settle:   time.Second,
	}
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Register() emitter.Registration {
	enabled := emitter.Predicate(func() bool { return p.settings.Plugin(Name).IsEnabled() })
	channels := func() []string { return p.settings.Plugin(Name).Channels }

	return emitter.Registration{
		Listeners: map[string][]*emitter.Listener{
			CommandKey: {
				emitter.NewListener().
					SetDeploymentType(emitter.DeploymentSlashCommand).
					SetDescription("Show the bot's gateway latency").
					SetEnabled(enabled).
					SetRequiredChannelsFunc(channels).
					SetFunction(p.ping),
			},
			RefreshKey: {
				emitter.NewListener().
					SetEnabled(enabled).
					SetRequiredChannelsFunc(channels).
					SetFunction(p.refresh),
			},
		},
	}
}

func (p *Plugin) ping(ctx context.Context, params *emitter.Params) error {
	return p.answer(ctx, params, discordgo.InteractionResponseChannelMessageWithSource)
}

func (p *Plugin) refresh(ctx context.Context, params *emitter.Params) error {
	return params.Emitter.WithBusy(ctx, params.Interaction, func() error {
		if p.settle > 0 {
			select {
			case <-time.After(p.settle):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return p.answer(ctx, params, discordgo.InteractionResponseUpdateMessage)
	})
}

func (p *Plugin) answer(ctx context.Context, params *emitter.Params, kind discordgo.InteractionResponseType) error {
	content := p.content(params.Session)
	r, ok := params.Interaction.(responder)
	if !ok {
		return params.Reply(ctx, content, false)
	}

	p.logger.Debug("Answering ping", zap.String("user_id", params.Origin.UserID))
	return r.Respond(ctx, &discordgo.InteractionResponse{
		Type: kind,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Refresh",
						Style:    discordgo.SecondaryButton,
						CustomID: RefreshKey,
					},
				}},
			},
		},
	})
}

func (p *Plugin) content(s *discordgo.Session) string {
	return fmt.Sprintf("Pong! Gateway latency: %dms", p.latency(s).Milliseconds())
}

func heartbeatLatency(s *discordgo.Session) time.Duration {
	if s == nil {
		return 0
	}
	return s.HeartbeatLatency()
}
