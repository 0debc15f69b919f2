package slowmode

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kapu/discord-dispatch-bot/internal/config"
	"github.com/kapu/discord-dispatch-bot/internal/emitter"
	"go.uber.org/zap"
)

const (
	Name       = "slowmode"
	CommandKey = "slowmode"

	defaultRateLimit = 30 * time.Second
	defaultDuration  = 10 * time.Minute
)

// ChannelEditor is the part of *discordgo.Session used to change rate
// limits.
type ChannelEditor interface {
	ChannelEditComplex(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Plugin applies a temporary per-user rate limit to the invoking channel.
// Each channel has at most one pending removal; invoking again restarts it.
type Plugin struct {
	settings *config.PluginConfig
	editor   ChannelEditor
	logger   *zap.Logger
	now      func() time.Time

	// guards the stop and schedule pair so a channel never holds two timers
	timersMu sync.Mutex
}

func New(settings *config.PluginConfig, editor ChannelEditor, logger *zap.Logger) *Plugin {
	return &Plugin{
		settings: settings,
		editor:   editor,
		logger:   logger,
		now:      time.Now,
	}
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Register() emitter.Registration {
	return emitter.Registration{
		Listeners: map[string][]*emitter.Listener{
			CommandKey: {
				emitter.NewListener().
					SetDeploymentType(emitter.DeploymentSlashCommand).
					SetDescription("Temporarily slow down this channel").
					SetContextTypes(discordgo.InteractionContextGuild).
					SetRequiredChannelTypes(discordgo.ChannelTypeGuildText).
					SetEnabled(emitter.Predicate(func() bool { return p.settings.Plugin(Name).IsEnabled() })).
					SetRequiredChannelsFunc(func() []string { return p.settings.Plugin(Name).Channels }).
					SetRequiredRolesFunc(func() []string { return p.settings.Plugin(Name).Roles }).
					SetRequiredUsersFunc(func() []string { return p.settings.Plugin(Name).Users }).
					SetFunction(p.apply),
			},
		},
	}
}

// JobName is the cron job name of a channel's pending removal.
func JobName(channelID string) string {
	return "slowmode:" + channelID
}

func (p *Plugin) apply(ctx context.Context, params *emitter.Params) error {
	settings := p.settings.Plugin(Name)
	rateLimit := durationOption(settings, "rate_limit", defaultRateLimit)
	duration := durationOption(settings, "duration", defaultDuration)
	channelID := params.Origin.ChannelID

	if err := p.setRateLimit(ctx, channelID, rateLimit); err != nil {
		return err
	}

	until, err := p.restartTimer(ctx, params.Emitter, channelID, duration)
	if err != nil {
		return err
	}

	return params.Reply(ctx, fmt.Sprintf("Slowmode of %s enabled until <t:%d:t>.", rateLimit, until.Unix()), false)
}

func (p *Plugin) restartTimer(ctx context.Context, em *emitter.Emitter, channelID string, duration time.Duration) (time.Time, error) {
	p.timersMu.Lock()
	defer p.timersMu.Unlock()

	name := JobName(channelID)
	if stopped := em.StopCronJobs(name); stopped > 0 {
		p.logger.Info("Restarting slowmode timer", zap.String("channel_id", channelID))
	}

	until := p.now().Add(duration)
	job := emitter.NewCronJob().
		SetName(name).
		SetDate(until).
		SetFunction(func(ctx context.Context) error {
			return p.setRateLimit(ctx, channelID, 0)
		})
	if err := em.ScheduleCronJob(ctx, job, false); err != nil {
		return time.Time{}, err
	}
	return until, nil
}

func (p *Plugin) setRateLimit(ctx context.Context, channelID string, limit time.Duration) error {
	seconds := int(limit / time.Second)
	if _, err := p.editor.ChannelEditComplex(channelID, &discordgo.ChannelEdit{
		RateLimitPerUser: &seconds,
	}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to set rate limit on %s: %w", channelID, err)
	}
	p.logger.Info("Channel rate limit updated",
		zap.String("channel_id", channelID),
		zap.Int("seconds", seconds),
	)
	return nil
}

// durationOption reads a duration such as "45s" or a bare number of seconds.
func durationOption(s config.PluginSettings, key string, fallback time.Duration) time.Duration {
	raw := s.Option(key, "")
	if raw == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	return fallback
}
