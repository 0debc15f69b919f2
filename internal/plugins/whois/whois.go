package whois

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/kapu/discord-dispatch-bot/internal/config"
	"github.com/kapu/discord-dispatch-bot/internal/emitter"
	"github.com/kapu/discord-dispatch-bot/internal/util"
	"go.uber.org/zap"
)

const (
	Name       = "whois"
	CommandKey = "Who is"
)

type rawInteraction interface {
	Raw() *discordgo.Interaction
}

// Plugin is a user context-menu command describing the selected member.
// Access is limited to the roles and users named in the plugin settings.
type Plugin struct {
	settings *config.PluginConfig
	logger   *zap.Logger
}

func New(settings *config.PluginConfig, logger *zap.Logger) *Plugin {
	return &Plugin{settings: settings, logger: logger}
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Register() emitter.Registration {
	return emitter.Registration{
		Listeners: map[string][]*emitter.Listener{
			CommandKey: {
				emitter.NewListener().
					SetDeploymentType(emitter.DeploymentUserContextMenu).
					SetContextTypes(discordgo.InteractionContextGuild).
					SetRequiredChannelTypes(discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildVoice).
					SetEnabled(emitter.Predicate(func() bool { return p.settings.Plugin(Name).IsEnabled() })).
					SetRequiredRolesFunc(func() []string { return p.settings.Plugin(Name).Roles }).
					SetRequiredUsersFunc(func() []string { return p.settings.Plugin(Name).Users }).
					SetFunction(p.whois),
			},
		},
	}
}

func (p *Plugin) whois(ctx context.Context, params *emitter.Params) error {
	raw, ok := params.Interaction.(rawInteraction)
	if !ok || raw.Raw() == nil {
		return fmt.Errorf("whois needs a platform interaction")
	}

	data := raw.Raw().ApplicationCommandData()
	if data.Resolved == nil || data.Resolved.Users[data.TargetID] == nil {
		return params.Reply(ctx, "That user could not be resolved.", true)
	}

	p.logger.Debug("Describing member",
		zap.String("target_id", data.TargetID),
		zap.String("user_id", params.Origin.UserID),
	)
	return params.Reply(ctx, Describe(data.Resolved.Users[data.TargetID], data.Resolved.Members[data.TargetID]), true)
}

// Describe renders a user and, when present, their guild membership.
func Describe(user *discordgo.User, member *discordgo.Member) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<@%s> (%s)\n", user.ID, user.Username)

	if created, err := discordgo.SnowflakeTimestamp(user.ID); err == nil {
		fmt.Fprintf(&b, "Account created <t:%d:R>\n", created.Unix())
	}
	if user.Bot {
		b.WriteString("Bot account\n")
	}
	if member == nil {
		return strings.TrimSuffix(b.String(), "\n")
	}

	if member.Nick != "" {
		fmt.Fprintf(&b, "Nickname: %s\n", member.Nick)
	}
	if !member.JoinedAt.IsZero() {
		fmt.Fprintf(&b, "Joined <t:%d:R>\n", member.JoinedAt.Unix())
	}
	if len(member.Roles) > 0 {
		fmt.Fprintf(&b, "Roles: %s", util.JoinMentions("<@&", member.Roles, ", "))
	} else {
		b.WriteString("Roles: none")
	}
	return b.String()
}
