package commands

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/kapu/discord-dispatch-bot/internal/emitter"
	apperrors "github.com/kapu/discord-dispatch-bot/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const (
	Name = "commands"

	maxConcurrentDeploys = 4
	// before cron jobs so scheduled work sees deployed commands
	deployRunOrder = -100
)

// Overwriter is the part of *discordgo.Session used to publish commands.
type Overwriter interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Service publishes every deployed listener when the gateway becomes ready.
// Without guild ids the commands are published globally.
type Service struct {
	appID    string
	guildIDs []string
	api      Overwriter
	logger   *zap.Logger
}

func New(appID string, guildIDs []string, api Overwriter, logger *zap.Logger) *Service {
	return &Service{appID: appID, guildIDs: guildIDs, api: api, logger: logger}
}

func (s *Service) Name() string { return Name }

func (s *Service) Register() emitter.Registration {
	return emitter.Registration{
		Listeners: map[string][]*emitter.Listener{
			emitter.EventReady: {
				emitter.NewListener().
					SetRunOrder(deployRunOrder).
					SetFunction(s.deployAll),
			},
		},
	}
}

func (s *Service) deployAll(ctx context.Context, p *emitter.Params) error {
	return s.Deploy(ctx, p.Emitter.Deployments())
}

// Deploy overwrites the command set of every target scope.
func (s *Service) Deploy(ctx context.Context, cmds []*discordgo.ApplicationCommand) error {
	targets := s.guildIDs
	if len(targets) == 0 {
		targets = []string{""}
	}

	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(maxConcurrentDeploys)

	for _, guildID := range targets {
		p.Go(func(ctx context.Context) error {
			created, err := s.api.ApplicationCommandBulkOverwrite(s.appID, guildID, cmds, discordgo.WithContext(ctx))
			if err != nil {
				return deployError(guildID, err)
			}
			s.logger.Info("Commands deployed",
				zap.String("scope", scope(guildID)),
				zap.Int("count", len(created)),
			)
			return nil
		})
	}
	return p.Wait()
}

func deployError(guildID string, err error) error {
	status := 0
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		status = restErr.Response.StatusCode
	}
	apiErr := apperrors.NewAPIError("failed to deploy commands to "+scope(guildID), status, map[string]any{
		"guild_id": guildID,
	})
	apiErr.Cause = err
	return apiErr
}

func scope(guildID string) string {
	if guildID == "" {
		return "global"
	}
	return "guild " + guildID
}
