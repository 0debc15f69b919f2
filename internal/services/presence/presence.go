package presence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kapu/discord-dispatch-bot/internal/config"
	"github.com/kapu/discord-dispatch-bot/internal/emitter"
	"go.uber.org/zap"
)

const (
	Name = "presence"

	defaultSchedule = "*/10 * * * *"
	defaultStatus   = "/ping | {time}"
)

// StatusUpdater is the part of *discordgo.Session used to set the activity.
type StatusUpdater interface {
	UpdateGameStatus(idle int, name string) error
}

// Service keeps the bot's activity text current. It runs once when the
// gateway is ready and then on the configured schedule.
type Service struct {
	settings *config.PluginConfig
	api      StatusUpdater
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

func New(settings *config.PluginConfig, api StatusUpdater, location *time.Location, logger *zap.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		settings: settings,
		api:      api,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Name() string { return Name }

func (s *Service) Register() emitter.Registration {
	settings := s.settings.Plugin(Name)
	schedule := settings.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}

	return emitter.Registration{
		CronJobs: []*emitter.CronJob{
			emitter.NewCronJob().
				SetName(Name).
				SetExpression(schedule).
				SetTriggered(emitter.Bool(true)).
				SetEnabled(emitter.Predicate(func() bool { return s.settings.Plugin(Name).IsEnabled() })).
				SetFunction(s.update),
		},
	}
}

func (s *Service) update(_ context.Context) error {
	status := s.Status()
	if err := s.api.UpdateGameStatus(0, status); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	s.logger.Debug("Status updated", zap.String("status", status))
	return nil
}

// Status renders the configured text. "{time}" expands to the local time.
func (s *Service) Status() string {
	text := s.settings.Plugin(Name).Option("status", defaultStatus)
	return strings.ReplaceAll(text, "{time}", s.now().In(s.location).Format("15:04 MST"))
}
