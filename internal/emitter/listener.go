package emitter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/kapu/discord-dispatch-bot/internal/util"
	apperrors "github.com/kapu/discord-dispatch-bot/pkg/errors"
)

// Listener describes one reaction to one event or interaction key: its
// gates, its primary function and its fallbacks.
//
// Listeners are configured with chained setters while collaborators
// register. The first invalid setter call is recorded and reported by
// Emitter.Initialize. Initialize seals the listener; later setter calls panic.
type Listener struct {
	id      string
	module  string
	service bool

	commandName    string
	description    string
	deploymentType DeploymentType
	contextTypes   []discordgo.InteractionContextType

	requiredChannels     idSource
	requiredRoles        idSource
	requiredUsers        idSource
	requiredChannelTypes []discordgo.ChannelType
	enabled              Flag

	fn       HandlerFunc
	busyFn   HandlerFunc
	lockedFn HandlerFunc

	runOrder int

	sealed bool
	err    error
}

// NewListener returns an enabled, unrestricted listener with no function.
func NewListener() *Listener {
	return &Listener{enabled: Bool(true)}
}

// Handle wraps a bare function into a minimal listener.
func Handle(fn HandlerFunc) *Listener {
	return NewListener().SetFunction(fn)
}

func (l *Listener) ID() string                     { return l.id }
func (l *Listener) Module() string                 { return l.module }
func (l *Listener) IsService() bool                { return l.service }
func (l *Listener) CommandName() string            { return l.commandName }
func (l *Listener) Description() string            { return l.description }
func (l *Listener) DeploymentType() DeploymentType { return l.deploymentType }
func (l *Listener) RunOrder() int                  { return l.runOrder }
func (l *Listener) Enabled() Flag                  { return l.enabled }

// Err returns the first configuration error recorded by a setter.
func (l *Listener) Err() error { return l.err }

func (l *Listener) RequiredChannelTypes() []discordgo.ChannelType {
	return slices.Clone(l.requiredChannelTypes)
}

func (l *Listener) RequiredChannelIDs() ([]string, error) {
	return l.requiredChannels.resolve("requiredChannels")
}

func (l *Listener) RequiredRoleIDs() ([]string, error) {
	return l.requiredRoles.resolve("requiredRoles")
}

func (l *Listener) RequiredUserIDs() ([]string, error) {
	return l.requiredUsers.resolve("requiredUsers")
}

func (l *Listener) SetFunction(fn HandlerFunc) *Listener {
	return l.mutate("func", func() error {
		if fn == nil {
			return apperrors.NewConfigError("function must not be nil", "func", nil)
		}
		l.fn = fn
		return nil
	})
}

func (l *Listener) SetBusyFunction(fn HandlerFunc) *Listener {
	return l.mutate("busyFunc", func() error {
		if fn == nil {
			return apperrors.NewConfigError("busy function must not be nil", "busyFunc", nil)
		}
		l.busyFn = fn
		return nil
	})
}

func (l *Listener) SetLockedFunction(fn HandlerFunc) *Listener {
	return l.mutate("lockedFunc", func() error {
		if fn == nil {
			return apperrors.NewConfigError("locked function must not be nil", "lockedFunc", nil)
		}
		l.lockedFn = fn
		return nil
	})
}

func (l *Listener) SetEnabled(flag Flag) *Listener {
	return l.mutate("isEnabled", func() error {
		if !flag.valid() {
			return apperrors.NewConfigError("enabled predicate must not be nil", "isEnabled", flag.String())
		}
		l.enabled = flag
		return nil
	})
}

func (l *Listener) SetRequiredChannels(ids ...string) *Listener {
	return l.mutate("requiredChannels", func() error {
		return l.requiredChannels.setStatic("requiredChannels", ids)
	})
}

// SetRequiredChannelsFunc defers the channel allow-list to dispatch time.
func (l *Listener) SetRequiredChannelsFunc(fn func() []string) *Listener {
	return l.mutate("requiredChannels", func() error {
		return l.requiredChannels.setFunc("requiredChannels", fn)
	})
}

func (l *Listener) SetRequiredRoles(ids ...string) *Listener {
	return l.mutate("requiredRoles", func() error {
		return l.requiredRoles.setStatic("requiredRoles", ids)
	})
}

func (l *Listener) SetRequiredRolesFunc(fn func() []string) *Listener {
	return l.mutate("requiredRoles", func() error {
		return l.requiredRoles.setFunc("requiredRoles", fn)
	})
}

func (l *Listener) SetRequiredUsers(ids ...string) *Listener {
	return l.mutate("requiredUsers", func() error {
		return l.requiredUsers.setStatic("requiredUsers", ids)
	})
}

func (l *Listener) SetRequiredUsersFunc(fn func() []string) *Listener {
	return l.mutate("requiredUsers", func() error {
		return l.requiredUsers.setFunc("requiredUsers", fn)
	})
}

func (l *Listener) SetRequiredChannelTypes(types ...discordgo.ChannelType) *Listener {
	return l.mutate("requiredChannelTypes", func() error {
		l.requiredChannelTypes = slices.Clone(types)
		return nil
	})
}

func (l *Listener) SetDeploymentType(t DeploymentType) *Listener {
	return l.mutate("deploymentType", func() error {
		if !t.IsValid() {
			return apperrors.NewConfigError("unknown deployment type", "deploymentType", string(t))
		}
		l.deploymentType = t
		return nil
	})
}

func (l *Listener) SetCommandName(name string) *Listener {
	return l.mutate("commandName", func() error {
		if strings.TrimSpace(name) == "" {
			return apperrors.NewConfigError("command name must not be blank", "commandName", name)
		}
		l.commandName = name
		return nil
	})
}

func (l *Listener) SetDescription(description string) *Listener {
	return l.mutate("description", func() error {
		l.description = description
		return nil
	})
}

func (l *Listener) SetContextTypes(types ...discordgo.InteractionContextType) *Listener {
	return l.mutate("contextTypes", func() error {
		l.contextTypes = slices.Clone(types)
		return nil
	})
}

func (l *Listener) SetRunOrder(order int) *Listener {
	return l.mutate("runOrder", func() error {
		l.runOrder = order
		return nil
	})
}

// LinkedRoleIDs narrows the required roles to those present in the guild.
// Roles outside the guild cannot be mentioned but are still enforced.
func (l *Listener) LinkedRoleIDs(guildRoleIDs []string) []string {
	roles, err := l.RequiredRoleIDs()
	if err != nil {
		return nil
	}
	linked := make([]string, 0, len(roles))
	for _, id := range roles {
		if slices.Contains(guildRoleIDs, id) {
			linked = append(linked, id)
		}
	}
	return linked
}

// LinkedRoles renders LinkedRoleIDs as role mentions joined with "or".
func (l *Listener) LinkedRoles(guildRoleIDs []string) string {
	return util.JoinMentions("<@&", l.LinkedRoleIDs(guildRoleIDs), " or ")
}

func (l *Listener) String() string {
	return fmt.Sprintf("%s/%s", l.module, l.id)
}

func (l *Listener) mutate(field string, apply func() error) *Listener {
	if l.sealed {
		panic(fmt.Errorf("listener %s: %s: %w", l, field, apperrors.ErrSealed))
	}
	if err := apply(); err != nil && l.err == nil {
		l.err = err
	}
	return l
}

// bind assigns the registration identity and seals the listener.
func (l *Listener) bind(id, module string, service bool) error {
	if l.id != "" && l.id != id {
		return apperrors.NewConfigError("listener registered under two keys", "id", id)
	}
	l.id = id
	l.module = module
	l.service = service
	if l.deploymentType != DeploymentNone && l.commandName == "" {
		l.commandName = id
	}
	l.sealed = true

	if l.err != nil {
		return fmt.Errorf("listener %s: %w", l, l.err)
	}
	if l.fn == nil {
		return fmt.Errorf("listener %s: %w", l, apperrors.NewConfigError("function is required", "func", nil))
	}
	return nil
}

// idSource holds a static id list or a function producing one.
type idSource struct {
	ids []string
	fn  func() []string
}

func (s *idSource) setStatic(field string, ids []string) error {
	if err := validateIDs(field, ids); err != nil {
		return err
	}
	s.ids = slices.Clone(ids)
	s.fn = nil
	return nil
}

func (s *idSource) setFunc(field string, fn func() []string) error {
	if fn == nil {
		return apperrors.NewConfigError("id function must not be nil", field, nil)
	}
	s.ids = nil
	s.fn = fn
	return nil
}

func (s idSource) resolve(field string) ([]string, error) {
	if s.fn == nil {
		return s.ids, nil
	}
	ids := s.fn()
	if err := validateIDs(field, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func validateIDs(field string, ids []string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return apperrors.NewConfigError("ids must be non-empty strings", field, ids)
		}
	}
	return nil
}
