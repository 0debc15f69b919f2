package emitter

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/kapu/discord-dispatch-bot/internal/util"
	apperrors "github.com/kapu/discord-dispatch-bot/pkg/errors"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

const (
	// Discord JSON error code for "Request entity too large".
	discordCodeEntityTooLarge = 40005
	// keeps error replies under the 2000 character message limit
	maxErrorDetailRunes = 1500
)

var errInvalidDispatch = stderrors.New("dispatch must name exactly one of event or interaction")

// Emit runs the chain registered under the dispatch key. Listeners run one
// after another in run order; each is gated independently. A service
// handler failure or a gate evaluation failure stops the chain and is
// returned. Plugin failures are logged and reported to the user.
func (e *Emitter) Emit(ctx context.Context, d Dispatch) error {
	key, ok := d.key()
	if !ok {
		return errInvalidDispatch
	}

	listeners := e.Listeners(key)
	if len(listeners) == 0 {
		return nil
	}

	logger := e.logger.With(
		zap.String("key", key),
		zap.String("dispatch_id", uuid.NewString()),
	)

	for _, l := range listeners {
		params := d.Params
		params.Interaction = d.Interaction
		params.Listener = l
		params.Emitter = e

		if err := e.dispatchListener(ctx, logger, key, l, &params); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) dispatchListener(ctx context.Context, logger *zap.Logger, key string, l *Listener, p *Params) error {
	logger = logger.With(zap.String("listener", l.String()))

	outcome, err := e.resolveGates(ctx, l, p)
	if err != nil {
		logger.Error("Failed to evaluate listener gates", zap.Error(err))
		return err
	}
	e.metrics.observeOutcome(key, outcome)

	switch outcome {
	case outcomeDisabled:
		logger.Debug("Listener disabled")
		return nil
	case outcomeWrongChannelType:
		logger.Debug("Listener skipped for channel type", zap.Int("channel_type", int(p.Origin.ChannelType)))
		return nil
	case outcomeLockedChannel:
		logger.Info("Listener locked to other channels", zap.String("channel_id", p.Origin.ChannelID))
		if p.Interaction == nil {
			return nil
		}
		return e.invoke(ctx, logger, key, l, p, lockedChannelReply)
	case outcomeLockedUser:
		logger.Info("Listener locked for user", zap.String("user_id", p.Origin.UserID))
		if p.Interaction == nil {
			return nil
		}
		fn := l.lockedFn
		if fn == nil {
			fn = lockedUserReply
		}
		return e.invoke(ctx, logger, key, l, p, fn)
	case outcomeBusy:
		logger.Info("Interaction already in progress", zap.String("user_id", p.Origin.UserID))
		fn := l.busyFn
		if fn == nil {
			fn = busyReply
		}
		return e.invoke(ctx, logger, key, l, p, fn)
	default:
		return e.invoke(ctx, logger, key, l, p, l.fn)
	}
}

// resolveGates evaluates the gates in fixed order; the first match wins.
func (e *Emitter) resolveGates(ctx context.Context, l *Listener, p *Params) (string, error) {
	enabled, err := l.enabled.Resolve(ctx)
	if err != nil {
		return "", apperrors.NewGateError("isEnabled", err)
	}
	if !enabled {
		return outcomeDisabled, nil
	}

	if len(l.requiredChannelTypes) > 0 && !slices.Contains(l.requiredChannelTypes, p.Origin.ChannelType) {
		return outcomeWrongChannelType, nil
	}

	channels, err := l.RequiredChannelIDs()
	if err != nil {
		return "", apperrors.NewGateError("requiredChannels", err)
	}
	if len(channels) > 0 && !slices.Contains(channels, p.Origin.ChannelID) {
		return outcomeLockedChannel, nil
	}

	allowed, err := userAllowed(l, p.Origin)
	if err != nil {
		return "", err
	}
	if !allowed {
		return outcomeLockedUser, nil
	}

	if p.Interaction != nil && e.IsBusy(ctx, p.Interaction) {
		return outcomeBusy, nil
	}
	return outcomeRun, nil
}

// userAllowed passes when no role or user restriction is set, or when the
// user holds one of the roles or is one of the users.
func userAllowed(l *Listener, origin Origin) (bool, error) {
	roles, err := l.RequiredRoleIDs()
	if err != nil {
		return false, apperrors.NewGateError("requiredRoles", err)
	}
	users, err := l.RequiredUserIDs()
	if err != nil {
		return false, apperrors.NewGateError("requiredUsers", err)
	}

	if len(roles) == 0 && len(users) == 0 {
		return true, nil
	}
	if slices.Contains(users, origin.UserID) {
		return true, nil
	}
	for _, role := range origin.RoleIDs {
		if slices.Contains(roles, role) {
			return true, nil
		}
	}
	return false, nil
}

// invoke runs fn, recovering panics. Service failures are returned; plugin
// failures are reported and swallowed.
func (e *Emitter) invoke(ctx context.Context, logger *zap.Logger, key string, l *Listener, p *Params, fn HandlerFunc) error {
	started := time.Now()
	var err error
	if recovered := panics.Try(func() { err = fn(ctx, p) }); recovered != nil {
		err = recovered.AsError()
	}
	e.metrics.observeDuration(key, started)

	if err == nil {
		return nil
	}
	e.metrics.observeOutcome(key, outcomeError)

	handlerErr := apperrors.NewHandlerError(key, l.Module(), l.IsService(), err)
	if l.IsService() {
		logger.Error("Service listener failed", zap.Error(err))
		return handlerErr
	}

	logger.Error("Plugin listener failed", zap.Error(err))
	e.reportError(ctx, logger, p, err)
	return nil
}

// reportError tells the invoking user about a failure. Failures to reply are
// only logged.
func (e *Emitter) reportError(ctx context.Context, logger *zap.Logger, p *Params, err error) {
	if p.Interaction == nil {
		return
	}
	if replyErr := p.Interaction.Reply(context.WithoutCancel(ctx), e.errorMessage(err), true); replyErr != nil {
		logger.Warn("Failed to send error reply", zap.Error(replyErr))
	}
}

func (e *Emitter) errorMessage(err error) string {
	if IsPayloadTooLarge(err) {
		return "The result is too large to upload here. Try again with a smaller request."
	}
	contact := "an administrator"
	if e.adminMention != "" {
		contact = e.adminMention
	}
	detail := util.TruncateString(err.Error(), maxErrorDetailRunes)
	return fmt.Sprintf("Sorry, something went wrong.\n```\n%s\n```\nPlease contact %s if this keeps happening.", detail, contact)
}

// IsPayloadTooLarge reports whether err is the platform's oversized upload
// rejection.
func IsPayloadTooLarge(err error) bool {
	if stderrors.Is(err, apperrors.ErrPayloadTooLarge) {
		return true
	}
	var restErr *discordgo.RESTError
	if !stderrors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && restErr.Message.Code == discordCodeEntityTooLarge {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusRequestEntityTooLarge
}

func lockedChannelReply(ctx context.Context, p *Params) error {
	channels, err := p.Listener.RequiredChannelIDs()
	if err != nil {
		return err
	}
	return p.Reply(ctx, "This can only be used in "+util.JoinMentions("<#", channels, ", ")+".", true)
}

func lockedUserReply(ctx context.Context, p *Params) error {
	if roles := p.Listener.LinkedRoles(p.Origin.GuildRoleIDs); roles != "" {
		return p.Reply(ctx, "You need the "+roles+" role to use this.", true)
	}
	return p.Reply(ctx, "You are not allowed to use this.", true)
}

func busyReply(ctx context.Context, p *Params) error {
	return p.Reply(ctx, "Still working on your previous request, please wait.", true)
}
