package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/kapu/discord-dispatch-bot/internal/emitter"
	apperrors "github.com/kapu/discord-dispatch-bot/pkg/errors"
	"go.uber.org/zap"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsDirectMessages

// Client owns the gateway session and translates its events into
// dispatches.
type Client struct {
	session    *discordgo.Session
	dispatcher Dispatcher
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	state          ConnectionState
	stateMu        sync.RWMutex
	stateCallbacks []stateCallbackEntry
	nextCallbackID int
	callbacksMu    sync.RWMutex

	removeHandlers []func()
	errCh          chan error
	readyOnce      sync.Once
	closeOnce      sync.Once
}

// NewSession builds a bot session with the intents the dispatcher needs.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, apperrors.NewBotError("failed to create session", apperrors.CodeAPIError, nil).WithCause(err)
	}
	session.Identify.Intents = intents
	return session, nil
}

func NewClient(session *discordgo.Session, dispatcher Dispatcher, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		session:        session,
		dispatcher:     dispatcher,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
		state:          StateDisconnected,
		nextCallbackID: 1,
		errCh:          make(chan error, 1),
	}
}

func (c *Client) Session() *discordgo.Session { return c.session }

// Errors delivers service failures returned by dispatches.
func (c *Client) Errors() <-chan error { return c.errCh }

func (c *Client) Open() error {
	c.stateMu.RLock()
	state := c.state
	c.stateMu.RUnlock()
	if state == StateConnected || state == StateConnecting {
		c.logger.Warn("Gateway already connected or connecting")
		return nil
	}

	c.removeHandlers = append(c.removeHandlers,
		c.session.AddHandler(c.onConnect),
		c.session.AddHandler(c.onDisconnect),
		c.session.AddHandler(c.onResumed),
		c.session.AddHandler(c.onReady),
		c.session.AddHandler(c.onMessageCreate),
		c.session.AddHandler(c.onGuildMemberAdd),
		c.session.AddHandler(c.onInteractionCreate),
	)

	c.setState(StateConnecting)
	if err := c.session.Open(); err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		for _, remove := range c.removeHandlers {
			remove()
		}
		c.removeHandlers = nil
		if closeErr := c.session.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close gateway: %w", closeErr)
		}
		c.setState(StateClosed)
		c.logger.Info("Gateway closed")
	})
	return err
}

func (c *Client) onConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	c.setState(StateConnected)
}

func (c *Client) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	c.setState(StateDisconnected)
}

func (c *Client) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	c.setState(StateResumed)
}

// onReady dispatches the startup event once. Later Ready events follow full
// reconnects and must not schedule cron jobs again.
func (c *Client) onReady(s *discordgo.Session, r *discordgo.Ready) {
	c.logger.Info("Gateway ready",
		zap.String("user", r.User.String()),
		zap.Int("guilds", len(r.Guilds)),
	)
	c.readyOnce.Do(func() {
		c.dispatch(emitter.Dispatch{
			Event:  emitter.EventReady,
			Params: emitter.Params{Session: s, Event: r},
		})
	})
}

func (c *Client) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	c.dispatch(emitter.Dispatch{
		Event: emitter.EventMessageCreate,
		Params: emitter.Params{
			Session: s,
			Event:   m,
			Origin:  MessageOrigin(s.State, m.Message),
		},
	})
}

func (c *Client) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	c.dispatch(emitter.Dispatch{
		Event: emitter.EventGuildMemberAdd,
		Params: emitter.Params{
			Session: s,
			Event:   m,
			Origin:  MemberOrigin(s.State, m.Member),
		},
	})
}

func (c *Client) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if CustomIDOf(i.Interaction) == "" {
		c.logger.Debug("Ignoring interaction without key", zap.Int("type", int(i.Type)))
		return
	}
	c.dispatch(emitter.Dispatch{
		Interaction: NewInteraction(s, i.Interaction),
		Params: emitter.Params{
			Session: s,
			Event:   i,
			Origin:  InteractionOrigin(s.State, i.Interaction),
		},
	})
}

func (c *Client) dispatch(d emitter.Dispatch) {
	err := c.dispatcher.Emit(c.ctx, d)
	if err == nil {
		return
	}
	if !apperrors.IsService(err) {
		c.logger.Error("Dispatch failed", zap.Error(err))
		return
	}
	select {
	case c.errCh <- err:
	default:
		c.logger.Error("Dropped service failure", zap.Error(err))
	}
}

func (c *Client) OnStateChange(callback StateCallback) func() {
	c.callbacksMu.Lock()
	id := c.nextCallbackID
	c.nextCallbackID++
	c.stateCallbacks = append(c.stateCallbacks, stateCallbackEntry{
		id:       id,
		callback: callback,
	})
	c.callbacksMu.Unlock()

	return func() {
		c.callbacksMu.Lock()
		defer c.callbacksMu.Unlock()
		for i, entry := range c.stateCallbacks {
			if entry.id == id {
				c.stateCallbacks = append(c.stateCallbacks[:i], c.stateCallbacks[i+1:]...)
				break
			}
		}
	}
}

func (c *Client) setState(newState ConnectionState) {
	c.stateMu.Lock()
	oldState := c.state
	c.state = newState
	c.stateMu.Unlock()

	if oldState == newState {
		return
	}
	c.logger.Info("Gateway state changed",
		zap.String("from", oldState.String()),
		zap.String("to", newState.String()),
	)

	c.callbacksMu.RLock()
	callbacks := make([]stateCallbackEntry, len(c.stateCallbacks))
	copy(callbacks, c.stateCallbacks)
	c.callbacksMu.RUnlock()

	for _, entry := range callbacks {
		entry.callback(newState)
	}
}

func (c *Client) State() ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Client) IsConnected() bool {
	s := c.State()
	return s == StateConnected || s == StateResumed
}
