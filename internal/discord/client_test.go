package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/kapu/discord-dispatch-bot/internal/emitter"
	apperrors "github.com/kapu/discord-dispatch-bot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDispatcher struct {
	dispatches []emitter.Dispatch
	err        error
}

func (f *fakeDispatcher) Emit(_ context.Context, d emitter.Dispatch) error {
	f.dispatches = append(f.dispatches, d)
	return f.err
}

func TestClientForwardsServiceFailures(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	c := NewClient(nil, dispatcher, zap.NewNop())

	dispatcher.err = errors.New("plugin gate failed")
	c.dispatch(emitter.Dispatch{Event: emitter.EventReady})
	assert.Empty(t, c.Errors())

	serviceErr := apperrors.NewHandlerError(emitter.EventReady, "commands", true, errors.New("deploy failed"))
	dispatcher.err = serviceErr
	c.dispatch(emitter.Dispatch{Event: emitter.EventReady})
	c.dispatch(emitter.Dispatch{Event: emitter.EventReady})

	assert.Len(t, dispatcher.dispatches, 3)
	assert.Len(t, c.Errors(), 1, "extra failures are dropped while one is pending")
	assert.ErrorIs(t, <-c.Errors(), serviceErr)
}

func TestClientStateCallbacks(t *testing.T) {
	c := NewClient(nil, &fakeDispatcher{}, zap.NewNop())

	var seen []ConnectionState
	remove := c.OnStateChange(func(s ConnectionState) { seen = append(seen, s) })

	c.setState(StateConnecting)
	c.setState(StateConnecting)
	c.setState(StateConnected)
	assert.True(t, c.IsConnected())

	remove()
	c.setState(StateDisconnected)

	assert.Equal(t, []ConnectionState{StateConnecting, StateConnected}, seen)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientDispatchesReadyOnce(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	c := NewClient(nil, dispatcher, zap.NewNop())
	ready := &discordgo.Ready{User: &discordgo.User{ID: "bot", Username: "bot"}}

	c.onReady(nil, ready)
	c.onReady(nil, ready)

	require.Len(t, dispatcher.dispatches, 1)
	assert.Equal(t, emitter.EventReady, dispatcher.dispatches[0].Event)
	assert.Same(t, ready, dispatcher.dispatches[0].Params.Event)
}
