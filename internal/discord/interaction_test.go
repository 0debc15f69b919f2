package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponder struct {
	responses  []*discordgo.InteractionResponse
	followups  []*discordgo.WebhookParams
	respondErr error
}

func (f *fakeResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	if f.respondErr != nil {
		return f.respondErr
	}
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeResponder) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.followups = append(f.followups, data)
	return &discordgo.Message{}, nil
}

func commandInteraction() *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:      "i1",
		Type:    discordgo.InteractionApplicationCommand,
		Data:    discordgo.ApplicationCommandInteractionData{Name: "ping"},
		Member:  &discordgo.Member{User: &discordgo.User{ID: "u1"}},
		Message: &discordgo.Message{ID: "m1"},
	}
}

func TestInteractionAccessors(t *testing.T) {
	i := NewInteraction(&fakeResponder{}, commandInteraction())
	assert.Equal(t, "ping", i.CustomID())
	assert.Equal(t, "m1", i.MessageID())
	assert.Equal(t, "u1", i.UserID())
}

func TestInteractionReplyThenFollowUp(t *testing.T) {
	ctx := context.Background()
	responder := &fakeResponder{}
	i := NewInteraction(responder, commandInteraction())

	require.NoError(t, i.Reply(ctx, "first", true))
	require.NoError(t, i.Reply(ctx, "second", false))

	require.Len(t, responder.responses, 1)
	first := responder.responses[0]
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, first.Type)
	assert.Equal(t, "first", first.Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, first.Data.Flags)

	require.Len(t, responder.followups, 1)
	assert.Equal(t, "second", responder.followups[0].Content)
	assert.Zero(t, responder.followups[0].Flags)
	assert.True(t, i.Responded())
}

func TestInteractionFailedReplyStaysUnanswered(t *testing.T) {
	responder := &fakeResponder{respondErr: errors.New("unknown interaction")}
	i := NewInteraction(responder, commandInteraction())

	assert.Error(t, i.Reply(context.Background(), "x", true))
	assert.False(t, i.Responded())
}

func TestInteractionDeferThenReply(t *testing.T) {
	ctx := context.Background()
	responder := &fakeResponder{}
	i := NewInteraction(responder, commandInteraction())

	require.NoError(t, i.Defer(ctx, true))
	assert.Error(t, i.Respond(ctx, &discordgo.InteractionResponse{}), "second initial response")
	require.NoError(t, i.Reply(ctx, "done", true))

	require.Len(t, responder.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, responder.responses[0].Type)
	require.Len(t, responder.followups, 1)
}
