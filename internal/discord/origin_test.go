package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState(t *testing.T) *discordgo.State {
	t.Helper()
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID:    "g1",
		Roles: []*discordgo.Role{{ID: "r-admin"}, {ID: "r-mod"}},
		Channels: []*discordgo.Channel{
			{ID: "c-text", GuildID: "g1", Type: discordgo.ChannelTypeGuildText},
			{ID: "c-voice", GuildID: "g1", Type: discordgo.ChannelTypeGuildVoice},
		},
	}))
	return state
}

func TestCustomIDOf(t *testing.T) {
	tests := []struct {
		name string
		in   *discordgo.Interaction
		want string
	}{
		{"nil", nil, ""},
		{"command", &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{Name: "ping"},
		}, "ping"},
		{"component", &discordgo.Interaction{
			Type: discordgo.InteractionMessageComponent,
			Data: discordgo.MessageComponentInteractionData{CustomID: "ping:refresh"},
		}, "ping:refresh"},
		{"modal", &discordgo.Interaction{
			Type: discordgo.InteractionModalSubmit,
			Data: discordgo.ModalSubmitInteractionData{CustomID: "report"},
		}, "report"},
		{"ping", &discordgo.Interaction{Type: discordgo.InteractionPing}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CustomIDOf(tt.in))
		})
	}
}

func TestInteractionOriginInGuild(t *testing.T) {
	state := newState(t)
	i := &discordgo.Interaction{
		GuildID:   "g1",
		ChannelID: "c-voice",
		Member: &discordgo.Member{
			User:  &discordgo.User{ID: "u1"},
			Roles: []string{"r-mod"},
		},
		Message: &discordgo.Message{ID: "m1"},
	}

	origin := InteractionOrigin(state, i)
	assert.Equal(t, "g1", origin.GuildID)
	assert.Equal(t, "c-voice", origin.ChannelID)
	assert.Equal(t, discordgo.ChannelTypeGuildVoice, origin.ChannelType)
	assert.Equal(t, "u1", origin.UserID)
	assert.Equal(t, []string{"r-mod"}, origin.RoleIDs)
	assert.ElementsMatch(t, []string{"r-admin", "r-mod"}, origin.GuildRoleIDs)
	assert.Equal(t, "m1", origin.MessageID)
}

func TestInteractionOriginInDirectMessage(t *testing.T) {
	origin := InteractionOrigin(discordgo.NewState(), &discordgo.Interaction{
		ChannelID: "dm",
		User:      &discordgo.User{ID: "u2"},
	})
	assert.Equal(t, "u2", origin.UserID)
	assert.Equal(t, discordgo.ChannelTypeDM, origin.ChannelType)
	assert.Empty(t, origin.RoleIDs)
	assert.Empty(t, origin.GuildRoleIDs)
}

func TestMessageOrigin(t *testing.T) {
	origin := MessageOrigin(newState(t), &discordgo.Message{
		ID:        "m2",
		GuildID:   "g1",
		ChannelID: "c-unknown",
		Author:    &discordgo.User{ID: "u3"},
		Member:    &discordgo.Member{Roles: []string{"r-admin"}},
	})
	assert.Equal(t, "u3", origin.UserID)
	assert.Equal(t, "m2", origin.MessageID)
	assert.Equal(t, discordgo.ChannelTypeGuildText, origin.ChannelType, "cache miss inside a guild")
	assert.Equal(t, []string{"r-admin"}, origin.RoleIDs)
}

func TestMemberOrigin(t *testing.T) {
	origin := MemberOrigin(newState(t), &discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: "u4"},
	})
	assert.Equal(t, "u4", origin.UserID)
	assert.Len(t, origin.GuildRoleIDs, 2)
}
