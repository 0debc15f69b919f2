package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/kapu/discord-dispatch-bot/internal/emitter"
)

// CustomIDOf returns the dispatch key of an interaction: the command name
// for application commands, the custom id for components and modals.
func CustomIDOf(i *discordgo.Interaction) string {
	if i == nil || i.Data == nil {
		return ""
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand, discordgo.InteractionApplicationCommandAutocomplete:
		return i.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		return i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		return i.ModalSubmitData().CustomID
	default:
		return ""
	}
}

// UserOf returns the invoking user, which lives on Member inside guilds and
// on User in direct messages.
func UserOf(i *discordgo.Interaction) *discordgo.User {
	if i == nil {
		return nil
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// InteractionOrigin resolves gate context for an interaction. Channel type
// and guild roles come from the state cache; a cache miss leaves the channel
// type as guild text inside guilds and DM elsewhere.
func InteractionOrigin(state *discordgo.State, i *discordgo.Interaction) emitter.Origin {
	origin := emitter.Origin{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
	}
	if u := UserOf(i); u != nil {
		origin.UserID = u.ID
	}
	if i.Member != nil {
		origin.RoleIDs = i.Member.Roles
	}
	if i.Message != nil {
		origin.MessageID = i.Message.ID
	}
	origin.ChannelType = channelType(state, i.GuildID, i.ChannelID)
	origin.GuildRoleIDs = guildRoleIDs(state, i.GuildID)
	return origin
}

func MessageOrigin(state *discordgo.State, m *discordgo.Message) emitter.Origin {
	origin := emitter.Origin{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
	}
	if m.Author != nil {
		origin.UserID = m.Author.ID
	}
	if m.Member != nil {
		origin.RoleIDs = m.Member.Roles
	}
	origin.ChannelType = channelType(state, m.GuildID, m.ChannelID)
	origin.GuildRoleIDs = guildRoleIDs(state, m.GuildID)
	return origin
}

func MemberOrigin(state *discordgo.State, m *discordgo.Member) emitter.Origin {
	origin := emitter.Origin{
		GuildID: m.GuildID,
		RoleIDs: m.Roles,
	}
	if m.User != nil {
		origin.UserID = m.User.ID
	}
	origin.GuildRoleIDs = guildRoleIDs(state, m.GuildID)
	return origin
}

func channelType(state *discordgo.State, guildID, channelID string) discordgo.ChannelType {
	if state != nil && channelID != "" {
		if ch, err := state.Channel(channelID); err == nil {
			return ch.Type
		}
	}
	if guildID == "" {
		return discordgo.ChannelTypeDM
	}
	return discordgo.ChannelTypeGuildText
}

func guildRoleIDs(state *discordgo.State, guildID string) []string {
	if state == nil || guildID == "" {
		return nil
	}
	guild, err := state.Guild(guildID)
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(guild.Roles))
	for _, role := range guild.Roles {
		ids = append(ids, role.ID)
	}
	return ids
}
