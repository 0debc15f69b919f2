package emitter

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Passive platform events the registry understands. Interaction keys are the
// command name or component custom id and need no declaration.
const (
	EventReady          = "ready"
	EventMessageCreate  = "messageCreate"
	EventGuildMemberAdd = "guildMemberAdd"
)

// HandlerFunc is the primary, busy or locked behavior of a Listener.
type HandlerFunc func(ctx context.Context, p *Params) error

// Interaction is an inbound interaction that can be answered.
type Interaction interface {
	// CustomID is the dispatch key: command name or component custom id.
	CustomID() string
	MessageID() string
	UserID() string
	Reply(ctx context.Context, content string, ephemeral bool) error
}

// Origin is the platform context used to evaluate gates.
type Origin struct {
	GuildID      string
	ChannelID    string
	ChannelType  discordgo.ChannelType
	UserID       string
	RoleIDs      []string
	GuildRoleIDs []string
	MessageID    string
}

// Params is forwarded to every resolved handler. Listener and Emitter are
// filled per handler by the registry.
type Params struct {
	Session     *discordgo.Session
	Interaction Interaction
	Event       any
	Origin      Origin

	Listener *Listener
	Emitter  *Emitter
}

// Reply answers the originating interaction. It is a no-op for passive events.
func (p *Params) Reply(ctx context.Context, content string, ephemeral bool) error {
	if p == nil || p.Interaction == nil {
		return nil
	}
	return p.Interaction.Reply(ctx, content, ephemeral)
}

// Dispatch is one inbound call into the registry. Exactly one of Event and
// Interaction selects the handler chain.
type Dispatch struct {
	Event       string
	Interaction Interaction
	Params      Params
}

func (d Dispatch) key() (string, bool) {
	switch {
	case d.Event != "" && d.Interaction == nil:
		return d.Event, true
	case d.Event == "" && d.Interaction != nil && d.Interaction.CustomID() != "":
		return d.Interaction.CustomID(), true
	default:
		return "", false
	}
}
