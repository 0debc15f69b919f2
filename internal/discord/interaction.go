package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// InteractionResponder is the part of *discordgo.Session used to answer
// interactions.
type InteractionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Interaction adapts a gateway interaction to emitter.Interaction. The first
// answer is the interaction response; later answers are follow-ups.
type Interaction struct {
	raw     *discordgo.Interaction
	session InteractionResponder

	mu        sync.Mutex
	responded bool
}

func NewInteraction(session InteractionResponder, raw *discordgo.Interaction) *Interaction {
	return &Interaction{raw: raw, session: session}
}

func (i *Interaction) Raw() *discordgo.Interaction { return i.raw }
func (i *Interaction) CustomID() string            { return CustomIDOf(i.raw) }

func (i *Interaction) MessageID() string {
	if i.raw.Message == nil {
		return ""
	}
	return i.raw.Message.ID
}

func (i *Interaction) UserID() string {
	if u := UserOf(i.raw); u != nil {
		return u.ID
	}
	return ""
}

func (i *Interaction) Responded() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.responded
}

func (i *Interaction) Reply(ctx context.Context, content string, ephemeral bool) error {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.responded {
		return i.respondLocked(ctx, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
		})
	}

	_, err := i.session.FollowupMessageCreate(i.raw, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   flags,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send follow-up: %w", err)
	}
	return nil
}

// Respond sends a custom initial response, e.g. with components or a message
// update. It fails once the interaction has been answered.
func (i *Interaction) Respond(ctx context.Context, resp *discordgo.InteractionResponse) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.responded {
		return fmt.Errorf("interaction %s already answered", i.raw.ID)
	}
	return i.respondLocked(ctx, resp)
}

// Defer acknowledges the interaction so the handler may answer later with
// follow-ups.
func (i *Interaction) Defer(ctx context.Context, ephemeral bool) error {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return i.Respond(ctx, resp)
}

// must be called with i.mu held
func (i *Interaction) respondLocked(ctx context.Context, resp *discordgo.InteractionResponse) error {
	if err := i.session.InteractionRespond(i.raw, resp, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to respond to interaction: %w", err)
	}
	i.responded = true
	return nil
}
