package emitter

import "github.com/bwmarrin/discordgo"

// DeploymentType selects how a Listener is published to the platform's
// command UI.
type DeploymentType string

const (
	DeploymentNone            DeploymentType = ""
	DeploymentSlashCommand    DeploymentType = "slash_command"
	DeploymentUserContextMenu DeploymentType = "user_context_menu"
)

func (d DeploymentType) String() string {
	if d == DeploymentNone {
		return "none"
	}
	return string(d)
}

func (d DeploymentType) IsValid() bool {
	switch d {
	case DeploymentNone, DeploymentSlashCommand, DeploymentUserContextMenu:
		return true
	default:
		return false
	}
}

// Deployment builds the command registration payload for the listener, or
// nil when it is not deployed.
func (l *Listener) Deployment() *discordgo.ApplicationCommand {
	if l == nil || l.deploymentType == DeploymentNone {
		return nil
	}

	cmd := &discordgo.ApplicationCommand{Name: l.commandName}
	switch l.deploymentType {
	case DeploymentSlashCommand:
		cmd.Type = discordgo.ChatApplicationCommand
		cmd.Description = l.description
	case DeploymentUserContextMenu:
		// context menu commands reject descriptions
		cmd.Type = discordgo.UserApplicationCommand
	}

	if len(l.contextTypes) > 0 {
		contexts := make([]discordgo.InteractionContextType, len(l.contextTypes))
		copy(contexts, l.contextTypes)
		cmd.Contexts = &contexts
	}
	return cmd
}
