package commands

import "github.com/nerrad567/discord-mqtt-bot/internal/registry"

// Invocation describes who ran a command and where.
type Invocation struct {
	// UserID is the invoking user's ID.
	UserID string

	// UserName is used for logs and audit records only.
	UserName string

	// ChannelID is the channel the command was run in. For a direct message
	// this is the DM channel.
	ChannelID string

	// InDM is true when the command was run in a direct message.
	InDM bool
}

// Identity returns the recipient that register binds a name to: the user
// in a DM, the channel otherwise.
func (inv Invocation) Identity() registry.Recipient {
	if inv.InDM {
		return registry.UserRecipient(inv.UserID)
	}
	return registry.ChannelRecipient(inv.ChannelID)
}

// Reply is the response to a command.
type Reply struct {
	Content string

	// Ephemeral replies are shown only to the invoking user.
	Ephemeral bool
}
