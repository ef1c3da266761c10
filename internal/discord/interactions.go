package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/nerrad567/discord-mqtt-bot/internal/commands"
)

// handleInteraction routes a slash command to the command handler and
// responds. Panics in the handler are recovered and answered with a
// generic failure.
func (b *Bot) handleInteraction(i *discordgo.Interaction) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	data := i.ApplicationCommandData()
	inv := invocationFrom(i)

	reply := b.dispatchCommand(ctx, data, inv)

	b.logger.Debug("slash command handled",
		"command", data.Name, "user_id", inv.UserID, "channel_id", inv.ChannelID, "in_dm", inv.InDM)

	if err := b.respond(ctx, i, reply); err != nil {
		b.logger.Error("failed to respond to interaction", "command", data.Name, "error", err)
	}
}

func (b *Bot) dispatchCommand(ctx context.Context, data discordgo.ApplicationCommandInteractionData, inv commands.Invocation) (reply commands.Reply) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("panic in command handler", "command", data.Name, "panic", p)
			reply = commands.Reply{Content: "❌ Something went wrong handling that command.", Ephemeral: true}
		}
	}()

	switch data.Name {
	case CommandRegister:
		return b.commands.Register(ctx, inv, stringOption(data, optionName))
	case CommandUnregister:
		return b.commands.Unregister(ctx, inv)
	case CommandList:
		return b.commands.List(ctx)
	case CommandExample:
		return b.commands.Example()
	case CommandHelp:
		return b.commands.Help()
	default:
		b.logger.Warn("unknown slash command", "command", data.Name)
		return commands.Reply{Content: fmt.Sprintf("❌ Unknown command `%s`.", data.Name), Ephemeral: true}
	}
}

// respond sends reply as the interaction response. Mentions in replies
// are rendered but never ping anyone.
func (b *Bot) respond(ctx context.Context, i *discordgo.Interaction, reply commands.Reply) error {
	data := &discordgo.InteractionResponseData{
		Content:         reply.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	return b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx))
}

// invocationFrom extracts the caller. Guild interactions carry Member,
// DM interactions carry User.
func invocationFrom(i *discordgo.Interaction) commands.Invocation {
	inv := commands.Invocation{
		ChannelID: i.ChannelID,
		InDM:      i.GuildID == "",
	}

	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user != nil {
		inv.UserID = user.ID
		inv.UserName = user.Username
	}
	return inv
}

func stringOption(data discordgo.ApplicationCommandInteractionData, name string) string {
	for _, opt := range data.Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}
