package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/nerrad567/discord-mqtt-bot/internal/registry"
)

// Slash command names.
const (
	CommandRegister   = "register"
	CommandUnregister = "unregister"
	CommandList       = "list"
	CommandExample    = "example"
	CommandHelp       = "help"

	optionName = "name"
)

// Definitions returns the slash commands the bot serves.
func Definitions() []*discordgo.ApplicationCommand {
	dm := true
	minLen := 1

	return []*discordgo.ApplicationCommand{
		{
			Name:         CommandRegister,
			Description:  "Register yourself (in DM) or channel with a name for notifications",
			DMPermission: &dm,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionName,
					Description: "The name you want to register with",
					Required:    true,
					MinLength:   &minLen,
					MaxLength:   registry.MaxNameLength,
				},
			},
		},
		{
			Name:         CommandUnregister,
			Description:  "Unregister yourself or this channel",
			DMPermission: &dm,
		},
		{
			Name:         CommandList,
			Description:  "List all registered users and channels",
			DMPermission: &dm,
		},
		{
			Name:         CommandExample,
			Description:  "Show an example of the MQTT payload format",
			DMPermission: &dm,
		},
		{
			Name:         CommandHelp,
			Description:  "Show help information",
			DMPermission: &dm,
		},
	}
}
