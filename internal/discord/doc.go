// Package discord connects the bot to Discord using discordgo.
//
// The Bot type has two roles:
//   - It serves the slash commands (register, unregister, list, example,
//     help) by translating interactions into commands.Handler calls
//   - It is the relay.Sender used by the dispatcher to deliver
//     notifications as direct messages or channel posts
//
// Slash commands are synchronised once at start-up with a bulk overwrite,
// retried with exponential backoff. Notification sends are never retried.
//
// Usage:
//
//	bot, err := discord.New(discord.Options{
//	    Token:    cfg.Discord.Token,
//	    GuildID:  cfg.Discord.GuildID,
//	    Commands: handler,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := bot.Start(ctx); err != nil {
//	    return err
//	}
//	defer bot.Close()
package discord
