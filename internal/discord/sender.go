package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// SendDirect delivers content as a direct message to userID. The DM
// channel is created on first use and cached.
//
// Sends are REST calls and do not need the gateway, so they proceed while
// the websocket reconnects. Only Close stops them.
func (b *Bot) SendDirect(ctx context.Context, userID, content string) error {
	if b.closed() {
		return ErrClosed
	}
	channelID, err := b.dmChannel(ctx, userID)
	if err != nil {
		return err
	}

	err = b.send(ctx, channelID, content)
	if errors.Is(err, ErrUnknownChannel) {
		b.dmChannels.Delete(userID)
	}
	return err
}

// SendChannel posts content into channelID.
func (b *Bot) SendChannel(ctx context.Context, channelID, content string) error {
	return b.send(ctx, channelID, content)
}

func (b *Bot) dmChannel(ctx context.Context, userID string) (string, error) {
	if id, ok := b.dmChannels.Load(userID); ok {
		return id.(string), nil
	}

	ch, err := b.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("opening DM with %s: %w", userID, classify(err))
	}
	b.dmChannels.Store(userID, ch.ID)
	return ch.ID, nil
}

func (b *Bot) send(ctx context.Context, channelID, content string) error {
	if b.closed() {
		return ErrClosed
	}
	_, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sending to channel %s: %w", channelID, classify(err))
	}
	return nil
}

// closed reports whether Close has been called.
func (b *Bot) closed() bool {
	return b.ctx.Err() != nil
}

// classify maps Discord REST errors onto package sentinels while keeping
// the original error in the chain.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeCannotSendMessagesToThisUser, discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return fmt.Errorf("%w: %w", ErrForbidden, err)
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownUser:
			return fmt.Errorf("%w: %w", ErrUnknownChannel, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrSendFailed, err)
}
