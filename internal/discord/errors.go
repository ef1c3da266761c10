package discord

import "errors"

var (
	// ErrNotConnected is returned by HealthCheck while the gateway session
	// is not ready.
	ErrNotConnected = errors.New("discord: not connected")

	// ErrClosed is returned by sends after Close.
	ErrClosed = errors.New("discord: bot closed")

	// ErrConnectionFailed is returned when the gateway session cannot be opened.
	ErrConnectionFailed = errors.New("discord: connection failed")

	// ErrCommandSyncFailed is returned when slash commands could not be
	// registered after all attempts.
	ErrCommandSyncFailed = errors.New("discord: command sync failed")

	// ErrForbidden is returned when Discord refuses a send, for example a
	// user who blocks DMs from server members.
	ErrForbidden = errors.New("discord: forbidden")

	// ErrUnknownChannel is returned when the target channel no longer exists.
	ErrUnknownChannel = errors.New("discord: unknown channel")

	// ErrSendFailed is returned for any other send failure.
	ErrSendFailed = errors.New("discord: send failed")
)
