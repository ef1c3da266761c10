package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sethvargo/go-retry"

	"github.com/nerrad567/discord-mqtt-bot/internal/commands"
)

const (
	// defaultSyncAttempts bounds the slash command bulk overwrite.
	defaultSyncAttempts = 5

	// defaultSyncBackoff is the first retry delay; it doubles each attempt.
	defaultSyncBackoff = time.Second

	// maxSyncBackoff caps a single retry delay.
	maxSyncBackoff = 30 * time.Second

	// defaultReadyTimeout bounds the wait for the gateway READY event.
	defaultReadyTimeout = 30 * time.Second

	// commandTimeout is Discord's deadline for the initial interaction response.
	commandTimeout = 3 * time.Second
)

// Logger is the logging interface used by the bot.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Session is the subset of *discordgo.Session used by the bot.
type Session interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	HeartbeatLatency() time.Duration

	ApplicationCommandBulkOverwrite(appID, guildID string, cmds []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// CommandHandler executes slash commands. *commands.Handler satisfies it.
type CommandHandler interface {
	Register(ctx context.Context, inv commands.Invocation, name string) commands.Reply
	Unregister(ctx context.Context, inv commands.Invocation) commands.Reply
	List(ctx context.Context) commands.Reply
	Example() commands.Reply
	Help() commands.Reply
}

// Options configures a Bot.
type Options struct {
	// Token is the bot token, without the "Bot " prefix. Required by New.
	Token string

	// GuildID limits slash commands to one guild, which makes them
	// available immediately. Empty registers them globally.
	GuildID string

	// Commands serves slash commands. Required.
	Commands CommandHandler

	// SyncAttempts bounds the command sync. Zero means 5.
	SyncAttempts int

	// Logger is optional.
	Logger Logger
}

// Bot is a Discord gateway session serving slash commands and delivering
// notifications.
//
// Thread Safety: all methods are safe for concurrent use.
type Bot struct {
	session      Session
	commands     CommandHandler
	guildID      string
	syncAttempts int
	syncBackoff  time.Duration
	readyTimeout time.Duration
	logger       Logger

	mu       sync.RWMutex
	appID    string
	userName string

	readyCh   chan struct{}
	readyOnce sync.Once
	connected atomic.Bool

	// dmChannels caches user ID → DM channel ID.
	dmChannels sync.Map

	removeHandlers []func()

	// ctx bounds interaction handling; cancelled by Close.
	ctx       context.Context
	ctxCancel context.CancelFunc
	closeOnce sync.Once
}

// New creates a discordgo session for opts.Token. Call Start to connect.
func New(opts Options) (*Bot, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrConnectionFailed)
	}
	s, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsDirectMessages
	s.ShouldReconnectOnError = true

	return NewWithSession(s, opts)
}

// NewWithSession creates a bot over an existing session.
func NewWithSession(s Session, opts Options) (*Bot, error) {
	if s == nil {
		return nil, fmt.Errorf("session is required")
	}
	if opts.Commands == nil {
		return nil, fmt.Errorf("command handler is required")
	}

	attempts := opts.SyncAttempts
	if attempts <= 0 {
		attempts = defaultSyncAttempts
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bot{
		session:      s,
		commands:     opts.Commands,
		guildID:      opts.GuildID,
		syncAttempts: attempts,
		syncBackoff:  defaultSyncBackoff,
		readyTimeout: defaultReadyTimeout,
		logger:       logger,
		readyCh:      make(chan struct{}),
		ctx:          ctx,
		ctxCancel:    cancel,
	}, nil
}

// Start opens the gateway session, waits for READY and synchronises the
// slash commands.
func (b *Bot) Start(ctx context.Context) error {
	b.removeHandlers = append(b.removeHandlers,
		b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) { b.handleReady(r) }),
		b.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) { b.handleDisconnect() }),
		b.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) { b.handleResumed() }),
		b.session.AddHandler(func(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
			b.handleInteraction(ic.Interaction)
		}),
	)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.readyTimeout)
	defer cancel()
	select {
	case <-b.readyCh:
	case <-waitCtx.Done():
		return fmt.Errorf("%w: waiting for ready: %w", ErrConnectionFailed, waitCtx.Err())
	}

	return b.syncCommands(ctx)
}

// syncCommands overwrites the registered slash commands, retrying with
// exponential backoff.
func (b *Bot) syncCommands(ctx context.Context) error {
	appID := b.ApplicationID()
	defs := Definitions()

	backoff := retry.NewExponential(b.syncBackoff)
	backoff = retry.WithCappedDuration(maxSyncBackoff, backoff)
	backoff = retry.WithMaxRetries(uint64(b.syncAttempts-1), backoff)

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		created, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, defs, discordgo.WithContext(ctx))
		if err != nil {
			b.logger.Warn("slash command sync failed", "attempt", attempt, "max_attempts", b.syncAttempts, "error", err)
			return retry.RetryableError(err)
		}
		b.logger.Info("slash commands synced", "count", len(created), "guild_id", b.guildID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w after %d attempts: %w", ErrCommandSyncFailed, attempt, err)
	}
	return nil
}

func (b *Bot) handleReady(r *discordgo.Ready) {
	b.mu.Lock()
	if r.Application != nil {
		b.appID = r.Application.ID
	}
	if r.User != nil {
		if b.appID == "" {
			b.appID = r.User.ID
		}
		b.userName = r.User.Username
	}
	name := b.userName
	b.mu.Unlock()

	b.connected.Store(true)
	b.readyOnce.Do(func() { close(b.readyCh) })
	b.logger.Info("discord session ready", "user", name, "guilds", len(r.Guilds))
}

func (b *Bot) handleDisconnect() {
	b.connected.Store(false)
	b.logger.Warn("discord gateway disconnected")
}

func (b *Bot) handleResumed() {
	b.connected.Store(true)
	b.logger.Info("discord gateway resumed")
}

// ApplicationID returns the application ID learned from READY.
func (b *Bot) ApplicationID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.appID
}

// IsConnected reports whether the gateway session is ready.
func (b *Bot) IsConnected() bool {
	if b == nil {
		return false
	}
	return b.connected.Load()
}

// HealthCheck reports whether the gateway session is ready.
func (b *Bot) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Latency returns the last gateway heartbeat round trip.
func (b *Bot) Latency() time.Duration {
	return b.session.HeartbeatLatency()
}

// Close removes event handlers and closes the gateway session.
// Safe to call more than once and on a nil Bot.
func (b *Bot) Close() error {
	if b == nil {
		return nil
	}
	var err error
	b.closeOnce.Do(func() {
		b.ctxCancel()
		for _, remove := range b.removeHandlers {
			remove()
		}
		b.connected.Store(false)
		if cerr := b.session.Close(); cerr != nil && !errors.Is(cerr, discordgo.ErrWSNotFound) {
			err = fmt.Errorf("closing discord session: %w", cerr)
		}
		b.logger.Info("discord session closed")
	})
	return err
}
