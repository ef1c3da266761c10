package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/nerrad567/discord-mqtt-bot/internal/audit"
	"github.com/nerrad567/discord-mqtt-bot/internal/registry"
)

// maxReplyLength is Discord's message limit.
const maxReplyLength = 2000

// auditTimeout bounds a single audit insert.
const auditTimeout = 2 * time.Second

// Logger is the logging interface used by the handler.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the registry surface used by commands.
// *registry.Registry satisfies it.
type Registry interface {
	Register(ctx context.Context, name string, recipient registry.Recipient) (registry.Entry, error)
	Unregister(ctx context.Context, recipient registry.Recipient) (registry.Entry, error)
	List() []registry.Entry
}

// Options configures a Handler.
type Options struct {
	// Registry is required.
	Registry Registry

	// Topic is shown by the example command.
	Topic string

	// Audit records register and unregister attempts. Optional.
	Audit audit.Repository

	// Logger is optional.
	Logger Logger
}

// Handler executes commands against the registry.
type Handler struct {
	registry Registry
	topic    string
	audit    audit.Repository
	logger   Logger
}

// NewHandler returns a Handler for opts.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Handler{
		registry: opts.Registry,
		topic:    opts.Topic,
		audit:    opts.Audit,
		logger:   logger,
	}, nil
}

// Register binds name to the invocation's identity.
func (h *Handler) Register(ctx context.Context, inv Invocation, name string) Reply {
	identity := inv.Identity()
	subject := "you"
	if !inv.InDM {
		subject = "this channel"
	}

	entry, err := h.registry.Register(ctx, name, identity)
	h.record(ctx, audit.ActionRegister, inv, name, identity, err)

	switch {
	case err == nil:
		h.logger.Info("registered via command",
			"name", entry.Name, "kind", identity.Kind, "platform_id", identity.PlatformID, "user", inv.UserName)
		return Reply{Content: fmt.Sprintf("✅ Successfully registered %s as %s", subject, code(entry.Name))}

	case errors.Is(err, registry.ErrAlreadyRegistered):
		return reject("This %s is already registered as %s. Unregister first with `/unregister`",
			identity.Kind, code(entry.Name))

	case errors.Is(err, registry.ErrNameTaken):
		return reject("Name %s is already taken. Please choose a different name.", code(name))

	case errors.Is(err, registry.ErrInvalidName):
		return reject("Invalid name: %s", reason(err, registry.ErrInvalidName))

	case errors.Is(err, registry.ErrInvalidRecipient):
		h.logger.Warn("register with incomplete invocation", "user_id", inv.UserID, "channel_id", inv.ChannelID)
		return reject("Could not work out who to register from this command.")

	default:
		h.logger.Error("register failed", "name", name, "recipient", identity.String(), "error", err)
		return reject("Registration failed, please try again later.")
	}
}

// Unregister removes the invoking user's entry, or failing that the
// current channel's.
func (h *Handler) Unregister(ctx context.Context, inv Invocation) Reply {
	candidates := []registry.Recipient{registry.UserRecipient(inv.UserID)}
	if !inv.InDM {
		candidates = append(candidates, registry.ChannelRecipient(inv.ChannelID))
	}

	for _, recipient := range candidates {
		if recipient.Validate() != nil {
			continue
		}
		entry, err := h.registry.Unregister(ctx, recipient)
		if errors.Is(err, registry.ErrNotRegistered) {
			continue
		}
		h.record(ctx, audit.ActionUnregister, inv, entry.Name, recipient, err)
		if err != nil {
			h.logger.Error("unregister failed", "recipient", recipient.String(), "error", err)
			return reject("Unregistering failed, please try again later.")
		}

		h.logger.Info("unregistered via command",
			"name", entry.Name, "kind", recipient.Kind, "platform_id", recipient.PlatformID, "user", inv.UserName)
		if recipient.Kind == registry.KindChannel {
			return Reply{Content: "✅ Successfully unregistered channel " + code(entry.Name)}
		}
		return Reply{Content: "✅ Successfully unregistered " + code(entry.Name)}
	}

	h.record(ctx, audit.ActionUnregister, inv, "", inv.Identity(), registry.ErrNotRegistered)
	return reject("You or this channel are not registered.")
}

// List renders all registrations grouped by kind. Users and channels are
// shown as Discord mentions so the client resolves the names.
func (h *Handler) List(_ context.Context) Reply {
	entries := h.registry.List()
	if len(entries) == 0 {
		return Reply{Content: "📋 No registrations found.", Ephemeral: true}
	}

	slices.SortStableFunc(entries, func(a, b registry.Entry) int {
		return strings.Compare(a.Name, b.Name)
	})
	byKind := lo.GroupBy(entries, func(e registry.Entry) registry.Kind { return e.Kind })

	lines := []string{"📋 **Registered Names:**"}
	if users := byKind[registry.KindUser]; len(users) > 0 {
		lines = append(lines, "", "**👤 Users:**")
		lines = append(lines, lo.Map(users, func(e registry.Entry, _ int) string {
			return "• " + code(e.Name) + " → <@" + e.PlatformID + ">"
		})...)
	}
	if channels := byKind[registry.KindChannel]; len(channels) > 0 {
		lines = append(lines, "", "**💬 Channels:**")
		lines = append(lines, lo.Map(channels, func(e registry.Entry, _ int) string {
			return "• " + code(e.Name) + " → <#" + e.PlatformID + ">"
		})...)
	}

	return Reply{Content: joinLimited(lines, maxReplyLength), Ephemeral: true}
}

// Example shows a payload for the configured topic.
func (h *Handler) Example() Reply {
	return Reply{Content: fmt.Sprintf(exampleTemplate, h.topic, h.topic), Ephemeral: true}
}

// Help lists the commands.
func (h *Handler) Help() Reply {
	return Reply{Content: helpText, Ephemeral: true}
}

// record writes an audit record when auditing is enabled. Failures are
// logged only.
func (h *Handler) record(ctx context.Context, action string, inv Invocation, name string, recipient registry.Recipient, err error) {
	if h.audit == nil {
		return
	}

	rec := &audit.Record{
		Action:     action,
		Target:     name,
		Kind:       string(recipient.Kind),
		PlatformID: recipient.PlatformID,
		Actor:      inv.UserID,
		Outcome:    outcomeFor(err),
		Details: map[string]any{
			"channel_id": inv.ChannelID,
			"in_dm":      inv.InDM,
		},
	}
	if inv.UserName != "" {
		rec.Details["user_name"] = inv.UserName
	}
	if err != nil {
		rec.Details["error"] = err.Error()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if aerr := h.audit.Create(ctx, rec); aerr != nil {
		h.logger.Warn("failed to write command audit record", "action", action, "error", aerr)
	}
}

// outcomeFor classifies a registry error for the audit trail.
func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, registry.ErrNameTaken):
		return "name_taken"
	case errors.Is(err, registry.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, registry.ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, registry.ErrInvalidName), errors.Is(err, registry.ErrInvalidRecipient):
		return "invalid"
	default:
		return "failed"
	}
}

func reject(format string, args ...any) Reply {
	return Reply{Content: "❌ " + fmt.Sprintf(format, args...), Ephemeral: true}
}

// code wraps s in an inline code span. Backticks inside s would end the
// span early, so they are replaced.
func code(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "'") + "`"
}

// reason strips the sentinel prefix from err's message.
func reason(err, sentinel error) string {
	msg := err.Error()
	if trimmed, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return trimmed
	}
	return msg
}

// joinLimited joins lines with newlines. Lines that would push the result
// over limit characters are dropped and replaced by a count.
func joinLimited(lines []string, limit int) string {
	var b strings.Builder
	size := 0
	for i, line := range lines {
		n := len([]rune(line)) + 1
		if size+n > limit-20 {
			fmt.Fprintf(&b, "… and %d more", len(lines)-i)
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
		size += n
	}
	return strings.TrimRight(b.String(), "\n")
}

const exampleTemplate = "📨 **MQTT Message Example**\n" +
	"\n" +
	"**Topic:** `%s`\n" +
	"\n" +
	"**Payload (JSON):**\n" +
	"```json\n" +
	"{\n" +
	"  \"target_id\": \"your_registered_name\",\n" +
	"  \"message\": \"The front door has been opened.\",\n" +
	"  \"source\": \"Front Door Sensor\"\n" +
	"}\n" +
	"```\n" +
	"\n" +
	"**Example using mosquitto_pub:**\n" +
	"```bash\n" +
	"mosquitto_pub -h <broker> -u <username> -P <password> \\\n" +
	"  -t \"%s\" \\\n" +
	"  -m '{\"target_id\": \"your_name\", \"message\": \"Hello from MQTT!\", \"source\": \"Test\"}'\n" +
	"```\n" +
	"\n" +
	"**Fields:**\n" +
	"• `target_id` - The registered name (user or channel)\n" +
	"• `message` - The message content to send\n" +
	"• `source` - Where the message is coming from (optional, defaults to \"Unknown\")"

const helpText = "🤖 **Discord MQTT Bot - Help**\n" +
	"\n" +
	"**Registration:**\n" +
	"• `/register <name>` - Register yourself (in DM) or channel (in server) with a name\n" +
	"• `/unregister` - Unregister yourself or current channel\n" +
	"• `/list` - List all registered users and channels\n" +
	"\n" +
	"**Information:**\n" +
	"• `/example` - Show MQTT payload example\n" +
	"• `/help` - Show this help message\n" +
	"\n" +
	"**How it works:**\n" +
	"1. Use `/register` in a DM to register yourself, or in a channel to register that channel\n" +
	"2. External services send MQTT messages to the bot\n" +
	"3. Bot relays messages to registered users/channels\n" +
	"4. Names are shared between users and channels (no duplicates)\n" +
	"\n" +
	"**Notes:**\n" +
	"• Only one name per user/channel\n" +
	"• Names must be unique across all registrations\n" +
	"• Registrations persist through bot restarts"
