package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/discord-mqtt-bot/internal/registry"
)

// DefaultDeliveryTimeout bounds one Discord send when Options leaves it zero.
const DefaultDeliveryTimeout = 10 * time.Second

// Logger is the logging interface used by the dispatcher.
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

// Resolver looks up a registered target name. *registry.Registry satisfies it.
type Resolver interface {
	Lookup(name string) (registry.Entry, bool)
}

// Sender delivers text to Discord. Implemented by discord.Bot.
type Sender interface {
	// SendDirect opens (or reuses) the DM channel with userID and posts content.
	SendDirect(ctx context.Context, userID, content string) error

	// SendChannel posts content into channelID.
	SendChannel(ctx context.Context, channelID, content string) error
}

// Subscriber is the MQTT subscription surface the dispatcher needs.
// *mqtt.Client satisfies it through a small adapter in main.
type Subscriber interface {
	Subscribe(ctx context.Context, filter string, qos byte, handler func(topic string, payload []byte) error) error
	Unsubscribe(ctx context.Context, filter string) error
}

// Options configures a Dispatcher.
type Options struct {
	// Registry resolves target names. Required.
	Registry Resolver

	// Sender delivers to Discord. Required.
	Sender Sender

	// Subscriber is the MQTT client. Required for Start; HandleMessage
	// works without it.
	Subscriber Subscriber

	// Topic is the notification topic. Required for Start.
	Topic string

	// QoS for the subscription (0-2).
	QoS byte

	// DeliveryTimeout bounds each Discord send. Zero means DefaultDeliveryTimeout.
	DeliveryTimeout time.Duration

	// DefaultSource replaces a missing source. Empty means "Unknown".
	DefaultSource string

	// Recorders observe every outcome (metrics, audit, telemetry).
	Recorders []Recorder

	// Logger is optional.
	Logger Logger
}

// Stats is a point-in-time count of handled messages.
type Stats struct {
	Received       uint64 `json:"received"`
	Delivered      uint64 `json:"delivered"`
	InvalidPayload uint64 `json:"invalid_payload"`
	UnknownTarget  uint64 `json:"unknown_target"`
	Failed         uint64 `json:"failed"`
}

// Dispatcher routes MQTT notifications to Discord.
//
// Thread Safety: HandleMessage may be called from many goroutines at once.
type Dispatcher struct {
	registry   Resolver
	sender     Sender
	subscriber Subscriber
	parser     *Parser
	topic      string
	qos        byte
	timeout    time.Duration
	recorders  []Recorder
	logger     Logger
	now        func() time.Time

	// ctx is cancelled by Stop so in-flight sends abort.
	ctx       context.Context
	ctxCancel context.CancelFunc
	inflight  sync.WaitGroup
	stopMu    sync.RWMutex
	stopped   bool
	stopOnce  sync.Once
	started   atomic.Bool

	received, delivered, invalid, unknown, failed atomic.Uint64
}

// NewDispatcher validates opts and returns a dispatcher.
// Call Start to subscribe.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if opts.QoS > 2 {
		return nil, fmt.Errorf("invalid QoS %d", opts.QoS)
	}

	timeout := opts.DeliveryTimeout
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		registry:   opts.Registry,
		sender:     opts.Sender,
		subscriber: opts.Subscriber,
		parser:     NewParser(opts.DefaultSource),
		topic:      opts.Topic,
		qos:        opts.QoS,
		timeout:    timeout,
		recorders:  opts.Recorders,
		logger:     logger,
		now:        time.Now,
		ctx:        ctx,
		ctxCancel:  cancel,
	}, nil
}

// Start subscribes to the notification topic.
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.subscriber == nil {
		return fmt.Errorf("subscriber is required")
	}
	if d.topic == "" {
		return fmt.Errorf("topic is required")
	}
	if err := d.subscriber.Subscribe(ctx, d.topic, d.qos, d.HandleMessage); err != nil {
		return fmt.Errorf("subscribe to %s: %w", d.topic, err)
	}
	d.started.Store(true)
	d.logger.Info("listening for notifications", "topic", d.topic, "qos", d.qos)
	return nil
}

// Stop unsubscribes, cancels in-flight deliveries and waits for them.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.stopOnce.Do(func() {
		if d.started.Load() {
			if err := d.subscriber.Unsubscribe(ctx, d.topic); err != nil {
				d.logger.Warn("failed to unsubscribe", "topic", d.topic, "error", err)
			}
		}
		d.stopMu.Lock()
		d.stopped = true
		d.stopMu.Unlock()

		d.ctxCancel()
		d.inflight.Wait()
		d.logger.Info("dispatcher stopped")
	})
}

// HandleMessage processes one MQTT message. It never returns an error for
// bad input or failed deliveries; those are logged and recorded.
// Messages arriving after Stop are dropped.
func (d *Dispatcher) HandleMessage(topic string, payload []byte) error {
	d.stopMu.RLock()
	if d.stopped {
		d.stopMu.RUnlock()
		return nil
	}
	d.inflight.Add(1)
	d.stopMu.RUnlock()
	defer d.inflight.Done()

	d.received.Add(1)
	start := d.now()

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	out := d.dispatch(ctx, payload)
	out.Topic = topic
	out.At = start.UTC()
	out.Duration = d.now().Sub(start)

	d.finish(ctx, out)
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, payload []byte) Outcome {
	n, err := d.parser.Parse(payload)
	if err != nil {
		return Outcome{Status: StatusInvalidPayload, Err: err}
	}

	out := Outcome{TargetID: n.TargetID, Source: n.SourceName()}

	entry, ok := d.registry.Lookup(n.TargetID)
	if !ok {
		out.Status = StatusUnknownTarget
		out.Err = fmt.Errorf("%w: %q", ErrUnknownTarget, n.TargetID)
		return out
	}
	out.Kind = entry.Kind
	out.PlatformID = entry.PlatformID

	text := Format(n)
	switch entry.Kind {
	case registry.KindUser:
		err = d.sender.SendDirect(ctx, entry.PlatformID, text)
	case registry.KindChannel:
		err = d.sender.SendChannel(ctx, entry.PlatformID, text)
	default:
		err = fmt.Errorf("unsupported recipient kind %q", entry.Kind)
	}

	if err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
		return out
	}

	out.Status = StatusDelivered
	return out
}

// finish logs the outcome, updates counters and fans out to recorders.
// A panicking recorder is logged and does not affect the others.
func (d *Dispatcher) finish(ctx context.Context, out Outcome) {
	switch out.Status {
	case StatusDelivered:
		d.delivered.Add(1)
		d.logger.Info("notification delivered",
			"target", out.TargetID, "kind", out.Kind, "platform_id", out.PlatformID,
			"source", out.Source, "duration", out.Duration)
	case StatusInvalidPayload:
		d.invalid.Add(1)
		d.logger.Warn("discarding invalid notification", "topic", out.Topic, "error", out.Err)
	case StatusUnknownTarget:
		d.unknown.Add(1)
		d.logger.Warn("target not registered", "target", out.TargetID, "source", out.Source)
	case StatusFailed:
		d.failed.Add(1)
		level := d.logger.Error
		if errors.Is(out.Err, context.Canceled) {
			level = d.logger.Warn
		}
		level("notification delivery failed",
			"target", out.TargetID, "kind", out.Kind, "platform_id", out.PlatformID,
			"duration", out.Duration, "error", out.Err)
	}

	for _, r := range d.recorders {
		d.record(ctx, r, out)
	}
}

func (d *Dispatcher) record(ctx context.Context, r Recorder, out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("outcome recorder panicked", "panic", p)
		}
	}()
	r.Record(ctx, out)
}

// Stats returns message counters since start.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Received:       d.received.Load(),
		Delivered:      d.delivered.Load(),
		InvalidPayload: d.invalid.Load(),
		UnknownTarget:  d.unknown.Load(),
		Failed:         d.failed.Load(),
	}
}
