package relay

import (
	"context"
	"time"

	"github.com/nerrad567/discord-mqtt-bot/internal/registry"
)

// Status classifies how a single MQTT message was handled.
type Status string

const (
	StatusDelivered      Status = "delivered"
	StatusInvalidPayload Status = "invalid_payload"
	StatusUnknownTarget  Status = "unknown_target"
	StatusFailed         Status = "failed"
)

// Outcome describes the handling of one MQTT message.
type Outcome struct {
	Status Status
	Topic  string

	// TargetID and Source are empty for invalid payloads.
	TargetID string
	Source   string

	// Kind and PlatformID are set once the target resolved.
	Kind       registry.Kind
	PlatformID string

	// Duration covers parse, lookup and the Discord call.
	Duration time.Duration
	At       time.Time

	// Err is nil for delivered messages.
	Err error
}

// Recorder observes outcomes. Implementations must be safe for concurrent
// use and must not block for long; they run on the MQTT handler goroutine.
type Recorder interface {
	Record(ctx context.Context, o Outcome)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, o Outcome)

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, o Outcome) {
	f(ctx, o)
}
