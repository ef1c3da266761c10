package relay

import (
	"context"
	"time"

	"github.com/nerrad567/discord-mqtt-bot/internal/audit"
)

// PointWriter is the subset of influxdb.Client used for telemetry.
type PointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time)
}

// PointRecorder writes one "notifications" point per outcome.
type PointRecorder struct {
	writer PointWriter
}

// NewPointRecorder returns a recorder writing through w.
func NewPointRecorder(w PointWriter) *PointRecorder {
	return &PointRecorder{writer: w}
}

// Record implements Recorder.
func (p *PointRecorder) Record(_ context.Context, o Outcome) {
	tags := map[string]string{"outcome": string(o.Status)}
	if o.Kind != "" {
		tags["kind"] = string(o.Kind)
	}
	if o.TargetID != "" {
		tags["target"] = o.TargetID
	}

	fields := map[string]any{
		"count":       1,
		"duration_ms": float64(o.Duration.Microseconds()) / 1000,
	}
	if o.Source != "" {
		fields["source"] = o.Source
	}

	p.writer.WritePoint("notifications", tags, fields, o.At)
}

// auditTimeout bounds the audit insert so a locked database cannot stall
// the MQTT handler.
const auditTimeout = 2 * time.Second

// AuditRecorder stores each outcome in the audit trail.
type AuditRecorder struct {
	repo   audit.Repository
	logger Logger
}

// NewAuditRecorder returns a recorder writing to repo. logger may be nil.
func NewAuditRecorder(repo audit.Repository, logger Logger) *AuditRecorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &AuditRecorder{repo: repo, logger: logger}
}

// Record implements Recorder.
func (a *AuditRecorder) Record(ctx context.Context, o Outcome) {
	rec := &audit.Record{
		Action:     audit.ActionDeliver,
		Target:     o.TargetID,
		Kind:       string(o.Kind),
		PlatformID: o.PlatformID,
		Actor:      o.Source,
		Outcome:    string(o.Status),
		Details: map[string]any{
			"topic":       o.Topic,
			"duration_ms": o.Duration.Milliseconds(),
		},
		CreatedAt: o.At,
	}
	if o.Err != nil {
		rec.Details["error"] = o.Err.Error()
	}

	// The delivery context may already be cancelled or expired.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := a.repo.Create(ctx, rec); err != nil {
		a.logger.Warn("failed to write delivery audit record", "target", o.TargetID, "error", err)
	}
}
