package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nerrad567/discord-mqtt-bot/internal/audit"
	"github.com/nerrad567/discord-mqtt-bot/internal/registry"
)

type writtenPoint struct {
	measurement string
	tags        map[string]string
	fields      map[string]any
	ts          time.Time
}

type mockPointWriter struct {
	points []writtenPoint
}

func (m *mockPointWriter) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	m.points = append(m.points, writtenPoint{measurement, tags, fields, ts})
}

type mockAuditRepo struct {
	mu        sync.Mutex
	records   []audit.Record
	createErr error
	ctxErr    error
}

func (m *mockAuditRepo) Create(ctx context.Context, rec *audit.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErr = ctx.Err()
	if m.createErr != nil {
		return m.createErr
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *mockAuditRepo) List(context.Context, audit.Filter) (*audit.ListResult, error) {
	return &audit.ListResult{Records: m.records, Total: len(m.records)}, nil
}

type mockLogger struct {
	mu    sync.Mutex
	warns []string
}

func (m *mockLogger) Debug(string, ...any) {}
func (m *mockLogger) Info(string, ...any)  {}
func (m *mockLogger) Error(string, ...any) {}
func (m *mockLogger) Warn(msg string, _ ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

var testAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func deliveredOutcome() Outcome {
	return Outcome{
		Status:     StatusDelivered,
		Topic:      testTopic,
		TargetID:   "john",
		Source:     "Front Door Sensor",
		Kind:       registry.KindUser,
		PlatformID: "U123",
		Duration:   1500 * time.Microsecond,
		At:         testAt,
	}
}

func TestPointRecorder(t *testing.T) {
	w := &mockPointWriter{}
	r := NewPointRecorder(w)

	r.Record(context.Background(), deliveredOutcome())

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	p := w.points[0]
	if p.measurement != "notifications" {
		t.Errorf("measurement = %q", p.measurement)
	}
	if p.tags["outcome"] != "delivered" || p.tags["kind"] != "user" || p.tags["target"] != "john" {
		t.Errorf("tags = %v", p.tags)
	}
	if p.fields["duration_ms"] != 1.5 || p.fields["source"] != "Front Door Sensor" {
		t.Errorf("fields = %v", p.fields)
	}
	if !p.ts.Equal(testAt) {
		t.Errorf("timestamp = %v, want %v", p.ts, testAt)
	}
}

func TestPointRecorderInvalidPayload(t *testing.T) {
	w := &mockPointWriter{}
	NewPointRecorder(w).Record(context.Background(), Outcome{Status: StatusInvalidPayload, At: testAt})

	p := w.points[0]
	if _, ok := p.tags["kind"]; ok {
		t.Error("kind tag should be omitted for unresolved targets")
	}
	if _, ok := p.tags["target"]; ok {
		t.Error("target tag should be omitted for invalid payloads")
	}
	if _, ok := p.fields["source"]; ok {
		t.Error("source field should be omitted when empty")
	}
}

func TestAuditRecorder(t *testing.T) {
	repo := &mockAuditRepo{}
	r := NewAuditRecorder(repo, nil)

	out := deliveredOutcome()
	out.Status = StatusFailed
	out.Err = errors.New("403 Forbidden")
	r.Record(context.Background(), out)

	if len(repo.records) != 1 {
		t.Fatalf("records = %d, want 1", len(repo.records))
	}
	rec := repo.records[0]
	if rec.Action != audit.ActionDeliver || rec.Target != "john" || rec.Kind != "user" ||
		rec.PlatformID != "U123" || rec.Actor != "Front Door Sensor" || rec.Outcome != "failed" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Details["topic"] != testTopic || rec.Details["error"] != "403 Forbidden" {
		t.Errorf("details = %v", rec.Details)
	}
	if !rec.CreatedAt.Equal(testAt) {
		t.Errorf("CreatedAt = %v", rec.CreatedAt)
	}
}

func TestAuditRecorderIgnoresCancelledContext(t *testing.T) {
	repo := &mockAuditRepo{}
	r := NewAuditRecorder(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Record(ctx, deliveredOutcome())

	if len(repo.records) != 1 {
		t.Fatalf("records = %d, want 1", len(repo.records))
	}
	if repo.ctxErr != nil {
		t.Errorf("repository saw context error %v, want a live context", repo.ctxErr)
	}
}

func TestAuditRecorderLogsFailure(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("database is locked")}
	logger := &mockLogger{}
	r := NewAuditRecorder(repo, logger)

	r.Record(context.Background(), deliveredOutcome())

	if len(logger.warns) != 1 {
		t.Errorf("warnings = %v, want one", logger.warns)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Record(context.Background(), deliveredOutcome())
	m.Record(context.Background(), deliveredOutcome())
	m.Record(context.Background(), Outcome{Status: StatusInvalidPayload})
	m.Record(context.Background(), Outcome{Status: StatusUnknownTarget, TargetID: "ghost"})

	tests := []struct {
		outcome, kind string
		want          float64
	}{
		{"delivered", "user", 2},
		{"invalid_payload", "none", 1},
		{"unknown_target", "none", 1},
		{"failed", "user", 0},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(m.Notifications.WithLabelValues(tt.outcome, tt.kind))
		if got != tt.want {
			t.Errorf("notifications{%s,%s} = %v, want %v", tt.outcome, tt.kind, got, tt.want)
		}
	}

	// One histogram series per observed outcome.
	if n := testutil.CollectAndCount(m.Duration); n != 3 {
		t.Errorf("duration series = %d, want 3", n)
	}
}

func TestMetricsDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	defer func() {
		if recover() == nil {
			t.Error("second NewMetrics on the same registry should panic")
		}
	}()
	NewMetrics(reg)
}
