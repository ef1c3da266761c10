package audit

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/discord-mqtt-bot/internal/infrastructure/database"
	"github.com/nerrad567/discord-mqtt-bot/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestCreateFillsDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := &Record{Action: ActionRegister, Target: "john", Kind: "user", PlatformID: "U1", Outcome: "ok"}
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !strings.HasPrefix(rec.ID, "aud-") || len(rec.ID) != len("aud-")+8 {
		t.Errorf("ID = %q, want aud-xxxxxxxx", rec.ID)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestCreateAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	records := []Record{
		{Action: ActionRegister, Target: "john", Kind: "user", PlatformID: "U1", Actor: "U1", Outcome: "ok"},
		{Action: ActionDeliver, Target: "john", Kind: "user", PlatformID: "U1", Actor: "Door", Outcome: "delivered",
			Details: map[string]any{"duration_ms": float64(42)}},
		{Action: ActionDeliver, Target: "ghost", Actor: "Door", Outcome: "unknown_target"},
		{Action: ActionUnregister, Target: "john", Kind: "user", PlatformID: "U1", Actor: "U1", Outcome: "ok"},
	}
	for i := range records {
		records[i].CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.Create(ctx, &records[i]); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantFirst string // action of newest record
	}{
		{"all", Filter{}, 4, ActionUnregister},
		{"by action", Filter{Action: ActionDeliver}, 2, ActionDeliver},
		{"by target", Filter{Target: "ghost"}, 1, ActionDeliver},
		{"by outcome", Filter{Outcome: "ok"}, 2, ActionUnregister},
		{"combined", Filter{Action: ActionDeliver, Outcome: "delivered"}, 1, ActionDeliver},
		{"no match", Filter{Target: "nobody"}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal || len(res.Records) != tt.wantTotal {
				t.Fatalf("List() total=%d len=%d, want %d", res.Total, len(res.Records), tt.wantTotal)
			}
			if tt.wantTotal > 0 && res.Records[0].Action != tt.wantFirst {
				t.Errorf("first action = %q, want %q", res.Records[0].Action, tt.wantFirst)
			}
			if res.Records == nil {
				t.Error("Records is nil, want empty slice")
			}
		})
	}

	res, err := repo.List(ctx, Filter{Outcome: "delivered"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	got := res.Records[0]
	if got.Details["duration_ms"] != float64(42) {
		t.Errorf("Details = %v", got.Details)
	}
	if got.Kind != "user" || got.PlatformID != "U1" || got.Actor != "Door" {
		t.Errorf("record = %+v", got)
	}
	if !got.CreatedAt.Equal(records[1].CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, records[1].CreatedAt)
	}
}

func TestListPagination(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := &Record{Action: ActionDeliver, Target: fmt.Sprintf("t%d", i), Outcome: "delivered"}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	res, err := repo.List(ctx, Filter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 5 || len(res.Records) != 1 {
		t.Errorf("total=%d len=%d, want 5 and 1", res.Total, len(res.Records))
	}
	// Same-timestamp inserts fall back to insertion order, newest first.
	if res.Records[0].Target != "t0" {
		t.Errorf("last page record = %q, want t0", res.Records[0].Target)
	}
}

func TestNormaliseFilter(t *testing.T) {
	tests := []struct {
		in        Filter
		wantLimit int
		wantOff   int
	}{
		{Filter{}, defaultLimit, 0},
		{Filter{Limit: -1, Offset: -5}, defaultLimit, 0},
		{Filter{Limit: 10, Offset: 3}, 10, 3},
		{Filter{Limit: 10_000}, maxLimit, 0},
	}
	for _, tt := range tests {
		got := normaliseFilter(tt.in)
		if got.Limit != tt.wantLimit || got.Offset != tt.wantOff {
			t.Errorf("normaliseFilter(%+v) = %+v", tt.in, got)
		}
	}
}
