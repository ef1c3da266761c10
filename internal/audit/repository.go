package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the trail.
const (
	ActionRegister   = "register"
	ActionUnregister = "unregister"
	ActionDeliver    = "deliver"
)

// timeFormat is fixed-width so created_at sorts correctly as text.
const timeFormat = "2006-01-02T15:04:05.000000Z"

// Page size limits for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// Record is one audit trail entry.
type Record struct {
	ID string `json:"id"`

	// Action is one of the Action* constants.
	Action string `json:"action"`

	// Target is the registered name the action concerns.
	Target string `json:"target"`

	// Kind and PlatformID identify the recipient ("user"/"channel" + snowflake).
	Kind       string `json:"kind,omitempty"`
	PlatformID string `json:"platform_id,omitempty"`

	// Actor is the Discord user who ran a command, or the notification source.
	Actor string `json:"actor,omitempty"`

	// Outcome is "success" or a rejection reason for commands, and the relay
	// outcome (delivered, unknown_target, ...) for deliveries.
	Outcome string `json:"outcome"`

	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Action  string
	Target  string
	Outcome string
	Limit   int // default 50, max 200
	Offset  int
}

// ListResult is a page of records, newest first.
type ListResult struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Repository persists audit records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository implements Repository on the audit_records table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a repository using db. Migrations must have run.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts rec, filling ID and CreatedAt when empty.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = "aud-" + uuid.NewString()[:8]
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var details *string
	if len(rec.Details) > 0 {
		b, err := json.Marshal(rec.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		s := string(b)
		details = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_records (id, action, target, kind, platform_id, actor, outcome, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Action, rec.Target,
		nullable(rec.Kind), nullable(rec.PlatformID), nullable(rec.Actor),
		rec.Outcome, details,
		rec.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns records matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter = normaliseFilter(filter)

	var conditions []string
	var args []any
	for _, c := range []struct{ column, value string }{
		{"action", filter.Action},
		{"target", filter.Target},
		{"outcome", filter.Outcome},
	} {
		if c.value != "" {
			conditions = append(conditions, c.column+" = ?")
			args = append(args, c.value)
		}
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM audit_records " + where //nolint:gosec // columns are fixed, values parameterised
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit records: %w", err)
	}

	query := "SELECT id, action, target, kind, platform_id, actor, outcome, details, created_at FROM audit_records " + //nolint:gosec // see above
		where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit records: %w", err)
	}

	return &ListResult{
		Records: records,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func normaliseFilter(f Filter) Filter {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var kind, platformID, actor, details sql.NullString
	var createdAt string

	if err := rows.Scan(&rec.ID, &rec.Action, &rec.Target, &kind, &platformID,
		&actor, &rec.Outcome, &details, &createdAt); err != nil {
		return Record{}, fmt.Errorf("scanning audit record: %w", err)
	}

	rec.Kind = kind.String
	rec.PlatformID = platformID.String
	rec.Actor = actor.String

	if details.Valid && details.String != "" {
		var d map[string]any
		if json.Unmarshal([]byte(details.String), &d) == nil {
			rec.Details = d
		}
	}

	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("parsing audit timestamp %q: %w", createdAt, err)
	}
	rec.CreatedAt = t

	return rec, nil
}
