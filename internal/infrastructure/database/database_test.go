package database

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"testing/fstest"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("creates file and directory", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "audit.db")

		db, err := Open(ctx, Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // test cleanup

		if err := db.HealthCheck(ctx); err != nil {
			t.Errorf("HealthCheck() error = %v", err)
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
		}
		info, err := os.Stat(dbPath)
		if err != nil {
			t.Fatalf("database file not created: %v", err)
		}
		if runtime.GOOS != "windows" && info.Mode().Perm() != filePermissions {
			t.Errorf("file mode = %o, want %o", info.Mode().Perm(), filePermissions)
		}
	})

	t.Run("in memory", func(t *testing.T) {
		db, err := Open(ctx, Config{Path: MemoryPath, WALMode: true})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // test cleanup

		if err := db.HealthCheck(ctx); err != nil {
			t.Errorf("HealthCheck() error = %v", err)
		}
	})
}

func TestCloseNil(t *testing.T) {
	var db *DB
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Config{Path: MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup

	fsys := fstest.MapFS{
		"002_add_index.up.sql":  {Data: []byte("CREATE INDEX idx_things_name ON things(name);")},
		"001_things.up.sql":     {Data: []byte("CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT);")},
		"001_things.down.sql":   {Data: []byte("DROP TABLE things;")},
		"README.md":             {Data: []byte("ignored")},
		"embed.go":              {Data: []byte("package migrations")},
		"notes/003_skip.up.sql": {Data: []byte("garbage")},
	}

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	// Second run is a no-op.
	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	applied, err := db.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions() error = %v", err)
	}
	if len(applied) != 2 || !applied["001"] || !applied["002"] {
		t.Errorf("applied = %v, want 001 and 002", applied)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO things (name) VALUES ('x')"); err != nil {
		t.Errorf("table from migration missing: %v", err)
	}
}

func TestMigrateFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Config{Path: MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup

	fsys := fstest.MapFS{
		"001_broken.up.sql": {Data: []byte("CREATE TABLE ok (id INTEGER); NOT SQL;")},
	}

	err = db.Migrate(ctx, fsys)
	if err == nil || !strings.Contains(err.Error(), "001") {
		t.Fatalf("Migrate() error = %v, want failure naming 001", err)
	}

	applied, err := db.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions() error = %v", err)
	}
	if applied["001"] {
		t.Error("failed migration recorded as applied")
	}
}

func TestLoadMigrationsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"001_a.up.sql": {Data: []byte("SELECT 1;")},
		"001_b.up.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := LoadMigrations(fsys); err == nil {
		t.Error("LoadMigrations() error = nil, want duplicate version error")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{"001_audit_records.up.sql", "001", "audit_records", true},
		{"20260101_init.up.sql", "20260101", "init", true},
		{"001_audit_records.down.sql", "", "", false},
		{"001.up.sql", "", "", false},
		{"_name.up.sql", "", "", false},
		{"001_name.sql", "", "", false},
		{"embed.go", "", "", false},
	}

	for _, tt := range tests {
		version, name, ok := parseMigrationFilename(tt.filename)
		if version != tt.wantVersion || name != tt.wantName || ok != tt.wantOK {
			t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.filename, version, name, ok, tt.wantVersion, tt.wantName, tt.wantOK)
		}
	}
}
