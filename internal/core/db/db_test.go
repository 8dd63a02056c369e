package db

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/canvasagent/internal/types"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, fmt.Sprintf("sqlite://%s", filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := MigrateUp(ctx, db); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	return db
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url        string
		wantDriver string
		wantSource string
		wantErr    bool
	}{
		{"sqlite://data/canvas.db", DriverSQLite, "data/canvas.db", false},
		{"sqlite:///var/lib/canvas.db", DriverSQLite, "/var/lib/canvas.db", false},
		{"sqlite:///tmp/x.db?_busy_timeout=5000", DriverSQLite, "/tmp/x.db?_busy_timeout=5000", false},
		{"postgres://u:p@localhost:5432/canvas?sslmode=disable", DriverPostgres, "postgres://u:p@localhost:5432/canvas?sslmode=disable", false},
		{"mysql://localhost/db", "", "", true},
		{"sqlite://", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, source, err := parseURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseURL failed: %v", err)
			}
			if driver != tt.wantDriver || source != tt.wantSource {
				t.Errorf("got (%s, %s), want (%s, %s)", driver, source, tt.wantDriver, tt.wantSource)
			}
		})
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	n, err := MigrateUp(ctx, db)
	if err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no pending migrations, applied %d", n)
	}

	statuses, err := MigrateStatus(ctx, db)
	if err != nil {
		t.Fatalf("MigrateStatus failed: %v", err)
	}
	if len(statuses) == 0 {
		t.Fatal("expected at least one migration")
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("migration %s not marked applied", s.ID)
		}
	}
}

func TestMigrateUp_ChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, err := db.ExecContext(ctx, "UPDATE migrations SET checksum = 'tampered'"); err != nil {
		t.Fatalf("tamper failed: %v", err)
	}
	if _, err := MigrateUp(ctx, db); err == nil {
		t.Error("expected checksum validation error")
	}
}

func TestParseMigrationFiles_Order(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_second.sql": {Data: []byte("SELECT 2;")},
		"m/001_first.sql":  {Data: []byte("SELECT 1;")},
		"m/README.md":      {Data: []byte("ignored")},
	}

	migrations, err := parseMigrationFiles(fsys, "m")
	if err != nil {
		t.Fatalf("parseMigrationFiles failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].ID != "001_first.sql" || migrations[1].ID != "002_second.sql" {
		t.Errorf("unexpected order: %s, %s", migrations[0].ID, migrations[1].ID)
	}
	if migrations[0].Checksum == migrations[1].Checksum {
		t.Error("different content must yield different checksums")
	}
}

func TestSplitStatements(t *testing.T) {
	sql := `-- header; with a semicolon
CREATE TABLE a (id TEXT);

-- second
CREATE INDEX idx ON a (id);
`
	stmts := splitStatements(sql)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (id TEXT)" {
		t.Errorf("unexpected first statement %q", stmts[0])
	}
}

func TestJournalStore(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	queries, err := LoadQueries(db)
	if err != nil {
		t.Fatalf("LoadQueries failed: %v", err)
	}
	store := NewJournalStore(queries)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, identity := range []string{"alice", "bob", "alice"} {
		entry := types.JournalEntry{
			JournalID:      types.NewJournalID(),
			RequestID:      fmt.Sprintf("req-%d", i),
			Identity:       identity,
			Command:        "draw a grid",
			Status:         "ok",
			StopReason:     types.StopCompleted,
			OperationCount: i + 1,
			Iterations:     2,
			HasMore:        i == 2,
			ElapsedMs:      120,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	all, err := store.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].RequestID != "req-2" {
		t.Errorf("expected newest first, got %s", all[0].RequestID)
	}
	if !all[0].HasMore || all[0].OperationCount != 3 || all[0].StopReason != types.StopCompleted {
		t.Errorf("entry not round-tripped: %+v", all[0])
	}
	if !all[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("created_at = %v", all[0].CreatedAt)
	}

	alice, err := store.List(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("List by identity failed: %v", err)
	}
	if len(alice) != 1 || alice[0].Identity != "alice" {
		t.Errorf("unexpected identity listing: %+v", alice)
	}
}
