package db

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	embeddedmigrations "github.com/solatis/canvasagent/migrations"
)

// MigrationStatus represents the state of a single migration.
type MigrationStatus struct {
	ID          string     `db:"migration_id"`
	Checksum    string     `db:"checksum"`
	Applied     bool       `db:"-"`
	AppliedAt   *time.Time `db:"applied_at"`
	ExecutionMs int64      `db:"execution_ms"`
}

type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// MigrateUp applies all pending migrations for the database's driver.
// Checksums of applied migrations are validated first; each pending migration
// runs in its own transaction together with its bookkeeping row.
func MigrateUp(ctx context.Context, db *sqlx.DB) (int, error) {
	migrations, err := prepare(ctx, db)
	if err != nil {
		return 0, err
	}

	if err := validateChecksums(ctx, db, migrations); err != nil {
		return 0, fmt.Errorf("migration checksum validation failed: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("failed to query applied migrations: %w", err)
	}

	count := 0
	for _, m := range migrations {
		if _, ok := applied[m.ID]; ok {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// MigrateStatus lists every embedded migration and whether it has been applied.
func MigrateStatus(ctx context.Context, db *sqlx.DB) ([]MigrationStatus, error) {
	migrations, err := prepare(ctx, db)
	if err != nil {
		return nil, err
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		if s, ok := applied[m.ID]; ok {
			s.Applied = true
			statuses = append(statuses, s)
			continue
		}
		statuses = append(statuses, MigrationStatus{ID: m.ID, Checksum: m.Checksum})
	}
	return statuses, nil
}

func prepare(ctx context.Context, db *sqlx.DB) ([]migration, error) {
	fsys, dir, err := migrationsFor(db.DriverName())
	if err != nil {
		return nil, err
	}
	if err := createMigrationsTable(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	migrations, err := parseMigrationFiles(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse migrations: %w", err)
	}
	return migrations, nil
}

func migrationsFor(driver string) (embed.FS, string, error) {
	switch driver {
	case DriverSQLite:
		return embeddedmigrations.SqliteMigrations, "sqlite", nil
	case DriverPostgres:
		return embeddedmigrations.PostgresMigrations, "postgres", nil
	default:
		return embed.FS{}, "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// parseMigrationFiles returns the migrations in dir ordered by file name.
func parseMigrationFiles(fsys fs.FS, dir string) ([]migration, error) {
	var migrations []migration

	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		migrations = append(migrations, migration{
			ID:       filepath.Base(path),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
			SQL:      string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].ID < migrations[j].ID
	})
	return migrations, nil
}

// createMigrationsTable must stay in sync with the migrations table in 001_initial_schema.sql.
func createMigrationsTable(ctx context.Context, db *sqlx.DB) error {
	createSQL := `
		CREATE TABLE IF NOT EXISTS migrations (
			migration_id TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			execution_ms INTEGER NOT NULL
		)`
	_, err := db.ExecContext(ctx, createSQL)
	return err
}

func appliedMigrations(ctx context.Context, db *sqlx.DB) (map[string]MigrationStatus, error) {
	var rows []MigrationStatus
	if err := db.SelectContext(ctx, &rows, "SELECT migration_id, checksum, applied_at, execution_ms FROM migrations"); err != nil {
		return nil, err
	}
	applied := make(map[string]MigrationStatus, len(rows))
	for _, r := range rows {
		applied[r.ID] = r
	}
	return applied, nil
}

// validateChecksums rejects applied migrations that were modified or removed.
func validateChecksums(ctx context.Context, db *sqlx.DB, migrations []migration) error {
	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return err
	}

	embedded := make(map[string]string, len(migrations))
	for _, m := range migrations {
		embedded[m.ID] = m.Checksum
	}

	for id, s := range applied {
		want, ok := embedded[id]
		if !ok {
			return fmt.Errorf("migration %s exists in database but not in embedded files", id)
		}
		if s.Checksum != want {
			return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", id, want, s.Checksum)
		}
	}
	return nil
}

func apply(ctx context.Context, db *sqlx.DB, m migration) error {
	start := time.Now()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
	}

	// lib/pq does not accept multiple statements in one Exec.
	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind("INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)"),
		m.ID, m.Checksum, time.Now().UTC(), time.Since(start).Milliseconds(),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
	}
	return nil
}

// splitStatements drops comment lines and splits on semicolons.
func splitStatements(sql string) []string {
	var b strings.Builder
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	var stmts []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
