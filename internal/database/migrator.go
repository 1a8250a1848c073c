package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Conn is the subset of pgxpool.Pool the migrator needs.
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Migrator handles database schema migrations
type Migrator struct {
	conn  Conn
	files fs.FS
}

// NewMigrator creates a migration runner over the migrations compiled into the binary.
func NewMigrator(conn Conn) *Migrator {
	sub, _ := fs.Sub(embeddedMigrations, "migrations")
	return NewMigratorWithFS(conn, sub)
}

// NewMigratorWithFS creates a migration runner reading *.sql files from the root of files.
func NewMigratorWithFS(conn Conn, files fs.FS) *Migrator {
	return &Migrator{conn: conn, files: files}
}

// RunMigrations executes all pending database migrations
//
// Files run in lexical order, each in its own transaction together with
// its schema_migrations record. Files whose name contains "reset" are skipped.
func (m *Migrator) RunMigrations(ctx context.Context) (int, error) {
	log.Println("[Migrator] Starting database migrations...")

	if err := m.createMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	appliedMigrations, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	migrationFiles, err := m.pending()
	if err != nil {
		return 0, err
	}

	migrationsRun := 0
	for _, filename := range migrationFiles {
		if strings.Contains(filename, "reset") {
			log.Printf("[Migrator]   skipping %s (reset script)", filename)
			continue
		}
		if appliedMigrations[filename] {
			continue
		}

		content, err := fs.ReadFile(m.files, filename)
		if err != nil {
			return migrationsRun, fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		log.Printf("[Migrator]   running %s", filename)
		if err := m.apply(ctx, filename, string(content)); err != nil {
			return migrationsRun, err
		}
		migrationsRun++
	}

	if migrationsRun > 0 {
		log.Printf("[Migrator] Applied %d new migration(s)", migrationsRun)
	} else {
		log.Println("[Migrator] Database is up to date")
	}

	return migrationsRun, nil
}

func (m *Migrator) pending() ([]string, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)
	return migrationFiles, nil
}

func (m *Migrator) apply(ctx context.Context, filename, content string) error {
	tx, err := m.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", filename, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, content); err != nil {
		return fmt.Errorf("failed to run migration %s: %w", filename, err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (filename) VALUES ($1) ON CONFLICT (filename) DO NOTHING`,
		filename,
	); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", filename, err)
	}

	return tx.Commit(ctx)
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	_, err := m.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := m.conn.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, err
		}
		applied[filename] = true
	}

	return applied, rows.Err()
}
