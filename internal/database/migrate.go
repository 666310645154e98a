package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations
var migrationsFS embed.FS

// Migration file layout: migrations/<dialect>/000001_description.up.sql
const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
)

type migrationFile struct {
	version int
	name    string
	path    string
}

// migrationTarget abstracts the few statements that differ between drivers
type migrationTarget interface {
	ensureTable(ctx context.Context) error
	appliedVersions(ctx context.Context) (map[int]bool, error)
	apply(ctx context.Context, version int, script string) error
}

// MigratePostgres applies pending PostgreSQL migrations
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	return runMigrations(ctx, &postgresTarget{pool: pool}, dialectPostgres, logger)
}

// MigrateSQLite applies pending SQLite migrations
func MigrateSQLite(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	return runMigrations(ctx, &sqliteTarget{db: db}, dialectSQLite, logger)
}

func runMigrations(ctx context.Context, target migrationTarget, dialect string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := target.ensureTable(ctx); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied, err := target.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}

	migrations, err := collectMigrations(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return fmt.Errorf("collecting migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, m.path)
		if err != nil {
			return fmt.Errorf("reading migration %06d: %w", m.version, err)
		}

		if err := target.apply(ctx, m.version, string(content)); err != nil {
			return fmt.Errorf("applying migration %06d_%s: %w", m.version, m.name, err)
		}

		logger.Info("applied migration", "dialect", dialect, "version", m.version, "name", m.name)
	}

	return nil
}

// collectMigrations returns the *.up.sql files of dir ordered by version
func collectMigrations(fsys fs.FS, dir string) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var migrations []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}

		version, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}

		migrations = append(migrations, migrationFile{
			version: version,
			name:    strings.TrimSuffix(parts[1], ".up.sql"),
			path:    dir + "/" + entry.Name(),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].version < migrations[j].version
	})

	return migrations, nil
}

type postgresTarget struct {
	pool *pgxpool.Pool
}

func (t *postgresTarget) ensureTable(ctx context.Context) error {
	_, err := t.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (t *postgresTarget) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := t.pool.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (t *postgresTarget) apply(ctx context.Context, version int, script string) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// No arguments: pgx uses the simple protocol, which accepts several statements.
	if _, err := tx.Exec(ctx, script); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("recording version: %w", err)
	}

	return tx.Commit(ctx)
}

type sqliteTarget struct {
	db *sql.DB
}

func (t *sqliteTarget) ensureTable(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
		)
	`)
	return err
}

func (t *sqliteTarget) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (t *sqliteTarget) apply(ctx context.Context, version int, script string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("recording version: %w", err)
	}

	return tx.Commit()
}
