package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationManager applies the embedded schema migrations.
//
// Files named NNNN_name.sql target postgres; a sibling NNNN_name_sqlite.sql
// replaces it when running on sqlite.
type MigrationManager struct {
	db     *sql.DB
	driver string
	files  fs.FS
}

// MigrationStatus reports which migrations are applied.
type MigrationStatus struct {
	Applied []string
	Pending []string
}

// UpToDate reports whether nothing is pending.
func (s *MigrationStatus) UpToDate() bool {
	return len(s.Pending) == 0
}

// NewMigrationManager creates a manager over the embedded migrations.
func NewMigrationManager(db *sql.DB, driver string) *MigrationManager {
	sub, _ := fs.Sub(migrationFiles, "migrations")
	return &MigrationManager{db: db, driver: driver, files: sub}
}

// Check returns the applied and pending migrations.
func (m *MigrationManager) Check(ctx context.Context) (*MigrationStatus, error) {
	if err := m.ensureSchemaMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	all, err := m.listMigrations()
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}

	status := &MigrationStatus{}
	for _, name := range all {
		if applied[versionOf(name)] {
			status.Applied = append(status.Applied, name)
		} else {
			status.Pending = append(status.Pending, name)
		}
	}
	return status, nil
}

// Migrate applies every pending migration in order and returns how many ran.
func (m *MigrationManager) Migrate(ctx context.Context) (int, error) {
	status, err := m.Check(ctx)
	if err != nil {
		return 0, err
	}

	for _, name := range status.Pending {
		if err := m.apply(ctx, name); err != nil {
			return 0, fmt.Errorf("run migration %s: %w", name, err)
		}
	}
	return len(status.Pending), nil
}

func (m *MigrationManager) ensureSchemaMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// listMigrations returns the file names for the current driver, sorted.
func (m *MigrationManager) listMigrations() ([]string, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, err
	}

	sqliteFiles := make(map[string]string)
	regularFiles := make(map[string]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if strings.HasSuffix(name, "_sqlite.sql") {
			sqliteFiles[strings.TrimSuffix(name, "_sqlite.sql")] = name
		} else {
			regularFiles[strings.TrimSuffix(name, ".sql")] = name
		}
	}

	var names []string
	for base, regular := range regularFiles {
		if m.isSQLite() {
			if lite, ok := sqliteFiles[base]; ok {
				names = append(names, lite)
				continue
			}
		}
		names = append(names, regular)
	}
	if m.isSQLite() {
		for base, lite := range sqliteFiles {
			if _, ok := regularFiles[base]; !ok {
				names = append(names, lite)
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

func (m *MigrationManager) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (m *MigrationManager) apply(ctx context.Context, name string) error {
	body, err := fs.ReadFile(m.files, name)
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, versionOf(name)); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}

func (m *MigrationManager) isSQLite() bool {
	return m.driver == "sqlite" || m.driver == ""
}

// versionOf strips the driver suffix so both variants share one version.
func versionOf(name string) string {
	name = strings.TrimSuffix(name, ".sql")
	return strings.TrimSuffix(name, "_sqlite")
}
