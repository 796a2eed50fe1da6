// Package migrate applies versioned, compiled-in schema migrations over a
// database/sql connection. Each migration runs in its own transaction and is
// recorded in schema_migrations, so a partially failed upgrade leaves the
// database at the last fully applied version.
package migrate

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator handles the execution of migrations
type Migrator struct {
	db *sql.DB
}

// New creates a new migrator instance
func New(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

const createMigrationTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Version returns the highest applied migration version, zero for a fresh
// database.
func (m *Migrator) Version() (int, error) {
	if _, err := m.db.Exec(createMigrationTableSQL); err != nil {
		return 0, fmt.Errorf("create migration table: %w", err)
	}

	var version sql.NullInt64
	if err := m.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	return int(version.Int64), nil
}

// Apply runs all migrations newer than the current version, in ascending
// order.
func (m *Migrator) Apply(migrations []Migration) error {
	current, err := m.Version()
	if err != nil {
		return err
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Version < ordered[j].Version
	})
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Version == ordered[i-1].Version {
			return fmt.Errorf("duplicate migration version %d", ordered[i].Version)
		}
	}

	for _, migration := range ordered {
		if migration.Version <= current {
			continue
		}
		if err := m.apply(migration); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}

	return nil
}

func (m *Migrator) apply(migration Migration) error {
	if migration.SQL == "" {
		return fmt.Errorf("empty migration SQL")
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migration.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
		migration.Version, migration.Name); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}
