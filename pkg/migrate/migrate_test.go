package migrate

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var testMigrations = []Migration{
	{Version: 2, Name: "add sheet column", SQL: `ALTER TABLE runs ADD COLUMN sheet TEXT`},
	{Version: 1, Name: "create runs", SQL: `CREATE TABLE runs (run_id TEXT PRIMARY KEY, document TEXT NOT NULL)`},
}

func TestApplyRunsInOrder(t *testing.T) {
	db := openTestDB(t)
	m := New(db)

	if err := m.Apply(testMigrations); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	v, err := m.Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != 2 {
		t.Errorf("Version = %d, want 2", v)
	}

	// The ALTER in version 2 only works if version 1 ran first.
	if _, err := db.Exec(`INSERT INTO runs (run_id, document, sheet) VALUES ('a', '{}', 's1')`); err != nil {
		t.Errorf("migrated schema unusable: %v", err)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	m := New(db)

	if err := m.Apply(testMigrations); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if err := m.Apply(testMigrations); err != nil {
		t.Fatalf("second Apply: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count applied: %v", err)
	}
	if count != 2 {
		t.Errorf("applied rows = %d, want 2", count)
	}
}

func TestApplyRejectsDuplicateVersions(t *testing.T) {
	db := openTestDB(t)
	err := New(db).Apply([]Migration{
		{Version: 1, Name: "a", SQL: `CREATE TABLE a (id INTEGER)`},
		{Version: 1, Name: "b", SQL: `CREATE TABLE b (id INTEGER)`},
	})
	if err == nil || !strings.Contains(err.Error(), "duplicate migration version") {
		t.Errorf("Apply = %v, want duplicate version error", err)
	}
}

func TestFailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	m := New(db)

	err := m.Apply([]Migration{
		{Version: 1, Name: "good", SQL: `CREATE TABLE good (id INTEGER)`},
		{Version: 2, Name: "bad", SQL: `CREATE BROKEN SYNTAX`},
	})
	if err == nil {
		t.Fatal("Apply should fail on broken SQL")
	}

	v, verr := m.Version()
	if verr != nil {
		t.Fatalf("Version: %v", verr)
	}
	if v != 1 {
		t.Errorf("Version after failure = %d, want 1", v)
	}
}

func TestEmptyMigrationRejected(t *testing.T) {
	db := openTestDB(t)
	err := New(db).Apply([]Migration{{Version: 1, Name: "empty"}})
	if err == nil || !strings.Contains(err.Error(), "empty migration SQL") {
		t.Errorf("Apply = %v, want empty SQL error", err)
	}
}
