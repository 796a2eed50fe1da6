// Package sqlitearchive stores run reports as JSON documents in a local
// SQLite database, for single-node deployments that run without a PostgreSQL
// warehouse. The newest archived run warms the in-memory cache on restart.
package sqlitearchive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/log"
	"github.com/hullwatch/hullwatch/internal/storage"
	"github.com/hullwatch/hullwatch/pkg/migrate"
)

// defaultKeepRuns bounds the archive; older run documents are pruned after
// each store.
const defaultKeepRuns = 30

var migrations = []migrate.Migration{
	{Version: 1, Name: "create run archive", SQL: `
CREATE TABLE run_reports (
	run_id TEXT PRIMARY KEY,
	finished_at TIMESTAMP NOT NULL,
	results_emitted INTEGER NOT NULL,
	document TEXT NOT NULL
);
CREATE INDEX idx_run_reports_finished ON run_reports (finished_at DESC)`},
	{Version: 2, Name: "create ocean cache", SQL: `
CREATE TABLE ocean_cache (
	location TEXT PRIMARY KEY,
	fetched_at TIMESTAMP NOT NULL,
	document TEXT NOT NULL
)`},
}

// Storage holds the connection for a SQLite archive backend
type Storage struct {
	db       *sql.DB
	path     string
	keepRuns int
}

// New opens (creating and migrating if necessary) a SQLite run archive.
func New(ctx context.Context, path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run archive %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping run archive %s: %w", path, err)
	}

	if err := migrate.New(db).Apply(migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate run archive: %w", err)
	}

	return &Storage{db: db, path: path, keepRuns: defaultKeepRuns}, nil
}

// StartStorageEngine creates a goroutine loop to receive run reports and
// archive them
func (s *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- *fouling.RunReport {
	log.Info("starting SQLite archive storage engine...")
	reportChan := make(chan *fouling.RunReport, 10)
	go storage.ProcessReports(ctx, wg, reportChan, s.StoreReport, "sqlite")
	storage.StartHealthMonitor(ctx, "sqlite", s, time.Minute)
	return reportChan
}

// StoreReport archives one run document and prunes beyond the retention
// bound.
func (s *Storage) StoreReport(report *fouling.RunReport) error {
	doc, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO run_reports (run_id, finished_at, results_emitted, document)
		VALUES (?, ?, ?, ?)`,
		report.RunID, report.FinishedAt.UTC(), report.Diagnostics.ResultsEmitted, string(doc))
	if err != nil {
		return fmt.Errorf("archive run %s: %w", report.RunID, err)
	}

	_, err = s.db.Exec(`
		DELETE FROM run_reports WHERE run_id NOT IN (
			SELECT run_id FROM run_reports ORDER BY finished_at DESC LIMIT ?
		)`, s.keepRuns)
	if err != nil {
		return fmt.Errorf("prune run archive: %w", err)
	}

	log.Infof("archived run %s (%d results)", report.RunID, report.Diagnostics.ResultsEmitted)
	return nil
}

// LatestReport loads the most recently archived run, or nil when the archive
// is empty.
func (s *Storage) LatestReport() (*fouling.RunReport, error) {
	var doc string
	err := s.db.QueryRow(`
		SELECT document FROM run_reports ORDER BY finished_at DESC LIMIT 1`).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read run archive: %w", err)
	}

	var report fouling.RunReport
	if err := json.Unmarshal([]byte(doc), &report); err != nil {
		return nil, fmt.Errorf("decode archived run: %w", err)
	}
	return &report, nil
}

// CachedConditions is one archived sea state document for a location.
type CachedConditions struct {
	Location  string
	FetchedAt time.Time
	Document  []byte
}

// PutOceanConditions upserts the sea state document for one location.
func (s *Storage) PutOceanConditions(location string, fetchedAt time.Time, document []byte) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO ocean_cache (location, fetched_at, document)
		VALUES (?, ?, ?)`,
		location, fetchedAt.UTC(), string(document))
	if err != nil {
		return fmt.Errorf("cache conditions for %s: %w", location, err)
	}
	return nil
}

// OceanConditions returns the cached sea state documents for every location,
// ordered by location name.
func (s *Storage) OceanConditions() ([]CachedConditions, error) {
	rows, err := s.db.Query(`
		SELECT location, fetched_at, document FROM ocean_cache ORDER BY location`)
	if err != nil {
		return nil, fmt.Errorf("read ocean cache: %w", err)
	}
	defer rows.Close()

	var cached []CachedConditions
	for rows.Next() {
		var c CachedConditions
		var doc string
		if err := rows.Scan(&c.Location, &c.FetchedAt, &doc); err != nil {
			return nil, fmt.Errorf("scan ocean cache row: %w", err)
		}
		c.Document = []byte(doc)
		cached = append(cached, c)
	}
	return cached, rows.Err()
}

// CheckHealth reports the current state of the archive.
func (s *Storage) CheckHealth() *storage.HealthData {
	if s.db == nil {
		return storage.CreateHealthData("unhealthy", "no archive connection", nil)
	}
	if err := s.db.Ping(); err != nil {
		return storage.CreateHealthData("unhealthy", "archive ping failed", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM run_reports`).Scan(&count); err != nil {
		return storage.CreateHealthData("unhealthy", "run_reports query failed", err)
	}
	return storage.CreateHealthData("healthy", fmt.Sprintf("%d runs archived", count), nil)
}

// Close closes the archive.
func (s *Storage) Close() error {
	return s.db.Close()
}
