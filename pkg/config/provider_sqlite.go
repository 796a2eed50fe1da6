package config

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider for SQLite-backed configuration.
// Each section lives as one JSON document in config_sections, keyed by the
// owning row in configs. Storing documents rather than one column per knob
// keeps schema churn out of the database when sections grow.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS configs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS config_sections (
	config_id INTEGER NOT NULL REFERENCES configs(id),
	section TEXT NOT NULL,
	document TEXT NOT NULL,
	PRIMARY KEY (config_id, section)
);
`

const defaultConfigName = "default"

// NewSQLiteProvider opens (creating if necessary) a SQLite configuration
// database.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open config database %s: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping config database %s: %w", dbPath, err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize config schema: %w", err)
	}

	return &SQLiteProvider{db: db, dbPath: dbPath}, nil
}

// LoadConfig loads the complete configuration from the database.
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	cfg := &ConfigData{}

	if err := s.loadSection("pipeline", &cfg.Pipeline); err != nil {
		return nil, err
	}
	if err := s.loadSection("ingest", &cfg.Ingest); err != nil {
		return nil, err
	}
	if err := s.loadSection("model", &cfg.Model); err != nil {
		return nil, err
	}
	if err := s.loadSection("storage", &cfg.Storage); err != nil {
		return nil, err
	}
	if err := s.loadSection("controllers", &cfg.Controllers); err != nil {
		return nil, err
	}

	ApplyEnvOverrides(cfg)
	return cfg, nil
}

// loadSection unmarshals one section document into dst. A missing section
// leaves dst zeroed.
func (s *SQLiteProvider) loadSection(section string, dst any) error {
	var doc string
	err := s.db.QueryRow(`
		SELECT document FROM config_sections
		WHERE section = ?
		  AND config_id = (SELECT id FROM configs WHERE name = ?)`,
		section, defaultConfigName).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load config section %s: %w", section, err)
	}
	if err := json.Unmarshal([]byte(doc), dst); err != nil {
		return fmt.Errorf("decode config section %s: %w", section, err)
	}
	return nil
}

// SaveConfig writes the complete configuration, replacing any existing
// sections under the default config name.
func (s *SQLiteProvider) SaveConfig(cfg *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin config save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR IGNORE INTO configs (name) VALUES (?)`, defaultConfigName); err != nil {
		return fmt.Errorf("ensure config row: %w", err)
	}

	var configID int64
	if err := tx.QueryRow(`SELECT id FROM configs WHERE name = ?`, defaultConfigName).Scan(&configID); err != nil {
		return fmt.Errorf("resolve config row: %w", err)
	}

	sections := []struct {
		name string
		data any
	}{
		{"pipeline", cfg.Pipeline},
		{"ingest", cfg.Ingest},
		{"model", cfg.Model},
		{"storage", cfg.Storage},
		{"controllers", cfg.Controllers},
	}
	for _, sec := range sections {
		doc, err := json.Marshal(sec.data)
		if err != nil {
			return fmt.Errorf("encode config section %s: %w", sec.name, err)
		}
		_, err = tx.Exec(`
			INSERT INTO config_sections (config_id, section, document)
			VALUES (?, ?, ?)
			ON CONFLICT (config_id, section) DO UPDATE SET document = excluded.document`,
			configID, sec.name, string(doc))
		if err != nil {
			return fmt.Errorf("store config section %s: %w", sec.name, err)
		}
	}

	return tx.Commit()
}

// GetPipeline returns the pipeline tuning section.
func (s *SQLiteProvider) GetPipeline() (*PipelineData, error) {
	var out PipelineData
	if err := s.loadSection("pipeline", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetIngest returns the fleet input section.
func (s *SQLiteProvider) GetIngest() (*IngestData, error) {
	var out IngestData
	if err := s.loadSection("ingest", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetModel returns the prediction model section.
func (s *SQLiteProvider) GetModel() (*ModelData, error) {
	var out ModelData
	if err := s.loadSection("model", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStorageConfig returns the storage backend section.
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	var out StorageData
	if err := s.loadSection("storage", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetControllers returns the configured controller instances.
func (s *SQLiteProvider) GetControllers() ([]ControllerData, error) {
	var out []ControllerData
	if err := s.loadSection("controllers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsReadOnly reports that the database backend accepts writes.
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the underlying database handle.
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
