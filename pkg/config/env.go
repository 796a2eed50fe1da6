package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads a .env file from the working directory when present.
// Missing files are fine; real environments set variables directly.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// ApplyEnvOverrides layers HULLWATCH_* environment variables over the
// loaded configuration. Secrets like database DSNs and API keys belong in
// the environment, not in config files checked into fleet repos.
func ApplyEnvOverrides(cfg *ConfigData) {
	if dsn := os.Getenv("HULLWATCH_POSTGRES_DSN"); dsn != "" {
		if cfg.Storage.Postgres == nil {
			cfg.Storage.Postgres = &PostgresData{}
		}
		cfg.Storage.Postgres.ConnectionString = dsn
	}
	if path := os.Getenv("HULLWATCH_SQLITE_PATH"); path != "" {
		if cfg.Storage.SQLite == nil {
			cfg.Storage.SQLite = &SQLiteData{}
		}
		cfg.Storage.SQLite.Path = path
	}
	if path := os.Getenv("HULLWATCH_MODEL_PATH"); path != "" {
		cfg.Model.Path = path
	}
	if key := os.Getenv("HULLWATCH_OCEAN_API_KEY"); key != "" {
		for i := range cfg.Controllers {
			if cfg.Controllers[i].OceanConditions != nil {
				cfg.Controllers[i].OceanConditions.APIKey = key
			}
		}
	}
	if port := envInt("HULLWATCH_REST_PORT"); port > 0 {
		for i := range cfg.Controllers {
			if cfg.Controllers[i].RESTServer != nil {
				cfg.Controllers[i].RESTServer.Port = port
			}
		}
	}
}

func envInt(key string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}
