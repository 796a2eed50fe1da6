package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *ConfigData {
	return &ConfigData{
		Ingest: IngestData{
			EventsPath:      "/data/events.csv",
			ConsumptionPath: "/data/fuel.csv",
		},
		Storage: StorageData{
			CSV: &CSVReportData{Directory: "/var/lib/hullwatch"},
		},
		Controllers: []ControllerData{
			{Type: ControllerTypeREST, RESTServer: &RESTServerData{Port: 8080}},
			{Type: ControllerTypeOcean, OceanConditions: &OceanConditionsData{
				APIEndpoint:     "https://marine.example.com/v1",
				Locations:       []string{"-23.98,-46.30"},
				RefreshInterval: "15m",
			}},
			{Type: ControllerTypePipelineCache, PipelineCache: &PipelineCacheData{RefreshInterval: "1h"}},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ConfigData)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *ConfigData) {},
		},
		{
			name:    "rest port out of range",
			mutate:  func(c *ConfigData) { c.Controllers[0].RESTServer.Port = 70000 },
			wantErr: "out of range",
		},
		{
			name:    "rest port zero",
			mutate:  func(c *ConfigData) { c.Controllers[0].RESTServer.Port = 0 },
			wantErr: "out of range",
		},
		{
			name:    "tls cert without key",
			mutate:  func(c *ConfigData) { c.Controllers[0].RESTServer.Cert = "/etc/tls/cert.pem" },
			wantErr: "both cert and key",
		},
		{
			name:    "unknown controller type",
			mutate:  func(c *ConfigData) { c.Controllers[0].Type = "grpc" },
			wantErr: `unknown controller type "grpc"`,
		},
		{
			name:    "empty controller type",
			mutate:  func(c *ConfigData) { c.Controllers[0].Type = "" },
			wantErr: "controller type is empty",
		},
		{
			name:    "rest section missing",
			mutate:  func(c *ConfigData) { c.Controllers[0].RESTServer = nil },
			wantErr: "missing its rest section",
		},
		{
			name:    "ocean endpoint missing",
			mutate:  func(c *ConfigData) { c.Controllers[1].OceanConditions.APIEndpoint = "" },
			wantErr: "api-endpoint",
		},
		{
			name:    "ocean locations missing",
			mutate:  func(c *ConfigData) { c.Controllers[1].OceanConditions.Locations = nil },
			wantErr: "at least one location",
		},
		{
			name:    "ocean interval garbage",
			mutate:  func(c *ConfigData) { c.Controllers[1].OceanConditions.RefreshInterval = "soon" },
			wantErr: "refresh-interval",
		},
		{
			name:    "negative cache interval",
			mutate:  func(c *ConfigData) { c.Controllers[2].PipelineCache.RefreshInterval = "-5m" },
			wantErr: "must be positive",
		},
		{
			name:    "pipeline cache without ingest paths",
			mutate:  func(c *ConfigData) { c.Ingest.ConsumptionPath = "" },
			wantErr: "requires ingest",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *ConfigData) { c.Storage.Postgres = &PostgresData{} },
			wantErr: "connection string",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *ConfigData) { c.Storage.SQLite = &SQLiteData{} },
			wantErr: "database path",
		},
		{
			name:    "csv without directory",
			mutate:  func(c *ConfigData) { c.Storage.CSV.Directory = "" },
			wantErr: "csv storage requires a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestIntervalFallback(t *testing.T) {
	ocean := &OceanConditionsData{RefreshInterval: "45m"}
	if got := ocean.Interval(time.Hour); got != 45*time.Minute {
		t.Errorf("Interval = %v, want 45m", got)
	}

	ocean.RefreshInterval = ""
	if got := ocean.Interval(time.Hour); got != time.Hour {
		t.Errorf("empty interval = %v, want fallback 1h", got)
	}

	cache := &PipelineCacheData{RefreshInterval: "junk"}
	if got := cache.Interval(6 * time.Hour); got != 6*time.Hour {
		t.Errorf("garbage interval = %v, want fallback 6h", got)
	}
}
