package config

import (
	"fmt"
	"time"
)

// Controller type names recognized by the controller manager.
const (
	ControllerTypeREST          = "rest"
	ControllerTypeOcean         = "ocean"
	ControllerTypePipelineCache = "pipeline-cache"
)

// Validate checks the loaded configuration for mistakes that would only
// surface later as confusing runtime failures.
func (c *ConfigData) Validate() error {
	if err := c.Storage.validate(); err != nil {
		return err
	}

	for i, ctrl := range c.Controllers {
		if err := ctrl.validate(); err != nil {
			return fmt.Errorf("controller %d: %w", i, err)
		}
		if ctrl.Type == ControllerTypePipelineCache {
			if c.Ingest.EventsPath == "" || c.Ingest.ConsumptionPath == "" {
				return fmt.Errorf("controller %d: pipeline-cache requires ingest events-path and consumption-path", i)
			}
		}
	}

	return nil
}

func (s *StorageData) validate() error {
	if s.Postgres != nil && s.Postgres.ConnectionString == "" {
		return fmt.Errorf("postgres storage requires a connection string")
	}
	if s.SQLite != nil && s.SQLite.Path == "" {
		return fmt.Errorf("sqlite storage requires a database path")
	}
	if s.CSV != nil && s.CSV.Directory == "" {
		return fmt.Errorf("csv storage requires a directory")
	}
	return nil
}

func (c *ControllerData) validate() error {
	switch c.Type {
	case ControllerTypeREST:
		if c.RESTServer == nil {
			return fmt.Errorf("rest controller is missing its rest section")
		}
		return c.RESTServer.validate()
	case ControllerTypeOcean:
		if c.OceanConditions == nil {
			return fmt.Errorf("ocean controller is missing its ocean section")
		}
		return c.OceanConditions.validate()
	case ControllerTypePipelineCache:
		if c.PipelineCache == nil {
			return fmt.Errorf("pipeline-cache controller is missing its pipeline-cache section")
		}
		return c.PipelineCache.validate()
	case "":
		return fmt.Errorf("controller type is empty")
	default:
		return fmt.Errorf("unknown controller type %q", c.Type)
	}
}

func (r *RESTServerData) validate() error {
	if r.Port < 1 || r.Port > 65535 {
		return fmt.Errorf("rest port %d is out of range", r.Port)
	}
	if (r.Cert == "") != (r.Key == "") {
		return fmt.Errorf("rest tls requires both cert and key")
	}
	return nil
}

func (o *OceanConditionsData) validate() error {
	if o.APIEndpoint == "" {
		return fmt.Errorf("ocean controller requires an api-endpoint")
	}
	if len(o.Locations) == 0 {
		return fmt.Errorf("ocean controller requires at least one location")
	}
	return validInterval(o.RefreshInterval, "ocean refresh-interval")
}

func (p *PipelineCacheData) validate() error {
	return validInterval(p.RefreshInterval, "pipeline-cache refresh-interval")
}

func validInterval(raw, what string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", what)
	}
	return nil
}

// Interval parses the refresh interval, falling back to the given default
// when unset.
func (o *OceanConditionsData) Interval(fallback time.Duration) time.Duration {
	return parseInterval(o.RefreshInterval, fallback)
}

// Interval parses the refresh interval, falling back to the given default
// when unset.
func (p *PipelineCacheData) Interval(fallback time.Duration) time.Duration {
	return parseInterval(p.RefreshInterval, fallback)
}

func parseInterval(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
