package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files.
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a provider for the given YAML file. The file is
// read on the first load, not here.
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{filename: filename}
}

// LoadConfig loads the complete configuration from the YAML file.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	raw, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", y.filename, err)
	}

	var cfg ConfigData
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", y.filename, err)
	}

	ApplyEnvOverrides(&cfg)
	y.config = &cfg
	return y.config, nil
}

func (y *YAMLProvider) cached() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}
	return y.LoadConfig()
}

// GetPipeline returns the pipeline tuning section.
func (y *YAMLProvider) GetPipeline() (*PipelineData, error) {
	cfg, err := y.cached()
	if err != nil {
		return nil, err
	}
	return &cfg.Pipeline, nil
}

// GetIngest returns the fleet input section.
func (y *YAMLProvider) GetIngest() (*IngestData, error) {
	cfg, err := y.cached()
	if err != nil {
		return nil, err
	}
	return &cfg.Ingest, nil
}

// GetModel returns the prediction model section.
func (y *YAMLProvider) GetModel() (*ModelData, error) {
	cfg, err := y.cached()
	if err != nil {
		return nil, err
	}
	return &cfg.Model, nil
}

// GetStorageConfig returns the storage backend section.
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	cfg, err := y.cached()
	if err != nil {
		return nil, err
	}
	return &cfg.Storage, nil
}

// GetControllers returns the configured controller instances.
func (y *YAMLProvider) GetControllers() ([]ControllerData, error) {
	cfg, err := y.cached()
	if err != nil {
		return nil, err
	}
	return cfg.Controllers, nil
}

// IsReadOnly reports that YAML files are edited out of band, never by us.
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for file-backed configuration.
func (y *YAMLProvider) Close() error {
	return nil
}
