package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hullwatch/hullwatch/internal/database"
	"github.com/hullwatch/hullwatch/pkg/config"
	"go.uber.org/zap"
)

// NewHTTPClient creates a standardized HTTP client with timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
	}
}

// ValidatePostgresConfig validates that a results database is configured
func ValidatePostgresConfig(configProvider config.ConfigProvider, controllerName string) error {
	cfgData, err := configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %v", err)
	}

	if cfgData.Storage.Postgres == nil || cfgData.Storage.Postgres.ConnectionString == "" {
		return fmt.Errorf("Postgres storage must be configured for the %s controller to function", controllerName)
	}

	return nil
}

// SetupDatabaseConnection creates and connects to the results database
func SetupDatabaseConnection(configProvider config.ConfigProvider, logger *zap.SugaredLogger) (*database.Client, error) {
	cfgData, err := configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %v", err)
	}
	if cfgData.Storage.Postgres == nil {
		return nil, fmt.Errorf("no Postgres storage configured")
	}

	db := database.NewClient(cfgData.Storage.Postgres.ConnectionString, logger)
	if err := db.Connect(); err != nil {
		return nil, fmt.Errorf("could not connect to results database: %v", err)
	}

	return db, nil
}

// ValidateRequiredFields checks that required configuration fields are set
func ValidateRequiredFields(fields map[string]string) error {
	for fieldName, fieldValue := range fields {
		if fieldValue == "" {
			return fmt.Errorf("%s must be set", fieldName)
		}
	}
	return nil
}

// PeriodicTask represents a periodic task configuration
type PeriodicTask struct {
	Name     string
	Interval time.Duration
	Task     func() error
}

// RunPeriodicTask runs a task periodically until context is cancelled
func RunPeriodicTask(ctx context.Context, task PeriodicTask, logger *zap.SugaredLogger) {
	logger.Infof("Starting periodic task: %s (interval: %v)", task.Name, task.Interval)

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := task.Task(); err != nil {
				logger.Errorf("Error in periodic task %s: %v", task.Name, err)
			}
		case <-ctx.Done():
			logger.Infof("Stopping periodic task: %s", task.Name)
			return
		}
	}
}
