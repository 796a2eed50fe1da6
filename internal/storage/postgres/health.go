package postgres

import (
	"github.com/hullwatch/hullwatch/internal/storage"
)

// CheckHealth reports the current state of the warehouse connection.
func (s *Storage) CheckHealth() *storage.HealthData {
	if s.DBConn == nil {
		return storage.CreateHealthData("unhealthy", "no database connection", nil)
	}

	sqlDB, err := s.DBConn.DB()
	if err != nil {
		return storage.CreateHealthData("unhealthy", "failed to get underlying database connection", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return storage.CreateHealthData("unhealthy", "database ping failed", err)
	}

	var count int64
	if err := s.DBConn.Table("pipeline_runs").Count(&count).Error; err != nil {
		return storage.CreateHealthData("unhealthy", "pipeline_runs query failed", err)
	}

	health := storage.CreateHealthData("healthy", "results database connection active", nil)
	if count == 0 {
		health.Message = "results database connected, no runs stored yet"
	}
	return health
}
