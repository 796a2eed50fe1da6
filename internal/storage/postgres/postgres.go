// Package postgres stores pipeline run reports in a PostgreSQL results
// warehouse. The per-event rows and ship summaries always reflect the latest
// completed run; run metadata and served predictions accumulate.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/hullwatch/hullwatch/internal/database"
	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/log"
	"github.com/hullwatch/hullwatch/internal/storage"
)

const insertBatchSize = 500

// Storage holds the connection for a PostgreSQL storage backend
type Storage struct {
	DBConn *gorm.DB
}

// StartStorageEngine creates a goroutine loop to receive run reports and
// persist them
func (s *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- *fouling.RunReport {
	log.Info("starting PostgreSQL storage engine...")
	reportChan := make(chan *fouling.RunReport, 10)
	go storage.ProcessReports(ctx, wg, reportChan, s.StoreReport, "postgres")
	storage.StartHealthMonitor(ctx, "postgres", s, time.Minute)
	return reportChan
}

// StoreReport replaces the result snapshot and appends the run metadata in
// one transaction, so readers never observe a half-written run.
func (s *Storage) StoreReport(report *fouling.RunReport) error {
	run, err := runRow(report)
	if err != nil {
		return err
	}

	err = s.DBConn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM biofouling_results`).Error; err != nil {
			return fmt.Errorf("clear previous results: %w", err)
		}
		if err := tx.Exec(`DELETE FROM ship_summaries`).Error; err != nil {
			return fmt.Errorf("clear previous summaries: %w", err)
		}
		if len(report.Results) > 0 {
			if err := tx.CreateInBatches(report.Results, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert results: %w", err)
			}
		}
		if len(report.Summaries) > 0 {
			if err := tx.CreateInBatches(report.Summaries, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert summaries: %w", err)
			}
		}
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("insert run metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("could not store run report:", err)
		return err
	}

	log.Infof("stored run %s: %d results, %d ships", report.RunID, len(report.Results), len(report.Summaries))
	return nil
}

// LogPrediction appends one served-prediction audit row.
func (s *Storage) LogPrediction(entry database.PredictionLog) error {
	if err := s.DBConn.Create(&entry).Error; err != nil {
		return fmt.Errorf("insert prediction log: %w", err)
	}
	return nil
}

func runRow(report *fouling.RunReport) (database.PipelineRun, error) {
	run := database.PipelineRun{
		RunID:            report.RunID,
		StartedAt:        report.StartedAt,
		FinishedAt:       report.FinishedAt,
		EventsLoaded:     report.Diagnostics.EventsLoaded,
		MalformedRows:    report.Diagnostics.MalformedRows,
		ExcludedRows:     report.Diagnostics.Excluded(),
		ResultsEmitted:   report.Diagnostics.ResultsEmitted,
		GlobalEfficiency: report.Calibration.Global,
		CalibratedShips:  len(report.Calibration.PerShip),
		DynamicReference: report.DynamicReference,
	}

	params, err := json.Marshal(report.Params)
	if err != nil {
		return run, fmt.Errorf("encode run params: %w", err)
	}
	if err := run.Params.Set(params); err != nil {
		return run, fmt.Errorf("set run params: %w", err)
	}

	return run, nil
}

// New sets up a new PostgreSQL storage backend
func New(ctx context.Context, connectionString string) (*Storage, error) {
	var err error
	s := Storage{}

	s.DBConn, err = database.CreateConnection(connectionString)
	if err != nil {
		log.Warn("warning: unable to create a results database connection:", err)
		return &Storage{}, err
	}

	log.Info("creating results warehouse tables...")
	for _, ddl := range []string{
		createResultsTableSQL,
		createResultsIndexesSQL,
		createSummariesTableSQL,
		createRunsTableSQL,
		createPredictionLogTableSQL,
	} {
		if err := s.DBConn.WithContext(ctx).Exec(ddl).Error; err != nil {
			log.Warn("warning: could not create results warehouse schema")
			return &Storage{}, err
		}
	}

	return &s, nil
}
