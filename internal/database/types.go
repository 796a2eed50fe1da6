package database

import (
	"fmt"
	"time"

	"github.com/hullwatch/hullwatch/internal/types"
)

// FetchedShipStatus is the latest stored result row for one ship, used to
// answer fleet queries before the in-memory cache has warmed.
type FetchedShipStatus struct {
	ShipName          string    `gorm:"column:ship_name"`
	StartDate         time.Time `gorm:"column:start_date"`
	ExcessRatio       float64   `gorm:"column:excess_ratio"`
	BioIndex          float64   `gorm:"column:bio_index"`
	BioClass          string    `gorm:"column:bio_class"`
	DaysSinceCleaning float64   `gorm:"column:days_since_cleaning"`
	PaintType         string    `gorm:"column:paint_type"`
	TotalEvents       int       `gorm:"column:total_events"`
}

// TableName implements the Tabler interface for the FetchedShipStatus struct
func (FetchedShipStatus) TableName() string {
	return "biofouling_results"
}

// GetShipStatuses retrieves the most recent result row per ship, along with
// each ship's event count for the stored run.
func (c *Client) GetShipStatuses() ([]FetchedShipStatus, error) {
	var statuses []FetchedShipStatus

	err := c.DB.Raw(`
		SELECT DISTINCT ON (ship_name)
		       ship_name, start_date, excess_ratio, bio_index, bio_class,
		       days_since_cleaning, paint_type,
		       COUNT(*) OVER (PARTITION BY ship_name) AS total_events
		FROM biofouling_results
		ORDER BY ship_name, start_date DESC`).Scan(&statuses).Error
	if err != nil {
		return nil, fmt.Errorf("error querying database for ship statuses: %w", err)
	}

	return statuses, nil
}

// GetShipStatus retrieves the most recent result row for one ship.
func (c *Client) GetShipStatus(shipName string) (FetchedShipStatus, error) {
	var status FetchedShipStatus

	err := c.DB.Table("biofouling_results").
		Where("ship_name = ?", shipName).
		Order("start_date DESC").
		Limit(1).
		Find(&status).Error
	if err != nil {
		return FetchedShipStatus{}, fmt.Errorf("error querying database for ship %s: %w", shipName, err)
	}
	if status.ShipName == "" {
		return FetchedShipStatus{}, fmt.Errorf("no results stored for ship %s", shipName)
	}

	return status, nil
}

// GetResults retrieves every stored result row in the ship/date order the
// pipeline emits them.
func (c *Client) GetResults() ([]types.BiofoulingResult, error) {
	var results []types.BiofoulingResult

	err := c.DB.Table("biofouling_results").
		Order("ship_name, start_date").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error querying database for results: %w", err)
	}

	return results, nil
}

// GetShipSummaries retrieves the per-ship summaries of the latest stored run.
func (c *Client) GetShipSummaries() ([]types.ShipSummary, error) {
	var summaries []types.ShipSummary

	err := c.DB.Table("ship_summaries").
		Order("ship_name").
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("error querying database for ship summaries: %w", err)
	}

	return summaries, nil
}

// GetLatestRun retrieves the metadata row of the most recent pipeline run.
func (c *Client) GetLatestRun() (PipelineRun, error) {
	var run PipelineRun

	err := c.DB.Order("finished_at DESC").Limit(1).Find(&run).Error
	if err != nil {
		return PipelineRun{}, fmt.Errorf("error querying database for latest run: %w", err)
	}
	if run.RunID == "" {
		return PipelineRun{}, fmt.Errorf("no pipeline runs recorded")
	}

	return run, nil
}
