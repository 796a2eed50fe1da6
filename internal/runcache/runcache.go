// Package runcache holds the most recent completed pipeline run for
// concurrent readers. Handlers treat everything returned from the cache as
// read-only; a new run replaces the snapshot wholesale.
package runcache

import (
	"sync"
	"time"

	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/types"
)

// Cache is safe for concurrent use by one writer and many readers.
type Cache struct {
	mu        sync.RWMutex
	report    *fouling.RunReport
	updatedAt time.Time
	byShip    map[string][]types.BiofoulingResult
	summaries map[string]types.ShipSummary
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// Set replaces the cached run and rebuilds the per-ship indexes.
func (c *Cache) Set(report *fouling.RunReport) {
	byShip := make(map[string][]types.BiofoulingResult)
	summaries := make(map[string]types.ShipSummary, len(report.Summaries))

	// Results arrive sorted by ship then date, so per-ship views are
	// contiguous subslices of the report's backing array.
	start := 0
	for i := 1; i <= len(report.Results); i++ {
		if i == len(report.Results) || report.Results[i].ShipName != report.Results[start].ShipName {
			byShip[report.Results[start].ShipName] = report.Results[start:i:i]
			start = i
		}
	}
	for _, s := range report.Summaries {
		summaries[s.ShipName] = s
	}

	c.mu.Lock()
	c.report = report
	c.updatedAt = time.Now().UTC()
	c.byShip = byShip
	c.summaries = summaries
	c.mu.Unlock()
}

// Report returns the cached run, or false before the first completed run.
func (c *Cache) Report() (*fouling.RunReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.report, c.report != nil
}

// UpdatedAt returns when the cache last accepted a run.
func (c *Cache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// ShipNames returns the ships of the cached run in summary order.
func (c *Cache) ShipNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.report == nil {
		return nil
	}
	names := make([]string, 0, len(c.report.Summaries))
	for _, s := range c.report.Summaries {
		names = append(names, s.ShipName)
	}
	return names
}

// ShipResults returns the cached result rows for one ship, newest input
// order preserved.
func (c *Cache) ShipResults(ship string) []types.BiofoulingResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byShip[ship]
}

// ShipSummary returns the cached summary for one ship.
func (c *Cache) ShipSummary(ship string) (types.ShipSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.summaries[ship]
	return s, ok
}
