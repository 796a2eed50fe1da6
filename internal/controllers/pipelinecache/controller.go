// Package pipelinecache periodically re-runs the scoring pipeline from the
// configured fleet exports, refreshing the in-memory run cache and fanning
// the report out to the configured storage engines. It runs independently of
// the REST server, which only ever reads the cache.
package pipelinecache

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hullwatch/hullwatch/internal/controllers"
	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/ingest"
	"github.com/hullwatch/hullwatch/internal/runcache"
	"github.com/hullwatch/hullwatch/internal/storage/sqlitearchive"
	"github.com/hullwatch/hullwatch/internal/types"
	"github.com/hullwatch/hullwatch/pkg/config"
	"go.uber.org/zap"
)

// defaultRefreshInterval is used when the config does not set one. Fleet
// exports land in batches, so sub-minute polling buys nothing.
const defaultRefreshInterval = 15 * time.Minute

// Deps are the collaborators shared with the rest of the daemon.
type Deps struct {
	// Cache receives every completed run snapshot.
	Cache *runcache.Cache

	// Distributor fans completed runs out to the storage engines. May be
	// nil when no engines are configured.
	Distributor chan<- *fouling.RunReport

	// Archive, when present, warms the cache with the newest archived run
	// on startup.
	Archive *sqlitearchive.Storage
}

// Controller manages the pipeline refresh lifecycle
type Controller struct {
	ctx            context.Context
	wg             *sync.WaitGroup
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
	cache          *runcache.Cache
	distributor    chan<- *fouling.RunReport
	archive        *sqlitearchive.Storage
	refreshEvery   time.Duration

	// lastFingerprint identifies the input files of the last successful
	// run; matching inputs skip the refresh. Only the refresh goroutine
	// touches it.
	lastFingerprint string
}

// NewController creates a new pipeline cache controller
func NewController(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider, pc config.PipelineCacheData, logger *zap.SugaredLogger, deps Deps) (*Controller, error) {
	if deps.Cache == nil {
		return nil, fmt.Errorf("run cache required for pipeline cache controller")
	}

	c := &Controller{
		ctx:            ctx,
		wg:             wg,
		configProvider: configProvider,
		logger:         logger,
		cache:          deps.Cache,
		distributor:    deps.Distributor,
		archive:        deps.Archive,
		refreshEvery:   defaultRefreshInterval,
	}

	if pc.RefreshInterval != "" {
		var err error
		c.refreshEvery, err = time.ParseDuration(pc.RefreshInterval)
		if err != nil {
			return nil, fmt.Errorf("error parsing pipeline-cache refresh-interval: %v", err)
		}
	}

	return c, nil
}

// StartController warms the cache and begins the refresh loop
func (c *Controller) StartController() error {
	c.logger.Info("Starting pipeline cache controller...")
	c.warmFromArchive()
	go c.run()
	return nil
}

// warmFromArchive seeds the cache with the newest archived run so the API
// can serve fleet state before the first refresh completes.
func (c *Controller) warmFromArchive() {
	if c.archive == nil {
		return
	}
	if _, ok := c.cache.Report(); ok {
		return
	}

	report, err := c.archive.LatestReport()
	if err != nil {
		c.logger.Warnf("could not warm cache from archive: %v", err)
		return
	}
	if report == nil {
		return
	}

	c.cache.Set(report)
	c.logger.Infof("warmed cache from archived run %s (%d results)", report.RunID, len(report.Results))
}

func (c *Controller) run() {
	c.wg.Add(1)
	defer c.wg.Done()

	// Tickers only begin to fire after the first interval has elapsed, so
	// attempt one refresh up front.
	if err := c.refreshOnce(); err != nil {
		c.logger.Errorf("initial pipeline refresh failed: %v", err)
	}

	controllers.RunPeriodicTask(c.ctx, controllers.PeriodicTask{
		Name:     "pipeline refresh",
		Interval: c.refreshEvery,
		Task:     c.refreshOnce,
	}, c.logger)
}

// refreshOnce reloads the fleet exports and re-runs the pipeline. Missing or
// unchanged inputs skip the run; load and pipeline failures are errors so
// the periodic task logs them.
func (c *Controller) refreshOnce() error {
	ing, err := c.configProvider.GetIngest()
	if err != nil {
		return fmt.Errorf("error loading ingest configuration: %v", err)
	}
	if ing.EventsPath == "" || ing.ConsumptionPath == "" {
		c.logger.Debug("ingest sources not configured; skipping pipeline refresh")
		return nil
	}

	fp, missing, err := fingerprintInputs(ing)
	if err != nil {
		return fmt.Errorf("error checking ingest inputs: %v", err)
	}
	if missing != "" {
		c.logger.Infof("ingest input %s absent; skipping pipeline refresh", missing)
		return nil
	}
	if fp == c.lastFingerprint {
		c.logger.Debug("ingest inputs unchanged; skipping pipeline refresh")
		return nil
	}

	c.logger.Infof("Refreshing fouling pipeline from %s", ing.EventsPath)

	events, evStats, err := ingest.LoadEvents(ing.EventsPath, ing.Columns)
	if err != nil {
		return err
	}
	consumption, conStats, err := ingest.LoadConsumption(ing.ConsumptionPath, ing.Columns)
	if err != nil {
		return err
	}

	var drydocks []types.DrydockRecord
	var dockStats ingest.Stats
	if ing.DrydockPath != "" {
		drydocks, dockStats, err = ingest.LoadDrydocks(ing.Drydocks(), ing.Columns)
		if err != nil {
			return err
		}
	}

	pipe, err := c.configProvider.GetPipeline()
	if err != nil {
		return fmt.Errorf("error loading pipeline configuration: %v", err)
	}

	report, err := fouling.Run(events, consumption, drydocks, pipe.Params())
	if err != nil {
		return err
	}
	report.Diagnostics.MalformedRows = evStats.Malformed + conStats.Malformed + dockStats.Malformed

	c.cache.Set(report)

	if c.distributor != nil {
		select {
		case c.distributor <- report:
		case <-c.ctx.Done():
			return nil
		}
	}

	c.lastFingerprint = fp
	c.logger.Infof("pipeline refresh complete: run %s scored %d events across %d ships",
		report.RunID, len(report.Results), len(report.Summaries))
	return nil
}

// fingerprintInputs stats the configured sources and condenses their sizes
// and modification times. The second return names the first missing input,
// if any.
func fingerprintInputs(ing *config.IngestData) (string, string, error) {
	paths := []string{ing.EventsPath, ing.ConsumptionPath}
	if ing.DrydockPath != "" {
		paths = append(paths, ing.DrydockPath)
	}
	if ing.PaintPath != "" {
		paths = append(paths, ing.PaintPath)
	}

	var b strings.Builder
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return "", p, nil
		}
		if err != nil {
			return "", "", err
		}
		fmt.Fprintf(&b, "%s=%d:%d;", p, info.Size(), info.ModTime().UnixNano())
	}
	return b.String(), "", nil
}
