package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/storage"
	"github.com/hullwatch/hullwatch/internal/storage/csvreport"
	"github.com/hullwatch/hullwatch/internal/storage/postgres"
	"github.com/hullwatch/hullwatch/internal/storage/sqlitearchive"
	"github.com/hullwatch/hullwatch/pkg/config"
)

// StorageManager holds our active storage backends
type StorageManager struct {
	Engines           []StorageEngine
	ReportDistributor chan *fouling.RunReport

	archive *sqlitearchive.Storage
}

// StorageEngine holds a backend storage engine's interface as well as
// a channel for passing run reports to the engine
type StorageEngine struct {
	Engine storage.StorageEngineInterface
	C      chan<- *fouling.RunReport
}

// NewStorageManager creates a StorageManager object, populated with all configured StorageEngines
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider) (*StorageManager, error) {
	cfgData, err := configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %v", err)
	}

	s := StorageManager{}

	// Initialize our channel for passing completed runs to the report
	// distributor
	s.ReportDistributor = make(chan *fouling.RunReport, 10)

	// Start our report distributor to distribute received runs to storage
	// backends
	go s.startReportDistributor(ctx, wg)

	// Check the configuration file for various supported storage backends
	// and enable them if found

	if cfgData.Storage.Postgres != nil && cfgData.Storage.Postgres.ConnectionString != "" {
		err = s.AddEngine(ctx, wg, "postgres", cfgData)
		if err != nil {
			return &s, fmt.Errorf("could not add Postgres storage backend: %v", err)
		}
	}

	if cfgData.Storage.SQLite != nil && cfgData.Storage.SQLite.Path != "" {
		err = s.AddEngine(ctx, wg, "sqlite", cfgData)
		if err != nil {
			return &s, fmt.Errorf("could not add SQLite archive backend: %v", err)
		}
	}

	if cfgData.Storage.CSV != nil && cfgData.Storage.CSV.Directory != "" {
		err = s.AddEngine(ctx, wg, "csv", cfgData)
		if err != nil {
			return &s, fmt.Errorf("could not add CSV report backend: %v", err)
		}
	}

	return &s, nil
}

// Archive returns the shared SQLite archive handle, or nil when the archive
// backend is not configured. Controllers reuse it rather than opening a
// second handle on the same file.
func (s *StorageManager) Archive() *sqlitearchive.Storage {
	return s.archive
}

// AddEngine adds a new StorageEngine of name engineName to our Storage object
func (s *StorageManager) AddEngine(ctx context.Context, wg *sync.WaitGroup, engineName string, cfgData *config.ConfigData) error {
	switch engineName {
	case "postgres":
		se := StorageEngine{}
		engine, err := postgres.New(ctx, cfgData.Storage.Postgres.ConnectionString)
		if err != nil {
			return err
		}
		se.Engine = engine
		se.C = se.Engine.StartStorageEngine(ctx, wg)
		s.Engines = append(s.Engines, se)
	case "sqlite":
		se := StorageEngine{}
		engine, err := sqlitearchive.New(ctx, cfgData.Storage.SQLite.Path)
		if err != nil {
			return err
		}
		s.archive = engine
		se.Engine = engine
		se.C = se.Engine.StartStorageEngine(ctx, wg)
		s.Engines = append(s.Engines, se)
	case "csv":
		se := StorageEngine{}
		engine, err := csvreport.New(cfgData.Storage.CSV.Directory)
		if err != nil {
			return err
		}
		se.Engine = engine
		se.C = se.Engine.StartStorageEngine(ctx, wg)
		s.Engines = append(s.Engines, se)
	default:
		return fmt.Errorf("unknown storage engine: %s", engineName)
	}

	return nil
}

// startReportDistributor receives completed pipeline runs and fans them out
// to the various storage backends
func (s *StorageManager) startReportDistributor(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case r := <-s.ReportDistributor:
			for _, e := range s.Engines {
				e.C <- r
			}
		case <-ctx.Done():
			return
		}
	}
}
