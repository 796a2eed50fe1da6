// Package app wires the daemon together: storage engines, the shared run
// cache and model, and the configured controllers, with signal-driven
// shutdown.
package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/log"
	"github.com/hullwatch/hullwatch/internal/managers"
	"github.com/hullwatch/hullwatch/internal/predict"
	"github.com/hullwatch/hullwatch/internal/runcache"
	"github.com/hullwatch/hullwatch/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Initialize the storage manager
	storageManager, err := managers.NewStorageManager(ctx, &wg, a.configProvider)
	if err != nil {
		return err
	}

	// Load the scoring model and the shared run cache the controllers use
	predictor, encoding, err := a.loadModel()
	if err != nil {
		return err
	}
	cache := runcache.New()

	// Initialize the controller manager
	cm, err := managers.NewControllerManager(ctx, &wg, a.configProvider, managers.ControllerDeps{
		Cache:       cache,
		Predictor:   predictor,
		Encoding:    encoding,
		Archive:     storageManager.Archive(),
		Distributor: storageManager.ReportDistributor,
	}, a.logger)
	if err != nil {
		return err
	}
	err = cm.StartControllers()
	if err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}

// loadModel loads the fitted ensemble artifact when one is configured,
// falling back to the built-in heuristic. A configured artifact that fails
// to load is fatal; silently serving heuristic scores in its place would
// misreport every prediction as coming from the model.
func (a *App) loadModel() (predict.Predictor, fouling.PaintEncoding, error) {
	model, err := a.configProvider.GetModel()
	if err != nil {
		return nil, nil, err
	}

	var predictor predict.Predictor = predict.Heuristic{}
	if model.Path != "" {
		ens, err := predict.LoadEnsembleFile(model.Path)
		if err != nil {
			return nil, nil, err
		}
		predictor = ens
		info := ens.Info()
		log.Infof("loaded model %s version %s (%d trees)", info.Name, info.Version, info.Trees)
	} else {
		log.Info("no model artifact configured; scoring with the built-in heuristic")
	}

	var encoding fouling.PaintEncoding
	if model.EncodingPath != "" {
		encoding, err = predict.LoadEncodingFile(model.EncodingPath)
		if err != nil {
			return nil, nil, err
		}
		log.Infof("loaded paint encoding with %d labels", len(encoding))
	}

	return predictor, encoding, nil
}
