package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/hullwatch/hullwatch/internal/controllers/oceanconditions"
	"github.com/hullwatch/hullwatch/internal/controllers/pipelinecache"
	"github.com/hullwatch/hullwatch/internal/controllers/restserver"
	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/predict"
	"github.com/hullwatch/hullwatch/internal/runcache"
	"github.com/hullwatch/hullwatch/internal/storage/sqlitearchive"
	"github.com/hullwatch/hullwatch/pkg/config"
	"go.uber.org/zap"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// ControllerDeps bundles the shared collaborators controllers draw from:
// the run cache every refresh feeds and the API reads, the loaded model,
// the storage fan-out, and the optional archive handle.
type ControllerDeps struct {
	Cache       *runcache.Cache
	Predictor   predict.Predictor
	Encoding    fouling.PaintEncoding
	Archive     *sqlitearchive.Storage
	Distributor chan<- *fouling.RunReport
}

// NewControllerManager creates a new controller manager
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider, deps ControllerDeps, logger *zap.SugaredLogger) (ControllerManager, error) {
	cm := &controllerManager{
		ctx:            ctx,
		wg:             wg,
		configProvider: configProvider,
		deps:           deps,
		logger:         logger,
		controllers:    make([]Controller, 0),
	}

	controllers, err := configProvider.GetControllers()
	if err != nil {
		return nil, fmt.Errorf("error loading controller configurations: %v", err)
	}

	// Create controllers based on configuration
	for _, con := range controllers {
		controller, err := cm.createController(con)
		if err != nil {
			return nil, fmt.Errorf("error creating controller: %v", err)
		}
		cm.controllers = append(cm.controllers, controller)
	}

	return cm, nil
}

type controllerManager struct {
	ctx            context.Context
	wg             *sync.WaitGroup
	configProvider config.ConfigProvider
	deps           ControllerDeps
	logger         *zap.SugaredLogger
	controllers    []Controller
}

func (c *controllerManager) StartControllers() error {
	c.logger.Info("Starting controller manager...")

	for _, controller := range c.controllers {
		err := controller.StartController()
		if err != nil {
			return fmt.Errorf("error starting controller: %v", err)
		}
	}

	c.logger.Infof("Started %d controllers successfully", len(c.controllers))
	return nil
}

// createController creates a controller based on the controller configuration
func (cm *controllerManager) createController(cc config.ControllerData) (Controller, error) {
	switch cc.Type {
	case config.ControllerTypeREST:
		rc := config.RESTServerData{}
		if cc.RESTServer != nil {
			rc = *cc.RESTServer
		}
		return restserver.NewController(cm.ctx, cm.wg, cm.configProvider, rc, restserver.Deps{
			Cache:     cm.deps.Cache,
			Predictor: cm.deps.Predictor,
			Archive:   cm.deps.Archive,
			Encoding:  cm.deps.Encoding,
		}, cm.logger)
	case config.ControllerTypeOcean:
		if cc.OceanConditions == nil {
			return nil, fmt.Errorf("ocean controller requires an ocean configuration section")
		}
		return oceanconditions.NewController(cm.ctx, cm.wg, cm.configProvider, *cc.OceanConditions, cm.logger, cm.deps.Archive)
	case config.ControllerTypePipelineCache:
		pc := config.PipelineCacheData{}
		if cc.PipelineCache != nil {
			pc = *cc.PipelineCache
		}
		return pipelinecache.NewController(cm.ctx, cm.wg, cm.configProvider, pc, cm.logger, pipelinecache.Deps{
			Cache:       cm.deps.Cache,
			Distributor: cm.deps.Distributor,
			Archive:     cm.deps.Archive,
		})
	default:
		return nil, fmt.Errorf("unknown controller type: %s", cc.Type)
	}
}
