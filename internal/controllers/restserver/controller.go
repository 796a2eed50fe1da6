package restserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/hullwatch/hullwatch/internal/database"
	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/log"
	"github.com/hullwatch/hullwatch/internal/predict"
	"github.com/hullwatch/hullwatch/internal/runcache"
	"github.com/hullwatch/hullwatch/internal/storage/sqlitearchive"
	"github.com/hullwatch/hullwatch/pkg/config"
)

// Deps carries the shared runtime collaborators the REST server serves from.
type Deps struct {
	// Cache holds the latest pipeline run snapshot.
	Cache *runcache.Cache

	// Predictor scores single-voyage requests.
	Predictor predict.Predictor

	// Archive is the optional local run archive; it backs the ocean
	// conditions endpoint when no results database is configured.
	Archive *sqlitearchive.Storage

	// Encoding is the paint-type encoding shipped with the model artifact.
	// When set it takes precedence over the encoding fitted by the latest
	// pipeline run, since scores must use the columns the model trained on.
	Encoding fouling.PaintEncoding
}

// Controller represents the REST server controller
type Controller struct {
	ctx            context.Context
	wg             *sync.WaitGroup
	configProvider config.ConfigProvider
	restConfig     config.RESTServerData
	Server         http.Server
	DB             *database.Client
	DBEnabled      bool
	OceanEnabled   bool
	OceanLocations []string
	cache          *runcache.Cache
	predictor      predict.Predictor
	archive        *sqlitearchive.Storage
	encoding       fouling.PaintEncoding
	params         fouling.Params
	fallbackEff    float64
	startedAt      time.Time
	requestCount   atomic.Int64
	predictions    atomic.Int64
	logger         *zap.SugaredLogger
	handlers       *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider, rc config.RESTServerData, deps Deps, logger *zap.SugaredLogger) (*Controller, error) {
	if deps.Cache == nil {
		return nil, fmt.Errorf("REST server requires a run cache")
	}
	if deps.Predictor == nil {
		return nil, fmt.Errorf("REST server requires a predictor")
	}

	ctrl := &Controller{
		ctx:            ctx,
		wg:             wg,
		configProvider: configProvider,
		restConfig:     rc,
		cache:          deps.Cache,
		predictor:      deps.Predictor,
		archive:        deps.Archive,
		encoding:       deps.Encoding,
		startedAt:      time.Now(),
		logger:         logger,
	}

	// Load configuration
	cfgData, err := configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %v", err)
	}

	ctrl.params = cfgData.Pipeline.Params()

	// Efficiency factor used for scoring before the first calibration run.
	ctrl.fallbackEff = cfgData.Model.GlobalEfficiency
	if ctrl.fallbackEff <= 0 {
		ctrl.fallbackEff = predict.DefaultGlobalEfficiency
	}

	// Look to see if the ocean conditions controller has been configured.
	// If it has, we will enable the /api/v1/ocean endpoint later on.
	for _, con := range cfgData.Controllers {
		if con.Type == config.ControllerTypeOcean && con.OceanConditions != nil {
			ctrl.OceanEnabled = true
			ctrl.OceanLocations = con.OceanConditions.Locations
		}
	}

	// If a listen address was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}

	// Set default HTTP port if not specified
	if rc.Port == 0 {
		logger.Info("rest.port not provided; defaulting to 8080")
		rc.Port = 8080
	}
	ctrl.restConfig = rc

	// If a results database was configured, set up a client so the handlers
	// can serve fleet state before the first in-process pipeline run.
	if cfgData.Storage.Postgres != nil && cfgData.Storage.Postgres.ConnectionString != "" {
		ctrl.DB = database.NewClient(cfgData.Storage.Postgres.ConnectionString, logger)
		if err := ctrl.DB.Connect(); err != nil {
			return nil, fmt.Errorf("REST server could not connect to database: %v", err)
		}
		ctrl.DBEnabled = true
	}

	// Create handlers
	ctrl.handlers = NewHandlers(ctrl)

	// Set up router
	router := ctrl.setupRouter()
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = router

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Info("Starting REST server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			if err := c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	router.Use(c.requestMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/predictions", c.handlers.PredictVoyage)
	api.HandleFunc("/predictions/batch", c.handlers.PredictBatch)
	api.HandleFunc("/predictions/scenario", c.handlers.CompareScenarios)
	api.HandleFunc("/model/info", c.handlers.GetModelInfo)
	api.HandleFunc("/model/features", c.handlers.GetFeatureImportances)
	api.HandleFunc("/ships", c.handlers.ListShips)
	// Register the fleet summary ahead of the per-ship routes so the
	// literal path wins over the {ship} variable.
	api.HandleFunc("/ships/fleet/summary", c.handlers.GetFleetSummary)
	api.HandleFunc("/ships/{ship}", c.handlers.GetShip)
	api.HandleFunc("/ships/{ship}/summary", c.handlers.GetShipSummary)
	api.HandleFunc("/reports/biofouling", c.handlers.GetBiofoulingReport)
	api.HandleFunc("/reports/biofouling/export", c.handlers.ExportBiofoulingReport)
	api.HandleFunc("/reports/statistics", c.handlers.GetStatistics)
	api.HandleFunc("/reports/high-risk", c.handlers.GetHighRiskShips)

	// We only enable the /ocean endpoint if the conditions fetcher has been
	// configured.
	if c.OceanEnabled {
		api.HandleFunc("/ocean", c.handlers.GetOceanConditions)
	}

	api.HandleFunc("/status", c.handlers.GetSystemStatus)
	api.HandleFunc("/config", c.handlers.GetConfig)
	api.HandleFunc("/metrics", c.handlers.GetMetrics)

	router.HandleFunc("/", c.handlers.GetRoot)
	router.HandleFunc("/health", c.handlers.GetHealth)
	router.HandleFunc("/ready", c.handlers.GetReady)
	router.HandleFunc("/live", c.handlers.GetLive)

	return router
}

// requestMiddleware counts requests, resolves the CORS origin, answers
// preflights, and logs the served request.
func (c *Controller) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.requestCount.Add(1)

		if origin := c.allowOrigin(r); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		start := time.Now()
		next.ServeHTTP(w, r)
		c.logger.Debugw("request served", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

// allowOrigin resolves the CORS origin for a request. No configured origins
// means allow-all; an unmatched origin gets no header and the browser
// blocks the response.
func (c *Controller) allowOrigin(r *http.Request) string {
	if len(c.restConfig.AllowedOrigins) == 0 {
		return "*"
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range c.restConfig.AllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}
