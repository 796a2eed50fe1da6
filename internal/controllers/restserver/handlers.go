package restserver

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/hullwatch/hullwatch/internal/constants"
	"github.com/hullwatch/hullwatch/internal/database"
	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/ingest"
	"github.com/hullwatch/hullwatch/internal/log"
	"github.com/hullwatch/hullwatch/internal/predict"
	"github.com/hullwatch/hullwatch/internal/storage"
	"github.com/hullwatch/hullwatch/internal/storage/csvreport"
	"github.com/hullwatch/hullwatch/internal/types"
	"github.com/hullwatch/hullwatch/pkg/config"
	"github.com/hullwatch/hullwatch/pkg/responseformat"
	"github.com/hullwatch/hullwatch/pkg/severity"
)

// defaultDisplacementTons stands in when a prediction request carries
// neither displacement nor draft, so ad-hoc what-if requests still produce a
// usable baseline.
const defaultDisplacementTons = 50000

// Cleaning ages scored by the scenario comparison endpoint, in days.
const (
	scenarioCleanDays  = 30
	scenarioFouledDays = 400
)

const redactedValue = "[redacted]"

// Report pagination bounds.
const (
	defaultReportLimit = 100
	maxReportLimit     = 1000
)

// Handlers holds the HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(controller *Controller) *Handlers {
	return &Handlers{
		controller: controller,
		formatter:  responseformat.NewFormatter(),
	}
}

// requirePost rejects non-POST requests with a 405.
func (h *Handlers) requirePost(w http.ResponseWriter, req *http.Request) bool {
	if req.Method != http.MethodPost {
		h.formatter.WriteError(w, req, http.StatusMethodNotAllowed, "method not allowed, use POST")
		return false
	}
	return true
}

// PredictVoyage scores one voyage and returns the predicted consumption,
// severity index, and impact estimates.
func (h *Handlers) PredictVoyage(w http.ResponseWriter, req *http.Request) {
	if !h.requirePost(w, req) {
		return
	}

	var pr PredictionRequest
	if err := json.NewDecoder(req.Body).Decode(&pr); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if problems := validatePrediction(&pr); len(problems) > 0 {
		h.formatter.WriteError(w, req, http.StatusBadRequest, strings.Join(problems, "; "))
		return
	}

	resp, err := h.predictOne(pr)
	if err != nil {
		log.Errorf("prediction failed for %s: %v", pr.ShipName, err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "prediction failed")
		return
	}
	resp.SeaState = h.latestSeaState()

	h.controller.predictions.Add(1)
	h.logPrediction(resp)
	h.formatter.WriteResponse(w, req, resp, nil)
}

// PredictBatch scores a list of voyages, reporting per-item failures without
// failing the batch.
func (h *Handlers) PredictBatch(w http.ResponseWriter, req *http.Request) {
	if !h.requirePost(w, req) {
		return
	}

	var batch BatchPredictionRequest
	if err := json.NewDecoder(req.Body).Decode(&batch); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(batch.Predictions) == 0 {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "predictions array is empty")
		return
	}

	resp := BatchPredictionResponse{
		Total:   len(batch.Predictions),
		Results: []PredictionResponse{},
		Errors:  []BatchPredictionError{},
	}
	for i := range batch.Predictions {
		pr := batch.Predictions[i]
		if problems := validatePrediction(&pr); len(problems) > 0 {
			resp.Errors = append(resp.Errors, BatchPredictionError{
				Index:    i,
				ShipName: pr.ShipName,
				Error:    strings.Join(problems, "; "),
			})
			continue
		}
		out, err := h.predictOne(pr)
		if err != nil {
			log.Errorf("batch prediction %d failed for %s: %v", i, pr.ShipName, err)
			resp.Errors = append(resp.Errors, BatchPredictionError{
				Index:    i,
				ShipName: pr.ShipName,
				Error:    "prediction failed",
			})
			continue
		}
		resp.Results = append(resp.Results, out)
	}
	resp.Successful = len(resp.Results)
	resp.Failed = len(resp.Errors)

	h.controller.predictions.Add(int64(resp.Successful))
	h.formatter.WriteResponse(w, req, resp, nil)
}

// CompareScenarios scores the same voyage at a recently-cleaned hull age and
// a heavily fouled one, and reports the spread.
func (h *Handlers) CompareScenarios(w http.ResponseWriter, req *http.Request) {
	if !h.requirePost(w, req) {
		return
	}

	var pr PredictionRequest
	if err := json.NewDecoder(req.Body).Decode(&pr); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if problems := validatePrediction(&pr); len(problems) > 0 {
		h.formatter.WriteError(w, req, http.StatusBadRequest, strings.Join(problems, "; "))
		return
	}

	cleanDays := float64(scenarioCleanDays)
	fouledDays := float64(scenarioFouledDays)
	cleanReq, fouledReq := pr, pr
	cleanReq.DaysSinceCleaning = &cleanDays
	fouledReq.DaysSinceCleaning = &fouledDays

	var resp ScenarioResponse
	var err error
	if resp.Clean, err = h.predictOne(cleanReq); err == nil {
		if resp.Current, err = h.predictOne(pr); err == nil {
			resp.Fouled, err = h.predictOne(fouledReq)
		}
	}
	if err != nil {
		log.Errorf("scenario comparison failed for %s: %v", pr.ShipName, err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "prediction failed")
		return
	}

	deltaFuel := resp.Fouled.PredictedConsumption - resp.Clean.PredictedConsumption
	resp.ShipName = resp.Current.ShipName
	resp.Delta = ScenarioDelta{
		AdditionalFuelTons: round4(deltaFuel),
		AdditionalCostUSD:  round2(deltaFuel * h.controller.params.FuelPriceUSDPerTon),
		AdditionalCO2Tons:  round4(deltaFuel * h.controller.params.CO2TonPerFuelTon),
	}
	if resp.Clean.PredictedConsumption > 0 {
		resp.Delta.FuelIncreasePct = round2(deltaFuel / resp.Clean.PredictedConsumption * 100)
	}

	h.controller.predictions.Add(3)
	h.formatter.WriteResponse(w, req, resp, nil)
}

// predictOne runs the scoring pipeline for a validated request.
func (h *Handlers) predictOne(pr PredictionRequest) (PredictionResponse, error) {
	c := h.controller
	ship := ingest.NormalizeShipName(pr.ShipName)
	cal, encoding := h.scoringContext()

	in := predict.Input{
		SpeedKnots:         *pr.SpeedKnots,
		BeaufortScale:      orZero(pr.BeaufortScale),
		DaysSinceCleaning:  *pr.DaysSinceCleaning,
		PctIdleRecent:      orZero(pr.PctIdleRecent),
		HistoricalAvgSpeed: math.NaN(),
		PaintType:          pr.PaintType,
	}
	ratio, err := c.predictor.Predict(predict.Vector(in, c.predictor.Features(), encoding))
	if err != nil {
		return PredictionResponse{}, fmt.Errorf("score features: %w", err)
	}

	ev := types.VoyageEvent{
		ShipName:         ship,
		SpeedKnots:       *pr.SpeedKnots,
		DurationHours:    *pr.DurationHours,
		DisplacementTons: orNaN(pr.DisplacementTons),
		MidDraftMeters:   orNaN(pr.MidDraftMeters),
	}
	if pr.DisplacementTons == nil && pr.MidDraftMeters == nil {
		ev.DisplacementTons = defaultDisplacementTons
	}
	baseline := fouling.BaselineConsumption(
		fouling.TheoreticalPower(ev, c.params), *pr.DurationHours, cal.FactorFor(ship))
	impact := fouling.EstimateImpact(baseline, ratio, c.params)

	return PredictionResponse{
		ShipName:             ship,
		Status:               "success",
		PredictedConsumption: round4(baseline * (1 + ratio)),
		BaselineConsumption:  round4(baseline),
		ExcessRatio:          round4(ratio),
		BioIndex:             fouling.BioIndex0To10(ratio, c.params),
		BioClass:             fouling.Classify(ratio),
		AdditionalFuelTons:   round4(impact.FuelTons),
		AdditionalCostUSD:    round2(impact.CostUSD),
		AdditionalCO2Tons:    round4(impact.CO2Tons),
		Hydrodynamics:        fouling.HydroForSpeed(*pr.SpeedKnots),
		PredictionTimestamp:  time.Now().UTC(),
		ModelVersion:         c.predictor.Info().Version,
	}, nil
}

// scoringContext returns the calibration and paint encoding predictions
// score with. The latest run supplies both when the cache is warm; an
// artifact-level encoding always wins because scores must use the columns
// the model trained on.
func (h *Handlers) scoringContext() (fouling.Calibration, fouling.PaintEncoding) {
	c := h.controller
	cal := fouling.Calibration{Global: c.fallbackEff}
	var enc fouling.PaintEncoding
	if report, ok := c.cache.Report(); ok {
		cal = report.Calibration
		enc = report.PaintEncoding
	}
	if len(c.encoding) > 0 {
		enc = c.encoding
	}
	return cal, enc
}

// logPrediction records a served prediction when a results database is
// configured.
func (h *Handlers) logPrediction(resp PredictionResponse) {
	c := h.controller
	if !c.DBEnabled {
		return
	}
	info := c.predictor.Info()
	entry := database.PredictionLog{
		ShipName:     resp.ShipName,
		ModelName:    info.Name,
		ModelVersion: info.Version,
		FoulingRatio: resp.ExcessRatio,
		BioIndex:     resp.BioIndex,
		Severity:     resp.BioClass,
	}
	if err := c.DB.DB.Create(&entry).Error; err != nil {
		log.Warnf("could not record prediction audit row: %v", err)
	}
}

// GetModelInfo describes the active predictor.
func (h *Handlers) GetModelInfo(w http.ResponseWriter, req *http.Request) {
	info := h.controller.predictor.Info()
	h.formatter.WriteResponse(w, req, ModelInfoResponse{
		Info:       info,
		Loaded:     info.Kind == "ensemble",
		Parameters: h.controller.params,
	}, nil)
}

// GetFeatureImportances lists the model's ranked feature weights. Predictors
// without fitted weights report an empty list.
func (h *Handlers) GetFeatureImportances(w http.ResponseWriter, req *http.Request) {
	out := []FeatureImportance{}
	if imp, ok := h.controller.predictor.(interface {
		Importance() []predict.FeatureWeight
	}); ok {
		for _, fw := range imp.Importance() {
			out = append(out, FeatureImportance{
				Feature:    fw.Feature,
				Importance: round4(fw.Importance),
				Rank:       fw.Rank,
			})
		}
	}
	h.formatter.WriteResponse(w, req, out, nil)
}

// ListShips returns the latest known state of every ship in the fleet.
func (h *Handlers) ListShips(w http.ResponseWriter, req *http.Request) {
	c := h.controller

	if _, ok := c.cache.Report(); ok {
		ships := make([]ShipInfo, 0)
		for _, name := range c.cache.ShipNames() {
			ships = append(ships, shipInfoFromResults(name, c.cache.ShipResults(name)))
		}
		h.formatter.WriteResponse(w, req, ShipList{Total: len(ships), Ships: ships}, nil)
		return
	}

	if c.DBEnabled {
		statuses, err := c.DB.GetShipStatuses()
		if err != nil {
			log.Errorf("could not fetch ship statuses: %v", err)
			h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching fleet state")
			return
		}
		ships := make([]ShipInfo, 0, len(statuses))
		for i := range statuses {
			ships = append(ships, shipInfoFromStatus(&statuses[i]))
		}
		h.formatter.WriteResponse(w, req, ShipList{Total: len(ships), Ships: ships}, nil)
		return
	}

	h.formatter.WriteResponse(w, req, ShipList{Total: 0, Ships: []ShipInfo{}}, nil)
}

// GetShip returns one ship's latest state along with its scored events.
func (h *Handlers) GetShip(w http.ResponseWriter, req *http.Request) {
	c := h.controller
	ship := ingest.NormalizeShipName(mux.Vars(req)["ship"])

	if _, ok := c.cache.Report(); ok {
		results := c.cache.ShipResults(ship)
		if len(results) == 0 {
			h.formatter.WriteError(w, req, http.StatusNotFound, fmt.Sprintf("ship %s not found", ship))
			return
		}
		h.formatter.WriteResponse(w, req, ShipDetail{
			ShipInfo: shipInfoFromResults(ship, results),
			Results:  results,
		}, nil)
		return
	}

	if c.DBEnabled {
		status, err := c.DB.GetShipStatus(ship)
		if err != nil {
			h.formatter.WriteError(w, req, http.StatusNotFound, fmt.Sprintf("ship %s not found", ship))
			return
		}
		h.formatter.WriteResponse(w, req, ShipDetail{ShipInfo: shipInfoFromStatus(&status)}, nil)
		return
	}

	h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "no pipeline results available yet")
}

// GetShipSummary returns one ship's aggregate summary from the latest run.
func (h *Handlers) GetShipSummary(w http.ResponseWriter, req *http.Request) {
	c := h.controller
	ship := ingest.NormalizeShipName(mux.Vars(req)["ship"])

	if summary, ok := c.cache.ShipSummary(ship); ok {
		h.formatter.WriteResponse(w, req, summary, nil)
		return
	}
	if _, warm := c.cache.Report(); !warm && c.DBEnabled {
		summaries, err := c.DB.GetShipSummaries()
		if err == nil {
			for _, summary := range summaries {
				if summary.ShipName == ship {
					h.formatter.WriteResponse(w, req, summary, nil)
					return
				}
			}
		}
	}
	h.formatter.WriteError(w, req, http.StatusNotFound, fmt.Sprintf("ship %s not found", ship))
}

// GetFleetSummary returns the fleet rollup and per-ship summaries of the
// latest run.
func (h *Handlers) GetFleetSummary(w http.ResponseWriter, req *http.Request) {
	c := h.controller

	if report, ok := c.cache.Report(); ok {
		h.formatter.WriteResponse(w, req, FleetSummaryResponse{
			GeneratedAt: time.Now().UTC(),
			Fleet:       report.Fleet,
			Ships:       report.Summaries,
		}, nil)
		return
	}

	if c.DBEnabled {
		summaries, err := c.DB.GetShipSummaries()
		if err != nil {
			log.Errorf("could not fetch ship summaries: %v", err)
			h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching fleet state")
			return
		}
		h.formatter.WriteResponse(w, req, FleetSummaryResponse{
			GeneratedAt: time.Now().UTC(),
			Fleet:       fouling.SummarizeFleet(summaries),
			Ships:       summaries,
		}, nil)
		return
	}

	h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "no pipeline results available yet")
}

// GetBiofoulingReport returns a filtered, paginated page of scored events
// from the latest run.
func (h *Handlers) GetBiofoulingReport(w http.ResponseWriter, req *http.Request) {
	filters, err := parseReportFilters(req)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.reportRows()
	if err != nil {
		log.Errorf("could not fetch report rows: %v", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching report")
		return
	}
	filtered := filters.apply(rows)

	page := filtered
	if filters.offset >= len(filtered) {
		page = nil
	} else {
		page = filtered[filters.offset:]
	}
	if len(page) > filters.limit {
		page = page[:filters.limit]
	}
	if page == nil {
		page = []types.BiofoulingResult{}
	}

	h.formatter.WriteResponse(w, req, BiofoulingReportResponse{
		GeneratedAt:  time.Now().UTC(),
		TotalRecords: len(filtered),
		Offset:       filters.offset,
		Limit:        filters.limit,
		Records:      page,
	}, nil)
}

// ExportBiofoulingReport streams the scored events of the latest run as a
// CSV download, in the same column order as the report directory artifacts.
func (h *Handlers) ExportBiofoulingReport(w http.ResponseWriter, req *http.Request) {
	rows, err := h.reportRows()
	if err != nil {
		log.Errorf("could not fetch report rows: %v", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching report")
		return
	}

	if ship := req.URL.Query().Get("ship"); ship != "" {
		ship = ingest.NormalizeShipName(ship)
		kept := rows[:0:0]
		for i := range rows {
			if rows[i].ShipName == ship {
				kept = append(kept, rows[i])
			}
		}
		rows = kept
	}

	filename := fmt.Sprintf("biofouling_report_%s.csv", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := csvreport.WriteResults(w, rows); err != nil {
		log.Errorf("could not stream report export: %v", err)
	}
}

// GetStatistics returns run-level aggregates of the latest pipeline run.
func (h *Handlers) GetStatistics(w http.ResponseWriter, req *http.Request) {
	c := h.controller

	if report, ok := c.cache.Report(); ok {
		h.formatter.WriteResponse(w, req, report.Statistics(), nil)
		return
	}

	if c.DBEnabled {
		stats, err := h.statisticsFromDB()
		if err != nil {
			log.Errorf("could not compute statistics: %v", err)
			h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "no pipeline runs recorded")
			return
		}
		h.formatter.WriteResponse(w, req, stats, nil)
		return
	}

	h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "no pipeline results available yet")
}

// statisticsFromDB rebuilds run statistics from the stored rows of the
// latest run.
func (h *Handlers) statisticsFromDB() (types.ReportStatistics, error) {
	c := h.controller
	run, err := c.DB.GetLatestRun()
	if err != nil {
		return types.ReportStatistics{}, err
	}
	results, err := c.DB.GetResults()
	if err != nil {
		return types.ReportStatistics{}, err
	}
	summaries, err := c.DB.GetShipSummaries()
	if err != nil {
		return types.ReportStatistics{}, err
	}

	report := fouling.RunReport{
		RunID:            run.RunID,
		Results:          results,
		Summaries:        summaries,
		DynamicReference: run.DynamicReference,
		Calibration:      fouling.Calibration{Global: run.GlobalEfficiency},
	}
	stats := report.Statistics()
	stats.CalibratedShips = run.CalibratedShips
	return stats, nil
}

// GetHighRiskShips lists ships whose worst index in the latest run meets the
// risk threshold, worst first.
func (h *Handlers) GetHighRiskShips(w http.ResponseWriter, req *http.Request) {
	c := h.controller

	threshold := severity.DefaultRiskThreshold
	if raw := req.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(parsed) || parsed < 0 || parsed > 10 {
			h.formatter.WriteError(w, req, http.StatusBadRequest, "threshold must be a number between 0 and 10")
			return
		}
		threshold = parsed
	}

	report, ok := c.cache.Report()
	if !ok && c.DBEnabled {
		results, err := c.DB.GetResults()
		if err == nil {
			var summaries []types.ShipSummary
			if summaries, err = c.DB.GetShipSummaries(); err == nil {
				report = &fouling.RunReport{Results: results, Summaries: summaries}
				ok = true
			}
		}
		if err != nil {
			log.Errorf("could not fetch fleet state: %v", err)
		}
	}
	if !ok {
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "no pipeline results available yet")
		return
	}

	risks := report.HighRisk(threshold)
	if risks == nil {
		risks = []types.ShipRisk{}
	}
	h.formatter.WriteResponse(w, req, HighRiskResponse{
		Threshold:     threshold,
		TotalHighRisk: len(risks),
		Ships:         risks,
	}, nil)
}

// GetOceanConditions returns the cached sea state for the configured
// locations.
func (h *Handlers) GetOceanConditions(w http.ResponseWriter, req *http.Request) {
	views, err := h.oceanSnapshot()
	if err != nil {
		log.Errorf("could not fetch ocean conditions: %v", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching ocean conditions")
		return
	}
	if views == nil {
		views = []OceanLocationView{}
	}
	h.formatter.WriteResponse(w, req, OceanResponse{Count: len(views), Locations: views}, nil)
}

// oceanSnapshot reads every cached conditions row, from the results database
// when one is configured, else from the local archive.
func (h *Handlers) oceanSnapshot() ([]OceanLocationView, error) {
	c := h.controller

	if c.DBEnabled {
		var records []OceanConditionsRecord
		if err := c.DB.DB.Order("location").Find(&records).Error; err != nil {
			return nil, err
		}
		views := make([]OceanLocationView, 0, len(records))
		for _, rec := range records {
			var doc ConditionsDocument
			if len(rec.Data.Bytes) > 0 {
				if err := json.Unmarshal(rec.Data.Bytes, &doc); err != nil {
					log.Warnf("malformed conditions document for %s: %v", rec.Location, err)
					continue
				}
			}
			views = append(views, OceanLocationView{
				Location:   rec.Location,
				Latitude:   rec.Latitude,
				Longitude:  rec.Longitude,
				FetchedAt:  rec.FetchedAt,
				Conditions: doc,
			})
		}
		return views, nil
	}

	if c.archive != nil {
		cached, err := c.archive.OceanConditions()
		if err != nil {
			return nil, err
		}
		views := make([]OceanLocationView, 0, len(cached))
		for _, row := range cached {
			var doc ConditionsDocument
			if len(row.Document) > 0 {
				if err := json.Unmarshal(row.Document, &doc); err != nil {
					log.Warnf("malformed conditions document for %s: %v", row.Location, err)
					continue
				}
			}
			lat, lon, _ := parseLocation(row.Location)
			views = append(views, OceanLocationView{
				Location:   row.Location,
				Latitude:   lat,
				Longitude:  lon,
				FetchedAt:  row.FetchedAt,
				Conditions: doc,
			})
		}
		return views, nil
	}

	return nil, nil
}

// latestSeaState resolves the sea state attached to single-voyage
// predictions: the first configured location's cached conditions, or nil
// when the fetcher is disabled or nothing is cached yet.
func (h *Handlers) latestSeaState() *SeaStateView {
	c := h.controller
	if !c.OceanEnabled {
		return nil
	}
	views, err := h.oceanSnapshot()
	if err != nil || len(views) == 0 {
		return nil
	}
	view := views[0]
	if len(c.OceanLocations) > 0 {
		for i := range views {
			if views[i].Location == c.OceanLocations[0] {
				view = views[i]
				break
			}
		}
	}
	return &SeaStateView{
		Location:      view.Location,
		BeaufortScale: view.Conditions.BeaufortScale,
		WaveHeightM:   view.Conditions.WaveHeightM,
		WindSpeedKt:   view.Conditions.WindSpeedKt,
		FetchedAt:     view.FetchedAt,
	}
}

// GetSystemStatus returns the full service status document.
func (h *Handlers) GetSystemStatus(w http.ResponseWriter, req *http.Request) {
	c := h.controller

	pipeline := PipelineStatus{}
	if report, ok := c.cache.Report(); ok {
		finished := report.FinishedAt
		refreshed := c.cache.UpdatedAt()
		pipeline = PipelineStatus{
			CacheReady:     true,
			RunID:          report.RunID,
			FinishedAt:     &finished,
			ResultsEmitted: len(report.Results),
			Ships:          len(report.Summaries),
			LastRefresh:    &refreshed,
		}
	}

	h.formatter.WriteResponse(w, req, SystemStatusResponse{
		Timestamp: time.Now().UTC(),
		Service: ServiceStatus{
			Name:          "hullwatch",
			Version:       constants.Version,
			UptimeSeconds: time.Since(c.startedAt).Seconds(),
		},
		Model:    c.predictor.Info(),
		Pipeline: pipeline,
		Storage:  storage.GlobalHealthManager.GetAllHealth(),
	}, nil)
}

// GetConfig returns the loaded configuration with credentials redacted.
func (h *Handlers) GetConfig(w http.ResponseWriter, req *http.Request) {
	cfg, err := h.controller.configProvider.LoadConfig()
	if err != nil {
		log.Errorf("could not load configuration: %v", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error loading configuration")
		return
	}
	h.formatter.WriteResponse(w, req, sanitizeConfig(cfg), nil)
}

// sanitizeConfig deep-copies the pieces of the configuration that carry
// credentials and redacts them.
func sanitizeConfig(cfg *config.ConfigData) *config.ConfigData {
	out := *cfg

	if cfg.Storage.Postgres != nil && cfg.Storage.Postgres.ConnectionString != "" {
		pg := *cfg.Storage.Postgres
		pg.ConnectionString = redactedValue
		out.Storage.Postgres = &pg
	}

	out.Controllers = make([]config.ControllerData, len(cfg.Controllers))
	copy(out.Controllers, cfg.Controllers)
	for i, ctrl := range out.Controllers {
		if ctrl.OceanConditions != nil && ctrl.OceanConditions.APIKey != "" {
			oc := *ctrl.OceanConditions
			oc.APIKey = redactedValue
			out.Controllers[i].OceanConditions = &oc
		}
	}

	return &out
}

// GetMetrics returns request counters since process start.
func (h *Handlers) GetMetrics(w http.ResponseWriter, req *http.Request) {
	c := h.controller

	resp := MetricsResponse{
		Timestamp:        time.Now().UTC(),
		UptimeSeconds:    time.Since(c.startedAt).Seconds(),
		RequestsTotal:    c.requestCount.Load(),
		PredictionsTotal: c.predictions.Load(),
	}
	if report, ok := c.cache.Report(); ok {
		updated := c.cache.UpdatedAt()
		resp.CacheUpdatedAt = &updated
		resp.LastRunID = report.RunID
	}
	h.formatter.WriteResponse(w, req, resp, nil)
}

// GetRoot names the service and its entry points.
func (h *Handlers) GetRoot(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, map[string]string{
		"service": "hullwatch",
		"version": constants.Version,
		"health":  "/health",
		"api":     "/api/v1",
	}, nil)
}

// GetHealth is the liveness probe.
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, HealthResponse{
		Status:      "healthy",
		Version:     constants.Version,
		ModelLoaded: h.controller.predictor.Info().Kind == "ensemble",
		Timestamp:   time.Now().UTC(),
	}, nil)
}

// GetReady reports whether the service can answer fleet queries: the cache
// has a run, or the results database is reachable.
func (h *Handlers) GetReady(w http.ResponseWriter, req *http.Request) {
	c := h.controller

	if _, ok := c.cache.Report(); ok {
		h.formatter.WriteResponse(w, req, map[string]string{"status": "ready"}, nil)
		return
	}
	if c.DBEnabled {
		if err := c.DB.Ping(); err != nil {
			h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "results database unreachable")
			return
		}
		h.formatter.WriteResponse(w, req, map[string]string{"status": "ready"}, nil)
		return
	}
	h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "no pipeline results available yet")
}

// GetLive always reports alive.
func (h *Handlers) GetLive(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, map[string]string{"status": "alive"}, nil)
}

// reportRows returns the scored events the report endpoints serve: the
// cached run when warm, else the stored rows of the latest run.
func (h *Handlers) reportRows() ([]types.BiofoulingResult, error) {
	c := h.controller
	if report, ok := c.cache.Report(); ok {
		return report.Results, nil
	}
	if c.DBEnabled {
		return c.DB.GetResults()
	}
	return nil, nil
}
