// Package oceanconditions polls a marine conditions feed for sea state at
// the configured locations and caches the latest observation per location.
package oceanconditions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hullwatch/hullwatch/internal/controllers"
	"github.com/hullwatch/hullwatch/internal/database"
	"github.com/hullwatch/hullwatch/internal/log"
	"github.com/hullwatch/hullwatch/internal/storage/sqlitearchive"
	"github.com/hullwatch/hullwatch/pkg/config"
	"github.com/jackc/pgtype"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultRefreshInterval is used when the config does not set one. Marine
// observation feeds update hourly at best, so polling faster only burns the
// request quota.
const defaultRefreshInterval = time.Hour

const metersPerSecondPerKnot = 0.514444

// Controller holds the ocean conditions fetcher configuration
type Controller struct {
	ctx            context.Context
	wg             *sync.WaitGroup
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
	DB             *database.Client
	archive        *sqlitearchive.Storage
	oceanConfig    config.OceanConditionsData
	refreshEvery   time.Duration
	client         *http.Client
	points         []point
}

// point is one configured observation location.
type point struct {
	raw string
	lat float64
	lon float64
}

// feedResponse is the provider envelope: a success flag plus one observation
// set per requested point.
type feedResponse struct {
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
	Observations []feedObservation `json:"response"`
}

// feedObservation is one raw observation. Providers differ in which fields
// they populate, so everything numeric decodes as optional.
type feedObservation struct {
	Latitude         float64  `json:"lat"`
	Longitude        float64  `json:"lon"`
	BeaufortScale    *float64 `json:"beaufort_scale"`
	WaveHeightM      *float64 `json:"wave_height_m"`
	WindSpeedKt      *float64 `json:"wind_speed_kt"`
	WindSpeedMS      *float64 `json:"wind_speed_ms"`
	WindDirectionDeg *float64 `json:"wind_direction_deg"`
	Source           string   `json:"source,omitempty"`
}

// ConditionsDocument is the normalized sea-state document cached per
// location. The REST server decodes the same shape when serving it.
type ConditionsDocument struct {
	BeaufortScale    float64 `json:"beaufort_scale"`
	WaveHeightM      float64 `json:"wave_height_m"`
	WindSpeedKt      float64 `json:"wind_speed_kt"`
	WindDirectionDeg float64 `json:"wind_direction_deg"`
	Source           string  `json:"source,omitempty"`
}

// OceanConditionsRecord is the cache table row, one per location.
type OceanConditionsRecord struct {
	gorm.Model

	Location  string       `gorm:"uniqueIndex:idx_ocean_location,not null"`
	Latitude  float64      `gorm:"not null"`
	Longitude float64      `gorm:"not null"`
	FetchedAt time.Time    `gorm:"not null"`
	Data      pgtype.JSONB `gorm:"type:jsonb;default:'{}';not null"`
}

// TableName implements the GORM Tabler interface to specify the correct table name
func (OceanConditionsRecord) TableName() string {
	return "ocean_conditions"
}

// NewController validates the feed configuration and connects the cache
// backends. The archive may be nil; at least one of the results database and
// the archive must be available.
func NewController(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider, oc config.OceanConditionsData, logger *zap.SugaredLogger, archive *sqlitearchive.Storage) (*Controller, error) {
	c := Controller{
		ctx:            ctx,
		wg:             wg,
		configProvider: configProvider,
		logger:         logger,
		archive:        archive,
		oceanConfig:    oc,
		client:         controllers.NewHTTPClient(5 * time.Second),
	}

	err := controllers.ValidateRequiredFields(map[string]string{
		"ocean api-endpoint": oc.APIEndpoint,
	})
	if err != nil {
		return nil, err
	}

	if len(oc.Locations) == 0 {
		return nil, fmt.Errorf("ocean conditions controller requires at least one location")
	}
	for _, raw := range oc.Locations {
		p, err := parsePoint(raw)
		if err != nil {
			return nil, err
		}
		c.points = append(c.points, p)
	}

	c.refreshEvery = defaultRefreshInterval
	if oc.RefreshInterval != "" {
		c.refreshEvery, err = time.ParseDuration(oc.RefreshInterval)
		if err != nil {
			return nil, fmt.Errorf("error parsing ocean refresh-interval: %v", err)
		}
	}

	cfgData, err := configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %v", err)
	}

	if cfgData.Storage.Postgres != nil && cfgData.Storage.Postgres.ConnectionString != "" {
		db, err := controllers.SetupDatabaseConnection(configProvider, logger)
		if err != nil {
			return nil, err
		}
		c.DB = db

		if err := c.CreateTables(); err != nil {
			return nil, err
		}
	}

	if c.DB == nil && c.archive == nil {
		return nil, fmt.Errorf("ocean conditions controller requires a results database or a local archive to cache into")
	}

	return &c, nil
}

// StartController starts a fetch loop per configured location
func (c *Controller) StartController() error {
	log.Info("Starting ocean conditions controller...")

	for _, p := range c.points {
		log.Infof("Starting sea state fetching for location %s (every %v)", p.raw, c.refreshEvery)

		// Copy for the closure
		pointCopy := p

		go c.refreshPeriodically(pointCopy)
	}

	return nil
}

func (c *Controller) refreshPeriodically(p point) {
	c.wg.Add(1)
	defer c.wg.Done()

	// Tickers only begin to fire after the first interval has elapsed, and
	// refresh intervals here are long. Fetch once up front so the cache is
	// warm before the first tick.
	if err := c.fetchAndStore(p); err != nil {
		log.Errorf("error fetching sea state for %s: %v", p.raw, err)
	}

	ticker := time.NewTicker(c.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			log.Infof("Updating sea state for location %s...", p.raw)
			if err := c.fetchAndStore(p); err != nil {
				log.Errorf("error fetching sea state for %s: %v", p.raw, err)
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Controller) fetchAndStore(p point) error {
	doc, err := c.fetchConditions(p)
	if err != nil {
		return err
	}
	return c.storeConditions(p, time.Now().UTC(), doc)
}

// fetchConditions requests the current observation for one point and
// normalizes it.
func (c *Controller) fetchConditions(p point) (*ConditionsDocument, error) {
	v := url.Values{}
	v.Set("lat", strconv.FormatFloat(p.lat, 'f', -1, 64))
	v.Set("lon", strconv.FormatFloat(p.lon, 'f', -1, 64))

	reqURL := strings.TrimSuffix(c.oceanConfig.APIEndpoint, "/") + "?" + v.Encode()
	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating conditions API HTTP request: %v", err)
	}
	if c.oceanConfig.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.oceanConfig.APIKey)
	}

	log.Debugf("Making request to conditions feed: %v", reqURL)
	req = req.WithContext(c.ctx)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request to conditions feed: %v", err)
	}
	defer resp.Body.Close()

	log.Debugf("Conditions feed responded with status: %s", resp.Status)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("conditions feed returned status %s: %s", resp.Status, string(bodyBytes))
	}

	response := &feedResponse{}
	if err := json.NewDecoder(bytes.NewReader(bodyBytes)).Decode(response); err != nil {
		return nil, fmt.Errorf("unable to decode conditions feed response: %v", err)
	}

	if !response.Success {
		return nil, fmt.Errorf("bad response from conditions feed: %s", response.Error)
	}
	if len(response.Observations) == 0 {
		return nil, fmt.Errorf("conditions feed returned no observations for %s", p.raw)
	}

	doc := normalize(response.Observations[0])
	return &doc, nil
}

// normalize fills a cache document from whatever fields the provider
// populated. Wind speed falls back from knots to m/s, and the Beaufort
// number is derived from wind speed when the feed omits it.
func normalize(obs feedObservation) ConditionsDocument {
	doc := ConditionsDocument{Source: obs.Source}

	if obs.WaveHeightM != nil {
		doc.WaveHeightM = *obs.WaveHeightM
	}
	if obs.WindDirectionDeg != nil {
		doc.WindDirectionDeg = *obs.WindDirectionDeg
	}

	var windMS float64
	switch {
	case obs.WindSpeedKt != nil:
		doc.WindSpeedKt = *obs.WindSpeedKt
		windMS = *obs.WindSpeedKt * metersPerSecondPerKnot
	case obs.WindSpeedMS != nil:
		windMS = *obs.WindSpeedMS
		doc.WindSpeedKt = windMS / metersPerSecondPerKnot
	}

	if obs.BeaufortScale != nil {
		doc.BeaufortScale = *obs.BeaufortScale
	} else {
		doc.BeaufortScale = beaufortFromWind(windMS)
	}

	return doc
}

// beaufortFromWind inverts the empirical Beaufort wind relation
// v = 0.836 * B^(3/2) m/s and clamps to the 0..12 scale.
func beaufortFromWind(windMS float64) float64 {
	if windMS <= 0 {
		return 0
	}
	b := math.Round(math.Pow(windMS/0.836, 2.0/3.0))
	if b > 12 {
		return 12
	}
	return b
}

// storeConditions upserts the document into every configured cache backend.
func (c *Controller) storeConditions(p point, fetchedAt time.Time, doc *ConditionsDocument) error {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("could not marshal conditions document: %v", err)
	}

	if c.DB != nil {
		var existing OceanConditionsRecord
		err = c.DB.DB.Where("location = ?", p.raw).First(&existing).Error

		if err == gorm.ErrRecordNotFound {
			record := OceanConditionsRecord{
				Location:  p.raw,
				Latitude:  p.lat,
				Longitude: p.lon,
				FetchedAt: fetchedAt,
			}
			record.Data.Set(docJSON)
			err = c.DB.DB.Create(&record).Error
		} else if err == nil {
			existing.Latitude = p.lat
			existing.Longitude = p.lon
			existing.FetchedAt = fetchedAt
			existing.Data.Set(docJSON)
			err = c.DB.DB.Save(&existing).Error
		}
		if err != nil {
			return fmt.Errorf("error saving conditions for %s: %v", p.raw, err)
		}
		log.Debugf("Saved sea state for location %s", p.raw)
	}

	if c.archive != nil {
		if err := c.archive.PutOceanConditions(p.raw, fetchedAt, docJSON); err != nil {
			return err
		}
	}

	return nil
}

// CreateTables creates or migrates the cache table
func (c *Controller) CreateTables() error {
	if err := c.DB.DB.AutoMigrate(OceanConditionsRecord{}); err != nil {
		return fmt.Errorf("error creating or migrating ocean conditions table: %v", err)
	}
	return nil
}

// parsePoint splits a "lat,lon" location string.
func parsePoint(raw string) (point, error) {
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return point{}, fmt.Errorf("location %q is not in lat,lon form", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return point{}, fmt.Errorf("location %q has a bad latitude: %v", raw, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return point{}, fmt.Errorf("location %q has a bad longitude: %v", raw, err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return point{}, fmt.Errorf("location %q is out of range", raw)
	}
	return point{raw: raw, lat: lat, lon: lon}, nil
}
