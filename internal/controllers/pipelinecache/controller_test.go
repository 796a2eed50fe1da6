package pipelinecache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/runcache"
	"github.com/hullwatch/hullwatch/internal/storage/sqlitearchive"
	"github.com/hullwatch/hullwatch/internal/types"
	"github.com/hullwatch/hullwatch/pkg/config"
	"go.uber.org/zap"
)

type staticProvider struct {
	cfg config.ConfigData
}

func (p *staticProvider) LoadConfig() (*config.ConfigData, error) {
	cfg := p.cfg
	return &cfg, nil
}
func (p *staticProvider) GetPipeline() (*config.PipelineData, error) { return &p.cfg.Pipeline, nil }
func (p *staticProvider) GetIngest() (*config.IngestData, error)     { return &p.cfg.Ingest, nil }
func (p *staticProvider) GetModel() (*config.ModelData, error)       { return &p.cfg.Model, nil }
func (p *staticProvider) GetStorageConfig() (*config.StorageData, error) {
	return &p.cfg.Storage, nil
}
func (p *staticProvider) GetControllers() ([]config.ControllerData, error) {
	return p.cfg.Controllers, nil
}
func (p *staticProvider) IsReadOnly() bool { return true }
func (p *staticProvider) Close() error     { return nil }

// writeFixtures lays down a two-ship export set with one malformed event row
// and one malformed consumption row.
func writeFixtures(t *testing.T, dir string) config.IngestData {
	t.Helper()

	events := `ship_name,session_id,start_date,speed,duration,displacement
ALPHA,S01,2024-01-15,12,24,50000
ALPHA,S02,2024-02-01,13,36,50000
ALPHA,S03,2024-03-01,11,48,50000
ALPHA,S04,2024-06-01,12,24,50000
ALPHA,S05,2024-07-01,12,24,50000
BETA,S06,2023-12-20,10,24,30000
BETA,S07,2024-01-20,10,24,30000
BETA,S08,2024-02-20,3,24,30000
BETA,S09,2024-05-20,10,24,30000
BETA,S10,2024-08-20,14,24,30000
GAMMA,S11,not-a-date,12,24,40000
`
	consumption := `session_id,consumed_quantity
S01,20
S02,35
S03,30
S04,26
S06,22
S07,15
S08,8
S09,0.05
S10,60
S12,
`
	drydock := `ship_name,docking_date,paint_type
ALPHA,2024-01-01,SPC Ultra
BETA,2024-01-05,Silicone
`

	ing := config.IngestData{
		EventsPath:      filepath.Join(dir, "events.csv"),
		ConsumptionPath: filepath.Join(dir, "consumption.csv"),
		DrydockPath:     filepath.Join(dir, "drydock.csv"),
	}
	for path, body := range map[string]string{
		ing.EventsPath:      events,
		ing.ConsumptionPath: consumption,
		ing.DrydockPath:     drydock,
	} {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write fixture %s: %v", path, err)
		}
	}
	return ing
}

func newTestController(t *testing.T, provider config.ConfigProvider, deps Deps) *Controller {
	t.Helper()
	var wg sync.WaitGroup
	c, err := NewController(context.Background(), &wg, provider, config.PipelineCacheData{}, zap.NewNop().Sugar(), deps)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func TestRefreshOnceRunsPipeline(t *testing.T) {
	ing := writeFixtures(t, t.TempDir())
	provider := &staticProvider{cfg: config.ConfigData{Ingest: ing}}

	cache := runcache.New()
	dist := make(chan *fouling.RunReport, 1)
	c := newTestController(t, provider, Deps{Cache: cache, Distributor: dist})

	if err := c.refreshOnce(); err != nil {
		t.Fatalf("refreshOnce: %v", err)
	}

	report, ok := cache.Report()
	if !ok {
		t.Fatal("cache not populated after refresh")
	}
	if report.Diagnostics.ResultsEmitted != 5 {
		t.Errorf("results emitted = %d, want 5", report.Diagnostics.ResultsEmitted)
	}
	if report.Diagnostics.MalformedRows != 2 {
		t.Errorf("malformed rows = %d, want 2 (one event, one consumption)", report.Diagnostics.MalformedRows)
	}
	if got := cache.ShipNames(); len(got) != 2 || got[0] != "ALPHA" || got[1] != "BETA" {
		t.Errorf("ship names = %v", got)
	}

	select {
	case distributed := <-dist:
		if distributed.RunID != report.RunID {
			t.Errorf("distributed run %s, cached run %s", distributed.RunID, report.RunID)
		}
	default:
		t.Error("report was not sent to the storage distributor")
	}
}

func TestRefreshSkipsWhenInputsUnchanged(t *testing.T) {
	ing := writeFixtures(t, t.TempDir())
	provider := &staticProvider{cfg: config.ConfigData{Ingest: ing}}

	cache := runcache.New()
	dist := make(chan *fouling.RunReport, 2)
	c := newTestController(t, provider, Deps{Cache: cache, Distributor: dist})

	if err := c.refreshOnce(); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	first, _ := cache.Report()
	<-dist

	if err := c.refreshOnce(); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	second, _ := cache.Report()
	if second.RunID != first.RunID {
		t.Error("unchanged inputs triggered a new run")
	}
	select {
	case <-dist:
		t.Error("skipped refresh still distributed a report")
	default:
	}

	// Touching an input re-triggers the run.
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(ing.EventsPath, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := c.refreshOnce(); err != nil {
		t.Fatalf("third refresh: %v", err)
	}
	third, _ := cache.Report()
	if third.RunID == first.RunID {
		t.Error("modified inputs did not trigger a new run")
	}
}

func TestRefreshSkipsWhenInputsAbsent(t *testing.T) {
	dir := t.TempDir()
	provider := &staticProvider{cfg: config.ConfigData{Ingest: config.IngestData{
		EventsPath:      filepath.Join(dir, "missing-events.csv"),
		ConsumptionPath: filepath.Join(dir, "missing-consumption.csv"),
	}}}

	cache := runcache.New()
	c := newTestController(t, provider, Deps{Cache: cache})

	if err := c.refreshOnce(); err != nil {
		t.Fatalf("refreshOnce with absent inputs should skip, got: %v", err)
	}
	if _, ok := cache.Report(); ok {
		t.Error("cache populated despite absent inputs")
	}
}

func TestRefreshSkipsWhenNotConfigured(t *testing.T) {
	provider := &staticProvider{}
	cache := runcache.New()
	c := newTestController(t, provider, Deps{Cache: cache})

	if err := c.refreshOnce(); err != nil {
		t.Fatalf("refreshOnce without ingest config should skip, got: %v", err)
	}
	if _, ok := cache.Report(); ok {
		t.Error("cache populated despite missing ingest config")
	}
}

func TestWarmFromArchive(t *testing.T) {
	archive, err := sqlitearchive.New(context.Background(), filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer archive.Close()

	archived := &fouling.RunReport{
		RunID:      "run-archived",
		FinishedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Results: []types.BiofoulingResult{
			{ShipName: "ALPHA", SessionID: "S01", ExcessRatio: 0.1, BioIndex: 5.0, BioClass: types.ClassModerate},
		},
		Summaries: []types.ShipSummary{{ShipName: "ALPHA", NumEvents: 1}},
	}
	archived.Diagnostics.ResultsEmitted = 1
	if err := archive.StoreReport(archived); err != nil {
		t.Fatalf("store report: %v", err)
	}

	cache := runcache.New()
	c := newTestController(t, &staticProvider{}, Deps{Cache: cache, Archive: archive})

	c.warmFromArchive()
	got, ok := cache.Report()
	if !ok || got.RunID != "run-archived" {
		t.Fatalf("cache not warmed from archive: ok=%v report=%+v", ok, got)
	}

	// A warm cache is left alone.
	cache.Set(&fouling.RunReport{RunID: "run-newer"})
	c.warmFromArchive()
	got, _ = cache.Report()
	if got.RunID != "run-newer" {
		t.Errorf("warm start overwrote a fresher cache with %s", got.RunID)
	}
}

func TestNewControllerValidation(t *testing.T) {
	var wg sync.WaitGroup
	provider := &staticProvider{}
	logger := zap.NewNop().Sugar()

	_, err := NewController(context.Background(), &wg, provider, config.PipelineCacheData{}, logger, Deps{})
	if err == nil || !strings.Contains(err.Error(), "run cache required") {
		t.Errorf("expected run cache error, got %v", err)
	}

	_, err = NewController(context.Background(), &wg, provider, config.PipelineCacheData{RefreshInterval: "soon"}, logger, Deps{Cache: runcache.New()})
	if err == nil || !strings.Contains(err.Error(), "refresh-interval") {
		t.Errorf("expected interval parse error, got %v", err)
	}

	c, err := NewController(context.Background(), &wg, provider, config.PipelineCacheData{}, logger, Deps{Cache: runcache.New()})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if c.refreshEvery != defaultRefreshInterval {
		t.Errorf("default interval = %v, want %v", c.refreshEvery, defaultRefreshInterval)
	}

	c, err = NewController(context.Background(), &wg, provider, config.PipelineCacheData{RefreshInterval: "5m"}, logger, Deps{Cache: runcache.New()})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if c.refreshEvery != 5*time.Minute {
		t.Errorf("interval = %v, want 5m", c.refreshEvery)
	}
}
