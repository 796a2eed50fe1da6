// Command fleet-simulator writes synthetic voyage, fuel, and drydock exports
// for exercising the scoring pipeline without real fleet data.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hullwatch/hullwatch/internal/fouling"
	"github.com/hullwatch/hullwatch/internal/types"
	"gonum.org/v1/gonum/stat/distuv"
)

const dateLayout = "2006-01-02 15:04:05"

var fleetNames = []string{
	"ATLANTIC PIONEER", "BALTIC TRADER", "CORAL EMPRESS", "DELTA MARINER",
	"EASTERN HORIZON", "FJORD RUNNER", "GOLDEN GATEWAY", "HARBOR SENTINEL",
	"IONIAN STAR", "JUTLAND CARRIER", "KESTREL BAY", "LAUREL WIND",
	"MERIDIAN QUEST", "NORDIC CREST", "OCEAN LIBERTY", "PACIFIC DAWN",
}

var paintTypes = []string{"SPC Classic", "SPC Ultra", "Hard Foul Release", "Ablative Copper"}

// ShipProfile holds the personality drawn once per ship so every voyage of a
// ship stays consistent with its history.
type ShipProfile struct {
	Name         string
	PaintType    string
	BaseSpeed    float64
	Efficiency   float64
	IdleBias     float64
	FoulingRate  float64
	CleanEvery   float64
	Displacement float64
	Draft        float64
}

type fuelLine struct {
	SessionID string
	FuelType  string
	Tons      float64
}

// Generator draws every sample from one seeded source so a given seed
// reproduces the same fleet, voyages, and session ids.
type Generator struct {
	rng    *rand.Rand
	src    rand.Source
	ids    randReader
	logger *log.Logger
}

// randReader adapts the seeded generator for uuid generation.
type randReader struct{ rng *rand.Rand }

func (r randReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.UintN(256))
	}
	return len(p), nil
}

func main() {
	var (
		ships     = flag.Int("ships", 8, "Number of ships in the synthetic fleet")
		months    = flag.Int("months", 24, "Months of history to generate")
		startStr  = flag.String("start", "2023-01-01", "History start date (YYYY-MM-DD)")
		outDir    = flag.String("out", "simdata", "Output directory for the generated CSVs")
		seed      = flag.Uint64("seed", 1, "Random seed; the same seed reproduces the same fleet")
		malformed = flag.Float64("malformed", 0, "Fraction of event rows written with a broken field")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[fleet-simulator] ", log.LstdFlags)

	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		logger.Fatalf("Invalid -start date: %v", err)
	}
	end := start.AddDate(0, *months, 0)

	src := rand.NewPCG(*seed, *seed+1)
	rng := rand.New(src)
	gen := &Generator{
		rng:    rng,
		src:    src,
		ids:    randReader{rng: rng},
		logger: logger,
	}

	fleet := gen.BuildFleet(*ships)
	logger.Printf("Fleet of %d ships, %s to %s, seed %d", len(fleet),
		start.Format("2006-01-02"), end.Format("2006-01-02"), *seed)
	for _, s := range fleet {
		logger.Printf("  %-20s speed %.1f kt, cleans every %.0f days, paint %q",
			s.Name, s.BaseSpeed, s.CleanEvery, s.PaintType)
	}

	events, fuel, docks := gen.Sail(fleet, start, end)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Fatalf("Failed to create output directory: %v", err)
	}

	eventsPath := filepath.Join(*outDir, "voyage_events.csv")
	bad, err := writeEvents(eventsPath, events, *malformed, gen.rng)
	if err != nil {
		logger.Fatalf("Failed to write events: %v", err)
	}
	if bad > 0 {
		logger.Printf("Wrote %d events to %s (%d corrupted)", len(events), eventsPath, bad)
	} else {
		logger.Printf("Wrote %d events to %s", len(events), eventsPath)
	}

	fuelPath := filepath.Join(*outDir, "fuel_consumption.csv")
	if err := writeFuel(fuelPath, fuel); err != nil {
		logger.Fatalf("Failed to write consumption: %v", err)
	}
	logger.Printf("Wrote %d fuel line items to %s", len(fuel), fuelPath)

	dockPath := filepath.Join(*outDir, "drydock_events.csv")
	if err := writeDocks(dockPath, docks); err != nil {
		logger.Fatalf("Failed to write drydocks: %v", err)
	}
	logger.Printf("Wrote %d drydock entries to %s", len(docks), dockPath)
}

// BuildFleet samples one profile per ship.
func (g *Generator) BuildFleet(n int) []ShipProfile {
	speedDist := distuv.Normal{Mu: 12.5, Sigma: 1.5, Src: g.src}
	effDist := distuv.Normal{Mu: 0.0042, Sigma: 0.0004, Src: g.src}
	idleDist := distuv.Beta{Alpha: 2, Beta: 6, Src: g.src}
	rateDist := distuv.Uniform{Min: 0.08, Max: 0.35, Src: g.src}
	cleanDist := distuv.Uniform{Min: 300, Max: 720, Src: g.src}
	dispDist := distuv.Uniform{Min: 25000, Max: 85000, Src: g.src}

	fleet := make([]ShipProfile, 0, n)
	for i := 0; i < n; i++ {
		var name string
		if i < len(fleetNames) {
			name = fleetNames[i]
		} else {
			name = fmt.Sprintf("VESSEL %02d", i+1)
		}

		// Some yards never report the coating.
		paint := paintTypes[g.rng.IntN(len(paintTypes))]
		if g.rng.Float64() < 0.15 {
			paint = ""
		}

		disp := dispDist.Rand()
		fleet = append(fleet, ShipProfile{
			Name:         name,
			PaintType:    paint,
			BaseSpeed:    math.Min(math.Max(speedDist.Rand(), 9), 18),
			Efficiency:   math.Max(effDist.Rand(), 0.002),
			IdleBias:     idleDist.Rand(),
			FoulingRate:  rateDist.Rand(),
			CleanEvery:   cleanDist.Rand(),
			Displacement: disp,
			Draft:        6 + disp/9000,
		})
	}
	return fleet
}

// Sail walks each ship through alternating voyages and port stays, booking
// fuel against the admiralty power term plus a fouling surcharge that grows
// with hull age and the ship's idle habit.
func (g *Generator) Sail(fleet []ShipProfile, start, end time.Time) ([]types.VoyageEvent, []fuelLine, []types.DrydockRecord) {
	var (
		events []types.VoyageEvent
		fuel   []fuelLine
		docks  []types.DrydockRecord
	)
	p := fouling.DefaultParams()

	durDist := distuv.Gamma{Alpha: 9, Beta: 0.25, Src: g.src}
	noise := distuv.Normal{Mu: 1, Sigma: 0.03, Src: g.src}

	for _, ship := range fleet {
		speedDist := distuv.Normal{Mu: ship.BaseSpeed, Sigma: 0.9, Src: g.src}
		gapDist := distuv.Exponential{Rate: 1 / (24 + ship.IdleBias*360), Src: g.src}

		// The fleet does not all clean on day one.
		lastClean := start.AddDate(0, 0, -g.rng.IntN(200))
		docks = append(docks, types.DrydockRecord{
			ShipName: ship.Name, DockDate: lastClean, PaintType: ship.PaintType,
		})

		now := start.Add(time.Duration(g.rng.IntN(72)) * time.Hour)
		for now.Before(end) {
			if now.Sub(lastClean).Hours() > ship.CleanEvery*24 {
				lastClean = now
				docks = append(docks, types.DrydockRecord{
					ShipName: ship.Name, DockDate: now, PaintType: ship.PaintType,
				})
				now = now.Add(5 * 24 * time.Hour) // yard stay
			}

			dur := math.Max(durDist.Rand(), 6)
			speed := math.Max(speedDist.Rand(), 4)
			sea := seaState(now, g.src)

			ev := types.VoyageEvent{
				ShipName:         ship.Name,
				SessionID:        g.sessionID(),
				StartDate:        now,
				SpeedKnots:       speed,
				DurationHours:    dur,
				DisplacementTons: ship.Displacement,
				MidDraftMeters:   ship.Draft,
				BeaufortScale:    sea,
			}
			events = append(events, ev)

			days := now.Sub(lastClean).Hours() / 24
			mult := 1 + ship.FoulingRate*(days/365)*(0.5+ship.IdleBias)
			mult *= 1 + 0.015*float64(sea)
			burned := ship.Efficiency * fouling.TheoreticalPower(ev, p) * dur * mult * noise.Rand()
			fuel = append(fuel, g.splitFuel(ev.SessionID, burned)...)

			now = now.Add(time.Duration(dur * float64(time.Hour)))
			now = now.Add(time.Duration(gapDist.Rand() * float64(time.Hour)))
		}
	}
	return events, fuel, docks
}

func (g *Generator) sessionID() string {
	id, err := uuid.NewRandomFromReader(g.ids)
	if err != nil {
		g.logger.Fatalf("Failed to generate session id: %v", err)
	}
	return id.String()
}

// splitFuel books a voyage's burn the way fuel reports arrive, sometimes as
// a heavy-fuel line plus an auxiliary distillate share under one session.
func (g *Generator) splitFuel(session string, tons float64) []fuelLine {
	if g.rng.Float64() < 0.35 {
		aux := tons * (0.05 + 0.10*g.rng.Float64())
		return []fuelLine{
			{SessionID: session, FuelType: "HFO", Tons: tons - aux},
			{SessionID: session, FuelType: "MGO", Tons: aux},
		}
	}
	return []fuelLine{{SessionID: session, FuelType: "HFO", Tons: tons}}
}

// seaState draws a Beaufort number around a seasonal mean, rougher in the
// northern winter.
func seaState(at time.Time, src rand.Source) int {
	day := float64(at.YearDay())
	mean := 2.6 + 1.4*math.Cos(2*math.Pi*(day-15)/365)
	n := int(distuv.Poisson{Lambda: mean, Src: src}.Rand())
	if n > 12 {
		n = 12
	}
	return n
}

func writeEvents(path string, events []types.VoyageEvent, malformed float64, rng *rand.Rand) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ship_name", "session_id", "start_date", "speed", "duration", "displacement", "draft", "sea_state"}); err != nil {
		return 0, err
	}

	bad := 0
	for _, ev := range events {
		rec := []string{
			ev.ShipName,
			ev.SessionID,
			ev.StartDate.Format(dateLayout),
			strconv.FormatFloat(ev.SpeedKnots, 'f', 2, 64),
			strconv.FormatFloat(ev.DurationHours, 'f', 1, 64),
			strconv.FormatFloat(ev.DisplacementTons, 'f', 0, 64),
			strconv.FormatFloat(ev.MidDraftMeters, 'f', 1, 64),
			strconv.Itoa(ev.BeaufortScale),
		}
		if malformed > 0 && rng.Float64() < malformed {
			breakRecord(rec, rng)
			bad++
		}
		if err := w.Write(rec); err != nil {
			return bad, err
		}
	}
	w.Flush()
	return bad, w.Error()
}

// breakRecord corrupts one required field the way real exports do.
func breakRecord(rec []string, rng *rand.Rand) {
	switch rng.IntN(3) {
	case 0:
		rec[2] = "pending"
	case 1:
		rec[3] = "n/a"
	default:
		rec[0] = ""
	}
}

func writeFuel(path string, fuel []fuelLine) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"session_id", "fuel_type", "consumed_quantity"}); err != nil {
		return err
	}
	for _, line := range fuel {
		rec := []string{line.SessionID, line.FuelType, strconv.FormatFloat(line.Tons, 'f', 3, 64)}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeDocks(path string, docks []types.DrydockRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ship_name", "docking_date", "paint_type"}); err != nil {
		return err
	}
	for _, d := range docks {
		rec := []string{d.ShipName, d.DockDate.Format(dateLayout), d.PaintType}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
