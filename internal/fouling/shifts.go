package fouling

import (
	"math"
	"sort"
	"time"
)

// Drydock records are the least reliable of the three inputs; cleanings done
// abroad or billed outside the planned-maintenance system never make it into
// the export. A step change in a ship's excess-ratio series is the fuel-side
// signature of such an event, so scanning the scored series for changepoints
// recovers what the paperwork lost.

const (
	// DefaultShiftPenalty tunes the changepoint search; higher values
	// demand a larger cost reduction before a segment is split.
	DefaultShiftPenalty = 5.0

	// DefaultShiftMinSegment is the fewest voyages a segment may span.
	DefaultShiftMinSegment = 4

	// cleaningDropThreshold is the ratio drop across a shift above which
	// the shift is reported as a probable unrecorded cleaning.
	cleaningDropThreshold = 0.05

	shiftSmoothingWindow = 5
)

// RatioShift is one detected step change in a ship's excess-ratio series.
// Before and After are the mean smoothed ratios of the adjacent segments.
type RatioShift struct {
	ShipName string    `json:"ship_name"`
	At       time.Time `json:"at"`
	Before   float64   `json:"before"`
	After    float64   `json:"after"`
}

// LooksLikeCleaning reports whether the shift is the downward step a hull
// treatment leaves behind.
func (s RatioShift) LooksLikeCleaning() bool {
	return s.Before-s.After >= cleaningDropThreshold
}

// DetectRatioShifts scans each ship's chronological excess-ratio series for
// step changes, using kernel changepoint detection over a median-smoothed
// copy of the series. Ships with fewer voyages than two minimum segments are
// skipped. Shifts are returned ordered by ship, then time.
func DetectRatioShifts(rows []Row, minSegment int, penalty float64) []RatioShift {
	if minSegment < 2 {
		minSegment = 2
	}

	byShip := make(map[string][]Row)
	var ships []string
	for _, r := range rows {
		if _, seen := byShip[r.Event.ShipName]; !seen {
			ships = append(ships, r.Event.ShipName)
		}
		byShip[r.Event.ShipName] = append(byShip[r.Event.ShipName], r)
	}
	sort.Strings(ships)

	var shifts []RatioShift
	for _, ship := range ships {
		series := byShip[ship]
		if len(series) < 2*minSegment {
			continue
		}
		sort.Slice(series, func(i, j int) bool {
			return series[i].Event.StartDate.Before(series[j].Event.StartDate)
		})

		ratios := make([]float64, len(series))
		for i, r := range series {
			ratios[i] = r.Ratio
		}
		smoothed := medianSmooth(ratios, shiftSmoothingWindow)

		seg := newRatioSegmenter(minSegment)
		seg.fit(smoothed)
		for _, bkp := range seg.breakpoints(penalty) {
			shifts = append(shifts, RatioShift{
				ShipName: ship,
				At:       series[bkp].Event.StartDate,
				Before:   mean(smoothed[boundBefore(seg, bkp):bkp]),
				After:    mean(smoothed[bkp:boundAfter(seg, bkp)]),
			})
		}
	}
	return shifts
}

// boundBefore and boundAfter find the adjacent breakpoints so segment means
// cover exactly one segment, not the whole series.
func boundBefore(seg *ratioSegmenter, bkp int) int {
	prev := 0
	for _, b := range seg.found {
		if b < bkp && b > prev {
			prev = b
		}
	}
	return prev
}

func boundAfter(seg *ratioSegmenter, bkp int) int {
	next := len(seg.series)
	for _, b := range seg.found {
		if b > bkp && b < next {
			next = b
		}
	}
	return next
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// medianSmooth applies a running median. The window is rounded down to an
// odd width no wider than the series; edges replicate the boundary value
// rather than padding with zeros, since a ratio of zero is itself a signal.
func medianSmooth(series []float64, window int) []float64 {
	n := len(series)
	if n == 0 {
		return nil
	}
	if window > n {
		window = n
	}
	if window%2 == 0 {
		window--
	}
	if window < 3 {
		out := make([]float64, n)
		copy(out, series)
		return out
	}

	half := window / 2
	out := make([]float64, n)
	buf := make([]float64, window)
	for i := 0; i < n; i++ {
		for j := -half; j <= half; j++ {
			idx := i + j
			if idx < 0 {
				idx = 0
			} else if idx >= n {
				idx = n - 1
			}
			buf[j+half] = series[idx]
		}
		sorted := append([]float64(nil), buf...)
		sort.Float64s(sorted)
		out[i] = sorted[half]
	}
	return out
}

// ratioSegmenter runs PELT over a single ship's series with a radial basis
// function cost, so shifts in both level and spread register without
// assuming the ratios are Gaussian.
type ratioSegmenter struct {
	series  []float64
	gram    [][]float64
	minSeg  int
	found   []int
	nPoints int
}

func newRatioSegmenter(minSegment int) *ratioSegmenter {
	return &ratioSegmenter{minSeg: minSegment}
}

// fit precomputes the kernel matrix, with the bandwidth set by the median
// heuristic so the cost is insensitive to the scale of the ratios.
func (s *ratioSegmenter) fit(series []float64) {
	s.series = series
	s.nPoints = len(series)

	gamma := 1.0
	var dists []float64
	for i := 0; i < s.nPoints; i++ {
		for j := i + 1; j < s.nPoints; j++ {
			d := series[i] - series[j]
			if sq := d * d; sq > 0 {
				dists = append(dists, sq)
			}
		}
	}
	if len(dists) > 0 {
		sort.Float64s(dists)
		if med := dists[len(dists)/2]; med > 0 {
			gamma = 1.0 / med
		}
	}

	s.gram = make([][]float64, s.nPoints)
	for i := range s.gram {
		s.gram[i] = make([]float64, s.nPoints)
		for j := range s.gram[i] {
			d := series[i] - series[j]
			s.gram[i][j] = math.Exp(-gamma * d * d)
		}
	}
}

// segmentCost is the kernel cost of series[start:end]: the trace of the
// segment's Gram block minus its total divided by the length. Homogeneous
// segments cost near zero; mixed segments pay for their spread.
func (s *ratioSegmenter) segmentCost(start, end int) float64 {
	if start >= end || start < 0 || end > s.nPoints {
		return math.Inf(1)
	}
	diag, total := 0.0, 0.0
	for i := start; i < end; i++ {
		for j := start; j < end; j++ {
			v := s.gram[i][j]
			total += v
			if i == j {
				diag += v
			}
		}
	}
	return diag - total/float64(end-start)
}

// breakpoints runs the pruned exact linear time recursion and returns the
// interior changepoints in ascending order. The terminal boundary at the end
// of the series is not reported.
func (s *ratioSegmenter) breakpoints(penalty float64) []int {
	partitions := map[int]map[[2]int]float64{
		0: {{0, 0}: 0},
	}

	var candidates []int
	for k := s.minSeg; k < s.nPoints; k++ {
		candidates = append(candidates, k)
	}
	candidates = append(candidates, s.nPoints)

	var admissible []int
	for _, bkp := range candidates {
		admissible = append(admissible, bkp-s.minSeg)

		var subproblems []map[[2]int]float64
		var valid []int
		for _, t := range admissible {
			left, ok := partitions[t]
			if !ok {
				continue
			}
			candidate := make(map[[2]int]float64, len(left)+1)
			for k, v := range left {
				candidate[k] = v
			}
			candidate[[2]int{t, bkp}] = s.segmentCost(t, bkp) + penalty
			subproblems = append(subproblems, candidate)
			valid = append(valid, t)
		}
		if len(subproblems) == 0 {
			continue
		}

		best := 0
		bestCost := partitionCost(subproblems[0])
		for i := 1; i < len(subproblems); i++ {
			if c := partitionCost(subproblems[i]); c < bestCost {
				bestCost = c
				best = i
			}
		}
		partitions[bkp] = subproblems[best]

		// Prune: drop admissible points that can no longer win.
		var kept []int
		for i, t := range valid {
			if partitionCost(subproblems[i]) <= bestCost+penalty {
				kept = append(kept, t)
			}
		}
		admissible = kept
	}

	final := partitions[s.nPoints]
	s.found = s.found[:0]
	for seg := range final {
		if seg[1] > 0 && seg[1] < s.nPoints {
			s.found = append(s.found, seg[1])
		}
	}
	sort.Ints(s.found)
	return s.found
}

func partitionCost(partition map[[2]int]float64) float64 {
	sum := 0.0
	for _, cost := range partition {
		sum += cost
	}
	return sum
}
