package fouling

import (
	"math"
	"sort"
)

// RatioFunc predicts the excess consumption ratio for a single processed row.
// Implementations come from the predict package; the evaluation below only
// needs the number.
type RatioFunc func(Row) float64

// EvalMetrics reports holdout error on the consumption scale, where a
// prediction is baseline * (1 + predicted ratio) tons.
type EvalMetrics struct {
	TrainRows   int           `json:"train_rows"`
	TestRows    int           `json:"test_rows"`
	RMSE        float64       `json:"rmse_tons"`
	MAE         float64       `json:"mae_tons"`
	WMAPE       float64       `json:"wmape"`
	AccuracyPct float64       `json:"accuracy_pct"`
	Bins        []ResidualBin `json:"residual_bins"`
}

// ResidualBin groups absolute error by hull age at the time of the voyage.
type ResidualBin struct {
	MinDays    float64 `json:"min_days"`
	MaxDays    float64 `json:"max_days"`
	Count      int     `json:"count"`
	MeanAbsErr float64 `json:"mean_abs_err_tons"`
}

// residualBinEdges are half-open (lo, hi] intervals of days since cleaning.
var residualBinEdges = [][2]float64{
	{0, 90},
	{90, 180},
	{180, 365},
	{365, 1000},
}

// ChronoSplit orders rows by voyage start date and cuts the first trainFrac
// share as the training set. Evaluating on the newest voyages mirrors how the
// model is used: fitted on the past, applied to the present.
func ChronoSplit(rows []Row, trainFrac float64) (train, test []Row) {
	ordered := make([]Row, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Event.StartDate.Before(ordered[j].Event.StartDate)
	})
	cut := int(float64(len(ordered)) * trainFrac)
	if cut < 0 {
		cut = 0
	}
	if cut > len(ordered) {
		cut = len(ordered)
	}
	return ordered[:cut], ordered[cut:]
}

// Evaluate scores predicted ratios against observed consumption for the
// holdout rows. Rows with no usable baseline are skipped; with nothing left
// the metrics are zero-valued with empty bins.
func Evaluate(test []Row, predict RatioFunc) EvalMetrics {
	m := EvalMetrics{TestRows: len(test)}

	var (
		sumSq, sumAbs, sumReal float64
		n                      int
	)
	binAbsErr := make([]float64, len(residualBinEdges))
	binCount := make([]int, len(residualBinEdges))

	for _, r := range test {
		if math.IsNaN(r.Baseline) || r.Baseline <= 0 {
			continue
		}
		predicted := r.Baseline * (1 + predict(r))
		err := predicted - r.ConsumedTons
		abs := math.Abs(err)

		sumSq += err * err
		sumAbs += abs
		sumReal += math.Abs(r.ConsumedTons)
		n++

		days := r.Feat.DaysSinceCleaning
		if !math.IsNaN(days) {
			for b, edge := range residualBinEdges {
				if days > edge[0] && days <= edge[1] {
					binAbsErr[b] += abs
					binCount[b]++
					break
				}
			}
		}
	}

	if n == 0 {
		return m
	}

	m.RMSE = math.Sqrt(sumSq / float64(n))
	m.MAE = sumAbs / float64(n)
	if sumReal > 0 {
		m.WMAPE = sumAbs / sumReal
		m.AccuracyPct = 100 * (1 - m.WMAPE)
	}

	for b, edge := range residualBinEdges {
		bin := ResidualBin{MinDays: edge[0], MaxDays: edge[1], Count: binCount[b]}
		if binCount[b] > 0 {
			bin.MeanAbsErr = binAbsErr[b] / float64(binCount[b])
		}
		m.Bins = append(m.Bins, bin)
	}
	return m
}

// ScenarioRatios predicts the excess ratio for the same voyage profile at two
// hull ages, recomputing accumulated fouling risk for each. A sane model
// predicts at least as much excess for the older hull.
func ScenarioRatios(base Row, cleanDays, fouledDays float64, predict RatioFunc) (cleanRatio, fouledRatio float64) {
	at := func(days float64) float64 {
		r := base
		r.Feat.DaysSinceCleaning = days
		r.Feat.AccumulatedFoulingRisk = r.Feat.PctIdleRecent * days
		return predict(r)
	}
	return at(cleanDays), at(fouledDays)
}
