package services

import (
	"time"

	"github.com/retailpulse/retailpulse-go/internal/config"
	"github.com/retailpulse/retailpulse-go/internal/models"
	"github.com/retailpulse/retailpulse-go/internal/utils"
)

// SeasonalityDetector finds periodic patterns in a time series and splits the
// series into trend, seasonal and residual components.
type SeasonalityDetector struct {
	config config.AnalyticsConfig
}

// NewSeasonalityDetector creates a detector with the given engine settings.
func NewSeasonalityDetector(cfg config.AnalyticsConfig) *SeasonalityDetector {
	return &SeasonalityDetector{config: cfg}
}

type candidatePeriod struct {
	class  models.PeriodClass
	length int
}

// candidatePeriods lists the periods tested for a granularity, scaled so that
// the same calendar cycles are visible at each bucket width.
func candidatePeriods(granularity models.Granularity) []candidatePeriod {
	switch granularity {
	case models.GranularityWeek:
		return []candidatePeriod{
			{class: models.PeriodMonthly, length: 4},
			{class: models.PeriodYearly, length: 52},
		}
	case models.GranularityMonth:
		return []candidatePeriod{
			{class: models.PeriodYearly, length: 12},
		}
	default:
		return []candidatePeriod{
			{class: models.PeriodWeekly, length: 7},
			{class: models.PeriodMonthly, length: 30},
			{class: models.PeriodYearly, length: 365},
		}
	}
}

// Detect tests each candidate period that fits twice into the series and
// returns the strongest pattern above the configured threshold, together with
// the additive decomposition at that period. A flat series, or one with no
// candidate clearing the threshold, yields (nil, nil, nil): absence of
// seasonality is an expected outcome, not an error.
func (d *SeasonalityDetector) Detect(series *models.TimeSeries) (*models.SeasonalPattern, *models.Decomposition, error) {
	if series == nil || len(series.Buckets) == 0 {
		return nil, nil, utils.NewValidationError("series is required")
	}

	values := series.Quantities()
	if calculateVariance(values) == 0 {
		return nil, nil, nil
	}

	var best *candidatePeriod
	bestStrength := 0.0
	for _, cand := range candidatePeriods(series.Granularity) {
		if len(values) < 2*cand.length {
			continue
		}
		strength := autocorrelation(values, cand.length)
		if strength > bestStrength {
			c := cand
			best = &c
			bestStrength = strength
		}
	}

	if best == nil || bestStrength < d.config.SeasonalityThreshold {
		return nil, nil, nil
	}

	decomp, indices := decompose(values, best.length)

	mean := calculateMeanFloat64(values)
	magnitude := 0.0
	if mean != 0 {
		maxIdx, minIdx := indices[0], indices[0]
		for _, v := range indices {
			if v > maxIdx {
				maxIdx = v
			}
			if v < minIdx {
				minIdx = v
			}
		}
		magnitude = (maxIdx - minIdx) / mean
	}

	pattern := &models.SeasonalPattern{
		ProductID:   series.ProductID,
		Period:      best.class,
		PeriodLen:   best.length,
		Magnitude:   magnitude,
		Strength:    bestStrength,
		Peaks:       extremePositions(indices, true),
		Troughs:     extremePositions(indices, false),
		Indices:     indices,
		GeneratedAt: time.Now(),
	}
	return pattern, decomp, nil
}

// decompose performs an additive decomposition at the given period. The trend
// is a centered moving average, the seasonal indices are mean deviations from
// trend per position within the period normalized to sum to zero, and the
// residual absorbs the rest so the three components always reconstruct the
// observed series exactly.
func decompose(values []float64, period int) (*models.Decomposition, []float64) {
	n := len(values)
	trend := centeredMovingAverage(values, period)

	sums := make([]float64, period)
	counts := make([]int, period)
	for i := 0; i < n; i++ {
		pos := i % period
		sums[pos] += values[i] - trend[i]
		counts[pos]++
	}

	indices := make([]float64, period)
	for pos := range indices {
		if counts[pos] > 0 {
			indices[pos] = sums[pos] / float64(counts[pos])
		}
	}
	indexMean := calculateMeanFloat64(indices)
	for pos := range indices {
		indices[pos] -= indexMean
	}

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i := 0; i < n; i++ {
		seasonal[i] = indices[i%period]
		residual[i] = values[i] - trend[i] - seasonal[i]
	}

	return &models.Decomposition{
		Trend:    trend,
		Seasonal: seasonal,
		Residual: residual,
	}, indices
}

// extremePositions returns the position(s) within the period holding the
// maximum (or minimum) seasonal index, in ascending position order.
func extremePositions(indices []float64, max bool) []int {
	if len(indices) == 0 {
		return nil
	}
	extreme := indices[0]
	for _, v := range indices[1:] {
		if (max && v > extreme) || (!max && v < extreme) {
			extreme = v
		}
	}
	var out []int
	for pos, v := range indices {
		if v == extreme {
			out = append(out, pos)
		}
	}
	return out
}
