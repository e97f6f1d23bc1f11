package services

import (
	"math"
	"sort"
	"time"

	"github.com/retailpulse/retailpulse-go/internal/config"
	"github.com/retailpulse/retailpulse-go/internal/models"
	"github.com/retailpulse/retailpulse-go/internal/utils"
)

// Forecaster produces demand predictions with confidence intervals using
// exponential smoothing. With a seasonal pattern it fits additive
// Holt-Winters; without one it falls back to simple exponential smoothing
// with flat extrapolation.
type Forecaster struct {
	config config.AnalyticsConfig
}

// NewForecaster creates a forecaster with the given engine settings.
func NewForecaster(cfg config.AnalyticsConfig) *Forecaster {
	return &Forecaster{config: cfg}
}

// Forecast predicts the next horizon buckets of the series. The pattern is
// optional; passing nil selects the non-seasonal model. The returned result
// always contains exactly horizon points with lower <= predicted <= upper.
func (f *Forecaster) Forecast(series *models.TimeSeries, horizon int, pattern *models.SeasonalPattern) (*models.ForecastResult, error) {
	if series == nil || len(series.Buckets) == 0 {
		return nil, utils.NewValidationError("series is required")
	}
	if horizon < 1 || horizon > f.config.MaxHorizon {
		return nil, utils.NewInvalidTimeframeErrorf("horizon must be between 1 and %d, got %d", f.config.MaxHorizon, horizon)
	}
	if observed := series.ObservedBuckets(); observed < f.config.MinForecastBuckets {
		return nil, utils.NewInsufficientDataError(f.config.MinForecastBuckets, observed)
	}

	values := series.Quantities()

	var modelName string
	var predictions []float64
	var residuals []float64
	if pattern != nil && len(pattern.Indices) > 1 && len(values) >= 2*pattern.PeriodLen {
		modelName = "holt-winters"
		predictions, residuals = f.fitHoltWinters(values, horizon, pattern)
	} else {
		modelName = "ses"
		predictions, residuals = f.fitSES(values, horizon)
		pattern = nil
	}

	sigma := 0.0
	confidence := 0.0
	if len(residuals) >= 2 {
		sigma = calculateStdDev(residuals)
		confidence = confidenceScore(residuals, values)
	}

	lastStart := series.Buckets[len(series.Buckets)-1].Start
	points := make([]models.ForecastPoint, horizon)
	cursor := lastStart
	for k := 0; k < horizon; k++ {
		cursor = nextBucket(cursor, series.Granularity)
		predicted := math.Max(0, predictions[k])
		width := f.config.IntervalZ * sigma * math.Sqrt(float64(k+1))
		points[k] = models.ForecastPoint{
			Start:      cursor,
			Predicted:  predicted,
			LowerBound: math.Max(0, predicted-width),
			UpperBound: predicted + width,
		}
	}

	return &models.ForecastResult{
		ProductID:   series.ProductID,
		Model:       modelName,
		Horizon:     horizon,
		Points:      points,
		Pattern:     pattern,
		Confidence:  confidence,
		GeneratedAt: time.Now(),
	}, nil
}

// RankForecasts sorts forecasts by total predicted quantity over the horizon,
// descending, breaking ties by product identifier ascending so the order is
// deterministic.
func (f *Forecaster) RankForecasts(results []models.ForecastResult) []models.ForecastResult {
	ranked := make([]models.ForecastResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		ti, tj := ranked[i].TotalPredicted(), ranked[j].TotalPredicted()
		if ti != tj {
			return ti > tj
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})
	return ranked
}

// grid returns the candidate smoothing parameters searched during fitting.
func (f *Forecaster) grid() []float64 {
	var out []float64
	for v := f.config.GridMin; v <= f.config.GridMax+1e-12; v += f.config.GridStep {
		out = append(out, v)
	}
	return out
}

// fitSES selects alpha by minimizing one-step-ahead squared error, then
// extrapolates the final smoothed level flat over the horizon.
func (f *Forecaster) fitSES(values []float64, horizon int) (predictions []float64, residuals []float64) {
	bestSSE := math.Inf(1)
	bestAlpha := f.config.GridMin
	for _, alpha := range f.grid() {
		sse := sesSSE(values, alpha)
		if sse < bestSSE {
			bestSSE = sse
			bestAlpha = alpha
		}
	}

	level := values[0]
	residuals = make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		residuals = append(residuals, values[i]-level)
		level = bestAlpha*values[i] + (1-bestAlpha)*level
	}

	predictions = make([]float64, horizon)
	for k := range predictions {
		predictions[k] = level
	}
	return predictions, residuals
}

func sesSSE(values []float64, alpha float64) float64 {
	level := values[0]
	var sse float64
	for i := 1; i < len(values); i++ {
		err := values[i] - level
		sse += err * err
		level = alpha*values[i] + (1-alpha)*level
	}
	return sse
}

// fitHoltWinters fits additive level+trend+seasonal smoothing, selecting
// alpha, beta and gamma over the same grid, and projects level + k*trend +
// seasonal index over the horizon.
func (f *Forecaster) fitHoltWinters(values []float64, horizon int, pattern *models.SeasonalPattern) (predictions []float64, residuals []float64) {
	period := pattern.PeriodLen
	grid := f.grid()

	bestSSE := math.Inf(1)
	bestAlpha, bestBeta, bestGamma := grid[0], grid[0], grid[0]
	for _, alpha := range grid {
		for _, beta := range grid {
			for _, gamma := range grid {
				sse := holtWintersSSE(values, period, pattern.Indices, alpha, beta, gamma)
				if sse < bestSSE {
					bestSSE = sse
					bestAlpha, bestBeta, bestGamma = alpha, beta, gamma
				}
			}
		}
	}

	level, trend, seasonal, residuals := holtWintersFit(values, period, pattern.Indices, bestAlpha, bestBeta, bestGamma)

	predictions = make([]float64, horizon)
	n := len(values)
	for k := 0; k < horizon; k++ {
		idx := seasonal[(n+k)%period]
		predictions[k] = level + float64(k+1)*trend + idx
	}
	return predictions, residuals
}

func holtWintersSSE(values []float64, period int, indices []float64, alpha, beta, gamma float64) float64 {
	_, _, _, residuals := holtWintersFit(values, period, indices, alpha, beta, gamma)
	var sse float64
	for _, r := range residuals {
		sse += r * r
	}
	return sse
}

// holtWintersFit runs one pass of additive Holt-Winters over the series and
// returns the final state and the in-sample one-step-ahead residuals.
func holtWintersFit(values []float64, period int, indices []float64, alpha, beta, gamma float64) (level, trend float64, seasonal []float64, residuals []float64) {
	n := len(values)
	seasonal = make([]float64, period)
	copy(seasonal, indices)

	// Initialize level and trend from the first two periods.
	level = calculateMeanFloat64(values[:period])
	second := calculateMeanFloat64(values[period : 2*period])
	trend = (second - level) / float64(period)

	residuals = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		pos := i % period
		forecast := level + trend + seasonal[pos]
		residuals = append(residuals, values[i]-forecast)

		prevLevel := level
		level = alpha*(values[i]-seasonal[pos]) + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
		seasonal[pos] = gamma*(values[i]-level) + (1-gamma)*seasonal[pos]
	}
	return level, trend, seasonal, residuals
}

// confidenceScore maps in-sample residual variance relative to signal
// variance onto [0,1]; lower residual variance means higher confidence.
func confidenceScore(residuals []float64, values []float64) float64 {
	signalVar := calculateVariance(values)
	residualVar := calculateVariance(residuals)
	if signalVar == 0 {
		if residualVar == 0 {
			return 1
		}
		return 0
	}
	score := 1 - residualVar/signalVar
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
