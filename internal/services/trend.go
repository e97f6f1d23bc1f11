package services

import (
	"sort"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"

	"github.com/retailpulse/retailpulse-go/internal/config"
	"github.com/retailpulse/retailpulse-go/internal/models"
	"github.com/retailpulse/retailpulse-go/internal/utils"
)

// TrendAnalyzer computes growth, acceleration and directional classification
// for a product, compares regions against their cross-region average, and
// ranks products by growth rate.
type TrendAnalyzer struct {
	config config.AnalyticsConfig
}

// NewTrendAnalyzer creates an analyzer with the given engine settings.
func NewTrendAnalyzer(cfg config.AnalyticsConfig) *TrendAnalyzer {
	return &TrendAnalyzer{config: cfg}
}

// Analyze compares the latest comparisonPeriod buckets against the prior
// comparisonPeriod buckets. When a decomposition is supplied the comparison
// runs on seasonally adjusted quantities (observed minus seasonal component)
// so cyclical swings do not register as growth or decline.
func (a *TrendAnalyzer) Analyze(series *models.TimeSeries, comparisonPeriod int, decomp *models.Decomposition) (*models.TrendAnalysis, error) {
	if series == nil || len(series.Buckets) == 0 {
		return nil, utils.NewValidationError("series is required")
	}
	if comparisonPeriod < 1 {
		return nil, utils.NewInvalidTimeframeErrorf("comparison period must be positive, got %d", comparisonPeriod)
	}
	values := series.Quantities()
	if len(values) < 2*comparisonPeriod {
		return nil, utils.NewInsufficientDataError(2*comparisonPeriod, len(values))
	}

	adjusted := false
	if decomp != nil && len(decomp.Seasonal) == len(values) {
		deseasonalized := make([]float64, len(values))
		for i := range values {
			deseasonalized[i] = values[i] - decomp.Seasonal[i]
		}
		values = deseasonalized
		adjusted = true
	}

	growth, undefined := periodGrowth(values, comparisonPeriod)

	analysis := &models.TrendAnalysis{
		ProductID:          series.ProductID,
		GrowthRate:         growth,
		GrowthUndefined:    undefined,
		Acceleration:       a.acceleration(values),
		Direction:          a.classify(growth, undefined),
		ComparisonPeriod:   comparisonPeriod,
		SeasonallyAdjusted: adjusted,
		GeneratedAt:        time.Now(),
	}
	return analysis, nil
}

// AnalyzeRegions computes per-region growth for one product and reports each
// region against the average across regions with a defined growth rate.
func (a *TrendAnalyzer) AnalyzeRegions(regionSeries map[string]*models.TimeSeries, comparisonPeriod int) ([]models.RegionTrend, error) {
	if len(regionSeries) == 0 {
		return nil, utils.NewValidationError("at least one regional series is required")
	}

	regions := make([]string, 0, len(regionSeries))
	for region := range regionSeries {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	trends := make([]models.RegionTrend, 0, len(regions))
	var sum float64
	var defined int
	for _, region := range regions {
		series := regionSeries[region]
		analysis, err := a.Analyze(series, comparisonPeriod, nil)
		if err != nil {
			return nil, err
		}
		rt := models.RegionTrend{
			Region:          region,
			GrowthRate:      analysis.GrowthRate,
			GrowthUndefined: analysis.GrowthUndefined,
		}
		if !rt.GrowthUndefined {
			sum += rt.GrowthRate
			defined++
		}
		trends = append(trends, rt)
	}

	if defined > 0 {
		average := sum / float64(defined)
		for i := range trends {
			if !trends[i].GrowthUndefined {
				trends[i].VsAverage = trends[i].GrowthRate - average
			}
		}
	}
	return trends, nil
}

// Rank sorts analyses by growth rate descending and returns the top and
// bottom slices. Undefined growth sorts below every defined rate. With fewer
// products than twice the ranking size the two lists overlap; callers treat
// that as expected.
func (a *TrendAnalyzer) Rank(analyses []models.TrendAnalysis) models.TrendRanking {
	sorted := make([]models.TrendAnalysis, len(analyses))
	copy(sorted, analyses)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].GrowthUndefined != sorted[j].GrowthUndefined {
			return sorted[j].GrowthUndefined
		}
		if sorted[i].GrowthRate != sorted[j].GrowthRate {
			return sorted[i].GrowthRate > sorted[j].GrowthRate
		}
		return sorted[i].ProductID < sorted[j].ProductID
	})

	size := a.config.RankingSize
	top := size
	if top > len(sorted) {
		top = len(sorted)
	}
	bottom := size
	if bottom > len(sorted) {
		bottom = len(sorted)
	}

	ranking := models.TrendRanking{
		Top:    append([]models.TrendAnalysis(nil), sorted[:top]...),
		Bottom: append([]models.TrendAnalysis(nil), sorted[len(sorted)-bottom:]...),
	}
	return ranking
}

// periodGrowth compares the sums of the latest and prior windows. A zero
// prior window makes the rate undefined rather than infinite.
func periodGrowth(values []float64, period int) (growth float64, undefined bool) {
	n := len(values)
	var latest, prior float64
	for _, v := range values[n-period:] {
		latest += v
	}
	for _, v := range values[n-2*period : n-period] {
		prior += v
	}
	if prior == 0 {
		return 0, true
	}
	return (latest - prior) / prior, false
}

// acceleration is the mean second discrete derivative of the bucket-level
// growth-rate sequence, computed on a smoothed series so single-bucket spikes
// do not dominate the sign.
func (a *TrendAnalyzer) acceleration(values []float64) float64 {
	smoothed := values
	if period := a.config.TrendSmoothingPeriod; period > 1 && len(values) > period {
		sma := trend.NewSmaWithPeriod[float64](period)
		smoothed = helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
	}

	var rates []float64
	for i := 1; i < len(smoothed); i++ {
		if smoothed[i-1] == 0 {
			continue
		}
		rates = append(rates, (smoothed[i]-smoothed[i-1])/smoothed[i-1])
	}
	if len(rates) < 2 {
		return 0
	}

	var sum float64
	for i := 1; i < len(rates); i++ {
		sum += rates[i] - rates[i-1]
	}
	return sum / float64(len(rates)-1)
}

// classify maps a growth rate onto the directional buckets. The boundary at
// exactly -5% counts as declining.
func (a *TrendAnalyzer) classify(growth float64, undefined bool) models.TrendDirection {
	if undefined {
		return models.TrendUndefined
	}
	switch {
	case growth > a.config.StrongGrowthThreshold:
		return models.TrendStrongGrowth
	case growth >= a.config.ModerateGrowthThreshold:
		return models.TrendModerateGrowth
	case growth > a.config.DecliningThreshold:
		return models.TrendStable
	default:
		return models.TrendDeclining
	}
}
