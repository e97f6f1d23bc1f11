package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Granularity is the fixed bucket width used to aggregate transactions.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Valid reports whether g is one of the supported bucket widths.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityDay, GranularityWeek, GranularityMonth:
		return true
	}
	return false
}

// TimeRange is a half-open request window [Start, End].
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TimeBucket is one aggregated interval of a TimeSeries. Buckets with no
// observed transactions are materialized with zero values, never omitted.
type TimeBucket struct {
	Start       time.Time `json:"start"`
	Quantity    float64   `json:"quantity"`
	Revenue     float64   `json:"revenue"`
	RecordCount int       `json:"record_count"`
}

// TimeSeries is a uniform, gap-filled series of buckets for one product,
// optionally scoped to one region. Buckets are contiguous and strictly
// increasing in time.
type TimeSeries struct {
	ProductID   string       `json:"product_id"`
	Region      string       `json:"region,omitempty"`
	Granularity Granularity  `json:"granularity"`
	Buckets     []TimeBucket `json:"buckets"`
}

// Quantities returns the per-bucket quantity values in bucket order.
func (ts *TimeSeries) Quantities() []float64 {
	out := make([]float64, len(ts.Buckets))
	for i, b := range ts.Buckets {
		out[i] = b.Quantity
	}
	return out
}

// ObservedBuckets returns the number of buckets with at least one transaction.
func (ts *TimeSeries) ObservedBuckets() int {
	n := 0
	for _, b := range ts.Buckets {
		if b.RecordCount > 0 {
			n++
		}
	}
	return n
}

// PeriodClass names the detected seasonal cycle.
type PeriodClass string

const (
	PeriodWeekly  PeriodClass = "weekly"
	PeriodMonthly PeriodClass = "monthly"
	PeriodYearly  PeriodClass = "yearly"
)

// SeasonalPattern describes a detected periodic pattern. Positions are
// zero-based offsets within the period; mapping them to human-readable labels
// is the caller's concern.
type SeasonalPattern struct {
	ProductID   string      `json:"product_id"`
	Period      PeriodClass `json:"period"`
	PeriodLen   int         `json:"period_len"`
	Magnitude   float64     `json:"magnitude"`
	Strength    float64     `json:"strength"`
	Peaks       []int       `json:"peaks"`
	Troughs     []int       `json:"troughs"`
	Indices     []float64   `json:"indices"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// Decomposition splits an observed series into trend, seasonal and residual
// components. The three slices are aligned with the input series and
// reconstruct it exactly: observed = trend + seasonal + residual per bucket.
type Decomposition struct {
	Trend    []float64 `json:"trend"`
	Seasonal []float64 `json:"seasonal"`
	Residual []float64 `json:"residual"`
}

// ForecastPoint is a single predicted bucket with its confidence interval.
// LowerBound <= Predicted <= UpperBound always holds.
type ForecastPoint struct {
	Start      time.Time `json:"start"`
	Predicted  float64   `json:"predicted"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
}

// ForecastResult contains the output of a forecasting run for one product.
type ForecastResult struct {
	ProductID   string           `json:"product_id"`
	Model       string           `json:"model"`
	Horizon     int              `json:"horizon"`
	Points      []ForecastPoint  `json:"points"`
	Pattern     *SeasonalPattern `json:"pattern,omitempty"`
	Confidence  float64          `json:"confidence"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// TotalPredicted returns the sum of predicted quantities over the horizon.
// It is the ranking key when comparing forecasts across products.
func (f *ForecastResult) TotalPredicted() float64 {
	total := 0.0
	for _, p := range f.Points {
		total += p.Predicted
	}
	return total
}

// SeasonLabel annotates which part of the seasonal cycle a price suggestion
// applies to.
type SeasonLabel string

const (
	SeasonAll     SeasonLabel = "all"
	SeasonPeak    SeasonLabel = "peak"
	SeasonOffPeak SeasonLabel = "off_peak"
)

// PriceSuggestion is one suggested price with its projected impact, scoped to
// a part of the seasonal cycle when a pattern is available.
type PriceSuggestion struct {
	Season         SeasonLabel     `json:"season"`
	SuggestedPrice decimal.Decimal `json:"suggested_price"`
	ChangePercent  float64         `json:"change_percent"`
	RevenueImpact  float64         `json:"revenue_impact"`
}

// PricingAnalysis contains the elasticity estimate and price suggestions for
// one product. It is derived, never mutated after creation.
type PricingAnalysis struct {
	ProductID       string            `json:"product_id"`
	CurrentPrice    decimal.Decimal   `json:"current_price"`
	SuggestedPrice  decimal.Decimal   `json:"suggested_price"`
	ChangePercent   float64           `json:"change_percent"`
	RevenueImpact   float64           `json:"revenue_impact"`
	Elasticity      float64           `json:"elasticity"`
	Confidence      float64           `json:"confidence"`
	Seasonal        []PriceSuggestion `json:"seasonal,omitempty"`
	OutliersRemoved int               `json:"outliers_removed"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

// TrendDirection classifies directional momentum of sales.
type TrendDirection string

const (
	TrendStrongGrowth   TrendDirection = "strong_growth"
	TrendModerateGrowth TrendDirection = "moderate_growth"
	TrendStable         TrendDirection = "stable"
	TrendDeclining      TrendDirection = "declining"
	TrendUndefined      TrendDirection = "undefined"
)

// RegionTrend is the growth rate of one region relative to the cross-region
// average for the same product.
type RegionTrend struct {
	Region          string  `json:"region"`
	GrowthRate      float64 `json:"growth_rate"`
	GrowthUndefined bool    `json:"growth_undefined"`
	VsAverage       float64 `json:"vs_average"`
}

// TrendAnalysis contains growth, acceleration and classification for one
// product over a comparison timeframe.
type TrendAnalysis struct {
	ProductID          string         `json:"product_id"`
	GrowthRate         float64        `json:"growth_rate"`
	GrowthUndefined    bool           `json:"growth_undefined"`
	Acceleration       float64        `json:"acceleration"`
	Direction          TrendDirection `json:"direction"`
	ComparisonPeriod   int            `json:"comparison_period"`
	SeasonallyAdjusted bool           `json:"seasonally_adjusted"`
	Regions            []RegionTrend  `json:"regions,omitempty"`
	GeneratedAt        time.Time      `json:"generated_at"`
}

// TrendRanking is the cross-product ranking by growth rate.
type TrendRanking struct {
	Top    []TrendAnalysis `json:"top"`
	Bottom []TrendAnalysis `json:"bottom"`
}

// AnalysisKind enumerates the closed set of engine operations.
type AnalysisKind string

const (
	AnalysisForecast AnalysisKind = "forecast"
	AnalysisPricing  AnalysisKind = "pricing"
	AnalysisTrend    AnalysisKind = "trend"
)

// AnalysisRequest is the engine's boundary request descriptor. Only the
// parameters valid for the requested kind are set; the engine matches on Kind
// exhaustively.
type AnalysisRequest struct {
	Kind        AnalysisKind `json:"kind"`
	OwnerID     string       `json:"owner_id"`
	ProductID   string       `json:"product_id"`
	Region      string       `json:"region,omitempty"`
	Granularity Granularity  `json:"granularity"`
	Range       TimeRange    `json:"range"`

	// Horizon is the number of future buckets to predict. Forecast only.
	Horizon int `json:"horizon,omitempty"`
	// ComparisonPeriod is the sub-period length in buckets. Trend only.
	ComparisonPeriod int `json:"comparison_period,omitempty"`
}
