package services

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailpulse/retailpulse-go/internal/config"
	"github.com/retailpulse/retailpulse-go/internal/models"
	"github.com/retailpulse/retailpulse-go/internal/utils"
)

// PricingAnalyzer estimates price elasticity from price/quantity history and
// derives a revenue-maximizing price constrained to a local neighborhood of
// the current price.
type PricingAnalyzer struct {
	config config.AnalyticsConfig
}

// NewPricingAnalyzer creates an analyzer with the given engine settings.
func NewPricingAnalyzer(cfg config.AnalyticsConfig) *PricingAnalyzer {
	return &PricingAnalyzer{config: cfg}
}

// PriceObservations extracts (price, quantity, timestamp) observations for
// one product from raw records, optionally restricted to a region.
func PriceObservations(records []models.SalesRecord, productID string, region string) []models.PriceObservation {
	var out []models.PriceObservation
	for _, rec := range records {
		if rec.ProductID != productID {
			continue
		}
		if region != "" && rec.Location != region {
			continue
		}
		out = append(out, models.PriceObservation{
			Price:     rec.UnitPrice.InexactFloat64(),
			Quantity:  rec.Quantity,
			Timestamp: rec.Timestamp,
		})
	}
	return out
}

// Analyze removes price outliers, fits elasticity and returns a pricing
// recommendation. Outlier handling is internal: feeding data with outliers
// already stripped produces the same result. The pattern is optional; when
// present, peak and off-peak sub-periods get their own suggestions.
func (a *PricingAnalyzer) Analyze(observations []models.PriceObservation, productID string, pattern *models.SeasonalPattern) (*models.PricingAnalysis, error) {
	if len(observations) == 0 {
		return nil, utils.NewValidationError("at least one price observation is required")
	}

	cleaned, removed := removePriceOutliers(observations)

	elasticity, rSquared, err := estimateElasticity(cleaned, a.config.MinPricePoints)
	if err != nil {
		return nil, err
	}

	currentPrice := a.currentPrice(cleaned)
	suggested, changePercent := a.suggestPrice(currentPrice, elasticity)

	analysis := &models.PricingAnalysis{
		ProductID:       productID,
		CurrentPrice:    currentPrice,
		SuggestedPrice:  suggested,
		ChangePercent:   changePercent,
		RevenueImpact:   revenueImpact(changePercent, elasticity),
		Elasticity:      elasticity,
		Confidence:      rSquared,
		OutliersRemoved: removed,
		GeneratedAt:     time.Now(),
	}

	if pattern != nil {
		analysis.Seasonal = a.seasonalSuggestions(cleaned, currentPrice, pattern)
	}
	return analysis, nil
}

// removePriceOutliers discards observations whose price falls outside the
// 1.5*IQR fence around the interquartile range.
func removePriceOutliers(observations []models.PriceObservation) ([]models.PriceObservation, int) {
	prices := make([]float64, len(observations))
	for i, obs := range observations {
		prices[i] = obs.Price
	}
	q1, q3 := quartiles(prices)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	cleaned := make([]models.PriceObservation, 0, len(observations))
	for _, obs := range observations {
		if obs.Price < lower || obs.Price > upper {
			continue
		}
		cleaned = append(cleaned, obs)
	}
	return cleaned, len(observations) - len(cleaned)
}

// estimateElasticity fits log(quantity) against log(price) by least squares.
// Observations with non-positive price or quantity carry no information in
// log space and are skipped.
func estimateElasticity(observations []models.PriceObservation, minPoints int) (elasticity, rSquared float64, err error) {
	var logPrices, logQuantities []float64
	distinct := make(map[float64]struct{})
	for _, obs := range observations {
		if obs.Price <= 0 || obs.Quantity <= 0 {
			continue
		}
		distinct[obs.Price] = struct{}{}
		logPrices = append(logPrices, math.Log(obs.Price))
		logQuantities = append(logQuantities, math.Log(obs.Quantity))
	}
	if len(distinct) < minPoints {
		return 0, 0, utils.NewInsufficientPriceVarianceError(minPoints, len(distinct))
	}

	slope, _, r2, ok := linearFit(logPrices, logQuantities)
	if !ok {
		return 0, 0, utils.NewInsufficientPriceVarianceError(minPoints, len(distinct))
	}
	return slope, r2, nil
}

// currentPrice returns the most recent observed price, or the quantity
// weighted average over the most recent window when one is configured.
func (a *PricingAnalyzer) currentPrice(observations []models.PriceObservation) decimal.Decimal {
	sorted := make([]models.PriceObservation, len(observations))
	copy(sorted, observations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	window := a.config.CurrentPriceWindow
	if window <= 1 {
		return decimal.NewFromFloat(sorted[0].Price)
	}
	if window > len(sorted) {
		window = len(sorted)
	}

	var weightedSum, totalQuantity float64
	for _, obs := range sorted[:window] {
		weightedSum += obs.Price * obs.Quantity
		totalQuantity += obs.Quantity
	}
	if totalQuantity == 0 {
		return decimal.NewFromFloat(sorted[0].Price)
	}
	return decimal.NewFromFloat(weightedSum / totalQuantity)
}

// suggestPrice returns the revenue-maximizing price under the constant
// elasticity model. Revenue is proportional to price^(1+elasticity), which is
// monotonic in price, so the optimum always sits on the edge of the trusted
// neighborhood around the current price.
func (a *PricingAnalyzer) suggestPrice(current decimal.Decimal, elasticity float64) (decimal.Decimal, float64) {
	clamp := a.config.PriceClampPercent
	switch {
	case elasticity < -1:
		factor := decimal.NewFromFloat(1 - clamp)
		return current.Mul(factor), -clamp
	case elasticity > -1:
		factor := decimal.NewFromFloat(1 + clamp)
		return current.Mul(factor), clamp
	default:
		return current, 0
	}
}

// revenueImpact projects the relative revenue change of moving the price by
// changePercent under the fitted elasticity.
func revenueImpact(changePercent, elasticity float64) float64 {
	if changePercent == 0 {
		return 0
	}
	return math.Pow(1+changePercent, 1+elasticity) - 1
}

// seasonalSuggestions refits the elasticity model on the peak and off-peak
// observation subsets and reports a suggestion for each subset that still has
// enough price variance on its own.
func (a *PricingAnalyzer) seasonalSuggestions(observations []models.PriceObservation, currentPrice decimal.Decimal, pattern *models.SeasonalPattern) []models.PriceSuggestion {
	peaks := positionSet(pattern.Peaks)
	troughs := positionSet(pattern.Troughs)

	var peak, offPeak []models.PriceObservation
	for _, obs := range observations {
		pos := cyclePosition(obs.Timestamp, pattern.PeriodLen)
		if _, ok := peaks[pos]; ok {
			peak = append(peak, obs)
		} else if _, ok := troughs[pos]; ok {
			offPeak = append(offPeak, obs)
		}
	}

	var out []models.PriceSuggestion
	for _, subset := range []struct {
		season models.SeasonLabel
		obs    []models.PriceObservation
	}{
		{models.SeasonPeak, peak},
		{models.SeasonOffPeak, offPeak},
	} {
		elasticity, _, err := estimateElasticity(subset.obs, a.config.MinPricePoints)
		if err != nil {
			continue
		}
		suggested, changePercent := a.suggestPrice(currentPrice, elasticity)
		out = append(out, models.PriceSuggestion{
			Season:         subset.season,
			SuggestedPrice: suggested,
			ChangePercent:  changePercent,
			RevenueImpact:  revenueImpact(changePercent, elasticity),
		})
	}
	return out
}

func positionSet(positions []int) map[int]struct{} {
	set := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		set[p] = struct{}{}
	}
	return set
}

// cyclePosition maps a timestamp onto a zero-based position within a seasonal
// cycle of the given length. Weekly cycles are Monday-based to match bucket
// alignment; calendar-sized cycles use day or week of the calendar unit.
func cyclePosition(t time.Time, periodLen int) int {
	t = t.UTC()
	var pos int
	switch periodLen {
	case 7:
		pos = (int(t.Weekday()) + 6) % 7
	case 4:
		pos = (t.Day() - 1) / 7
	case 12:
		pos = int(t.Month()) - 1
	case 52:
		_, week := t.ISOWeek()
		pos = week - 1
	default:
		pos = t.YearDay() - 1
	}
	if pos >= periodLen {
		pos = periodLen - 1
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}
