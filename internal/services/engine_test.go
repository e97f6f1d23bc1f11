package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailpulse/retailpulse-go/internal/models"
	"github.com/retailpulse/retailpulse-go/internal/utils"
)

type fakeRepository struct {
	mu      sync.Mutex
	records map[string][]models.SalesRecord
	err     error
	calls   int
}

func (r *fakeRepository) RecordsInRange(_ context.Context, _, productID, _ string, _ models.TimeRange) ([]models.SalesRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.records[productID], nil
}

type fakeCache struct {
	mu        sync.Mutex
	pattern   *models.SeasonalPattern
	getErr    error
	getCalls  int
	setCalls  int
	lastOwner string
}

func (c *fakeCache) GetPattern(_ context.Context, ownerID, _ string, _ models.Granularity) (*models.SeasonalPattern, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getCalls++
	c.lastOwner = ownerID
	return c.pattern, c.getErr
}

func (c *fakeCache) SetPattern(_ context.Context, _ string, _ models.Granularity, pattern *models.SeasonalPattern) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	c.pattern = pattern
	return nil
}

// dailyRecords expands quantities into one record per day for the product.
func dailyRecords(productID string, quantities []float64, price float64) []models.SalesRecord {
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	var records []models.SalesRecord
	for i, q := range quantities {
		if q == 0 {
			continue
		}
		records = append(records, makeRecord(productID, "us-east", base.AddDate(0, 0, i), q, price))
	}
	return records
}

func engineRequest(kind models.AnalysisKind, productID string, days int) models.AnalysisRequest {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	return models.AnalysisRequest{
		Kind:        kind,
		OwnerID:     "owner-1",
		ProductID:   productID,
		Granularity: models.GranularityDay,
		Range: models.TimeRange{
			Start: base,
			End:   base.AddDate(0, 0, days-1).Add(23 * time.Hour),
		},
		Horizon: 7,
	}
}

func newTestEngine(repo *fakeRepository, cache PatternCache) *Engine {
	cfg := testAnalyticsConfig()
	cfg.MaxWorkers = 2
	return NewEngine(cfg, repo, cache, nil, testLogger())
}

func TestAnalyzeDispatchesOnKind(t *testing.T) {
	repo := &fakeRepository{records: map[string][]models.SalesRecord{
		"sku-1": dailyRecords("sku-1", sineQuantities(70, 100, 20, 7), 10),
	}}
	engine := newTestEngine(repo, nil)

	req := engineRequest(models.AnalysisForecast, "sku-1", 70)
	result, err := engine.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result.Forecast)
	assert.Nil(t, result.Pricing)
	assert.Nil(t, result.Trend)

	req.Kind = models.AnalysisTrend
	req.ComparisonPeriod = 35
	result, err = engine.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result.Trend)

	req.Kind = models.AnalysisKind("unknown")
	_, err = engine.Analyze(context.Background(), req)
	var ve *utils.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestEngineForecastUsesDetectedPattern(t *testing.T) {
	repo := &fakeRepository{records: map[string][]models.SalesRecord{
		"sku-1": dailyRecords("sku-1", sineQuantities(70, 100, 20, 7), 10),
	}}
	cache := &fakeCache{}
	engine := newTestEngine(repo, cache)

	result, err := engine.Forecast(context.Background(), engineRequest(models.AnalysisForecast, "sku-1", 70))
	require.NoError(t, err)

	assert.Equal(t, "holt-winters", result.Model)
	require.NotNil(t, result.Pattern)
	assert.Equal(t, models.PeriodWeekly, result.Pattern.Period)

	// The detected pattern lands in the cache for the next request.
	assert.Equal(t, 1, cache.getCalls)
	assert.Equal(t, 1, cache.setCalls)
}

func TestEngineForecastCacheHitSkipsDetection(t *testing.T) {
	repo := &fakeRepository{records: map[string][]models.SalesRecord{
		"sku-1": dailyRecords("sku-1", sineQuantities(70, 100, 20, 7), 10),
	}}
	detector := NewSeasonalityDetector(testAnalyticsConfig())
	series := syntheticSeries(sineQuantities(70, 100, 20, 7))
	pattern, _, err := detector.Detect(series)
	require.NoError(t, err)
	require.NotNil(t, pattern)

	cache := &fakeCache{pattern: pattern}
	engine := newTestEngine(repo, cache)

	result, err := engine.Forecast(context.Background(), engineRequest(models.AnalysisForecast, "sku-1", 70))
	require.NoError(t, err)

	assert.Equal(t, "holt-winters", result.Model)
	assert.Equal(t, 1, cache.getCalls)
	assert.Zero(t, cache.setCalls)
	assert.Equal(t, "owner-1", cache.lastOwner)
}

func TestEngineForecastCacheFailureDegrades(t *testing.T) {
	repo := &fakeRepository{records: map[string][]models.SalesRecord{
		"sku-1": dailyRecords("sku-1", sineQuantities(70, 100, 20, 7), 10),
	}}
	cache := &fakeCache{getErr: errors.New("redis down")}
	engine := newTestEngine(repo, cache)

	result, err := engine.Forecast(context.Background(), engineRequest(models.AnalysisForecast, "sku-1", 70))
	require.NoError(t, err)
	assert.Equal(t, "holt-winters", result.Model)
}

func TestEngineForecastInsufficientData(t *testing.T) {
	repo := &fakeRepository{records: map[string][]models.SalesRecord{
		"sku-1": dailyRecords("sku-1", sineQuantities(10, 100, 10, 7), 10),
	}}
	engine := newTestEngine(repo, nil)

	_, err := engine.Forecast(context.Background(), engineRequest(models.AnalysisForecast, "sku-1", 10))
	var ide *utils.InsufficientDataError
	assert.True(t, errors.As(err, &ide))
}

func TestEngineForecastValidatesScope(t *testing.T) {
	engine := newTestEngine(&fakeRepository{}, nil)

	req := engineRequest(models.AnalysisForecast, "sku-1", 70)
	req.OwnerID = ""
	_, err := engine.Forecast(context.Background(), req)
	var ve *utils.ValidationError
	assert.True(t, errors.As(err, &ve))

	req = engineRequest(models.AnalysisForecast, "", 70)
	_, err = engine.Forecast(context.Background(), req)
	assert.True(t, errors.As(err, &ve))
}

func TestEnginePricing(t *testing.T) {
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	prices := []float64{18, 16, 14, 12, 10}
	quantities := []float64{40, 55, 70, 85, 100}
	var records []models.SalesRecord
	for i := range prices {
		records = append(records, makeRecord("sku-1", "us-east", base.AddDate(0, 0, i), quantities[i], prices[i]))
	}

	repo := &fakeRepository{records: map[string][]models.SalesRecord{"sku-1": records}}
	engine := newTestEngine(repo, nil)

	analysis, err := engine.Pricing(context.Background(), engineRequest(models.AnalysisPricing, "sku-1", 5))
	require.NoError(t, err)

	assert.Less(t, analysis.Elasticity, -1.0)
	assert.InDelta(t, 8.0, analysis.SuggestedPrice.InexactFloat64(), 1e-9)
}

func TestEngineTrendWithRegionalBreakdown(t *testing.T) {
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	var records []models.SalesRecord
	for i := 0; i < 20; i++ {
		records = append(records, makeRecord("sku-1", "us-east", base.AddDate(0, 0, i), 100+float64(i)*5, 10))
		records = append(records, makeRecord("sku-1", "eu-west", base.AddDate(0, 0, i), 100-float64(i)*2, 10))
	}

	repo := &fakeRepository{records: map[string][]models.SalesRecord{"sku-1": records}}
	engine := newTestEngine(repo, nil)

	req := engineRequest(models.AnalysisTrend, "sku-1", 20)
	req.Kind = models.AnalysisTrend
	req.ComparisonPeriod = 10

	analysis, err := engine.Trend(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 10, analysis.ComparisonPeriod)
	require.Len(t, analysis.Regions, 2)
	assert.Equal(t, "eu-west", analysis.Regions[0].Region)
	assert.Equal(t, "us-east", analysis.Regions[1].Region)
	assert.Greater(t, analysis.Regions[1].GrowthRate, analysis.Regions[0].GrowthRate)
}

func TestEngineTrendPinnedRegionSkipsBreakdown(t *testing.T) {
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	var records []models.SalesRecord
	for i := 0; i < 20; i++ {
		records = append(records, makeRecord("sku-1", "us-east", base.AddDate(0, 0, i), 100+float64(i)*5, 10))
		records = append(records, makeRecord("sku-1", "eu-west", base.AddDate(0, 0, i), 90, 10))
	}

	repo := &fakeRepository{records: map[string][]models.SalesRecord{"sku-1": records}}
	engine := newTestEngine(repo, nil)

	req := engineRequest(models.AnalysisTrend, "sku-1", 20)
	req.Region = "us-east"
	req.ComparisonPeriod = 10

	analysis, err := engine.Trend(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, analysis.Regions)
}

func TestBatchForecastRanksAndSkipsThinProducts(t *testing.T) {
	repo := &fakeRepository{records: map[string][]models.SalesRecord{
		"sku-small": dailyRecords("sku-small", sineQuantities(70, 50, 5, 7), 10),
		"sku-large": dailyRecords("sku-large", sineQuantities(70, 500, 50, 7), 10),
		"sku-thin":  dailyRecords("sku-thin", sineQuantities(5, 100, 10, 7), 10),
	}}
	engine := newTestEngine(repo, nil)

	req := engineRequest(models.AnalysisForecast, "", 70)
	results, err := engine.BatchForecast(context.Background(), req, []string{"sku-small", "sku-large", "sku-thin"})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "sku-large", results[0].ProductID)
	assert.Equal(t, "sku-small", results[1].ProductID)
}

func TestBatchTrendRanking(t *testing.T) {
	growing := make([]float64, 20)
	shrinking := make([]float64, 20)
	for i := 0; i < 20; i++ {
		growing[i] = 100 + float64(i)*10
		shrinking[i] = 300 - float64(i)*10
	}

	repo := &fakeRepository{records: map[string][]models.SalesRecord{
		"sku-up":   dailyRecords("sku-up", growing, 10),
		"sku-down": dailyRecords("sku-down", shrinking, 10),
	}}
	engine := newTestEngine(repo, nil)

	req := engineRequest(models.AnalysisTrend, "", 20)
	req.ComparisonPeriod = 10

	ranking, err := engine.BatchTrend(context.Background(), req, []string{"sku-up", "sku-down"})
	require.NoError(t, err)

	require.NotEmpty(t, ranking.Top)
	assert.Equal(t, "sku-up", ranking.Top[0].ProductID)
	assert.Equal(t, "sku-down", ranking.Bottom[len(ranking.Bottom)-1].ProductID)
}

func TestBatchForecastCancelledContext(t *testing.T) {
	repo := &fakeRepository{records: map[string][]models.SalesRecord{}}
	engine := newTestEngine(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ids := make([]string, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("sku-%d", i)
	}
	_, err := engine.BatchForecast(ctx, engineRequest(models.AnalysisForecast, "", 70), ids)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineRepositoryErrorPropagates(t *testing.T) {
	repo := &fakeRepository{err: errors.New("connection refused")}
	engine := newTestEngine(repo, nil)

	_, err := engine.Forecast(context.Background(), engineRequest(models.AnalysisForecast, "sku-1", 70))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
