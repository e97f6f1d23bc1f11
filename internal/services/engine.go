package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/retailpulse/retailpulse-go/internal/config"
	"github.com/retailpulse/retailpulse-go/internal/logging"
	"github.com/retailpulse/retailpulse-go/internal/models"
	"github.com/retailpulse/retailpulse-go/internal/telemetry"
	"github.com/retailpulse/retailpulse-go/internal/utils"
)

// SalesRepository loads the records feeding an analysis. The engine treats
// retrieval as a synchronous input-producing step; all records for the
// requested scope are present before series construction begins.
type SalesRepository interface {
	RecordsInRange(ctx context.Context, ownerID, productID, region string, rng models.TimeRange) ([]models.SalesRecord, error)
}

// PatternCache stores detected seasonal patterns between requests. A miss
// returns (nil, nil); cache failures are soft and never fail an analysis.
type PatternCache interface {
	GetPattern(ctx context.Context, ownerID, productID string, granularity models.Granularity) (*models.SeasonalPattern, error)
	SetPattern(ctx context.Context, ownerID string, granularity models.Granularity, pattern *models.SeasonalPattern) error
}

// AnalysisResult is the tagged union returned by Analyze. Exactly one field
// matching the request kind is set.
type AnalysisResult struct {
	Forecast *models.ForecastResult  `json:"forecast,omitempty"`
	Pricing  *models.PricingAnalysis `json:"pricing,omitempty"`
	Trend    *models.TrendAnalysis   `json:"trend,omitempty"`
}

// Engine wires the analytical components behind a single entry point. All
// components are pure; the engine adds retrieval, caching, telemetry and
// parallelism on top.
type Engine struct {
	config     config.AnalyticsConfig
	builder    *TimeSeriesBuilder
	detector   *SeasonalityDetector
	forecaster *Forecaster
	pricing    *PricingAnalyzer
	trends     *TrendAnalyzer
	optimizer  *ResourceOptimizer
	repository SalesRepository
	cache      PatternCache
	logger     logging.Logger
}

// NewEngine creates an engine. The cache is optional; passing nil disables
// pattern caching without changing results.
func NewEngine(cfg config.AnalyticsConfig, repository SalesRepository, cache PatternCache, optimizer *ResourceOptimizer, logger logging.Logger) *Engine {
	return &Engine{
		config:     cfg,
		builder:    NewTimeSeriesBuilder(),
		detector:   NewSeasonalityDetector(cfg),
		forecaster: NewForecaster(cfg),
		pricing:    NewPricingAnalyzer(cfg),
		trends:     NewTrendAnalyzer(cfg),
		optimizer:  optimizer,
		repository: repository,
		cache:      cache,
		logger:     logger,
	}
}

// Analyze dispatches a request to the matching operation. The kind set is
// closed; anything else is a validation error.
func (e *Engine) Analyze(ctx context.Context, req models.AnalysisRequest) (*AnalysisResult, error) {
	switch req.Kind {
	case models.AnalysisForecast:
		forecast, err := e.Forecast(ctx, req)
		if err != nil {
			return nil, err
		}
		return &AnalysisResult{Forecast: forecast}, nil
	case models.AnalysisPricing:
		pricing, err := e.Pricing(ctx, req)
		if err != nil {
			return nil, err
		}
		return &AnalysisResult{Pricing: pricing}, nil
	case models.AnalysisTrend:
		trend, err := e.Trend(ctx, req)
		if err != nil {
			return nil, err
		}
		return &AnalysisResult{Trend: trend}, nil
	default:
		return nil, utils.NewValidationErrorf("unknown analysis kind %q", req.Kind)
	}
}

// Forecast builds the series for the requested product, detects seasonality
// and predicts the requested horizon. Detection failures degrade to the
// non-seasonal model instead of failing the request.
func (e *Engine) Forecast(ctx context.Context, req models.AnalysisRequest) (*models.ForecastResult, error) {
	ctx, span := telemetry.StartAnalysis(ctx, string(models.AnalysisForecast), req.OwnerID, req.ProductID)
	started := time.Now()

	result, err := e.forecast(ctx, req)
	telemetry.EndAnalysis(span, err)
	if err != nil {
		return nil, err
	}

	e.logger.LogAnalysisEvent(string(models.AnalysisForecast), req.ProductID, time.Since(started).Milliseconds(), map[string]interface{}{
		"model":   result.Model,
		"horizon": result.Horizon,
	})
	return result, nil
}

func (e *Engine) forecast(ctx context.Context, req models.AnalysisRequest) (*models.ForecastResult, error) {
	series, err := e.buildSeries(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := e.builder.RequireObservations(series, e.config.MinForecastBuckets); err != nil {
		return nil, err
	}

	pattern, _ := e.detectPattern(ctx, req, series)
	return e.forecaster.Forecast(series, req.Horizon, pattern)
}

// Pricing estimates elasticity over the requested window and recommends a
// price. A detected seasonal pattern adds peak and off-peak suggestions.
func (e *Engine) Pricing(ctx context.Context, req models.AnalysisRequest) (*models.PricingAnalysis, error) {
	ctx, span := telemetry.StartAnalysis(ctx, string(models.AnalysisPricing), req.OwnerID, req.ProductID)
	started := time.Now()

	analysis, err := e.pricingAnalysis(ctx, req)
	telemetry.EndAnalysis(span, err)
	if err != nil {
		return nil, err
	}

	e.logger.LogAnalysisEvent(string(models.AnalysisPricing), req.ProductID, time.Since(started).Milliseconds(), map[string]interface{}{
		"elasticity":       analysis.Elasticity,
		"outliers_removed": analysis.OutliersRemoved,
	})
	return analysis, nil
}

func (e *Engine) pricingAnalysis(ctx context.Context, req models.AnalysisRequest) (*models.PricingAnalysis, error) {
	records, err := e.fetchRecords(ctx, req)
	if err != nil {
		return nil, err
	}

	var pattern *models.SeasonalPattern
	if series, buildErr := e.buildSeriesFromRecords(records, req); buildErr == nil {
		pattern, _ = e.detectPattern(ctx, req, series)
	}

	observations := PriceObservations(records, req.ProductID, req.Region)
	return e.pricing.Analyze(observations, req.ProductID, pattern)
}

// Trend computes growth and classification, seasonally adjusted when a
// pattern exists, with a per-region breakdown when the data spans several
// regions and the request did not pin one.
func (e *Engine) Trend(ctx context.Context, req models.AnalysisRequest) (*models.TrendAnalysis, error) {
	ctx, span := telemetry.StartAnalysis(ctx, string(models.AnalysisTrend), req.OwnerID, req.ProductID)
	started := time.Now()

	analysis, err := e.trendAnalysis(ctx, req)
	telemetry.EndAnalysis(span, err)
	if err != nil {
		return nil, err
	}

	e.logger.LogAnalysisEvent(string(models.AnalysisTrend), req.ProductID, time.Since(started).Milliseconds(), map[string]interface{}{
		"direction":   analysis.Direction,
		"growth_rate": analysis.GrowthRate,
	})
	return analysis, nil
}

func (e *Engine) trendAnalysis(ctx context.Context, req models.AnalysisRequest) (*models.TrendAnalysis, error) {
	records, err := e.fetchRecords(ctx, req)
	if err != nil {
		return nil, err
	}
	series, err := e.buildSeriesFromRecords(records, req)
	if err != nil {
		return nil, err
	}

	comparisonPeriod := req.ComparisonPeriod
	if comparisonPeriod == 0 {
		comparisonPeriod = len(series.Buckets) / 2
	}

	var decomp *models.Decomposition
	if pattern, d := e.detectPattern(ctx, req, series); pattern != nil {
		decomp = d
	}

	analysis, err := e.trends.Analyze(series, comparisonPeriod, decomp)
	if err != nil {
		return nil, err
	}

	if req.Region == "" {
		if regions := distinctRegions(records, req.ProductID); len(regions) > 1 {
			regionTrends, regionErr := e.regionBreakdown(records, regions, req, comparisonPeriod)
			if regionErr != nil {
				e.logger.WithProduct(req.ProductID).WithError(regionErr).Warn("Regional breakdown skipped")
			} else {
				analysis.Regions = regionTrends
			}
		}
	}
	return analysis, nil
}

func (e *Engine) regionBreakdown(records []models.SalesRecord, regions []string, req models.AnalysisRequest, comparisonPeriod int) ([]models.RegionTrend, error) {
	regionSeries := make(map[string]*models.TimeSeries, len(regions))
	for _, region := range regions {
		series, err := e.builder.Build(records, req.ProductID, region, req.Granularity, req.Range)
		if err != nil {
			return nil, err
		}
		regionSeries[region] = series
	}
	return e.trends.AnalyzeRegions(regionSeries, comparisonPeriod)
}

// BatchForecast forecasts many products in parallel and returns the results
// ranked by total predicted quantity. Products without enough data are
// skipped and logged rather than failing the batch.
func (e *Engine) BatchForecast(ctx context.Context, req models.AnalysisRequest, productIDs []string) ([]models.ForecastResult, error) {
	results, err := runParallel(e, ctx, productIDs, func(ctx context.Context, productID string) (*models.ForecastResult, error) {
		scoped := req
		scoped.ProductID = productID
		return e.Forecast(ctx, scoped)
	})
	if err != nil {
		return nil, err
	}
	return e.forecaster.RankForecasts(results), nil
}

// BatchTrend analyzes many products in parallel and returns the growth
// ranking across them.
func (e *Engine) BatchTrend(ctx context.Context, req models.AnalysisRequest, productIDs []string) (models.TrendRanking, error) {
	results, err := runParallel(e, ctx, productIDs, func(ctx context.Context, productID string) (*models.TrendAnalysis, error) {
		scoped := req
		scoped.ProductID = productID
		return e.Trend(ctx, scoped)
	})
	if err != nil {
		return models.TrendRanking{}, err
	}

	analyses := make([]models.TrendAnalysis, len(results))
	for i, r := range results {
		analyses[i] = r
	}
	return e.trends.Rank(analyses), nil
}

// runParallel fans productIDs out over a bounded worker pool. Expected
// per-product data errors are skipped; context cancellation aborts the batch.
func runParallel[T any](e *Engine, ctx context.Context, productIDs []string, analyze func(context.Context, string) (*T, error)) ([]T, error) {
	workers := e.workerCount(len(productIDs))

	type indexed struct {
		index  int
		result *T
	}
	jobs := make(chan int)
	out := make(chan indexed, len(productIDs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result, err := analyze(ctx, productIDs[i])
				if err != nil {
					if isExpectedDataError(err) {
						e.logger.WithProduct(productIDs[i]).WithError(err).Debug("Product skipped in batch analysis")
						continue
					}
					e.logger.WithProduct(productIDs[i]).WithError(err).Warn("Batch analysis failed for product")
					continue
				}
				out <- indexed{index: i, result: result}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range productIDs {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(out)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collected := make([]indexed, 0, len(productIDs))
	for item := range out {
		collected = append(collected, item)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	results := make([]T, len(collected))
	for i, item := range collected {
		results[i] = *item.result
	}
	return results, nil
}

func (e *Engine) workerCount(jobs int) int {
	workers := e.config.MaxWorkers
	if workers <= 0 && e.optimizer != nil {
		workers = e.optimizer.Workers()
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > jobs {
		workers = jobs
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// isExpectedDataError reports whether err is an expected data-quality outcome
// rather than a failure.
func isExpectedDataError(err error) bool {
	var ide *utils.InsufficientDataError
	var ipe *utils.InsufficientPriceVarianceError
	return errors.As(err, &ide) || errors.As(err, &ipe)
}

func (e *Engine) fetchRecords(ctx context.Context, req models.AnalysisRequest) ([]models.SalesRecord, error) {
	if req.OwnerID == "" {
		return nil, utils.NewValidationError("owner id is required")
	}
	if req.ProductID == "" {
		return nil, utils.NewValidationError("product id is required")
	}
	records, err := e.repository.RecordsInRange(ctx, req.OwnerID, req.ProductID, req.Region, req.Range)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (e *Engine) buildSeries(ctx context.Context, req models.AnalysisRequest) (*models.TimeSeries, error) {
	records, err := e.fetchRecords(ctx, req)
	if err != nil {
		return nil, err
	}
	return e.buildSeriesFromRecords(records, req)
}

func (e *Engine) buildSeriesFromRecords(records []models.SalesRecord, req models.AnalysisRequest) (*models.TimeSeries, error) {
	return e.builder.Build(records, req.ProductID, req.Region, req.Granularity, req.Range)
}

// detectPattern returns the seasonal pattern for the series, preferring the
// cache. Detection and cache failures degrade to no pattern.
func (e *Engine) detectPattern(ctx context.Context, req models.AnalysisRequest, series *models.TimeSeries) (*models.SeasonalPattern, *models.Decomposition) {
	if e.cache != nil {
		cached, err := e.cache.GetPattern(ctx, req.OwnerID, req.ProductID, req.Granularity)
		if err != nil {
			e.logger.WithProduct(req.ProductID).WithError(err).Warn("Pattern cache read failed")
		} else if cached != nil && len(series.Buckets) >= 2*cached.PeriodLen {
			decomp, _ := decompose(series.Quantities(), cached.PeriodLen)
			return cached, decomp
		}
	}

	pattern, decomp, err := e.detector.Detect(series)
	if err != nil {
		e.logger.WithProduct(req.ProductID).WithError(err).Warn("Seasonality detection failed, continuing without pattern")
		return nil, nil
	}
	if pattern == nil {
		return nil, nil
	}

	if e.cache != nil {
		if err := e.cache.SetPattern(ctx, req.OwnerID, req.Granularity, pattern); err != nil {
			e.logger.WithProduct(req.ProductID).WithError(err).Warn("Pattern cache write failed")
		}
	}
	return pattern, decomp
}

func distinctRegions(records []models.SalesRecord, productID string) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		if rec.ProductID != productID || rec.Location == "" {
			continue
		}
		seen[rec.Location] = struct{}{}
	}
	regions := make([]string, 0, len(seen))
	for region := range seen {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}
