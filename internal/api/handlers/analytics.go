package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/retailpulse/retailpulse-go/internal/logging"
	"github.com/retailpulse/retailpulse-go/internal/models"
	"github.com/retailpulse/retailpulse-go/internal/services"
	"github.com/retailpulse/retailpulse-go/internal/utils"
)

// AnalyticsEngine is the engine surface the handlers consume.
type AnalyticsEngine interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*services.AnalysisResult, error)
	BatchForecast(ctx context.Context, req models.AnalysisRequest, productIDs []string) ([]models.ForecastResult, error)
	BatchTrend(ctx context.Context, req models.AnalysisRequest, productIDs []string) (models.TrendRanking, error)
}

// ProductLister enumerates an owner's products for ranking endpoints.
type ProductLister interface {
	ProductsForOwner(ctx context.Context, ownerID string, rng models.TimeRange) ([]string, error)
}

// AnalyticsHandler exposes the engine operations over HTTP.
type AnalyticsHandler struct {
	engine   AnalyticsEngine
	products ProductLister
	logger   logging.Logger
}

// NewAnalyticsHandler creates the handler.
func NewAnalyticsHandler(engine AnalyticsEngine, products ProductLister, logger logging.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine, products: products, logger: logger}
}

// GetForecast handles GET /api/v1/analytics/forecast.
func (h *AnalyticsHandler) GetForecast(c *gin.Context) {
	req, err := parseAnalysisRequest(c, models.AnalysisForecast)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.engine.Analyze(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result.Forecast)
}

// GetPricing handles GET /api/v1/analytics/pricing.
func (h *AnalyticsHandler) GetPricing(c *gin.Context) {
	req, err := parseAnalysisRequest(c, models.AnalysisPricing)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.engine.Analyze(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result.Pricing)
}

// GetTrend handles GET /api/v1/analytics/trend.
func (h *AnalyticsHandler) GetTrend(c *gin.Context) {
	req, err := parseAnalysisRequest(c, models.AnalysisTrend)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.engine.Analyze(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result.Trend)
}

// GetForecastRanking handles GET /api/v1/analytics/rankings/forecast. It fans
// a forecast out over every product the owner sold in the range and returns
// the results ranked by total predicted quantity.
func (h *AnalyticsHandler) GetForecastRanking(c *gin.Context) {
	req, err := parseAnalysisRequest(c, models.AnalysisForecast)
	if err != nil {
		respondError(c, err)
		return
	}

	productIDs, err := h.products.ProductsForOwner(c.Request.Context(), req.OwnerID, req.Range)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.engine.BatchForecast(c.Request.Context(), req, productIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forecasts": results})
}

// GetTrendRanking handles GET /api/v1/analytics/rankings/trend.
func (h *AnalyticsHandler) GetTrendRanking(c *gin.Context) {
	req, err := parseAnalysisRequest(c, models.AnalysisTrend)
	if err != nil {
		respondError(c, err)
		return
	}

	productIDs, err := h.products.ProductsForOwner(c.Request.Context(), req.OwnerID, req.Range)
	if err != nil {
		respondError(c, err)
		return
	}

	ranking, err := h.engine.BatchTrend(c.Request.Context(), req, productIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ranking)
}

// parseAnalysisRequest maps query parameters onto the engine's request
// descriptor. Shared validation (granularity, range sanity) lives in the
// engine; this only converts types.
func parseAnalysisRequest(c *gin.Context, kind models.AnalysisKind) (models.AnalysisRequest, error) {
	req := models.AnalysisRequest{
		Kind:      kind,
		OwnerID:   c.Query("owner_id"),
		ProductID: c.Query("product_id"),
		Region:    c.Query("region"),
	}

	if req.OwnerID == "" {
		return req, utils.NewValidationError("owner_id query parameter is required")
	}

	granularity := c.DefaultQuery("granularity", string(models.GranularityDay))
	req.Granularity = models.Granularity(granularity)
	if !req.Granularity.Valid() {
		return req, utils.NewValidationErrorf("unsupported granularity %q", granularity)
	}

	var err error
	if req.Range.Start, err = parseTimeParam(c, "start"); err != nil {
		return req, err
	}
	if req.Range.End, err = parseTimeParam(c, "end"); err != nil {
		return req, err
	}

	if kind == models.AnalysisForecast {
		if req.Horizon, err = parseIntParam(c, "horizon", 30); err != nil {
			return req, err
		}
	}
	if kind == models.AnalysisTrend {
		if req.ComparisonPeriod, err = parseIntParam(c, "comparison_period", 0); err != nil {
			return req, err
		}
	}
	return req, nil
}

func parseTimeParam(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, utils.NewInvalidTimeframeErrorf("%s query parameter is required", name)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, utils.NewInvalidTimeframeErrorf("%s must be RFC3339, got %q", name, raw)
	}
	return t, nil
}

func parseIntParam(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, utils.NewValidationErrorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// respondError maps the engine's error taxonomy onto HTTP status codes.
// Input-shape errors are 400, expected data-quality outcomes are 422 so
// clients can tell them apart from crashes.
func respondError(c *gin.Context, err error) {
	var ve *utils.ValidationError
	var ite *utils.InvalidTimeframeError
	var ide *utils.InsufficientDataError
	var ipe *utils.InsufficientPriceVarianceError

	switch {
	case errors.As(err, &ve), errors.As(err, &ite):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &ide):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    err.Error(),
			"required": ide.Required,
			"actual":   ide.Actual,
		})
	case errors.As(err, &ipe):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":           err.Error(),
			"required_points": ipe.RequiredPoints,
			"distinct_points": ipe.DistinctPoints,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
