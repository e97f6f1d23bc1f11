package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/retailpulse/retailpulse-go/internal/logging"
	"github.com/retailpulse/retailpulse-go/internal/models"
	"github.com/retailpulse/retailpulse-go/internal/utils"
)

// RecordStore persists validated sales records.
type RecordStore interface {
	InsertRecords(ctx context.Context, records []models.SalesRecord) (int64, error)
}

// PatternInvalidator drops cached seasonal patterns after new data arrives.
type PatternInvalidator interface {
	Invalidate(ctx context.Context, ownerID, productID string, granularity models.Granularity) error
}

// RecordsHandler ingests sales records. Payloads carrying fields outside the
// SalesRecord schema are rejected wholesale; nothing unvalidated reaches the
// engine or the store.
type RecordsHandler struct {
	store       RecordStore
	invalidator PatternInvalidator
	logger      logging.Logger
	now         func() time.Time
}

// NewRecordsHandler creates the ingestion handler. The invalidator is
// optional.
func NewRecordsHandler(store RecordStore, invalidator PatternInvalidator, logger logging.Logger) *RecordsHandler {
	return &RecordsHandler{
		store:       store,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

type ingestRequest struct {
	Records []models.SalesRecord `json:"records"`
}

type ingestResponse struct {
	Accepted int   `json:"accepted"`
	Inserted int64 `json:"inserted"`
}

// CreateRecords handles POST /api/v1/records.
func (h *RecordsHandler) CreateRecords(c *gin.Context) {
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()

	var req ingestRequest
	if err := decoder.Decode(&req); err != nil {
		respondError(c, utils.NewValidationErrorf("malformed request body: %v", err))
		return
	}
	if len(req.Records) == 0 {
		respondError(c, utils.NewValidationError("at least one record is required"))
		return
	}

	now := h.now()
	for i := range req.Records {
		if err := req.Records[i].Validate(now); err != nil {
			respondError(c, utils.NewValidationErrorf("record %d: %v", i, err))
			return
		}
	}

	inserted, err := h.store.InsertRecords(c.Request.Context(), req.Records)
	if err != nil {
		h.logger.WithError(err).Error("Failed to insert sales records")
		respondError(c, err)
		return
	}

	h.invalidatePatterns(c.Request.Context(), req.Records)

	h.logger.WithFields(map[string]interface{}{
		"accepted": len(req.Records),
		"inserted": inserted,
	}).Info("Sales records ingested")

	c.JSON(http.StatusCreated, ingestResponse{
		Accepted: len(req.Records),
		Inserted: inserted,
	})
}

// invalidatePatterns drops cached patterns for every (owner, product) pair in
// the batch so the next analysis re-detects on fresh data. Failures are soft.
func (h *RecordsHandler) invalidatePatterns(ctx context.Context, records []models.SalesRecord) {
	if h.invalidator == nil {
		return
	}

	type scope struct {
		owner   string
		product string
	}
	seen := make(map[scope]struct{})
	for _, rec := range records {
		key := scope{owner: rec.OwnerID, product: rec.ProductID}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		for _, g := range []models.Granularity{models.GranularityDay, models.GranularityWeek, models.GranularityMonth} {
			if err := h.invalidator.Invalidate(ctx, key.owner, key.product, g); err != nil {
				h.logger.WithProduct(key.product).WithError(err).Warn("Pattern cache invalidation failed")
			}
		}
	}
}
