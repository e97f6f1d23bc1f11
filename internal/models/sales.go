package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailpulse/retailpulse-go/internal/utils"
	"github.com/shopspring/decimal"
)

// SalesRecord represents a single retail transaction. Records are immutable
// once ingested; the engine only ever reads them.
type SalesRecord struct {
	TransactionID uuid.UUID       `json:"transaction_id" db:"transaction_id"`
	OwnerID       string          `json:"owner_id" db:"owner_id"`
	ProductID     string          `json:"product_id" db:"product_id"`
	Quantity      float64         `json:"quantity" db:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price" db:"unit_price"`
	Timestamp     time.Time       `json:"timestamp" db:"timestamp"`
	Location      string          `json:"location" db:"location"`
	CreatedAt     time.Time       `json:"created_at,omitempty" db:"created_at"`
}

// Revenue returns quantity times unit price for this transaction.
func (r *SalesRecord) Revenue() decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromFloat(r.Quantity))
}

// Validate enforces the data-hygiene invariants at the ingestion boundary.
// Records that fail validation never reach the analytics engine.
func (r *SalesRecord) Validate(now time.Time) error {
	if r.TransactionID == uuid.Nil {
		return utils.NewValidationError("transaction_id is required")
	}
	if r.OwnerID == "" {
		return utils.NewValidationError("owner_id is required")
	}
	if r.ProductID == "" {
		return utils.NewValidationError("product_id is required")
	}
	if r.Quantity <= 0 {
		return utils.NewValidationErrorf("quantity must be positive, got %v", r.Quantity)
	}
	if r.UnitPrice.IsNegative() {
		return utils.NewValidationErrorf("unit_price must not be negative, got %s", r.UnitPrice)
	}
	if r.Timestamp.IsZero() {
		return utils.NewValidationError("timestamp is required")
	}
	if r.Timestamp.After(now) {
		return utils.NewValidationError("timestamp must not be in the future")
	}
	return nil
}

// PriceObservation is one (price, quantity, timestamp) point consumed by the
// pricing analyzer. It is derived from SalesRecords independently of the
// bucketed time series.
type PriceObservation struct {
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}
