package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/retailpulse/retailpulse-go/internal/models"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// SalesRepository handles persistence of sales records. Records are immutable
// once stored; duplicate transaction identifiers within an owner's partition
// are ignored on insert.
type SalesRepository struct {
	pool DatabasePool
}

// NewSalesRepository creates a new sales repository.
func NewSalesRepository(pool DatabasePool) *SalesRepository {
	return &SalesRepository{pool: pool}
}

// InsertRecords stores a batch of validated records and returns how many were
// actually inserted. Re-sent transactions are skipped, making ingestion
// idempotent per (owner, transaction).
func (r *SalesRepository) InsertRecords(ctx context.Context, records []models.SalesRecord) (int64, error) {
	query := `
		INSERT INTO sales_records (transaction_id, owner_id, product_id, quantity, unit_price, occurred_at, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id, transaction_id) DO NOTHING
	`

	var inserted int64
	for _, rec := range records {
		tag, err := r.pool.Exec(ctx, query,
			rec.TransactionID,
			rec.OwnerID,
			rec.ProductID,
			rec.Quantity,
			rec.UnitPrice,
			rec.Timestamp,
			rec.Location,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert sales record: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// RecordsInRange loads all records for one owner and product inside the time
// range, oldest first. An empty region matches every location.
func (r *SalesRepository) RecordsInRange(ctx context.Context, ownerID, productID, region string, rng models.TimeRange) ([]models.SalesRecord, error) {
	query := `
		SELECT transaction_id, owner_id, product_id, quantity, unit_price, occurred_at, location, created_at
		FROM sales_records
		WHERE owner_id = $1 AND product_id = $2
		AND occurred_at >= $3 AND occurred_at <= $4
		AND ($5 = '' OR location = $5)
		ORDER BY occurred_at ASC
	`

	rows, err := r.pool.Query(ctx, query, ownerID, productID, rng.Start, rng.End, region)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales records: %w", err)
	}
	defer rows.Close()

	var records []models.SalesRecord
	for rows.Next() {
		var rec models.SalesRecord
		err := rows.Scan(
			&rec.TransactionID,
			&rec.OwnerID,
			&rec.ProductID,
			&rec.Quantity,
			&rec.UnitPrice,
			&rec.Timestamp,
			&rec.Location,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sales record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales records: %w", err)
	}
	return records, nil
}

// ProductsForOwner lists the distinct products an owner sold inside the time
// range, for batch analysis fan-out.
func (r *SalesRepository) ProductsForOwner(ctx context.Context, ownerID string, rng models.TimeRange) ([]string, error) {
	query := `
		SELECT DISTINCT product_id
		FROM sales_records
		WHERE owner_id = $1 AND occurred_at >= $2 AND occurred_at <= $3
		ORDER BY product_id ASC
	`

	rows, err := r.pool.Query(ctx, query, ownerID, rng.Start, rng.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []string
	for rows.Next() {
		var productID string
		if err := rows.Scan(&productID); err != nil {
			return nil, fmt.Errorf("failed to scan product id: %w", err)
		}
		products = append(products, productID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

// RecordCountSince reports how many records an owner stored after the cutoff.
// Health and diagnostics use it as a cheap liveness probe on the data path.
func (r *SalesRepository) RecordCountSince(ctx context.Context, ownerID string, cutoff time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM sales_records
		WHERE owner_id = $1 AND occurred_at >= $2
	`

	var count int64
	if err := r.pool.QueryRow(ctx, query, ownerID, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sales records: %w", err)
	}
	return count, nil
}
