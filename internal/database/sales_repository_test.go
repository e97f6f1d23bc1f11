package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailpulse/retailpulse-go/internal/models"
)

func newMockRepository(t *testing.T) (*SalesRepository, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewSalesRepository(mock), mock
}

func sampleRecord(productID string, ts time.Time) models.SalesRecord {
	return models.SalesRecord{
		TransactionID: uuid.New(),
		OwnerID:       "owner-1",
		ProductID:     productID,
		Quantity:      3,
		UnitPrice:     decimal.NewFromFloat(9.99),
		Timestamp:     ts,
		Location:      "us-east",
	}
}

func TestInsertRecordsCountsOnlyNewRows(t *testing.T) {
	repo, mock := newMockRepository(t)
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	first := sampleRecord("sku-1", ts)
	duplicate := sampleRecord("sku-1", ts.Add(time.Hour))

	mock.ExpectExec("INSERT INTO sales_records").
		WithArgs(first.TransactionID, first.OwnerID, first.ProductID, first.Quantity, first.UnitPrice, first.Timestamp, first.Location).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO sales_records").
		WithArgs(duplicate.TransactionID, duplicate.OwnerID, duplicate.ProductID, duplicate.Quantity, duplicate.UnitPrice, duplicate.Timestamp, duplicate.Location).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := repo.InsertRecords(context.Background(), []models.SalesRecord{first, duplicate})
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRecordsPropagatesError(t *testing.T) {
	repo, mock := newMockRepository(t)
	rec := sampleRecord("sku-1", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))

	mock.ExpectExec("INSERT INTO sales_records").
		WithArgs(rec.TransactionID, rec.OwnerID, rec.ProductID, rec.Quantity, rec.UnitPrice, rec.Timestamp, rec.Location).
		WillReturnError(errors.New("constraint violation"))

	_, err := repo.InsertRecords(context.Background(), []models.SalesRecord{rec})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert sales record")
}

func TestRecordsInRange(t *testing.T) {
	repo, mock := newMockRepository(t)

	txID := uuid.New()
	occurred := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	created := occurred.Add(time.Minute)
	rng := models.TimeRange{Start: occurred.AddDate(0, 0, -7), End: occurred.AddDate(0, 0, 1)}

	rows := pgxmock.NewRows([]string{
		"transaction_id", "owner_id", "product_id", "quantity", "unit_price", "occurred_at", "location", "created_at",
	}).AddRow(txID, "owner-1", "sku-1", 3.0, decimal.NewFromFloat(9.99), occurred, "us-east", created)

	mock.ExpectQuery("SELECT (.+) FROM sales_records").
		WithArgs("owner-1", "sku-1", rng.Start, rng.End, "us-east").
		WillReturnRows(rows)

	records, err := repo.RecordsInRange(context.Background(), "owner-1", "sku-1", "us-east", rng)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, txID, records[0].TransactionID)
	assert.Equal(t, "sku-1", records[0].ProductID)
	assert.Equal(t, 3.0, records[0].Quantity)
	assert.True(t, records[0].UnitPrice.Equal(decimal.NewFromFloat(9.99)))
	assert.Equal(t, occurred, records[0].Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordsInRangeEmptyRegionMatchesAll(t *testing.T) {
	repo, mock := newMockRepository(t)
	rng := models.TimeRange{
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectQuery("SELECT (.+) FROM sales_records").
		WithArgs("owner-1", "sku-1", rng.Start, rng.End, "").
		WillReturnRows(pgxmock.NewRows([]string{
			"transaction_id", "owner_id", "product_id", "quantity", "unit_price", "occurred_at", "location", "created_at",
		}))

	records, err := repo.RecordsInRange(context.Background(), "owner-1", "sku-1", "", rng)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecordsInRangeQueryError(t *testing.T) {
	repo, mock := newMockRepository(t)
	rng := models.TimeRange{
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectQuery("SELECT (.+) FROM sales_records").
		WithArgs("owner-1", "sku-1", rng.Start, rng.End, "").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.RecordsInRange(context.Background(), "owner-1", "sku-1", "", rng)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query sales records")
}

func TestProductsForOwner(t *testing.T) {
	repo, mock := newMockRepository(t)
	rng := models.TimeRange{
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectQuery("SELECT DISTINCT product_id").
		WithArgs("owner-1", rng.Start, rng.End).
		WillReturnRows(pgxmock.NewRows([]string{"product_id"}).AddRow("sku-1").AddRow("sku-2"))

	products, err := repo.ProductsForOwner(context.Background(), "owner-1", rng)
	require.NoError(t, err)
	assert.Equal(t, []string{"sku-1", "sku-2"}, products)
}

func TestRecordCountSince(t *testing.T) {
	repo, mock := newMockRepository(t)
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("owner-1", cutoff).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := repo.RecordCountSince(context.Background(), "owner-1", cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}
