package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validRecord() SalesRecord {
	return SalesRecord{
		TransactionID: uuid.New(),
		OwnerID:       "owner-1",
		ProductID:     "sku-100",
		Quantity:      3,
		UnitPrice:     decimal.NewFromFloat(19.99),
		Timestamp:     time.Now().Add(-time.Hour),
		Location:      "us-east",
	}
}

func TestSalesRecordValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		mutate  func(*SalesRecord)
		wantErr string
	}{
		{"valid", func(r *SalesRecord) {}, ""},
		{"missing transaction id", func(r *SalesRecord) { r.TransactionID = uuid.Nil }, "transaction_id"},
		{"missing owner", func(r *SalesRecord) { r.OwnerID = "" }, "owner_id"},
		{"missing product", func(r *SalesRecord) { r.ProductID = "" }, "product_id"},
		{"zero quantity", func(r *SalesRecord) { r.Quantity = 0 }, "quantity"},
		{"negative quantity", func(r *SalesRecord) { r.Quantity = -2 }, "quantity"},
		{"negative price", func(r *SalesRecord) { r.UnitPrice = decimal.NewFromFloat(-1) }, "unit_price"},
		{"zero timestamp", func(r *SalesRecord) { r.Timestamp = time.Time{} }, "timestamp"},
		{"future timestamp", func(r *SalesRecord) { r.Timestamp = now.Add(time.Hour) }, "future"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)
			err := rec.Validate(now)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestSalesRecordRevenue(t *testing.T) {
	rec := validRecord()
	rec.Quantity = 4
	rec.UnitPrice = decimal.NewFromFloat(2.50)
	assert.True(t, rec.Revenue().Equal(decimal.NewFromFloat(10)))
}

func TestGranularityValid(t *testing.T) {
	assert.True(t, GranularityDay.Valid())
	assert.True(t, GranularityWeek.Valid())
	assert.True(t, GranularityMonth.Valid())
	assert.False(t, Granularity("hour").Valid())
}

func TestTimeSeriesHelpers(t *testing.T) {
	ts := TimeSeries{
		ProductID:   "sku-100",
		Granularity: GranularityDay,
		Buckets: []TimeBucket{
			{Quantity: 5, RecordCount: 2},
			{Quantity: 0, RecordCount: 0},
			{Quantity: 3, RecordCount: 1},
		},
	}

	assert.Equal(t, []float64{5, 0, 3}, ts.Quantities())
	assert.Equal(t, 2, ts.ObservedBuckets())
}

func TestForecastResultTotalPredicted(t *testing.T) {
	f := ForecastResult{
		Points: []ForecastPoint{
			{Predicted: 10},
			{Predicted: 12.5},
			{Predicted: 7.5},
		},
	}
	assert.InDelta(t, 30, f.TotalPredicted(), 1e-9)
}
