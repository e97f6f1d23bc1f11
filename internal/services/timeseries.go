package services

import (
	"time"

	"github.com/retailpulse/retailpulse-go/internal/models"
	"github.com/retailpulse/retailpulse-go/internal/utils"
)

// TimeSeriesBuilder converts raw sales records into uniform, gap-filled time
// series. It is stateless; every call derives a fresh series from its inputs.
type TimeSeriesBuilder struct{}

// NewTimeSeriesBuilder creates a new builder.
func NewTimeSeriesBuilder() *TimeSeriesBuilder {
	return &TimeSeriesBuilder{}
}

// Build groups the records of one product into contiguous buckets over
// [timeRange.Start, timeRange.End]. Buckets with no matching records are
// materialized with zero values so downstream algorithms always see uniform
// spacing. An optional region filter restricts the records considered.
func (b *TimeSeriesBuilder) Build(records []models.SalesRecord, productID string, region string, granularity models.Granularity, timeRange models.TimeRange) (*models.TimeSeries, error) {
	if len(records) == 0 {
		return nil, utils.NewValidationError("at least one sales record is required")
	}
	if !granularity.Valid() {
		return nil, utils.NewValidationErrorf("unsupported granularity %q", granularity)
	}
	if timeRange.Start.IsZero() || timeRange.End.IsZero() {
		return nil, utils.NewInvalidTimeframeError("start and end are required")
	}
	if !timeRange.End.After(timeRange.Start) {
		return nil, utils.NewInvalidTimeframeError("end must be after start")
	}

	start := truncateToBucket(timeRange.Start, granularity)
	end := truncateToBucket(timeRange.End, granularity)

	type aggregate struct {
		quantity float64
		revenue  float64
		count    int
	}
	buckets := make(map[time.Time]*aggregate)
	for _, rec := range records {
		if rec.ProductID != productID {
			continue
		}
		if region != "" && rec.Location != region {
			continue
		}
		if rec.Timestamp.Before(timeRange.Start) || rec.Timestamp.After(timeRange.End) {
			continue
		}
		key := truncateToBucket(rec.Timestamp, granularity)
		agg := buckets[key]
		if agg == nil {
			agg = &aggregate{}
			buckets[key] = agg
		}
		agg.quantity += rec.Quantity
		agg.revenue += rec.Revenue().InexactFloat64()
		agg.count++
	}

	series := &models.TimeSeries{
		ProductID:   productID,
		Region:      region,
		Granularity: granularity,
	}
	for cursor := start; !cursor.After(end); cursor = nextBucket(cursor, granularity) {
		bucket := models.TimeBucket{Start: cursor}
		if agg, ok := buckets[cursor]; ok {
			bucket.Quantity = agg.quantity
			bucket.Revenue = agg.revenue
			bucket.RecordCount = agg.count
		}
		series.Buckets = append(series.Buckets, bucket)
	}

	return series, nil
}

// RequireObservations verifies that the series has at least min observed
// buckets. Forecasting callers pass the configured forecasting minimum;
// trend and pricing callers tolerate fewer and pass their own.
func (b *TimeSeriesBuilder) RequireObservations(series *models.TimeSeries, min int) error {
	actual := series.ObservedBuckets()
	if actual < min {
		return utils.NewInsufficientDataError(min, actual)
	}
	return nil
}

// truncateToBucket maps a timestamp to the start of its bucket in UTC.
// Weekly buckets start on Monday.
func truncateToBucket(t time.Time, granularity models.Granularity) time.Time {
	t = t.UTC()
	switch granularity {
	case models.GranularityWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case models.GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

func nextBucket(t time.Time, granularity models.Granularity) time.Time {
	switch granularity {
	case models.GranularityWeek:
		return t.AddDate(0, 0, 7)
	case models.GranularityMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// bucketsPerYear returns the approximate number of buckets in one year at the
// given granularity. It scales seasonality candidate periods.
func bucketsPerYear(granularity models.Granularity) int {
	switch granularity {
	case models.GranularityWeek:
		return 52
	case models.GranularityMonth:
		return 12
	default:
		return 365
	}
}
