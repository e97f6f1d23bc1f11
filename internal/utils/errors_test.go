package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("quantity must be positive")
	assert.EqualError(t, err, "quantity must be positive")

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestValidationErrorf(t *testing.T) {
	err := NewValidationErrorf("field %s is not allowed", "discount")
	assert.EqualError(t, err, "field discount is not allowed")
}

func TestInsufficientDataError(t *testing.T) {
	err := NewInsufficientDataError(30, 12)

	var ide *InsufficientDataError
	assert.True(t, errors.As(err, &ide))
	assert.Equal(t, 30, ide.Required)
	assert.Equal(t, 12, ide.Actual)
	assert.Contains(t, err.Error(), "30")
	assert.Contains(t, err.Error(), "12")
}

func TestInsufficientDataErrorWrapped(t *testing.T) {
	err := fmt.Errorf("forecast failed: %w", NewInsufficientDataError(30, 5))

	var ide *InsufficientDataError
	assert.True(t, errors.As(err, &ide))
	assert.Equal(t, 5, ide.Actual)
}

func TestInsufficientPriceVarianceError(t *testing.T) {
	err := NewInsufficientPriceVarianceError(5, 2)

	var ipe *InsufficientPriceVarianceError
	assert.True(t, errors.As(err, &ipe))
	assert.Equal(t, 5, ipe.RequiredPoints)
	assert.Equal(t, 2, ipe.DistinctPoints)
}

func TestInvalidTimeframeError(t *testing.T) {
	err := NewInvalidTimeframeErrorf("horizon %d exceeds maximum %d", 400, 365)

	var ite *InvalidTimeframeError
	assert.True(t, errors.As(err, &ite))
	assert.Contains(t, ite.Reason, "400")
}
