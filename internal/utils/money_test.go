package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.234))
	assert.Equal(t, 1.24, Round2(1.235)) // half rounds up
	assert.Equal(t, 0.0, Round2(0))
	assert.Equal(t, 100.0, Round2(99.999))
}

func TestCalculateDiscount(t *testing.T) {
	assert.Equal(t, 25000.0, CalculateDiscount(250000, 10))
	assert.Equal(t, 0.0, CalculateDiscount(250000, 0))
	assert.Equal(t, 250000.0, CalculateDiscount(250000, 100))
	// 12.5% of 99999 = 12499.875, rounds to 12499.88
	assert.Equal(t, 12499.88, CalculateDiscount(99999, 12.5))
}

func TestCalculateFinalPrice(t *testing.T) {
	assert.Equal(t, 225000.0, CalculateFinalPrice(250000, 10))
	assert.Equal(t, 250000.0, CalculateFinalPrice(250000, 0))
	assert.Equal(t, 0.0, CalculateFinalPrice(250000, 100))
	assert.Equal(t, 87499.12, CalculateFinalPrice(99999, 12.5))
}
