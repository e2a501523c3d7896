package utils

import "math"

// Round2 rounds a monetary amount half-up to 2 decimal places.  Prices
// in this domain are integral currency units, so rounding only matters
// for percentage arithmetic on discounts.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// CalculateDiscount returns the discount amount for a price and a
// percentage, rounded half-up to 2 decimal places.
func CalculateDiscount(price int64, percent float64) float64 {
	return Round2(float64(price) * percent / 100)
}

// CalculateFinalPrice returns the price after subtracting the discount
// for the given percentage.
func CalculateFinalPrice(price int64, percent float64) float64 {
	return Round2(float64(price) - CalculateDiscount(price, percent))
}
