package utils

import "math"

// RoundFloat rounds a float64 to a specified number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// WithinTolerance reports whether two monetary amounts differ by at most tol.
func WithinTolerance(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
