package utils

import "gonum.org/v1/gonum/stat"

// Mean returns the arithmetic mean, or 0 for no values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
