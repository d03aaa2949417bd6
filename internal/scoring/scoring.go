// Package scoring holds the numeric helpers shared by the engines.
// Every helper propagates nil instead of failing.
package scoring

import "math"

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Clamp10 bounds a score to [0, 10]
func Clamp10(v float64) float64 {
	return Clamp(v, 0, 10)
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// SafeDivide returns num/den, or nil when either side is nil or den is zero
func SafeDivide(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	return Ptr(*num / *den)
}

// At returns series[i] or nil when out of range
func At(series []*float64, i int) *float64 {
	if i < 0 || i >= len(series) {
		return nil
	}
	return series[i]
}

// Compact drops nil entries
func Compact(series []*float64) []float64 {
	out := make([]float64, 0, len(series))
	for _, v := range series {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// Mean is the unweighted mean of the non-nil values; nil when none
func Mean(values ...*float64) *float64 {
	present := Compact(values)
	if len(present) == 0 {
		return nil
	}
	var sum float64
	for _, v := range present {
		sum += v
	}
	return Ptr(sum / float64(len(present)))
}

// MeanStdDev returns the population mean and standard deviation
func MeanStdDev(values []float64) (mean, stdev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// Weighted is one component of a weighted mean
type Weighted struct {
	Score  *float64
	Weight float64
}

// WeightedMean averages the present components, renormalizing the weights
// over them. Nil when no component is present.
func WeightedMean(parts ...Weighted) *float64 {
	var total, weights float64
	for _, p := range parts {
		if p.Score == nil {
			continue
		}
		total += *p.Score * p.Weight
		weights += p.Weight
	}
	if weights == 0 {
		return nil
	}
	return Ptr(total / weights)
}

// Slope is the ordinary least squares slope of values against their index.
// Nil values are dropped first; fewer than minPoints remaining yields nil.
func Slope(values []*float64, minPoints int) *float64 {
	data := Compact(values)
	n := len(data)
	if n < minPoints || n < 2 {
		return nil
	}

	xMean := float64(n-1) / 2
	var yMean float64
	for _, y := range data {
		yMean += y
	}
	yMean /= float64(n)

	var num, den float64
	for i, y := range data {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return nil
	}
	return Ptr(num / den)
}
