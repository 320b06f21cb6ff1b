package metrics

import "math"

// IntStats summarizes integer samples. Best is the minimum.
type IntStats struct {
	N    int
	Best int
	Mean float64
	Std  float64
}

// CalcIntStats computes the sample statistics of values.
func CalcIntStats(values []int) IntStats {
	s := IntStats{N: len(values)}
	if s.N == 0 {
		return s
	}
	best := values[0]
	floats := make([]float64, len(values))
	for i, v := range values {
		best = min(best, v)
		floats[i] = float64(v)
	}
	fs := CalcFloatStats(floats)
	s.Best = best
	s.Mean = fs.Mean
	s.Std = fs.Std
	return s
}

// FloatStats summarizes real samples. Best is the minimum.
type FloatStats struct {
	N    int
	Best float64
	Mean float64
	Std  float64
}

// CalcFloatStats computes the sample statistics of values.
// Std uses the unbiased estimator and is 0 for fewer than two samples.
func CalcFloatStats(values []float64) FloatStats {
	s := FloatStats{N: len(values)}
	if s.N == 0 {
		return s
	}

	best := values[0]
	sum := 0.0
	for _, v := range values {
		if v < best {
			best = v
		}
		sum += v
	}
	mean := sum / float64(s.N)

	variance := 0.0
	if s.N >= 2 {
		for _, v := range values {
			d := v - mean
			variance += d * d
		}
		variance /= float64(s.N - 1)
	}

	s.Best = best
	s.Mean = mean
	s.Std = math.Sqrt(variance)
	return s
}
