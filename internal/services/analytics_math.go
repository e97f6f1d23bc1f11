package services

import "math"

func calculateMeanFloat64(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func calculateVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := calculateMeanFloat64(values)
	var sumSquares float64
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values)-1)
}

func calculateStdDev(values []float64) float64 {
	return math.Sqrt(calculateVariance(values))
}

// autocorrelation computes the sample autocorrelation of the series at the
// given lag. A flat series has zero variance and yields 0, never NaN.
func autocorrelation(values []float64, lag int) float64 {
	n := len(values)
	if lag <= 0 || lag >= n {
		return 0
	}

	mean := calculateMeanFloat64(values)
	var numerator float64
	var denominator float64
	for i := 0; i < n; i++ {
		d := values[i] - mean
		denominator += d * d
	}
	if denominator == 0 {
		return 0
	}
	for i := lag; i < n; i++ {
		numerator += (values[i] - mean) * (values[i-lag] - mean)
	}

	corr := numerator / denominator
	if corr > 1 {
		return 1
	}
	if corr < -1 {
		return -1
	}
	return corr
}

// linearFit computes an ordinary least squares fit y = intercept + slope*x
// and the coefficient of determination. ok is false when x has no variance.
func linearFit(x []float64, y []float64) (slope, intercept, rSquared float64, ok bool) {
	n := len(x)
	if n < 2 || len(y) != n {
		return 0, 0, 0, false
	}

	meanX := calculateMeanFloat64(x)
	meanY := calculateMeanFloat64(y)

	var sxx, sxy, syy float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 {
		return 0, 0, 0, false
	}

	slope = sxy / sxx
	intercept = meanY - slope*meanX
	if syy == 0 {
		// y is constant; the fit is exact
		return slope, intercept, 1, true
	}
	rSquared = (sxy * sxy) / (sxx * syy)
	return slope, intercept, rSquared, true
}

// quartiles returns Q1 and Q3 of the values using linear interpolation
// between order statistics.
func quartiles(values []float64) (q1, q3 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	insertionSort(sorted)
	return percentile(sorted, 0.25), percentile(sorted, 0.75)
}

// percentile expects sorted input and p in [0,1].
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func insertionSort(values []float64) {
	for i := 1; i < len(values); i++ {
		v := values[i]
		j := i - 1
		for j >= 0 && values[j] > v {
			values[j+1] = values[j]
			j--
		}
		values[j+1] = v
	}
}

// centeredMovingAverage computes the trend component of a decomposition. For
// even windows the standard 2x(window) average is used so the result stays
// centered. Positions too close to either end reuse the nearest computed
// value, keeping the output aligned with the input.
func centeredMovingAverage(values []float64, window int) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if window < 2 || window > n {
		mean := calculateMeanFloat64(values)
		for i := range out {
			out[i] = mean
		}
		return out
	}

	half := window / 2
	first, last := -1, -1
	for i := 0; i < n; i++ {
		var sum float64
		if window%2 == 1 {
			if i-half < 0 || i+half >= n {
				continue
			}
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
			out[i] = sum / float64(window)
		} else {
			if i-half < 0 || i+half >= n {
				continue
			}
			// 2xMA: half weight on the two edge points
			sum = values[i-half]/2 + values[i+half]/2
			for j := i - half + 1; j <= i+half-1; j++ {
				sum += values[j]
			}
			out[i] = sum / float64(window)
		}
		if first == -1 {
			first = i
		}
		last = i
	}

	if first == -1 {
		mean := calculateMeanFloat64(values)
		for i := range out {
			out[i] = mean
		}
		return out
	}
	for i := 0; i < first; i++ {
		out[i] = out[first]
	}
	for i := last + 1; i < n; i++ {
		out[i] = out[last]
	}
	return out
}
