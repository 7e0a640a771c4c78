package analysis

import "sort"

// KalmanFilter is a single-value estimator used to stabilise noisy scalar
// readings such as barometric altitude. The first measurement primes the
// estimate so the filter does not have to converge from zero.
type KalmanFilter struct {
	processNoise     float64
	measurementNoise float64
	estimate         float64
	errCov           float64
	primed           bool
}

func NewKalmanFilter(processNoise, measurementNoise float64) *KalmanFilter {
	return &KalmanFilter{
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
		errCov:           1.0,
	}
}

// NewAltitudeKalmanFilter returns a filter tuned for altitude readings.
func NewAltitudeKalmanFilter() *KalmanFilter {
	return NewKalmanFilter(0.001, 5.0)
}

// Filter feeds one measurement through the predict/correct cycle and
// returns the updated estimate.
func (k *KalmanFilter) Filter(measurement float64) float64 {
	if !k.primed {
		k.estimate = measurement
		k.primed = true
		return k.estimate
	}

	predictedErr := k.errCov + k.processNoise

	gain := predictedErr / (predictedErr + k.measurementNoise)
	k.estimate += gain * (measurement - k.estimate)
	k.errCov = (1 - gain) * predictedErr

	return k.estimate
}

// MedianFilter applies a sliding-window median to the series. A window of 1
// or less returns the input unchanged. Window edges shrink at the ends of
// the series instead of padding.
func MedianFilter(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		return values
	}
	half := window / 2
	out := make([]float64, len(values))
	buf := make([]float64, 0, window)
	for i := range values {
		from := max(0, i-half)
		to := min(len(values)-1, i+half)
		buf = append(buf[:0], values[from:to+1]...)
		sort.Float64s(buf)
		out[i] = buf[(to-from)/2]
	}
	return out
}

// ExponentialSmooth applies smoothed[i] = alpha*raw[i] + (1-alpha)*smoothed[i-1],
// seeded with the first value.
func ExponentialSmooth(values []float64, alpha float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float64, len(values))
	last := values[0]
	for i, v := range values {
		last = alpha*v + (1-alpha)*last
		out[i] = last
	}
	return out
}

// MovingAverage applies a simple trailing moving average with the given
// window. Windows shorter than the available history average what exists,
// so the head of the series is not discarded.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) <= 1 {
		return values
	}
	out := make([]float64, len(values))
	var acc float64
	for i, v := range values {
		acc += v
		if i >= window {
			acc -= values[i-window]
		}
		out[i] = acc / float64(min(i+1, window))
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
