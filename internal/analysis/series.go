package analysis

import "github.com/ridetrackapp/ridetrack-go/internal/models"

// GraphPoint is a generic (x, y) sample consumed by the charting layer.
type GraphPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

const speedSmoothingAlpha = 0.3

// SpeedOverTime plots smoothed speed (km/h) against seconds from start.
func SpeedOverTime(points []models.RoutePoint) []GraphPoint {
	if len(points) < 2 {
		return nil
	}
	smoothed := smoothSpeeds(points, speedSmoothingAlpha)

	start := points[0].Timestamp
	out := make([]GraphPoint, len(points))
	for i, p := range points {
		out[i] = GraphPoint{
			X: float64(p.Timestamp-start) / 1000.0,
			Y: smoothed[i] * 3.6,
		}
	}
	return out
}

// SpeedOverDistance plots smoothed speed (km/h) against cumulative
// pause-excluding distance in meters.
func SpeedOverDistance(points []models.RoutePoint) []GraphPoint {
	if len(points) < 2 {
		return nil
	}
	smoothed := smoothSpeeds(points, speedSmoothingAlpha)

	distances := CumulativeDistance(points)
	out := make([]GraphPoint, len(points))
	for i := range points {
		out[i] = GraphPoint{X: distances[i], Y: smoothed[i] * 3.6}
	}
	return out
}

// AltitudeOverTime plots denoised altitude relative to the start altitude
// against seconds from start.
func AltitudeOverTime(points []models.RoutePoint) []GraphPoint {
	if len(points) < 2 {
		return nil
	}
	filtered := FilterAltitudes(points, DefaultAltitudeFilter)
	base := filtered[0].Altitude
	start := filtered[0].Timestamp

	out := make([]GraphPoint, len(filtered))
	for i, p := range filtered {
		out[i] = GraphPoint{
			X: float64(p.Timestamp-start) / 1000.0,
			Y: p.Altitude - base,
		}
	}
	return out
}

// AltitudeOverDistance plots denoised altitude relative to the start
// altitude against cumulative distance in meters.
func AltitudeOverDistance(points []models.RoutePoint) []GraphPoint {
	if len(points) < 2 {
		return nil
	}
	filtered := FilterAltitudes(points, DefaultAltitudeFilter)
	base := filtered[0].Altitude
	distances := CumulativeDistance(points)

	out := make([]GraphPoint, len(filtered))
	for i, p := range filtered {
		out[i] = GraphPoint{X: distances[i], Y: p.Altitude - base}
	}
	return out
}

// HeartRateOverTime plots raw heart rate (bpm) against seconds from start.
// Points without a reading are dropped.
func HeartRateOverTime(points []models.RoutePoint) []GraphPoint {
	if len(points) < 2 {
		return nil
	}
	start := points[0].Timestamp

	var out []GraphPoint
	for i := range points {
		if !points[i].HasHeartRate() {
			continue
		}
		out = append(out, GraphPoint{
			X: float64(points[i].Timestamp-start) / 1000.0,
			Y: float64(*points[i].HeartRate),
		})
	}
	return out
}

// HeartRateOverDistance plots raw heart rate against cumulative distance
// over the heart-rate-bearing subsequence.
func HeartRateOverDistance(points []models.RoutePoint) []GraphPoint {
	if len(points) < 2 {
		return nil
	}
	withHR := make([]models.RoutePoint, 0, len(points))
	for _, p := range points {
		if p.HasHeartRate() {
			withHR = append(withHR, p)
		}
	}
	distances := CumulativeDistance(withHR)

	out := make([]GraphPoint, len(withHR))
	for i := range withHR {
		out[i] = GraphPoint{X: distances[i], Y: float64(*withHR[i].HeartRate)}
	}
	return out
}

// CumulativeLoadOverTime integrates avgHR * avgSpeedKmh * avgAltitudeKm * dtMinutes
// over consecutive pairs, skipping pairs missing a heart rate or stationary.
// The emitted series is monotonically non-decreasing, indexed by minutes
// from start.
func CumulativeLoadOverTime(points []models.RoutePoint) []GraphPoint {
	if len(points) < 2 {
		return nil
	}

	var load float64
	start := points[0].Timestamp
	out := make([]GraphPoint, 0, len(points)-1)

	for i := 0; i < len(points)-1; i++ {
		curr := &points[i]
		next := &points[i+1]

		if curr.HasHeartRate() && next.HasHeartRate() && curr.Speed > 0 && next.Speed > 0 {
			avgHR := float64(*curr.HeartRate+*next.HeartRate) / 2.0
			avgSpeedKmh := (float64(curr.Speed) + float64(next.Speed)) / 2.0 * 3.6
			avgAltitudeKm := (curr.Altitude + next.Altitude) / 2.0 / 1000.0
			dtMin := float64(next.Timestamp-curr.Timestamp) / 60000.0
			load += avgHR * avgSpeedKmh * avgAltitudeKm * dtMin
		}

		out = append(out, GraphPoint{
			X: float64(next.Timestamp-start) / 60000.0,
			Y: load,
		})
	}
	return out
}

// CumulativeDistance returns cumulative pause-excluding distances, aligned
// with the input points. distances[i] is the distance covered up to point i.
func CumulativeDistance(points []models.RoutePoint) []float64 {
	if len(points) == 0 {
		return nil
	}
	result := make([]float64, len(points))
	var sum float64
	for i := 1; i < len(points); i++ {
		if !points[i-1].IsPause && !points[i].IsPause {
			sum += points[i-1].DistanceTo(&points[i])
		}
		result[i] = sum
	}
	return result
}

// smoothSpeeds exponentially smooths the speed channel and returns it as a
// float64 series aligned with the input.
func smoothSpeeds(points []models.RoutePoint, alpha float64) []float64 {
	speeds := make([]float64, len(points))
	for i := range points {
		speeds[i] = float64(points[i].Speed)
	}
	return ExponentialSmooth(speeds, alpha)
}

// SmoothSpeedHeartRate applies a short trailing moving average to both the
// heart-rate and speed channels and returns a copy of the points with the
// smoothed values written back. Series shorter than the window are returned
// unchanged.
func SmoothSpeedHeartRate(points []models.RoutePoint, window int) []models.RoutePoint {
	if len(points) < window {
		return points
	}

	hrs := make([]float64, len(points))
	speeds := make([]float64, len(points))
	for i := range points {
		if points[i].HeartRate != nil {
			hrs[i] = float64(*points[i].HeartRate)
		}
		speeds[i] = float64(points[i].Speed)
	}

	hrs = MovingAverage(hrs, window)
	speeds = MovingAverage(speeds, window)

	out := make([]models.RoutePoint, len(points))
	for i := range points {
		out[i] = points[i]
		hr := int(hrs[i])
		out[i].HeartRate = &hr
		out[i].Speed = float32(speeds[i])
	}
	return out
}
