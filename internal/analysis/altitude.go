package analysis

import (
	"math"

	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// AltitudeFilterParams tunes the sequential altitude filter. The defaults
// match what worked well for cycling tracks and are deliberately
// configurable rather than re-derived.
type AltitudeFilterParams struct {
	// MaxVerticalError is the worst GPS vertical accuracy (meters) still
	// trusted. Readings above it reuse the previous smoothed altitude.
	MaxVerticalError float32
	// SlopeFactor bounds the altitude change per meter of travel.
	SlopeFactor float64
	// Alpha is the exponential smoothing coefficient.
	Alpha float64
}

var DefaultAltitudeFilter = AltitudeFilterParams{
	MaxVerticalError: 15,
	SlopeFactor:      0.15,
	Alpha:            0.3,
}

// FilterAltitudes produces a copy of the point sequence with denoised
// altitudes. Three stages run in a single pass:
//
//  1. accuracy gate: implausible vertical accuracy falls back to the last
//     smoothed value,
//  2. slope clamp: the per-step change is limited to
//     SlopeFactor * speed * dt,
//  3. exponential smoothing.
//
// The first point keeps its raw altitude. A dt below 1ms copies the
// previous smoothed value forward, which guards against duplicate
// timestamps.
func FilterAltitudes(points []models.RoutePoint, params AltitudeFilterParams) []models.RoutePoint {
	if len(points) == 0 {
		return nil
	}

	result := make([]models.RoutePoint, 0, len(points))

	smoothed := points[0].Altitude
	lastTimestamp := points[0].Timestamp

	first := points[0]
	first.Altitude = smoothed
	result = append(result, first)

	for i := 1; i < len(points); i++ {
		curr := points[i]
		dt := float64(curr.Timestamp-lastTimestamp) / 1000.0
		if dt < 0.001 {
			curr.Altitude = smoothed
			result = append(result, curr)
			continue
		}

		raw := curr.Altitude
		if curr.VerticalAccuracy != nil && *curr.VerticalAccuracy > params.MaxVerticalError {
			raw = smoothed
		}

		maxChange := params.SlopeFactor * float64(curr.Speed) * dt
		diff := raw - smoothed
		clamped := raw
		if math.Abs(diff) > maxChange {
			clamped = smoothed + math.Copysign(maxChange, diff)
		}

		smoothed = params.Alpha*clamped + (1-params.Alpha)*smoothed

		curr.Altitude = smoothed
		result = append(result, curr)

		lastTimestamp = curr.Timestamp
	}

	return result
}
