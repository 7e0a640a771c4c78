package analysis

import (
	"math"

	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// Result is the derived, non-persisted analytics snapshot for a finished
// track. The activity's own summary fields remain the persisted projection;
// this is recomputed on demand.
type Result struct {
	TotalDistanceMeters  float64 `json:"totalDistanceMeters"`
	TotalDurationSeconds float64 `json:"totalDurationSeconds"` // active time
	AverageSpeedMps      float64 `json:"averageSpeedMps"`
	MaxSpeedMps          float64 `json:"maxSpeedMps"`
	MinSpeedMps          float64 `json:"minSpeedMps"`

	AltitudeRange     float64 `json:"altitudeRange"`
	TotalAltitudeGain float64 `json:"totalAltitudeGain"`
	TotalAltitudeLoss float64 `json:"totalAltitudeLoss"`
	StartAltitude     float64 `json:"startAltitude"`
	EndAltitude       float64 `json:"endAltitude"`
	MaxAltitude       float64 `json:"maxAltitude"`
	MinAltitude       float64 `json:"minAltitude"`

	AveragePaceSecPerKm float64 `json:"averagePaceSecPerKm"`
	MaxGradientPercent  float64 `json:"maxGradientPercent"`

	MinHeartRate *int `json:"minHeartRate,omitempty"`
	MaxHeartRate *int `json:"maxHeartRate,omitempty"`
	AvgHeartRate *int `json:"avgHeartRate,omitempty"`

	CaloriesBurned float64 `json:"caloriesBurned"`
}

// TrackingStats are the running statistics shown while a recording is in
// progress.
type TrackingStats struct {
	CurrentSpeed   float32 `json:"currentSpeed"`   // m/s, speed of last point
	AverageSpeed   float64 `json:"averageSpeed"`   // m/s over active time
	Distance       float64 `json:"distance"`       // meters
	ActiveDuration int64   `json:"activeDuration"` // millis
	PauseDuration  int64   `json:"pauseDuration"`  // millis
}

// Analyze computes the full analytics snapshot for one activity. Degenerate
// input (no points, or only paused points) yields a zeroed result rather
// than an error.
func Analyze(activity *models.Activity, points []models.RoutePoint, gender string) Result {
	if len(points) == 0 {
		return Result{}
	}

	active := activePoints(points)
	if len(active) == 0 {
		return Result{}
	}

	minAlt, maxAlt := active[0].Altitude, active[0].Altitude
	for _, p := range active {
		minAlt = math.Min(minAlt, p.Altitude)
		maxAlt = math.Max(maxAlt, p.Altitude)
	}

	var gain, loss float64
	for i := 1; i < len(active); i++ {
		if active[i].IsPause || active[i-1].IsPause {
			continue
		}
		diff := active[i].Altitude - active[i-1].Altitude
		if diff > 0 {
			gain += diff
		} else {
			loss += -diff
		}
	}

	_, _, maxGradient := gradientPass(active)

	distance := totalDistance(active)
	_, activeDurationMs := routeDuration(points)

	maxSpeed, minSpeed := float64(active[0].Speed), float64(active[0].Speed)
	for _, p := range active {
		maxSpeed = math.Max(maxSpeed, float64(p.Speed))
		minSpeed = math.Min(minSpeed, float64(p.Speed))
	}

	var avgSpeed float64
	if activeDurationMs > 0 {
		avgSpeed = distance / (float64(activeDurationMs) / 1000.0)
	}

	var pace float64
	if distance > 0 {
		pace = (float64(activeDurationMs) / 1000.0) / (distance / 1000.0)
	}

	minHR, maxHR, avgHR := heartRateStats(active)

	calories := EstimateCalories(activity, active, gender)

	return Result{
		TotalDistanceMeters:  distance,
		TotalDurationSeconds: float64(activeDurationMs) / 1000.0,
		AverageSpeedMps:      avgSpeed,
		MaxSpeedMps:          maxSpeed,
		MinSpeedMps:          minSpeed,
		AltitudeRange:        maxAlt - minAlt,
		TotalAltitudeGain:    gain,
		TotalAltitudeLoss:    loss,
		StartAltitude:        active[0].Altitude,
		EndAltitude:          active[len(active)-1].Altitude,
		MaxAltitude:          maxAlt,
		MinAltitude:          minAlt,
		AveragePaceSecPerKm:  pace,
		MaxGradientPercent:   maxGradient,
		MinHeartRate:         minHR,
		MaxHeartRate:         maxHR,
		AvgHeartRate:         avgHR,
		CaloriesBurned:       calories,
	}
}

// CalculateTrackingStats derives the live recording statistics from the
// point sequence accumulated so far.
func CalculateTrackingStats(points []models.RoutePoint) TrackingStats {
	if len(points) == 0 {
		return TrackingStats{}
	}

	distance := totalDistance(points)
	pauseDuration, activeDuration := routeDuration(points)

	var avgSpeed float64
	if activeDuration > 0 {
		avgSpeed = distance / (float64(activeDuration) / 1000.0)
	}

	return TrackingStats{
		CurrentSpeed:   points[len(points)-1].Speed,
		AverageSpeed:   avgSpeed,
		Distance:       distance,
		ActiveDuration: activeDuration,
		PauseDuration:  pauseDuration,
	}
}

// routeDuration splits the track's total span into pause and active time.
// A gap counts as pause when the point closing it is flagged paused.
func routeDuration(points []models.RoutePoint) (pauseMs, activeMs int64) {
	if len(points) == 0 {
		return 0, 0
	}
	total := points[len(points)-1].Timestamp - points[0].Timestamp

	var pause int64
	for i := 1; i < len(points); i++ {
		if points[i].IsPause {
			pause += points[i].Timestamp - points[i-1].Timestamp
		}
	}
	return pause, total - pause
}

// totalDistance sums consecutive-pair distances, skipping any pair where
// either endpoint is paused.
func totalDistance(points []models.RoutePoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		prev := &points[i-1]
		curr := &points[i]
		if !prev.IsPause && !curr.IsPause {
			total += prev.DistanceTo(curr)
		}
	}
	return total
}

// gradientPass accumulates filtered-altitude deltas over rolling segments of
// at least minGradientSegmentMeters and keeps the largest plausible
// gradient. It also accumulates gain/loss with a 1m noise floor; that pass
// is independent of the unfloored totals reported by Analyze.
func gradientPass(points []models.RoutePoint) (gain, loss, maxGradient float64) {
	filtered := FilterAltitudes(points, DefaultAltitudeFilter)

	const minSegmentDistance = 20.0

	var segmentAltDiff, segmentDistance float64
	var prev *models.RoutePoint

	for i := range filtered {
		point := &filtered[i]
		if prev == nil {
			prev = point
			continue
		}

		if point.IsPause || prev.IsPause {
			segmentAltDiff = 0
			segmentDistance = 0
			prev = point
			continue
		}

		segmentDistance += prev.DistanceTo(point)

		altDiff := point.Altitude - prev.Altitude
		segmentAltDiff += altDiff

		if math.Abs(altDiff) > 1 {
			if altDiff > 0 {
				gain += altDiff
			} else {
				loss += -altDiff
			}
		}

		if segmentDistance >= minSegmentDistance {
			gradient := (segmentAltDiff / segmentDistance) * 100
			// Gradients outside 2..50% are sensor noise.
			if abs := math.Abs(gradient); abs >= 2.0 && abs <= 50.0 {
				maxGradient = math.Max(maxGradient, abs)
			}
			segmentAltDiff = 0
			segmentDistance = 0
		}

		prev = point
	}

	return gain, loss, maxGradient
}

func heartRateStats(points []models.RoutePoint) (minHR, maxHR, avgHR *int) {
	var sum, count, lo, hi int
	for i := range points {
		if !points[i].HasHeartRate() {
			continue
		}
		hr := *points[i].HeartRate
		if count == 0 || hr < lo {
			lo = hr
		}
		if count == 0 || hr > hi {
			hi = hr
		}
		sum += hr
		count++
	}
	if count == 0 {
		return nil, nil, nil
	}
	avg := sum / count
	return &lo, &hi, &avg
}

func activePoints(points []models.RoutePoint) []models.RoutePoint {
	active := make([]models.RoutePoint, 0, len(points))
	for _, p := range points {
		if !p.IsPause {
			active = append(active, p)
		}
	}
	return active
}
