package analysis

import "github.com/ridetrackapp/ridetrack-go/internal/models"

// EfficiencyParams tunes the workload-efficiency series.
type EfficiencyParams struct {
	MinSpeedMps   float32 // below this the rider is considered standing
	MinHeartRate  int     // readings at or below this are implausible
	MaxRatio      float64 // hard ceiling on HR/kmh before smoothing
	PreSmoothWin  int     // moving-average window for HR and speed inputs
	PostSmoothWin int     // moving-average window for the ratio itself
}

var DefaultEfficiencyParams = EfficiencyParams{
	MinSpeedMps:   0.55,
	MinHeartRate:  30,
	MaxRatio:      25,
	PreSmoothWin:  5,
	PostSmoothWin: 7,
}

// WorkloadEfficiencyOverTime emits HR divided by speed in km/h per point,
// indexed by minutes from start. Inputs are pre-smoothed, implausible
// points dropped, and the ratio clamped and smoothed again before emission.
func WorkloadEfficiencyOverTime(points []models.RoutePoint, params EfficiencyParams) []GraphPoint {
	cleaned := cleanEfficiencyPoints(points, params)
	if len(cleaned) == 0 {
		return nil
	}

	ratios := efficiencyRatios(cleaned, params)
	start := cleaned[0].Timestamp

	out := make([]GraphPoint, len(cleaned))
	for i, p := range cleaned {
		out[i] = GraphPoint{
			X: float64(p.Timestamp-start) / 1000.0 / 60.0,
			Y: ratios[i],
		}
	}
	return out
}

// WorkloadEfficiencyOverDistance is the same series indexed by cumulative
// distance in kilometers.
func WorkloadEfficiencyOverDistance(points []models.RoutePoint, params EfficiencyParams) []GraphPoint {
	cleaned := cleanEfficiencyPoints(points, params)
	if len(cleaned) == 0 {
		return nil
	}

	ratios := efficiencyRatios(cleaned, params)
	distances := CumulativeDistance(cleaned)

	out := make([]GraphPoint, len(cleaned))
	for i := range cleaned {
		out[i] = GraphPoint{X: distances[i] / 1000.0, Y: ratios[i]}
	}
	return out
}

// cleanEfficiencyPoints smooths the HR/speed channels, then drops points
// without a plausible heart rate or moving slower than walking pace.
func cleanEfficiencyPoints(points []models.RoutePoint, params EfficiencyParams) []models.RoutePoint {
	smoothed := SmoothSpeedHeartRate(points, params.PreSmoothWin)

	cleaned := make([]models.RoutePoint, 0, len(smoothed))
	for _, p := range smoothed {
		if p.HeartRate == nil || *p.HeartRate <= params.MinHeartRate {
			continue
		}
		if p.Speed <= params.MinSpeedMps {
			continue
		}
		cleaned = append(cleaned, p)
	}
	return cleaned
}

func efficiencyRatios(cleaned []models.RoutePoint, params EfficiencyParams) []float64 {
	ratios := make([]float64, len(cleaned))
	for i, p := range cleaned {
		ratios[i] = clamp(float64(*p.HeartRate)/(float64(p.Speed)*3.6), 0, params.MaxRatio)
	}
	return MovingAverage(ratios, params.PostSmoothWin)
}
