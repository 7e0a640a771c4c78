package analysis

import (
	"sort"

	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// RecoveryParams tunes the recovery-phase detector. All thresholds are
// heuristics; keep them adjustable instead of baking them in.
type RecoveryParams struct {
	MedianWindow    int     // HR pre-smoothing window, 1 disables
	MinPeakDiff     int     // peak must exceed both neighbours by this many bpm
	MinPhaseDurSec  float64 // discard shorter phases
	MinDeltaHR      float64 // discard phases with a smaller total drop
	HRRWindowSec    int64   // HRR-60 window
	StepSec         int64   // spacing of interpolated intermediate points
	SpeedMin        float64 // plausibility band for recovery speed, bpm/s
	SpeedMax        float64
}

var DefaultRecoveryParams = RecoveryParams{
	MedianWindow:   1,
	MinPeakDiff:    4,
	MinPhaseDurSec: 10,
	MinDeltaHR:     8,
	HRRWindowSec:   60,
	StepSec:        10,
	SpeedMin:       0.05,
	SpeedMax:       1.2,
}

// RecoveryPhases scans the heart-rate series for exertion peaks followed by
// sustained drops and emits the recovery speed (bpm/s) of each phase as
// graph points at (minutes from track start, speed).
//
// The detector walks the median-smoothed series: a strict peak exceeds both
// neighbours by MinPeakDiff, the phase extends forward while HR is
// non-increasing, and phases that are too short or too shallow are dropped.
// For accepted phases the HRR-60 speed plus intermediate points every
// StepSec are computed against the raw series via linear interpolation.
func RecoveryPhases(raw []models.RoutePoint, params RecoveryParams) []GraphPoint {
	hrPoints := make([]models.RoutePoint, 0, len(raw))
	for _, p := range raw {
		if p.HasHeartRate() {
			hrPoints = append(hrPoints, p)
		}
	}
	sort.SliceStable(hrPoints, func(i, j int) bool {
		return hrPoints[i].Timestamp < hrPoints[j].Timestamp
	})
	if len(hrPoints) < 3 {
		return nil
	}

	hrs := make([]float64, len(hrPoints))
	for i := range hrPoints {
		hrs[i] = float64(*hrPoints[i].HeartRate)
	}
	smooth := MedianFilter(hrs, params.MedianWindow)

	startTrackTime := hrPoints[0].Timestamp
	var result []GraphPoint

	i := 1
	for i < len(smooth)-1 {
		prevHR, currHR, nextHR := smooth[i-1], smooth[i], smooth[i+1]

		isPeak := currHR > prevHR+float64(params.MinPeakDiff) &&
			currHR >= nextHR+float64(params.MinPeakDiff)
		if !isPeak {
			i++
			continue
		}

		peakTime := hrPoints[i].Timestamp

		// Walk forward while HR is non-increasing.
		j := i + 1
		for j < len(smooth) && smooth[j] <= smooth[j-1] {
			j++
		}
		endIdx := j - 1
		phaseDurSec := float64(hrPoints[endIdx].Timestamp-peakTime) / 1000.0

		deltaHR := currHR - smooth[endIdx]
		if phaseDurSec < params.MinPhaseDurSec || deltaHR < params.MinDeltaHR {
			i++
			continue
		}

		// HRR-60: heart-rate drop within 60s of the peak, or the phase end
		// when the phase is shorter.
		hrrTargetTime := peakTime + params.HRRWindowSec*1000
		hrrTime := hrrTargetTime
		if end := hrPoints[endIdx].Timestamp; end < hrrTime {
			hrrTime = end
		}
		hrrHR := smooth[endIdx]
		if v, ok := interpolateHR(hrPoints, hrrTime); ok {
			hrrHR = v
		}
		hrrSpeed := (currHR - hrrHR) / (float64(hrrTime-peakTime) / 1000.0)
		result = appendIfPlausible(result, params, startTrackTime, hrrTime, hrrSpeed)

		// Intermediate points every StepSec, interpolated from the raw
		// series so smoothing does not distort them.
		for t := peakTime + params.StepSec*1000; t < hrrTime; t += params.StepSec * 1000 {
			interp, ok := interpolateHR(hrPoints, t)
			if !ok {
				break
			}
			speed := (currHR - interp) / (float64(t-peakTime) / 1000.0)
			result = appendIfPlausible(result, params, startTrackTime, t, speed)
		}

		i = endIdx + 1
	}

	sort.Slice(result, func(a, b int) bool { return result[a].X < result[b].X })
	return result
}

func appendIfPlausible(acc []GraphPoint, params RecoveryParams, startTs, timeMs int64, speed float64) []GraphPoint {
	if speed < params.SpeedMin || speed > params.SpeedMax {
		return acc
	}
	return append(acc, GraphPoint{
		X: float64(timeMs-startTs) / 1000.0 / 60.0, // minutes from track start
		Y: speed,
	})
}

// interpolateHR linearly interpolates the raw heart-rate series at timeMs.
func interpolateHR(points []models.RoutePoint, timeMs int64) (float64, bool) {
	idx := -1
	for i := range points {
		if points[i].Timestamp <= timeMs {
			idx = i
		} else {
			break
		}
	}
	if idx < 0 {
		return 0, false
	}
	if idx >= len(points)-1 {
		return float64(*points[len(points)-1].HeartRate), true
	}

	p1, p2 := &points[idx], &points[idx+1]
	if p2.Timestamp == p1.Timestamp {
		return float64(*p1.HeartRate), true
	}
	ratio := float64(timeMs-p1.Timestamp) / float64(p2.Timestamp-p1.Timestamp)
	hr1 := float64(*p1.HeartRate)
	hr2 := float64(*p2.HeartRate)
	return hr1 + (hr2-hr1)*ratio, true
}
