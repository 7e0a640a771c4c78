package analysis

import (
	"strings"

	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// Heuristic calorie model for cycling. MET values follow the Compendium of
// Physical Activities speed brackets; heart rate and gender apply bounded
// corrections. The numbers are approximations, not a physiological truth.
const (
	defaultWeightKg    = 70.0
	expectedModerateHR = 140.0
	gravity            = 9.81
	joulesPerKcal      = 4184.0
)

// EstimateCalories returns the estimated energy expenditure in kcal for one
// activity. Missing rider weight defaults to 70kg. A nil/empty point list
// degrades gracefully: heart-rate and climb corrections are simply skipped.
func EstimateCalories(activity *models.Activity, points []models.RoutePoint, gender string) float64 {
	weightKg := defaultWeightKg
	if activity.Weight != nil && *activity.Weight > 0 {
		weightKg = *activity.Weight
	}

	durationHours := float64(activity.Duration) / 1000.0 / 3600.0

	avgHeartRate := averageHeartRate(points)
	altitudeGain := positiveAltitudeGain(points)

	base := baseCaloriesByMET(weightKg, activity.AverageSpeed*3.6, durationHours, avgHeartRate, gender)

	return base + altitudeCalories(weightKg, altitudeGain)
}

func baseCaloriesByMET(weightKg, averageSpeedKmh, durationHours float64, averageHeartRate *float64, gender string) float64 {
	var met float64
	switch {
	case averageSpeedKmh < 16:
		met = 4.0
	case averageSpeedKmh < 19:
		met = 6.0
	case averageSpeedKmh < 22:
		met = 8.0
	case averageSpeedKmh < 26:
		met = 10.0
	default:
		met = 15.8
	}

	// Correct for observed intensity, bounded to ±20%.
	hrFactor := 1.0
	if averageHeartRate != nil {
		hrFactor = clamp(1+(*averageHeartRate-expectedModerateHR)/100.0, 0.8, 1.2)
	}

	genderFactor := 1.0
	if strings.EqualFold(gender, "female") {
		genderFactor = 0.95
	}

	return met * hrFactor * weightKg * durationHours * genderFactor
}

// altitudeCalories converts the work done against gravity (W = m*g*h) into
// kilocalories.
func altitudeCalories(weightKg, altitudeGainMeters float64) float64 {
	return weightKg * gravity * altitudeGainMeters / joulesPerKcal
}

// positiveAltitudeGain sums only upward deltas between neighbouring points.
func positiveAltitudeGain(points []models.RoutePoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		if diff := points[i].Altitude - points[i-1].Altitude; diff > 0 {
			total += diff
		}
	}
	return total
}

func averageHeartRate(points []models.RoutePoint) *float64 {
	var sum, count int
	for i := range points {
		if points[i].HasHeartRate() {
			sum += *points[i].HeartRate
			count++
		}
	}
	if count == 0 {
		return nil
	}
	avg := float64(sum) / float64(count)
	return &avg
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
