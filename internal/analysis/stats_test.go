package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// metersPerLatDegree converts a northward offset in meters to degrees of
// latitude for the spherical earth model used by Haversine.
const metersPerLatDegree = 111194.93

func pointAt(tMillis int64, northMeters float64, speed float32, pause bool) models.RoutePoint {
	return models.RoutePoint{
		Latitude:  northMeters / metersPerLatDegree,
		Longitude: 0,
		Speed:     speed,
		Timestamp: tMillis,
		IsPause:   pause,
	}
}

func TestCalculateTrackingStats_Empty(t *testing.T) {
	assert.Equal(t, TrackingStats{}, CalculateTrackingStats(nil))
}

func TestCalculateTrackingStats_AverageSpeedExcludesPause(t *testing.T) {
	// 1000m covered in 200s of active time, interrupted by a 50s pause.
	points := []models.RoutePoint{
		pointAt(0, 0, 5, false),
		pointAt(100_000, 500, 5, false),
		pointAt(150_000, 500, 0, true), // 50s gap flagged as pause
		pointAt(151_000, 500, 1, false),
		pointAt(250_000, 1000, 5, false),
	}

	stats := CalculateTrackingStats(points)

	assert.InDelta(t, 1000, stats.Distance, 1.0)
	assert.Equal(t, int64(50_000), stats.PauseDuration)
	assert.Equal(t, int64(200_000), stats.ActiveDuration)
	assert.InDelta(t, 5.0, stats.AverageSpeed, 0.01)
	assert.Equal(t, float32(5), stats.CurrentSpeed)
}

func TestTotalDistance_SkipsPausedPairs(t *testing.T) {
	// Middle point paused: both adjacent pairs are excluded.
	points := []models.RoutePoint{
		pointAt(0, 0, 2, false),
		pointAt(10_000, 100, 2, true),
		pointAt(20_000, 200, 2, false),
	}

	assert.Zero(t, totalDistance(points))
}

func TestRouteDuration_PauseGaps(t *testing.T) {
	points := []models.RoutePoint{
		pointAt(0, 0, 2, false),
		pointAt(30_000, 100, 2, false),
		pointAt(45_000, 100, 0, true),
		pointAt(60_000, 200, 2, false),
	}

	pause, active := routeDuration(points)
	assert.Equal(t, int64(15_000), pause)
	assert.Equal(t, int64(45_000), active)
}

func TestAnalyze_EmptyInput(t *testing.T) {
	activity := &models.Activity{}

	assert.Equal(t, Result{}, Analyze(activity, nil, ""))
}

func TestAnalyze_AllPaused(t *testing.T) {
	activity := &models.Activity{}
	points := []models.RoutePoint{
		pointAt(0, 0, 0, true),
		pointAt(10_000, 0, 0, true),
	}

	assert.Equal(t, Result{}, Analyze(activity, points, ""))
}

func TestAnalyze_BasicTrack(t *testing.T) {
	activity := &models.Activity{Duration: 200_000, AverageSpeed: 5}
	points := []models.RoutePoint{
		pointAt(0, 0, 4, false),
		pointAt(100_000, 500, 5, false),
		pointAt(200_000, 1000, 6, false),
	}
	points[0].Altitude = 100
	points[1].Altitude = 110
	points[2].Altitude = 105

	result := Analyze(activity, points, "")

	assert.InDelta(t, 1000, result.TotalDistanceMeters, 1.0)
	assert.InDelta(t, 200, result.TotalDurationSeconds, 0.001)
	assert.InDelta(t, 5.0, result.AverageSpeedMps, 0.01)
	assert.Equal(t, 6.0, result.MaxSpeedMps)
	assert.Equal(t, 4.0, result.MinSpeedMps)
	assert.Equal(t, 10.0, result.TotalAltitudeGain)
	assert.Equal(t, 5.0, result.TotalAltitudeLoss)
	assert.Equal(t, 100.0, result.StartAltitude)
	assert.Equal(t, 105.0, result.EndAltitude)
	assert.Equal(t, 110.0, result.MaxAltitude)
	assert.Equal(t, 100.0, result.MinAltitude)
	assert.Equal(t, 10.0, result.AltitudeRange)
	// 200s over 1km
	assert.InDelta(t, 200, result.AveragePaceSecPerKm, 0.5)
	assert.Nil(t, result.AvgHeartRate)
}

func TestAnalyze_HeartRateStats(t *testing.T) {
	activity := &models.Activity{Duration: 100_000}
	hr := func(v int) *int { return &v }
	points := []models.RoutePoint{
		pointAt(0, 0, 4, false),
		pointAt(50_000, 200, 5, false),
		pointAt(100_000, 400, 6, false),
	}
	points[0].HeartRate = hr(120)
	points[1].HeartRate = hr(141)
	points[2].HeartRate = hr(160)

	result := Analyze(activity, points, "")

	require.NotNil(t, result.MinHeartRate)
	require.NotNil(t, result.MaxHeartRate)
	require.NotNil(t, result.AvgHeartRate)
	assert.Equal(t, 120, *result.MinHeartRate)
	assert.Equal(t, 160, *result.MaxHeartRate)
	// (120+141+160)/3 = 140.33, truncated
	assert.Equal(t, 140, *result.AvgHeartRate)
}

func TestGradientPass_RequiresPlausibleSegment(t *testing.T) {
	// Flat track: no segment ever reaches the 2% floor.
	var points []models.RoutePoint
	for i := 0; i < 10; i++ {
		p := pointAt(int64(i)*10_000, float64(i)*50, 5, false)
		p.Altitude = 100
		points = append(points, p)
	}

	_, _, gradient := gradientPass(points)
	assert.Zero(t, gradient)
}

func TestCumulativeDistance_FlatAcrossPauses(t *testing.T) {
	points := []models.RoutePoint{
		pointAt(0, 0, 5, false),
		pointAt(10_000, 100, 5, false),
		pointAt(20_000, 200, 0, true),
		pointAt(30_000, 300, 5, false),
	}

	distances := CumulativeDistance(points)
	require.Len(t, distances, 4)
	assert.Zero(t, distances[0])
	assert.InDelta(t, 100, distances[1], 0.5)
	// paused pairs leave the running total untouched
	assert.InDelta(t, 100, distances[2], 0.5)
	assert.InDelta(t, 100, distances[3], 0.5)
}
