package tracking

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridetrackapp/ridetrack-go/internal/database"
	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// fakeRecorderStore is a map-backed RecorderStore. The tracker goroutine
// persists points concurrently with test assertions, so access is locked.
type fakeRecorderStore struct {
	mu         sync.Mutex
	activities map[int64]*models.Activity
	points     map[int64][]models.RoutePoint
	nextID     int64
}

func newFakeRecorderStore() *fakeRecorderStore {
	return &fakeRecorderStore{
		activities: make(map[int64]*models.Activity),
		points:     make(map[int64][]models.RoutePoint),
	}
}

func (s *fakeRecorderStore) InsertActivity(activity *models.Activity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	activity.ID = s.nextID
	stored := *activity
	s.activities[activity.ID] = &stored
	return activity.ID, nil
}

func (s *fakeRecorderStore) UpdateActivity(activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *activity
	s.activities[activity.ID] = &stored
	return nil
}

func (s *fakeRecorderStore) UnfinishedActivity() (*models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, activity := range s.activities {
		if !activity.IsFinished && !activity.IsDeleted {
			found := *activity
			return &found, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeRecorderStore) PointsForActivity(activityID int64) ([]models.RoutePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RoutePoint(nil), s.points[activityID]...), nil
}

func (s *fakeRecorderStore) InsertPoints(points []models.RoutePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, point := range points {
		s.points[point.ActivityID] = append(s.points[point.ActivityID], point)
	}
	return nil
}

func (s *fakeRecorderStore) activity(id int64) models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.activities[id]
}

func (s *fakeRecorderStore) pointCount(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points[id])
}

func newTestRecorder(store *fakeRecorderStore, cfg ValidatorConfig) *Recorder {
	recorder := NewRecorder(store, cfg, models.Rider{WeightKg: 70, Gender: "male"})
	recorder.now = steppingClock(time.Now())
	return recorder
}

// rideSamples returns n plausible fixes one second and ~5 meters apart,
// timed to match a stepping validator clock.
func rideSamples(base time.Time, n int) []RawSample {
	samples := make([]RawSample, n)
	for i := range samples {
		sample := goodSample(base.Add(time.Duration(i+1) * time.Second))
		sample.Latitude += float64(i) * 5 / metersPerLatDegree
		samples[i] = sample
	}
	return samples
}

func waitForPoints(t *testing.T, recorder *Recorder, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return recorder.Status().Points == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRecorder_StartIngestStop(t *testing.T) {
	store := newFakeRecorderStore()
	recorder := newTestRecorder(store, DefaultValidatorConfig())

	base := time.Now()
	activity, err := recorder.Start("Morning ride")
	require.NoError(t, err)
	require.NotZero(t, activity.ID)
	assert.False(t, activity.IsFinished)
	require.NotNil(t, activity.Weight)
	assert.Equal(t, 70.0, *activity.Weight)

	for _, sample := range rideSamples(base, 3) {
		require.NoError(t, recorder.Ingest(sample))
	}
	waitForPoints(t, recorder, 3)

	status := recorder.Status()
	assert.True(t, status.Recording)
	assert.Equal(t, activity.ID, status.ActivityID)
	assert.InDelta(t, 10.0, status.Stats.Distance, 0.1)

	finished, err := recorder.Stop()
	require.NoError(t, err)
	assert.True(t, finished.IsFinished)
	assert.InDelta(t, 10.0, finished.Distance, 0.1)
	assert.Greater(t, finished.AverageSpeed, 0.0)
	assert.Greater(t, finished.EndTimestamp, finished.StartTimestamp)

	stored := store.activity(activity.ID)
	assert.True(t, stored.IsFinished)
	assert.Equal(t, 3, store.pointCount(activity.ID))
	assert.False(t, recorder.Status().Recording)
}

func TestRecorder_ConfiguredThresholdsApplied(t *testing.T) {
	cfg := DefaultValidatorConfig()
	cfg.MinimumAccuracy = 5 // stricter than the 8m fix below

	store := newFakeRecorderStore()
	recorder := newTestRecorder(store, cfg)

	_, err := recorder.Start("")
	require.NoError(t, err)

	require.NoError(t, recorder.Ingest(goodSample(time.Now().Add(time.Second))))

	require.Eventually(t, func() bool {
		return recorder.Status().BadAccuracy
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, recorder.Status().Points)
}

func TestRecorder_SingleRecordingAtATime(t *testing.T) {
	store := newFakeRecorderStore()
	recorder := newTestRecorder(store, DefaultValidatorConfig())

	_, err := recorder.Start("first")
	require.NoError(t, err)

	_, err = recorder.Start("second")
	assert.ErrorIs(t, err, ErrAlreadyRecording)

	_, err = recorder.Resume()
	assert.ErrorIs(t, err, ErrAlreadyRecording)
}

func TestRecorder_IngestWithoutRecording(t *testing.T) {
	recorder := newTestRecorder(newFakeRecorderStore(), DefaultValidatorConfig())

	assert.ErrorIs(t, recorder.Ingest(goodSample(time.Now())), ErrNotRecording)
	assert.ErrorIs(t, recorder.IngestHeartRate(HeartRateReading{BPM: 120}), ErrNotRecording)

	_, err := recorder.Stop()
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestRecorder_ResumeRestoresInterruptedRecording(t *testing.T) {
	store := newFakeRecorderStore()
	base := time.Now()

	unfinished := &models.Activity{Name: "interrupted", Type: "ride"}
	id, err := store.InsertActivity(unfinished)
	require.NoError(t, err)
	require.NoError(t, store.InsertPoints([]models.RoutePoint{
		{ActivityID: id, Latitude: 55.75, Longitude: 37.61, Speed: 5, Timestamp: base.Add(-time.Hour).UnixMilli()},
		{ActivityID: id, Latitude: 55.75 + 5/metersPerLatDegree, Longitude: 37.61, Speed: 5, Timestamp: base.Add(-time.Hour + time.Second).UnixMilli()},
	}))

	recorder := newTestRecorder(store, DefaultValidatorConfig())
	recorder.now = steppingClock(base)

	activity, err := recorder.Resume()
	require.NoError(t, err)
	assert.Equal(t, id, activity.ID)

	status := recorder.Status()
	assert.True(t, status.Recording)
	assert.Equal(t, 2, status.Points)

	// The first fix after the gap lands as a pause boundary.
	sample := goodSample(base.Add(time.Second))
	sample.Latitude += 20 / metersPerLatDegree
	require.NoError(t, recorder.Ingest(sample))
	waitForPoints(t, recorder, 3)

	points, err := store.PointsForActivity(id)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.True(t, points[2].IsPause)
}

func TestRecorder_ResumeWithoutUnfinishedActivity(t *testing.T) {
	recorder := newTestRecorder(newFakeRecorderStore(), DefaultValidatorConfig())

	_, err := recorder.Resume()
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRecorder_HeartRateSensorState(t *testing.T) {
	store := newFakeRecorderStore()
	recorder := newTestRecorder(store, DefaultValidatorConfig())

	assert.Equal(t, "disconnected", recorder.Status().HeartRateSensor)

	base := time.Now()
	_, err := recorder.Start("")
	require.NoError(t, err)
	assert.Equal(t, "disconnected", recorder.Status().HeartRateSensor)

	require.NoError(t, recorder.IngestHeartRate(HeartRateReading{BPM: 132}))
	assert.Equal(t, "streaming", recorder.Status().HeartRateSensor)

	require.NoError(t, recorder.Ingest(goodSample(base.Add(2*time.Second))))
	waitForPoints(t, recorder, 1)

	_, err = recorder.Stop()
	require.NoError(t, err)
	assert.Equal(t, "disconnected", recorder.Status().HeartRateSensor)
}

func TestRecorder_ShutdownLeavesActivityUnfinished(t *testing.T) {
	store := newFakeRecorderStore()
	recorder := newTestRecorder(store, DefaultValidatorConfig())

	activity, err := recorder.Start("cut short")
	require.NoError(t, err)
	require.NoError(t, recorder.Ingest(goodSample(time.Now().Add(time.Second))))
	waitForPoints(t, recorder, 1)

	recorder.Shutdown()

	stored := store.activity(activity.ID)
	assert.False(t, stored.IsFinished)
	assert.False(t, recorder.Status().Recording)

	// A fresh recorder picks the interrupted recording back up.
	again := newTestRecorder(store, DefaultValidatorConfig())
	resumed, err := again.Resume()
	require.NoError(t, err)
	assert.Equal(t, activity.ID, resumed.ID)
	assert.Equal(t, 1, again.Status().Points)
	again.Shutdown()
}