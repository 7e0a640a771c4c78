package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ridetrackapp/ridetrack-go/internal/analysis"
	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

var (
	ErrNotRecording     = errors.New("no recording in progress")
	ErrAlreadyRecording = errors.New("recording already in progress")

	// ErrIngestBacklog is returned when samples arrive faster than the
	// ingestion loop drains them.
	ErrIngestBacklog = errors.New("sample backlog full")
)

// RecorderStore is the storage slice the recorder needs on top of
// incremental point persistence.
type RecorderStore interface {
	PointStore
	InsertActivity(activity *models.Activity) (int64, error)
	UpdateActivity(activity *models.Activity) error
	UnfinishedActivity() (*models.Activity, error)
	PointsForActivity(activityID int64) ([]models.RoutePoint, error)
}

// Recorder owns the lifecycle of the single in-progress recording: it
// creates the activity row, runs the tracker over push-fed sample streams
// and finalizes the summary fields on stop. At most one recording is
// active at a time.
type Recorder struct {
	store RecorderStore
	cfg   ValidatorConfig
	rider models.Rider
	now   func() time.Time

	mu      sync.Mutex
	session *session
}

type session struct {
	activity  *models.Activity
	buffer    *Buffer
	location  *SampleFeed
	heartRate *HeartRateFeed
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewRecorder(store RecorderStore, cfg ValidatorConfig, rider models.Rider) *Recorder {
	return &Recorder{store: store, cfg: cfg, rider: rider, now: time.Now}
}

// Start creates a new unfinished activity and begins ingesting samples
// for it.
func (r *Recorder) Start(name string) (*models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return nil, ErrAlreadyRecording
	}

	now := r.now()
	if name == "" {
		name = "Ride " + now.Format("2006-01-02 15:04")
	}
	activity := &models.Activity{
		Name:           name,
		Type:           "ride",
		StartTimestamp: now.UnixMilli(),
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	if r.rider.WeightKg > 0 {
		weight := r.rider.WeightKg
		activity.Weight = &weight
	}

	id, err := r.store.InsertActivity(activity)
	if err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	activity.ID = id

	r.startSession(activity, nil)
	return activity, nil
}

// Resume picks up the unfinished activity left by an interrupted run,
// restoring its points so the downtime counts as pause rather than
// riding time.
func (r *Recorder) Resume() (*models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return nil, ErrAlreadyRecording
	}

	activity, err := r.store.UnfinishedActivity()
	if err != nil {
		return nil, err
	}
	points, err := r.store.PointsForActivity(activity.ID)
	if err != nil {
		return nil, fmt.Errorf("load points for activity %d: %w", activity.ID, err)
	}

	r.startSession(activity, points)
	return activity, nil
}

func (r *Recorder) startSession(activity *models.Activity, restored []models.RoutePoint) {
	validator := NewValidator(r.cfg)
	validator.now = r.now
	buffer := NewBuffer()
	location := NewSampleFeed()
	heartRate := NewHeartRateFeed()

	tracker := NewTracker(activity.ID, validator, buffer, r.store, location, heartRate, nil)
	if len(restored) > 0 {
		tracker.Resume(restored)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tracker.Run(ctx)
	}()

	r.session = &session{
		activity:  activity,
		buffer:    buffer,
		location:  location,
		heartRate: heartRate,
		cancel:    cancel,
		done:      done,
	}
}

// Ingest feeds one raw location sample into the running session.
func (r *Recorder) Ingest(sample RawSample) error {
	s := r.current()
	if s == nil {
		return ErrNotRecording
	}
	return s.location.Push(sample)
}

// IngestHeartRate feeds one heart-rate reading into the running session.
func (r *Recorder) IngestHeartRate(reading HeartRateReading) error {
	s := r.current()
	if s == nil {
		return ErrNotRecording
	}
	return s.heartRate.Push(reading)
}

// Status reports the live recording state for display.
type Status struct {
	Recording       bool                   `json:"recording"`
	ActivityID      int64                  `json:"activityId,omitempty"`
	Points          int                    `json:"points"`
	Stats           analysis.TrackingStats `json:"stats"`
	BadAccuracy     bool                   `json:"badAccuracy"`
	HeartRateSensor string                 `json:"heartRateSensor"`
}

func (r *Recorder) Status() Status {
	s := r.current()
	if s == nil {
		return Status{HeartRateSensor: Disconnected.String()}
	}
	return Status{
		Recording:       true,
		ActivityID:      s.activity.ID,
		Points:          s.buffer.Len(),
		Stats:           s.buffer.Stats(),
		BadAccuracy:     s.buffer.BadAccuracy(),
		HeartRateSensor: s.heartRate.State().String(),
	}
}

// Stop ends the recording, fills the activity summary from the
// accumulated points and marks it finished, making it eligible for sync.
func (r *Recorder) Stop() (*models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.session
	if s == nil {
		return nil, ErrNotRecording
	}

	s.cancel()
	<-s.done
	r.session = nil

	points := s.buffer.Points()
	stats := s.buffer.Stats()
	now := r.now()

	activity := s.activity
	activity.IsFinished = true
	activity.EndTimestamp = now.UnixMilli()
	if len(points) > 0 {
		activity.StartTimestamp = points[0].Timestamp
		activity.EndTimestamp = points[len(points)-1].Timestamp
	}
	activity.Duration = stats.ActiveDuration
	activity.Distance = stats.Distance
	activity.AverageSpeed = stats.AverageSpeed
	activity.UpdatedAt = now.UTC()

	if err := r.store.UpdateActivity(activity); err != nil {
		return nil, fmt.Errorf("finalize activity %d: %w", activity.ID, err)
	}
	return activity, nil
}

// Shutdown stops the ingestion loop without finishing the activity, so
// an interrupted recording is resumed on the next start.
func (r *Recorder) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return
	}
	r.session.cancel()
	<-r.session.done
	r.session = nil
}

func (r *Recorder) current() *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}
