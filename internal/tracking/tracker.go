package tracking

import (
	"context"
	"log"

	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// PointStore is the slice of the storage collaborator the tracker needs:
// incremental persistence of accepted points.
type PointStore interface {
	InsertPoints(points []models.RoutePoint) error
}

// Tracker is the ingestion pipeline for one recording. It consumes the
// location and sensor streams in a single goroutine, validates each fix,
// appends accepted points to the buffer and persists them incrementally.
type Tracker struct {
	activityID int64
	validator  *Validator
	buffer     *Buffer
	store      PointStore

	location  LocationSource
	heartRate HeartRateSource
	barometer BarometerSource
}

func NewTracker(activityID int64, validator *Validator, buffer *Buffer, store PointStore,
	location LocationSource, heartRate HeartRateSource, barometer BarometerSource) *Tracker {
	return &Tracker{
		activityID: activityID,
		validator:  validator,
		buffer:     buffer,
		store:      store,
		location:   location,
		heartRate:  heartRate,
		barometer:  barometer,
	}
}

// Resume restores an interrupted recording and marks the next accepted
// point as a pause boundary so the downtime does not accrue as active time.
func (t *Tracker) Resume(points []models.RoutePoint) {
	t.buffer.SetPoints(points)
	t.validator.MarkNextPaused()
}

// Run processes the input streams until the context is cancelled or the
// location stream closes. Sensor streams are optional; a nil source is
// simply never selected.
func (t *Tracker) Run(ctx context.Context) error {
	var heartRate <-chan HeartRateReading
	if t.heartRate != nil {
		heartRate = t.heartRate.Readings()
	}
	var barometer <-chan float32
	if t.barometer != nil {
		barometer = t.barometer.Altitudes()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case reading, ok := <-heartRate:
			if !ok {
				heartRate = nil
				continue
			}
			t.validator.SetHeartRate(reading.BPM)

		case altitude, ok := <-barometer:
			if !ok {
				barometer = nil
				continue
			}
			t.validator.SetBarometerAltitude(altitude)

		case sample, ok := <-t.location.Samples():
			if !ok {
				return nil
			}
			t.handleSample(sample)
		}
	}
}

func (t *Tracker) handleSample(sample RawSample) {
	point, reason := t.validator.Validate(sample, t.buffer.Last(), t.activityID)
	if reason != RejectNone {
		log.Printf("Sample rejected: %s", reason)
		t.buffer.SetBadAccuracy(true)
		return
	}
	t.buffer.SetBadAccuracy(false)

	if !t.buffer.Append(*point) {
		return
	}
	if t.store != nil {
		if err := t.store.InsertPoints([]models.RoutePoint{*point}); err != nil {
			log.Printf("Failed to persist point: %v", err)
		}
	}
}
