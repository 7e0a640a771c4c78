package tracking

import (
	"math"
	"time"

	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// RawSample is one unvalidated fix as delivered by a LocationSource.
type RawSample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	Speed     float32 `json:"speed"`     // m/s
	Bearing   float32 `json:"bearing"`
	Accuracy  float32 `json:"accuracy"`  // horizontal, meters
	Timestamp int64   `json:"timestamp"` // epoch millis reported by the fix
	Provider  string  `json:"provider"`

	VerticalAccuracy *float32 `json:"verticalAccuracy,omitempty"`
	BearingAccuracy  *float32 `json:"bearingAccuracy,omitempty"`
	SpeedAccuracy    *float32 `json:"speedAccuracy,omitempty"`
}

// ValidatorConfig holds the plausibility thresholds for incoming samples.
type ValidatorConfig struct {
	MinimumAccuracy    float32       // worst acceptable horizontal accuracy, meters
	MaxSpeed           float32       // absolute speed ceiling, m/s
	MaxSpeedChange     float32       // max delta between consecutive samples, m/s
	StartMaxSpeed      float32       // cap for the very first fix, m/s
	StaleDataThreshold time.Duration // max clock skew between fix and now
	AutoPause          bool          // flag points below IdleSpeedThreshold as paused
	IdleSpeedThreshold float32       // m/s
	HeartRateFreshness time.Duration // discard HR readings older than this
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MinimumAccuracy:    15,
		MaxSpeed:           84, // ~300 km/h
		MaxSpeedChange:     15,
		StartMaxSpeed:      10,
		StaleDataThreshold: 5 * time.Second,
		IdleSpeedThreshold: 0.5,
		HeartRateFreshness: 10 * time.Second,
	}
}

// RejectReason explains why a sample was dropped. Rejection is the expected
// steady-state response to noisy input, not an error.
type RejectReason string

const (
	RejectNone          RejectReason = ""
	RejectBadAccuracy   RejectReason = "bad accuracy"
	RejectSpeedJump     RejectReason = "speed change too large"
	RejectDistanceJump  RejectReason = "implausible jump"
	RejectFastFirstFix  RejectReason = "first fix too fast"
	RejectAbsoluteSpeed RejectReason = "speed above ceiling"
	RejectStale         RejectReason = "stale fix"
)

// Validator turns raw samples into route points, silently dropping
// physically implausible input. It also carries the freshest heart-rate and
// barometer readings so accepted points get them attached.
//
// Validator is not safe for concurrent use; the ingestion loop is the
// single caller.
type Validator struct {
	cfg ValidatorConfig
	now func() time.Time

	pendingPause bool

	lastHeartRate   *int
	lastHeartRateAt time.Time

	barometerAltitude *float32
}

func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{cfg: cfg, now: time.Now}
}

// Validate applies the rejection rules in order against the previously
// accepted point. On acceptance it returns the assembled RoutePoint; on
// rejection it returns the reason and a nil point.
func (v *Validator) Validate(sample RawSample, prev *models.RoutePoint, activityID int64) (*models.RoutePoint, RejectReason) {
	now := v.now()

	if sample.Accuracy > v.cfg.MinimumAccuracy {
		return nil, RejectBadAccuracy
	}

	if prev != nil {
		speedChange := float32(math.Abs(float64(sample.Speed - prev.Speed)))
		if speedChange > v.cfg.MaxSpeedChange {
			return nil, RejectSpeedJump
		}

		distance := models.Haversine(prev.Latitude, prev.Longitude, sample.Latitude, sample.Longitude)
		elapsedSec := float64(now.UnixMilli()-prev.Timestamp) / 1000.0
		if distance > float64(v.cfg.MaxSpeed)*elapsedSec {
			return nil, RejectDistanceJump
		}
	} else if sample.Speed > v.cfg.StartMaxSpeed {
		return nil, RejectFastFirstFix
	}

	if sample.Speed > v.cfg.MaxSpeed {
		return nil, RejectAbsoluteSpeed
	}

	skew := time.Duration(math.Abs(float64(sample.Timestamp-now.UnixMilli()))) * time.Millisecond
	if skew > v.cfg.StaleDataThreshold {
		return nil, RejectStale
	}

	isPause := v.pendingPause
	if v.cfg.AutoPause {
		isPause = sample.Speed < v.cfg.IdleSpeedThreshold
	}
	v.pendingPause = false

	point := &models.RoutePoint{
		ActivityID:        activityID,
		Latitude:          sample.Latitude,
		Longitude:         sample.Longitude,
		Altitude:          sample.Altitude,
		Speed:             sample.Speed,
		Bearing:           sample.Bearing,
		Timestamp:         now.UnixMilli(),
		IsPause:           isPause,
		Provider:          sample.Provider,
		Accuracy:          sample.Accuracy,
		VerticalAccuracy:  sample.VerticalAccuracy,
		BearingAccuracy:   sample.BearingAccuracy,
		SpeedAccuracy:     sample.SpeedAccuracy,
		BarometerAltitude: v.barometerAltitude,
		HeartRate:         v.freshHeartRate(now),
	}
	return point, RejectNone
}

// SetHeartRate records the latest heart-rate reading. Readings expire after
// the configured freshness window.
func (v *Validator) SetHeartRate(bpm int) {
	v.lastHeartRate = &bpm
	v.lastHeartRateAt = v.now()
}

// SetBarometerAltitude records the latest barometric altitude.
func (v *Validator) SetBarometerAltitude(meters float32) {
	v.barometerAltitude = &meters
}

// MarkNextPaused flags the next accepted point as a pause boundary, used
// when recording resumes so the gap does not count as active time.
func (v *Validator) MarkNextPaused() {
	v.pendingPause = true
}

func (v *Validator) freshHeartRate(now time.Time) *int {
	if v.lastHeartRate == nil || now.Sub(v.lastHeartRateAt) > v.cfg.HeartRateFreshness {
		return nil
	}
	hr := *v.lastHeartRate
	return &hr
}
