package remote

import (
	"fmt"
	"time"

	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// ActivitySummary is the list form of a remote activity. The ID here is
// the server-side identifier.
type ActivitySummary struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Type           string    `json:"type"`
	Visibility     string    `json:"visibility"`
	StartTimestamp int64     `json:"startTimestamp"`
	EndTimestamp   int64     `json:"endTimestamp"`
	Duration       int64     `json:"duration"`
	Distance       float64   `json:"distance"`
	AverageSpeed   float64   `json:"averageSpeed"`
	Weight         *float64  `json:"weight,omitempty"`
	LikesCount     int       `json:"likesCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ActivityDetail is the full form including route points, used for upload
// and for pulling a new activity down.
type ActivityDetail struct {
	ActivitySummary
	RoutePoints []RoutePointDTO `json:"routePoints"`
}

// RoutePointDTO is the wire form of one route point.
type RoutePointDTO struct {
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	Altitude          float64  `json:"altitude"`
	Speed             float32  `json:"speed"`
	Bearing           float32  `json:"bearing"`
	Timestamp         int64    `json:"timestamp"`
	IsPause           bool     `json:"isPause"`
	Provider          string   `json:"provider"`
	Accuracy          float32  `json:"accuracy"`
	VerticalAccuracy  *float32 `json:"verticalAccuracy,omitempty"`
	BearingAccuracy   *float32 `json:"bearingAccuracy,omitempty"`
	SpeedAccuracy     *float32 `json:"speedAccuracy,omitempty"`
	BarometerAltitude *float32 `json:"barometerAltitude,omitempty"`
	HeartRate         *int     `json:"heartRate,omitempty"`
}

// BuildUploadPayload assembles the wire form of a local activity together
// with its points. Uploading an unfinished activity is a caller contract
// violation, so it fails loudly instead of defaulting.
func BuildUploadPayload(activity *models.Activity, points []models.RoutePoint) (*ActivityDetail, error) {
	if !activity.IsFinished {
		return nil, fmt.Errorf("activity %d is not finished, refusing to build upload payload", activity.ID)
	}

	detail := &ActivityDetail{
		ActivitySummary: ActivitySummary{
			Name:           activity.Name,
			Description:    activity.Description,
			Type:           activity.Type,
			Visibility:     activity.Visibility,
			StartTimestamp: activity.StartTimestamp,
			EndTimestamp:   activity.EndTimestamp,
			Duration:       activity.Duration,
			Distance:       activity.Distance,
			AverageSpeed:   activity.AverageSpeed,
			Weight:         activity.Weight,
			CreatedAt:      activity.CreatedAt,
			UpdatedAt:      activity.UpdatedAt,
		},
		RoutePoints: make([]RoutePointDTO, 0, len(points)),
	}
	if activity.RemoteID != nil {
		detail.ID = *activity.RemoteID
	}

	for i := range points {
		detail.RoutePoints = append(detail.RoutePoints, toRoutePointDTO(&points[i]))
	}
	return detail, nil
}

// ToActivity converts a remote summary into a local activity record. The
// caller fills in the local primary key; the summary's ID becomes the
// remote identifier.
func (s *ActivitySummary) ToActivity() models.Activity {
	remoteID := s.ID
	return models.Activity{
		RemoteID:       &remoteID,
		IsFinished:     true,
		Name:           s.Name,
		Description:    s.Description,
		Type:           s.Type,
		Visibility:     s.Visibility,
		StartTimestamp: s.StartTimestamp,
		EndTimestamp:   s.EndTimestamp,
		Duration:       s.Duration,
		Distance:       s.Distance,
		AverageSpeed:   s.AverageSpeed,
		Weight:         s.Weight,
		LikesCount:     s.LikesCount,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// ToRoutePoints converts the detail's points into local records bound to
// the given local activity.
func (d *ActivityDetail) ToRoutePoints(activityID int64) []models.RoutePoint {
	points := make([]models.RoutePoint, 0, len(d.RoutePoints))
	for _, dto := range d.RoutePoints {
		points = append(points, models.RoutePoint{
			ActivityID:        activityID,
			Latitude:          dto.Latitude,
			Longitude:         dto.Longitude,
			Altitude:          dto.Altitude,
			Speed:             dto.Speed,
			Bearing:           dto.Bearing,
			Timestamp:         dto.Timestamp,
			IsPause:           dto.IsPause,
			Provider:          dto.Provider,
			Accuracy:          dto.Accuracy,
			VerticalAccuracy:  dto.VerticalAccuracy,
			BearingAccuracy:   dto.BearingAccuracy,
			SpeedAccuracy:     dto.SpeedAccuracy,
			BarometerAltitude: dto.BarometerAltitude,
			HeartRate:         dto.HeartRate,
		})
	}
	return points
}

func toRoutePointDTO(p *models.RoutePoint) RoutePointDTO {
	return RoutePointDTO{
		Latitude:          p.Latitude,
		Longitude:         p.Longitude,
		Altitude:          p.Altitude,
		Speed:             p.Speed,
		Bearing:           p.Bearing,
		Timestamp:         p.Timestamp,
		IsPause:           p.IsPause,
		Provider:          p.Provider,
		Accuracy:          p.Accuracy,
		VerticalAccuracy:  p.VerticalAccuracy,
		BearingAccuracy:   p.BearingAccuracy,
		SpeedAccuracy:     p.SpeedAccuracy,
		BarometerAltitude: p.BarometerAltitude,
		HeartRate:         p.HeartRate,
	}
}
