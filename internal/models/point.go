package models

import "math"

const earthRadiusMeters = 6371000.0

// RoutePoint is one accepted positioning sample belonging to an activity.
// Optional sensor readings are pointers; nil means the sensor did not report.
type RoutePoint struct {
	ID         int64   `json:"id"`
	ActivityID int64   `json:"activityId"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Altitude   float64 `json:"altitude"`  // meters
	Speed      float32 `json:"speed"`     // m/s
	Bearing    float32 `json:"bearing"`   // degrees
	Timestamp  int64   `json:"timestamp"` // epoch millis
	IsPause    bool    `json:"isPause"`
	Provider   string  `json:"provider"`

	Accuracy         float32  `json:"accuracy"` // horizontal, meters
	VerticalAccuracy *float32 `json:"verticalAccuracy,omitempty"`
	BearingAccuracy  *float32 `json:"bearingAccuracy,omitempty"`
	SpeedAccuracy    *float32 `json:"speedAccuracy,omitempty"`

	BarometerAltitude *float32 `json:"barometerAltitude,omitempty"`
	HeartRate         *int     `json:"heartRate,omitempty"` // bpm
}

// DistanceTo returns the great-circle distance in meters between two points.
func (p *RoutePoint) DistanceTo(other *RoutePoint) float64 {
	return Haversine(p.Latitude, p.Longitude, other.Latitude, other.Longitude)
}

// Haversine computes the great-circle distance in meters between two
// lat/lon pairs given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// HasHeartRate reports whether the point carries a usable heart-rate sample.
func (p *RoutePoint) HasHeartRate() bool {
	return p.HeartRate != nil && *p.HeartRate > 0
}
