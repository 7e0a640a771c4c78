package parser

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// GPX track files carry no speed channel, so speed is recomputed from
// consecutive fixes during import.

type gpxFile struct {
	XMLName xml.Name   `xml:"gpx"`
	Tracks  []gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Name     string       `xml:"name"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Ele  float64 `xml:"ele"`
	Time string  `xml:"time"`
}

type GPXParser struct{}

func NewGPXParser() *GPXParser {
	return &GPXParser{}
}

func (p *GPXParser) ParseData(data []byte) (*ImportedTrack, error) {
	var file gpxFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode GPX file: %w", err)
	}
	if len(file.Tracks) == 0 {
		return nil, fmt.Errorf("no tracks found in GPX file")
	}

	track := file.Tracks[0]
	result := &ImportedTrack{Name: track.Name}

	for _, segment := range track.Segments {
		for _, pt := range segment.Points {
			point := models.RoutePoint{
				Latitude:  pt.Lat,
				Longitude: pt.Lon,
				Altitude:  pt.Ele,
				Provider:  "gpx",
			}
			if pt.Time != "" {
				t, err := time.Parse(time.RFC3339, pt.Time)
				if err != nil {
					return nil, fmt.Errorf("bad trkpt time %q: %w", pt.Time, err)
				}
				point.Timestamp = t.UnixMilli()
			}
			result.Points = append(result.Points, point)
		}
	}

	recomputeSpeeds(result.Points)
	return result, nil
}

// recomputeSpeeds derives per-point speed from the distance and time to the
// previous fix. The first point inherits the second one's speed so the
// series does not start with an artificial zero.
func recomputeSpeeds(points []models.RoutePoint) {
	for i := 1; i < len(points); i++ {
		prev := &points[i-1]
		curr := &points[i]
		dt := float64(curr.Timestamp-prev.Timestamp) / 1000.0
		if dt <= 0 {
			curr.Speed = prev.Speed
			continue
		}
		curr.Speed = float32(prev.DistanceTo(curr) / dt)
	}
	if len(points) > 1 {
		points[0].Speed = points[1].Speed
	}
}
