package parser

import (
	"bytes"
	"fmt"
	"math"

	"github.com/tormoder/fit"

	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

type FITParser struct{}

func NewFITParser() *FITParser {
	return &FITParser{}
}

func (p *FITParser) ParseData(data []byte) (*ImportedTrack, error) {
	fitFile, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode FIT file: %w", err)
	}

	activity, err := fitFile.Activity()
	if err != nil {
		return nil, fmt.Errorf("failed to get activity from FIT: %w", err)
	}

	result := &ImportedTrack{}
	for _, record := range activity.Records {
		if record == nil {
			continue
		}

		lat := record.PositionLat.Degrees()
		lon := record.PositionLong.Degrees()
		if math.IsNaN(lat) || math.IsNaN(lon) {
			continue
		}

		point := models.RoutePoint{
			Latitude:  lat,
			Longitude: lon,
			Altitude:  record.GetAltitudeScaled(),
			Timestamp: record.Timestamp.UnixMilli(),
			Provider:  "fit",
		}

		// 0xFFFF marks an absent speed reading.
		if record.Speed != 65535 {
			point.Speed = float32(record.GetSpeedScaled())
		}

		// 0xFF marks an absent heart-rate reading.
		if record.HeartRate != 255 && record.HeartRate > 0 {
			hr := int(record.HeartRate)
			point.HeartRate = &hr
		}

		result.Points = append(result.Points, point)
	}

	if len(result.Points) == 0 {
		return nil, fmt.Errorf("no positioned records found in FIT file")
	}
	return result, nil
}
