package parser

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// ImportedTrack is the result of parsing an activity file: the point
// sequence plus whatever summary metadata the file carried.
type ImportedTrack struct {
	Name   string
	Points []models.RoutePoint
}

// TrackParser turns a recorded activity file into route points.
type TrackParser interface {
	ParseData(data []byte) (*ImportedTrack, error)
}

// ParseFile detects the file format by content and parses it.
func ParseFile(filename string) (*ImportedTrack, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseData(data)
}

// ParseData detects the format of raw file data and parses it.
func ParseData(data []byte) (*ImportedTrack, error) {
	p, err := DetectParser(data)
	if err != nil {
		return nil, err
	}
	return p.ParseData(data)
}

// DetectParser picks a parser by sniffing the file contents.
func DetectParser(data []byte) (TrackParser, error) {
	switch {
	case isFIT(data):
		return NewFITParser(), nil
	case isGPX(data):
		return NewGPXParser(), nil
	default:
		return nil, fmt.Errorf("unrecognized track file format")
	}
}

// isFIT checks for the ".FIT" signature at byte 8 of the file header.
func isFIT(data []byte) bool {
	return len(data) > 12 && string(data[8:12]) == ".FIT"
}

func isGPX(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(head, []byte("<gpx"))
}
