package models

import "time"

// Activity is one recorded or planned ride. The local primary key (ID) and
// the server-assigned identifier (RemoteID) reference the same logical
// activity; RemoteID is nil until the first successful push.
type Activity struct {
	ID       int64  `json:"id"`
	RemoteID *int64 `json:"remoteId,omitempty"`

	IsFinished bool `json:"isFinished"`
	IsDeleted  bool `json:"isDeleted"` // tombstone, cleared by hard delete

	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Visibility  string `json:"visibility"`

	StartTimestamp int64    `json:"startTimestamp"` // epoch millis
	EndTimestamp   int64    `json:"endTimestamp"`   // epoch millis
	Duration       int64    `json:"duration"`       // active time, millis
	Distance       float64  `json:"distance"`       // meters
	AverageSpeed   float64  `json:"averageSpeed"`   // m/s
	Weight         *float64 `json:"weight,omitempty"` // rider weight, kg

	LikesCount int `json:"likesCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"` // mutation clock for sync
}

// Rider holds profile attributes consumed by the analytics engine.
// Gender is used only for the calorie estimate and is never persisted on
// the activity itself.
type Rider struct {
	WeightKg float64
	Gender   string // "male", "female" or empty when unspecified
}
