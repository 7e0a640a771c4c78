package database

import (
	"errors"

	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Storage is the local persistence collaborator consumed by the tracker and
// the sync engine.
type Storage interface {
	// Activities
	InsertActivity(activity *models.Activity) (int64, error)
	UpdateActivity(activity *models.Activity) error
	DeleteActivity(id int64) error
	MarkActivityDeleted(id int64) error
	MarkActivityFinished(id int64) error
	GetActivity(id int64) (*models.Activity, error)
	GetActivityByRemoteID(remoteID int64) (*models.Activity, error)
	// PendingActivities returns finished activities that either have no
	// remote id yet or carry a tombstone.
	PendingActivities() ([]models.Activity, error)
	AllActivities() ([]models.Activity, error)
	UnfinishedActivity() (*models.Activity, error)

	// Route points
	InsertPoints(points []models.RoutePoint) error
	PointsForActivity(activityID int64) ([]models.RoutePoint, error)

	Close() error
}
