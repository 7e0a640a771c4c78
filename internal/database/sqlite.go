package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// SQLiteDB implements Storage on top of a SQLite file. Timestamps are
// stored as epoch millis so the sync engine's last-writer-wins comparison
// never loses precision to string formatting.
type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	sqlite := &SQLiteDB{db: db}
	if err := sqlite.createTables(); err != nil {
		return nil, err
	}

	return sqlite, nil
}

// NewSQLiteDBFromDB wraps an existing sql.DB connection.
func NewSQLiteDBFromDB(db *sql.DB) (*SQLiteDB, error) {
	sqlite := &SQLiteDB{db: db}
	if err := sqlite.createTables(); err != nil {
		return nil, err
	}
	return sqlite, nil
}

func (s *SQLiteDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		remote_id INTEGER,
		is_finished BOOLEAN NOT NULL DEFAULT FALSE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		visibility TEXT NOT NULL DEFAULT '',
		start_timestamp INTEGER NOT NULL DEFAULT 0,
		end_timestamp INTEGER NOT NULL DEFAULT 0,
		duration INTEGER NOT NULL DEFAULT 0,
		distance REAL NOT NULL DEFAULT 0,
		average_speed REAL NOT NULL DEFAULT 0,
		weight REAL,
		likes_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_activities_remote_id ON activities(remote_id);
	CREATE INDEX IF NOT EXISTS idx_activities_finished ON activities(is_finished);
	CREATE INDEX IF NOT EXISTS idx_activities_deleted ON activities(is_deleted);

	CREATE TABLE IF NOT EXISTS route_points (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		altitude REAL NOT NULL,
		speed REAL NOT NULL,
		bearing REAL NOT NULL,
		timestamp INTEGER NOT NULL,
		is_pause BOOLEAN NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		accuracy REAL NOT NULL DEFAULT 0,
		vertical_accuracy REAL,
		bearing_accuracy REAL,
		speed_accuracy REAL,
		barometer_altitude REAL,
		heart_rate INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_route_points_activity ON route_points(activity_id);
	CREATE INDEX IF NOT EXISTS idx_route_points_timestamp ON route_points(activity_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

const activityColumns = `id, remote_id, is_finished, is_deleted, name, description, type,
	visibility, start_timestamp, end_timestamp, duration, distance, average_speed,
	weight, likes_count, created_at, updated_at`

func (s *SQLiteDB) InsertActivity(activity *models.Activity) (int64, error) {
	query := `
	INSERT INTO activities (
		remote_id, is_finished, is_deleted, name, description, type, visibility,
		start_timestamp, end_timestamp, duration, distance, average_speed,
		weight, likes_count, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.Exec(query,
		nullableInt64(activity.RemoteID), activity.IsFinished, activity.IsDeleted,
		activity.Name, activity.Description, activity.Type, activity.Visibility,
		activity.StartTimestamp, activity.EndTimestamp, activity.Duration,
		activity.Distance, activity.AverageSpeed,
		nullableFloat64(activity.Weight), activity.LikesCount,
		activity.CreatedAt.UnixMilli(), activity.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	activity.ID = id
	return id, nil
}

func (s *SQLiteDB) UpdateActivity(activity *models.Activity) error {
	query := `
	UPDATE activities SET
		remote_id = ?, is_finished = ?, is_deleted = ?, name = ?, description = ?,
		type = ?, visibility = ?, start_timestamp = ?, end_timestamp = ?,
		duration = ?, distance = ?, average_speed = ?, weight = ?,
		likes_count = ?, updated_at = ?
	WHERE id = ?`

	_, err := s.db.Exec(query,
		nullableInt64(activity.RemoteID), activity.IsFinished, activity.IsDeleted,
		activity.Name, activity.Description, activity.Type, activity.Visibility,
		activity.StartTimestamp, activity.EndTimestamp, activity.Duration,
		activity.Distance, activity.AverageSpeed,
		nullableFloat64(activity.Weight), activity.LikesCount,
		activity.UpdatedAt.UnixMilli(), activity.ID,
	)
	return err
}

func (s *SQLiteDB) DeleteActivity(id int64) error {
	_, err := s.db.Exec(`DELETE FROM activities WHERE id = ?`, id)
	return err
}

func (s *SQLiteDB) MarkActivityDeleted(id int64) error {
	_, err := s.db.Exec(
		`UPDATE activities SET is_deleted = TRUE, updated_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), id,
	)
	return err
}

func (s *SQLiteDB) MarkActivityFinished(id int64) error {
	_, err := s.db.Exec(
		`UPDATE activities SET is_finished = TRUE, updated_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), id,
	)
	return err
}

func (s *SQLiteDB) GetActivity(id int64) (*models.Activity, error) {
	row := s.db.QueryRow(`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	return scanActivity(row)
}

func (s *SQLiteDB) GetActivityByRemoteID(remoteID int64) (*models.Activity, error) {
	row := s.db.QueryRow(`SELECT `+activityColumns+` FROM activities WHERE remote_id = ?`, remoteID)
	return scanActivity(row)
}

func (s *SQLiteDB) PendingActivities() ([]models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities
	WHERE is_finished = TRUE AND (remote_id IS NULL OR is_deleted = TRUE)
	ORDER BY start_timestamp`
	return s.queryActivities(query)
}

func (s *SQLiteDB) AllActivities() ([]models.Activity, error) {
	return s.queryActivities(`SELECT ` + activityColumns + ` FROM activities ORDER BY start_timestamp DESC`)
}

func (s *SQLiteDB) UnfinishedActivity() (*models.Activity, error) {
	row := s.db.QueryRow(`SELECT ` + activityColumns + ` FROM activities
		WHERE is_finished = FALSE AND is_deleted = FALSE
		ORDER BY created_at DESC LIMIT 1`)
	return scanActivity(row)
}

func (s *SQLiteDB) InsertPoints(points []models.RoutePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
	INSERT INTO route_points (
		activity_id, latitude, longitude, altitude, speed, bearing, timestamp,
		is_pause, provider, accuracy, vertical_accuracy, bearing_accuracy,
		speed_accuracy, barometer_altitude, heart_rate
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range points {
		p := &points[i]
		_, err := stmt.Exec(
			p.ActivityID, p.Latitude, p.Longitude, p.Altitude, p.Speed,
			p.Bearing, p.Timestamp, p.IsPause, p.Provider, p.Accuracy,
			nullableFloat32(p.VerticalAccuracy), nullableFloat32(p.BearingAccuracy),
			nullableFloat32(p.SpeedAccuracy), nullableFloat32(p.BarometerAltitude),
			nullableInt(p.HeartRate),
		)
		if err != nil {
			return fmt.Errorf("failed to insert point: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteDB) PointsForActivity(activityID int64) ([]models.RoutePoint, error) {
	query := `
	SELECT id, activity_id, latitude, longitude, altitude, speed, bearing,
	       timestamp, is_pause, provider, accuracy, vertical_accuracy,
	       bearing_accuracy, speed_accuracy, barometer_altitude, heart_rate
	FROM route_points WHERE activity_id = ? ORDER BY timestamp`

	rows, err := s.db.Query(query, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.RoutePoint
	for rows.Next() {
		var p models.RoutePoint
		var verticalAcc, bearingAcc, speedAcc, baroAlt sql.NullFloat64
		var heartRate sql.NullInt64

		err := rows.Scan(
			&p.ID, &p.ActivityID, &p.Latitude, &p.Longitude, &p.Altitude,
			&p.Speed, &p.Bearing, &p.Timestamp, &p.IsPause, &p.Provider,
			&p.Accuracy, &verticalAcc, &bearingAcc, &speedAcc, &baroAlt, &heartRate,
		)
		if err != nil {
			return nil, err
		}

		p.VerticalAccuracy = float32Ptr(verticalAcc)
		p.BearingAccuracy = float32Ptr(bearingAcc)
		p.SpeedAccuracy = float32Ptr(speedAcc)
		p.BarometerAltitude = float32Ptr(baroAlt)
		if heartRate.Valid {
			hr := int(heartRate.Int64)
			p.HeartRate = &hr
		}

		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) queryActivities(query string, args ...interface{}) ([]models.Activity, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		activity, err := scanActivityRow(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *activity)
	}
	return activities, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanActivityRow(row rowScanner) (*models.Activity, error) {
	var a models.Activity
	var remoteID sql.NullInt64
	var weight sql.NullFloat64
	var createdAt, updatedAt int64

	err := row.Scan(
		&a.ID, &remoteID, &a.IsFinished, &a.IsDeleted, &a.Name, &a.Description,
		&a.Type, &a.Visibility, &a.StartTimestamp, &a.EndTimestamp, &a.Duration,
		&a.Distance, &a.AverageSpeed, &weight, &a.LikesCount, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if remoteID.Valid {
		id := remoteID.Int64
		a.RemoteID = &id
	}
	if weight.Valid {
		w := weight.Float64
		a.Weight = &w
	}
	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	a.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	return &a, nil
}

func scanActivity(row *sql.Row) (*models.Activity, error) {
	activity, err := scanActivityRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return activity, nil
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat64(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat32(v *float32) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func float32Ptr(v sql.NullFloat64) *float32 {
	if !v.Valid {
		return nil
	}
	f := float32(v.Float64)
	return &f
}
