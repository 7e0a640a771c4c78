package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridetrackapp/ridetrack-go/internal/database"
	"github.com/ridetrackapp/ridetrack-go/internal/models"
	"github.com/ridetrackapp/ridetrack-go/internal/remote"
)

// mockStorage is an in-memory Storage backed by a map, enough for the
// engine's reconciliation paths.
type mockStorage struct {
	activities map[int64]*models.Activity
	points     map[int64][]models.RoutePoint
	nextID     int64
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		activities: make(map[int64]*models.Activity),
		points:     make(map[int64][]models.RoutePoint),
		nextID:     1,
	}
}

func (m *mockStorage) InsertActivity(activity *models.Activity) (int64, error) {
	id := m.nextID
	m.nextID++
	stored := *activity
	stored.ID = id
	m.activities[id] = &stored
	return id, nil
}

func (m *mockStorage) UpdateActivity(activity *models.Activity) error {
	if _, ok := m.activities[activity.ID]; !ok {
		return database.ErrNotFound
	}
	stored := *activity
	m.activities[activity.ID] = &stored
	return nil
}

func (m *mockStorage) DeleteActivity(id int64) error {
	delete(m.activities, id)
	delete(m.points, id)
	return nil
}

func (m *mockStorage) MarkActivityDeleted(id int64) error {
	a, ok := m.activities[id]
	if !ok {
		return database.ErrNotFound
	}
	a.IsDeleted = true
	return nil
}

func (m *mockStorage) MarkActivityFinished(id int64) error {
	a, ok := m.activities[id]
	if !ok {
		return database.ErrNotFound
	}
	a.IsFinished = true
	return nil
}

func (m *mockStorage) GetActivity(id int64) (*models.Activity, error) {
	a, ok := m.activities[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockStorage) GetActivityByRemoteID(remoteID int64) (*models.Activity, error) {
	for _, a := range m.activities {
		if a.RemoteID != nil && *a.RemoteID == remoteID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockStorage) PendingActivities() ([]models.Activity, error) {
	var out []models.Activity
	for _, a := range m.activities {
		if a.IsFinished && (a.RemoteID == nil || a.IsDeleted) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockStorage) AllActivities() ([]models.Activity, error) {
	var out []models.Activity
	for _, a := range m.activities {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockStorage) UnfinishedActivity() (*models.Activity, error) {
	for _, a := range m.activities {
		if !a.IsFinished && !a.IsDeleted {
			copied := *a
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *mockStorage) InsertPoints(points []models.RoutePoint) error {
	for _, p := range points {
		m.points[p.ActivityID] = append(m.points[p.ActivityID], p)
	}
	return nil
}

func (m *mockStorage) PointsForActivity(activityID int64) ([]models.RoutePoint, error) {
	return m.points[activityID], nil
}

func (m *mockStorage) Close() error { return nil }

// mockRemote is a scriptable RemoteAPI over a map of remote activities.
type mockRemote struct {
	remote map[int64]*remote.ActivityDetail
	nextID int64

	listErr   error
	createErr error

	created []int64
	updated []int64
	deleted []int64
}

func newMockRemote() *mockRemote {
	return &mockRemote{
		remote: make(map[int64]*remote.ActivityDetail),
		nextID: 100,
	}
}

func (m *mockRemote) ListActivities(context.Context) ([]remote.ActivitySummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []remote.ActivitySummary
	for _, d := range m.remote {
		out = append(out, d.ActivitySummary)
	}
	return out, nil
}

func (m *mockRemote) GetActivity(_ context.Context, remoteID int64) (*remote.ActivityDetail, error) {
	d, ok := m.remote[remoteID]
	if !ok {
		return nil, &remote.APIError{StatusCode: 404, Message: "not found"}
	}
	return d, nil
}

func (m *mockRemote) CreateActivity(_ context.Context, detail *remote.ActivityDetail) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	id := m.nextID
	m.nextID++
	stored := *detail
	stored.ID = id
	m.remote[id] = &stored
	m.created = append(m.created, id)
	return id, nil
}

func (m *mockRemote) UpdateActivity(_ context.Context, remoteID int64, detail *remote.ActivityDetail) error {
	if _, ok := m.remote[remoteID]; !ok {
		return &remote.APIError{StatusCode: 404, Message: "not found"}
	}
	stored := *detail
	stored.ID = remoteID
	m.remote[remoteID] = &stored
	m.updated = append(m.updated, remoteID)
	return nil
}

func (m *mockRemote) DeleteActivity(_ context.Context, remoteID int64) error {
	delete(m.remote, remoteID)
	m.deleted = append(m.deleted, remoteID)
	return nil
}

func finishedActivity(name string, updatedAt time.Time) *models.Activity {
	return &models.Activity{
		Name:       name,
		Type:       "cycling",
		Visibility: "private",
		IsFinished: true,
		Duration:   600_000,
		Distance:   5000,
		CreatedAt:  updatedAt,
		UpdatedAt:  updatedAt,
	}
}

func TestSync_NewLocalActivityAcquiresRemoteID(t *testing.T) {
	store := newMockStorage()
	api := newMockRemote()
	engine := NewEngine(store, api)

	now := time.Now().Truncate(time.Millisecond)
	id, err := store.InsertActivity(finishedActivity("morning ride", now))
	require.NoError(t, err)
	require.NoError(t, store.InsertPoints([]models.RoutePoint{{ActivityID: id, Latitude: 55.75}}))

	require.NoError(t, engine.Sync(context.Background()))

	local, err := store.GetActivity(id)
	require.NoError(t, err)
	require.NotNil(t, local.RemoteID)
	assert.Len(t, api.created, 1)

	uploaded := api.remote[*local.RemoteID]
	require.NotNil(t, uploaded)
	assert.Equal(t, "morning ride", uploaded.Name)
	assert.Len(t, uploaded.RoutePoints, 1)

	// A second sync has nothing left to push.
	require.NoError(t, engine.Sync(context.Background()))
	assert.Len(t, api.created, 1)
}

func TestSync_RemoteOnlyActivityCreatedLocally(t *testing.T) {
	store := newMockStorage()
	api := newMockRemote()
	engine := NewEngine(store, api)

	now := time.Now().Truncate(time.Millisecond)
	api.remote[200] = &remote.ActivityDetail{
		ActivitySummary: remote.ActivitySummary{
			ID: 200, Name: "imported", UpdatedAt: now, CreatedAt: now,
		},
		RoutePoints: []remote.RoutePointDTO{{Latitude: 55.75}, {Latitude: 55.76}},
	}

	require.NoError(t, engine.Sync(context.Background()))

	local, err := store.GetActivityByRemoteID(200)
	require.NoError(t, err)
	assert.Equal(t, "imported", local.Name)
	assert.True(t, local.IsFinished)

	points, err := store.PointsForActivity(local.ID)
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestSync_RemoteNewerOverwritesLocal(t *testing.T) {
	store := newMockStorage()
	api := newMockRemote()
	engine := NewEngine(store, api)

	older := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	newer := older.Add(30 * time.Minute)

	local := finishedActivity("old name", older)
	remoteID := int64(300)
	local.RemoteID = &remoteID
	id, err := store.InsertActivity(local)
	require.NoError(t, err)

	api.remote[300] = &remote.ActivityDetail{
		ActivitySummary: remote.ActivitySummary{
			ID: 300, Name: "renamed on server", UpdatedAt: newer,
		},
	}

	require.NoError(t, engine.Sync(context.Background()))

	got, err := store.GetActivity(id)
	require.NoError(t, err)
	assert.Equal(t, "renamed on server", got.Name)
	assert.Equal(t, id, got.ID, "local primary key survives the overwrite")
	assert.Empty(t, api.updated)
}

func TestSync_LocalNewerPushesUpdate(t *testing.T) {
	store := newMockStorage()
	api := newMockRemote()
	engine := NewEngine(store, api)

	older := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	newer := older.Add(30 * time.Minute)

	local := finishedActivity("renamed locally", newer)
	remoteID := int64(300)
	local.RemoteID = &remoteID
	_, err := store.InsertActivity(local)
	require.NoError(t, err)

	api.remote[300] = &remote.ActivityDetail{
		ActivitySummary: remote.ActivitySummary{ID: 300, Name: "stale", UpdatedAt: older},
	}

	require.NoError(t, engine.Sync(context.Background()))

	require.Len(t, api.updated, 1)
	assert.Equal(t, "renamed locally", api.remote[300].Name)
}

func TestSync_EqualClocksSyncLikesOnly(t *testing.T) {
	store := newMockStorage()
	api := newMockRemote()
	engine := NewEngine(store, api)

	now := time.Now().Truncate(time.Millisecond)
	local := finishedActivity("ride", now)
	remoteID := int64(300)
	local.RemoteID = &remoteID
	local.LikesCount = 2
	id, err := store.InsertActivity(local)
	require.NoError(t, err)

	api.remote[300] = &remote.ActivityDetail{
		ActivitySummary: remote.ActivitySummary{
			ID: 300, Name: "ride", UpdatedAt: now, LikesCount: 7,
		},
	}

	require.NoError(t, engine.Sync(context.Background()))

	got, err := store.GetActivity(id)
	require.NoError(t, err)
	assert.Equal(t, 7, got.LikesCount)
	assert.Equal(t, "ride", got.Name)
	assert.Empty(t, api.updated)
}

func TestSync_TombstonePropagatesAndConverges(t *testing.T) {
	store := newMockStorage()
	api := newMockRemote()
	engine := NewEngine(store, api)

	now := time.Now().Truncate(time.Millisecond)
	local := finishedActivity("to delete", now)
	remoteID := int64(300)
	local.RemoteID = &remoteID
	local.IsDeleted = true
	id, err := store.InsertActivity(local)
	require.NoError(t, err)

	api.remote[300] = &remote.ActivityDetail{
		ActivitySummary: remote.ActivitySummary{ID: 300, Name: "to delete", UpdatedAt: now},
	}

	require.NoError(t, engine.Sync(context.Background()))

	assert.Equal(t, []int64{300}, api.deleted)
	_, err = store.GetActivity(id)
	assert.ErrorIs(t, err, database.ErrNotFound)

	// A follow-up sync sees both sides empty.
	require.NoError(t, engine.Sync(context.Background()))
	assert.Empty(t, api.remote)
	all, err := store.AllActivities()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSync_UnsyncedTombstoneRemovedLocally(t *testing.T) {
	store := newMockStorage()
	api := newMockRemote()
	engine := NewEngine(store, api)

	local := finishedActivity("never uploaded", time.Now())
	local.IsDeleted = true
	id, err := store.InsertActivity(local)
	require.NoError(t, err)

	require.NoError(t, engine.Sync(context.Background()))

	_, err = store.GetActivity(id)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.Empty(t, api.deleted)
}

func TestSync_VanishedRemoteDeletesLocalCopy(t *testing.T) {
	store := newMockStorage()
	api := newMockRemote()
	engine := NewEngine(store, api)

	local := finishedActivity("deleted elsewhere", time.Now())
	remoteID := int64(999)
	local.RemoteID = &remoteID
	id, err := store.InsertActivity(local)
	require.NoError(t, err)

	require.NoError(t, engine.Sync(context.Background()))

	_, err = store.GetActivity(id)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSync_PushFailureDoesNotFailSync(t *testing.T) {
	store := newMockStorage()
	api := newMockRemote()
	api.createErr = errors.New("server unavailable")
	engine := NewEngine(store, api)

	id, err := store.InsertActivity(finishedActivity("ride", time.Now()))
	require.NoError(t, err)

	require.NoError(t, engine.Sync(context.Background()))

	// The record stays pending for the next attempt.
	local, err := store.GetActivity(id)
	require.NoError(t, err)
	assert.Nil(t, local.RemoteID)

	api.createErr = nil
	require.NoError(t, engine.Sync(context.Background()))
	local, err = store.GetActivity(id)
	require.NoError(t, err)
	assert.NotNil(t, local.RemoteID)
}

func TestSync_PullFailureFailsSync(t *testing.T) {
	store := newMockStorage()
	api := newMockRemote()
	api.listErr = errors.New("network down")
	engine := NewEngine(store, api)

	err := engine.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "list remote activities")
}

func TestSync_ConcurrentRunRefused(t *testing.T) {
	engine := NewEngine(newMockStorage(), newMockRemote())

	engine.busy.Store(true)
	assert.ErrorIs(t, engine.Sync(context.Background()), ErrSyncInProgress)

	engine.busy.Store(false)
	assert.NoError(t, engine.Sync(context.Background()))
}

func TestSync_UnfinishedActivityNotPushed(t *testing.T) {
	store := newMockStorage()
	api := newMockRemote()
	engine := NewEngine(store, api)

	recording := finishedActivity("in progress", time.Now())
	recording.IsFinished = false
	_, err := store.InsertActivity(recording)
	require.NoError(t, err)

	require.NoError(t, engine.Sync(context.Background()))
	assert.Empty(t, api.created)
}
