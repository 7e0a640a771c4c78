package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/ridetrackapp/ridetrack-go/internal/database"
	"github.com/ridetrackapp/ridetrack-go/internal/models"
	"github.com/ridetrackapp/ridetrack-go/internal/remote"
)

// ErrSyncInProgress is returned when Sync is called while another
// invocation for the same engine is still running. Interleaved runs would
// break the push-before-pull ordering, so concurrent calls are refused
// instead of queued.
var ErrSyncInProgress = errors.New("sync already in progress")

// RemoteAPI is the transport collaborator the engine reconciles against.
type RemoteAPI interface {
	ListActivities(ctx context.Context) ([]remote.ActivitySummary, error)
	GetActivity(ctx context.Context, remoteID int64) (*remote.ActivityDetail, error)
	CreateActivity(ctx context.Context, detail *remote.ActivityDetail) (int64, error)
	UpdateActivity(ctx context.Context, remoteID int64, detail *remote.ActivityDetail) error
	DeleteActivity(ctx context.Context, remoteID int64) error
}

// Engine reconciles the local activity store against the remote service
// under last-writer-wins semantics keyed by each activity's updatedAt.
// Sync is idempotent and driven entirely by persisted state, so a failed
// run is safe to retry at any point.
type Engine struct {
	store  database.Storage
	client RemoteAPI

	busy atomic.Bool
}

func NewEngine(store database.Storage, client RemoteAPI) *Engine {
	return &Engine{store: store, client: client}
}

// Sync runs push then pull. Push failures are per-item and never fail the
// call; the returned error reflects pull-phase success only, since a
// transient pull failure is the user-visible sync failure to retry.
func (e *Engine) Sync(ctx context.Context) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer e.busy.Store(false)

	start := time.Now()
	log.Printf("Starting sync")
	defer func() {
		log.Printf("Sync completed in %s", time.Since(start))
	}()

	e.pushLocalChanges(ctx)
	return e.pullRemoteChanges(ctx)
}

// pushLocalChanges walks the pending set: finished activities that have no
// remote id yet, plus tombstones. Each item's failure is logged and the
// loop moves on, leaving the record untouched for the next attempt.
func (e *Engine) pushLocalChanges(ctx context.Context) {
	pending, err := e.store.PendingActivities()
	if err != nil {
		log.Printf("Push skipped, failed to list pending activities: %v", err)
		return
	}

	for i := range pending {
		local := &pending[i]
		if err := e.pushOne(ctx, local); err != nil {
			log.Printf("Push failed for activity %d: %v", local.ID, err)
		}
	}
}

func (e *Engine) pushOne(ctx context.Context, local *models.Activity) error {
	switch {
	case local.IsDeleted && local.RemoteID != nil:
		// Tombstone with a server copy: delete remotely, then drop the row.
		if err := e.client.DeleteActivity(ctx, *local.RemoteID); err != nil {
			return fmt.Errorf("remote delete: %w", err)
		}
		return e.store.DeleteActivity(local.ID)

	case local.IsDeleted:
		// Never existed remotely, nothing to acknowledge.
		return e.store.DeleteActivity(local.ID)

	case local.RemoteID == nil:
		points, err := e.store.PointsForActivity(local.ID)
		if err != nil {
			return fmt.Errorf("load points: %w", err)
		}
		payload, err := remote.BuildUploadPayload(local, points)
		if err != nil {
			return err
		}
		remoteID, err := e.client.CreateActivity(ctx, payload)
		if err != nil {
			return fmt.Errorf("remote create: %w", err)
		}
		local.RemoteID = &remoteID
		return e.store.UpdateActivity(local)

	default:
		// Already synced; updates are pushed during pull reconciliation.
		return nil
	}
}

// pullRemoteChanges fetches the remote list and reconciles each summary
// against the local store. A failure anywhere in the pull marks the whole
// sync as failed while keeping the changes already applied.
func (e *Engine) pullRemoteChanges(ctx context.Context) error {
	summaries, err := e.client.ListActivities(ctx)
	if err != nil {
		return fmt.Errorf("failed to list remote activities: %w", err)
	}

	remoteIDs := make(map[int64]struct{}, len(summaries))
	for _, s := range summaries {
		remoteIDs[s.ID] = struct{}{}
	}

	// Activities whose remote id vanished server-side were deleted there.
	locals, err := e.store.AllActivities()
	if err != nil {
		return fmt.Errorf("failed to list local activities: %w", err)
	}
	for i := range locals {
		local := &locals[i]
		if local.RemoteID == nil {
			continue
		}
		if _, ok := remoteIDs[*local.RemoteID]; !ok {
			if err := e.store.DeleteActivity(local.ID); err != nil {
				return fmt.Errorf("failed to delete activity %d removed remotely: %w", local.ID, err)
			}
		}
	}

	for i := range summaries {
		if err := e.reconcile(ctx, &summaries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) reconcile(ctx context.Context, summary *remote.ActivitySummary) error {
	local, err := e.store.GetActivityByRemoteID(summary.ID)
	if errors.Is(err, database.ErrNotFound) {
		return e.insertFromRemote(ctx, summary.ID)
	}
	if err != nil {
		return fmt.Errorf("lookup by remote id %d: %w", summary.ID, err)
	}

	switch {
	case summary.UpdatedAt.After(local.UpdatedAt):
		// Remote wins: overwrite local fields, keep the primary key.
		updated := summary.ToActivity()
		updated.ID = local.ID
		if err := e.store.UpdateActivity(&updated); err != nil {
			return fmt.Errorf("apply remote activity %d: %w", summary.ID, err)
		}

	case local.UpdatedAt.After(summary.UpdatedAt):
		// Local wins: push the full local copy as an update.
		if local.RemoteID == nil {
			return nil
		}
		points, err := e.store.PointsForActivity(local.ID)
		if err != nil {
			return fmt.Errorf("load points for %d: %w", local.ID, err)
		}
		payload, err := remote.BuildUploadPayload(local, points)
		if err != nil {
			return err
		}
		if err := e.client.UpdateActivity(ctx, *local.RemoteID, payload); err != nil {
			return fmt.Errorf("push local activity %d: %w", local.ID, err)
		}

	default:
		// Equal clocks: only the server-derived like count can differ,
		// since likes are never mutated locally.
		if local.LikesCount != summary.LikesCount {
			local.LikesCount = summary.LikesCount
			if err := e.store.UpdateActivity(local); err != nil {
				return fmt.Errorf("update likes for %d: %w", local.ID, err)
			}
		}
	}
	return nil
}

func (e *Engine) insertFromRemote(ctx context.Context, remoteID int64) error {
	detail, err := e.client.GetActivity(ctx, remoteID)
	if err != nil {
		return fmt.Errorf("fetch remote activity %d: %w", remoteID, err)
	}

	activity := detail.ToActivity()
	localID, err := e.store.InsertActivity(&activity)
	if err != nil {
		return fmt.Errorf("insert remote activity %d: %w", remoteID, err)
	}

	if err := e.store.InsertPoints(detail.ToRoutePoints(localID)); err != nil {
		return fmt.Errorf("insert points for remote activity %d: %w", remoteID, err)
	}
	return nil
}
