package tracking

import (
	"sync"

	"github.com/ridetrackapp/ridetrack-go/internal/analysis"
	"github.com/ridetrackapp/ridetrack-go/internal/models"
)

// minPointSpacingMeters drops points closer than this to the previous one.
const minPointSpacingMeters = 1.0

// Buffer holds the ordered point list of the in-progress activity along
// with running statistics and the bad-accuracy indicator. Appends happen
// from the single ingestion goroutine; reads may come from anywhere, so all
// state is mutex-guarded and Points returns a copy.
type Buffer struct {
	mu          sync.RWMutex
	points      []models.RoutePoint
	stats       analysis.TrackingStats
	badAccuracy bool

	statsCh chan analysis.TrackingStats
}

func NewBuffer() *Buffer {
	return &Buffer{
		statsCh: make(chan analysis.TrackingStats, 1),
	}
}

// Append adds an accepted point and recomputes the running stats. Points
// within one meter of the previous point are dropped and Append returns
// false.
func (b *Buffer) Append(point models.RoutePoint) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.points); n > 0 {
		last := &b.points[n-1]
		if last.DistanceTo(&point) < minPointSpacingMeters {
			return false
		}
	}

	b.points = append(b.points, point)
	b.stats = analysis.CalculateTrackingStats(b.points)
	b.publishStats(b.stats)
	return true
}

// Points returns a snapshot copy of the accepted points.
func (b *Buffer) Points() []models.RoutePoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.RoutePoint, len(b.points))
	copy(out, b.points)
	return out
}

// Len returns the number of accepted points.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.points)
}

// Last returns a copy of the most recent point, or nil when empty.
func (b *Buffer) Last() *models.RoutePoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.points) == 0 {
		return nil
	}
	last := b.points[len(b.points)-1]
	return &last
}

// Stats returns the running statistics computed at the last append.
func (b *Buffer) Stats() analysis.TrackingStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

// StatsUpdates delivers the latest stats after each successful append.
// Stale values are replaced rather than queued, so a slow consumer only
// ever sees the most recent snapshot.
func (b *Buffer) StatsUpdates() <-chan analysis.TrackingStats {
	return b.statsCh
}

// SetPoints replaces the buffer contents, used to restore an interrupted
// recording from storage.
func (b *Buffer) SetPoints(points []models.RoutePoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.points = make([]models.RoutePoint, len(points))
	copy(b.points, points)
	if len(b.points) > 0 {
		b.stats = analysis.CalculateTrackingStats(b.points)
	} else {
		b.stats = analysis.TrackingStats{}
	}
}

// Clear discards all points and statistics.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.points = nil
	b.stats = analysis.TrackingStats{}
}

// SetBadAccuracy updates the signal-quality indicator; it is set on every
// rejection and cleared on the next accepted sample.
func (b *Buffer) SetBadAccuracy(bad bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.badAccuracy = bad
}

// BadAccuracy reports whether the last sample was rejected.
func (b *Buffer) BadAccuracy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.badAccuracy
}

func (b *Buffer) publishStats(stats analysis.TrackingStats) {
	for {
		select {
		case b.statsCh <- stats:
			return
		default:
			select {
			case <-b.statsCh:
			default:
			}
		}
	}
}
