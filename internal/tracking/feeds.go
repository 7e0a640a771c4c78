package tracking

import "sync"

// SampleFeed adapts samples delivered over the API into a LocationSource.
// Pushes never block the caller: when the ingestion loop falls behind, the
// sample is refused instead of queued indefinitely.
type SampleFeed struct {
	ch chan RawSample
}

func NewSampleFeed() *SampleFeed {
	return &SampleFeed{ch: make(chan RawSample, 64)}
}

func (f *SampleFeed) Samples() <-chan RawSample { return f.ch }

func (f *SampleFeed) Push(sample RawSample) error {
	select {
	case f.ch <- sample:
		return nil
	default:
		return ErrIngestBacklog
	}
}

// HeartRateFeed adapts pushed heart-rate readings into a HeartRateSource.
// The connection state starts Disconnected and moves to Streaming on the
// first reading.
type HeartRateFeed struct {
	ch chan HeartRateReading

	mu    sync.Mutex
	state ConnectionState
}

func NewHeartRateFeed() *HeartRateFeed {
	return &HeartRateFeed{ch: make(chan HeartRateReading, 16)}
}

func (f *HeartRateFeed) Readings() <-chan HeartRateReading { return f.ch }

func (f *HeartRateFeed) State() ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *HeartRateFeed) Push(reading HeartRateReading) error {
	f.mu.Lock()
	f.state = Streaming
	f.mu.Unlock()

	select {
	case f.ch <- reading:
		return nil
	default:
		return ErrIngestBacklog
	}
}
