package tracking

// LocationSource delivers raw positioning samples. Implementations wrap the
// platform location stack (GPS receiver, replay file, simulator); the
// tracker never reaches into device state directly.
type LocationSource interface {
	// Samples returns the stream of raw fixes. The channel is closed when
	// the source shuts down.
	Samples() <-chan RawSample
}

// HeartRateReading is one sample from a heart-rate sensor.
type HeartRateReading struct {
	BPM int
}

// HeartRateSource delivers heart-rate readings from an external sensor.
type HeartRateSource interface {
	Readings() <-chan HeartRateReading
	State() ConnectionState
}

// BarometerSource delivers barometric altitude readings in meters.
type BarometerSource interface {
	Altitudes() <-chan float32
}

// ConnectionState tracks a sensor connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Streaming
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Streaming:
		return "streaming"
	default:
		return "unknown"
	}
}
