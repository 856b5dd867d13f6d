package uploader

// State is the phase an upload run is in. A run whose raise was not
// confirmed goes straight back to Idle.
type State int

const (
	Idle State = iota
	ThroughputRaised
	Writing
	ThroughputLowered
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ThroughputRaised:
		return "throughput-raised"
	case Writing:
		return "writing"
	case ThroughputLowered:
		return "throughput-lowered"
	}
	return "unknown"
}
