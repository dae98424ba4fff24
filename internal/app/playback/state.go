// Package playback provides the play queue and the sample-streaming pipeline
// between the queue and a real-time output device.
package playback

// State represents the playback state of a queue.
type State int

const (
	StateSilent  State = iota // Silence filler in the slot (nothing queued)
	StatePlaying              // A decoded track is producing samples
	StatePaused               // A track is loaded but samples are substituted with zeros
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateSilent:
		return "silent"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
