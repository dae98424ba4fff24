package playback

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted EventType = iota // A decoded track was installed in the slot
	EventTrackEnded                    // The current track was exhausted naturally
	EventTrackSkipped                  // The current track was replaced by a forced transition
	EventTrackFailed                   // A queued track could not be opened or decoded
	EventQueueEmpty                    // The pending queue ran dry and silence was installed
	EventStateChanged                  // Paused or repeat flag changed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventTrackSkipped:
		return "track_skipped"
	case EventTrackFailed:
		return "track_failed"
	case EventQueueEmpty:
		return "queue_empty"
	case EventStateChanged:
		return "state_changed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type   EventType
	Path   string // Track the event refers to (empty for silence)
	State  State  // Queue state when the event was published
	Repeat bool   // Repeat flag after the event
	Err    error  // Set for EventTrackFailed
}
