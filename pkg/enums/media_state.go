package enums

import "fmt"

// MediaState tracks a media item from submission to its terminal state.
type MediaState string

const (
	MediaStateProcessing MediaState = "processing"
	MediaStateReady      MediaState = "ready"
	MediaStateFailed     MediaState = "failed"
	// MediaStateDeleted is a tombstone; the row is hard-deleted by whoever owns it next.
	MediaStateDeleted MediaState = "deleted"
)

var validMediaStates = []MediaState{
	MediaStateProcessing,
	MediaStateReady,
	MediaStateFailed,
	MediaStateDeleted,
}

// String returns the literal string for the state.
func (m MediaState) String() string {
	return string(m)
}

// IsValid reports whether the state is known.
func (m MediaState) IsValid() bool {
	for _, candidate := range validMediaStates {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further pipeline transition can happen.
func (m MediaState) IsTerminal() bool {
	return m == MediaStateReady || m == MediaStateFailed || m == MediaStateDeleted
}

// ParseMediaState converts raw input into a MediaState.
func ParseMediaState(value string) (MediaState, error) {
	for _, candidate := range validMediaStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media state %q", value)
}
