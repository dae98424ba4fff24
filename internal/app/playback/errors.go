package playback

import "github.com/cockroachdb/errors"

// Errors
var (
	// ErrInvalidPath is returned at enqueue time when a path is not a regular file.
	ErrInvalidPath = errors.New("invalid path")
	// ErrIO is returned when a queued file cannot be opened at transition time.
	ErrIO = errors.New("io error")
	// ErrDecode is returned when a queued file was opened but could not be decoded.
	ErrDecode = errors.New("decode error")
)
