// Package track provides the local audio file entity.
package track

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrNotRegularFile is returned when a path does not denote a regular file.
var ErrNotRegularFile = errors.New("not a regular file")

// Track describes an audio file known to the player.
type Track struct {
	Path     string        // Path as given by the caller
	Name     string        // Display name (base name without extension)
	Format   string        // Lower-case extension without the dot, e.g. "mp3"
	Duration time.Duration // Estimated duration (zero if unknown)
}

// New validates path and returns its Track.
// The duration is left empty; it is filled in by the duration probe.
func New(path string) (Track, error) {
	if err := Validate(path); err != nil {
		return Track{}, err
	}
	return Track{
		Path:   path,
		Name:   Name(path),
		Format: Format(path),
	}, nil
}

// Validate checks that path exists and is a regular file.
// Symlinks are followed.
func Validate(path string) error {
	if path == "" {
		return errors.Wrap(ErrNotRegularFile, "empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "stat %s", path), ErrNotRegularFile)
	}
	if !info.Mode().IsRegular() {
		return errors.Wrapf(ErrNotRegularFile, "%s", path)
	}
	return nil
}

// Name returns the display name of path.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Format returns the lower-case extension of path without the leading dot.
func Format(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// HasDuration reports whether a duration estimate is available.
func (t *Track) HasDuration() bool {
	return t.Duration > 0
}
