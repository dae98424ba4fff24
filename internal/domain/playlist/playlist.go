// Package playlist provides the Playlist domain entity.
package playlist

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/osa030/playq/internal/domain/track"
)

// Playlist is an ordered list of local tracks, typically read from an M3U file.
type Playlist struct {
	Name   string        // Playlist name (file name without extension)
	Path   string        // Source file, empty for ad-hoc playlists
	Tracks []track.Track // Tracks in the playlist
}

// IsPlaylistFile reports whether path looks like an M3U playlist.
func IsPlaylistFile(path string) bool {
	switch track.Format(path) {
	case "m3u", "m3u8":
		return true
	default:
		return false
	}
}

// Load reads an M3U/M3U8 playlist. Comment and directive lines are skipped,
// relative entries are resolved against the playlist's directory.
// Entries are not validated here; the play queue validates them on enqueue.
func Load(path string) (*Playlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open playlist")
	}
	defer f.Close()

	base := filepath.Dir(path)
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read playlist")
	}

	entries := lo.FilterMap(lines, func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			return "", false
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		return line, true
	})

	return &Playlist{
		Name: track.Name(path),
		Path: path,
		Tracks: lo.Map(entries, func(p string, _ int) track.Track {
			return track.Track{Path: p, Name: track.Name(p), Format: track.Format(p)}
		}),
	}, nil
}

// Paths returns all track paths in the playlist.
func (p *Playlist) Paths() []string {
	paths := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		paths[i] = t.Path
	}
	return paths
}
