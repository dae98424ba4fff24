// Package library watches a music directory and queues new audio files.
package library

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/playq/internal/domain/track"
)

// Appender accepts a track path for playback.
type Appender interface {
	Append(path string) error
}

// Watcher appends audio files created in a directory.
type Watcher struct {
	dir        string
	extensions []string
	appender   Appender
	watcher    *fsnotify.Watcher

	mu   sync.Mutex
	seen map[string]bool

	closeOnce sync.Once
}

// NewWatcher starts watching dir. Only files whose extension is in
// extensions are appended.
func NewWatcher(dir string, extensions []string, appender Appender) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create watcher")
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", dir)
	}

	zlog.Info().Msgf("library: watching %s for %s", dir, strings.Join(extensions, ","))
	return &Watcher{
		dir:        dir,
		extensions: normalize(extensions),
		appender:   appender,
		watcher:    fw,
		seen:       make(map[string]bool),
	}, nil
}

// Run handles file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Files moved into the directory are reported as Create.
			if !event.Has(fsnotify.Create) {
				continue
			}
			w.handle(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			zlog.Warn().Msgf("library: watch error: %v", err)
		}
	}
}

func (w *Watcher) handle(path string) {
	if !Matches(path, w.extensions) {
		return
	}

	w.mu.Lock()
	if w.seen[path] {
		w.mu.Unlock()
		return
	}
	w.seen[path] = true
	w.mu.Unlock()

	if err := w.appender.Append(path); err != nil {
		// Renamed away again, or not a regular file.
		zlog.Debug().Msgf("library: not queueing %s: %v", path, err)
		w.mu.Lock()
		delete(w.seen, path)
		w.mu.Unlock()
		return
	}
	zlog.Info().Msgf("library: queued %s", filepath.Base(path))
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

// Scan returns the audio files directly inside dir, sorted by name.
func Scan(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", dir)
	}
	extensions = normalize(extensions)

	paths := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		path := filepath.Join(dir, e.Name())
		return path, e.Type().IsRegular() && Matches(path, extensions)
	})
	slices.Sort(paths)
	return paths, nil
}

// Matches reports whether path has one of extensions. An empty list
// matches every file.
func Matches(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	return slices.Contains(extensions, track.Format(path))
}

func normalize(extensions []string) []string {
	return lo.Map(extensions, func(ext string, _ int) string {
		return strings.TrimPrefix(strings.ToLower(ext), ".")
	})
}
