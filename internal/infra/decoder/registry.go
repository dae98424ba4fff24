package decoder

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/playq/internal/app/playback"
)

// ErrUnsupportedFormat is returned for files no enabled format handles.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Config enables a format and carries its settings.
type Config struct {
	Enabled  bool
	Settings map[string]any
}

// Registry picks a format by file extension. It implements
// playback.Decoder and playback.DurationProbe.
type Registry struct {
	formats     []Format
	byExtension map[string]Format
}

var (
	_ playback.Decoder       = (*Registry)(nil)
	_ playback.DurationProbe = (*Registry)(nil)
)

// New creates a registry from the registered formats. Formats missing from
// configs are enabled with default settings.
func New(configs map[string]Config) (*Registry, error) {
	r := &Registry{
		byExtension: make(map[string]Format),
	}

	names := lo.Keys(GetRegistered())
	slices.Sort(names)

	for _, name := range names {
		f := registry[name]()
		cfg, ok := configs[name]
		if ok && !cfg.Enabled {
			zlog.Debug().Msgf("decoder: format disabled: %s", name)
			continue
		}
		if err := f.ValidateConfig(cfg.Settings); err != nil {
			return nil, errors.Wrapf(err, "format %s", name)
		}

		r.formats = append(r.formats, f)
		for _, ext := range f.Extensions() {
			r.byExtension[ext] = f
		}
	}

	for name := range configs {
		if _, ok := registry[name]; !ok {
			return nil, errors.Wrapf(ErrUnsupportedFormat, "unknown format in config: %s", name)
		}
	}

	return r, nil
}

// Formats returns the enabled formats sorted by name.
func (r *Registry) Formats() []Format {
	return slices.Clone(r.formats)
}

// Extensions returns the extensions of all enabled formats, sorted.
func (r *Registry) Extensions() []string {
	exts := lo.Keys(r.byExtension)
	slices.Sort(exts)
	return exts
}

// Supports reports whether path has the extension of an enabled format.
func (r *Registry) Supports(path string) bool {
	_, err := r.lookup(path)
	return err == nil
}

// Decode opens a stream for path's format over rc. rc is owned by the
// returned stream; on error the caller closes it.
func (r *Registry) Decode(rc io.ReadCloser, path string) (playback.Stream, error) {
	f, err := r.lookup(path)
	if err != nil {
		return nil, err
	}

	s, format, err := f.Decode(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "%s decoder", f.Name())
	}
	if format.SampleRate <= 0 {
		_ = s.Close()
		return nil, errors.Newf("%s decoder: invalid sample rate %d", f.Name(), format.SampleRate)
	}

	zlog.Debug().Msgf("decoder: opened %s: format=%s rate=%d channels=%d",
		path, f.Name(), format.SampleRate, format.NumChannels)
	return newStream(s, format, rc), nil
}

// Probe estimates the duration of path by decoding its header. Files the
// format settings exclude, and any failure, report no duration.
func (r *Registry) Probe(path string) (time.Duration, bool) {
	f, err := r.lookup(path)
	if err != nil {
		return 0, false
	}
	settings := f.Settings()
	if settings.SkipDurationProbe {
		return 0, false
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	if info.Size() > int64(settings.MaxProbeSizeMB)<<20 {
		zlog.Debug().Msgf("decoder: not probing %s: %d bytes", path, info.Size())
		return 0, false
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, false
	}

	s, format, err := f.Decode(file)
	if err != nil {
		_ = file.Close()
		zlog.Debug().Msgf("decoder: probe failed for %s: %v", path, err)
		return 0, false
	}
	defer newStream(s, format, file).Close()

	n := s.Len()
	if n <= 0 || format.SampleRate <= 0 {
		return 0, false
	}
	return format.SampleRate.D(n), true
}

func (r *Registry) lookup(path string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	f, ok := r.byExtension[ext]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", filepath.Base(path))
	}
	return f, nil
}
