// Package decoder turns audio files into playback streams using beep.
package decoder

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/gopxl/beep/v2"
	"github.com/mitchellh/mapstructure"
)

// Format is a container format the registry can decode.
type Format interface {
	// Name returns the format name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// Extensions returns the lower-case file extensions, without the dot.
	Extensions() []string
	// ValidateConfig validates and applies the format settings.
	ValidateConfig(settings map[string]any) error
	// Settings returns the applied settings.
	Settings() Settings
	// Decode opens a beep streamer over rc.
	Decode(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)
}

// Settings holds the per-format options shared by all formats.
type Settings struct {
	SkipDurationProbe bool `yaml:"skip_duration_probe" mapstructure:"skip_duration_probe"`
	MaxProbeSizeMB    int  `yaml:"max_probe_size_mb" mapstructure:"max_probe_size_mb" default:"1024" validate:"gte=1"`
}

// registry holds registered format factories.
var registry = make(map[string]func() Format)

// Register registers a format factory.
func Register(name string, factory func() Format) {
	registry[name] = factory
}

// GetRegistered returns all registered format factories.
func GetRegistered() map[string]func() Format {
	return registry
}

// base implements the settings handling shared by all formats.
type base struct {
	settings Settings
}

func (b *base) Settings() Settings {
	return b.settings
}

func (b *base) ValidateConfig(settings map[string]any) error {
	var s Settings

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &s,
		TagName: "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&s); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	b.settings = s
	return nil
}
