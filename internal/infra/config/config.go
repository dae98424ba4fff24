// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Log      LogConfig                `yaml:"log"`
	Playback PlaybackConfig           `yaml:"playback"`
	Output   OutputConfig             `yaml:"output"`
	Decoders map[string]DecoderConfig `yaml:"decoders"`
	Library  LibraryConfig            `yaml:"library"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	Output string `yaml:"output" default:"stdout"`
}

// PlaybackConfig represents queue and pipeline configuration.
type PlaybackConfig struct {
	ChunkSize         int  `yaml:"chunk_size" default:"64" validate:"gte=1,lte=8192"`
	SilenceSamples    int  `yaml:"silence_samples" default:"512" validate:"gte=2,lte=1048576"`
	SilenceSampleRate int  `yaml:"silence_sample_rate" default:"44100" validate:"gte=8000,lte=384000"`
	SilenceChannels   int  `yaml:"silence_channels" default:"2" validate:"gte=1,lte=8"`
	EventBuffer       int  `yaml:"event_buffer" default:"32" validate:"gte=1,lte=4096"`
	Repeat            bool `yaml:"repeat"`
}

// OutputConfig represents audio device configuration.
type OutputConfig struct {
	SampleRate      int `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=384000"`
	BufferMs        int `yaml:"buffer_ms" default:"100" validate:"gte=10,lte=2000"`
	ResampleQuality int `yaml:"resample_quality" default:"4" validate:"gte=1,lte=64"`
}

// BufferSamples returns the device buffer size in frames.
func (o OutputConfig) BufferSamples() int {
	return o.SampleRate * o.BufferMs / 1000
}

// DecoderConfig represents a decoder format's configuration.
type DecoderConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// LibraryConfig represents the watched music directory.
type LibraryConfig struct {
	WatchDir   string   `yaml:"watch_dir"`
	Extensions []string `yaml:"extensions" validate:"dive,required"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	defaults.MustSet(&cfg)
	return &cfg
}

// Load loads configuration from a YAML file. An empty path loads the
// defaults. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	// Override with environment variables
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	if len(cfg.Library.Extensions) > 0 {
		cfg.Library.Extensions = lo.Map(cfg.Library.Extensions, func(ext string, _ int) string {
			return strings.TrimPrefix(strings.ToLower(ext), ".")
		})
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("PLAYQ_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PLAYQ_LOG_OUTPUT"); v != "" {
		c.Log.Output = v
	}
	if v := os.Getenv("PLAYQ_WATCH_DIR"); v != "" {
		c.Library.WatchDir = v
	}
	if v := os.Getenv("PLAYQ_OUTPUT_SAMPLE_RATE"); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid PLAYQ_OUTPUT_SAMPLE_RATE %q", v)
		}
		c.Output.SampleRate = rate
	}
	if v := os.Getenv("PLAYQ_REPEAT"); v != "" {
		repeat, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "invalid PLAYQ_REPEAT %q", v)
		}
		c.Playback.Repeat = repeat
	}
	return nil
}

// IsDecoderEnabled checks if a decoder format is enabled. Formats missing
// from the config are enabled.
func (c *Config) IsDecoderEnabled(name string) bool {
	if d, ok := c.Decoders[name]; ok {
		return d.Enabled
	}
	return true
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.validateWatchDir(); err != nil {
		return err
	}

	return nil
}

// validateWatchDir checks that the watched directory exists if set.
func (c *Config) validateWatchDir() error {
	if c.Library.WatchDir == "" {
		return nil
	}
	info, err := os.Stat(c.Library.WatchDir)
	if err != nil {
		return errors.Wrap(err, "failed to stat watch_dir")
	}
	if !info.IsDir() {
		return errors.Newf("watch_dir (%s) is not a directory", c.Library.WatchDir)
	}
	return nil
}
