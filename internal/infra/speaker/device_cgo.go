//go:build (linux && cgo) || windows || darwin

package speaker

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	beepspeaker "github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// Device plays an Output on the system speaker.
type Device struct {
	once sync.Once
}

// Open initializes the speaker and starts playing src.
func Open(src Source, cfg Config) (*Device, error) {
	rate := beep.SampleRate(cfg.SampleRate)
	if err := beepspeaker.Init(rate, cfg.BufferSamples); err != nil {
		return nil, errors.Wrap(err, "failed to initialize speaker")
	}

	out := NewOutput(src, cfg.SampleRate, cfg.ResampleQuality)
	beepspeaker.Play(out)

	zlog.Info().Msgf("speaker: playing: rate=%d buffer=%d", cfg.SampleRate, cfg.BufferSamples)
	return &Device{}, nil
}

// Close stops the speaker. The source is not called after Close returns.
func (d *Device) Close() error {
	d.once.Do(func() {
		beepspeaker.Clear()
		beepspeaker.Close()
		zlog.Debug().Msg("speaker: closed")
	})
	return nil
}
