//go:build !((linux && cgo) || windows || darwin)

package speaker

import (
	zlog "github.com/rs/zerolog/log"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires cgo on this platform.
const AudioAvailable = false

// Device consumes the source in real time without sound.
type Device struct {
	null *NullDevice
}

// Open starts a null device for src.
func Open(src Source, cfg Config) (*Device, error) {
	zlog.Warn().Msg("speaker: audio not available in this build, output is discarded")
	out := NewOutput(src, cfg.SampleRate, cfg.ResampleQuality)
	return &Device{null: StartNull(out, cfg.SampleRate, cfg.BufferSamples)}, nil
}

// Close stops the device.
func (d *Device) Close() error {
	return d.null.Close()
}
