// Package speaker plays a playback sink on the system audio device.
package speaker

import (
	"github.com/gopxl/beep/v2"
	zlog "github.com/rs/zerolog/log"
)

// Source is the pull side of the playback pipeline. It is called from the
// audio callback only.
type Source interface {
	PullSample() float64
	// FrameLen returns how many samples follow in the current format.
	FrameLen() int
	Channels() int
	SampleRate() int
}

// Bridge converts interleaved samples of any channel count into beep's
// stereo frames. Channel count and sample rate are queried again every
// FrameLen samples.
type Bridge struct {
	src Source

	left     int // samples left in the current frame
	channels int
	rate     int
}

var _ beep.Streamer = (*Bridge)(nil)

// NewBridge creates a bridge reading from src.
func NewBridge(src Source) *Bridge {
	return &Bridge{src: src}
}

// Stream fills samples completely. The pipeline delivers silence when it
// has nothing to play, so the bridge never ends.
func (b *Bridge) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		samples[i] = b.nextFrame()
	}
	return len(samples), true
}

func (b *Bridge) Err() error {
	return nil
}

// Rate returns the sample rate of the current frame, or zero before the
// first query.
func (b *Bridge) Rate() int {
	return b.rate
}

// Channels returns the channel count of the current frame.
func (b *Bridge) Channels() int {
	return b.channels
}

func (b *Bridge) nextFrame() [2]float64 {
	if b.left <= 0 {
		b.refresh()
	}
	if b.left < b.channels {
		return b.partialFrame()
	}

	switch b.channels {
	case 1:
		v := b.pull()
		return [2]float64{v, v}
	default:
		l, r := b.pull(), b.pull()
		// Only the first two channels are played.
		for c := 2; c < b.channels; c++ {
			b.pull()
		}
		return [2]float64{l, r}
	}
}

// partialFrame drains the samples left before the next format query into
// a frame padded with silence, so no frame reads across a format change.
func (b *Bridge) partialFrame() [2]float64 {
	var f [2]float64
	for i := 0; b.left > 0; i++ {
		v := b.pull()
		if i < len(f) {
			f[i] = v
		}
	}
	return f
}

func (b *Bridge) pull() float64 {
	b.left--
	return b.src.PullSample()
}

func (b *Bridge) refresh() {
	b.left = b.src.FrameLen()
	channels := b.src.Channels()
	rate := b.src.SampleRate()

	if channels <= 0 {
		channels = 2
	}
	if b.left <= 0 {
		b.left = channels
	}
	if channels != b.channels || rate != b.rate {
		zlog.Debug().Msgf("speaker: format changed: channels=%d rate=%d frame=%d", channels, rate, b.left)
	}
	b.channels = channels
	b.rate = rate
}
