package speaker

import (
	"github.com/gopxl/beep/v2"
)

const defaultQuality = 4

// Config holds output device configuration.
type Config struct {
	SampleRate      int // Device sample rate
	BufferSamples   int // Device buffer size in frames
	ResampleQuality int // beep resampler quality, 1..64
}

// Output resamples the bridge to the device rate. A sample rate change
// reported by the bridge is applied at the start of the next Stream call.
type Output struct {
	bridge    *Bridge
	resampler *beep.Resampler
	outRate   int
	srcRate   int
}

var _ beep.Streamer = (*Output)(nil)

// NewOutput creates an output for src at the device rate. It queries the
// source format once, so it must be created before the device starts.
func NewOutput(src Source, outRate, quality int) *Output {
	if quality < 1 || quality > 64 {
		quality = defaultQuality
	}
	bridge := NewBridge(src)
	bridge.refresh()

	o := &Output{
		bridge:    bridge,
		resampler: beep.ResampleRatio(quality, 1, bridge),
		outRate:   outRate,
	}
	o.applyRate()
	return o
}

func (o *Output) Stream(samples [][2]float64) (int, bool) {
	o.applyRate()
	return o.resampler.Stream(samples)
}

func (o *Output) Err() error {
	return o.resampler.Err()
}

// Ratio returns the resampling ratio in effect.
func (o *Output) Ratio() float64 {
	return o.resampler.Ratio()
}

func (o *Output) applyRate() {
	rate := o.bridge.Rate()
	if rate <= 0 || rate == o.srcRate || o.outRate <= 0 {
		return
	}
	o.srcRate = rate
	o.resampler.SetRatio(float64(rate) / float64(o.outRate))
}
