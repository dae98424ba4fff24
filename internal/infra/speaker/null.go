package speaker

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// NullDevice consumes an output in real time and discards the audio.
type NullDevice struct {
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// StartNull starts consuming out at rate frames per second in blocks of
// bufferSamples frames.
func StartNull(out *Output, rate, bufferSamples int) *NullDevice {
	if rate <= 0 {
		rate = 44100
	}
	if bufferSamples <= 0 {
		bufferSamples = rate / 10
	}

	d := &NullDevice{stop: make(chan struct{})}
	period := time.Duration(bufferSamples) * time.Second / time.Duration(rate)
	buf := make([][2]float64, bufferSamples)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-d.stop:
				return
			case <-ticker.C:
				out.Stream(buf)
			}
		}
	}()

	zlog.Debug().Msgf("speaker: null device started: rate=%d period=%s", rate, period)
	return d
}

// Close stops the device and waits for the pending block.
func (d *NullDevice) Close() error {
	d.once.Do(func() {
		close(d.stop)
		d.wg.Wait()
	})
	return nil
}
