package playback

import (
	"io"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Sample is the representation samples travel in between the queue and the sink.
// The sink converts it to the device representation at delivery.
type Sample float32

// Stream is a decoded sample source. Samples are interleaved by channel.
type Stream interface {
	// Next returns the next sample, or false at end of stream.
	Next() (Sample, bool)
	SampleRate() int
	Channels() int
	// FrameLen returns the number of samples the stream commits to producing
	// before its format may change, if known.
	FrameLen() (int, bool)
	// SizeHint returns a lower bound of the samples left.
	SizeHint() int
	// Err returns the error that ended the stream early, if any.
	Err() error
	Close() error
}

// Decoder turns an open byte stream into a sample Stream.
// path is only used to pick the container format.
type Decoder interface {
	Decode(r io.ReadCloser, path string) (Stream, error)
}

// DurationProbe estimates the total duration of a file.
// Failure is reported as absence, never as an error.
type DurationProbe interface {
	Probe(path string) (time.Duration, bool)
}

// source is the content of the track slot. It is implemented only by
// *decodedTrack and *silenceFiller.
type source interface {
	next() (Sample, bool)
	sampleRate() int
	channels() int
	frameLen() (int, bool)
	sizeHint() int
	close()
}

// decodedTrack wraps a Stream opened for the file in the slot.
type decodedTrack struct {
	stream   Stream
	path     string
	produced int
}

func (d *decodedTrack) next() (Sample, bool) {
	s, ok := d.stream.Next()
	if ok {
		d.produced++
	}
	return s, ok
}

func (d *decodedTrack) sampleRate() int       { return d.stream.SampleRate() }
func (d *decodedTrack) channels() int         { return d.stream.Channels() }
func (d *decodedTrack) frameLen() (int, bool) { return d.stream.FrameLen() }
func (d *decodedTrack) sizeHint() int         { return d.stream.SizeHint() }

func (d *decodedTrack) close() {
	if err := d.stream.Err(); err != nil {
		zlog.Warn().Msgf("playback: stream ended with error: path=%s err=%v", d.path, err)
	}
	if err := d.stream.Close(); err != nil {
		zlog.Debug().Msgf("playback: failed to close stream: path=%s err=%v", d.path, err)
	}
}

// silenceFiller produces a fixed number of zero samples.
type silenceFiller struct {
	remaining int
	rate      int
	numCh     int
}

func newSilenceFiller(samples, rate, channels int) *silenceFiller {
	return &silenceFiller{remaining: samples, rate: rate, numCh: channels}
}

func (s *silenceFiller) next() (Sample, bool) {
	if s.remaining <= 0 {
		return 0, false
	}
	s.remaining--
	return 0, true
}

func (s *silenceFiller) sampleRate() int       { return s.rate }
func (s *silenceFiller) channels() int         { return s.numCh }
func (s *silenceFiller) frameLen() (int, bool) { return s.remaining, true }
func (s *silenceFiller) sizeHint() int         { return s.remaining }
func (s *silenceFiller) close()                {}
