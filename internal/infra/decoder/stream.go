package decoder

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"

	"github.com/osa030/playq/internal/app/playback"
)

// streamChannels is the channel count of every beep streamer.
const streamChannels = 2

// bufferFrames is the number of frames read from the streamer at a time.
const bufferFrames = 512

// stream adapts a beep streamer to playback.Stream. Samples are delivered
// interleaved, left channel first.
type stream struct {
	s      beep.StreamSeekCloser
	format beep.Format
	closer io.Closer

	buf  [][2]float64
	n    int // frames in buf
	pos  int // next frame in buf
	ch   int // next channel of buf[pos]
	done bool
	err  error
}

func newStream(s beep.StreamSeekCloser, format beep.Format, closer io.Closer) *stream {
	return &stream{
		s:      s,
		format: format,
		closer: closer,
		buf:    make([][2]float64, bufferFrames),
	}
}

var _ playback.Stream = (*stream)(nil)

func (s *stream) Next() (playback.Sample, bool) {
	if s.pos >= s.n && !s.fill() {
		return 0, false
	}

	v := s.buf[s.pos][s.ch]
	s.ch++
	if s.ch == streamChannels {
		s.ch = 0
		s.pos++
	}
	return playback.Sample(v), true
}

// fill reads the next block of frames. It reports false at end of stream.
func (s *stream) fill() bool {
	s.n, s.pos, s.ch = 0, 0, 0
	for !s.done && s.n == 0 {
		n, ok := s.s.Stream(s.buf)
		s.n = n
		if !ok {
			s.done = true
			s.err = s.s.Err()
		}
	}
	return s.n > 0
}

func (s *stream) SampleRate() int {
	return int(s.format.SampleRate)
}

func (s *stream) Channels() int {
	return streamChannels
}

// FrameLen returns the samples left in the file. The format of a beep
// streamer never changes, so the whole remainder is one frame.
func (s *stream) FrameLen() (int, bool) {
	total := s.s.Len()
	if total <= 0 {
		return 0, false
	}
	left := max(total-s.s.Position(), 0)
	return left*streamChannels + s.buffered(), true
}

func (s *stream) SizeHint() int {
	return s.buffered()
}

func (s *stream) buffered() int {
	return (s.n-s.pos)*streamChannels - s.ch
}

func (s *stream) Err() error {
	return s.err
}

func (s *stream) Close() error {
	err := s.s.Close()
	if s.closer != nil {
		// Decoders that close their reader leave it already closed.
		if cerr := s.closer.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
			err = errors.CombineErrors(err, cerr)
		}
	}
	return err
}
