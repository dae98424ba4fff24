package playback

import (
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Sink is the device-facing end of the pipeline. It is owned by the output
// device's callback and must not be used from more than one goroutine.
type Sink struct {
	requests  chan<- RequestKind
	responses <-chan Response
	samples   <-chan Sample
	closed    bool
}

// PullSample returns the next sample converted to the device representation.
// Buffered samples are returned without a round trip; otherwise one chunk is
// requested and the call blocks until its first sample arrives.
func (s *Sink) PullSample() float64 {
	if s.closed {
		return 0
	}

	select {
	case smp, ok := <-s.samples:
		if ok {
			return float64(smp)
		}
		return 0
	default:
	}

	s.requests <- RequestSamples
	smp, ok := <-s.samples
	if !ok {
		return 0
	}
	return float64(smp)
}

// FrameLen returns the current frame length of the queue. It is never zero.
func (s *Sink) FrameLen() int {
	return s.call(RequestFrameLen).FrameLen
}

// Channels returns the channel count of the current source.
func (s *Sink) Channels() int {
	return s.call(RequestChannels).Channels
}

// SampleRate returns the sample rate of the current source.
func (s *Sink) SampleRate() int {
	return s.call(RequestSampleRate).SampleRate
}

// TotalDuration returns the duration estimate of the current track.
func (s *Sink) TotalDuration() (time.Duration, bool) {
	resp := s.call(RequestTotalDuration)
	return resp.TotalDuration, resp.HasDuration
}

// Close closes the request channel, which stops the server.
func (s *Sink) Close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.requests)
}

func (s *Sink) call(kind RequestKind) Response {
	if s.closed {
		return Response{Kind: kind}
	}

	s.requests <- kind
	resp, ok := <-s.responses
	if !ok {
		return Response{Kind: kind}
	}
	if resp.Kind != kind {
		zlog.Error().Msgf("playback: response kind mismatch: want=%s got=%s", kind, resp.Kind)
	}
	return resp
}
