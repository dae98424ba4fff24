package playback

import (
	"time"

	zlog "github.com/rs/zerolog/log"
)

// DefaultChunkSize is the number of samples produced per sample request.
const DefaultChunkSize = 64

// RequestKind identifies a request sent from the sink to the server.
type RequestKind int

const (
	RequestSamples       RequestKind = iota // Produce one chunk on the sample channel
	RequestFrameLen                         // Reply with the current frame length
	RequestChannels                         // Reply with the channel count
	RequestSampleRate                       // Reply with the sample rate
	RequestTotalDuration                    // Reply with the total duration estimate
)

// String returns the string representation of the request kind.
func (k RequestKind) String() string {
	switch k {
	case RequestSamples:
		return "samples"
	case RequestFrameLen:
		return "frame_len"
	case RequestChannels:
		return "channels"
	case RequestSampleRate:
		return "sample_rate"
	case RequestTotalDuration:
		return "total_duration"
	default:
		return "unknown"
	}
}

// Response answers a metadata request. Only the field matching Kind is set.
type Response struct {
	Kind          RequestKind
	FrameLen      int
	Channels      int
	SampleRate    int
	TotalDuration time.Duration
	HasDuration   bool
}

// Server answers sink requests against one queue, one request at a time.
// It is the only place where sample production and metadata queries meet,
// so a query never observes a half-finished transition.
type Server struct {
	queue     *Queue
	chunkSize int

	requests  <-chan RequestKind
	responses chan<- Response
	samples   chan<- Sample

	done chan struct{}
}

// NewPipeline wires a server and a sink around queue.
//
// The request and response channels are unbuffered: a metadata query is a
// synchronous call. The sample channel holds two chunks. The sink only asks
// for a chunk after finding the channel empty, which can happen while the
// server is still streaming the previous chunk, so at most two chunks are in
// flight and the server never blocks on a sample send. A blocked send would
// deadlock against a metadata request.
func NewPipeline(queue *Queue, chunkSize int) (*Server, *Sink) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	requests := make(chan RequestKind)
	responses := make(chan Response)
	samples := make(chan Sample, 2*chunkSize)

	server := &Server{
		queue:     queue,
		chunkSize: chunkSize,
		requests:  requests,
		responses: responses,
		samples:   samples,
		done:      make(chan struct{}),
	}
	sink := &Sink{
		requests:  requests,
		responses: responses,
		samples:   samples,
	}
	return server, sink
}

// Run serves requests until the request channel is closed. Closing the
// request channel is the normal way to stop the server.
func (s *Server) Run() {
	defer close(s.done)
	defer close(s.samples)
	defer close(s.responses)

	zlog.Debug().Msgf("playback: request server started: chunk=%d", s.chunkSize)

	for req := range s.requests {
		if req == RequestSamples {
			for _, smp := range s.queue.Pull(s.chunkSize) {
				s.samples <- smp
			}
			continue
		}
		s.responses <- s.answer(req)
	}

	zlog.Debug().Msg("playback: request channel closed, request server stopped")
}

// Done is closed when Run returns.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) answer(req RequestKind) Response {
	resp := Response{Kind: req}
	switch req {
	case RequestFrameLen:
		resp.FrameLen = s.queue.CurrentFrameLen()
	case RequestChannels:
		resp.Channels = s.queue.Channels()
	case RequestSampleRate:
		resp.SampleRate = s.queue.SampleRate()
	case RequestTotalDuration:
		resp.TotalDuration, resp.HasDuration = s.queue.TotalDuration()
	default:
		zlog.Warn().Msgf("playback: unexpected request kind: %d", int(req))
	}
	return resp
}
