package playback

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

const (
	testRate     = 10
	testChannels = 1
)

// fakeStream yields one sample per byte of the decoded file.
type fakeStream struct {
	data            []byte
	pos             int
	unknownFrameLen bool
	zeroFormat      bool
	closed          bool
}

func (s *fakeStream) Next() (Sample, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	v := s.data[s.pos]
	s.pos++
	return Sample(v), true
}

func (s *fakeStream) SampleRate() int {
	if s.zeroFormat {
		return 0
	}
	return testRate
}

func (s *fakeStream) Channels() int {
	if s.zeroFormat {
		return 0
	}
	return testChannels
}

func (s *fakeStream) FrameLen() (int, bool) {
	if s.unknownFrameLen {
		return 0, false
	}
	return len(s.data) - s.pos, true
}

func (s *fakeStream) SizeHint() int { return len(s.data) - s.pos }
func (s *fakeStream) Err() error    { return nil }

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// fakeDecoder rejects files starting with "BAD". With gate set, Decode
// closes entered and waits until gate is closed.
type fakeDecoder struct {
	mu              sync.Mutex
	unknownFrameLen bool
	zeroFormat      bool
	entered         chan struct{}
	gate            chan struct{}
	streams         []*fakeStream
}

func (d *fakeDecoder) Decode(r io.ReadCloser, path string) (Stream, error) {
	defer r.Close()
	if d.gate != nil {
		close(d.entered)
		<-d.gate
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, []byte("BAD")) {
		return nil, errors.Newf("malformed content in %s", path)
	}

	s := &fakeStream{data: data, unknownFrameLen: d.unknownFrameLen, zeroFormat: d.zeroFormat}
	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

type fakeProbe map[string]time.Duration

func (p fakeProbe) Probe(path string) (time.Duration, bool) {
	d, ok := p[path]
	return d, ok
}

// writeTrack writes a file decoding to n samples of value v.
func writeTrack(t *testing.T, dir, name string, v byte, n int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{v}, n), 0o644))
	return path
}

func writeBadTrack(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("BAD content"), 0o644))
	return path
}

func newTestQueue(t *testing.T, probe DurationProbe) *Queue {
	t.Helper()
	q := NewQueue(&fakeDecoder{}, probe, Options{})
	t.Cleanup(q.Close)
	return q
}

func drainEvents(q *Queue) []EventType {
	var types []EventType
	for {
		select {
		case e, ok := <-q.Events():
			if !ok {
				return types
			}
			types = append(types, e.Type)
		default:
			return types
		}
	}
}

func allEqual(samples []Sample, v Sample) bool {
	for _, s := range samples {
		if s != v {
			return false
		}
	}
	return true
}
