package playback

import (
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playq/internal/domain/track"
)

// Defaults for Options.
const (
	DefaultSilenceSamples    = 512
	DefaultSilenceSampleRate = 44100
	DefaultSilenceChannels   = 2
	DefaultEventBuffer       = 32
)

const noDuration = -1

// Options holds queue configuration.
type Options struct {
	SilenceSamples    int  // Length of one silence filler in samples
	SilenceSampleRate int  // Sample rate reported while silent
	SilenceChannels   int  // Channel count reported while silent
	EventBuffer       int  // Capacity of the event channel
	Repeat            bool // Initial repeat flag
}

func (o Options) withDefaults() Options {
	if o.SilenceSamples <= 0 {
		o.SilenceSamples = DefaultSilenceSamples
	}
	if o.SilenceSampleRate <= 0 {
		o.SilenceSampleRate = DefaultSilenceSampleRate
	}
	if o.SilenceChannels <= 0 {
		o.SilenceChannels = DefaultSilenceChannels
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = DefaultEventBuffer
	}
	return o
}

// slot is the track slot. An empty path means silence filler.
type slot struct {
	src  source
	path string
}

// Queue owns the current track, the pending playlist and the play history.
// All methods are safe for concurrent use.
//
// Lock order: mu before listMu. Progress counters are atomics and are never
// read under mu.
type Queue struct {
	mu      sync.Mutex // guards current and history
	current slot
	history []string

	listMu   sync.Mutex // guards playlist
	playlist []string

	paused atomic.Bool
	repeat atomic.Bool

	tick       atomic.Uint64
	sampleRate atomic.Uint32
	channels   atomic.Uint32
	total      atomic.Int64 // nanoseconds, noDuration if unknown

	decoder Decoder
	probe   DurationProbe
	opts    Options

	evMu    sync.RWMutex
	eventCh chan Event
	closed  bool
}

// NewQueue creates an empty queue holding silence filler.
// probe may be nil, in which case no total durations are known.
func NewQueue(decoder Decoder, probe DurationProbe, opts Options) *Queue {
	opts = opts.withDefaults()
	q := &Queue{
		playlist: make([]string, 0),
		history:  make([]string, 0),
		decoder:  decoder,
		probe:    probe,
		opts:     opts,
		eventCh:  make(chan Event, opts.EventBuffer),
	}
	q.repeat.Store(opts.Repeat)
	q.installSilenceLocked()
	return q
}

// Events returns the event channel. It is closed by Close.
func (q *Queue) Events() <-chan Event {
	return q.eventCh
}

// Append validates path and adds it to the end of the pending queue.
func (q *Queue) Append(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	q.listMu.Lock()
	q.playlist = append(q.playlist, path)
	size := len(q.playlist)
	q.listMu.Unlock()

	zlog.Debug().Msgf("playback: appended: path=%s pending=%d", path, size)
	return nil
}

// PlayNext validates path and puts it at the front of the pending queue.
// The current track keeps playing.
func (q *Queue) PlayNext(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	q.pushFront(path)
	zlog.Debug().Msgf("playback: queued next: path=%s", path)
	return nil
}

// Play validates path and switches to it immediately.
func (q *Queue) Play(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.pushFront(path)
	return q.advanceLocked(true)
}

// Advance retires the current track and installs the next pending one, or
// silence filler if nothing is pending. Unless forceSkip is set, a repeating
// track is queued again instead of being moved to the history.
//
// On ErrIO or ErrDecode the slot holds silence filler.
func (q *Queue) Advance(forceSkip bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.advanceLocked(forceSkip)
}

// Rewind makes the most recently played track current again and queues the
// track that was playing right after it. Without history it does nothing.
func (q *Queue) Rewind() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.history)
	if n == 0 {
		return nil
	}
	prev := q.history[n-1]
	q.history = q.history[:n-1]

	if q.current.path != "" {
		// Detach so the transition does not push it to the history.
		q.pushFront(prev, q.current.path)
		q.current.path = ""
	} else {
		q.pushFront(prev)
	}

	zlog.Debug().Msgf("playback: rewinding to %s", prev)
	return q.advanceLocked(true)
}

// NextSample returns the next sample of the current source, or false when it
// is exhausted. While paused it returns zero without touching the source.
func (q *Queue) NextSample() (Sample, bool) {
	if q.paused.Load() {
		return 0, true
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return q.nextLocked()
}

// Pull returns exactly n samples, advancing to the next track whenever the
// current source is exhausted. Transition errors are logged and published as
// EventTrackFailed; they never reach the caller.
func (q *Queue) Pull(n int) []Sample {
	if n <= 0 {
		return []Sample{}
	}
	out := make([]Sample, 0, n)

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(out) < n {
		if q.paused.Load() {
			out = append(out, 0)
			continue
		}
		if s, ok := q.nextLocked(); ok {
			out = append(out, s)
			continue
		}
		if err := q.advanceLocked(false); err != nil {
			zlog.Warn().Msgf("playback: skipping unplayable track: %v", err)
		}
	}
	return out
}

// Progress returns the elapsed time of the current track floored to seconds.
// It is unknown while silent, without a duration estimate, or before the
// format is known.
func (q *Queue) Progress() (time.Duration, bool) {
	if q.total.Load() == noDuration {
		return 0, false
	}

	rate := uint64(q.sampleRate.Load())
	channels := uint64(q.channels.Load())
	if rate == 0 || channels == 0 {
		return 0, false
	}

	secs := q.tick.Load() / rate / channels
	return time.Duration(secs) * time.Second, true
}

// TotalDuration returns the duration estimate of the current track.
func (q *Queue) TotalDuration() (time.Duration, bool) {
	d := q.total.Load()
	if d == noDuration {
		return 0, false
	}
	return time.Duration(d), true
}

// SampleRate returns the sample rate of the current source.
func (q *Queue) SampleRate() int {
	return int(q.sampleRate.Load())
}

// Channels returns the channel count of the current source.
func (q *Queue) Channels() int {
	return int(q.channels.Load())
}

// CurrentFrameLen returns how many samples the current source will produce
// before its format may change. The result is never zero: a zero or unknown
// length falls back to the silence length when nothing is pending, then to
// the source's size hint, then to the silence length.
func (q *Queue) CurrentFrameLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n, ok := q.current.src.frameLen(); ok && n > 0 {
		return n
	}
	if q.pendingLen() == 0 {
		return q.opts.SilenceSamples
	}
	if hint := q.current.src.sizeHint(); hint > 0 {
		return hint
	}
	return q.opts.SilenceSamples
}

// SetPaused sets the paused flag. It is seen by the next produced sample.
func (q *Queue) SetPaused(paused bool) {
	if q.paused.Swap(paused) == paused {
		return
	}
	zlog.Debug().Msgf("playback: paused=%v", paused)
	q.sendEvent(Event{Type: EventStateChanged, Path: q.currentPath()})
}

// TogglePaused flips the paused flag and returns the new value.
func (q *Queue) TogglePaused() bool {
	for {
		old := q.paused.Load()
		if q.paused.CompareAndSwap(old, !old) {
			zlog.Debug().Msgf("playback: paused=%v", !old)
			q.sendEvent(Event{Type: EventStateChanged, Path: q.currentPath()})
			return !old
		}
	}
}

// SetRepeat sets the repeat flag. It is read at the next transition.
func (q *Queue) SetRepeat(repeat bool) {
	if q.repeat.Swap(repeat) == repeat {
		return
	}
	zlog.Debug().Msgf("playback: repeat=%v", repeat)
	q.sendEvent(Event{Type: EventStateChanged, Path: q.currentPath()})
}

// Paused returns the paused flag.
func (q *Queue) Paused() bool {
	return q.paused.Load()
}

// Repeat returns the repeat flag.
func (q *Queue) Repeat() bool {
	return q.repeat.Load()
}

// CurrentTrack returns the path of the current track, or false while silent.
func (q *Queue) CurrentTrack() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current.path, q.current.path != ""
}

func (q *Queue) currentPath() string {
	path, _ := q.CurrentTrack()
	return path
}

// State returns the playback state.
func (q *Queue) State() State {
	if _, ok := q.CurrentTrack(); !ok {
		return StateSilent
	}
	if q.paused.Load() {
		return StatePaused
	}
	return StatePlaying
}

// Playlist returns a copy of the pending queue.
func (q *Queue) Playlist() []string {
	q.listMu.Lock()
	defer q.listMu.Unlock()

	result := make([]string, len(q.playlist))
	copy(result, q.playlist)
	return result
}

// History returns a copy of the play history, oldest first.
func (q *Queue) History() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]string, len(q.history))
	copy(result, q.history)
	return result
}

// Clear removes all pending tracks and returns them.
func (q *Queue) Clear() []string {
	q.listMu.Lock()
	defer q.listMu.Unlock()

	removed := q.playlist
	q.playlist = make([]string, 0)
	return removed
}

// Close releases the current source and closes the event channel.
func (q *Queue) Close() {
	q.mu.Lock()
	q.current.src.close()
	q.installSilenceLocked()
	q.mu.Unlock()

	q.evMu.Lock()
	defer q.evMu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.eventCh)
	}
}

// nextLocked pulls one sample from the slot. Must be called with mu held.
func (q *Queue) nextLocked() (Sample, bool) {
	s, ok := q.current.src.next()
	if ok {
		q.tick.Add(1)
	}
	return s, ok
}

// advanceLocked performs a transition. Must be called with mu held.
func (q *Queue) advanceLocked(forceSkip bool) error {
	prev := q.current
	if prev.path != "" {
		if q.repeat.Load() && !forceSkip && producedAny(prev.src) {
			q.pushFront(prev.path)
		} else {
			q.history = append(q.history, prev.path)
		}
		if forceSkip {
			q.sendEvent(Event{Type: EventTrackSkipped, Path: prev.path})
		} else {
			q.sendEvent(Event{Type: EventTrackEnded, Path: prev.path})
		}
	}
	prev.src.close()

	path, ok := q.popFront()
	if !ok {
		q.installSilenceLocked()
		if prev.path != "" {
			zlog.Debug().Msg("playback: queue empty, playing silence")
			q.sendEvent(Event{Type: EventQueueEmpty})
		}
		return nil
	}

	stream, err := q.open(path)
	if err != nil {
		q.installSilenceLocked()
		q.sendEvent(Event{Type: EventTrackFailed, Path: path, Err: err})
		return err
	}

	q.current = slot{src: &decodedTrack{stream: stream, path: path}, path: path}
	q.sampleRate.Store(uint32(max(stream.SampleRate(), 0)))
	q.channels.Store(uint32(max(stream.Channels(), 0)))
	q.total.Store(q.probeDuration(path))
	q.tick.Store(0)

	zlog.Info().Msgf("playback: track started: path=%s rate=%d channels=%d",
		path, stream.SampleRate(), stream.Channels())
	q.sendEvent(Event{Type: EventTrackStarted, Path: path})
	return nil
}

// installSilenceLocked puts a fresh silence filler into the slot.
func (q *Queue) installSilenceLocked() {
	q.current = slot{src: newSilenceFiller(q.opts.SilenceSamples, q.opts.SilenceSampleRate, q.opts.SilenceChannels)}
	q.sampleRate.Store(uint32(q.opts.SilenceSampleRate))
	q.channels.Store(uint32(q.opts.SilenceChannels))
	q.total.Store(noDuration)
	q.tick.Store(0)
}

// open opens and decodes path.
func (q *Queue) open(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to open %s", path), ErrIO)
	}

	stream, err := q.decoder.Decode(f, path)
	if err != nil {
		_ = f.Close()
		return nil, errors.Mark(errors.Wrapf(err, "failed to decode %s", path), ErrDecode)
	}
	return stream, nil
}

func (q *Queue) probeDuration(path string) int64 {
	if q.probe == nil {
		return noDuration
	}
	d, ok := q.probe.Probe(path)
	if !ok || d <= 0 {
		return noDuration
	}
	return int64(d)
}

// pushFront inserts paths, in order, at the front of the pending queue.
func (q *Queue) pushFront(paths ...string) {
	q.listMu.Lock()
	defer q.listMu.Unlock()
	q.playlist = slices.Insert(q.playlist, 0, paths...)
}

func (q *Queue) popFront() (string, bool) {
	q.listMu.Lock()
	defer q.listMu.Unlock()

	if len(q.playlist) == 0 {
		return "", false
	}
	path := q.playlist[0]
	q.playlist = q.playlist[1:]
	return path, true
}

func (q *Queue) pendingLen() int {
	q.listMu.Lock()
	defer q.listMu.Unlock()
	return len(q.playlist)
}

// sendEvent publishes e without blocking. Events are dropped when the
// channel is full or closed.
func (q *Queue) sendEvent(e Event) {
	e.State = q.stateUnlocked(e)
	e.Repeat = q.repeat.Load()

	q.evMu.RLock()
	defer q.evMu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.eventCh <- e:
	default:
	}
}

// stateUnlocked derives the state for an event without taking mu, which may
// already be held by the caller.
func (q *Queue) stateUnlocked(e Event) State {
	switch e.Type {
	case EventQueueEmpty, EventTrackFailed:
		return StateSilent
	}
	if e.Path == "" {
		return StateSilent
	}
	if q.paused.Load() {
		return StatePaused
	}
	return StatePlaying
}

// producedAny reports whether a decoded source yielded at least one sample.
// A track that never produced anything is not repeated.
func producedAny(src source) bool {
	d, ok := src.(*decodedTrack)
	return ok && d.produced > 0
}

func validatePath(path string) error {
	if err := track.Validate(path); err != nil {
		return errors.Mark(err, ErrInvalidPath)
	}
	return nil
}
