package playback

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_NewIsSilent(t *testing.T) {
	q := newTestQueue(t, nil)

	_, ok := q.CurrentTrack()
	assert.False(t, ok)
	assert.Equal(t, StateSilent, q.State())
	assert.Equal(t, DefaultSilenceSampleRate, q.SampleRate())
	assert.Equal(t, DefaultSilenceChannels, q.Channels())
	assert.Equal(t, DefaultSilenceSamples, q.CurrentFrameLen())

	_, ok = q.Progress()
	assert.False(t, ok)
	_, ok = q.TotalDuration()
	assert.False(t, ok)
}

func TestQueue_AppendKeepsFIFOOrder(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)

	var want []string
	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"} {
		path := writeTrack(t, dir, name, 1, 10)
		require.NoError(t, q.Append(path))
		want = append(want, path)
	}

	assert.Equal(t, want, q.Playlist())
}

func TestQueue_InvalidPath(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	existing := writeTrack(t, dir, "a.mp3", 1, 10)
	require.NoError(t, q.Append(existing))

	tests := []struct {
		name string
		call func(string) error
	}{
		{name: "append", call: q.Append},
		{name: "play next", call: q.PlayNext},
		{name: "play", call: q.Play},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{filepath.Join(dir, "missing.mp3"), dir, ""} {
				err := tt.call(path)
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPath), "path %q: %v", path, err)
			}
			assert.Equal(t, []string{existing}, q.Playlist())
			_, ok := q.CurrentTrack()
			assert.False(t, ok)
		})
	}
}

func TestQueue_PlayNextGoesToFront(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 1, 10)
	b := writeTrack(t, dir, "b.mp3", 2, 10)
	c := writeTrack(t, dir, "c.mp3", 3, 10)

	require.NoError(t, q.Play(a))
	require.NoError(t, q.Append(b))
	require.NoError(t, q.PlayNext(c))

	current, _ := q.CurrentTrack()
	assert.Equal(t, a, current, "play next must not interrupt")
	assert.Equal(t, []string{c, b}, q.Playlist())
}

func TestQueue_PlayInterrupts(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 1, 100)
	b := writeTrack(t, dir, "b.mp3", 2, 100)
	c := writeTrack(t, dir, "c.mp3", 3, 100)

	require.NoError(t, q.Play(a))
	require.NoError(t, q.Append(c))
	q.Pull(10)

	require.NoError(t, q.Play(b))

	current, ok := q.CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, b, current)
	assert.Equal(t, []string{c}, q.Playlist())
	assert.Equal(t, []string{a}, q.History())
	assert.True(t, allEqual(q.Pull(5), 2))
}

func TestQueue_SkipThenRewindRestoresPrevious(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 1, 100)
	b := writeTrack(t, dir, "b.mp3", 2, 100)

	require.NoError(t, q.Play(a))
	require.NoError(t, q.Append(b))

	require.NoError(t, q.Advance(true))
	current, _ := q.CurrentTrack()
	assert.Equal(t, b, current)
	assert.Equal(t, []string{a}, q.History())

	require.NoError(t, q.Rewind())
	current, _ = q.CurrentTrack()
	assert.Equal(t, a, current)
	assert.Equal(t, []string{b}, q.Playlist(), "the interrupted track plays next")
	assert.Empty(t, q.History())
	assert.True(t, allEqual(q.Pull(10), 1), "rewound track starts from the beginning")
}

func TestQueue_RewindWithoutHistoryIsNoop(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 1, 100)
	b := writeTrack(t, dir, "b.mp3", 2, 100)

	// Silent queue.
	require.NoError(t, q.Rewind())
	_, ok := q.CurrentTrack()
	assert.False(t, ok)

	require.NoError(t, q.Play(a))
	require.NoError(t, q.Append(b))
	q.Pull(20)

	require.NoError(t, q.Rewind())
	current, _ := q.CurrentTrack()
	assert.Equal(t, a, current)
	assert.Equal(t, []string{b}, q.Playlist())
	assert.True(t, allEqual(q.Pull(10), 1), "playback continues where it was")
}

func TestQueue_RewindFromSilence(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 1, 5)

	require.NoError(t, q.Play(a))
	q.Pull(6) // exhausts a, queue runs dry
	_, ok := q.CurrentTrack()
	require.False(t, ok)
	require.Equal(t, []string{a}, q.History())

	require.NoError(t, q.Rewind())
	current, _ := q.CurrentTrack()
	assert.Equal(t, a, current)
	assert.Empty(t, q.Playlist())
}

func TestQueue_RepeatReplaysCurrent(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 1, 5)
	b := writeTrack(t, dir, "b.mp3", 2, 5)

	require.NoError(t, q.Play(a))
	require.NoError(t, q.Append(b))
	q.SetRepeat(true)

	samples := q.Pull(8)
	assert.True(t, allEqual(samples, 1), "a must replay instead of b: %v", samples)

	current, _ := q.CurrentTrack()
	assert.Equal(t, a, current)
	assert.Equal(t, []string{b}, q.Playlist())
	assert.Empty(t, q.History())
}

func TestQueue_RepeatIgnoredOnForcedSkip(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 1, 5)
	b := writeTrack(t, dir, "b.mp3", 2, 5)

	require.NoError(t, q.Play(a))
	require.NoError(t, q.Append(b))
	q.SetRepeat(true)
	q.Pull(1)

	require.NoError(t, q.Advance(true))
	current, _ := q.CurrentTrack()
	assert.Equal(t, b, current)
	assert.Equal(t, []string{a}, q.History())
}

func TestQueue_RepeatDoesNotLoopOnEmptyTrack(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	empty := writeTrack(t, dir, "empty.mp3", 1, 0)
	b := writeTrack(t, dir, "b.mp3", 2, 5)

	require.NoError(t, q.Play(empty))
	require.NoError(t, q.Append(b))
	q.SetRepeat(true)

	samples := q.Pull(3)
	assert.True(t, allEqual(samples, 2))
	assert.Equal(t, []string{empty}, q.History())
}

func TestQueue_PausedYieldsSilenceWithoutProgress(t *testing.T) {
	dir := t.TempDir()
	a := writeTrack(t, dir, "a.mp3", 7, 100)
	q := newTestQueue(t, fakeProbe{a: 10 * time.Second})

	require.NoError(t, q.Play(a))
	q.Pull(25)
	before, ok := q.Progress()
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, before)

	q.SetPaused(true)
	assert.Equal(t, StatePaused, q.State())
	for _, n := range []int{1, 13, 64} {
		samples := q.Pull(n)
		assert.Len(t, samples, n)
		assert.True(t, allEqual(samples, 0))
		s, ok := q.NextSample()
		assert.True(t, ok)
		assert.Equal(t, Sample(0), s)
	}
	after, _ := q.Progress()
	assert.Equal(t, before, after)

	q.SetPaused(false)
	assert.Equal(t, StatePlaying, q.State())
	samples := q.Pull(10)
	assert.True(t, allEqual(samples, 7), "resumes where it paused")
	resumed, _ := q.Progress()
	assert.Equal(t, 3*time.Second, resumed)
}

func TestQueue_Progress(t *testing.T) {
	dir := t.TempDir()
	a := writeTrack(t, dir, "a.mp3", 1, 100)
	b := writeTrack(t, dir, "b.mp3", 2, 100)
	q := newTestQueue(t, fakeProbe{a: 10 * time.Second})

	require.NoError(t, q.Play(a))
	total, ok := q.TotalDuration()
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, total)

	var last time.Duration
	for i := 0; i < 9; i++ {
		q.Pull(10)
		p, ok := q.Progress()
		require.True(t, ok)
		assert.GreaterOrEqual(t, p, last)
		last = p
	}
	assert.Equal(t, 9*time.Second, last)

	// Without a duration estimate progress is unknown.
	require.NoError(t, q.Play(b))
	_, ok = q.Progress()
	assert.False(t, ok)
	_, ok = q.TotalDuration()
	assert.False(t, ok)
}

func TestQueue_ProgressUnknownWithoutFormat(t *testing.T) {
	dir := t.TempDir()
	a := writeTrack(t, dir, "a.mp3", 1, 100)
	q := NewQueue(&fakeDecoder{zeroFormat: true}, fakeProbe{a: time.Second}, Options{})
	t.Cleanup(q.Close)

	require.NoError(t, q.Play(a))
	samples := q.Pull(10)
	assert.True(t, allEqual(samples, 1))

	assert.Zero(t, q.SampleRate())
	assert.Zero(t, q.Channels())
	_, ok := q.Progress()
	assert.False(t, ok)
	total, ok := q.TotalDuration()
	assert.True(t, ok)
	assert.Equal(t, time.Second, total)
}

func TestQueue_MetadataReadsDuringTransition(t *testing.T) {
	dir := t.TempDir()
	a := writeTrack(t, dir, "a.mp3", 1, 100)
	dec := &fakeDecoder{entered: make(chan struct{}), gate: make(chan struct{})}
	q := NewQueue(dec, fakeProbe{a: time.Second}, Options{})
	t.Cleanup(q.Close)
	var once sync.Once
	release := func() { once.Do(func() { close(dec.gate) }) }
	t.Cleanup(release)

	played := make(chan error, 1)
	go func() { played <- q.Play(a) }()
	<-dec.entered

	// Play holds the slot lock until Decode returns.
	read := make(chan struct{})
	go func() {
		defer close(read)
		q.Progress()
		q.TotalDuration()
		q.SampleRate()
		q.Channels()
		q.Paused()
		q.Repeat()
		q.Playlist()
	}()

	select {
	case <-read:
	case <-time.After(time.Second):
		t.Fatal("metadata reads blocked on a transition")
	}

	release()
	require.NoError(t, <-played)
	current, _ := q.CurrentTrack()
	assert.Equal(t, a, current)
}

func TestQueue_ProgressResetsOnTransition(t *testing.T) {
	dir := t.TempDir()
	a := writeTrack(t, dir, "a.mp3", 1, 30)
	b := writeTrack(t, dir, "b.mp3", 2, 100)
	q := newTestQueue(t, fakeProbe{a: 3 * time.Second, b: 10 * time.Second})

	require.NoError(t, q.Play(a))
	require.NoError(t, q.Append(b))
	q.Pull(25)
	p, _ := q.Progress()
	assert.Equal(t, 2*time.Second, p)

	// 5 samples of a, then 15 of b.
	q.Pull(20)
	current, _ := q.CurrentTrack()
	require.Equal(t, b, current)
	p, _ = q.Progress()
	assert.Equal(t, time.Second, p)
}

func TestQueue_ConcurrentTogglePaused(t *testing.T) {
	q := newTestQueue(t, nil)

	const toggles = 100
	results := make(chan bool, toggles)
	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.TogglePaused()
		}()
	}
	wg.Wait()
	close(results)

	paused := 0
	for r := range results {
		if r {
			paused++
		}
	}
	assert.Equal(t, toggles/2, paused)
	assert.False(t, q.Paused())
}

func TestQueue_SilenceThenAppendedTrack(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 9, 1000)

	require.NoError(t, q.Append(a))
	samples := q.Pull(DefaultSilenceSamples + 100)

	assert.True(t, allEqual(samples[:DefaultSilenceSamples], 0))
	assert.True(t, allEqual(samples[DefaultSilenceSamples:], 9))
	current, _ := q.CurrentTrack()
	assert.Equal(t, a, current)
	assert.Empty(t, q.Playlist())
}

func TestQueue_PullNonPositive(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 1, 10)
	require.NoError(t, q.Play(a))

	for _, n := range []int{0, -1, -512} {
		assert.Empty(t, q.Pull(n))
	}
	assert.Len(t, q.Pull(10), 10)
}

func TestQueue_PullAlwaysReturnsN(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 1, 3)

	require.NoError(t, q.Play(a))
	samples := q.Pull(5000)
	assert.Len(t, samples, 5000)
	assert.True(t, allEqual(samples[:3], 1))
	assert.True(t, allEqual(samples[3:], 0))
	assert.Equal(t, StateSilent, q.State())
}

func TestQueue_DecodeErrorFallsBackToSilence(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 1, 100)
	bad := writeBadTrack(t, dir, "bad.mp3")

	require.NoError(t, q.Play(a))
	err := q.Play(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))

	_, ok := q.CurrentTrack()
	assert.False(t, ok)
	assert.Equal(t, StateSilent, q.State())
	assert.Equal(t, []string{a}, q.History(), "failed file is skipped, not recorded")
	assert.True(t, allEqual(q.Pull(10), 0))
}

func TestQueue_IOErrorFallsBackToSilence(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 1, 100)

	require.NoError(t, q.Append(a))
	require.NoError(t, os.Remove(a))

	err := q.Advance(false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
	assert.Equal(t, StateSilent, q.State())
	assert.Empty(t, q.Playlist())
}

func TestQueue_PullAbsorbsErrors(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	bad := writeBadTrack(t, dir, "bad.mp3")
	good := writeTrack(t, dir, "good.mp3", 4, 100)

	require.NoError(t, q.Append(bad))
	require.NoError(t, q.Append(good))
	drainEvents(q)

	// silence, failed transition, one more silence filler, then good.
	samples := q.Pull(2*DefaultSilenceSamples + 10)
	assert.True(t, allEqual(samples[:2*DefaultSilenceSamples], 0))
	assert.True(t, allEqual(samples[2*DefaultSilenceSamples:], 4))

	current, _ := q.CurrentTrack()
	assert.Equal(t, good, current)
	assert.Equal(t, []EventType{EventTrackFailed, EventTrackStarted}, drainEvents(q))
}

func TestQueue_CurrentFrameLen(t *testing.T) {
	dir := t.TempDir()
	a := writeTrack(t, dir, "a.mp3", 1, 100)
	b := writeTrack(t, dir, "b.mp3", 2, 100)

	t.Run("known frame length", func(t *testing.T) {
		q := newTestQueue(t, nil)
		require.NoError(t, q.Play(a))
		q.Pull(30)
		assert.Equal(t, 70, q.CurrentFrameLen())
	})

	t.Run("unknown length and nothing pending", func(t *testing.T) {
		q := NewQueue(&fakeDecoder{unknownFrameLen: true}, nil, Options{SilenceSamples: 128})
		defer q.Close()
		require.NoError(t, q.Play(a))
		assert.Equal(t, 128, q.CurrentFrameLen())
	})

	t.Run("unknown length falls back to size hint", func(t *testing.T) {
		q := NewQueue(&fakeDecoder{unknownFrameLen: true}, nil, Options{SilenceSamples: 128})
		defer q.Close()
		require.NoError(t, q.Play(a))
		require.NoError(t, q.Append(b))
		q.Pull(40)
		assert.Equal(t, 60, q.CurrentFrameLen())
	})

	t.Run("exhausted source with pending track", func(t *testing.T) {
		q := NewQueue(&fakeDecoder{unknownFrameLen: true}, nil, Options{SilenceSamples: 128})
		defer q.Close()
		require.NoError(t, q.Play(a))
		require.NoError(t, q.Append(b))
		q.Pull(100)
		assert.Equal(t, 128, q.CurrentFrameLen())
	})

	t.Run("never zero while silent", func(t *testing.T) {
		q := NewQueue(&fakeDecoder{}, nil, Options{SilenceSamples: 16})
		defer q.Close()
		q.Pull(16)
		assert.Equal(t, 16, q.CurrentFrameLen())
	})
}

func TestQueue_TransitionClosesPreviousStream(t *testing.T) {
	dir := t.TempDir()
	dec := &fakeDecoder{}
	q := NewQueue(dec, nil, Options{})
	a := writeTrack(t, dir, "a.mp3", 1, 100)
	b := writeTrack(t, dir, "b.mp3", 2, 100)

	require.NoError(t, q.Play(a))
	require.NoError(t, q.Play(b))
	require.Len(t, dec.streams, 2)
	assert.True(t, dec.streams[0].closed)
	assert.False(t, dec.streams[1].closed)

	q.Close()
	assert.True(t, dec.streams[1].closed)
}

func TestQueue_Clear(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 1, 10)
	b := writeTrack(t, dir, "b.mp3", 1, 10)
	require.NoError(t, q.Append(a))
	require.NoError(t, q.Append(b))

	removed := q.Clear()
	assert.Equal(t, []string{a, b}, removed)
	assert.Empty(t, q.Playlist())
}

func TestQueue_Events(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	a := writeTrack(t, dir, "a.mp3", 1, 5)
	b := writeTrack(t, dir, "b.mp3", 2, 5)

	require.NoError(t, q.Play(a))
	require.NoError(t, q.Play(b))
	q.SetPaused(true)
	q.SetPaused(true) // unchanged, no event
	q.SetPaused(false)
	q.Pull(6)

	assert.Equal(t, []EventType{
		EventTrackStarted,
		EventTrackSkipped,
		EventTrackStarted,
		EventStateChanged,
		EventStateChanged,
		EventTrackEnded,
		EventQueueEmpty,
	}, drainEvents(q))
}

func TestQueue_EventsClosedOnClose(t *testing.T) {
	q := NewQueue(&fakeDecoder{}, nil, Options{})
	q.Close()
	q.Close()

	_, ok := <-q.Events()
	assert.False(t, ok)
	q.SetRepeat(true) // must not panic on a closed channel
}

func TestQueue_ConcurrentAppendWhilePulling(t *testing.T) {
	dir := t.TempDir()
	q := newTestQueue(t, nil)
	long := writeTrack(t, dir, "long.mp3", 1, 100000)
	require.NoError(t, q.Play(long))

	var want []string
	for i := 0; i < 50; i++ {
		want = append(want, writeTrack(t, dir, fmt.Sprintf("t%02d.mp3", i), 2, 10))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			q.Pull(64)
			q.Progress()
		}
	}()
	go func() {
		defer wg.Done()
		for _, p := range want {
			assert.NoError(t, q.Append(p))
		}
	}()
	wg.Wait()

	assert.Equal(t, want, q.Playlist())
	current, _ := q.CurrentTrack()
	assert.Equal(t, long, current)
}
