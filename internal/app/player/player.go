// Package player runs a playback queue against an audio output.
package player

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playq/internal/app/notification"
	"github.com/osa030/playq/internal/app/playback"
	"github.com/osa030/playq/internal/infra/speaker"
)

// Playback is the control surface of a player.
type Playback interface {
	Append(path string) error
	Play(path string) error
	PlayNext(path string) error
	SkipForward() error
	SkipBackward() error
	SetPaused(paused bool)
	SetRepeat(repeat bool)
	CurrentTrack() (string, bool)
	TotalDuration() (time.Duration, bool)
	Progress() (time.Duration, bool)
	Playlist() []string
}

// Output is a running audio output.
type Output interface {
	Close() error
}

// OpenOutputFunc starts an output pulling from src.
type OpenOutputFunc func(src speaker.Source) (Output, error)

// Options holds player configuration.
type Options struct {
	Queue         playback.Options
	ChunkSize     int
	NotifyTimeout time.Duration
}

// Player owns a queue, its request server and the output pulling from it.
type Player struct {
	queue    *playback.Queue
	server   *playback.Server
	sink     *playback.Sink
	output   Output
	notifier *notification.Manager

	pumpDone  chan struct{}
	closeOnce sync.Once
}

var _ Playback = (*Player)(nil)

// New creates a player and starts its output.
func New(decoder playback.Decoder, probe playback.DurationProbe, open OpenOutputFunc, opts Options) (*Player, error) {
	queue := playback.NewQueue(decoder, probe, opts.Queue)
	server, sink := playback.NewPipeline(queue, opts.ChunkSize)
	go server.Run()

	output, err := open(sink)
	if err != nil {
		sink.Close()
		<-server.Done()
		queue.Close()
		return nil, errors.Wrap(err, "failed to open output")
	}

	p := &Player{
		queue:    queue,
		server:   server,
		sink:     sink,
		output:   output,
		notifier: notification.NewManager(opts.NotifyTimeout),
		pumpDone: make(chan struct{}),
	}

	go func() {
		defer close(p.pumpDone)
		p.notifier.Run(context.Background(), queue.Events())
	}()

	zlog.Debug().Msg("player: started")
	return p, nil
}

// Append adds path to the end of the queue.
func (p *Player) Append(path string) error {
	return p.queue.Append(path)
}

// Play switches to path immediately.
func (p *Player) Play(path string) error {
	return p.queue.Play(path)
}

// PlayNext queues path right after the current track.
func (p *Player) PlayNext(path string) error {
	return p.queue.PlayNext(path)
}

// SkipForward moves to the next track, ignoring repeat.
func (p *Player) SkipForward() error {
	return p.queue.Advance(true)
}

// SkipBackward returns to the previously played track.
func (p *Player) SkipBackward() error {
	return p.queue.Rewind()
}

// SetPaused pauses or resumes playback.
func (p *Player) SetPaused(paused bool) {
	p.queue.SetPaused(paused)
}

// TogglePause flips the paused flag and returns the new value.
func (p *Player) TogglePause() bool {
	return p.queue.TogglePaused()
}

// SetRepeat makes the current track loop until skipped.
func (p *Player) SetRepeat(repeat bool) {
	p.queue.SetRepeat(repeat)
}

// Paused reports whether playback is paused.
func (p *Player) Paused() bool {
	return p.queue.Paused()
}

// Repeat reports whether the current track loops.
func (p *Player) Repeat() bool {
	return p.queue.Repeat()
}

// CurrentTrack returns the path of the playing track, if any.
func (p *Player) CurrentTrack() (string, bool) {
	return p.queue.CurrentTrack()
}

// TotalDuration returns the duration estimate of the current track.
func (p *Player) TotalDuration() (time.Duration, bool) {
	return p.queue.TotalDuration()
}

// Progress returns the elapsed time of the current track in whole seconds.
func (p *Player) Progress() (time.Duration, bool) {
	return p.queue.Progress()
}

// Playlist returns the pending tracks in play order.
func (p *Player) Playlist() []string {
	return p.queue.Playlist()
}

// History returns the previously played tracks, oldest first.
func (p *Player) History() []string {
	return p.queue.History()
}

// Clear drops all pending tracks and returns them.
func (p *Player) Clear() []string {
	return p.queue.Clear()
}

// State returns the playback state.
func (p *Player) State() playback.State {
	return p.queue.State()
}

// Subscribe registers h for playback notifications.
func (p *Player) Subscribe(h notification.Handler) string {
	return p.notifier.Subscribe(h)
}

// Unsubscribe removes the handler registered under id.
func (p *Player) Unsubscribe(id string) {
	p.notifier.Unsubscribe(id)
}

// Close stops the output, then the request server, then the queue.
func (p *Player) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.output.Close()
		p.sink.Close()
		<-p.server.Done()
		p.queue.Close()
		<-p.pumpDone
		p.notifier.Close()
		zlog.Debug().Msg("player: closed")
	})
	return err
}
