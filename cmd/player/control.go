package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/osa030/playq/internal/app/playback"
	"github.com/osa030/playq/internal/app/player"
)

const helpText = `Commands:
  n         next track
  p         previous track
  <space>   pause / resume (also "pause")
  r         toggle repeat
  a <path>  append to the queue
  i <path>  play after the current track
  x <path>  play now
  l         list the queue
  s         status
  c         clear the queue
  q         quit`

// controller is the part of the player the control loop drives.
type controller interface {
	player.Playback
	TogglePause() bool
	Repeat() bool
	State() playback.State
	Clear() []string
}

// controlLoop executes commands read from r until "q", or until ctx is
// done. Input ending early keeps the player running until ctx is done.
func controlLoop(ctx context.Context, r io.Reader, w io.Writer, c controller) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if quit := execute(w, c, line); quit {
				return
			}
		}
	}
}

// execute runs one command line and reports whether to quit.
func execute(w io.Writer, c controller, line string) bool {
	if line == " " {
		line = "pause"
	}
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch cmd {
	case "":
		return false
	case "q", "quit":
		return true
	case "n":
		err = c.SkipForward()
	case "p":
		err = c.SkipBackward()
	case "pause":
		if c.TogglePause() {
			fmt.Fprintln(w, "paused")
		} else {
			fmt.Fprintln(w, "resumed")
		}
	case "r":
		c.SetRepeat(!c.Repeat())
		fmt.Fprintf(w, "repeat: %v\n", c.Repeat())
	case "a", "i", "x":
		if arg == "" {
			fmt.Fprintf(w, "usage: %s <path>\n", cmd)
			return false
		}
		switch cmd {
		case "a":
			err = c.Append(arg)
		case "i":
			err = c.PlayNext(arg)
		default:
			err = c.Play(arg)
		}
	case "l":
		printQueue(w, c.Playlist())
	case "s":
		printStatus(w, c)
	case "c":
		fmt.Fprintf(w, "removed %d tracks\n", len(c.Clear()))
	case "h", "?", "help":
		fmt.Fprintln(w, helpText)
	default:
		fmt.Fprintf(w, "unknown command %q, type h for help\n", cmd)
	}

	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	return false
}

func printQueue(w io.Writer, paths []string) {
	if len(paths) == 0 {
		fmt.Fprintln(w, "queue is empty")
		return
	}
	for i, path := range paths {
		fmt.Fprintf(w, "  %2d. %s\n", i+1, filepath.Base(path))
	}
}

func printStatus(w io.Writer, c controller) {
	path, ok := c.CurrentTrack()
	if !ok {
		fmt.Fprintf(w, "[%s] nothing playing, %d queued\n", c.State(), len(c.Playlist()))
		return
	}

	position := "--:--"
	if d, ok := c.Progress(); ok {
		position = formatDuration(d)
	}
	total := "--:--"
	if d, ok := c.TotalDuration(); ok {
		total = formatDuration(d)
	}
	fmt.Fprintf(w, "[%s] %s %s/%s repeat=%v, %d queued\n",
		c.State(), filepath.Base(path), position, total, c.Repeat(), len(c.Playlist()))
}

func printEvent(w io.Writer, e playback.Event) {
	switch e.Type {
	case playback.EventTrackStarted:
		fmt.Fprintf(w, "▶  %s\n", filepath.Base(e.Path))
	case playback.EventTrackFailed:
		fmt.Fprintf(w, "✖  %s: %v\n", filepath.Base(e.Path), e.Err)
	case playback.EventQueueEmpty:
		fmt.Fprintln(w, "■  queue empty")
	}
}

// formatDuration formats d as m:ss, or h:mm:ss from one hour.
func formatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
