// Package main provides the player entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/playq/internal/app/library"
	"github.com/osa030/playq/internal/app/notification"
	"github.com/osa030/playq/internal/app/playback"
	"github.com/osa030/playq/internal/app/player"
	"github.com/osa030/playq/internal/domain/playlist"
	"github.com/osa030/playq/internal/domain/track"
	"github.com/osa030/playq/internal/infra/config"
	"github.com/osa030/playq/internal/infra/decoder"
	"github.com/osa030/playq/internal/infra/logger"
	"github.com/osa030/playq/internal/infra/speaker"
)

var (
	app        = kingpin.New("playq", "Local audio playback queue")
	configPath = app.Flag("config", "Path to config file (default: built-in defaults)").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// play command (default)
	playCmd   = app.Command("play", "Play files, directories and M3U playlists (default)").Default()
	playPaths = playCmd.Arg("paths", "Audio files, directories or .m3u playlists").Strings()
	repeat    = playCmd.Flag("repeat", "Repeat the current track").Bool()
	watchDir  = playCmd.Flag("watch", "Queue audio files created in this directory").String()

	// probe command
	probeCmd   = app.Command("probe", "Print estimated durations and exit")
	probePaths = probeCmd.Arg("paths", "Audio files").Required().Strings()

	// formats command
	formatsCmd = app.Command("formats", "List available decoders and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger, command-line flags take precedence
	loggerConfig := logger.Config{
		Level:  cfg.Log.Level,
		Output: cfg.Log.Output,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	reg, err := decoder.New(decoderConfigs(cfg))
	if err != nil {
		zlog.Fatal().Msgf("Invalid decoder config: %v", err)
	}

	switch command {
	case formatsCmd.FullCommand():
		printFormats(reg)
	case probeCmd.FullCommand():
		probe(reg, *probePaths)
	case playCmd.FullCommand():
		if err := run(cfg, reg); err != nil {
			zlog.Error().Msgf("Player error: %v", err)
			logCloser.Close()
			os.Exit(1)
		}
	}
}

// run executes the play command. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, reg *decoder.Registry) error {
	paths, err := expandPaths(*playPaths, reg.Extensions())
	if err != nil {
		return err
	}

	if !speaker.AudioAvailable {
		zlog.Warn().Msg("Built without audio support, playback is silent")
	}

	opts := player.Options{
		ChunkSize: cfg.Playback.ChunkSize,
		Queue: playback.Options{
			SilenceSamples:    cfg.Playback.SilenceSamples,
			SilenceSampleRate: cfg.Playback.SilenceSampleRate,
			SilenceChannels:   cfg.Playback.SilenceChannels,
			EventBuffer:       cfg.Playback.EventBuffer,
			Repeat:            cfg.Playback.Repeat || *repeat,
		},
	}
	p, err := player.New(reg, reg, openSpeaker(cfg.Output), opts)
	if err != nil {
		return err
	}
	defer p.Close()

	p.Subscribe(notification.HandlerFunc(func(n notification.Notification) error {
		printEvent(os.Stdout, n.Event)
		return nil
	}))

	for _, path := range paths {
		if err := p.Append(path); err != nil {
			zlog.Warn().Msgf("Skipping %s: %v", path, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir := *watchDir
	if dir == "" {
		dir = cfg.Library.WatchDir
	}
	if dir != "" {
		exts := cfg.Library.Extensions
		if len(exts) == 0 {
			exts = reg.Extensions()
		}
		w, err := library.NewWatcher(dir, exts, p)
		if err != nil {
			return err
		}
		defer w.Close()
		go w.Run(ctx)
	}

	fmt.Println(helpText)
	controlLoop(ctx, os.Stdin, os.Stdout, p)

	zlog.Info().Msg("Player stopped")
	return nil
}

func openSpeaker(out config.OutputConfig) player.OpenOutputFunc {
	return func(src speaker.Source) (player.Output, error) {
		d, err := speaker.Open(src, speaker.Config{
			SampleRate:      out.SampleRate,
			BufferSamples:   out.BufferSamples(),
			ResampleQuality: out.ResampleQuality,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

func decoderConfigs(cfg *config.Config) map[string]decoder.Config {
	return lo.MapValues(cfg.Decoders, func(d config.DecoderConfig, name string) decoder.Config {
		return decoder.Config{Enabled: cfg.IsDecoderEnabled(name), Settings: d.Settings}
	})
}

// expandPaths resolves playlists and directories into track paths.
func expandPaths(args []string, extensions []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			found, err := library.Scan(arg, extensions)
			if err != nil {
				return nil, err
			}
			paths = append(paths, found...)
		case playlist.IsPlaylistFile(arg):
			pl, err := playlist.Load(arg)
			if err != nil {
				return nil, err
			}
			zlog.Info().Msgf("Loaded playlist %s: %d tracks", pl.Name, len(pl.Tracks))
			paths = append(paths, pl.Paths()...)
		default:
			paths = append(paths, arg)
		}
	}
	return paths, nil
}

// printFormats prints available decoders.
func printFormats(reg *decoder.Registry) {
	fmt.Println("Available Formats:")
	for _, f := range reg.Formats() {
		exts := strings.Join(f.Extensions(), ", ")
		fmt.Printf("  %-10s - %s [extensions: %s]\n", f.Name(), f.Description(), exts)
	}
}

// probe prints the estimated duration of each path.
func probe(reg *decoder.Registry, paths []string) {
	for _, path := range paths {
		t, err := track.New(path)
		if err != nil {
			fmt.Printf("  %-30s - error: %v\n", filepath.Base(path), err)
			continue
		}
		if d, ok := reg.Probe(path); ok {
			t.Duration = d
		}
		if t.HasDuration() {
			fmt.Printf("  %-30s - %s (%s)\n", t.Name, formatDuration(t.Duration), t.Format)
		} else {
			fmt.Printf("  %-30s - unknown (%s)\n", t.Name, t.Format)
		}
	}
}
