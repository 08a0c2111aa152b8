// ABOUTME: Entry point for the ampkit player
// ABOUTME: Parses CLI flags, builds the player and runs the TUI or headless mode
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ampkit/ampkit-go/internal/player"
	"github.com/ampkit/ampkit-go/internal/ui"
	"github.com/ampkit/ampkit-go/internal/version"
	"github.com/ampkit/ampkit-go/pkg/audio/output"
)

var (
	device     = flag.String("device", "malgo", "Audio backend: malgo, oto or none")
	sampleRate = flag.Int("rate", 44100, "Pipeline sample rate in Hz")
	blockSize  = flag.Int("block", 2048, "Frames per processing block")
	bufferMs   = flag.Int("buffer-ms", 200, "Output buffer size in milliseconds")
	fadeMs     = flag.Int("fade-ms", 300, "Fade duration on play/stop in milliseconds (0 disables)")
	repeat     = flag.Bool("repeat", false, "Repeat the current track when it ends")
	logFile    = flag.String("log-file", "ampkit.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
)

func main() {
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatalf("usage: ampkit [flags] FILE_OR_URL...")
	}
	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to the file so the screen stays clean.
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}
	log.Printf("%s %s starting", version.Product, version.Version)

	var sink output.Sink
	switch *device {
	case "malgo":
		sink = output.NewMalgo()
	case "oto":
		sink = output.NewOto()
	case "none":
		sink = output.NewNull()
	default:
		log.Fatalf("unknown audio backend %q", *device)
	}

	cfg := player.DefaultConfig()
	cfg.SampleRate = *sampleRate
	cfg.BlockFrames = *blockSize
	cfg.BufferDuration = time.Duration(*bufferMs) * time.Millisecond
	cfg.FadeDuration = time.Duration(*fadeMs) * time.Millisecond

	p := player.New(sink, cfg)
	defer p.Close()

	p.Enqueue(flag.Args()...)
	p.SetRepeat(*repeat)
	if err := p.Play(); err != nil {
		log.Fatalf("play: %v", err)
	}

	if useTUI {
		prog := ui.Run(p)
		if _, err := prog.Run(); err != nil {
			log.Fatalf("TUI error: %v", err)
		}
		return
	}

	// Headless: run until the queue ends or a signal arrives.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			return
		case ev := <-p.Events():
			switch ev.Kind {
			case player.EventTrackStarted:
				log.Printf("track started: %s", ev.Track.Path)
			case player.EventTrackEnded:
				log.Printf("queue finished")
				return
			case player.EventPlaybackError:
				log.Printf("playback error: %v", ev.Err)
				return
			}
		}
	}
}
