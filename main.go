// ABOUTME: Entry point for the terminal video player
// ABOUTME: Parses CLI flags, sets up logging and runs one playback session
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/termvid/internal/app"
	"github.com/Resonate-Protocol/termvid/internal/player"
	"github.com/Resonate-Protocol/termvid/internal/version"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

var (
	columns     = flag.Int("cols", app.DefaultColumns, "Maximum render width in characters (capped at 100)")
	logFile     = flag.String("log-file", "termvid.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, draw frames directly to the terminal")
	streamLogs  = flag.Bool("stream-logs", false, "Also write logs to stderr (implies -no-tui)")
	noAudio     = flag.Bool("no-audio", false, "Play video only, skip audio extraction")
	volume      = flag.Int("volume", 100, "Initial audio volume (0-100)")
	workdir     = flag.String("workdir", "", "Base directory for session files (default: system temp dir)")
	ascii       = flag.Bool("ascii", false, "Disable color output")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	os.Exit(run())
}

// run plays one session and returns the process exit code
func run() int {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <video-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return 0
	}

	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}
	videoPath := flag.Arg(0)

	stdoutFd := os.Stdout.Fd()
	interactive := isatty.IsTerminal(stdoutFd) || isatty.IsCygwinTerminal(stdoutFd)

	// The TUI needs a real terminal
	useTUI := interactive && !(*noTUI || *streamLogs)

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		return 1
	}
	defer func() { _ = f.Close() }()

	if *streamLogs {
		// Frames own stdout, so streamed logs go to stderr
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	} else {
		log.SetOutput(f)
	}

	log.Printf("Starting %s", version.String())

	termWidth := 0
	if interactive {
		if w, _, err := term.GetSize(int(stdoutFd)); err == nil {
			termWidth = w
		} else {
			log.Printf("Could not read terminal size: %v", err)
		}
	}

	cols := app.EffectiveColumns(*columns, termWidth)
	if cols != *columns {
		log.Printf("Render width adjusted from %d to %d columns", *columns, cols)
	}

	config := app.Config{
		VideoPath:   videoPath,
		Columns:     cols,
		UseTUI:      useTUI,
		Audio:       !*noAudio,
		Volume:      *volume,
		Monochrome:  *ascii,
		WorkdirBase: *workdir,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := app.New(config)
	if err := p.Run(ctx); err != nil {
		log.Printf("Player error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if p.Stats().Exit == player.StateInterrupted {
		fmt.Println("Video playback interrupted by user.")
	}

	stats := p.Stats()
	log.Printf("Player stopped: %d frames consumed, %d displayed, %d skipped, %d render failures, elapsed %v",
		stats.Consumed, stats.Displayed, stats.CatchUpSkipped, stats.RenderFailures, stats.Elapsed)

	return 0
}
