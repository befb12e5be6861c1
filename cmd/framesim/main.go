package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/proctorwatch/internal/framesim"
	"github.com/okian/proctorwatch/pkg/logger"
)

const defaultRunTimeout = 30 * time.Minute

func main() {
	var (
		baseURL    = flag.String("url", framesim.DefaultBaseURL, "Base URL of the service")
		candidates = flag.Int("candidates", framesim.DefaultCandidates, "Number of candidates to simulate")
		frames     = flag.Int("frames", framesim.DefaultFrames, "Frames per candidate")
		interval   = flag.Duration("interval", framesim.DefaultInterval, "Pause between frames of one candidate")
		workers    = flag.Int("workers", runtime.NumCPU(), "Candidates simulated concurrently")
		timeout    = flag.Duration("timeout", framesim.DefaultTimeout, "HTTP request timeout")
		seed       = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Scene seed")
		verbose    = flag.Bool("verbose", false, "Log every frame")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		framesim.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &framesim.Config{
		BaseURL:    *baseURL,
		Candidates: *candidates,
		Frames:     *frames,
		Interval:   *interval,
		Workers:    *workers,
		Timeout:    *timeout,
		Seed:       *seed,
		Verbose:    *verbose,
	}
	if _, err := framesim.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
