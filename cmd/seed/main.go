package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/inkscore/internal/seed"
	"github.com/okian/inkscore/pkg/logger"
)

// Default configuration constants.
const (
	defaultWorkers = 2 // multiplier for runtime.NumCPU()
	defaultRunTime = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", seed.DefaultBaseURL, "Base URL of the service")
		contestants = flag.Int("contestants", seed.DefaultContestants, "Number of contestants to register")
		judges      = flag.Int("judges", seed.DefaultJudges, "Number of judges to register")
		duplicates  = flag.Int("duplicates", seed.DefaultDuplicates, "Admitted evaluations to resubmit (must be rejected)")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent requests")
		timeout     = flag.Duration("timeout", seed.DefaultTimeout, "HTTP request timeout")
		seedValue   = flag.Uint64("seed", 0, "Score generator seed (0 = time based)")
		reset       = flag.Bool("reset", false, "Delete all records before seeding")
		format      = flag.String("log-format", "text", "Log format: text or json")
		verbose     = flag.Bool("verbose", false, "Log every admitted evaluation")
	)
	flag.Parse()

	logFormat, err := logger.ParseFormat(*format)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	if err := logger.Init(logger.WithFormat(logFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTime)
	defer cancel()

	cfg := &seed.Config{
		BaseURL:     *baseURL,
		Contestants: *contestants,
		Judges:      *judges,
		Duplicates:  *duplicates,
		Workers:     *workers,
		Timeout:     *timeout,
		Seed:        *seedValue,
		Reset:       *reset,
		Verbose:     *verbose,
	}
	if _, err := seed.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "seed run failed", logger.Error(err))
		os.Exit(1)
	}
}
