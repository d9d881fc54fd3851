package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mpdviz/internal/api"
	"mpdviz/internal/batch"
	"mpdviz/internal/cache"
	"mpdviz/internal/config"
	"mpdviz/internal/expand"
	"mpdviz/internal/logger"
	"mpdviz/internal/metrics"
	"mpdviz/internal/render"
)

const shutdownTimeout = 5 * time.Second

var errFailedInputs = errors.New("some inputs could not be processed")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mpdviz: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load .env and environment defaults
	_ = config.Load()
	cfg := config.FromEnv()

	// 2. Parse command-line arguments
	debug := flag.Bool("d", false, "Enable debug tracing of expansion and rendering")
	hlsDir := flag.String("hls", "", "Write HLS playlists for each manifest under this directory")
	workers := flag.Int("workers", cfg.Workers, "Number of manifests processed in parallel")
	textfile := flag.String("metrics-textfile", cfg.MetricsTextfile, "Write Prometheus metrics to this file after a batch run")
	serve := flag.String("serve", "", "Run the HTTP service on this address instead of processing files (e.g. :8080)")
	paletteFile := flag.String("palette", cfg.PaletteFile, "Path to a JSON colour palette")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (error, warn, info, debug)")
	userAgent := flag.String("user-agent", "mpdviz", "User-Agent sent when fetching http(s) inputs")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <file-or-dir>...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -serve :8080\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Inputs may be .mpd files, .har captures, directories of .mpd files or http(s) manifest URLs.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *debug {
		*logLevel = "debug"
	}

	// 3. Initialize logger
	log := logger.NewLogger(*logLevel, cfg.LogFormat, os.Stderr)

	// 4. Build rendering options
	palette := config.DefaultPalette()
	if *paletteFile != "" {
		p, err := config.LoadPalette(*paletteFile)
		if err != nil {
			return err
		}
		palette = p
	}
	renderOpts := render.Options{
		Scale:         cfg.Scale,
		MaxDurationMS: cfg.MaxDurationMS,
		Palette:       &palette,
		Debug:         *debug,
		Logger:        log,
	}
	expandOpts := expand.Options{Debug: *debug, Logger: log}
	met := metrics.New()

	if *serve != "" {
		return serveHTTP(*serve, cfg, log, met, expandOpts, renderOpts)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		return errors.New("no input given")
	}

	// 5. Run the batch
	runner := batch.NewRunner(batch.Options{
		Workers:   *workers,
		HLSDir:    *hlsDir,
		UserAgent: *userAgent,
		Expand:    expandOpts,
		Render:    renderOpts,
		Logger:    log,
		Metrics:   met,
	})
	results := runner.Run(context.Background(), flag.Args())

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	log.Infof("Processed %d manifests, %d failed", len(results), failed)

	if *textfile != "" {
		if err := met.WriteTextfile(*textfile); err != nil {
			return fmt.Errorf("failed to write metrics textfile: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errFailedInputs, failed, len(results))
	}
	return nil
}

func serveHTTP(addr string, cfg config.Config, log *logger.SlogLogger, met *metrics.Metrics, expandOpts expand.Options, renderOpts render.Options) error {
	// 1. Start the render cache
	renderCache := cache.New(log, cfg.CacheTTL)
	renderCache.Start()
	defer renderCache.Stop()

	// 2. Set up API router with dependencies
	router := api.New(api.Options{
		Logger:  log,
		Metrics: met,
		Cache:   renderCache,
		Expand:  expandOpts,
		Render:  renderOpts,
	})

	// 3. Run the HTTP server with graceful shutdown
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("could not listen on %s: %w", addr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Infof("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Infof("Server exited gracefully")
	return nil
}
