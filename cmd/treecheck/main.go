package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"treecheck/internal/core/config"
)

var (
	configPath = flag.String("config", config.DefaultFile, "Path to config file")
	format     = flag.String("format", "", "Report format: text or json (overrides config)")
	jobs       = flag.Int("jobs", 0, "Worker count (overrides config; 0 means one per core)")
	watch      = flag.Bool("watch", false, "Re-run on fixture changes")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("treecheck v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == config.DefaultFile && os.IsNotExist(err) {
			slog.Debug("no config file found, using defaults")
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	if *format != "" && *format != "text" && *format != "json" {
		fmt.Fprintf(os.Stderr, "unknown format %q (expected text or json)\n", *format)
		os.Exit(1)
	}

	// Positional arguments override the configured fixture roots.
	if flag.NArg() > 0 {
		cfg.FixtureRoots = flag.Args()
	}

	app, err := NewApp(cfg, *format, *jobs)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ok, err := app.RunOnce(ctx)
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}

	if *watch {
		if err := app.StartWatcher(ctx); err != nil {
			slog.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
		<-ctx.Done()
		os.Exit(0)
	}

	if !ok {
		os.Exit(1)
	}
}
