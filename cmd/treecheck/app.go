package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"treecheck/internal/core/config"
	"treecheck/internal/core/fixture"
	"treecheck/internal/core/report"
	"treecheck/internal/core/runner"
	"treecheck/internal/core/watcher"
	"treecheck/internal/data/history"
	"treecheck/internal/engine/grammar"
	"treecheck/internal/shared/util"
)

type App struct {
	Config   *config.Config
	Grammars *grammar.Loader
	Runner   *runner.Runner

	format  string
	store   *history.Store
	watcher *watcher.Watcher
}

func NewApp(cfg *config.Config, format string, jobs int) (*App, error) {
	registry, err := grammar.BuildLanguageRegistry(languageOverrides(cfg))
	if err != nil {
		return nil, err
	}

	grammars, err := grammar.NewLoader(registry)
	if err != nil {
		return nil, err
	}

	loader, err := fixture.NewLoader(grammars, cfg.Exclude.Dirs, cfg.Exclude.Files)
	if err != nil {
		return nil, err
	}

	if jobs <= 0 {
		jobs = cfg.Run.Jobs
	}
	if format == "" {
		format = cfg.Output.Format
	}

	app := &App{
		Config:   cfg,
		Grammars: grammars,
		Runner: runner.New(grammars, loader, runner.Options{
			Jobs:          jobs,
			ParseTimeout:  cfg.Run.ParseTimeout,
			MaxMismatches: cfg.Run.MaxMismatches,
			MaxParseRate:  cfg.Run.MaxParseRate,
			ParseBurst:    cfg.Run.ParseBurst,
		}),
		format: format,
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		app.store = store
	}

	return app, nil
}

func languageOverrides(cfg *config.Config) map[string]grammar.LanguageOverride {
	if len(cfg.Languages) == 0 {
		return nil
	}
	overrides := make(map[string]grammar.LanguageOverride, len(cfg.Languages))
	for id, lang := range cfg.Languages {
		overrides[id] = grammar.LanguageOverride{
			Enabled:    lang.Enabled,
			Extensions: lang.Extensions,
		}
	}
	return overrides
}

// RunOnce evaluates every fixture, renders the report and persists the run
// summary. The returned flag reports whether every fixture passed.
func (a *App) RunOnce(ctx context.Context) (bool, error) {
	rep, err := a.Runner.Run(ctx, a.Config.FixtureRoots)
	if err != nil {
		return false, err
	}

	if err := a.render(rep); err != nil {
		return false, err
	}
	if err := a.writeOutputs(rep); err != nil {
		slog.Error("failed to write report outputs", "error", err)
	}
	a.saveRun(rep)

	return rep.AllPass(), nil
}

func (a *App) render(rep *report.Report) error {
	if a.format == "json" {
		return report.RenderJSON(os.Stdout, rep)
	}
	return report.RenderText(os.Stdout, rep)
}

func (a *App) writeOutputs(rep *report.Report) error {
	if path := a.Config.Output.JSON; path != "" {
		var b strings.Builder
		if err := report.RenderJSON(&b, rep); err != nil {
			return err
		}
		if err := util.WriteFileWithDirs(path, []byte(b.String()), 0o644); err != nil {
			return fmt.Errorf("write json report %s: %w", path, err)
		}
	}

	if path := a.Config.Output.SARIF; path != "" {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}
		data, err := report.GenerateSARIF(cwd, rep)
		if err != nil {
			return err
		}
		if err := util.WriteFileWithDirs(path, data, 0o644); err != nil {
			return fmt.Errorf("write sarif report %s: %w", path, err)
		}
	}

	return nil
}

func (a *App) saveRun(rep *report.Report) {
	if a.store == nil {
		return
	}
	rec := history.RunRecord{
		ProjectKey:   a.Config.History.ProjectKey,
		RunID:        rep.RunID,
		Timestamp:    rep.StartedAt.UTC(),
		Roots:        strings.Join(rep.Roots, ","),
		Total:        rep.Total,
		Passed:       rep.Passed,
		Failed:       rep.Failed,
		SkippedFiles: len(rep.Warnings),
		DurationMS:   rep.Duration.Milliseconds(),
	}
	if err := a.store.SaveRun(rec); err != nil {
		slog.Error("failed to persist run history", "error", err)
	}
}

// StartWatcher re-runs the suite on fixture or expectation changes.
func (a *App) StartWatcher(ctx context.Context) error {
	w, err := watcher.New(
		a.Config.Watch.Debounce,
		a.Grammars.SupportedExtensions(),
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		func(paths []string) {
			slog.Info("fixtures changed, re-running", "files", len(paths))
			started := time.Now()
			if _, err := a.RunOnce(ctx); err != nil {
				slog.Error("watch run failed", "error", err)
				return
			}
			slog.Debug("watch run complete", "duration", time.Since(started))
		},
	)
	if err != nil {
		return err
	}
	if err := w.Watch(a.Config.FixtureRoots); err != nil {
		_ = w.Close()
		return err
	}
	a.watcher = w
	return nil
}

func (a *App) Close() error {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
