package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"treecheck/internal/core/errors"
	"treecheck/internal/core/fixture"
	"treecheck/internal/core/report"
	"treecheck/internal/engine/grammar"
	"treecheck/internal/engine/match"
	"treecheck/internal/engine/pattern"
	"treecheck/internal/engine/syntax"
	"treecheck/internal/shared/observability"
	"treecheck/internal/shared/util"
)

type Options struct {
	// Jobs bounds worker concurrency; 0 means one worker per core.
	Jobs int
	// ParseTimeout aborts a single fixture's parse; 0 disables the policy.
	ParseTimeout time.Duration
	// MaxMismatches caps enumeration per fixture; 0 uses the matcher default.
	MaxMismatches int
	// MaxParseRate throttles parser invocations per second; 0 disables.
	MaxParseRate float64
	ParseBurst   int
}

// Runner orchestrates loader, grammars and matcher for every fixture.
// Fixtures are independent; the only shared state (grammar loader,
// matcher) is read-only, so the map is embarrassingly parallel.
type Runner struct {
	grammars *grammar.Loader
	loader   *fixture.Loader
	matcher  *match.Matcher
	limiter  *util.Limiter
	opts     Options
}

func New(grammars *grammar.Loader, loader *fixture.Loader, opts Options) *Runner {
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	var limiter *util.Limiter
	if opts.MaxParseRate > 0 {
		burst := opts.ParseBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = util.NewLimiter(opts.MaxParseRate, burst)
	}
	return &Runner{
		grammars: grammars,
		loader:   loader,
		matcher:  match.NewMatcher(opts.MaxMismatches),
		limiter:  limiter,
		opts:     opts,
	}
}

// Run evaluates every fixture under the roots and aggregates one verdict
// per fixture. Per-fixture failures never abort the run; only a failed
// discovery or a cancelled context do.
func (r *Runner) Run(ctx context.Context, roots []string) (*report.Report, error) {
	started := time.Now()

	fixtures, warnings, err := r.loader.Discover(roots)
	if err != nil {
		return nil, err
	}

	results := make([]report.FixtureResult, len(fixtures))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(r.opts.Jobs, max(len(fixtures), 1)))

	for i, fx := range fixtures {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = r.evaluate(gctx, fx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return report.Finalize(roots, started, results, warnings), nil
}

// evaluate produces the verdict for one fixture. All infrastructure
// failures are folded into a Fail verdict; a panic in a grammar binding is
// recovered and recorded the same way.
func (r *Runner) evaluate(ctx context.Context, fx fixture.Fixture) (res report.FixtureResult) {
	evalStart := time.Now()
	res = report.FixtureResult{Path: fx.Path, Language: fx.Language}
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("recovered panic while evaluating fixture", "path", fx.Path, "panic", rec)
			res.Verdict = match.FailVerdict(match.MismatchAdapterFailure,
				"successful evaluation", fmt.Sprintf("panic: %v", rec))
		}
		res.Duration = time.Since(evalStart)
	}()

	if err := r.limiter.Wait(ctx, 1); err != nil {
		res.Verdict = match.FailVerdict(match.MismatchAdapterFailure,
			"parse slot within run deadline", err.Error())
		return res
	}

	lang, err := r.grammars.Resolve(fx.Language)
	if err != nil {
		slog.Warn("no grammar for fixture", "path", fx.Path, "language", fx.Language)
		res.Verdict = match.FailVerdict(match.MismatchUnknownLanguage,
			fmt.Sprintf("a registered grammar for %q", fx.Language), err.Error())
		return res
	}

	source, err := fx.ReadSource()
	if err != nil {
		slog.Warn("failed to read fixture", "path", fx.Path, "error", err)
		res.Verdict = match.FailVerdict(match.MismatchAdapterFailure,
			"readable fixture source", err.Error())
		return res
	}

	var expect *pattern.File
	if fx.ExpectPath != "" {
		expect, err = pattern.Load(fx.ExpectPath)
		if err != nil {
			slog.Warn("failed to load expectation", "path", fx.ExpectPath, "error", err)
			res.Verdict = match.FailVerdict(match.MismatchAdapterFailure,
				"valid expectation file", err.Error())
			return res
		}
	}

	parseStart := time.Now()
	root, err := r.normalize(ctx, lang, source)
	observability.ParseDuration.WithLabelValues(fx.Language).Observe(time.Since(parseStart).Seconds())
	if err != nil {
		res.Verdict = verdictForNormalizeError(err, r.opts.ParseTimeout)
		return res
	}

	matchStart := time.Now()
	res.Verdict = r.matcher.Match(root, expect)
	observability.MatchDuration.Observe(time.Since(matchStart).Seconds())
	return res
}

type parseOutcome struct {
	root *syntax.Node
	err  error
}

// normalize runs the adapter, optionally bounded by the per-fixture parse
// timeout. tree-sitter parses are not interruptible, so on timeout the
// worker abandons the parse goroutine and records the fixture as failed.
func (r *Runner) normalize(ctx context.Context, lang *sitter.Language, source []byte) (*syntax.Node, error) {
	if r.opts.ParseTimeout <= 0 {
		return syntax.Normalize(lang, source)
	}

	ch := make(chan parseOutcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- parseOutcome{err: errors.New(errors.CodeAdapterFailure,
					fmt.Sprintf("panic during parse: %v", rec))}
			}
		}()
		root, err := syntax.Normalize(lang, source)
		ch <- parseOutcome{root: root, err: err}
	}()

	timer := time.NewTimer(r.opts.ParseTimeout)
	defer timer.Stop()

	select {
	case outcome := <-ch:
		return outcome.root, outcome.err
	case <-timer.C:
		return nil, errors.New(errors.CodeTimeout, "parse deadline exceeded")
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.CodeAdapterFailure, "run cancelled")
	}
}

func verdictForNormalizeError(err error, timeout time.Duration) match.Verdict {
	switch {
	case errors.IsCode(err, errors.CodeTimeout):
		return match.FailVerdict(match.MismatchTimeout,
			fmt.Sprintf("parse within %s", timeout), "deadline exceeded")
	case errors.IsCode(err, errors.CodeParseError):
		return match.FailVerdict(match.MismatchParseError,
			"parseable source", err.Error())
	default:
		return match.FailVerdict(match.MismatchAdapterFailure,
			"successful tree normalization", err.Error())
	}
}
