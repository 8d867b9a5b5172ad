package fixture

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"treecheck/internal/core/errors"
	"treecheck/internal/engine/grammar"
	"treecheck/internal/engine/pattern"
	"treecheck/internal/shared/observability"
)

// Fixture is one discovered test case: a source file, its inferred
// language tag and, when a sibling expectation file exists, the path to
// it. Immutable once built; source bytes are read lazily at run time.
type Fixture struct {
	Path       string
	Language   string
	ExpectPath string
}

// ReadSource reads the fixture's source bytes.
func (f Fixture) ReadSource() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// Warning records a file that was skipped during discovery. Warnings are
// carried into the final report; they never abort a run.
type Warning struct {
	Path    string           `json:"path"`
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// Loader discovers fixtures under one or more roots. Paths come back in
// lexicographic order so reports are reproducible.
type Loader struct {
	grammars     *grammar.Loader
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

func NewLoader(grammars *grammar.Loader, excludeDirs, excludeFiles []string) (*Loader, error) {
	dirGlobs, err := compileGlobs(excludeDirs, "dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(excludeFiles, "file")
	if err != nil {
		return nil, err
	}
	return &Loader{
		grammars:     grammars,
		excludeDirs:  dirGlobs,
		excludeFiles: fileGlobs,
	}, nil
}

func compileGlobs(patterns []string, kind string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude %s pattern %q: %w", kind, p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Discover walks the roots and returns every fixture plus a warning per
// skipped file. An unreadable root is an error; anything below it is not.
func (l *Loader) Discover(roots []string) ([]Fixture, []Warning, error) {
	cleaned := uniqueSortedRoots(roots)

	var fixtures []Fixture
	var warnings []Warning

	for _, root := range cleaned {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			if d.IsDir() {
				for _, g := range l.excludeDirs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}

			// Expectation siblings describe fixtures, they are not fixtures.
			if strings.HasSuffix(base, pattern.Suffix) {
				return nil
			}

			for _, g := range l.excludeFiles {
				if g.Match(base) {
					return nil
				}
			}

			ext := strings.ToLower(filepath.Ext(base))
			lang, ok := l.grammars.LanguageForExtension(ext)
			if !ok {
				observability.FixturesSkippedTotal.Inc()
				warnings = append(warnings, Warning{
					Path:    path,
					Code:    errors.CodeUnrecognizedExtension,
					Message: fmt.Sprintf("no language mapped for extension %q", ext),
				})
				slog.Debug("skipping file with unrecognized extension", "path", path, "ext", ext)
				return nil
			}

			fixtures = append(fixtures, Fixture{
				Path:       path,
				Language:   lang,
				ExpectPath: expectPathFor(path),
			})
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}

	sort.Slice(fixtures, func(i, j int) bool { return fixtures[i].Path < fixtures[j].Path })
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Path < warnings[j].Path })
	return fixtures, warnings, nil
}

func expectPathFor(fixturePath string) string {
	candidate := pattern.PathFor(fixturePath)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return ""
}

func uniqueSortedRoots(roots []string) []string {
	seen := make(map[string]bool, len(roots))
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		clean := filepath.Clean(strings.TrimSpace(root))
		if clean == "" || seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	sort.Strings(out)
	return out
}
