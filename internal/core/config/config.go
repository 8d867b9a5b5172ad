package config

import (
	"strings"
	"time"
)

type Config struct {
	Version      int                 `toml:"version"`
	FixtureRoots []string            `toml:"fixture_roots"`
	Exclude      Exclude             `toml:"exclude"`
	Run          Run                 `toml:"run"`
	Languages    map[string]Language `toml:"languages"`
	Output       Output              `toml:"output"`
	History      History             `toml:"history"`
	Watch        Watch               `toml:"watch"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Run struct {
	Jobs          int           `toml:"jobs"`
	ParseTimeout  time.Duration `toml:"parse_timeout"`
	MaxMismatches int           `toml:"max_mismatches"`
	MaxParseRate  float64       `toml:"max_parse_rate"`
	ParseBurst    int           `toml:"parse_burst"`
}

type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
}

type Output struct {
	Format string `toml:"format"`
	JSON   string `toml:"json"`
	SARIF  string `toml:"sarif"`
}

type History struct {
	Enabled    bool   `toml:"enabled"`
	Path       string `toml:"path"`
	ProjectKey string `toml:"project_key"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if len(cfg.FixtureRoots) == 0 {
		cfg.FixtureRoots = []string{"fixtures"}
	}

	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", "node_modules"}
	}

	if cfg.Run.ParseTimeout == 0 {
		cfg.Run.ParseTimeout = 10 * time.Second
	}
	if cfg.Run.MaxMismatches <= 0 {
		cfg.Run.MaxMismatches = 100
	}
	if cfg.Run.ParseBurst <= 0 {
		cfg.Run.ParseBurst = 1
	}

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "data/state/history.db"
	}
	if strings.TrimSpace(cfg.History.ProjectKey) == "" {
		cfg.History.ProjectKey = "default"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}

func normalize(cfg *Config) {
	roots := make([]string, 0, len(cfg.FixtureRoots))
	for _, root := range cfg.FixtureRoots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		roots = append(roots, root)
	}
	cfg.FixtureRoots = roots

	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Output.JSON = strings.TrimSpace(cfg.Output.JSON)
	cfg.Output.SARIF = strings.TrimSpace(cfg.Output.SARIF)
	cfg.History.Path = strings.TrimSpace(cfg.History.Path)
	cfg.History.ProjectKey = strings.TrimSpace(cfg.History.ProjectKey)
}
