package config

import (
	"fmt"
	"strings"

	"treecheck/internal/core/errors"
)

const supportedVersion = 1

func validateVersion(cfg *Config) error {
	if cfg.Version != supportedVersion {
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("unsupported config version %d (expected %d)", cfg.Version, supportedVersion))
	}
	return nil
}

func validateRoots(cfg *Config) error {
	if len(cfg.FixtureRoots) == 0 {
		return errors.New(errors.CodeValidationError, "fixture_roots must name at least one directory")
	}
	return nil
}

func validateRun(cfg *Config) error {
	if cfg.Run.Jobs < 0 {
		return errors.New(errors.CodeValidationError, "run.jobs must not be negative")
	}
	if cfg.Run.ParseTimeout < 0 {
		return errors.New(errors.CodeValidationError, "run.parse_timeout must not be negative")
	}
	if cfg.Run.MaxParseRate < 0 {
		return errors.New(errors.CodeValidationError, "run.max_parse_rate must not be negative")
	}
	return nil
}

var validFormats = map[string]bool{
	"text": true,
	"json": true,
}

func validateOutput(cfg *Config) error {
	if !validFormats[cfg.Output.Format] {
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("unknown output format %q (expected text or json)", cfg.Output.Format))
	}
	return nil
}

func validateLanguages(cfg *Config) error {
	for id, lang := range cfg.Languages {
		if strings.TrimSpace(id) == "" {
			return errors.New(errors.CodeValidationError, "language override with empty id")
		}
		for _, ext := range lang.Extensions {
			ext = strings.TrimSpace(ext)
			if ext == "" || ext == "." {
				return errors.New(errors.CodeValidationError,
					fmt.Sprintf("language %q declares an empty extension", id))
			}
		}
	}
	return nil
}
