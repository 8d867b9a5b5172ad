package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"treecheck/internal/core/errors"
)

// DefaultFile is looked up in the working directory when no explicit
// config path is given.
const DefaultFile = "treecheck.toml"

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeValidationError, "failed to parse config"),
			errors.CtxPath, path)
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateRoots(&cfg); err != nil {
		return nil, err
	}
	if err := validateRun(&cfg); err != nil {
		return nil, err
	}
	if err := validateOutput(&cfg); err != nil {
		return nil, err
	}
	if err := validateLanguages(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	normalize(cfg)
	return cfg
}
