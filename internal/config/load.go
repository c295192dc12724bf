package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
)

// ErrConfigValidation wraps config validation failures (as opposed to TOML syntax or
// filesystem errors).
var ErrConfigValidation = errors.New("config validation failed")

// Default returns a Config holding only default values.
func Default() (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf(messages.ConfigDefaultsFailedFmt, err)
	}
	return &cfg, nil
}

// Load reads and validates the config at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg, err := Default()
		if err != nil {
			return nil, err
		}
		return finish(cfg, "defaults")
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf(messages.ConfigExpandPathFmt, path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf(messages.ConfigMissingFileFmt, expanded, err)
	}
	return Parse(data, expanded)
}

// Parse decodes TOML data over the defaults and validates the result. source is used in
// error messages.
func Parse(data []byte, source string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	// Defaults are applied first so explicit false and zero values survive decoding.
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: "+messages.ConfigUnrecognizedKeysFmt+" "+messages.ConfigValidationGuidance, ErrConfigValidation, source, err)
		}
		return nil, fmt.Errorf(messages.ConfigInvalidConfigFmt, source, err)
	}
	return finish(cfg, source)
}

func finish(cfg *Config, source string) (*Config, error) {
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(source); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigValidation, err)
	}
	return cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.StateDir, &c.TemplatesDir} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf(messages.ConfigExpandPathFmt, *p, err)
		}
		*p = expanded
	}
	return nil
}
