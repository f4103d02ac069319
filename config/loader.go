// Package config loads agent settings from an optional YAML file and the
// environment.
package config

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/goliatone/go-issuer-agent/core"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const DefaultEnvPrefix = "AGENT_"

// Loader reads a YAML file (if present) and then environment variables with
// EnvPrefix, where "__" separates nesting levels:
// AGENT_MANAGED__INNKEEPER_USER sets managed.innkeeper_user.
type Loader struct {
	Path      string
	EnvPrefix string
}

func NewLoader(path string) *Loader {
	return &Loader{Path: strings.TrimSpace(path), EnvPrefix: DefaultEnvPrefix}
}

func (l *Loader) Load() (core.Config, error) {
	k := koanf.New(".")

	if l.Path != "" {
		if err := k.Load(file.Provider(l.Path), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return core.Config{}, err
			}
		}
	}

	prefix := l.EnvPrefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	if err := k.Load(env.Provider(prefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, prefix)), "__", ".", -1)
	}), nil); err != nil {
		return core.Config{}, err
	}

	var cfg core.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return core.Config{}, err
	}
	return cfg, nil
}

// LoadRaw returns the typed values as a nested layer. Durations are decoded
// here ("500ms", "2s") so later stages only see typed values.
func (l *Loader) LoadRaw(context.Context) (map[string]any, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, core.ConfigurationError("load agent config", err)
	}
	return core.ConfigLayer(cfg, false), nil
}

var _ core.RawConfigLoader = (*Loader)(nil)
