// Package config reads the event log settings from the process environment.
//
// Only the outermost layers (systemevents.BootFromEnv and the CLI) call into this
// package; every component below them takes an explicit filesink.Config.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"

	"github.com/rmacdonaldsmith/sysevents/internal/filesink"
)

// Env holds the raw environment settings.
type Env struct {
	// LogFilePath overrides the daily default destination.
	LogFilePath string `env:"LOG_FILE_PATH"`

	// Template replaces the default line template.
	Template string `env:"CUSTOM_LOG_TEMPLATE"`

	// Placeholders is a JSON object of extra template tokens.
	Placeholders string `env:"CUSTOM_LOG_PLACEHOLDERS"`
}

// LoadEnv parses Env from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// LoadEnvFrom parses Env from vars instead of the process environment.
func LoadEnvFrom(vars map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: vars}); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// SinkConfig converts the environment settings into a sink configuration.
// A malformed placeholder object is logged and ignored.
func (e Env) SinkConfig(logger *slog.Logger) *filesink.Config {
	cfg := filesink.NewConfig().
		WithPath(e.LogFilePath).
		WithTemplate(e.Template)
	if e.Placeholders != "" {
		cfg = cfg.WithPlaceholders(ParsePlaceholders(e.Placeholders, logger))
	}
	return cfg
}

// FromEnv is LoadEnv followed by SinkConfig.
func FromEnv(logger *slog.Logger) (*filesink.Config, error) {
	e, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	return e.SinkConfig(logger), nil
}

// ParsePlaceholders decodes a JSON object of placeholder values. String values are used
// as is, other scalars are rendered as JSON text, and nested values as compact JSON.
// Anything but a JSON object yields an empty map and a warning.
func ParsePlaceholders(raw string, logger *slog.Logger) map[string]string {
	if logger == nil {
		logger = slog.Default()
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var decoded map[string]any
	if err := dec.Decode(&decoded); err != nil || decoded == nil {
		logger.Warn("ignoring malformed CUSTOM_LOG_PLACEHOLDERS", "error", err)
		return map[string]string{}
	}

	out := make(map[string]string, len(decoded))
	for key, value := range decoded {
		switch v := value.(type) {
		case string:
			out[key] = v
		case json.Number:
			out[key] = v.String()
		case nil:
			out[key] = ""
		case bool:
			out[key] = fmt.Sprint(v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				logger.Warn("ignoring placeholder value", "key", key, "error", err)
				continue
			}
			out[key] = string(encoded)
		}
	}
	return out
}
