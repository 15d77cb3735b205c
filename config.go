package main

import (
	"fmt"
	"strings"

	"github.com/xyproto/env/v2"
)

// ColorMode controls ANSI colouring of log output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Config carries the driver settings that can come from the environment.
// Command-line flags override these.
type Config struct {
	LogLevel LogLevel
	Color    ColorMode
	// Jobs is how many functions may be register-allocated at once.
	Jobs int
}

// LoadConfig reads CBE_LOG_LEVEL, CBE_COLOR and CBE_JOBS. The env
// snapshot is reloaded on every call.
func LoadConfig() (Config, error) {
	env.Load()

	level, err := ParseLogLevel(env.Str("CBE_LOG_LEVEL", "warn"))
	if err != nil {
		return Config{}, fmt.Errorf("CBE_LOG_LEVEL: %w", err)
	}

	color := ColorMode(strings.ToLower(env.Str("CBE_COLOR", string(ColorAuto))))
	switch color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return Config{}, fmt.Errorf("CBE_COLOR: unknown mode %q", color)
	}

	jobs := env.Int("CBE_JOBS", 1)
	if jobs < 1 {
		return Config{}, fmt.Errorf("CBE_JOBS: must be at least 1, got %d", jobs)
	}

	return Config{LogLevel: level, Color: color, Jobs: jobs}, nil
}

// Logger builds the stderr logger described by the config.
func (c Config) Logger() *Logger {
	return NewStderrLogger(c.LogLevel, c.Color)
}
