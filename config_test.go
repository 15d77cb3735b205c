package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CBE_LOG_LEVEL", "")
	t.Setenv("CBE_COLOR", "")
	t.Setenv("CBE_JOBS", "")

	cfg, err := LoadConfig()
	be.Err(t, err, nil)
	be.Equal(t, cfg, Config{LogLevel: LevelWarn, Color: ColorAuto, Jobs: 1})
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("CBE_LOG_LEVEL", "debug")
	t.Setenv("CBE_COLOR", "NEVER")
	t.Setenv("CBE_JOBS", "4")

	cfg, err := LoadConfig()
	be.Err(t, err, nil)
	be.Equal(t, cfg, Config{LogLevel: LevelDebug, Color: ColorNever, Jobs: 4})
	be.True(t, cfg.Logger() != nil)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CBE_LOG_LEVEL", "chatty"},
		{"CBE_COLOR", "rainbow"},
		{"CBE_JOBS", "0"},
	}

	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			t.Setenv("CBE_LOG_LEVEL", "")
			t.Setenv("CBE_COLOR", "")
			t.Setenv("CBE_JOBS", "")
			t.Setenv(test.key, test.value)

			_, err := LoadConfig()
			be.True(t, err != nil)
		})
	}
}

func TestLoadConfigSeesLaterChanges(t *testing.T) {
	t.Setenv("CBE_LOG_LEVEL", "")
	t.Setenv("CBE_COLOR", "")
	t.Setenv("CBE_JOBS", "2")

	cfg, err := LoadConfig()
	be.Err(t, err, nil)
	be.Equal(t, cfg.Jobs, 2)

	t.Setenv("CBE_JOBS", "3")
	t.Setenv("CBE_COLOR", "always")
	cfg, err = LoadConfig()
	be.Err(t, err, nil)
	be.Equal(t, cfg.Jobs, 3)
	be.Equal(t, cfg.Color, ColorAlways)
}
