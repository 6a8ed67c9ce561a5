// Package config holds persisted user settings and environment loading.
package config

import (
	"os"
	"path/filepath"
	"time"
)

type Settings struct {
	Engine         string `json:"engine"`
	Model          string `json:"model"` // empty until the user picks one
	Chunked        bool   `json:"chunked"`
	ChunkSeconds   int    `json:"chunk_seconds"`
	ModelDir       string `json:"model_dir"`
	WhisperBin     string `json:"whisper_bin"`
	OutputDir      string `json:"output_dir"`
	PollIntervalMs int    `json:"poll_interval_ms"`
	AssumedSeconds int    `json:"assumed_seconds"`
	SampleRate     int    `json:"sample_rate"`
	Channels       int    `json:"channels"`
	Device         string `json:"device"`
	Beeps          bool   `json:"beeps"`
}

// DefaultSettings returns first-run values.
func DefaultSettings() Settings {
	home, _ := os.UserHomeDir()
	return Settings{
		Engine:         "whispercpp",
		ChunkSeconds:   30,
		ModelDir:       filepath.Join(Dir(), "models"),
		OutputDir:      filepath.Join(home, "Documents"),
		PollIntervalMs: 100,
		AssumedSeconds: 60,
		SampleRate:     44100,
		Channels:       2,
		Beeps:          true,
	}
}

// Normalize fills fields left zero by older settings files.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if s.Engine == "" {
		s.Engine = d.Engine
	}
	if s.ChunkSeconds <= 0 {
		s.ChunkSeconds = d.ChunkSeconds
	}
	if s.ModelDir == "" {
		s.ModelDir = d.ModelDir
	}
	if s.OutputDir == "" {
		s.OutputDir = d.OutputDir
	}
	if s.PollIntervalMs <= 0 {
		s.PollIntervalMs = d.PollIntervalMs
	}
	if s.AssumedSeconds <= 0 {
		s.AssumedSeconds = d.AssumedSeconds
	}
	if s.SampleRate <= 0 {
		s.SampleRate = d.SampleRate
	}
	if s.Channels != 1 && s.Channels != 2 {
		s.Channels = d.Channels
	}
	return s
}

func (s Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

func (s Settings) AssumedDuration() time.Duration {
	return time.Duration(s.AssumedSeconds) * time.Second
}

func (s Settings) ChunkWindow() time.Duration {
	return time.Duration(s.ChunkSeconds) * time.Second
}

// Dir is the per-user configuration directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wisp")
	}
	if d, err := os.UserConfigDir(); err == nil {
		return filepath.Join(d, "wisp")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "wisp")
}

func DefaultPath() string {
	return filepath.Join(Dir(), "settings.json")
}
