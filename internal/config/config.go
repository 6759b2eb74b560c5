package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds all configurable codewalk settings.
type Config struct {
	Model          string   `json:"model"`           // explanation model name
	StorageDir     string   `json:"storage_dir"`     // journals and tours live here
	IgnorePatterns []string `json:"ignore_patterns"` // extra gitignore-style patterns
	DetailLevel    string   `json:"detail_level"`    // starting detail level for playback
	PlaybackSpeed  float64  `json:"playback_speed"`  // speed multiplier
	StepSeconds    int      `json:"step_seconds"`    // base seconds per step during auto-play
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		Model:          "gpt-4o-mini",
		StorageDir:     ".codewalk",
		IgnorePatterns: []string{},
		DetailLevel:    "general",
		PlaybackSpeed:  1.0,
		StepSeconds:    8,
	}
}

// LoadGlobal reads ~/.config/codewalk/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, ".config", "codewalk", "config.json")
	return loadFile(path, true)
}

// LoadProject reads .codewalkconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".codewalkconfig", false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()

	apply := func(c *Config) {
		if c == nil {
			return
		}
		if c.Model != "" {
			result.Model = c.Model
		}
		if c.StorageDir != "" {
			result.StorageDir = c.StorageDir
		}
		if len(c.IgnorePatterns) > 0 {
			result.IgnorePatterns = c.IgnorePatterns
		}
		if c.DetailLevel != "" {
			result.DetailLevel = c.DetailLevel
		}
		if c.PlaybackSpeed > 0 {
			result.PlaybackSpeed = c.PlaybackSpeed
		}
		if c.StepSeconds > 0 {
			result.StepSeconds = c.StepSeconds
		}
	}

	// Apply global values over defaults, then project over global.
	apply(global)
	apply(project)

	return result
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
