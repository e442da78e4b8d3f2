package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config holds CLI defaults loaded from a config file.
//
// The file is hujson (JSON with comments and trailing commas), looked up at
// $XDG_CONFIG_HOME/slotmap/config.json or ~/.config/slotmap/config.json
// unless an explicit path is given.
type Config struct {
	// RegionDir is prepended to relative region paths.
	RegionDir string `json:"region_dir"`

	// DefaultSlots sizes newly created regions when --slots is not given.
	DefaultSlots int `json:"default_slots"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{DefaultSlots: 1024}
}

func defaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "slotmap", "config.json")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "slotmap", "config.json")
}

// LoadConfig loads the config file at path, or the default location when
// path is empty. A missing default-location file yields the defaults; a
// missing explicit file is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return DefaultConfig(), nil
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}

		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}

	if cfg.DefaultSlots < 1 {
		return Config{}, fmt.Errorf("config %s: default_slots must be >= 1, got %d", path, cfg.DefaultSlots)
	}

	return cfg, nil
}

// resolveRegionPath applies RegionDir to relative paths.
func (c Config) resolveRegionPath(path string) string {
	if c.RegionDir == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(c.RegionDir, path)
}
