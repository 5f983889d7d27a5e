// Package config loads the agent's configuration: dispatcher URL,
// workspace root, reconnect delay, and the LanguageProfile table.
// Process bootstrap and logging setup themselves are deliberately thin —
// out of scope per the agent's own mandate — but the values they feed
// are validated once, here, and held immutable afterward.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the agent's full runtime configuration.
type Config struct {
	DispatcherURL        string
	WorkspaceRoot        string
	ReconnectDelay       time.Duration
	LanguageProfilesPath string
	MaxConcurrentJobs    int
}

// Default returns the configuration's built-in defaults before any
// environment or flag overrides are applied.
func Default() Config {
	return Config{
		DispatcherURL:        "ws://localhost:8080/agent",
		WorkspaceRoot:        "./temp",
		ReconnectDelay:       1 * time.Second,
		LanguageProfilesPath: "",
		MaxConcurrentJobs:    4,
	}
}

// FromEnv overlays environment variables onto cfg, following the
// teacher's convention of a plain os.Getenv read with a fallback to
// whatever was already set.
func FromEnv(cfg Config) Config {
	if v := os.Getenv("DISPATCHER_URL"); v != "" {
		cfg.DispatcherURL = v
	}
	if v := os.Getenv("WORKSPACE_ROOT"); v != "" {
		cfg.WorkspaceRoot = v
	}
	if v := os.Getenv("RECONNECT_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.ReconnectDelay = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("LANGUAGE_PROFILES_PATH"); v != "" {
		cfg.LanguageProfilesPath = v
	}
	if v := os.Getenv("MAX_CONCURRENT_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrentJobs = n
		}
	}
	return cfg
}

// Validate checks the invariants the rest of the agent assumes hold.
func (c Config) Validate() error {
	if c.DispatcherURL == "" {
		return fmt.Errorf("dispatcher URL must not be empty")
	}
	if c.WorkspaceRoot == "" {
		return fmt.Errorf("workspace root must not be empty")
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect delay must be positive")
	}
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("max concurrent jobs must be positive")
	}
	return nil
}
