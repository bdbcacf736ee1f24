// Package config loads the agent's root configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the root configuration. Zero values fall back to defaults
// applied by each component's constructor; only the fields with no
// sensible zero default are filled in by ApplyDefaults.
type Config struct {
	// AddressMapPath locates the memory address map JSON.
	AddressMapPath string `json:"address_map_path"`

	// StorePath is the SQLite database path. Empty disables persistence.
	StorePath string `json:"store_path"`

	Emulator struct {
		// BaseURL of the emulator sidecar.
		BaseURL string `json:"base_url"`
	} `json:"emulator"`

	Provider struct {
		// Kind selects the provider implementation: "http" or "gemini".
		Kind string `json:"kind"`
		// BaseURL of the HTTP decision service (http kind).
		BaseURL string `json:"base_url"`
		// Model name (gemini kind).
		Model string `json:"model"`
		// Temperature for sampling (gemini kind).
		Temperature float32 `json:"temperature"`
	} `json:"provider"`

	Loop struct {
		// DecisionDeadlineSeconds bounds the per-cycle wait for a
		// decision.
		DecisionDeadlineSeconds int `json:"decision_deadline_seconds"`
		// PollIntervalMillis is the sleep between decision polls.
		PollIntervalMillis int `json:"poll_interval_millis"`
		// PollTickFrames advances the emulator between polls.
		PollTickFrames int `json:"poll_tick_frames"`
		// TurnTickFrames advances the emulator after each cycle.
		TurnTickFrames int `json:"turn_tick_frames"`
		// CheckpointEvery persists state every N turns.
		CheckpointEvery int `json:"checkpoint_every"`
		// ExploreRadius is the unexplored-hint window.
		ExploreRadius int `json:"explore_radius"`
	} `json:"loop"`

	Exploration struct {
		// TotalTilesFloor is the minimum estimated zone size.
		TotalTilesFloor int `json:"total_tiles_floor"`
	} `json:"exploration"`

	History struct {
		MaxTurns   int `json:"max_turns"`
		KeepRecent int `json:"keep_recent"`
	} `json:"history"`

	Stuck struct {
		Threshold int `json:"threshold"`
	} `json:"stuck"`

	Actions struct {
		PressFrames  int `json:"press_frames"`
		WaitFrames   int `json:"wait_frames"`
		SettleFrames int `json:"settle_frames"`
	} `json:"actions"`

	API struct {
		// Port for the status server. Zero disables it.
		Port int `json:"port"`
	} `json:"api"`

	Secrets struct {
		// Service is the keyring service name.
		Service string `json:"service"`
		// FallbackPath is the plain-file secret fallback.
		FallbackPath string `json:"fallback_path"`
	} `json:"secrets"`
}

// Load reads a config file. A missing file yields the defaults; any
// other read or parse failure is an error.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills the fields with no sensible zero value.
func (c *Config) ApplyDefaults() {
	if c.AddressMapPath == "" {
		c.AddressMapPath = "data/memory_addresses.json"
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = "http"
	}
	if c.API.Port == 0 {
		c.API.Port = 8790
	}
}

// DecisionDeadline returns the loop deadline as a duration.
func (c *Config) DecisionDeadline() time.Duration {
	return time.Duration(c.Loop.DecisionDeadlineSeconds) * time.Second
}

// PollInterval returns the poll sleep as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Loop.PollIntervalMillis) * time.Millisecond
}
