package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AddressMapPath != "data/memory_addresses.json" {
		t.Errorf("unexpected address map path %q", cfg.AddressMapPath)
	}
	if cfg.Provider.Kind != "http" {
		t.Errorf("unexpected provider kind %q", cfg.Provider.Kind)
	}
	if cfg.API.Port != 8790 {
		t.Errorf("unexpected API port %d", cfg.API.Port)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"store_path": "/tmp/agent.db",
		"emulator": {"base_url": "http://127.0.0.1:5001"},
		"provider": {"kind": "gemini", "model": "gemini-2.0-flash", "temperature": 0.5},
		"loop": {"decision_deadline_seconds": 45, "poll_interval_millis": 25},
		"history": {"max_turns": 50, "keep_recent": 10},
		"api": {"port": 9000}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorePath != "/tmp/agent.db" {
		t.Errorf("unexpected store path %q", cfg.StorePath)
	}
	if cfg.Emulator.BaseURL != "http://127.0.0.1:5001" {
		t.Errorf("unexpected emulator URL %q", cfg.Emulator.BaseURL)
	}
	if cfg.Provider.Kind != "gemini" || cfg.Provider.Model != "gemini-2.0-flash" {
		t.Errorf("unexpected provider config %+v", cfg.Provider)
	}
	if cfg.DecisionDeadline() != 45*time.Second {
		t.Errorf("unexpected decision deadline %s", cfg.DecisionDeadline())
	}
	if cfg.PollInterval() != 25*time.Millisecond {
		t.Errorf("unexpected poll interval %s", cfg.PollInterval())
	}
	if cfg.History.MaxTurns != 50 || cfg.History.KeepRecent != 10 {
		t.Errorf("unexpected history config %+v", cfg.History)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("unexpected API port %d", cfg.API.Port)
	}

	// Defaults still fill the untouched fields.
	if cfg.AddressMapPath != "data/memory_addresses.json" {
		t.Errorf("unexpected address map path %q", cfg.AddressMapPath)
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"api": {"port": `)
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}
