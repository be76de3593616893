package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/madhatbot/madhat/internal/config"
)

func TestLoadFromReaderDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("default log level = %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
	if cfg.Storage.Backend != config.StorageFile {
		t.Errorf("default storage backend = %q, want %q", cfg.Storage.Backend, config.StorageFile)
	}
	if time.Duration(cfg.Pause.Duration) != time.Hour {
		t.Errorf("default pause duration = %v, want 1h", time.Duration(cfg.Pause.Duration))
	}
	if !cfg.Features.ShuffleDefaultOn || !cfg.Features.ShuffleToggle || !cfg.Features.SelfRename {
		t.Errorf("default features should all be on, got %+v", cfg.Features)
	}
}

func TestLoadFromReaderOverrides(t *testing.T) {
	t.Parallel()

	const doc = `
server:
  log_level: debug
  listen_addr: ":9090"
features:
  shuffle_toggle: false
trigger:
  keywords: ["rotate"]
  case_sensitive: true
pause:
  duration: 30m
  display_timezone: "Europe/Berlin"
storage:
  backend: memory
`
	cfg, err := config.LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log level = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Features.ShuffleToggle {
		t.Error("shuffle_toggle should be overridden to false")
	}
	if !cfg.Features.SelfRename {
		t.Error("self_rename should keep its default when not mentioned")
	}
	if len(cfg.Trigger.Keywords) != 1 || cfg.Trigger.Keywords[0] != "rotate" {
		t.Errorf("keywords = %v, want [rotate]", cfg.Trigger.Keywords)
	}
	if time.Duration(cfg.Pause.Duration) != 30*time.Minute {
		t.Errorf("pause duration = %v, want 30m", time.Duration(cfg.Pause.Duration))
	}
	if cfg.Storage.Backend != config.StorageMemory {
		t.Errorf("storage backend = %q, want memory", cfg.Storage.Backend)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("serverr: {}\n"))
	if err == nil {
		t.Fatal("LoadFromReader: expected error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"bad log level", func(c *config.Config) { c.Server.LogLevel = "chatty" }, "server.log_level"},
		{"bad backend", func(c *config.Config) { c.Storage.Backend = "tape" }, "storage.backend"},
		{"file backend without dir", func(c *config.Config) { c.Storage.DataDir = "" }, "storage.data_dir"},
		{"postgres backend without dsn", func(c *config.Config) { c.Storage.Backend = config.StoragePostgres }, "storage.postgres_dsn"},
		{"zero pause", func(c *config.Config) { c.Pause.Duration = 0 }, "pause.duration"},
		{"bad timezone", func(c *config.Config) { c.Pause.DisplayTimezone = "Mars/Olympus" }, "pause.display_timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			tt.mutate(cfg)
			err := config.Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate: expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if err := config.Validate(config.Default()); err != nil {
		t.Fatalf("Validate(defaults): %v", err)
	}
}
