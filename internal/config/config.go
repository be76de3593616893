// Package config provides the configuration schema and loader for the
// madhat bot.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// StorageBackend selects where nickname backups are persisted.
type StorageBackend string

const (
	// StorageFile keeps one JSON file per guild under storage.data_dir.
	StorageFile StorageBackend = "file"

	// StorageMemory keeps backups in process memory only.
	StorageMemory StorageBackend = "memory"

	// StoragePostgres keeps backups in a PostgreSQL table reached via
	// storage.postgres_dsn.
	StoragePostgres StorageBackend = "postgres"
)

// IsValid reports whether b is a recognised storage backend.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageFile, StorageMemory, StoragePostgres:
		return true
	}
	return false
}

// Duration is a [time.Duration] that unmarshals from YAML strings such as
// "1h" or "90m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the root configuration structure for madhat. It is typically
// loaded from a YAML file using [Load]; every field has a working default,
// so a missing file is not an error at this layer.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Discord  DiscordConfig  `yaml:"discord"`
	Features FeaturesConfig `yaml:"features"`
	Trigger  TriggerConfig  `yaml:"trigger"`
	Pause    PauseConfig    `yaml:"pause"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ServerConfig holds the ops HTTP listener and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address serving /metrics, /healthz and
	// /readyz (e.g., ":8080"). Empty disables the ops server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// DiscordConfig holds gateway settings.
type DiscordConfig struct {
	// Token is the bot token. The CLI argument and the TOKEN environment
	// variable take precedence over this field.
	Token string `yaml:"token"`

	// BotNickname is the nickname the bot gives itself in each guild
	// when features.self_rename is on.
	BotNickname string `yaml:"bot_nickname"`
}

// FeaturesConfig toggles engine behaviour that differs between
// deployments.
type FeaturesConfig struct {
	// ShuffleToggle enables the per-guild /stop and /start commands.
	ShuffleToggle bool `yaml:"shuffle_toggle"`

	// SelfRename lets the bot set its own nickname on guild ready.
	SelfRename bool `yaml:"self_rename"`

	// ShuffleDefaultOn is the initial per-guild shuffle feature state.
	ShuffleDefaultOn bool `yaml:"shuffle_default_on"`
}

// TriggerConfig controls keyword detection in chat messages.
type TriggerConfig struct {
	// Keywords trigger a shuffle when present in a message.
	Keywords []string `yaml:"keywords"`

	// CaseSensitive disables the default case folding.
	CaseSensitive bool `yaml:"case_sensitive"`
}

// PauseConfig controls the /pause command.
type PauseConfig struct {
	// Duration is how long a pause lasts.
	Duration Duration `yaml:"duration"`

	// DisplayTimezone is the IANA zone used to render the pause expiry
	// in replies.
	DisplayTimezone string `yaml:"display_timezone"`
}

// StorageConfig selects and configures the backup store.
type StorageConfig struct {
	Backend StorageBackend `yaml:"backend"`

	// DataDir is the directory for the file backend.
	DataDir string `yaml:"data_dir"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Default returns the configuration used when no file is supplied. The
// defaults reproduce the bot's original deployment: file storage under
// /data, hourly pause, US Eastern pause display, all features on.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Discord: DiscordConfig{
			BotNickname: "Mad Hatter",
		},
		Features: FeaturesConfig{
			ShuffleToggle:    true,
			SelfRename:       true,
			ShuffleDefaultOn: true,
		},
		Pause: PauseConfig{
			Duration:        Duration(time.Hour),
			DisplayTimezone: "America/New_York",
		},
		Storage: StorageConfig{
			Backend: StorageFile,
			DataDir: "/data",
		},
	}
}
