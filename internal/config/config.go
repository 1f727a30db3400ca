// Package config loads and watches the bot's single configuration document.
//
// JSON and YAML are both accepted; YAML is coerced to JSON so one strict
// decoder (DisallowUnknownFields) covers both formats.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Discord  DiscordConfig  `json:"discord"`
	Commands CommandsConfig `json:"commands"`
	Seed     SeedConfig     `json:"seed"`
	Storage  StorageConfig  `json:"storage"`
	History  HistoryConfig  `json:"history"`
	Logging  LoggingConfig  `json:"logging"`
	Debug    DebugConfig    `json:"debug,omitempty"`
}

type DiscordConfig struct {
	// Token may be left empty in the file and supplied via the
	// DISCORD_TOKEN environment variable instead (never log it).
	Token string `json:"token,omitempty"`
	// Admin is the username allowed to run reset/sleep.
	Admin      string         `json:"admin"`
	RatePerSec int            `json:"rate_per_sec,omitempty"`
	Channels   ChannelsConfig `json:"channels"`
}

type ChannelsConfig struct {
	Announce    string `json:"announce"`
	Commands    string `json:"commands"`
	Leaderboard string `json:"leaderboard"`
}

type CommandsConfig struct {
	Prefix string `json:"prefix,omitempty"` // default "!"
}

type SeedConfig struct {
	URL      string            `json:"url"`
	Params   map[string]string `json:"params,omitempty"`
	Schedule string            `json:"schedule"` // 5-field cron spec or descriptor
	Timezone string            `json:"timezone,omitempty"`
	Timeout  string            `json:"timeout,omitempty"` // Go duration string
}

type StorageConfig struct {
	Path string `json:"path"`
	// Strict aborts startup when an existing leaderboard file cannot be
	// parsed. Default: warn loudly and continue with an empty board.
	Strict bool `json:"strict,omitempty"`
}

type HistoryConfig struct {
	Driver string `json:"driver,omitempty"` // "none" (default) or "sqlite"
	Path   string `json:"path,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"`
	Console *bool             `json:"console,omitempty"` // default true
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

type DebugConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:6060"
}

func (c *Config) ConsoleLogging() bool {
	return c.Logging.Console == nil || *c.Logging.Console
}

func (c *Config) SeedTimeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.Seed.Timeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("seed.timeout: %w", err)
	}
	return d, nil
}

// Load reads, decodes, defaults and validates the config at path. The
// Discord token falls back to the DISCORD_TOKEN environment variable.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	j, format, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, fmt.Errorf("config %s (%s): %w", path, format, err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(j))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config %s (%s): %w", path, format, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Discord.Token) == "" {
		c.Discord.Token = os.Getenv("DISCORD_TOKEN")
	}
	if strings.TrimSpace(c.Commands.Prefix) == "" {
		c.Commands.Prefix = "!"
	}
	if c.Debug.Enabled && strings.TrimSpace(c.Debug.Addr) == "" {
		c.Debug.Addr = "127.0.0.1:6060"
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return errors.New("discord.token (or DISCORD_TOKEN) is required")
	}
	if strings.TrimSpace(c.Discord.Admin) == "" {
		return errors.New("discord.admin is required")
	}
	for name, v := range map[string]string{
		"discord.channels.announce":    c.Discord.Channels.Announce,
		"discord.channels.commands":    c.Discord.Channels.Commands,
		"discord.channels.leaderboard": c.Discord.Channels.Leaderboard,
	} {
		if strings.TrimSpace(v) == "" {
			return errors.New(name + " is required")
		}
	}
	if len([]rune(c.Commands.Prefix)) != 1 {
		return fmt.Errorf("commands.prefix must be a single character, got %q", c.Commands.Prefix)
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	if strings.TrimSpace(c.Seed.URL) == "" {
		return errors.New("seed.url is required")
	}
	if strings.TrimSpace(c.Seed.Schedule) == "" {
		return errors.New("seed.schedule is required")
	}
	if tz := strings.TrimSpace(c.Seed.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("seed.timezone: invalid %q: %w", tz, err)
		}
	}
	if _, err := c.SeedTimeout(); err != nil {
		return err
	}
	return nil
}
