package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all maildeck configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Identity IdentityConfig `toml:"identity"`
	Session  SessionConfig  `toml:"session"`
	UI       UIConfig       `toml:"ui"`
}

// ServerConfig locates the mail bridge backend.
type ServerConfig struct {
	BaseURL string `toml:"base_url"`
}

// IdentityConfig holds the identity provider's token endpoint and the
// OAuth client id maildeck presents to it.
type IdentityConfig struct {
	TokenURL string `toml:"token_url"`
	ClientID string `toml:"client_id"`
}

// SessionConfig controls background session validation.
type SessionConfig struct {
	ValidateInterval string `toml:"validate_interval"`
}

// UIConfig holds workspace display settings.
type UIConfig struct {
	MaxMessages int `toml:"max_messages"`
}

func defaults() Config {
	return Config{
		Session: SessionConfig{
			ValidateInterval: "5m",
		},
		UI: UIConfig{
			MaxMessages: 30,
		},
	}
}

// Load reads config from path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// ValidateInterval parses the session validation interval, falling back
// to the 5 minute default on a missing or malformed value.
func (c *Config) ValidateInterval() time.Duration {
	d, err := time.ParseDuration(c.Session.ValidateInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// ConfigDir returns the maildeck config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "maildeck")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "maildeck")
}

// DataDir returns the maildeck data directory path.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "maildeck")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "maildeck")
}
