package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Session.ValidateInterval != "5m" {
		t.Errorf("default validate_interval = %q, want %q", cfg.Session.ValidateInterval, "5m")
	}
	if cfg.UI.MaxMessages != 30 {
		t.Errorf("default max_messages = %d, want 30", cfg.UI.MaxMessages)
	}
	if cfg.Server.BaseURL != "" {
		t.Errorf("default base_url = %q, want empty", cfg.Server.BaseURL)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	content := `
[server]
base_url = "https://bridge.example.com"

[identity]
token_url = "https://id.example.com/token"
client_id = "cid-1"

[session]
validate_interval = "10m"

[ui]
max_messages = 50
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.BaseURL != "https://bridge.example.com" {
		t.Errorf("base_url = %q", cfg.Server.BaseURL)
	}
	if cfg.Identity.ClientID != "cid-1" {
		t.Errorf("client_id = %q", cfg.Identity.ClientID)
	}
	if cfg.UI.MaxMessages != 50 {
		t.Errorf("max_messages = %d, want 50", cfg.UI.MaxMessages)
	}
	if got := cfg.ValidateInterval(); got != 10*time.Minute {
		t.Errorf("ValidateInterval() = %v, want 10m", got)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("Load() should return defaults for missing file, got error: %v", err)
	}
	if cfg.UI.MaxMessages != 30 {
		t.Errorf("max_messages = %d, want default 30", cfg.UI.MaxMessages)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("not valid [[ toml"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("Load() should return error for invalid TOML")
	}
	if !strings.Contains(err.Error(), "failed to parse config") {
		t.Errorf("error = %q, want it to contain %q", err.Error(), "failed to parse config")
	}
}

func TestValidateInterval_Malformed(t *testing.T) {
	cfg := &Config{Session: SessionConfig{ValidateInterval: "soon"}}
	if got := cfg.ValidateInterval(); got != 5*time.Minute {
		t.Errorf("ValidateInterval() = %v, want 5m fallback", got)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if dir := ConfigDir(); dir != "/custom/config/maildeck" {
			t.Errorf("ConfigDir() = %q", dir)
		}
	})
	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		if dir := ConfigDir(); !strings.HasSuffix(dir, filepath.Join(".config", "maildeck")) {
			t.Errorf("ConfigDir() = %q", dir)
		}
	})
}

func TestDataDir(t *testing.T) {
	t.Run("with XDG_DATA_HOME", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/custom/data")
		if dir := DataDir(); dir != "/custom/data/maildeck" {
			t.Errorf("DataDir() = %q", dir)
		}
	})
	t.Run("without XDG_DATA_HOME", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "")
		if dir := DataDir(); !strings.HasSuffix(dir, filepath.Join(".local", "share", "maildeck")) {
			t.Errorf("DataDir() = %q", dir)
		}
	})
}
