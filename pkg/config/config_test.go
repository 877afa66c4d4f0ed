package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Session.ArtifactCap != 20 {
		t.Errorf("Expected default artifact cap to be 20, got %d", config.Session.ArtifactCap)
	}

	if config.Session.Ceiling != 20 {
		t.Errorf("Expected default session ceiling to be 20, got %d", config.Session.Ceiling)
	}

	if config.Session.FetchDelayMin != 60*time.Second || config.Session.FetchDelayMax != 90*time.Second {
		t.Errorf("Expected default fetch delay 60s-90s, got %v-%v", config.Session.FetchDelayMin, config.Session.FetchDelayMax)
	}

	if config.Session.Cooldown != 120*time.Second {
		t.Errorf("Expected default cooldown to be 120s, got %v", config.Session.Cooldown)
	}

	if config.Output.Extension != ".conf" {
		t.Errorf("Expected default extension to be .conf, got %s", config.Output.Extension)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VPN_USERNAME", "alice")
	t.Setenv("VPN_PASSWORD", "s3cret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001")
	t.Setenv("WGHARVEST_ARTIFACT_CAP", "5")
	t.Setenv("WGHARVEST_SESSION_CEILING", "7")
	t.Setenv("WGHARVEST_COOLDOWN", "3s")
	t.Setenv("WGHARVEST_WORKING_DIR", "/tmp/wg-work")
	t.Setenv("WGHARVEST_HEADLESS", "false")
	t.Setenv("WGHARVEST_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Credentials.Username != "alice" || config.Credentials.Password != "s3cret" {
		t.Errorf("Expected credentials from env, got %q/%q", config.Credentials.Username, config.Credentials.Password)
	}
	if !config.Publish.Telegram.Enabled() {
		t.Error("Expected telegram to be enabled")
	}
	if config.Session.ArtifactCap != 5 {
		t.Errorf("Expected artifact cap 5, got %d", config.Session.ArtifactCap)
	}
	if config.Session.Ceiling != 7 {
		t.Errorf("Expected ceiling 7, got %d", config.Session.Ceiling)
	}
	if config.Session.Cooldown != 3*time.Second {
		t.Errorf("Expected cooldown 3s, got %v", config.Session.Cooldown)
	}
	if config.Output.WorkingDir != "/tmp/wg-work" {
		t.Errorf("Expected working dir /tmp/wg-work, got %s", config.Output.WorkingDir)
	}
	if config.Portal.Headless {
		t.Error("Expected headless to be disabled")
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvLegacyCredentialNamesFirst(t *testing.T) {
	t.Setenv("VPN_USERNAME", "legacy")
	t.Setenv("WGHARVEST_VPN_USERNAME", "prefixed")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Credentials.Username != "legacy" {
		t.Errorf("Expected legacy username, got %s", config.Credentials.Username)
	}
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("WGHARVEST_ARTIFACT_CAP", "twenty")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err == nil {
		t.Error("Expected error for non-numeric artifact cap")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero cap", func(c *Config) { c.Session.ArtifactCap = 0 }, true},
		{"zero ceiling", func(c *Config) { c.Session.Ceiling = 0 }, true},
		{"inverted delay range", func(c *Config) {
			c.Session.FetchDelayMin = 10 * time.Second
			c.Session.FetchDelayMax = 5 * time.Second
		}, true},
		{"negative cooldown", func(c *Config) { c.Session.Cooldown = -time.Second }, true},
		{"missing ledger", func(c *Config) { c.Output.LedgerFile = "" }, true},
		{"bad extension", func(c *Config) { c.Output.Extension = "conf" }, true},
		{"telegram token without chat", func(c *Config) { c.Publish.Telegram.BotToken = "t" }, true},
		{"s3 endpoint without bucket", func(c *Config) { c.Publish.S3.Endpoint = "localhost:9000" }, true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "invalid" }, true},
		{"zero publish attempts", func(c *Config) { c.Publish.MaxAttempts = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	flags := map[string]interface{}{
		"working-dir":     "/flag/work",
		"cap":             3,
		"ceiling":         4,
		"cooldown":        2 * time.Second,
		"headless":        false,
		"keep-on-failure": true,
		"log-level":       "error",
	}

	config.MergeCommandLineFlags(flags)

	if config.Output.WorkingDir != "/flag/work" {
		t.Errorf("Expected working dir /flag/work, got %s", config.Output.WorkingDir)
	}
	if config.Session.ArtifactCap != 3 {
		t.Errorf("Expected cap 3, got %d", config.Session.ArtifactCap)
	}
	if config.Session.Ceiling != 4 {
		t.Errorf("Expected ceiling 4, got %d", config.Session.Ceiling)
	}
	if config.Session.Cooldown != 2*time.Second {
		t.Errorf("Expected cooldown 2s, got %v", config.Session.Cooldown)
	}
	if config.Portal.Headless {
		t.Error("Expected headless false")
	}
	if !config.Publish.KeepOnFailure {
		t.Error("Expected keep-on-failure true")
	}
	if config.Logging.Level != "error" {
		t.Errorf("Expected log level error, got %s", config.Logging.Level)
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "wgharvest.yaml")

	config := DefaultConfig()
	config.Session.ArtifactCap = 11
	config.Session.FetchDelayMin = 2 * time.Second
	config.Publish.S3.Bucket = "configs"

	if err := config.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Config file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Session.ArtifactCap != 11 {
		t.Errorf("Expected loaded cap 11, got %d", loaded.Session.ArtifactCap)
	}
	if loaded.Session.FetchDelayMin != 2*time.Second {
		t.Errorf("Expected loaded fetch delay min 2s, got %v", loaded.Session.FetchDelayMin)
	}
	if loaded.Publish.S3.Bucket != "configs" {
		t.Errorf("Expected loaded bucket configs, got %s", loaded.Publish.S3.Bucket)
	}
}

func TestLoadFromFileDurations(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "wgharvest.yaml")
	content := `
session:
  artifact_cap: 25
  fetch_delay_min: 1s
  fetch_delay_max: 1500ms
  cooldown: 2m
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Session.ArtifactCap != 25 {
		t.Errorf("Expected cap 25, got %d", config.Session.ArtifactCap)
	}
	if config.Session.FetchDelayMax != 1500*time.Millisecond {
		t.Errorf("Expected fetch delay max 1.5s, got %v", config.Session.FetchDelayMax)
	}
	if config.Session.Cooldown != 2*time.Minute {
		t.Errorf("Expected cooldown 2m, got %v", config.Session.Cooldown)
	}
	// untouched sections keep defaults
	if config.Session.Ceiling != 20 {
		t.Errorf("Expected default ceiling, got %d", config.Session.Ceiling)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	if err := config.LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for explicit missing config file")
	}
}

func TestRedacted(t *testing.T) {
	config := DefaultConfig()
	config.Credentials.Password = "hunter2"
	config.Publish.Telegram.BotToken = "123:abc"

	redacted := config.Redacted()
	if redacted.Credentials.Password == "hunter2" {
		t.Error("Expected password to be masked")
	}
	if redacted.Publish.Telegram.BotToken == "123:abc" {
		t.Error("Expected bot token to be masked")
	}
	if config.Credentials.Password != "hunter2" {
		t.Error("Redacted must not modify the original")
	}
}
