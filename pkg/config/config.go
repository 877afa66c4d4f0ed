package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the harvester
type Config struct {
	// Portal driving options
	Portal PortalConfig `yaml:"portal" json:"portal"`

	// Portal login credentials
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`

	// Session caps, ceiling and pacing
	Session SessionConfig `yaml:"session" json:"session"`

	// Working directory, ledger and archive locations
	Output OutputConfig `yaml:"output" json:"output"`

	// Archive delivery destinations
	Publish PublishConfig `yaml:"publish" json:"publish"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Recurring runs
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`
}

// PortalConfig holds browser and portal navigation settings
type PortalConfig struct {
	LoginURL          string        `yaml:"login_url" json:"login_url"`
	LogoutURL         string        `yaml:"logout_url" json:"logout_url"`
	Headless          bool          `yaml:"headless" json:"headless"`
	BrowserBin        string        `yaml:"browser_bin" json:"browser_bin"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
}

// CredentialsConfig holds the portal account. Either may be left empty and
// resolved from the credential stores at run time.
type CredentialsConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	Account  string `yaml:"account" json:"account"`
}

// SessionConfig bounds each session and the whole run
type SessionConfig struct {
	ArtifactCap   int           `yaml:"artifact_cap" json:"artifact_cap"`
	Ceiling       int           `yaml:"ceiling" json:"ceiling"`
	FetchDelayMin time.Duration `yaml:"fetch_delay_min" json:"fetch_delay_min"`
	FetchDelayMax time.Duration `yaml:"fetch_delay_max" json:"fetch_delay_max"`
	Cooldown      time.Duration `yaml:"cooldown" json:"cooldown"`
	FetchRetries  int           `yaml:"fetch_retries" json:"fetch_retries"`
}

// OutputConfig holds file system locations
type OutputConfig struct {
	WorkingDir  string `yaml:"working_dir" json:"working_dir"`
	LedgerFile  string `yaml:"ledger_file" json:"ledger_file"`
	ArchiveFile string `yaml:"archive_file" json:"archive_file"`
	Extension   string `yaml:"extension" json:"extension"`
}

// PublishConfig holds delivery settings
type PublishConfig struct {
	// KeepOnFailure keeps the working directory and ledger when publishing fails
	KeepOnFailure bool           `yaml:"keep_on_failure" json:"keep_on_failure"`
	MaxAttempts   int            `yaml:"max_attempts" json:"max_attempts"`
	// Desktop also raises a desktop notification when a run finishes
	Desktop       bool           `yaml:"desktop" json:"desktop"`
	Telegram      TelegramConfig `yaml:"telegram" json:"telegram"`
	S3            S3Config       `yaml:"s3" json:"s3"`
}

// TelegramConfig holds Telegram bot delivery settings
type TelegramConfig struct {
	BotToken string        `yaml:"bot_token" json:"bot_token"`
	ChatID   string        `yaml:"chat_id" json:"chat_id"`
	APIURL   string        `yaml:"api_url" json:"api_url"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// Enabled reports whether both bot token and chat are configured
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// S3Config holds S3-compatible object storage delivery settings
type S3Config struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl"`
	Region    string `yaml:"region" json:"region"`
	Prefix    string `yaml:"prefix" json:"prefix"`
}

// Enabled reports whether an endpoint and bucket are configured
func (s S3Config) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	// TextfilePath is written in Prometheus text format after each run
	TextfilePath string `yaml:"textfile_path" json:"textfile_path"`
}

// ScheduleConfig holds the cron expression used by the schedule command
type ScheduleConfig struct {
	Cron string `yaml:"cron" json:"cron"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Portal: PortalConfig{
			LoginURL:          "https://account.protonvpn.com/login",
			LogoutURL:         "https://account.protonvpn.com/logout",
			Headless:          true,
			NavigationTimeout: 10 * time.Second,
			FetchTimeout:      30 * time.Second,
		},
		Session: SessionConfig{
			ArtifactCap:   20,
			Ceiling:       20,
			FetchDelayMin: 60 * time.Second,
			FetchDelayMax: 90 * time.Second,
			Cooldown:      120 * time.Second,
			FetchRetries:  0,
		},
		Output: OutputConfig{
			WorkingDir:  "./downloaded_configs",
			LedgerFile:  "./downloaded_wg_ids.json",
			ArchiveFile: "./ProtonVPN_WireGuard_Configs.zip",
			Extension:   ".conf",
		},
		Publish: PublishConfig{
			KeepOnFailure: false,
			MaxAttempts:   3,
			Telegram: TelegramConfig{
				APIURL:  "https://api.telegram.org",
				Timeout: 60 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Schedule: ScheduleConfig{
			Cron: "0 3 * * 1",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	// Credentials: the unprefixed names are kept for existing CI setups
	c.Credentials.Username = firstEnv(c.Credentials.Username, "VPN_USERNAME", "WGHARVEST_VPN_USERNAME")
	c.Credentials.Password = firstEnv(c.Credentials.Password, "VPN_PASSWORD", "WGHARVEST_VPN_PASSWORD")
	if account := os.Getenv("WGHARVEST_ACCOUNT"); account != "" {
		c.Credentials.Account = account
	}

	c.Publish.Telegram.BotToken = firstEnv(c.Publish.Telegram.BotToken, "TELEGRAM_BOT_TOKEN", "WGHARVEST_TELEGRAM_BOT_TOKEN")
	c.Publish.Telegram.ChatID = firstEnv(c.Publish.Telegram.ChatID, "TELEGRAM_CHAT_ID", "WGHARVEST_TELEGRAM_CHAT_ID")

	if endpoint := os.Getenv("WGHARVEST_S3_ENDPOINT"); endpoint != "" {
		c.Publish.S3.Endpoint = endpoint
	}
	if bucket := os.Getenv("WGHARVEST_S3_BUCKET"); bucket != "" {
		c.Publish.S3.Bucket = bucket
	}
	if key := os.Getenv("WGHARVEST_S3_ACCESS_KEY"); key != "" {
		c.Publish.S3.AccessKey = key
	}
	if secret := os.Getenv("WGHARVEST_S3_SECRET_KEY"); secret != "" {
		c.Publish.S3.SecretKey = secret
	}
	if region := os.Getenv("WGHARVEST_S3_REGION"); region != "" {
		c.Publish.S3.Region = region
	}

	if v := os.Getenv("WGHARVEST_ARTIFACT_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("WGHARVEST_ARTIFACT_CAP: %w", err))
		} else {
			c.Session.ArtifactCap = n
		}
	}
	if v := os.Getenv("WGHARVEST_SESSION_CEILING"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("WGHARVEST_SESSION_CEILING: %w", err))
		} else {
			c.Session.Ceiling = n
		}
	}
	if v := os.Getenv("WGHARVEST_COOLDOWN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("WGHARVEST_COOLDOWN: %w", err))
		} else {
			c.Session.Cooldown = d
		}
	}

	if dir := os.Getenv("WGHARVEST_WORKING_DIR"); dir != "" {
		c.Output.WorkingDir = dir
	}
	if ledger := os.Getenv("WGHARVEST_LEDGER_FILE"); ledger != "" {
		c.Output.LedgerFile = ledger
	}
	if archive := os.Getenv("WGHARVEST_ARCHIVE_FILE"); archive != "" {
		c.Output.ArchiveFile = archive
	}

	if headless := os.Getenv("WGHARVEST_HEADLESS"); headless != "" {
		c.Portal.Headless = strings.ToLower(headless) == "true"
	}
	if bin := os.Getenv("WGHARVEST_BROWSER_BIN"); bin != "" {
		c.Portal.BrowserBin = bin
	}

	if logLevel := os.Getenv("WGHARVEST_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if textfile := os.Getenv("WGHARVEST_METRICS_TEXTFILE"); textfile != "" {
		c.Metrics.TextfilePath = textfile
	}

	return errors.Join(errs...)
}

// firstEnv returns the value of the first set variable in keys, or current
func firstEnv(current string, keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return current
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"wgharvest.yaml",
		".wgharvest.yaml",
		".wgharvest.yml",
		filepath.Join(home, ".config", "wgharvest", "config.yaml"),
		filepath.Join(home, ".config", "wgharvest", "config.yml"),
		filepath.Join(home, ".wgharvest.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Credentials are not
// checked here since they may still come from a credential store.
func (c *Config) Validate() error {
	var errs []error

	if c.Session.ArtifactCap <= 0 {
		errs = append(errs, errors.New("session artifact cap must be positive"))
	}
	if c.Session.Ceiling <= 0 {
		errs = append(errs, errors.New("session ceiling must be positive"))
	}
	if c.Session.FetchDelayMin < 0 || c.Session.FetchDelayMax < 0 {
		errs = append(errs, errors.New("fetch delays cannot be negative"))
	}
	if c.Session.FetchDelayMax < c.Session.FetchDelayMin {
		errs = append(errs, errors.New("fetch_delay_max must not be less than fetch_delay_min"))
	}
	if c.Session.Cooldown < 0 {
		errs = append(errs, errors.New("cooldown cannot be negative"))
	}
	if c.Session.FetchRetries < 0 {
		errs = append(errs, errors.New("fetch retries cannot be negative"))
	}

	if c.Output.WorkingDir == "" {
		errs = append(errs, errors.New("working directory is required"))
	}
	if c.Output.LedgerFile == "" {
		errs = append(errs, errors.New("ledger file is required"))
	}
	if c.Output.ArchiveFile == "" {
		errs = append(errs, errors.New("archive file is required"))
	}
	if c.Output.Extension != "" && !strings.HasPrefix(c.Output.Extension, ".") {
		errs = append(errs, errors.New("artifact extension must start with a dot"))
	}

	if c.Portal.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("navigation timeout must be positive"))
	}
	if c.Portal.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}

	if c.Publish.MaxAttempts <= 0 {
		errs = append(errs, errors.New("publish max attempts must be positive"))
	}
	if (c.Publish.Telegram.BotToken == "") != (c.Publish.Telegram.ChatID == "") {
		errs = append(errs, errors.New("telegram needs both bot_token and chat_id"))
	}
	if c.Publish.S3.Endpoint != "" && c.Publish.S3.Bucket == "" {
		errs = append(errs, errors.New("s3 bucket is required when an endpoint is set"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// HasCredentials reports whether both username and password are set
func (c *Config) HasCredentials() bool {
	return c.Credentials.Username != "" && c.Credentials.Password != ""
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy with secrets masked, for display
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Credentials.Password = mask(cp.Credentials.Password)
	cp.Publish.Telegram.BotToken = mask(cp.Publish.Telegram.BotToken)
	cp.Publish.S3.SecretKey = mask(cp.Publish.S3.SecretKey)
	return &cp
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["working-dir"].(string); ok && dir != "" {
		c.Output.WorkingDir = dir
	}
	if ledger, ok := flags["ledger"].(string); ok && ledger != "" {
		c.Output.LedgerFile = ledger
	}
	if archive, ok := flags["archive"].(string); ok && archive != "" {
		c.Output.ArchiveFile = archive
	}
	if limit, ok := flags["cap"].(int); ok && limit > 0 {
		c.Session.ArtifactCap = limit
	}
	if ceiling, ok := flags["ceiling"].(int); ok && ceiling > 0 {
		c.Session.Ceiling = ceiling
	}
	if cooldown, ok := flags["cooldown"].(time.Duration); ok && cooldown >= 0 {
		c.Session.Cooldown = cooldown
	}
	if retries, ok := flags["fetch-retries"].(int); ok && retries >= 0 {
		c.Session.FetchRetries = retries
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Portal.Headless = headless
	}
	if account, ok := flags["account"].(string); ok && account != "" {
		c.Credentials.Account = account
	}
	if keep, ok := flags["keep-on-failure"].(bool); ok {
		c.Publish.KeepOnFailure = keep
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if cronExpr, ok := flags["cron"].(string); ok && cronExpr != "" {
		c.Schedule.Cron = cronExpr
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".wgharvest.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
