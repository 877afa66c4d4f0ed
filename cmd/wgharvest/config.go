package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"wgharvest/pkg/config"
	"wgharvest/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage wgharvest configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (WGHARVEST_*, VPN_*, TELEGRAM_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as 'wgharvest.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from every source and check it. Warnings are
printed for settings that are valid but probably not what you want.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

const exampleConfig = `# wgharvest configuration
#
# Every value can also be set with an environment variable, for example
# VPN_USERNAME, VPN_PASSWORD, TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID,
# WGHARVEST_ARTIFACT_CAP or WGHARVEST_S3_BUCKET.

portal:
  login_url: "https://account.protonvpn.com/login"
  logout_url: "https://account.protonvpn.com/logout"
  headless: true
  # Chrome binary; empty means auto-detect or download
  browser_bin: ""
  navigation_timeout: 10s
  fetch_timeout: 30s

credentials:
  # Leave empty to use VPN_USERNAME / VPN_PASSWORD or 'wgharvest auth login'
  username: ""
  password: ""
  # Stored account to use when several are saved
  account: ""

session:
  # Downloads per login session
  artifact_cap: 20
  # Sessions per campaign before giving up on exhausting the catalog
  ceiling: 20
  fetch_delay_min: 60s
  fetch_delay_max: 90s
  # Pause between sessions
  cooldown: 2m
  # Extra attempts for a failed download within the same session
  fetch_retries: 0

output:
  working_dir: "./downloaded_configs"
  ledger_file: "./downloaded_wg_ids.json"
  archive_file: "./ProtonVPN_WireGuard_Configs.zip"
  extension: ".conf"

publish:
  # Keep files and ledger when delivery fails so 'wgharvest archive' can retry
  keep_on_failure: false
  max_attempts: 3
  desktop: false
  telegram:
    bot_token: ""
    chat_id: ""
    api_url: "https://api.telegram.org"
    timeout: 60s
  s3:
    endpoint: ""
    bucket: ""
    access_key: ""
    secret_key: ""
    use_ssl: true
    region: ""
    prefix: "wgharvest"

logging:
  # debug, info, warn, error
  level: "info"
  file: ""

metrics:
  # Prometheus textfile written after every run, e.g. for node_exporter
  textfile_path: ""

schedule:
  # minute hour day-of-month month day-of-week
  cron: "0 3 * * 1"
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "wgharvest.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Set your VPN credentials and a publish destination")
	fmt.Println("2. Run 'wgharvest config validate' to check the configuration")
	fmt.Println("3. Start a campaign with 'wgharvest run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return err
	}

	warnings := validationWarnings(cfg)
	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintPanel("Summary", [][2]string{
		{"Per session", fmt.Sprintf("%d downloads", cfg.Session.ArtifactCap)},
		{"Ceiling", fmt.Sprintf("%d sessions", cfg.Session.Ceiling)},
		{"Fetch delay", fmt.Sprintf("%s to %s", cfg.Session.FetchDelayMin, cfg.Session.FetchDelayMax)},
		{"Cooldown", cfg.Session.Cooldown.String()},
		{"Telegram", fmt.Sprintf("%t", cfg.Publish.Telegram.Enabled())},
		{"S3", fmt.Sprintf("%t", cfg.Publish.S3.Enabled())},
	})
	return nil
}

// validationWarnings lists settings that load fine but are likely mistakes
func validationWarnings(cfg *config.Config) []string {
	var warnings []string

	if !cfg.HasCredentials() && cfg.Credentials.Account == "" {
		warnings = append(warnings, "no credentials in config; they must come from the environment or 'wgharvest auth login'")
	}
	if !cfg.Publish.Telegram.Enabled() && !cfg.Publish.S3.Enabled() {
		warnings = append(warnings, "no publish destination configured; archives stay on disk")
	}
	if cfg.Session.FetchDelayMin < 10*time.Second {
		warnings = append(warnings, "fetch_delay_min under 10s makes rate limiting by the portal likely")
	}
	if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
		warnings = append(warnings, fmt.Sprintf("schedule.cron is not a valid expression: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	return warnings
}
