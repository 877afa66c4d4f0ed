package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"wgharvest/pkg/auth"
	"wgharvest/pkg/logger"
	"wgharvest/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage VPN account credentials",
	Long: `Manage stored VPN account credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

VPN_USERNAME and VPN_PASSWORD in the environment are always honored first.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store VPN credentials securely",
	Example: `  # Interactive login
  wgharvest auth login

  # Login with username
  wgharvest auth login me@proton.me`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Long: `Remove stored credentials for username, or for every stored account when
--all is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials a run would use",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var logoutAll bool

func init() {
	authLogoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored account")

	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	} else {
		auth.ShowLoginGuide(os.Stdout)
		fmt.Print("VPN username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Printf("Account '%s' already exists. Update password? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Print("Password: ")
	password, err := readPassword(reader)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	if err := manager.Store(&auth.Account{Username: username, Password: password}); err != nil {
		return err
	}

	where := "encrypted file"
	if auth.IsKeyringAvailable() {
		where = "system keychain or encrypted file"
	}
	ui.PrintSuccess("Account saved: " + username)
	ui.PrintInfo("Stored in", where)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if logoutAll {
		if err := manager.DeleteAll(); err != nil {
			return err
		}
		ui.PrintSuccess("All accounts removed")
		return nil
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		accounts, _ := manager.List()
		if len(accounts) != 1 {
			return fmt.Errorf("%d stored accounts, name the one to remove or pass --all", len(accounts))
		}
		username = accounts[0].Username
	}

	if err := manager.Delete(username); err != nil {
		return err
	}
	ui.PrintSuccess("Account removed: " + username)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a := &app{cfg: cfg, log: logger.GetLogger()}

	rows := [][2]string{{"Keychain", fmt.Sprintf("%t", auth.IsKeyringAvailable())}}
	if manager, err := auth.NewManager(); err == nil {
		accounts, _ := manager.List()
		for _, acc := range accounts {
			s := auth.SanitizeAccount(acc)
			rows = append(rows, [2]string{"Stored", fmt.Sprintf("%s (%s)", s.Username, s.LastModified.Format("2006-01-02"))})
		}
	}

	creds, err := a.credentials()
	if err != nil {
		rows = append(rows, [2]string{"Run would use", "none"})
		ui.PrintPanel("Credentials", rows)
		auth.ShowQuickGuide(os.Stdout)
		return nil
	}
	rows = append(rows, [2]string{"Run would use", creds.Username})
	ui.PrintPanel("Credentials", rows)
	return nil
}

// readPassword reads a password without echo when stdin is a terminal
func readPassword(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
