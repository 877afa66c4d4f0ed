package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wgharvest/pkg/auth"
	"wgharvest/pkg/harvester"
	"wgharvest/pkg/ui"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one harvesting campaign",
	Long: `Run sessions against the VPN dashboard until every listed WireGuard
configuration has been downloaded or the session ceiling is reached, then
build the archive, publish it and reset the campaign.

Interrupting a run (Ctrl+C) keeps the ledger and the downloaded files; the
next run resumes from there.`,
	Example: `  # Run with defaults (20 per session, 20 sessions)
  wgharvest run

  # Smaller sessions with a visible browser
  wgharvest run --cap 5 --headless=false`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

// addRunFlags registers the campaign flags shared by run and schedule
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("cap", 0, "maximum downloads per session")
	f.Int("ceiling", 0, "maximum sessions per campaign")
	f.Duration("cooldown", 0, "pause between sessions")
	f.Int("fetch-retries", 0, "extra attempts for a failed download within a session")
	f.Bool("headless", true, "run the browser without a window")
	f.String("account", "", "stored account to log in with")
	f.Bool("keep-on-failure", false, "keep files and ledger when publishing fails")
	f.String("working-dir", "", "directory downloads land in")
	f.String("ledger", "", "ledger file path")
	f.String("archive", "", "archive file path")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	creds, err := a.credentials()
	if err != nil {
		auth.ShowQuickGuide(os.Stderr)
		return fmt.Errorf("no VPN credentials: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintBanner()
	ui.PrintInfo("Account", creds.Username)
	ui.PrintInfo("Working dir", a.workdir.Dir())

	progress := ui.NewProgress(a.cfg.Session.Ceiling, a.cfg.Session.ArtifactCap)
	report, err := a.run(ctx, creds, progress)
	if report != nil {
		ui.PrintPanel("Campaign summary", reportRows(report))
	}

	switch {
	case err != nil && ctx.Err() != nil:
		ui.PrintWarning("Interrupted, progress kept in", a.ledger.Path())
		return nil
	case err != nil:
		return err
	case report.PublishErr != nil:
		return fmt.Errorf("publishing failed: %w", report.PublishErr)
	case report.Termination == harvester.SessionCeilingReached:
		ui.PrintWarning("Session ceiling reached before the catalog was exhausted")
	default:
		ui.PrintSuccess("Campaign complete")
	}
	return nil
}
