package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"wgharvest/pkg/portal"
	"wgharvest/pkg/ui"
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive and publish what is already downloaded",
	Long: `Build the archive from the files currently in the working directory,
publish it and reset the campaign, without logging into the portal.

Use this to flush a campaign left behind by an interrupted run or by a
publish failure with keep_on_failure enabled.`,
	Args: cobra.NoArgs,
	RunE: runArchive,
}

func init() {
	archiveCmd.Flags().String("working-dir", "", "directory downloads land in")
	archiveCmd.Flags().String("ledger", "", "ledger file path")
	archiveCmd.Flags().String("archive", "", "archive file path")
	archiveCmd.Flags().Bool("keep-on-failure", false, "keep files and ledger when publishing fails")
	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	noLaunch := portal.LauncherFunc(func(ctx context.Context) (portal.Driver, error) {
		return nil, errors.New("archive does not start portal sessions")
	})
	h, err := a.harvester(noLaunch, portal.Credentials{}, nil)
	if err != nil {
		return err
	}

	report, err := h.Finalize(cmd.Context())
	a.writeMetrics()
	if err != nil {
		return err
	}

	if report.Archive == nil {
		ui.PrintWarning("Working directory is empty, nothing to archive")
		return nil
	}
	ui.PrintPanel("Archive", reportRows(report))
	if report.PublishErr != nil {
		return fmt.Errorf("publishing failed: %w", report.PublishErr)
	}
	ui.PrintSuccess("Archive published")
	return nil
}
