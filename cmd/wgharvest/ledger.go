package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wgharvest/pkg/classify"
	"wgharvest/pkg/ui"
)

// ledgerCmd represents the ledger command
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect or reset the download ledger",
	Long: `The ledger lists every configuration already downloaded in the current
campaign. It is cleared automatically after a campaign is published.`,
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show ledger and working directory status",
	Args:  cobra.NoArgs,
	RunE:  runLedgerShow,
}

var ledgerResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the ledger so the next run starts a new campaign",
	Long: `Clear the ledger. Downloaded files are kept unless --purge is given, in
which case the working directory is emptied too.`,
	Args: cobra.NoArgs,
	RunE: runLedgerReset,
}

var (
	showIDs    bool
	purgeFiles bool
	assumeYes  bool
)

func init() {
	ledgerShowCmd.Flags().BoolVar(&showIDs, "ids", false, "list every recorded identifier")
	ledgerResetCmd.Flags().BoolVar(&purgeFiles, "purge", false, "also delete downloaded files")
	ledgerResetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")

	for _, c := range []*cobra.Command{ledgerShowCmd, ledgerResetCmd} {
		c.Flags().String("working-dir", "", "directory downloads land in")
		c.Flags().String("ledger", "", "ledger file path")
		ledgerCmd.AddCommand(c)
	}
	rootCmd.AddCommand(ledgerCmd)
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	set := a.ledger.Load()
	artifacts, err := a.workdir.List()
	if err != nil {
		return fmt.Errorf("failed to list working directory: %w", err)
	}

	byCategory := make(map[string]int)
	for _, art := range artifacts {
		byCategory[classify.Category(art.Name)]++
	}

	ui.PrintPanel("Campaign state", [][2]string{
		{"Ledger", a.ledger.Path()},
		{"Recorded", fmt.Sprintf("%d", set.Len())},
		{"Working dir", a.workdir.Dir()},
		{"Files", fmt.Sprintf("%d in %d countries", len(artifacts), len(byCategory))},
	})

	if showIDs {
		for _, id := range set.Sorted() {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
	}
	return nil
}

func runLedgerReset(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	if !assumeYes {
		what := "the ledger"
		if purgeFiles {
			what = "the ledger and all downloaded files"
		}
		fmt.Printf("This clears %s. Continue? (y/N): ", what)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
			return nil
		}
	}

	if err := a.ledger.Reset(); err != nil {
		return err
	}
	a.metrics.Ledger(0)
	if purgeFiles {
		if _, err := a.workdir.Purge(a.archive.Path()); err != nil {
			return fmt.Errorf("failed to clear working directory: %w", err)
		}
	}
	ui.PrintSuccess("Ledger reset")
	return nil
}
