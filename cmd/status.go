package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mkastelik/pulsar/internal/config"
	"github.com/mkastelik/pulsar/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recorded run outcomes from the ledger",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("failed", false, "show only runs that did not succeed")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := cmd.Context()
	ledger, err := store.Open(ctx, filepath.Join(cfg.OutputDir, LedgerFileName))
	if err != nil {
		return err
	}
	defer ledger.Close()

	var runs []store.RunRecord
	if failedOnly, _ := cmd.Flags().GetBool("failed"); failedOnly {
		runs, err = ledger.Failed(ctx)
	} else {
		runs, err = ledger.Runs(ctx)
	}
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NUCLIDE\tLIBRARY\tSTATUS\tEXIT\tWARNING\tDIAGNOSTIC")
	for _, r := range runs {
		warn := ""
		if r.Warning {
			warn = "consistency"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.Nuclide, r.Library, r.Status, r.ExitCode, warn, r.Diagnostic)
	}
	return w.Flush()
}
