package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkastelik/pulsar/internal/config"
	"github.com/mkastelik/pulsar/internal/library"
	"github.com/mkastelik/pulsar/internal/njoy"
	"github.com/mkastelik/pulsar/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the NJOY executable and library manifest are usable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		ok := true
		printer := ui.New()

		runner := &njoy.Runner{Path: cfg.NJOYPath, Verbose: cfg.Verbose}
		if err := runner.Validate(); err != nil {
			printer.Fail(fmt.Sprintf("njoy: %v", err))
			ok = false
		} else {
			printer.Check("njoy executable found")
		}

		lib, err := library.Load(cfg.Library)
		if err != nil {
			printer.Fail(fmt.Sprintf("library: %v", err))
			ok = false
		} else {
			printer.Check(fmt.Sprintf("library %s: %d evaluations", lib.Manifest.Name, len(lib.Evaluations)))
		}

		if !ok {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
