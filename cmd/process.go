package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkastelik/pulsar/internal/config"
	"github.com/mkastelik/pulsar/internal/library"
	"github.com/mkastelik/pulsar/internal/njoy"
	"github.com/mkastelik/pulsar/internal/store"
	"github.com/mkastelik/pulsar/internal/ui"
)

// LedgerFileName is the SQLite run ledger created in the output directory.
const LedgerFileName = "pulsar.db"

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process the whole library through NJOY",
	Long: "Process loads the library, runs the full pipeline for every evaluation\n" +
		"through NJOY, collects the ACE outputs, and writes the merged xsdir\n" +
		"index. Drop a PAUSE or STOP file in the library directory to intervene.",
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	runner := &njoy.Runner{
		Path:    cfg.NJOYPath,
		Timeout: cfg.Timeout,
		Verbose: cfg.Verbose,
		Log:     os.Stderr,
	}
	if err := runner.Validate(); err != nil {
		return err
	}

	lib, err := library.Load(cfg.Library)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	ctx, cancel := setupSignalContext()
	defer cancel()

	ledger, err := store.Open(ctx, filepath.Join(cfg.OutputDir, LedgerFileName))
	if err != nil {
		return err
	}
	defer ledger.Close()

	watcher, err := library.NewWatcher(cfg.Library)
	if err != nil {
		return fmt.Errorf("creating intervention watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("starting intervention watcher: %w", err)
	}
	defer watcher.Stop()

	proc := &library.Processor{
		Runner:       runner,
		Ledger:       ledger,
		OutputDir:    cfg.OutputDir,
		Workers:      cfg.Workers,
		Temperatures: cfg.Temperatures,
		Options:      cfg.PipelineOptions(),
		Watcher:      watcher,
		Log:          os.Stderr,
	}

	printer := ui.New()
	printer.BatchStart(lib.Manifest.Name, len(lib.Evaluations), len(cfg.Temperatures), cfg.Workers)

	summary, runErr := proc.Run(ctx, lib)
	for _, res := range summary.Results {
		if res.Run.Warning {
			printer.ConsistencyWarning(res.Evaluation.Nuclide.Name())
		}
	}
	printer.Summary(summary.Completed, summary.Failed)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if summary.Failed > 0 {
		os.Exit(1)
	}
	return nil
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nshutting down...")
		cancel()
	}()
	return ctx, cancel
}
