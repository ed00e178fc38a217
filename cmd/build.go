package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkastelik/pulsar/internal/config"
	"github.com/mkastelik/pulsar/internal/deck"
	"github.com/mkastelik/pulsar/internal/library"
	"github.com/mkastelik/pulsar/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render NJOY input decks without running them",
	Long: "Build loads the library, constructs the module pipeline for every\n" +
		"evaluation, and writes the rendered decks under <output>/decks/ for\n" +
		"inspection. NJOY is not invoked.",
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	lib, err := library.Load(cfg.Library)
	if err != nil {
		return err
	}

	deckDir := filepath.Join(cfg.OutputDir, "decks")
	if err := os.MkdirAll(deckDir, 0o755); err != nil {
		return fmt.Errorf("creating deck directory: %w", err)
	}

	opts := cfg.PipelineOptions()
	for _, ev := range lib.Evaluations {
		pl, err := pipeline.Build(ev, cfg.Temperatures, pipeline.OutputACE, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", ev.Nuclide.Name(), err)
		}
		text, err := deck.Render(pl)
		if err != nil {
			return fmt.Errorf("%s: %w", ev.Nuclide.Name(), err)
		}

		path := filepath.Join(deckDir, ev.Nuclide.Name()+".inp")
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return fmt.Errorf("writing deck for %s: %w", ev.Nuclide.Name(), err)
		}
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "%s: %d module invocations -> %s\n",
				ev.Nuclide.Name(), len(pl.Invocations), path)
		}
	}

	fmt.Fprintf(os.Stderr, "rendered %d decks to %s\n", len(lib.Evaluations), deckDir)
	return nil
}
