package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mkastelik/pulsar/internal/catalog"
	"github.com/mkastelik/pulsar/internal/deck"
	"github.com/mkastelik/pulsar/internal/endf"
	"github.com/mkastelik/pulsar/internal/njoy"
	"github.com/mkastelik/pulsar/internal/pipeline"
	"github.com/mkastelik/pulsar/internal/store"
)

// Executor runs one rendered deck in a working directory. *njoy.Runner is
// the production implementation.
type Executor interface {
	Execute(ctx context.Context, deckText, workDir string, terminal []int) (njoy.RunResult, error)
}

// Recorder persists run outcomes. *store.Ledger is the production
// implementation; a nil Recorder disables persistence.
type Recorder interface {
	RecordRun(ctx context.Context, r store.RunRecord) error
	RecordArtifact(ctx context.Context, a store.Artifact) error
}

// Result is the outcome of processing one evaluation.
type Result struct {
	Evaluation endf.Evaluation
	Run        njoy.RunResult
	Artifacts  []store.Artifact
	Err        error
}

// Summary aggregates a batch run.
type Summary struct {
	Completed int
	Failed    int
	Results   []Result
}

// Processor drives NJOY over every evaluation of a library. Evaluations
// are independent: each gets its own pipeline, tape registry, and scratch
// directory, so any number of them may run concurrently.
type Processor struct {
	Runner       Executor
	Ledger       Recorder // optional
	OutputDir    string
	Workers      int
	Temperatures []float64
	Options      pipeline.Options
	Watcher      *Watcher  // optional intervention watcher
	Log          io.Writer // defaults to os.Stderr
}

const (
	aceDir   = "acedir"
	xsdirDir = "xsdir"
)

func (p *Processor) logger() io.Writer {
	if p.Log != nil {
		return p.Log
	}
	return os.Stderr
}

func (p *Processor) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return 1
}

// Run processes every evaluation of the library and writes the merged
// xsdir index when at least one run succeeds. A STOP control file cancels
// the batch after in-flight runs finish; a PAUSE file holds dispatch until
// it is removed.
func (p *Processor) Run(ctx context.Context, lib *Library) (Summary, error) {
	for _, d := range []string{aceDir, xsdirDir} {
		if err := os.MkdirAll(filepath.Join(p.OutputDir, d), 0o755); err != nil {
			return Summary{}, fmt.Errorf("creating output directory: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan endf.Evaluation)
	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
	)

	for i := 0; i < p.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range jobs {
				res := p.processOne(ctx, ev)
				mu.Lock()
				summary.Results = append(summary.Results, res)
				if res.Err != nil {
					summary.Failed++
				} else {
					summary.Completed++
				}
				mu.Unlock()

				if res.Err != nil {
					fmt.Fprintf(p.logger(), "%s processing FAILED: %v\n", ev.Nuclide.Name(), res.Err)
				} else {
					fmt.Fprintf(p.logger(), "%s processing COMPLETED\n", ev.Nuclide.Name())
				}
			}
		}()
	}

dispatch:
	for _, ev := range lib.Evaluations {
		if p.awaitInterventions(ctx) {
			cancel()
			break dispatch
		}
		select {
		case jobs <- ev:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	// Stable result order regardless of completion order.
	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Evaluation.Path < summary.Results[j].Evaluation.Path
	})

	if summary.Completed > 0 {
		if err := p.writeIndex(lib); err != nil {
			return summary, err
		}
	}
	return summary, ctx.Err()
}

// awaitInterventions drains pending control signals. It blocks while the
// batch is paused and reports true when the batch should stop.
func (p *Processor) awaitInterventions(ctx context.Context) bool {
	if p.Watcher == nil {
		return false
	}
	for {
		select {
		case kind := <-p.Watcher.Interventions:
			switch kind {
			case InterventionStop:
				fmt.Fprintln(p.logger(), "STOP file detected, finishing in-flight runs")
				return true
			case InterventionPause:
				fmt.Fprintln(p.logger(), "PAUSE file detected, holding dispatch (remove it to continue)")
				if p.holdUntilResume(ctx) {
					return true
				}
			}
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}
}

func (p *Processor) holdUntilResume(ctx context.Context) bool {
	for {
		select {
		case kind := <-p.Watcher.Interventions:
			switch kind {
			case InterventionResume:
				fmt.Fprintln(p.logger(), "resuming dispatch")
				return false
			case InterventionStop:
				return true
			}
		case <-ctx.Done():
			return true
		}
	}
}

// processOne builds, renders, and executes the pipeline for a single
// evaluation in a scratch directory, then moves the produced ACE and xsdir
// artifacts into the output tree.
func (p *Processor) processOne(ctx context.Context, ev endf.Evaluation) Result {
	res := Result{Evaluation: ev}

	pl, err := pipeline.Build(ev, p.Temperatures, pipeline.OutputACE, p.Options)
	if err != nil {
		res.Err = fmt.Errorf("building pipeline: %w", err)
		return res
	}
	text, err := deck.Render(pl)
	if err != nil {
		res.Err = fmt.Errorf("rendering deck: %w", err)
		return res
	}

	workDir, err := os.MkdirTemp(p.OutputDir, "tmp-"+ev.Nuclide.Name()+"-")
	if err != nil {
		res.Err = fmt.Errorf("creating scratch directory: %w", err)
		return res
	}
	defer os.RemoveAll(workDir)

	if err := copyFile(ev.Path, filepath.Join(workDir, njoy.TapeFileName(pl.SourceTape))); err != nil {
		res.Err = fmt.Errorf("staging evaluation: %w", err)
		return res
	}

	res.Run, err = p.Runner.Execute(ctx, text, workDir, pl.TerminalTapes())
	p.recordRun(ctx, ev, res.Run, err)
	if err != nil {
		res.Err = err
		return res
	}

	res.Artifacts, res.Err = p.collectArtifacts(ctx, ev, pl, workDir, res.Run.ID)
	return res
}

func (p *Processor) recordRun(ctx context.Context, ev endf.Evaluation, run njoy.RunResult, runErr error) {
	if p.Ledger == nil {
		return
	}
	diag := run.Diagnostic
	if runErr != nil && diag == "" {
		diag = runErr.Error()
	}
	rec := store.RunRecord{
		ID:         run.ID,
		Nuclide:    ev.Nuclide.Name(),
		Library:    ev.Library,
		Status:     string(run.Status),
		ExitCode:   run.ExitCode,
		Warning:    run.Warning,
		Diagnostic: diag,
		Started:    run.Started,
		Finished:   run.Finished,
	}
	if err := p.Ledger.RecordRun(ctx, rec); err != nil {
		fmt.Fprintf(p.logger(), "warning: recording run for %s: %v\n", ev.Nuclide.Name(), err)
	}
}

func (p *Processor) collectArtifacts(ctx context.Context, ev endf.Evaluation, pl *pipeline.Pipeline, workDir, runID string) ([]store.Artifact, error) {
	var out []store.Artifact
	for _, inv := range pl.TerminalInvocations() {
		if len(inv.Outputs) < 2 {
			continue
		}
		t := inv.Temperature
		aceName := ACEFileName(ev.Nuclide, t)
		acePath := filepath.Join(p.OutputDir, aceDir, aceName)
		if err := os.Rename(filepath.Join(workDir, njoy.TapeFileName(inv.Outputs[0])), acePath); err != nil {
			return out, fmt.Errorf("moving ACE output for %g K: %w", t, err)
		}

		raw, err := os.ReadFile(filepath.Join(workDir, njoy.TapeFileName(inv.Outputs[1])))
		if err != nil {
			return out, fmt.Errorf("reading xsdir entry for %g K: %w", t, err)
		}
		entry := store.RewriteEntry(string(raw), []store.Replacement{
			{Old: zaid(ev.Nuclide.ZA(), t), New: zaid(ev.Nuclide.ZAID(), t)},
			{Old: "filename", New: aceName},
			{Old: "route", New: "0"},
		})
		entryPath := filepath.Join(p.OutputDir, xsdirDir, strings.TrimSuffix(aceName, ".ace")+".xsdir")
		if err := os.WriteFile(entryPath, []byte(entry), 0o644); err != nil {
			return out, fmt.Errorf("writing xsdir entry for %g K: %w", t, err)
		}

		a := store.Artifact{RunID: runID, Temperature: t, ACEPath: acePath, XSDirPath: entryPath}
		out = append(out, a)
		if p.Ledger != nil {
			if err := p.Ledger.RecordArtifact(ctx, a); err != nil {
				fmt.Fprintf(p.logger(), "warning: recording artifact %s: %v\n", aceName, err)
			}
		}
	}
	return out, nil
}

// writeIndex merges every per-run xsdir entry into the library index file.
func (p *Processor) writeIndex(lib *Library) error {
	dir := filepath.Join(p.OutputDir, xsdirDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading xsdir directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".xsdir") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	texts := make([]string, 0, len(names))
	for _, n := range names {
		data, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil {
			return fmt.Errorf("reading xsdir entry %s: %w", n, err)
		}
		texts = append(texts, string(data))
	}

	index := filepath.Join(p.OutputDir, IndexFileName(lib.Manifest.Name))
	return store.WriteIndex(index, filepath.Join(p.OutputDir, aceDir), texts)
}

// ACEFileName returns the deterministic artifact name for a nuclide at a
// temperature, e.g. "U-235_02.ace" at 293.6 K.
func ACEFileName(n endf.Nuclide, t float64) string {
	return fmt.Sprintf("%s_%02d.ace", n.Name(), int(t/100))
}

// IndexFileName returns the merged xsdir index name for a library.
func IndexFileName(library string) string {
	safe := strings.NewReplacer("/", "-", " ", "_").Replace(library)
	return fmt.Sprintf("sss2_%s.xsdir", safe)
}

func zaid(id int, t float64) string {
	return fmt.Sprintf("%d%sc", id, catalog.Suffix(t))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
