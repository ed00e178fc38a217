// Package njoy drives the external NJOY executable: it writes a rendered
// deck into a working directory, runs the process against it, and maps the
// raw exit status and tape files back into a per-run result. It never
// retries; a failed run almost always reproduces identically from the same
// deck, so retry policy belongs to the caller.
package njoy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrProcessFailed is returned when NJOY exits with a nonzero status.
var ErrProcessFailed = errors.New("njoy exited with nonzero status")

// ErrIncompleteOutput is returned when a terminal output tape is missing
// or empty after a zero exit status.
var ErrIncompleteOutput = errors.New("terminal output tape missing or empty")

// ErrTimeout is returned when a run exceeds the configured timeout.
var ErrTimeout = errors.New("njoy run timed out")

// ErrCancelled is returned when the caller cancels a run in flight.
var ErrCancelled = errors.New("njoy run cancelled")

// ErrNoExecutable is returned when no NJOY path is configured and the NJOY
// environment variable is unset.
var ErrNoExecutable = errors.New("njoy executable not configured and NJOY environment variable is not assigned")

// DeckFileName is the deck file written into each working directory.
const DeckFileName = "njoy.inp"

// consistencyWarning is the marker NJOY's consis module prints on stdout
// when the generated ACE data has internal inconsistencies. The run still
// succeeds; the warning is surfaced on the result.
const consistencyWarning = "---message from consis---consistency problems found"

// Status describes a run's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// RunResult is the outcome of executing one pipeline.
type RunResult struct {
	ID         string
	Status     Status
	ExitCode   int
	Output     string // captured stdout
	Diagnostic string // stderr, or the failure explanation
	Warning    bool   // consistency warning seen on stdout
	Started    time.Time
	Finished   time.Time
}

// Runner invokes NJOY. The zero value reads the executable path from the
// NJOY environment variable.
type Runner struct {
	Path    string
	Timeout time.Duration // zero means no limit
	Verbose bool
	Log     io.Writer // defaults to os.Stderr
}

func (r *Runner) logger() io.Writer {
	if r.Log != nil {
		return r.Log
	}
	return os.Stderr
}

func (r *Runner) executable() (string, error) {
	if r.Path != "" {
		return r.Path, nil
	}
	if p := os.Getenv("NJOY"); p != "" {
		return p, nil
	}
	return "", ErrNoExecutable
}

// Validate checks that the NJOY executable can be found.
func (r *Runner) Validate() error {
	exe, err := r.executable()
	if err != nil {
		return err
	}
	if _, err := exec.LookPath(exe); err != nil {
		return fmt.Errorf("njoy executable not found at %q: %w", exe, err)
	}
	return nil
}

// Execute writes the deck into workDir, runs NJOY there, and verifies that
// every terminal tape exists and is non-empty. The returned result is
// StatusFailed (with a matching sentinel error) on nonzero exit, missing
// output, timeout, or cancellation, and StatusSucceeded otherwise.
func (r *Runner) Execute(ctx context.Context, deckText, workDir string, terminal []int) (RunResult, error) {
	res := RunResult{ID: uuid.NewString(), Status: StatusPending}

	exe, err := r.executable()
	if err != nil {
		res.Status = StatusFailed
		res.Diagnostic = err.Error()
		return res, err
	}

	deckPath := filepath.Join(workDir, DeckFileName)
	if err := os.WriteFile(deckPath, []byte(deckText), 0o644); err != nil {
		res.Status = StatusFailed
		res.Diagnostic = err.Error()
		return res, fmt.Errorf("writing deck: %w", err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	// NJOY 2016 reads the deck on stdin; 2021 takes it via -i. Mirror the
	// version switch the processing scripts have always keyed off the
	// executable name.
	var args []string
	if strings.Contains(filepath.Base(exe), "2021") {
		args = []string{"-i", deckPath}
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = workDir
	cmd.SysProcAttr = sessionAttr()
	cmd.Cancel = func() error { return killGroup(cmd.Process) }
	cmd.WaitDelay = 10 * time.Second
	if len(args) == 0 {
		cmd.Stdin = strings.NewReader(deckText)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if r.Verbose {
		fmt.Fprintf(r.logger(), "[njoy] running: %s %s (workdir %s)\n", exe, strings.Join(args, " "), workDir)
	}

	res.Status = StatusRunning
	res.Started = time.Now()
	runErr := cmd.Run()
	res.Finished = time.Now()
	res.Output = stdout.String()
	res.Warning = strings.Contains(res.Output, consistencyWarning)

	if runErr != nil {
		res.Status = StatusFailed
		if cmd.ProcessState != nil {
			res.ExitCode = cmd.ProcessState.ExitCode()
		}
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			res.Diagnostic = fmt.Sprintf("cancelled: timed out after %s", r.Timeout)
			return res, fmt.Errorf("%w after %s", ErrTimeout, r.Timeout)
		case errors.Is(ctx.Err(), context.Canceled):
			res.Diagnostic = "cancelled by caller"
			return res, ErrCancelled
		default:
			res.Diagnostic = stderr.String()
			return res, fmt.Errorf("%w (exit %d): %s", ErrProcessFailed, res.ExitCode, firstLine(stderr.String()))
		}
	}

	for _, t := range terminal {
		info, err := os.Stat(filepath.Join(workDir, TapeFileName(t)))
		if err != nil || info.Size() == 0 {
			res.Status = StatusFailed
			res.Diagnostic = fmt.Sprintf("tape %d missing or empty after run", t)
			return res, fmt.Errorf("%w: tape %d", ErrIncompleteOutput, t)
		}
	}

	res.Status = StatusSucceeded
	res.Diagnostic = stderr.String()
	return res, nil
}

// TapeFileName returns the on-disk name NJOY gives a logical unit.
func TapeFileName(unit int) string {
	return fmt.Sprintf("tape%d", unit)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
