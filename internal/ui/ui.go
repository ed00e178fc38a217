// Package ui prints colored status output for batch processing runs. All
// output goes to a single writer, stderr by default, so stdout stays free
// for machine-readable data.
package ui

import (
	"fmt"
	"io"
	"os"
)

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	yellow = "\033[33m"
	green  = "\033[32m"
	red    = "\033[31m"
	cyan   = "\033[36m"
)

type Printer struct {
	Out io.Writer
}

func New() *Printer {
	return &Printer{Out: os.Stderr}
}

func (p *Printer) out() io.Writer {
	if p.Out != nil {
		return p.Out
	}
	return os.Stderr
}

func (p *Printer) BatchStart(library string, evaluations, temperatures, workers int) {
	fmt.Fprintf(p.out(), bold+cyan+"◆ %s"+reset+" — %d evaluation(s) × %d temperature(s), %d worker(s)\n",
		library, evaluations, temperatures, workers)
}

func (p *Printer) RunCompleted(nuclide string) {
	fmt.Fprintf(p.out(), green+"✓ %s"+reset+" processed\n", nuclide)
}

func (p *Printer) RunFailed(nuclide string, err error) {
	fmt.Fprintf(p.out(), red+bold+"✗ %s"+reset+" failed: %v\n", nuclide, err)
}

func (p *Printer) ConsistencyWarning(nuclide string) {
	fmt.Fprintf(p.out(), yellow+bold+"⚠ %s"+reset+" reported consistency problems\n", nuclide)
}

func (p *Printer) Summary(completed, failed int) {
	color := green
	if failed > 0 {
		color = red
	}
	fmt.Fprintf(p.out(), color+bold+"◆ batch done"+reset+dim+" (%d completed, %d failed)"+reset+"\n", completed, failed)
}

func (p *Printer) Check(msg string) {
	fmt.Fprintf(p.out(), green+"✓ "+reset+"%s\n", msg)
}

func (p *Printer) Fail(msg string) {
	fmt.Fprintf(p.out(), red+"✗ "+reset+"%s\n", msg)
}

func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.out(), red+bold+"error: "+reset+"%s\n", msg)
}

func (p *Printer) Info(msg string) {
	fmt.Fprintf(p.out(), dim+"%s"+reset+"\n", msg)
}
