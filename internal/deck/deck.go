// Package deck serializes a pipeline into NJOY's card-image input syntax.
// Rendering is purely mechanical: invocations in sequence order, one control
// block per module, fields in each module's fixed layout. A deterministic
// pipeline therefore always renders to byte-identical text.
package deck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mkastelik/pulsar/internal/catalog"
	"github.com/mkastelik/pulsar/internal/pipeline"
)

// ErrUnrenderable is returned when an invocation cannot be expressed in
// deck syntax (unknown module kind or missing parameter).
var ErrUnrenderable = errors.New("cannot render invocation")

// Render serializes the pipeline into complete deck text, ending with the
// stop card. The only validation performed is that every parameter each
// card layout needs is present.
func Render(p *pipeline.Pipeline) (string, error) {
	var b strings.Builder
	for _, inv := range p.Invocations {
		if err := renderInvocation(&b, inv, p.Evaluation.MAT); err != nil {
			return "", err
		}
	}
	b.WriteString("stop\n")
	return b.String(), nil
}

func renderInvocation(b *strings.Builder, inv pipeline.Invocation, mat int) error {
	switch inv.Kind {
	case catalog.Reconr:
		return renderReconr(b, inv, mat)
	case catalog.Purr:
		return renderPurr(b, inv, mat)
	case catalog.Broadr:
		return renderBroadr(b, inv, mat)
	case catalog.Heatr:
		return renderHeatr(b, inv, mat)
	case catalog.Acer:
		return renderAcer(b, inv, mat)
	case catalog.Gaspr, catalog.Viewr:
		// Tape-only modules: a single unit-number card.
		fmt.Fprintf(b, "%s\n%s/\n", inv.Kind, units(inv.Inputs, inv.Outputs))
		return nil
	default:
		return fmt.Errorf("%w: unknown module kind %q", ErrUnrenderable, inv.Kind)
	}
}

func renderReconr(b *strings.Builder, inv pipeline.Invocation, mat int) error {
	p, err := need(inv, "label", "err", "tempr", "errmax", "errint")
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "reconr\n%s/\n", units(inv.Inputs, inv.Outputs))
	fmt.Fprintf(b, "'%s'/\n", p["label"])
	fmt.Fprintf(b, "%d 2/\n", mat)
	fmt.Fprintf(b, "%s %s %s %s/\n", p["err"], p["tempr"], p["errmax"], p["errint"])
	b.WriteString("''/\n''/\n0/\n")
	return nil
}

func renderPurr(b *strings.Builder, inv pipeline.Invocation, mat int) error {
	p, err := need(inv, "ntemp", "nsigz", "nbin", "nladr", "temps", "sigz")
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "purr\n%s/\n", units(inv.Inputs, inv.Outputs))
	fmt.Fprintf(b, "%d %s %s %s %s/\n", mat, p["ntemp"], p["nsigz"], p["nbin"], p["nladr"])
	fmt.Fprintf(b, "%s/\n", p["temps"])
	fmt.Fprintf(b, "%s/\n0/\n", p["sigz"])
	return nil
}

func renderBroadr(b *strings.Builder, inv pipeline.Invocation, mat int) error {
	p, err := need(inv, "errthn", "thnmax", "errmax", "errint", "temp")
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "broadr\n%s/\n", units(inv.Inputs, inv.Outputs))
	fmt.Fprintf(b, "%d 1/\n", mat)
	fmt.Fprintf(b, "%s %s %s %s/\n", p["errthn"], p["thnmax"], p["errmax"], p["errint"])
	fmt.Fprintf(b, "%s/\n0/\n", p["temp"])
	return nil
}

func renderHeatr(b *strings.Builder, inv pipeline.Invocation, mat int) error {
	p, err := need(inv, "npk", "nqa", "ntemp", "local", "iprint", "mts")
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "heatr\n%s/\n", units(inv.Inputs, inv.Outputs))
	fmt.Fprintf(b, "%d %s %s %s %s %s/\n", mat, p["npk"], p["nqa"], p["ntemp"], p["local"], p["iprint"])
	fmt.Fprintf(b, "%s/\n", p["mts"])
	return nil
}

func renderAcer(b *strings.Builder, inv pipeline.Invocation, mat int) error {
	p, err := need(inv, "iopt", "iprint", "itype", "suffix", "label", "temp")
	if err != nil {
		return err
	}
	// Unit card: nendf npend ngend nace ndir. No gamma input tape.
	fmt.Fprintf(b, "acer\n%d %d 0 %s/\n", inv.Inputs[0], inv.Inputs[1], units(inv.Outputs, nil))
	fmt.Fprintf(b, "%s %s %s %s/\n", p["iopt"], p["iprint"], p["itype"], p["suffix"])
	fmt.Fprintf(b, "'%s'/\n", p["label"])
	fmt.Fprintf(b, "%d %s/\n", mat, p["temp"])
	b.WriteString("1 1/\n/\n")
	return nil
}

// need returns the invocation's parameters after confirming every named one
// is present.
func need(inv pipeline.Invocation, names ...string) (map[string]string, error) {
	for _, n := range names {
		if _, ok := inv.Params[n]; !ok {
			return nil, fmt.Errorf("%w: %s missing parameter %q", ErrUnrenderable, inv.Kind, n)
		}
	}
	return inv.Params, nil
}

// units renders two unit-number lists as one space-separated card body.
func units(a, b []int) string {
	parts := make([]string, 0, len(a)+len(b))
	for _, n := range a {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	for _, n := range b {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, " ")
}
