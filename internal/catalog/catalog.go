// Package catalog is the static table of NJOY processing modules the
// pipeline builder knows how to sequence. Each descriptor declares which
// tape roles the module consumes (with ordered alternatives), which roles it
// produces, and its parameters with default-value functions, so the builder
// is a generic graph walk rather than a chain of special cases.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mkastelik/pulsar/internal/endf"
	"github.com/mkastelik/pulsar/internal/tape"
)

// ErrUnknownModule is returned for a module kind absent from the catalog.
// Hitting it means a programming or configuration error, not a runtime
// condition to recover from.
var ErrUnknownModule = errors.New("unknown module kind")

// Kind names one NJOY processing module.
type Kind string

const (
	Reconr Kind = "reconr" // resonance reconstruction to pointwise form
	Purr   Kind = "purr"   // unresolved-resonance self-shielding
	Broadr Kind = "broadr" // Doppler broadening
	Heatr  Kind = "heatr"  // heating / KERMA factors
	Acer   Kind = "acer"   // ACE library generation
	Gaspr  Kind = "gaspr"  // gas-production cross sections
	Viewr  Kind = "viewr"  // plot rendering
)

// Request carries the evaluation metadata a default-value function may
// draw on. Temperature is the invocation's own temperature for
// per-temperature modules and zero otherwise.
type Request struct {
	Evaluation   endf.Evaluation
	Temperatures []float64
	Temperature  float64
}

// DefaultFunc computes a parameter default from evaluation metadata.
// ok is false when no default can be derived for the request.
type DefaultFunc func(Request) (string, bool)

// ParamSpec declares one parameter a module accepts. A nil Default makes
// the parameter override-only.
type ParamSpec struct {
	Name    string
	Default DefaultFunc
}

// Descriptor is one catalog entry.
type Descriptor struct {
	Kind Kind

	// Consumes lists the module's input tape slots in card order. Each
	// slot holds one or more acceptable roles; earlier alternatives are
	// preferred (the tie-break rule for alternative predecessors).
	Consumes [][]tape.Role

	// Produces lists the output tape roles in card order.
	Produces []tape.Role

	Params []ParamSpec

	// PerTemperature modules are replicated once per requested
	// temperature rather than invoked once for the whole set.
	PerTemperature bool

	// RequiresResonanceData marks modules that only make sense when the
	// evaluation declares resonance parameters.
	RequiresResonanceData bool
}

// FormatTemp renders a temperature the way NJOY cards expect it. The
// fixed width keeps rendered decks byte-identical across runs.
func FormatTemp(t float64) string {
	return fmt.Sprintf("%12.5e", t)
}

// Suffix returns the ACE identifier suffix for a temperature, hundreds of
// Kelvin zero-padded to two digits (293.6 K -> ".02").
func Suffix(t float64) string {
	return fmt.Sprintf(".%02d", int(t/100))
}

func constant(v string) DefaultFunc {
	return func(Request) (string, bool) { return v, true }
}

func perTemp(f func(float64) string) DefaultFunc {
	return func(r Request) (string, bool) {
		if r.Temperature <= 0 {
			return "", false
		}
		return f(r.Temperature), true
	}
}

var table = map[Kind]Descriptor{
	Reconr: {
		Kind:     Reconr,
		Consumes: [][]tape.Role{{tape.RoleSourceENDF}},
		Produces: []tape.Role{tape.RolePointwise},
		Params: []ParamSpec{
			{Name: "label", Default: func(r Request) (string, bool) {
				if r.Evaluation.Nuclide.Symbol() == "" {
					return "", false
				}
				return r.Evaluation.Nuclide.Name() + " PENDF", true
			}},
			{Name: "err", Default: constant("0.001")},
			{Name: "tempr", Default: constant("0.0")},
			{Name: "errmax", Default: constant("0.01")},
			{Name: "errint", Default: constant("5.0e-7")},
		},
	},
	Purr: {
		Kind:                  Purr,
		Consumes:              [][]tape.Role{{tape.RoleSourceENDF}, {tape.RolePointwise}},
		Produces:              []tape.Role{tape.RoleShielded},
		RequiresResonanceData: true,
		Params: []ParamSpec{
			{Name: "ntemp", Default: func(r Request) (string, bool) {
				if len(r.Temperatures) == 0 {
					return "", false
				}
				return fmt.Sprintf("%d", len(r.Temperatures)), true
			}},
			{Name: "nsigz", Default: constant("1")},
			{Name: "nbin", Default: constant("20")},
			{Name: "nladr", Default: constant("64")},
			{Name: "temps", Default: func(r Request) (string, bool) {
				if len(r.Temperatures) == 0 {
					return "", false
				}
				parts := make([]string, len(r.Temperatures))
				for i, t := range r.Temperatures {
					parts[i] = FormatTemp(t)
				}
				return strings.Join(parts, " "), true
			}},
			{Name: "sigz", Default: constant("1.0e10")},
		},
	},
	Broadr: {
		Kind:           Broadr,
		Consumes:       [][]tape.Role{{tape.RoleSourceENDF}, {tape.RoleShielded, tape.RolePointwise}},
		Produces:       []tape.Role{tape.RoleBroadened},
		PerTemperature: true,
		Params: []ParamSpec{
			{Name: "errthn", Default: constant("0.001")},
			{Name: "thnmax", Default: constant("2.0e6")},
			{Name: "errmax", Default: constant("0.01")},
			{Name: "errint", Default: constant("5.0e-7")},
			{Name: "temp", Default: perTemp(FormatTemp)},
		},
	},
	Heatr: {
		Kind:           Heatr,
		Consumes:       [][]tape.Role{{tape.RoleSourceENDF}, {tape.RoleBroadened}},
		Produces:       []tape.Role{tape.RoleHeated},
		PerTemperature: true,
		Params: []ParamSpec{
			{Name: "npk", Default: constant("7")},
			{Name: "nqa", Default: constant("0")},
			{Name: "ntemp", Default: constant("0")},
			{Name: "local", Default: constant("1")},
			{Name: "iprint", Default: constant("2")},
			{Name: "mts", Default: constant("302 303 304 318 401 443 444")},
		},
	},
	Acer: {
		Kind:           Acer,
		Consumes:       [][]tape.Role{{tape.RoleSourceENDF}, {tape.RoleHeated}},
		Produces:       []tape.Role{tape.RoleACE, tape.RoleXSDir},
		PerTemperature: true,
		Params: []ParamSpec{
			{Name: "iopt", Default: constant("1")},
			{Name: "iprint", Default: constant("1")},
			{Name: "itype", Default: constant("1")},
			{Name: "suffix", Default: perTemp(Suffix)},
			{Name: "label", Default: func(r Request) (string, bool) {
				if r.Evaluation.Nuclide.Symbol() == "" {
					return "", false
				}
				return fmt.Sprintf("%s, %s, pulsar", r.Evaluation.Nuclide.Name(), r.Evaluation.Library), true
			}},
			{Name: "temp", Default: perTemp(FormatTemp)},
		},
	},
	Gaspr: {
		Kind:     Gaspr,
		Consumes: [][]tape.Role{{tape.RoleSourceENDF}, {tape.RoleHeated}},
		Produces: []tape.Role{tape.RoleGas},
	},
	Viewr: {
		Kind:     Viewr,
		Consumes: [][]tape.Role{{tape.RolePlot}},
		Produces: []tape.Role{tape.RolePostScript},
	},
}

// Lookup returns the descriptor for a module kind.
func Lookup(kind Kind) (Descriptor, error) {
	d, ok := table[kind]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownModule, kind)
	}
	return d, nil
}

// ProducerOf returns the descriptor of the module producing a tape role.
// Role-to-producer mapping is unique across the catalog.
func ProducerOf(role tape.Role) (Descriptor, bool) {
	for _, d := range table {
		for _, r := range d.Produces {
			if r == role {
				return d, true
			}
		}
	}
	return Descriptor{}, false
}

// Kinds returns all catalog entries' kinds, unordered.
func Kinds() []Kind {
	out := make([]Kind, 0, len(table))
	for k := range table {
		out = append(out, k)
	}
	return out
}
