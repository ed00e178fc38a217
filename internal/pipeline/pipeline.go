// Package pipeline assembles ordered NJOY module invocation sequences for
// one evaluation and temperature set. Building is a pure, synchronous
// computation: the builder walks the module catalog backward from the
// requested output, replicates per-temperature steps in ascending order, and
// wires every step's tapes through a registry owned by the pipeline alone.
package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/mkastelik/pulsar/internal/catalog"
	"github.com/mkastelik/pulsar/internal/dag"
	"github.com/mkastelik/pulsar/internal/endf"
	"github.com/mkastelik/pulsar/internal/params"
	"github.com/mkastelik/pulsar/internal/tape"
)

// ErrUnsatisfiable is returned when no module chain can produce the
// requested output from the evaluation's declared content.
var ErrUnsatisfiable = errors.New("unsatisfiable dependency")

// ErrInvalidTemperatures is returned for an empty, non-positive, or
// non-strictly-increasing temperature set.
var ErrInvalidTemperatures = errors.New("invalid temperature set")

// Output names the terminal artifact a pipeline is built to produce.
type Output string

const (
	// OutputACE is the full chain ending in ACE library generation.
	OutputACE Output = "ace"
	// OutputPENDF stops after Doppler broadening, producing pointwise
	// ENDF tapes per temperature.
	OutputPENDF Output = "pendf"
)

// ResonanceMode controls unresolved-resonance self-shielding treatment.
type ResonanceMode int

const (
	// ResonanceAuto includes treatment exactly when the evaluation
	// declares resonance parameters.
	ResonanceAuto ResonanceMode = iota
	// ResonanceOn forces treatment; building fails if the evaluation has
	// no resonance data.
	ResonanceOn
	// ResonanceOff skips treatment even when data is present.
	ResonanceOff
)

// Options tunes a build without changing its determinism: identical options
// always produce an identical pipeline.
type Options struct {
	Resonance ResonanceMode
	// Overrides maps module kind → parameter name → value.
	Overrides map[string]map[string]string
}

// Invocation is one step of the pipeline, immutable once built.
type Invocation struct {
	Kind  catalog.Kind
	Index int
	// Temperature is set for per-temperature steps and zero for steps
	// shared across the whole set.
	Temperature float64
	Inputs      []int
	Outputs     []int
	Params      map[string]string
}

// Pipeline is the ordered invocation sequence for one evaluation ×
// temperature set, together with the tape registry used to build it.
type Pipeline struct {
	Evaluation   endf.Evaluation
	Temperatures []float64
	Output       Output
	Invocations  []Invocation

	Registry   *tape.Registry
	SourceTape int

	terminal catalog.Kind
}

// roleKey identifies a produced tape by role and temperature; shared
// producers use a zero temperature.
type roleKey struct {
	role tape.Role
	temp float64
}

// Build assembles the pipeline satisfying the requested output. It fails
// with ErrInvalidTemperatures on a malformed temperature set and
// ErrUnsatisfiable when the catalog holds no chain from the evaluation's
// declared content to the requested output.
func Build(ev endf.Evaluation, temps []float64, out Output, opts Options) (*Pipeline, error) {
	if err := checkTemperatures(temps); err != nil {
		return nil, err
	}

	useRes, err := resonanceEnabled(ev, opts.Resonance)
	if err != nil {
		return nil, err
	}

	terminalRole, err := terminalRoleFor(out)
	if err != nil {
		return nil, err
	}

	// Backward dependency walk: from the terminal role down to the source
	// tape, recording each module kind and its chosen input roles.
	chain, chosen, err := resolveChain(terminalRole, useRes)
	if err != nil {
		return nil, err
	}

	graph, steps, err := layoutSteps(chain, chosen, temps)
	if err != nil {
		return nil, err
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, err
	}

	reg := tape.NewRegistry()
	produced := map[roleKey]int{
		{role: tape.RoleSourceENDF}: tape.SourceUnit,
	}

	invocations := make([]Invocation, 0, len(order))
	for i, id := range order {
		st := steps[id]
		desc := st.desc

		var inputs []int
		for _, role := range chosen[desc.Kind] {
			key := roleKey{role: role, temp: st.producerTemp(role)}
			n, ok := produced[key]
			if !ok {
				return nil, fmt.Errorf("%w: %s needs unproduced role %s", ErrUnsatisfiable, desc.Kind, role)
			}
			if err := reg.Bind(n, i); err != nil {
				return nil, err
			}
			inputs = append(inputs, n)
		}

		var outputs []int
		for _, role := range desc.Produces {
			n, err := reg.Allocate(role, i)
			if err != nil {
				return nil, err
			}
			produced[roleKey{role: role, temp: st.temp}] = n
			outputs = append(outputs, n)
		}

		req := catalog.Request{Evaluation: ev, Temperatures: temps, Temperature: st.temp}
		resolved, err := params.Resolve(desc, req, opts.Overrides[string(desc.Kind)])
		if err != nil {
			return nil, err
		}

		invocations = append(invocations, Invocation{
			Kind:        desc.Kind,
			Index:       i,
			Temperature: st.temp,
			Inputs:      inputs,
			Outputs:     outputs,
			Params:      resolved,
		})
	}

	return &Pipeline{
		Evaluation:   ev,
		Temperatures: temps,
		Output:       out,
		Invocations:  invocations,
		Registry:     reg,
		SourceTape:   tape.SourceUnit,
		terminal:     chain[len(chain)-1],
	}, nil
}

// step is one node of the build graph before tape assignment.
type step struct {
	desc catalog.Descriptor
	temp float64
}

// producerTemp returns the temperature key under which the producer of a
// consumed role registered its output: the step's own temperature when the
// producer is replicated per temperature, zero otherwise.
func (s step) producerTemp(role tape.Role) float64 {
	if role == tape.RoleSourceENDF {
		return 0
	}
	prod, ok := catalog.ProducerOf(role)
	if ok && prod.PerTemperature {
		return s.temp
	}
	return 0
}

func checkTemperatures(temps []float64) error {
	if len(temps) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidTemperatures)
	}
	prev := math.Inf(-1)
	for _, t := range temps {
		if t <= 0 {
			return fmt.Errorf("%w: %g K is not positive", ErrInvalidTemperatures, t)
		}
		if t <= prev {
			return fmt.Errorf("%w: %g K does not increase past %g K", ErrInvalidTemperatures, t, prev)
		}
		prev = t
	}
	return nil
}

func resonanceEnabled(ev endf.Evaluation, mode ResonanceMode) (bool, error) {
	switch mode {
	case ResonanceOn:
		if !ev.HasResonance {
			return false, fmt.Errorf("%w: resonance treatment requested but %s declares no resonance data",
				ErrUnsatisfiable, ev.Nuclide.Name())
		}
		return true, nil
	case ResonanceOff:
		return false, nil
	default:
		return ev.HasResonance, nil
	}
}

func terminalRoleFor(out Output) (tape.Role, error) {
	switch out {
	case OutputACE:
		return tape.RoleACE, nil
	case OutputPENDF:
		return tape.RoleBroadened, nil
	default:
		return "", fmt.Errorf("%w: unknown output %q", ErrUnsatisfiable, out)
	}
}

// resolveChain walks backward from the terminal role and returns the module
// kinds needed, ordered source-first, together with the chosen input role
// for every consumed slot of each kind.
func resolveChain(terminal tape.Role, useRes bool) ([]catalog.Kind, map[catalog.Kind][]tape.Role, error) {
	chosen := make(map[catalog.Kind][]tape.Role)
	var chain []catalog.Kind

	var walk func(role tape.Role) error
	walk = func(role tape.Role) error {
		if role == tape.RoleSourceENDF {
			return nil
		}
		desc, ok := catalog.ProducerOf(role)
		if !ok {
			return fmt.Errorf("%w: no module produces role %s", ErrUnsatisfiable, role)
		}
		if _, seen := chosen[desc.Kind]; seen {
			return nil
		}

		roles := make([]tape.Role, 0, len(desc.Consumes))
		for _, slot := range desc.Consumes {
			r, ok := chooseAlternative(slot, useRes)
			if !ok {
				return fmt.Errorf("%w: %s has no usable input among %v", ErrUnsatisfiable, desc.Kind, slot)
			}
			roles = append(roles, r)
		}
		chosen[desc.Kind] = roles
		for _, r := range roles {
			if err := walk(r); err != nil {
				return err
			}
		}
		chain = append(chain, desc.Kind)
		return nil
	}

	if err := walk(terminal); err != nil {
		return nil, nil, err
	}
	return chain, chosen, nil
}

// chooseAlternative picks the preferred usable role from an input slot's
// alternatives. Earlier alternatives win; a role whose producer requires
// resonance data is usable only when treatment is enabled.
func chooseAlternative(slot []tape.Role, useRes bool) (tape.Role, bool) {
	for _, r := range slot {
		if r == tape.RoleSourceENDF {
			return r, true
		}
		prod, ok := catalog.ProducerOf(r)
		if !ok {
			continue
		}
		if prod.RequiresResonanceData && !useRes {
			continue
		}
		return r, true
	}
	return "", false
}

// layoutSteps instantiates graph nodes for the chain, one node per
// temperature for per-temperature kinds in ascending order, and adds
// dependency edges following the chosen input roles.
func layoutSteps(chain []catalog.Kind, chosen map[catalog.Kind][]tape.Role, temps []float64) (*dag.DAG, map[string]step, error) {
	graph := dag.New()
	steps := make(map[string]step)

	nodeID := func(k catalog.Kind, temp float64) string {
		if temp > 0 {
			return fmt.Sprintf("%s@%g", k, temp)
		}
		return string(k)
	}

	for _, kind := range chain {
		desc, err := catalog.Lookup(kind)
		if err != nil {
			return nil, nil, err
		}
		stepTemps := []float64{0}
		if desc.PerTemperature {
			stepTemps = temps
		}
		for _, t := range stepTemps {
			id := nodeID(kind, t)
			if err := graph.AddNode(id); err != nil {
				return nil, nil, err
			}
			steps[id] = step{desc: desc, temp: t}
		}
	}

	for id, st := range steps {
		for _, role := range chosen[st.desc.Kind] {
			if role == tape.RoleSourceENDF {
				continue
			}
			prod, ok := catalog.ProducerOf(role)
			if !ok {
				return nil, nil, fmt.Errorf("%w: no module produces role %s", ErrUnsatisfiable, role)
			}
			depTemp := 0.0
			if prod.PerTemperature {
				depTemp = st.temp
			}
			if err := graph.AddEdge(id, nodeID(prod.Kind, depTemp)); err != nil {
				return nil, nil, err
			}
		}
	}
	return graph, steps, nil
}

// TerminalInvocations returns the invocations of the terminal module kind
// in sequence order.
func (p *Pipeline) TerminalInvocations() []Invocation {
	var out []Invocation
	for _, inv := range p.Invocations {
		if inv.Kind == p.terminal {
			out = append(out, inv)
		}
	}
	return out
}

// TerminalTapes returns the output tape numbers of the terminal
// invocations, in sequence order. The run driver verifies these exist and
// are non-empty after execution.
func (p *Pipeline) TerminalTapes() []int {
	var out []int
	for _, inv := range p.TerminalInvocations() {
		out = append(out, inv.Outputs...)
	}
	return out
}

// Validate checks the topological-ordering invariant: every input tape of
// invocation i was produced by some invocation j < i (or staged as the
// source), and no tape number is produced twice.
func (p *Pipeline) Validate() error {
	producedBy := map[int]int{p.SourceTape: tape.SourceProducer}
	for _, inv := range p.Invocations {
		for _, in := range inv.Inputs {
			j, ok := producedBy[in]
			if !ok {
				return fmt.Errorf("%w: tape %d consumed by %s[%d]", tape.ErrUnboundTape, in, inv.Kind, inv.Index)
			}
			if j >= inv.Index {
				return fmt.Errorf("invocation %s[%d] consumes tape %d produced later by [%d]", inv.Kind, inv.Index, in, j)
			}
		}
		for _, out := range inv.Outputs {
			if _, dup := producedBy[out]; dup {
				return fmt.Errorf("tape %d produced twice", out)
			}
			producedBy[out] = inv.Index
		}
	}
	return nil
}
