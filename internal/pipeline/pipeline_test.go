package pipeline

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mkastelik/pulsar/internal/catalog"
	"github.com/mkastelik/pulsar/internal/endf"
)

func u235() endf.Evaluation {
	return endf.Evaluation{
		Nuclide:      endf.Nuclide{Z: 92, A: 235},
		Library:      "ENDF-B/VIII.0",
		MAT:          9228,
		HasResonance: true,
	}
}

func fe56() endf.Evaluation {
	return endf.Evaluation{
		Nuclide: endf.Nuclide{Z: 26, A: 56},
		Library: "ENDF-B/VIII.0",
		MAT:     2631,
	}
}

func kinds(p *Pipeline) []catalog.Kind {
	out := make([]catalog.Kind, len(p.Invocations))
	for i, inv := range p.Invocations {
		out[i] = inv.Kind
	}
	return out
}

func TestBuildFullChain(t *testing.T) {
	t.Parallel()

	temps := []float64{293.6, 600, 900}
	p, err := Build(u235(), temps, OutputACE, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	wantKinds := []catalog.Kind{
		catalog.Reconr, catalog.Purr,
		catalog.Broadr, catalog.Broadr, catalog.Broadr,
		catalog.Heatr, catalog.Heatr, catalog.Heatr,
		catalog.Acer, catalog.Acer, catalog.Acer,
	}
	if got := kinds(p); !reflect.DeepEqual(got, wantKinds) {
		t.Fatalf("invocation kinds = %v, want %v", got, wantKinds)
	}

	// Per-temperature steps replicate in ascending temperature order.
	wantTemps := []float64{0, 0, 293.6, 600, 900, 293.6, 600, 900, 293.6, 600, 900}
	for i, inv := range p.Invocations {
		if inv.Temperature != wantTemps[i] {
			t.Errorf("invocation %d (%s) temperature = %g, want %g", i, inv.Kind, inv.Temperature, wantTemps[i])
		}
		if inv.Index != i {
			t.Errorf("invocation %d has Index %d", i, inv.Index)
		}
	}

	// Tape wiring: each step consumes its predecessor's output at the same
	// temperature, plus the staged source.
	wantIO := []struct {
		in  []int
		out []int
	}{
		{[]int{20}, []int{21}},         // reconr
		{[]int{20, 21}, []int{22}},     // purr
		{[]int{20, 22}, []int{23}},     // broadr 293.6
		{[]int{20, 22}, []int{24}},     // broadr 600
		{[]int{20, 22}, []int{25}},     // broadr 900
		{[]int{20, 23}, []int{26}},     // heatr 293.6
		{[]int{20, 24}, []int{27}},     // heatr 600
		{[]int{20, 25}, []int{28}},     // heatr 900
		{[]int{20, 26}, []int{29, 30}}, // acer 293.6
		{[]int{20, 27}, []int{31, 32}}, // acer 600
		{[]int{20, 28}, []int{33, 34}}, // acer 900
	}
	for i, inv := range p.Invocations {
		if !reflect.DeepEqual(inv.Inputs, wantIO[i].in) {
			t.Errorf("invocation %d (%s@%g) inputs = %v, want %v", i, inv.Kind, inv.Temperature, inv.Inputs, wantIO[i].in)
		}
		if !reflect.DeepEqual(inv.Outputs, wantIO[i].out) {
			t.Errorf("invocation %d (%s@%g) outputs = %v, want %v", i, inv.Kind, inv.Temperature, inv.Outputs, wantIO[i].out)
		}
	}

	if got := p.TerminalTapes(); !reflect.DeepEqual(got, []int{29, 30, 31, 32, 33, 34}) {
		t.Errorf("TerminalTapes() = %v", got)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestBuildWithoutResonanceData(t *testing.T) {
	t.Parallel()

	p, err := Build(fe56(), []float64{293.6}, OutputACE, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := []catalog.Kind{catalog.Reconr, catalog.Broadr, catalog.Heatr, catalog.Acer}
	if got := kinds(p); !reflect.DeepEqual(got, want) {
		t.Fatalf("invocation kinds = %v, want %v", got, want)
	}

	// Doppler broadening falls back to the pointwise tape.
	broadr := p.Invocations[1]
	if !reflect.DeepEqual(broadr.Inputs, []int{20, 21}) {
		t.Errorf("broadr inputs = %v, want [20 21]", broadr.Inputs)
	}
}

func TestBuildResonanceModes(t *testing.T) {
	t.Parallel()

	t.Run("forced on without data fails", func(t *testing.T) {
		t.Parallel()
		_, err := Build(fe56(), []float64{293.6}, OutputACE, Options{Resonance: ResonanceOn})
		if !errors.Is(err, ErrUnsatisfiable) {
			t.Fatalf("Build() error = %v, want ErrUnsatisfiable", err)
		}
	})

	t.Run("forced off skips treatment", func(t *testing.T) {
		t.Parallel()
		p, err := Build(u235(), []float64{293.6}, OutputACE, Options{Resonance: ResonanceOff})
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		for _, inv := range p.Invocations {
			if inv.Kind == catalog.Purr {
				t.Fatal("treatment step present despite ResonanceOff")
			}
		}
	})

	t.Run("forced on with data includes treatment", func(t *testing.T) {
		t.Parallel()
		p, err := Build(u235(), []float64{293.6}, OutputACE, Options{Resonance: ResonanceOn})
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		found := false
		for _, inv := range p.Invocations {
			if inv.Kind == catalog.Purr {
				found = true
			}
		}
		if !found {
			t.Fatal("treatment step missing despite ResonanceOn")
		}
	})
}

func TestBuildInvalidTemperatures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		temps []float64
	}{
		{"empty", nil},
		{"zero", []float64{0}},
		{"negative", []float64{-300}},
		{"descending", []float64{900, 600}},
		{"duplicate", []float64{600, 600}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Build(u235(), tt.temps, OutputACE, Options{}); !errors.Is(err, ErrInvalidTemperatures) {
				t.Fatalf("Build(%v) error = %v, want ErrInvalidTemperatures", tt.temps, err)
			}
		})
	}
}

func TestBuildPENDFOutput(t *testing.T) {
	t.Parallel()

	p, err := Build(u235(), []float64{293.6, 600}, OutputPENDF, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := []catalog.Kind{catalog.Reconr, catalog.Purr, catalog.Broadr, catalog.Broadr}
	if got := kinds(p); !reflect.DeepEqual(got, want) {
		t.Fatalf("invocation kinds = %v, want %v", got, want)
	}

	term := p.TerminalInvocations()
	if len(term) != 2 || term[0].Kind != catalog.Broadr {
		t.Fatalf("TerminalInvocations() = %v", term)
	}
	if got := p.TerminalTapes(); !reflect.DeepEqual(got, []int{23, 24}) {
		t.Errorf("TerminalTapes() = %v, want [23 24]", got)
	}
}

func TestBuildDeterministic(t *testing.T) {
	t.Parallel()

	temps := []float64{293.6, 600, 900}
	first, err := Build(u235(), temps, OutputACE, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		next, err := Build(u235(), temps, OutputACE, Options{})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first.Invocations, next.Invocations) {
			t.Fatalf("build %d produced different invocations", i)
		}
	}
}

func TestBuildOverrides(t *testing.T) {
	t.Parallel()

	opts := Options{Overrides: map[string]map[string]string{
		"broadr": {"errthn": "0.005"},
		"acer":   {"label": "custom label"},
	}}
	p, err := Build(u235(), []float64{293.6}, OutputACE, opts)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	for _, inv := range p.Invocations {
		switch inv.Kind {
		case catalog.Broadr:
			if inv.Params["errthn"] != "0.005" {
				t.Errorf("broadr errthn = %q, want override", inv.Params["errthn"])
			}
		case catalog.Acer:
			if inv.Params["label"] != "custom label" {
				t.Errorf("acer label = %q, want override", inv.Params["label"])
			}
		}
	}
}

func TestValidateCatchesTampering(t *testing.T) {
	t.Parallel()

	p, err := Build(u235(), []float64{293.6}, OutputACE, Options{})
	if err != nil {
		t.Fatal(err)
	}

	// Point an input at a tape nothing produced.
	p.Invocations[1].Inputs[1] = 77
	if err := p.Validate(); err == nil {
		t.Fatal("Validate() should reject a consumed tape with no producer")
	}
}
