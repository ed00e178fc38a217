package deck

import (
	"errors"
	"strings"
	"testing"

	"github.com/mkastelik/pulsar/internal/catalog"
	"github.com/mkastelik/pulsar/internal/endf"
	"github.com/mkastelik/pulsar/internal/pipeline"
)

func u235() endf.Evaluation {
	return endf.Evaluation{
		Nuclide:      endf.Nuclide{Z: 92, A: 235},
		Library:      "ENDF-B/VIII.0",
		MAT:          9228,
		HasResonance: true,
	}
}

func TestRenderGolden(t *testing.T) {
	t.Parallel()

	p, err := pipeline.Build(u235(), []float64{293.6}, pipeline.OutputACE, pipeline.Options{})
	if err != nil {
		t.Fatal(err)
	}

	got, err := Render(p)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	want := `reconr
20 21/
'U-235 PENDF'/
9228 2/
0.001 0.0 0.01 5.0e-7/
''/
''/
0/
purr
20 21 22/
9228 1 1 20 64/
 2.93600e+02/
1.0e10/
0/
broadr
20 22 23/
9228 1/
0.001 2.0e6 0.01 5.0e-7/
 2.93600e+02/
0/
heatr
20 23 24/
9228 7 0 0 1 2/
302 303 304 318 401 443 444/
acer
20 24 0 25 26/
1 1 1 .02/
'U-235, ENDF-B/VIII.0, pulsar'/
9228  2.93600e+02/
1 1/
/
stop
`
	if got != want {
		t.Errorf("rendered deck mismatch:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestRenderDeterministic(t *testing.T) {
	t.Parallel()

	render := func() string {
		p, err := pipeline.Build(u235(), []float64{293.6, 600, 900}, pipeline.OutputACE, pipeline.Options{})
		if err != nil {
			t.Fatal(err)
		}
		text, err := Render(p)
		if err != nil {
			t.Fatal(err)
		}
		return text
	}

	first := render()
	for i := 0; i < 10; i++ {
		if next := render(); next != first {
			t.Fatalf("render %d produced different text", i)
		}
	}
	if !strings.HasSuffix(first, "stop\n") {
		t.Error("deck does not end with the stop card")
	}
	if n := strings.Count(first, "acer\n"); n != 3 {
		t.Errorf("deck holds %d acer blocks, want 3", n)
	}
}

func TestRenderMissingParameter(t *testing.T) {
	t.Parallel()

	p, err := pipeline.Build(u235(), []float64{293.6}, pipeline.OutputACE, pipeline.Options{})
	if err != nil {
		t.Fatal(err)
	}
	delete(p.Invocations[0].Params, "label")

	if _, err := Render(p); !errors.Is(err, ErrUnrenderable) {
		t.Fatalf("Render() error = %v, want ErrUnrenderable", err)
	}
}

func TestRenderUnknownKind(t *testing.T) {
	t.Parallel()

	p, err := pipeline.Build(u235(), []float64{293.6}, pipeline.OutputACE, pipeline.Options{})
	if err != nil {
		t.Fatal(err)
	}
	p.Invocations[0].Kind = catalog.Kind("thermr")

	if _, err := Render(p); !errors.Is(err, ErrUnrenderable) {
		t.Fatalf("Render() error = %v, want ErrUnrenderable", err)
	}
}
