package params

import (
	"errors"
	"testing"

	"github.com/mkastelik/pulsar/internal/catalog"
	"github.com/mkastelik/pulsar/internal/endf"
)

func request(temp float64) catalog.Request {
	return catalog.Request{
		Evaluation: endf.Evaluation{
			Nuclide: endf.Nuclide{Z: 92, A: 235},
			Library: "ENDF-B/VIII.0",
			MAT:     9228,
		},
		Temperatures: []float64{293.6},
		Temperature:  temp,
	}
}

func TestResolveDefaults(t *testing.T) {
	t.Parallel()

	d, err := catalog.Lookup(catalog.Reconr)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Resolve(d, request(0), nil)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	want := map[string]string{
		"label":  "U-235 PENDF",
		"err":    "0.001",
		"tempr":  "0.0",
		"errmax": "0.01",
		"errint": "5.0e-7",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("param %s = %q, want %q", k, got[k], v)
		}
	}
	if len(got) != len(want) {
		t.Errorf("resolved %d params, want %d: %v", len(got), len(want), got)
	}
}

func TestResolveOverrideWins(t *testing.T) {
	t.Parallel()

	d, err := catalog.Lookup(catalog.Reconr)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Resolve(d, request(0), map[string]string{"err": "0.005"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got["err"] != "0.005" {
		t.Errorf("overridden err = %q, want %q", got["err"], "0.005")
	}
	if got["errmax"] != "0.01" {
		t.Errorf("non-overridden errmax = %q, want default", got["errmax"])
	}
}

func TestResolveMissing(t *testing.T) {
	t.Parallel()

	d, err := catalog.Lookup(catalog.Broadr)
	if err != nil {
		t.Fatal(err)
	}

	// A per-temperature module resolved without an invocation temperature
	// cannot derive its temp parameter.
	if _, err := Resolve(d, request(0), nil); !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("Resolve() error = %v, want ErrMissingParameter", err)
	}

	// An override satisfies it.
	got, err := Resolve(d, request(0), map[string]string{"temp": "293.6"})
	if err != nil {
		t.Fatalf("Resolve() with override error: %v", err)
	}
	if got["temp"] != "293.6" {
		t.Errorf("temp = %q, want override value", got["temp"])
	}
}
