package endf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// card assembles one fixed-width 80-column ENDF-6 record: six 11-character
// data fields, MAT in columns 67-70, MF/MT in 71-75, sequence number after.
func card(t *testing.T, fields [6]string, mat int, mfmt string, seq int) string {
	t.Helper()
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%11s", f)
	}
	fmt.Fprintf(&b, "%4d%s%5d", mat, mfmt, seq)
	line := b.String()
	if len(line) != 80 {
		t.Fatalf("card is %d columns, want 80: %q", len(line), line)
	}
	return line
}

func writeEvaluation(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eval.endf")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		head1 [6]string
		head2 [6]string
		mat   int
		want  Evaluation
	}{
		{
			name:  "uranium 235 with resonance data",
			head1: [6]string{"9.223500+4", "2.330248+2", "1", "1", "0", "1"},
			head2: [6]string{"0.000000+0", "0.000000+0", "0", "0", "0", "6"},
			mat:   9228,
			want: Evaluation{
				Nuclide:      Nuclide{Z: 92, A: 235},
				MAT:          9228,
				HasResonance: true,
			},
		},
		{
			name:  "americium 242m isomer",
			head1: [6]string{"9.524200+4", "2.399679+2", "1", "1", "0", "1"},
			head2: [6]string{"4.860000+4", "0.000000+0", "2", "1", "0", "6"},
			mat:   9547,
			want: Evaluation{
				Nuclide:      Nuclide{Z: 95, A: 242, Metastable: true},
				MAT:          9547,
				HasResonance: true,
			},
		},
		{
			name:  "no resonance parameters",
			head1: [6]string{"1.000100+3", "9.991673-1", "0", "0", "0", "1"},
			head2: [6]string{"0.000000+0", "0.000000+0", "0", "0", "0", "6"},
			mat:   125,
			want: Evaluation{
				Nuclide: Nuclide{Z: 1, A: 1},
				MAT:     125,
			},
		},
		{
			name:  "natural element",
			head1: [6]string{"6.000000+3", "1.189650+1", "1", "0", "0", "1"},
			head2: [6]string{"0.000000+0", "0.000000+0", "0", "0", "0", "6"},
			mat:   600,
			want: Evaluation{
				Nuclide:      Nuclide{Z: 6, A: 0},
				MAT:          600,
				Natural:      true,
				HasResonance: true,
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeEvaluation(t,
				"some leading tape label line that is ignored",
				card(t, tt.head1, tt.mat, " 1451", 1),
				card(t, tt.head2, tt.mat, " 1451", 2),
			)

			got, err := ReadMetadata(path, "TEST-LIB")
			if err != nil {
				t.Fatalf("ReadMetadata() error: %v", err)
			}

			if got.Nuclide != tt.want.Nuclide {
				t.Errorf("Nuclide = %+v, want %+v", got.Nuclide, tt.want.Nuclide)
			}
			if got.MAT != tt.want.MAT {
				t.Errorf("MAT = %d, want %d", got.MAT, tt.want.MAT)
			}
			if got.Natural != tt.want.Natural {
				t.Errorf("Natural = %v, want %v", got.Natural, tt.want.Natural)
			}
			if got.HasResonance != tt.want.HasResonance {
				t.Errorf("HasResonance = %v, want %v", got.HasResonance, tt.want.HasResonance)
			}
			if got.Library != "TEST-LIB" {
				t.Errorf("Library = %q, want %q", got.Library, "TEST-LIB")
			}
			if got.Path != path {
				t.Errorf("Path = %q, want %q", got.Path, path)
			}
		})
	}
}

func TestReadMetadataNoHeader(t *testing.T) {
	t.Parallel()

	path := writeEvaluation(t, "nothing resembling a header here")
	if _, err := ReadMetadata(path, "TEST-LIB"); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("ReadMetadata() error = %v, want ErrNoHeader", err)
	}
}

func TestReadMetadataExcitedNonIsomer(t *testing.T) {
	t.Parallel()

	// Positive excitation energy with LISO=0 is a corrupt header.
	path := writeEvaluation(t,
		card(t, [6]string{"9.524200+4", "2.399679+2", "1", "1", "0", "1"}, 9547, " 1451", 1),
		card(t, [6]string{"4.860000+4", "0.000000+0", "2", "0", "0", "6"}, 9547, " 1451", 2),
	)
	if _, err := ReadMetadata(path, "TEST-LIB"); err == nil {
		t.Fatal("ReadMetadata() should reject excitation energy without isomeric state")
	}
}

func TestReadMetadataMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := ReadMetadata(filepath.Join(t.TempDir(), "absent"), "TEST-LIB"); err == nil {
		t.Fatal("ReadMetadata() should fail for a missing file")
	}
}

func TestParseField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{"9.223500+4", 92235.0},
		{" 2.330248+2", 233.0248},
		{"5.000000-1", 0.5},
		{"1.0e3", 1000.0},
		{"0", 0},
	}

	for _, tt := range tests {
		got, err := parseField(tt.in)
		if err != nil {
			t.Errorf("parseField(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseField(%q) = %g, want %g", tt.in, got, tt.want)
		}
	}

	if _, err := parseField("   "); err == nil {
		t.Error("parseField of blank field should fail")
	}
}
