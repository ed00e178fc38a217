package endf

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrNoHeader is returned when a file contains no MF1/MT451 header record.
var ErrNoHeader = errors.New("no MF1/MT451 header record found")

// ReadMetadata scans the MF1/MT451 header of an ENDF-6 file and returns the
// evaluation metadata. Only the first two header cards are interpreted; the
// rest of the file is never read.
//
// Card layout (fixed 80-column records): six 11-character data fields,
// then MAT in columns 67-70 and MF/MT in columns 71-75.
func ReadMetadata(path, library string) (Evaluation, error) {
	f, err := os.Open(path)
	if err != nil {
		return Evaluation{}, fmt.Errorf("opening evaluation: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var (
		ev    Evaluation
		found bool
	)
	for sc.Scan() {
		line := sc.Text()
		if len(line) < 75 {
			continue
		}
		if !found {
			if line[71:75] != "1451" {
				continue
			}
			found = true

			mat, err := strconv.Atoi(strings.TrimSpace(line[66:70]))
			if err != nil {
				return Evaluation{}, fmt.Errorf("parsing MAT from %q: %w", line[66:70], err)
			}
			za, err := parseField(line[0:11])
			if err != nil {
				return Evaluation{}, fmt.Errorf("parsing ZA: %w", err)
			}
			lrp, err := parseField(line[22:33])
			if err != nil {
				return Evaluation{}, fmt.Errorf("parsing LRP: %w", err)
			}

			z := int(za) / 1000
			a := int(za) % 1000
			ev = Evaluation{
				Nuclide:      Nuclide{Z: z, A: a},
				Library:      library,
				Path:         path,
				MAT:          mat,
				Natural:      a == 0,
				HasResonance: int(lrp) >= 1,
			}
			continue
		}

		// Second header card: excitation energy and isomeric state.
		fields := strings.Fields(line[:66])
		if len(fields) < 4 {
			return Evaluation{}, fmt.Errorf("malformed second header card in %s", path)
		}
		elis, err := parseField(fields[0])
		if err != nil {
			return Evaluation{}, fmt.Errorf("parsing excitation energy: %w", err)
		}
		liso, err := parseField(fields[3])
		if err != nil {
			return Evaluation{}, fmt.Errorf("parsing isomeric state: %w", err)
		}
		if elis > 0 && liso == 0 {
			return Evaluation{}, fmt.Errorf("excitation energy > 0 for non-isomeric state in %s", path)
		}
		ev.Nuclide.Metastable = liso > 0
		return ev, nil
	}
	if err := sc.Err(); err != nil {
		return Evaluation{}, fmt.Errorf("reading evaluation: %w", err)
	}
	if found {
		return ev, nil
	}
	return Evaluation{}, fmt.Errorf("%w: %s", ErrNoHeader, path)
}

// parseField parses an ENDF-6 numeric field. The format writes exponents
// without the 'E' marker ("9.223500+4"), which strconv cannot digest
// directly.
func parseField(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty field")
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	// Reinsert the exponent marker before a sign in the mantissa tail.
	for i := 1; i < len(s); i++ {
		if (s[i] == '+' || s[i] == '-') && s[i-1] != 'e' && s[i-1] != 'E' {
			return strconv.ParseFloat(s[:i]+"e"+s[i:], 64)
		}
	}
	return strconv.ParseFloat(s, 64)
}
