// Package endf models ENDF-6 evaluation metadata at the level the deck
// generator needs: nuclide identity, MAT number, and resonance-data presence.
// It deliberately does not interpret any physics content beyond the header.
package endf

import "fmt"

// Nuclide identifies an isotope by atomic number, mass number, and
// metastable state. A mass number of zero marks a natural element.
type Nuclide struct {
	Z          int
	A          int
	Metastable bool
}

// Symbol returns the element symbol for the nuclide, or empty string
// when Z is outside the periodic table.
func (n Nuclide) Symbol() string {
	if n.Z < 1 || n.Z > len(symbols) {
		return ""
	}
	return symbols[n.Z-1]
}

// Name returns the conventional isotope name, e.g. "U-235" or "Am-242m".
func (n Nuclide) Name() string {
	name := fmt.Sprintf("%s-%d", n.Symbol(), n.A)
	if n.Metastable {
		name += "m"
	}
	return name
}

// ZA returns the 1000*Z+A identifier used throughout ENDF-6.
func (n Nuclide) ZA() int {
	return n.Z*1000 + n.A
}

// ZAID returns the ACE library identifier. Metastable states are offset
// by a mass-dependent multiple of 100 so they cannot collide with a real
// ground-state isotope, following the MCNP convention.
func (n Nuclide) ZAID() int {
	return n.ZA() + 100*n.isomerOffset()
}

func (n Nuclide) isomerOffset() int {
	if !n.Metastable {
		return 0
	}
	switch {
	case n.A > 200:
		return 1
	case n.A > 100:
		return 2
	default:
		return 3
	}
}

// Evaluation is one ENDF-6 evaluation selected for processing. It is
// immutable once read from disk.
type Evaluation struct {
	Nuclide Nuclide
	Library string // e.g. "ENDF-B/VIII.0"
	Path    string // source ENDF-6 file
	MAT     int    // material number from the MF1/MT451 header
	Natural bool   // natural-abundance element (A == 0 in the header)

	// HasResonance reports whether the header declares resonance
	// parameters (LRP >= 1), which gates self-shielding treatment.
	HasResonance bool
}

// symbols lists element symbols indexed by Z-1.
var symbols = []string{
	"H", "He", "Li", "Be", "B", "C", "N", "O", "F", "Ne", "Na", "Mg",
	"Al", "Si", "P", "S", "Cl", "Ar", "K", "Ca", "Sc", "Ti", "V", "Cr",
	"Mn", "Fe", "Co", "Ni", "Cu", "Zn", "Ga", "Ge", "As", "Se", "Br",
	"Kr", "Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd",
	"Ag", "Cd", "In", "Sn", "Sb", "Te", "I", "Xe", "Cs", "Ba", "La",
	"Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er",
	"Tm", "Yb", "Lu", "Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au",
	"Hg", "Tl", "Pb", "Bi", "Po", "At", "Rn", "Fr", "Ra", "Ac", "Th",
	"Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf", "Es", "Fm", "Md",
	"No", "Lr", "Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds", "Rg", "Cn",
	"Nh", "Fl", "Mc", "Lv", "Ts", "Og",
}

// AtomicNumber returns the Z for an element symbol, or 0 if unknown.
func AtomicNumber(symbol string) int {
	for i, s := range symbols {
		if s == symbol {
			return i + 1
		}
	}
	return 0
}
