package store

import (
	"fmt"
	"os"
	"strings"
)

// Replacement is one token substitution applied per line of an acer
// directory entry.
type Replacement struct {
	Old string
	New string
}

// RewriteEntry fixes up the placeholder fields NJOY leaves in an acer
// directory entry (tape content): the ace file name stands in as
// "filename", the access route as "route", and metastable nuclides carry
// the ground-state ZAID. Substitution is applied line by line, first
// matching replacement per token.
func RewriteEntry(raw string, reps []Replacement) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		for _, r := range reps {
			if strings.Contains(line, r.Old) {
				line = strings.ReplaceAll(line, r.Old, r.New)
			}
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// WriteIndex writes the merged xsdir index: a datapath header line followed
// by every entry in the order given. Entries are produced per run in
// ascending temperature order, so the index is deterministic for a
// deterministic batch.
func WriteIndex(path, datapath string, entries []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "datapath=%s\n", datapath)
	for _, e := range entries {
		b.WriteString(strings.TrimRight(e, "\n"))
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing xsdir index: %w", err)
	}
	return nil
}
