// Package library orchestrates processing of a whole nuclear data library:
// it loads the library manifest, builds and renders one pipeline per
// evaluation, and drives NJOY runs through a bounded worker pool, each run
// in its own scratch directory.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/mkastelik/pulsar/internal/endf"
)

// ManifestName is the library manifest file read from the library directory.
const ManifestName = "pulsar.toml"

// ErrNoManifest is returned when the library directory has no pulsar.toml.
var ErrNoManifest = errors.New("no pulsar.toml manifest found")

// ErrEmptyLibrary is returned when no evaluations are listed or discovered.
var ErrEmptyLibrary = errors.New("library contains no evaluations")

// Manifest is the parsed pulsar.toml.
type Manifest struct {
	// Name is the complete library name, e.g. "ENDF-B/VIII.0".
	Name string `toml:"name"`
	// Data is the sub-directory holding the ENDF-6 files.
	Data string `toml:"data"`
	// Extension filters files when evaluations are discovered by scan.
	Extension string `toml:"extension"`
	// Evaluations optionally pins the exact files to process; when empty
	// the data directory is scanned for Extension matches.
	Evaluations []EvaluationRef `toml:"evaluation"`
}

// EvaluationRef names one ENDF-6 file within the data directory.
type EvaluationRef struct {
	File string `toml:"file"`
}

// Library is a loaded manifest plus the metadata of every evaluation.
type Library struct {
	Dir         string
	Manifest    Manifest
	Evaluations []endf.Evaluation
}

// Load reads the manifest in dir and the header metadata of every
// evaluation it names (or discovers). Evaluations are returned sorted by
// file name so batch ordering is stable.
func Load(dir string) (*Library, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w in %s", ErrNoManifest, dir)
		}
		return nil, fmt.Errorf("reading %s: %w", ManifestName, err)
	}

	var manifest Manifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ManifestName, err)
	}

	dataDir := filepath.Join(dir, manifest.Data)
	files := make([]string, 0, len(manifest.Evaluations))
	for _, ref := range manifest.Evaluations {
		files = append(files, ref.File)
	}
	if len(files) == 0 {
		files, err = scan(dataDir, manifest.Extension)
		if err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyLibrary, dataDir)
	}
	sort.Strings(files)

	evs := make([]endf.Evaluation, 0, len(files))
	for _, f := range files {
		ev, err := endf.ReadMetadata(filepath.Join(dataDir, f), manifest.Name)
		if err != nil {
			return nil, fmt.Errorf("evaluation %s: %w", f, err)
		}
		evs = append(evs, ev)
	}

	return &Library{Dir: dir, Manifest: manifest, Evaluations: evs}, nil
}

func scan(dataDir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext != "" && !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}
