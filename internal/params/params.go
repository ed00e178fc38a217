// Package params resolves module parameters from caller overrides and
// evaluation-derived defaults. Resolution is a pure function: identical
// inputs always yield an identical mapping, which is what makes repeated
// builds of the same request render byte-identical decks.
package params

import (
	"errors"
	"fmt"

	"github.com/mkastelik/pulsar/internal/catalog"
)

// ErrMissingParameter is returned when a declared parameter has neither an
// override nor a derivable default. The wrapped message names the module
// and the parameter.
var ErrMissingParameter = errors.New("missing parameter")

// Resolve computes the full parameter mapping for one module invocation.
// For each parameter the descriptor declares, a caller override wins;
// otherwise the default is derived from the request metadata.
func Resolve(d catalog.Descriptor, req catalog.Request, overrides map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(d.Params))
	for _, p := range d.Params {
		if v, ok := overrides[p.Name]; ok {
			out[p.Name] = v
			continue
		}
		if p.Default != nil {
			if v, ok := p.Default(req); ok {
				out[p.Name] = v
				continue
			}
		}
		return nil, fmt.Errorf("%w: %s.%s", ErrMissingParameter, d.Kind, p.Name)
	}
	return out, nil
}
