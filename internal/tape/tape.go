// Package tape tracks the numbered file handles NJOY uses to pass data
// between processing modules. Each pipeline owns its own Registry, so tape
// numbers can never collide across concurrently running pipelines.
package tape

import (
	"errors"
	"fmt"
	"sort"
)

// NJOY accepts logical unit numbers 20 through 99. Unit 20 is reserved for
// the source ENDF-6 file, matching the staging convention of the driver.
const (
	SourceUnit = 20
	MaxUnit    = 99
)

// ErrTapeRange is returned when a pipeline needs more tapes than NJOY can
// address.
var ErrTapeRange = errors.New("tape number outside representable range")

// ErrUnboundTape is returned when a consumer references a tape number that
// was never produced.
var ErrUnboundTape = errors.New("tape was never produced")

// Role describes what an intermediate tape carries.
type Role string

const (
	RoleSourceENDF Role = "source-endf"
	RolePointwise  Role = "pointwise-xs"
	RoleShielded   Role = "self-shielded-xs"
	RoleBroadened  Role = "broadened-xs"
	RoleHeated     Role = "heated-xs"
	RoleACE        Role = "ace-output"
	RoleXSDir      Role = "xsdir-entry"
	RoleGas        Role = "gas-production-xs"
	RolePlot       Role = "plot-commands"
	RolePostScript Role = "plot-postscript"
)

// Tape is one logical numbered artifact slot.
type Tape struct {
	Number   int
	Role     Role
	Producer int // invocation sequence index; SourceProducer for the staged input
	// Consumers lists the sequence indices of invocations reading this tape,
	// in bind order.
	Consumers []int
}

// SourceProducer marks a tape staged into the working directory before the
// pipeline runs, rather than produced by an invocation.
const SourceProducer = -1

// Registry allocates unique tape numbers for one pipeline and records
// producer/consumer links. It is plain in-memory bookkeeping with no
// synchronization; a registry is never shared between pipelines.
type Registry struct {
	next  int
	tapes map[int]*Tape
}

// NewRegistry returns a registry with the source ENDF tape pre-allocated
// on unit 20.
func NewRegistry() *Registry {
	r := &Registry{
		next:  SourceUnit,
		tapes: make(map[int]*Tape),
	}
	// Seeding the source tape keeps the invariant that every consumed
	// tape has a recorded producer.
	r.tapes[SourceUnit] = &Tape{Number: SourceUnit, Role: RoleSourceENDF, Producer: SourceProducer}
	r.next++
	return r
}

// Allocate returns a fresh tape number tagged with role, produced by the
// invocation at the given sequence index.
func (r *Registry) Allocate(role Role, producer int) (int, error) {
	if r.next > MaxUnit {
		return 0, fmt.Errorf("%w: unit %d exceeds %d (role %s)", ErrTapeRange, r.next, MaxUnit, role)
	}
	n := r.next
	r.next++
	r.tapes[n] = &Tape{Number: n, Role: role, Producer: producer}
	return n, nil
}

// Bind records that the invocation at sequence index consumer reads the
// given tape.
func (r *Registry) Bind(number, consumer int) error {
	t, ok := r.tapes[number]
	if !ok {
		return fmt.Errorf("%w: tape %d", ErrUnboundTape, number)
	}
	t.Consumers = append(t.Consumers, consumer)
	return nil
}

// Lookup returns the tape record for a number.
func (r *Registry) Lookup(number int) (Tape, bool) {
	t, ok := r.tapes[number]
	if !ok {
		return Tape{}, false
	}
	return *t, true
}

// Tapes returns all allocated tapes in ascending unit order.
func (r *Registry) Tapes() []Tape {
	out := make([]Tape, 0, len(r.tapes))
	for _, t := range r.tapes {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Len returns the number of allocated tapes, the source tape included.
func (r *Registry) Len() int {
	return len(r.tapes)
}
