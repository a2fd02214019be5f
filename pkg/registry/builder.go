package registry

import (
	"context"
	"errors"
	"fmt"
)

type source struct {
	label    string
	machines func() []namedMachine
}

// Builder aggregates machines from ordered sources into a Registry.
type Builder struct {
	sources []source
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddFromDiscovery adds the globally registered machines (see Register).
func (b *Builder) AddFromDiscovery() *Builder {
	b.sources = append(b.sources, source{label: "discovery", machines: discoverySnapshot})
	return b
}

// AddLocalMachines adds a local machine set. The set is read at Build time.
func (b *Builder) AddLocalMachines(set *MachineSet) *Builder {
	label := set.label()
	b.sources = append(b.sources, source{
		label: label,
		machines: func() []namedMachine {
			ms := set.snapshot()
			out := make([]namedMachine, len(ms))
			for i, m := range ms {
				out[i] = namedMachine{name: fmt.Sprintf("%s[%d]", label, i), machine: m}
			}
			return out
		},
	})
	return b
}

// AddMachine adds a single machine as its own source.
func (b *Builder) AddMachine(name string, m Machine) *Builder {
	b.sources = append(b.sources, source{
		label: name,
		machines: func() []namedMachine {
			return []namedMachine{{name: name, machine: m}}
		},
	})
	return b
}

// Build invokes every machine in source order and merges their components.
//
// Merge policy is union: a component whose name was already provided replaces
// the earlier value but keeps the earlier position, so iteration order is the
// order in which names first appeared.
func (b *Builder) Build(ctx context.Context) (*Registry, error) {
	r := &Registry{index: make(map[string]int)}

	for _, src := range b.sources {
		for _, nm := range src.machines() {
			if err := ctx.Err(); err != nil {
				return nil, &BuildError{Source: nm.name, Err: err}
			}

			components, err := nm.machine.Components(ctx)
			if err != nil {
				return nil, &BuildError{Source: nm.name, Err: err}
			}
			r.machines++

			for _, c := range components {
				if c.Name == "" {
					return nil, &BuildError{Source: nm.name, Err: errors.New("component without name")}
				}
				if idx, exists := r.index[c.Name]; exists {
					r.components[idx] = c
					continue
				}
				r.index[c.Name] = len(r.components)
				r.components = append(r.components, c)
			}
		}
	}

	return r, nil
}
