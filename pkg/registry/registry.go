package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// Component is a resolved framework component stored under a unique name.
type Component struct {
	Name  string
	Value any
}

// Machine produces components for a registry build.
// Machines are invoked once per build, in registration order.
type Machine interface {
	Components(ctx context.Context) ([]Component, error)
}

// MachineFunc adapts a function to the Machine interface.
type MachineFunc func(ctx context.Context) ([]Component, error)

// Components calls f.
func (f MachineFunc) Components(ctx context.Context) ([]Component, error) {
	return f(ctx)
}

// Singleton returns a Machine that always provides the same value under name.
func Singleton(name string, value any) Machine {
	return MachineFunc(func(ctx context.Context) ([]Component, error) {
		return []Component{{Name: name, Value: value}}, nil
	})
}

// NamedComponent pairs a typed component with the name it was registered under.
type NamedComponent[T any] struct {
	Name      string
	Component T
}

// Registry is the resolved, immutable set of components of one build.
// Lookups never mutate it, so it is safe for concurrent reads.
type Registry struct {
	components []Component
	index      map[string]int
	machines   int
}

// Components returns every component assignable to T, in registration order.
// It never fails: the result is empty when nothing matches.
func Components[T any](r *Registry) []T {
	out := make([]T, 0)
	for _, c := range r.components {
		if v, ok := c.Value.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// Lookup returns the component registered under name if it is assignable to T.
func Lookup[T any](r *Registry, name string) (NamedComponent[T], bool) {
	idx, ok := r.index[name]
	if !ok {
		return NamedComponent[T]{}, false
	}
	v, ok := r.components[idx].Value.(T)
	if !ok {
		return NamedComponent[T]{}, false
	}
	return NamedComponent[T]{Name: name, Component: v}, true
}

// MustLookup is Lookup for callers that do not tolerate absence.
// It returns a *NotFoundError when no component of type T is registered under name.
func MustLookup[T any](r *Registry, name string) (NamedComponent[T], error) {
	nc, ok := Lookup[T](r, name)
	if !ok {
		return nc, &NotFoundError{Name: name, Type: reflect.TypeFor[T]().String()}
	}
	return nc, nil
}

// ComponentCount returns the number of resolved components.
func (r *Registry) ComponentCount() int {
	return len(r.components)
}

// MachineCount returns the number of machines that contributed to the build.
func (r *Registry) MachineCount() int {
	return r.machines
}

// Names returns component names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.components))
	for i, c := range r.components {
		names[i] = c.Name
	}
	return names
}

func (r *Registry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Registry{machines=%d, components=%d}", r.machines, len(r.components))
	for _, c := range r.components {
		fmt.Fprintf(&b, "\n  %s: %T", c.Name, c.Value)
	}
	return b.String()
}
