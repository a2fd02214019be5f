package registry

import "context"

type registryKey struct{}

// NewContext returns a copy of ctx carrying r.
func NewContext(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// FromContext returns the registry resolved for the current request, if any.
func FromContext(ctx context.Context) (*Registry, bool) {
	r, ok := ctx.Value(registryKey{}).(*Registry)
	return r, ok && r != nil
}
