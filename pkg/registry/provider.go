package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// LoadMode selects when registries are built.
type LoadMode string

const (
	// LoadOnStartup builds once and shares the result across all requests.
	LoadOnStartup LoadMode = "onstartup"
	// LoadOnRequest builds a fresh result for every request.
	LoadOnRequest LoadMode = "onrequest"
)

// ParseLoadMode validates a configured load mode. The empty string selects LoadOnStartup.
func ParseLoadMode(s string) (LoadMode, error) {
	switch LoadMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", LoadOnStartup:
		return LoadOnStartup, nil
	case LoadOnRequest:
		return LoadOnRequest, nil
	default:
		return "", fmt.Errorf("unknown load mode %q (expected %q or %q)", s, LoadOnStartup, LoadOnRequest)
	}
}

// BuildFunc produces the value a Provider hands out.
// contextName scopes local machines; it is empty for startup builds.
type BuildFunc[T any] func(ctx context.Context, contextName string) (T, error)

// Provider hands out built values under a lifecycle policy.
type Provider[T any] interface {
	Get(ctx context.Context, contextName string) (T, error)
	Mode() LoadMode
}

// NewProvider returns the strategy matching mode.
func NewProvider[T any](mode LoadMode, build BuildFunc[T]) (Provider[T], error) {
	switch mode {
	case LoadOnStartup:
		return OnStartup(build), nil
	case LoadOnRequest:
		return OnRequest(build), nil
	default:
		return nil, fmt.Errorf("unknown load mode %q", mode)
	}
}

type startupProvider[T any] struct {
	build BuildFunc[T]

	mu    sync.Mutex // serializes the first build
	value atomic.Pointer[T]
}

// OnStartup returns a Provider that builds at most once successfully and then
// serves the same value to every caller without locking.
// A failed build publishes nothing; the next Get retries.
func OnStartup[T any](build BuildFunc[T]) Provider[T] {
	return &startupProvider[T]{build: build}
}

func (p *startupProvider[T]) Get(ctx context.Context, _ string) (T, error) {
	if v := p.value.Load(); v != nil {
		return *v, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if v := p.value.Load(); v != nil {
		return *v, nil
	}

	v, err := p.build(ctx, "")
	if err != nil {
		var zero T
		return zero, err
	}
	p.value.Store(&v)
	return v, nil
}

func (p *startupProvider[T]) Mode() LoadMode {
	return LoadOnStartup
}

type requestProvider[T any] struct {
	build BuildFunc[T]
}

// OnRequest returns a Provider that builds a fresh value on every call.
// Nothing is shared between calls.
func OnRequest[T any](build BuildFunc[T]) Provider[T] {
	return &requestProvider[T]{build: build}
}

func (p *requestProvider[T]) Get(ctx context.Context, contextName string) (T, error) {
	return p.build(ctx, contextName)
}

func (p *requestProvider[T]) Mode() LoadMode {
	return LoadOnRequest
}
