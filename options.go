package restx

import (
	"log/slog"

	"github.com/aretw0/restx/pkg/metrics"
	"github.com/aretw0/restx/pkg/registry"
	"github.com/aretw0/restx/pkg/signature"
)

// Option configures a MainRouter.
type Option func(*MainRouter)

// WithLoadMode selects when the component registry is built.
func WithLoadMode(mode registry.LoadMode) Option {
	return func(mr *MainRouter) {
		mr.mode = mode
	}
}

// WithBaseURI sets the public base URI advertised by the startup banner.
func WithBaseURI(uri string) Option {
	return func(mr *MainRouter) {
		mr.baseURI = uri
	}
}

// WithLogger sets a custom structured logger for the router.
func WithLogger(logger *slog.Logger) Option {
	return func(mr *MainRouter) {
		mr.logger = logger
	}
}

// WithMetrics records dispatch and build metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mr *MainRouter) {
		mr.metrics = m
	}
}

// WithMachine adds a machine to every registry build, after the discovered ones.
func WithMachine(name string, m registry.Machine) Option {
	return func(mr *MainRouter) {
		mr.machines = append(mr.machines, optionMachine{name: name, machine: m})
	}
}

// WithLocalMachines adds a local machine set to every registry build.
// Sets are read at build time, so machines added later are picked up by the
// next build.
func WithLocalMachines(set *registry.MachineSet) Option {
	return func(mr *MainRouter) {
		mr.locals = append(mr.locals, set)
	}
}

// WithSignatureKey provides the key used to sign session cookies.
func WithSignatureKey(key signature.Key) Option {
	return WithMachine(SignatureKeyComponent, registry.Singleton(SignatureKeyComponent, key))
}

// WithMaxBufferedBody caps the request bytes kept in memory to echo parse
// errors. Larger bodies are streamed and their parse errors report the message
// only. Zero or less disables buffering.
func WithMaxBufferedBody(n int64) Option {
	return func(mr *MainRouter) {
		mr.maxBody = n
	}
}

// WithContextName sets the context name ServeHTTP routes under. In onrequest
// mode it selects registry.LocalMachines(name) for every request; left empty,
// each request gets a fresh unique name.
func WithContextName(name string) Option {
	return func(mr *MainRouter) {
		mr.contextName = name
	}
}
