package restx

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/restx/internal/logging"
	"github.com/aretw0/restx/internal/tpl"
	"github.com/aretw0/restx/pkg/diagnostic"
	"github.com/aretw0/restx/pkg/domain"
	"github.com/aretw0/restx/pkg/metrics"
	"github.com/aretw0/restx/pkg/registry"
	"github.com/aretw0/restx/pkg/router"
	"github.com/aretw0/restx/pkg/session"
	"github.com/aretw0/restx/pkg/signature"
	"github.com/google/uuid"
)

//go:embed templates/*.tpl
var templates embed.FS

var bannerTpl = tpl.MustLoad(templates, "templates/banner")

// DefaultMaxBufferedBody is the request size kept in memory to echo parse errors.
const DefaultMaxBufferedBody = 1 << 20

const unmatchedRoute = "unmatched"

// MainRouter is the entry point of every request. It resolves the component
// registry, reconstructs the signed session, dispatches to the first matching
// route and writes the session back when the route replaced it.
type MainRouter struct {
	mode     registry.LoadMode
	baseURI  string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	machines []optionMachine
	locals   []*registry.MachineSet
	maxBody  int64

	contextName string

	provider   registry.Provider[*assembly]
	translator *diagnostic.Translator
}

type optionMachine struct {
	name    string
	machine registry.Machine
}

// assembly is everything a request needs from one registry build.
type assembly struct {
	registry *registry.Registry
	router   *router.Router
	codec    *session.Codec
}

// New creates a MainRouter. The registry is not built until Init or the first request.
func New(opts ...Option) (*MainRouter, error) {
	mr := &MainRouter{
		mode:    registry.LoadOnStartup,
		maxBody: DefaultMaxBufferedBody,
	}
	for _, opt := range opts {
		opt(mr)
	}
	if mr.logger == nil {
		mr.logger = logging.NewNop()
	}

	provider, err := registry.NewProvider[*assembly](mr.mode, mr.build)
	if err != nil {
		return nil, err
	}
	mr.provider = provider
	mr.translator = diagnostic.NewTranslator(mr.logger)
	return mr, nil
}

// Mode returns the registry load mode.
func (mr *MainRouter) Mode() registry.LoadMode {
	return mr.mode
}

// Init builds the registry eagerly in onstartup mode. Readiness is announced
// by the first startup build, whether Init or a request triggers it.
// It is a no-op in onrequest mode.
func (mr *MainRouter) Init(ctx context.Context) error {
	if mr.mode != registry.LoadOnStartup {
		return nil
	}
	_, err := mr.provider.Get(ctx, "")
	return err
}

func (mr *MainRouter) announce(asm *assembly) {
	if mr.baseURI == "" {
		mr.logger.Info("RESTX READY")
		return
	}
	mr.logger.Info(bannerTpl.Bind(map[string]string{
		"routes":     strconv.Itoa(asm.router.Len()),
		"machines":   strconv.Itoa(asm.registry.MachineCount()),
		"components": strconv.Itoa(asm.registry.ComponentCount()),
		"baseURI":    mr.baseURI,
	}))
}

// Routes returns the route table of the registry resolved for ctx.
func (mr *MainRouter) Routes(ctx context.Context) (*router.Router, error) {
	asm, err := mr.provider.Get(ctx, "")
	if err != nil {
		return nil, err
	}
	return asm.router, nil
}

func (mr *MainRouter) build(ctx context.Context, contextName string) (*assembly, error) {
	reg, err := mr.buildRegistry(ctx, contextName)
	mr.metrics.ObserveBuild(string(mr.mode), err)
	if err != nil {
		return nil, err
	}
	mr.logger.Debug("restx registry ready", "context", contextName, "registry", reg.String())

	payload, err := registry.MustLookup[session.PayloadCodec](reg, session.PayloadCodecName)
	if err != nil {
		return nil, err
	}

	key := signature.DefaultKey()
	if keys := registry.Components[signature.Key](reg); len(keys) > 0 {
		key = keys[0]
	} else {
		mr.logger.Warn("no signature key registered, sessions are signed with the default key")
	}

	def := session.NewDefinition(registry.Components[session.Entry](reg)...)
	asm := &assembly{
		registry: reg,
		router:   router.New("MainRouter", registry.Components[router.Route](reg)...),
		codec:    session.NewCodec(def, payload.Component, key),
	}
	if mr.mode == registry.LoadOnStartup {
		mr.announce(asm)
	}
	return asm, nil
}

func (mr *MainRouter) buildRegistry(ctx context.Context, contextName string) (*registry.Registry, error) {
	b := registry.NewBuilder().AddFromDiscovery()
	for _, om := range mr.machines {
		b.AddMachine(om.name, om.machine)
	}
	for _, set := range mr.locals {
		b.AddLocalMachines(set)
	}
	b.AddLocalMachines(registry.ProcessMachines())
	if contextName != "" {
		if set, ok := registry.FindLocalMachines(contextName); ok {
			b.AddLocalMachines(set)
		}
	}
	return b.Build(ctx)
}

// ServeHTTP routes r under the context name set by WithContextName. Errors that
// no diagnostic covers are logged and answered with a 500, unless the response
// was already committed.
func (mr *MainRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	if err := mr.Route(r.Context(), mr.contextName, rec, r); err != nil {
		mr.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if !rec.wroteHeader {
			http.Error(rec, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// Route handles one request.
//
// contextName selects the local machines used in onrequest mode; an empty name
// gets a fresh unique one. Parse failures and invalid arguments are answered
// with a 400, an unmatched request with a 404 listing the routes. Any other
// failure is returned. The request body is closed and the session cleared on
// every path.
func (mr *MainRouter) Route(ctx context.Context, contextName string, w http.ResponseWriter, r *http.Request) (err error) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	start := time.Now()
	mr.logger.Info(fmt.Sprintf("<< %s %s", r.Method, r.URL.RequestURI()))

	rec, ok := w.(*statusRecorder)
	if !ok {
		rec = &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	}
	routeName := unmatchedRoute
	defer func() {
		status := rec.status
		if err != nil && !rec.wroteHeader {
			status = http.StatusInternalServerError
		}
		mr.metrics.ObserveRequest(routeName, status, time.Since(start))
	}()

	if mr.mode == registry.LoadOnRequest && contextName == "" {
		contextName = uuid.NewString()
	}
	asm, err := mr.provider.Get(ctx, contextName)
	if err != nil {
		return err
	}

	content, err := mr.buffer(r)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}

	current, err := asm.codec.FromRequest(r)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSessionSignature) {
			mr.metrics.SessionRejected()
		}
		if mr.translator.Translate(rec, r, content, err) {
			return nil
		}
		return err
	}

	ctx, release := session.Install(registry.NewContext(ctx, asm.registry), current)
	defer release()

	req := r.WithContext(ctx)
	req.Body = io.NopCloser(content)

	hooks := router.LifecycleHooks{
		OnRouteMatch: func(_ context.Context, route router.Route) {
			routeName = route.String()
		},
		OnBeforeWrite: func(ctx context.Context, _ router.Route, w http.ResponseWriter) {
			next := session.Current(ctx)
			if next == nil || next == current {
				return
			}
			if err := asm.codec.Write(w, next); err != nil {
				mr.logger.Error("failed to write session", "error", err)
				return
			}
			mr.metrics.SessionWritten()
		},
	}

	matched, err := asm.router.Dispatch(rec, req, hooks)
	if !matched {
		diagnostic.WriteNotFound(rec, r.Method, r.URL.Path, asm.router.String())
		return nil
	}
	if err != nil {
		if rec.wroteHeader {
			// The status is already on the wire; a diagnostic would be appended to the body.
			return fmt.Errorf("%s failed after writing its response: %w", routeName, err)
		}
		if mr.translator.Translate(rec, req, content, err) {
			return nil
		}
		return err
	}
	return nil
}

// buffer reads up to maxBody bytes of the body into memory so that parse
// diagnostics can rewind it. Oversize bodies are returned as a plain stream.
func (mr *MainRouter) buffer(r *http.Request) (io.Reader, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return bytes.NewReader(nil), nil
	}
	if mr.maxBody <= 0 {
		return r.Body, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, mr.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > mr.maxBody {
		return io.MultiReader(bytes.NewReader(data), r.Body), nil
	}
	return bytes.NewReader(data), nil
}

// statusRecorder remembers the status code sent to the client.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
