package router

import (
	"context"
	"net/http"
	"strings"
)

// LifecycleHooks observe the progress of a dispatch.
type LifecycleHooks struct {
	// OnRouteMatch fires once the first matching route is selected.
	OnRouteMatch func(ctx context.Context, route Route)
	// OnBeforeWrite fires exactly once per handled request, before the first
	// header or body byte reaches w. Headers and cookies set here are sent.
	OnBeforeWrite func(ctx context.Context, route Route, w http.ResponseWriter)
}

// Router holds an ordered, immutable list of routes. The first match wins;
// routes are never reordered by specificity.
type Router struct {
	name   string
	routes []Route
}

// New creates a router over routes, kept in the given order.
func New(name string, routes ...Route) *Router {
	return &Router{name: name, routes: append([]Route(nil), routes...)}
}

// Name returns the router name.
func (rt *Router) Name() string {
	return rt.name
}

// Len returns the number of routes.
func (rt *Router) Len() int {
	return len(rt.routes)
}

// Routes returns a copy of the route list.
func (rt *Router) Routes() []Route {
	return append([]Route(nil), rt.routes...)
}

// Dispatch runs the first route matching r.
// It returns false when no route matches; the caller owns the not-found response.
// When a route matched, the returned error is the handler's.
func (rt *Router) Dispatch(w http.ResponseWriter, r *http.Request, hooks LifecycleHooks) (bool, error) {
	for _, route := range rt.routes {
		rctx, ok := route.Match(r.Method, r.URL.Path)
		if !ok {
			continue
		}

		req := withRouteContext(r, rctx)
		if hooks.OnRouteMatch != nil {
			hooks.OnRouteMatch(req.Context(), route)
		}

		bw := &beforeWriteResponseWriter{
			ResponseWriter: w,
			fire: func() {
				if hooks.OnBeforeWrite != nil {
					hooks.OnBeforeWrite(req.Context(), route, w)
				}
			},
		}

		err := route.Handle(bw, req)
		if err == nil {
			// Handlers that wrote nothing still get their session synced.
			bw.trigger()
		}
		return true, err
	}
	return false, nil
}

// String renders the route table, one route per line.
func (rt *Router) String() string {
	lines := make([]string, len(rt.routes))
	for i, route := range rt.routes {
		lines[i] = route.String()
	}
	return strings.Join(lines, "\n")
}

// beforeWriteResponseWriter runs fire once, right before the response is committed.
type beforeWriteResponseWriter struct {
	http.ResponseWriter
	fire  func()
	fired bool
}

func (w *beforeWriteResponseWriter) trigger() {
	if w.fired {
		return
	}
	w.fired = true
	w.fire()
}

func (w *beforeWriteResponseWriter) WriteHeader(code int) {
	w.trigger()
	w.ResponseWriter.WriteHeader(code)
}

func (w *beforeWriteResponseWriter) Write(b []byte) (int, error) {
	w.trigger()
	return w.ResponseWriter.Write(b)
}

func (w *beforeWriteResponseWriter) Flush() {
	w.trigger()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *beforeWriteResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
