package router

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HandlerFunc handles a matched request. Recoverable failures are returned,
// not written, so the dispatcher can translate them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Route is one candidate handler of a Router.
type Route interface {
	// Match reports whether the route applies to method and path, and returns
	// the routing context carrying its path parameters.
	Match(method, path string) (*chi.Context, bool)
	// Handle serves a request previously accepted by Match.
	Handle(w http.ResponseWriter, r *http.Request) error
	// String describes the route for the route table.
	String() string
}

// StdRoute matches a method and a chi path pattern ("/users/{id}").
type StdRoute struct {
	Name    string
	Method  string
	Pattern string

	handler HandlerFunc
	mux     *chi.Mux
}

// NewRoute creates a route. Path parameters are read in the handler with chi.URLParam.
func NewRoute(name, method, pattern string, handler HandlerFunc) *StdRoute {
	mux := chi.NewMux()
	mux.MethodFunc(method, pattern, func(http.ResponseWriter, *http.Request) {})
	return &StdRoute{
		Name:    name,
		Method:  method,
		Pattern: pattern,
		handler: handler,
		mux:     mux,
	}
}

// Match implements Route.
func (rt *StdRoute) Match(method, path string) (*chi.Context, bool) {
	if method != rt.Method {
		return nil, false
	}
	rctx := chi.NewRouteContext()
	if !rt.mux.Match(rctx, method, path) {
		return nil, false
	}
	return rctx, true
}

// Handle implements Route.
func (rt *StdRoute) Handle(w http.ResponseWriter, r *http.Request) error {
	return rt.handler(w, r)
}

func (rt *StdRoute) String() string {
	return fmt.Sprintf("%s %s => %s", rt.Method, rt.Pattern, rt.Name)
}

// withRouteContext exposes the path parameters of rctx to chi.URLParam.
func withRouteContext(r *http.Request, rctx *chi.Context) *http.Request {
	if rctx == nil {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
