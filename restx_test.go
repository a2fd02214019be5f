package restx_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/restx"
	"github.com/aretw0/restx/internal/logging"
	"github.com/aretw0/restx/pkg/bind"
	"github.com/aretw0/restx/pkg/domain"
	"github.com/aretw0/restx/pkg/metrics"
	"github.com/aretw0/restx/pkg/registry"
	"github.com/aretw0/restx/pkg/router"
	"github.com/aretw0/restx/pkg/session"
	"github.com/aretw0/restx/pkg/signature"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userEntry = session.StringEntry("user")

// app registers routes and the "user" session entry.
func app(routes ...*router.StdRoute) registry.Machine {
	return registry.MachineFunc(func(ctx context.Context) ([]registry.Component, error) {
		out := []registry.Component{{Name: "session.user", Value: userEntry}}
		for _, rt := range routes {
			out = append(out, registry.Component{Name: "route." + rt.Name, Value: rt})
		}
		return out, nil
	})
}

func newRouter(t *testing.T, opts ...restx.Option) *restx.MainRouter {
	t.Helper()
	mr, err := restx.New(opts...)
	require.NoError(t, err)
	require.NoError(t, mr.Init(context.Background()))
	return mr
}

func serve(mr http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mr.ServeHTTP(rec, req)
	return rec
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func login(w http.ResponseWriter, r *http.Request) error {
	if err := session.Define(r.Context(), "user", "42"); err != nil {
		return err
	}
	_, err := io.WriteString(w, "logged in")
	return err
}

func whoami(w http.ResponseWriter, r *http.Request) error {
	user, _ := session.Current(r.Context()).ValueID("user")
	_, err := io.WriteString(w, "user="+user)
	return err
}

func TestRoute_SessionWrittenWhenReplaced(t *testing.T) {
	mr := newRouter(t, restx.WithMachine("app", app(
		router.NewRoute("login", http.MethodPost, "/login", login),
		router.NewRoute("whoami", http.MethodGet, "/whoami", whoami),
	)))

	rec := serve(mr, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "logged in", rec.Body.String())

	raw := cookie(rec, session.CookieName)
	sig := cookie(rec, session.SignatureCookieName)
	require.NotNil(t, raw)
	require.NotNil(t, sig)
	assert.True(t, signature.Verify(raw.Value, sig.Value, signature.DefaultKey().Bytes()))

	valueIDs, err := session.JSONCodec{}.Decode(raw.Value)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"user": "42"}, valueIDs)

	// The cookie pair is accepted back.
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(raw)
	req.AddCookie(sig)
	rec = serve(mr, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user=42", rec.Body.String())
	assert.Empty(t, rec.Result().Cookies(), "unchanged session must not be re-emitted")
}

func TestRoute_SessionWrittenWhenHandlerWritesNothing(t *testing.T) {
	mr := newRouter(t, restx.WithMachine("app", app(
		router.NewRoute("login", http.MethodPost, "/login", func(w http.ResponseWriter, r *http.Request) error {
			return session.Set(r.Context(), userEntry, "7")
		}),
	)))

	rec := serve(mr, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, cookie(rec, session.CookieName))
}

func TestRoute_EquivalentSessionIsStillWritten(t *testing.T) {
	// Write-back compares identity: a new but equal session is emitted.
	mr := newRouter(t, restx.WithMachine("app", app(
		router.NewRoute("touch", http.MethodGet, "/touch", func(w http.ResponseWriter, r *http.Request) error {
			return session.Replace(r.Context(), session.Current(r.Context()).Clear())
		}),
	)))

	rec := serve(mr, httptest.NewRequest(http.MethodGet, "/touch", nil))
	assert.NotNil(t, cookie(rec, session.CookieName))
}

func TestRoute_TamperedSessionRejected(t *testing.T) {
	called := false
	mr := newRouter(t, restx.WithMachine("app", app(
		router.NewRoute("whoami", http.MethodGet, "/whoami", func(w http.ResponseWriter, r *http.Request) error {
			called = true
			return nil
		}),
	)))

	raw, err := session.JSONCodec{}.Encode(map[string]string{"user": "42"})
	require.NoError(t, err)
	sig, err := signature.Sign(raw, signature.DefaultKey().Bytes())
	require.NoError(t, err)
	forged, err := session.JSONCodec{}.Encode(map[string]string{"user": "admin"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: forged})
	req.AddCookie(&http.Cookie{Name: session.SignatureCookieName, Value: sig})

	rec := serve(mr, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid restx session signature", rec.Body.String())
	assert.False(t, called)
}

func TestRoute_SignatureKeyComponent(t *testing.T) {
	key := signature.NewKey([]byte("deployment secret"))
	mr := newRouter(t,
		restx.WithSignatureKey(key),
		restx.WithMachine("app", app(router.NewRoute("login", http.MethodPost, "/login", login))),
	)

	rec := serve(mr, httptest.NewRequest(http.MethodPost, "/login", nil))
	raw := cookie(rec, session.CookieName)
	sig := cookie(rec, session.SignatureCookieName)
	require.NotNil(t, raw)
	require.NotNil(t, sig)
	assert.True(t, signature.Verify(raw.Value, sig.Value, key.Bytes()))
	assert.False(t, signature.Verify(raw.Value, sig.Value, signature.DefaultKey().Bytes()))
}

func TestRoute_DefaultKeyWarns(t *testing.T) {
	var buf bytes.Buffer
	newRouter(t, restx.WithLogger(logging.NewWithWriter(&buf, slog.LevelInfo, false)))
	assert.Contains(t, buf.String(), "default key")
}

func TestRoute_NotFoundListsRoutes(t *testing.T) {
	mr := newRouter(t, restx.WithMachine("app", app(
		router.NewRoute("a", http.MethodPost, "/a", login),
		router.NewRoute("b", http.MethodGet, "/b", whoami),
	)))

	rec := serve(mr, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no restx route found for GET /unknown\n"+
		"routes:\n"+
		"-----------------------------------\n"+
		"POST /a => a\n"+
		"GET /b => b\n"+
		"-----------------------------------", rec.Body.String())
}

const input = "{\n  \"a\": 1,\n  \"b\" x\n}"

func failParse(w http.ResponseWriter, r *http.Request) error {
	if _, err := io.ReadAll(r.Body); err != nil {
		return err
	}
	return &domain.ParseError{Kind: "SyntaxError", Line: 3, Column: 5, Message: "Unexpected token"}
}

func TestRoute_ParseErrorEchoesBody(t *testing.T) {
	mr := newRouter(t, restx.WithMachine("app", app(
		router.NewRoute("items", http.MethodPost, "/items", failParse),
	)))

	rec := serve(mr, httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(input)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "syntax_error. Please verify your input:\n"+
		"<-- JSON -->\n"+
		"{\n"+
		"  \"a\": 1,\n"+
		"  \"b\" x\n"+
		"   ^\n"+
		">> Unexpected token <<\n"+
		"\n"+
		"}\n"+
		"</- JSON -->\n", rec.Body.String())
}

func TestRoute_ParseErrorOversizeBody(t *testing.T) {
	mr := newRouter(t,
		restx.WithMaxBufferedBody(4),
		restx.WithMachine("app", app(router.NewRoute("items", http.MethodPost, "/items", failParse))),
	)

	rec := serve(mr, httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(input)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SyntaxError at line 3, column 5: Unexpected token", rec.Body.String())
}

func TestRoute_BindJSON(t *testing.T) {
	var got map[string]int
	mr := newRouter(t, restx.WithMachine("app", app(
		router.NewRoute("items", http.MethodPost, "/items", func(w http.ResponseWriter, r *http.Request) error {
			if err := bind.JSON(r, &got); err != nil {
				return err
			}
			w.WriteHeader(http.StatusCreated)
			return nil
		}),
	)))

	rec := serve(mr, httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`{"a": 1}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, map[string]int{"a": 1}, got)

	rec = serve(mr, httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(input)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "syntax_error. Please verify your input:\n<-- JSON -->\n"))
	assert.Contains(t, rec.Body.String(), "  \"b\" x\n")
}

func TestRoute_InvalidArgument(t *testing.T) {
	mr := newRouter(t, restx.WithMachine("app", app(
		router.NewRoute("bad", http.MethodGet, "/bad", func(w http.ResponseWriter, r *http.Request) error {
			return domain.InvalidArgument("limit must be positive, got %d", -1)
		}),
	)))

	rec := serve(mr, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "limit must be positive, got -1", rec.Body.String())
}

func TestServeHTTP_UnhandledError(t *testing.T) {
	boom := errors.New("boom")
	mr := newRouter(t, restx.WithMachine("app", app(
		router.NewRoute("boom", http.MethodGet, "/boom", func(w http.ResponseWriter, r *http.Request) error {
			return boom
		}),
	)))

	err := mr.Route(context.Background(), "", httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.ErrorIs(t, err, boom)

	rec := serve(mr, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

func TestRoute_ClosesBodyAndClearsSession(t *testing.T) {
	var seen context.Context
	mr := newRouter(t, restx.WithMachine("app", app(
		router.NewRoute("login", http.MethodPost, "/login", func(w http.ResponseWriter, r *http.Request) error {
			seen = r.Context()
			return login(w, r)
		}),
		router.NewRoute("fail", http.MethodPost, "/fail", failParse),
	)))

	for _, path := range []string{"/login", "/fail", "/missing"} {
		body := &trackedBody{Reader: strings.NewReader(input)}
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Body = body
		serve(mr, req)
		assert.True(t, body.closed, path)
	}

	require.NotNil(t, seen)
	assert.Nil(t, session.Current(seen))
}

func TestRoute_ResolvedRegistryInContext(t *testing.T) {
	mr := newRouter(t, restx.WithMachine("app", app(
		router.NewRoute("components", http.MethodGet, "/components", func(w http.ResponseWriter, r *http.Request) error {
			reg, ok := registry.FromContext(r.Context())
			if !ok {
				return errors.New("no registry")
			}
			_, err := fmt.Fprint(w, len(registry.Components[router.Route](reg)))
			return err
		}),
	)))

	rec := serve(mr, httptest.NewRequest(http.MethodGet, "/components", nil))
	assert.Equal(t, "1", rec.Body.String())
}

func TestOnStartup_BuildsOnce(t *testing.T) {
	var builds atomic.Int32
	counting := registry.MachineFunc(func(ctx context.Context) ([]registry.Component, error) {
		builds.Add(1)
		return nil, nil
	})
	mr := newRouter(t,
		restx.WithMachine("counting", counting),
		restx.WithMachine("app", app(router.NewRoute("b", http.MethodGet, "/b", whoami))),
	)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(mr, httptest.NewRequest(http.MethodGet, "/b", nil))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), builds.Load())
}

func TestOnRequest_DistinctRegistries(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []*registry.Registry
	)
	capture := router.NewRoute("capture", http.MethodGet, "/capture", func(w http.ResponseWriter, r *http.Request) error {
		reg, _ := registry.FromContext(r.Context())
		mu.Lock()
		seen = append(seen, reg)
		mu.Unlock()
		return nil
	})
	mr := newRouter(t,
		restx.WithLoadMode(registry.LoadOnRequest),
		restx.WithMachine("app", app(capture)),
	)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(mr, httptest.NewRequest(http.MethodGet, "/capture", nil))
		}()
	}
	wg.Wait()

	require.Len(t, seen, 2)
	require.NotNil(t, seen[0])
	require.NotNil(t, seen[1])
	assert.NotSame(t, seen[0], seen[1])
}

func TestOnRequest_ContextLocalMachines(t *testing.T) {
	const contextName = "restx_test.tenant-a"
	t.Cleanup(func() { registry.RemoveLocalMachines(contextName) })
	registry.LocalMachines(contextName).Add(app(router.NewRoute("tenant", http.MethodGet, "/tenant", whoami)))

	mr := newRouter(t, restx.WithLoadMode(registry.LoadOnRequest))

	rec := httptest.NewRecorder()
	require.NoError(t, mr.Route(context.Background(), contextName, rec, httptest.NewRequest(http.MethodGet, "/tenant", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	require.NoError(t, mr.Route(context.Background(), "restx_test.tenant-b", rec, httptest.NewRequest(http.MethodGet, "/tenant", nil)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOnStartup_BuildFailure(t *testing.T) {
	failing := registry.MachineFunc(func(ctx context.Context) ([]registry.Component, error) {
		return nil, errors.New("unreachable config")
	})
	mr, err := restx.New(restx.WithMachine("failing", failing))
	require.NoError(t, err)

	err = mr.Init(context.Background())
	var be *registry.BuildError
	assert.ErrorAs(t, err, &be)
}

func TestNew_UnknownLoadMode(t *testing.T) {
	_, err := restx.New(restx.WithLoadMode("lazy"))
	assert.Error(t, err)
}

func TestInit_Banner(t *testing.T) {
	var buf bytes.Buffer
	newRouter(t,
		restx.WithBaseURI("http://localhost:8080/api"),
		restx.WithLogger(logging.NewWithWriter(&buf, slog.LevelInfo, false)),
		restx.WithMachine("app", app(router.NewRoute("b", http.MethodGet, "/b", whoami))),
	)
	assert.Contains(t, buf.String(), "RESTX READY")
	assert.Contains(t, buf.String(), "VISIT http://localhost:8080/api/404")
	assert.Contains(t, buf.String(), "1 routes")
}

func TestRoute_Metrics(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	mr := newRouter(t,
		restx.WithMetrics(m),
		restx.WithMachine("app", app(router.NewRoute("login", http.MethodPost, "/login", login))),
	)

	serve(mr, httptest.NewRequest(http.MethodPost, "/login", nil))
	serve(mr, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "e30"})
	req.AddCookie(&http.Cookie{Name: session.SignatureCookieName, Value: "forged"})
	serve(mr, req)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("POST /login => login", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("unmatched", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("unmatched", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionWrites))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionRejections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistryBuilds.WithLabelValues("onstartup", "ok")))
}

func TestRoute_BindJSONCaretUnderOffendingByte(t *testing.T) {
	mr := newRouter(t, restx.WithMachine("app", app(
		router.NewRoute("items", http.MethodPost, "/items", func(w http.ResponseWriter, r *http.Request) error {
			var v map[string]any
			return bind.JSON(r, &v)
		}),
	)))

	rec := serve(mr, httptest.NewRequest(http.MethodPost, "/items", strings.NewReader("{\n  \"a\": 1,\n  \"b\": x\n}")))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	lines := strings.Split(rec.Body.String(), "\n")
	bad := -1
	for i, line := range lines {
		if line == "  \"b\": x" {
			bad = i
		}
	}
	require.GreaterOrEqual(t, bad, 0, rec.Body.String())
	require.Greater(t, len(lines), bad+1)
	assert.Equal(t, strings.Index(lines[bad], "x"), strings.Index(lines[bad+1], "^"))
}

func TestRoute_LazyStartupBuildAnnounces(t *testing.T) {
	var buf bytes.Buffer
	mr, err := restx.New(
		restx.WithBaseURI("http://localhost:8080"),
		restx.WithLogger(logging.NewWithWriter(&buf, slog.LevelInfo, false)),
		restx.WithMachine("app", app(router.NewRoute("b", http.MethodGet, "/b", whoami))),
	)
	require.NoError(t, err)

	serve(mr, httptest.NewRequest(http.MethodGet, "/b", nil))
	serve(mr, httptest.NewRequest(http.MethodGet, "/b", nil))

	assert.Equal(t, 1, strings.Count(buf.String(), "RESTX READY"))
	assert.Contains(t, buf.String(), "VISIT http://localhost:8080/404")
}

func TestOnRequest_NoAnnouncement(t *testing.T) {
	var buf bytes.Buffer
	mr := newRouter(t,
		restx.WithLoadMode(registry.LoadOnRequest),
		restx.WithLogger(logging.NewWithWriter(&buf, slog.LevelInfo, false)),
	)
	serve(mr, httptest.NewRequest(http.MethodGet, "/b", nil))
	assert.NotContains(t, buf.String(), "RESTX READY")
}

func TestRoute_ErrorAfterCommittedResponse(t *testing.T) {
	mr := newRouter(t, restx.WithMachine("app", app(
		router.NewRoute("partial", http.MethodGet, "/partial", func(w http.ResponseWriter, r *http.Request) error {
			if _, err := io.WriteString(w, "partial"); err != nil {
				return err
			}
			return domain.InvalidArgument("too late")
		}),
	)))

	err := mr.Route(context.Background(), "", httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/partial", nil))
	var argErr *domain.ArgumentError
	assert.ErrorAs(t, err, &argErr)

	rec := serve(mr, httptest.NewRequest(http.MethodGet, "/partial", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestServeHTTP_ContextName(t *testing.T) {
	const contextName = "restx_test.tenant-c"
	t.Cleanup(func() { registry.RemoveLocalMachines(contextName) })
	registry.LocalMachines(contextName).Add(app(router.NewRoute("tenant", http.MethodGet, "/tenant", whoami)))

	mr := newRouter(t,
		restx.WithLoadMode(registry.LoadOnRequest),
		restx.WithContextName(contextName),
	)
	rec := serve(mr, httptest.NewRequest(http.MethodGet, "/tenant", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user=", rec.Body.String())

	rec = serve(newRouter(t, restx.WithLoadMode(registry.LoadOnRequest)), httptest.NewRequest(http.MethodGet, "/tenant", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
