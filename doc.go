/*
Package restx is the request-dispatch core of a small HTTP framework.

A MainRouter routes every request through a registry of components built from
machines, reconstructs a tamper-evident session from a signed cookie pair, lets
the matched route replace that session and writes it back re-signed before the
first response byte. Malformed bodies and invalid arguments become 400
responses that echo the offending input with a position marker; unmatched
requests get a 404 listing every route.

# Components

Components are provided by machines. Packages register discovery machines in
init functions, the way database/sql drivers do:

	func init() {
		registry.Register("myapp.routes", registry.MachineFunc(func(ctx context.Context) ([]registry.Component, error) {
			return []registry.Component{
				{Name: "route.hello", Value: router.NewRoute("hello", http.MethodGet, "/hello/{name}", hello)},
				{Name: "session.user", Value: session.StringEntry("user")},
			}, nil
		}))
	}

The router then picks up every router.Route, session.Entry and signature.Key:

	mr, err := restx.New(restx.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	if err != nil {
		log.Fatal(err)
	}
	if err := mr.Init(ctx); err != nil {
		log.Fatal(err)
	}
	http.ListenAndServe(":8080", mr)

# Sessions

Handlers read the active session with session.Current and replace it with
session.Define, session.Set, session.Remove or session.Clear. The session is a
flat map of keys to value ids. It is signed, not encrypted.

# Load modes

In onstartup mode the registry is built once and shared. In onrequest mode a
fresh registry is built for every request, including the local machines of the
request's context name, which is useful while developing.
*/
package restx
