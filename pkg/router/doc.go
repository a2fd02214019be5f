/*
Package router matches requests against an ordered list of routes.

Dispatch walks the routes in registration order and runs the first match. Two
lifecycle hooks let cross-cutting concerns follow along: OnRouteMatch when a
route is selected and OnBeforeWrite right before the response is committed,
which is the last moment headers such as session cookies can still be set.

	r := router.New("MainRouter",
		router.NewRoute("create-user", http.MethodPost, "/users", createUser),
		router.NewRoute("get-user", http.MethodGet, "/users/{id}", getUser),
	)
	matched, err := r.Dispatch(w, req, router.LifecycleHooks{})
*/
package router
