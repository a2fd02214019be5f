/*
Package session implements the stateless, client-held session.

A Session is a flat mapping from declared keys to string value ids. It travels
in two cookies: RestxSession carries the encoded mapping and
RestxSessionSignature carries its signature. Nothing is stored server side.

During a request the active session lives in a slot attached to the request
context. Handlers read it with Current and change it with Define, Set, Remove,
Clear or Replace. Because sessions are immutable values, every change installs
a new instance, and the dispatcher re-signs the cookies only when the instance
differs from the one it installed.

	func whoami(w http.ResponseWriter, r *http.Request) error {
		s := session.Current(r.Context())
		id, ok := s.ValueID("user")
		...
		return session.Define(r.Context(), "user", "42")
	}
*/
package session
