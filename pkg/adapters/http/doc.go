// Package http serves a restx.MainRouter over net/http with chi middleware,
// a health check and an optional Prometheus endpoint.
package http
