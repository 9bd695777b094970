// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Handlers write through these helpers rather than raw http.ResponseWriter
// calls, so every endpoint returns the same JSON error envelope and maps the
// domain sentinel errors onto the same status codes.
package httputil
