// Package requestid tags every HTTP request with a correlation ID.
//
// Middleware accepts a client supplied X-Request-ID when it is at most 128
// characters of [a-zA-Z0-9_-] and otherwise generates a UUID. The ID is
// echoed in the response header, stored in the request context (see
// FromContext) and added to the logger context attributes so log records of
// the same request can be correlated:
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
package requestid
