// Package web defines the handler-facing types of the wicket server: the
// immutable Request, the fully-buffered Response with its builders, and the
// three middleware kinds.
//
// # Requests
//
// A Request is assembled once per HTTP message and never mutated afterwards.
// Handlers read path parameters, query parameters, and headers through
// lookup methods; header lookup is case-insensitive.
//
// # Responses
//
// Responses are materialised in full before they are written: a status code,
// a header map, and a complete body. Content-Length is always set on the
// wire and equals the body byte length. Error bodies are application/json
// with a "reason" field (routing misses additionally carry "path").
//
// # Middleware
//
// Middleware is a tagged sum of three interceptor kinds rather than a class
// hierarchy: OnRequest (may short-circuit dispatch), OnResponse (rewrites
// the outgoing response), and OnUpgrade (may refuse a WebSocket handshake).
// The server pattern-matches on the kind at registration time.
package web
