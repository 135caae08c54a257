// Package wicket is a small, embeddable HTTP/1.1 server library.
//
// It lets a host process declare REST routes, serve files from disk or
// from an in-memory zip archive, upgrade selected requests to WebSocket,
// and broadcast text frames to all connected peers — for example, an
// interactive desktop tool exposing a local control API.
//
// The server follows the same lifecycle pattern as the rest of our
// infrastructure components:
//
//	srv := wicket.New(wicket.Options{Logger: log})
//	srv.Get("/hello", hello)
//	port, err := srv.Start(0) // 0 = any free port
//	defer srv.Stop()
//
// # Architecture
//
// Bytes flow from the connection through the request assembler
// (internal/h1) into the conductor, which validates the message, resolves
// the routing tree (internal/routetree), runs the middleware chain, and
// invokes the handler — an application function, a file servant, or a zip
// servant (internal/servant). The response is materialised in full and
// written back in dispatch order. Upgrade requests divert before dispatch
// into the RFC 6455 handshake and the broadcast registry.
//
// # Concurrency
//
// One goroutine accepts connections; each connection is served by its own
// goroutine, which is also where handlers run. The routing tree is
// immutable after Start. The broadcast registry is the only
// shared-mutable structure and snapshots its peer set for iteration.
//
// Thread Safety: all methods are safe for concurrent use from multiple
// goroutines.
package wicket
