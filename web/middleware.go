package web

import "context"

// The three middleware kinds form a tagged sum; the server pattern-matches
// on the concrete type at registration. Each kind is invoked in
// registration order at its own dispatch point.

// OnRequest observes a finalised request before dispatch. Returning a
// non-nil Response short-circuits: the handler is skipped and the response
// continues through the OnResponse chain.
type OnRequest func(ctx context.Context, req *Request) *Response

// OnResponse observes the (request, response) pair after the handler and
// returns a possibly modified response. Each interceptor sees the output
// of the previous one.
type OnResponse func(ctx context.Context, req *Request, resp *Response) *Response

// OnUpgrade is invoked before a WebSocket handshake. Returning a non-nil
// Response refuses the upgrade: the response is sent and the connection
// proceeds as plain HTTP.
type OnUpgrade func(ctx context.Context, req *Request) *Response
