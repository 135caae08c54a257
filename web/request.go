package web

import (
	"context"
	"strings"
)

// Handler processes a request and returns a fully-formed response.
//
// Handlers run on the goroutine of the connection that produced the request
// and may block on their own I/O; ctx is cancelled when the connection
// closes, which is the per-connection cooperative scope.
type Handler func(ctx context.Context, req *Request) *Response

// Request is the immutable request object handed to handlers.
//
// It is constructed once, after the full message has been assembled and the
// route resolved, and is never mutated afterwards. All lookup methods are
// safe for concurrent use.
type Request struct {
	uri       string
	path      string
	remaining string
	method    string
	body      []byte
	params    map[string]string
	query     map[string]string
	headers   map[string]string // lower-cased keys
}

// NewRequest builds a Request. The maps are retained, not copied; callers
// must not mutate them afterwards.
func NewRequest(uri, path, remaining, method string, body []byte, params, query, headers map[string]string) *Request {
	if params == nil {
		params = map[string]string{}
	}
	if query == nil {
		query = map[string]string{}
	}
	if headers == nil {
		headers = map[string]string{}
	}
	return &Request{
		uri:       uri,
		path:      path,
		remaining: remaining,
		method:    method,
		body:      body,
		params:    params,
		query:     query,
		headers:   headers,
	}
}

// URI returns the full decoded request URI, including any query string.
func (r *Request) URI() string { return r.uri }

// Path returns the decoded URI up to '?'.
func (r *Request) Path() string { return r.path }

// Remaining returns the suffix of the path beyond the matched route.
// It is empty when the route consumed the whole path.
func (r *Request) Remaining() string { return r.remaining }

// Method returns the HTTP method.
func (r *Request) Method() string { return r.method }

// Body returns the raw body bytes. Callers must treat the slice as
// read-only.
func (r *Request) Body() []byte { return r.body }

// BodyString returns the body as a string.
func (r *Request) BodyString() string { return string(r.body) }

// Param returns the value captured for the named path parameter, or ""
// when the route declared no such parameter.
func (r *Request) Param(name string) string { return r.params[name] }

// Params returns a copy of the path parameter map.
func (r *Request) Params() map[string]string { return copyMap(r.params) }

// Query returns the value of the named query parameter, or "" when absent.
// Duplicate keys in the query string resolve to the last value.
func (r *Request) Query(name string) string { return r.query[name] }

// Queries returns a copy of the query parameter map.
func (r *Request) Queries() map[string]string { return copyMap(r.query) }

// Header returns the value of the named header. Lookup is case-insensitive.
func (r *Request) Header(name string) string {
	return r.headers[strings.ToLower(name)]
}

// Headers returns a copy of the header map. Keys are lower-cased.
func (r *Request) Headers() map[string]string { return copyMap(r.headers) }

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
