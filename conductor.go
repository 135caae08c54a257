package wicket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/nerrad567/wicket/internal/h1"
	"github.com/nerrad567/wicket/internal/routetree"
	"github.com/nerrad567/wicket/logging"
	"github.com/nerrad567/wicket/web"
)

// dispatch orchestrates one request end-to-end: content-length
// validation, the OPTIONS preflight, route resolution, request-object
// construction, the middleware chain, and the handler itself.
//
// OPTIONS is answered before resolution so unrouted paths also get the
// 204 preflight response.
func (s *Server) dispatch(ctx context.Context, rc *h1.Context, log *logging.Logger) *web.Response {
	if rc.ContentLength >= 0 && rc.ContentLength != len(rc.Body) {
		return web.BadRequest("Incomplete request.")
	}

	if rc.Method == http.MethodOptions {
		return web.NoContent()
	}

	match, err := s.tree.Resolve(rc.Method, rc.Path)
	if err != nil {
		if errors.Is(err, routetree.ErrEmptyPath) {
			return web.BadRequest(err.Error())
		}
		return web.NotFound(rc.Path)
	}

	req := web.NewRequest(rc.URI, rc.Path, match.Remaining, rc.Method, rc.Body, match.Params, rc.Query, rc.Headers())

	// On-request interceptors may short-circuit: the handler is skipped
	// but the response still flows through the on-response chain.
	var resp *web.Response
	for _, mw := range s.chain.onRequest {
		r, failure := s.protect(ctx, log, func(ctx context.Context) *web.Response {
			return mw(ctx, req)
		})
		if failure != nil {
			return failure
		}
		if r != nil {
			resp = r
			break
		}
	}

	if resp == nil {
		r, failure := s.protect(ctx, log, func(ctx context.Context) *web.Response {
			if match.Terminal != nil {
				return match.Terminal.Serve(ctx, match.Remaining)
			}
			return match.Handler(ctx, req)
		})
		switch {
		case failure != nil:
			resp = failure
		case r == nil:
			resp = web.InternalError("handler returned no response")
		default:
			resp = r
		}
	}

	for _, mw := range s.chain.onResponse {
		prev := resp
		r, failure := s.protect(ctx, log, func(ctx context.Context) *web.Response {
			return mw(ctx, req, prev)
		})
		if failure != nil {
			return failure
		}
		if r != nil {
			resp = r
		}
	}

	return resp
}

// protect invokes fn and converts a panic into a 500 response carrying
// the panic message, logged with the stack trace. It returns exactly one
// non-nil-or-meaningful pair element: the function's response, or the
// failure response.
func (s *Server) protect(ctx context.Context, log *logging.Logger, fn func(ctx context.Context) *web.Response) (resp, failure *web.Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic recovered in handler",
				"error", r,
				"stack", string(debug.Stack()),
			)
			failure = web.InternalError(fmt.Sprint(r))
		}
	}()
	return fn(ctx), nil
}
