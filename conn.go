package wicket

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/wicket/internal/h1"
	"github.com/nerrad567/wicket/web"
)

// serveConn drives one connection: requests are assembled and dispatched
// in arrival order, responses written in the same order. The connection's
// context is cancelled when the connection (or the server) closes; it is
// the cooperative scope handed to handlers.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.conns.Done()
	defer conn.Close()

	log := s.logger.With(
		"conn_id", uuid.New().String()[:8],
		"remote", conn.RemoteAddr().String(),
	)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	// Unblock in-flight reads and writes when the server stops.
	stop := context.AfterFunc(ctx, func() {
		//nolint:errcheck // Best-effort close on shutdown
		conn.Close()
	})
	defer stop()

	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)

	for {
		if d := s.cfg.IdleTimeout(); d > 0 {
			//nolint:errcheck // Best-effort deadline between requests
			conn.SetReadDeadline(time.Now().Add(d))
		}

		rc, err := h1.ReadRequest(br)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				// Clean close between messages.
			case errors.Is(err, h1.ErrMalformed):
				log.Debug("malformed request", "error", err)
				//nolint:errcheck // Connection is abandoned either way
				h1.WriteResponse(bw, web.BadRequest(err.Error()))
			default:
				log.Debug("connection read failed", "error", err)
			}
			return
		}
		//nolint:errcheck // Clear the idle deadline for dispatch
		conn.SetReadDeadline(time.Time{})

		if rc.Upgrade {
			if resp := s.refuseUpgrade(connCtx, rc, log); resp != nil {
				// A refused upgrade is answered and the connection
				// proceeds as plain HTTP.
				if err := h1.WriteResponse(bw, resp); err != nil {
					return
				}
				continue
			}
			s.serveWebSocket(connCtx, conn, br, rc, log)
			return
		}

		start := time.Now()
		resp := s.dispatch(connCtx, rc, log)

		if d := s.cfg.WriteTimeout(); d > 0 {
			//nolint:errcheck // Best-effort deadline; write error caught below
			conn.SetWriteDeadline(time.Now().Add(d))
		}
		if err := h1.WriteResponse(bw, resp); err != nil {
			log.Debug("response write failed", "error", err)
			return
		}
		//nolint:errcheck // Clear the write deadline for the next cycle
		conn.SetWriteDeadline(time.Time{})

		log.Info("http request",
			"method", rc.Method,
			"path", rc.Path,
			"status", resp.Status,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		if rc.WantsClose() {
			return
		}
	}
}
