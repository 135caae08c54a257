package wicket

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/wicket/internal/h1"
	"github.com/nerrad567/wicket/logging"
	"github.com/nerrad567/wicket/web"
)

// refuseUpgrade runs the on-upgrade interceptors. A non-nil response
// refuses the handshake; it is written to the client and the connection
// continues as plain HTTP.
func (s *Server) refuseUpgrade(ctx context.Context, rc *h1.Context, log *logging.Logger) *web.Response {
	if len(s.chain.onUpgrade) == 0 {
		return nil
	}
	req := web.NewRequest(rc.URI, rc.Path, "", rc.Method, nil, nil, rc.Query, rc.Headers())
	for _, mw := range s.chain.onUpgrade {
		r, failure := s.protect(ctx, log, func(ctx context.Context) *web.Response {
			return mw(ctx, req)
		})
		if failure != nil {
			return failure
		}
		if r != nil {
			return r
		}
	}
	return nil
}

// serveWebSocket replaces the HTTP handling on the connection with a
// WebSocket session: handshake, registration with the broadcast
// registry, then the read loop.
//
// Frame policy: gorilla's default control handlers answer a ping with a
// pong carrying the ping payload and echo a close frame before the read
// loop observes the close error. Data frames are not routed to
// application handlers at this layer; they are logged and dropped.
func (s *Server) serveWebSocket(ctx context.Context, conn net.Conn, br *bufio.Reader, rc *h1.Context, log *logging.Logger) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  s.wsCfg.ReadBuffer,
		WriteBufferSize: s.wsCfg.WriteBuffer,
		// Origin is unrestricted at this layer; an on-upgrade
		// interceptor can refuse by origin if the embedder needs it.
		CheckOrigin: func(_ *http.Request) bool { return true },
	}

	w := &hijackResponder{
		conn:   conn,
		rw:     bufio.NewReadWriter(br, bufio.NewWriter(conn)),
		header: http.Header{},
	}
	ws, err := upgrader.Upgrade(w, handshakeRequest(rc), nil)
	if err != nil {
		log.Warn("websocket handshake failed", "error", err)
		return
	}

	peer := newPeer(ws, s.wsCfg.SendBuffer)
	s.hub.Add(peer)
	defer s.hub.Remove(peer)
	log.Debug("websocket peer connected", "peer_id", peer.ID(), "peers", s.hub.PeerCount())

	ws.SetReadLimit(int64(s.wsCfg.MaxMessageSize))

	go func() {
		// Tear the session down when the server stops.
		<-ctx.Done()
		//nolint:errcheck // Best-effort close on shutdown
		ws.Close()
	}()

	for {
		frameType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read error", "error", err)
			} else {
				log.Debug("websocket closed", "peer_id", peer.ID())
			}
			return
		}
		log.Debug("websocket frame ignored", "type", frameType, "bytes", len(data))
	}
}

// handshakeRequest rebuilds the assembled head as an http.Request for the
// gorilla upgrader, which validates the RFC 6455 handshake headers.
func handshakeRequest(rc *h1.Context) *http.Request {
	header := http.Header{}
	for name, value := range rc.Headers() {
		header.Set(name, value)
	}
	return &http.Request{
		Method:     rc.Method,
		URL:        &url.URL{Path: rc.Path},
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     header,
		Host:       rc.Header("host"),
	}
}

// hijackResponder adapts the library's own connection to the
// http.ResponseWriter + http.Hijacker pair the gorilla upgrader expects.
// The write path is exercised only by the upgrader's handshake-error
// responses.
type hijackResponder struct {
	conn   net.Conn
	rw     *bufio.ReadWriter
	header http.Header
	status int
}

func (h *hijackResponder) Header() http.Header { return h.header }

func (h *hijackResponder) WriteHeader(status int) { h.status = status }

func (h *hijackResponder) Write(p []byte) (int, error) {
	status := h.status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	resp := web.NewResponse(status, web.ContentTypeText, p)
	if err := h1.WriteResponse(h.rw.Writer, resp); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (h *hijackResponder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return h.conn, h.rw, nil
}
