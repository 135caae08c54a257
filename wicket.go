package wicket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/wicket/config"
	"github.com/nerrad567/wicket/internal/routetree"
	"github.com/nerrad567/wicket/logging"
	"github.com/nerrad567/wicket/web"
)

// Re-exports so embedders only import this package for the common path.
type (
	// Request is the immutable request object handed to handlers.
	Request = web.Request
	// Response is a fully-buffered HTTP response.
	Response = web.Response
	// Handler processes a request and returns a response.
	Handler = web.Handler
	// OnRequest is the pre-dispatch middleware kind.
	OnRequest = web.OnRequest
	// OnResponse is the post-dispatch middleware kind.
	OnResponse = web.OnResponse
	// OnUpgrade is the pre-handshake middleware kind.
	OnUpgrade = web.OnUpgrade
)

// Lifecycle misuse errors, raised synchronously to the caller.
var (
	// ErrNotIdle reports Start called while the server is running.
	ErrNotIdle = errors.New("server is not idle")

	// ErrNotStarted reports Stop called before a successful (or failed)
	// Start.
	ErrNotStarted = errors.New("server is not started nor failed to start")

	// ErrNotEditable reports route or middleware registration after
	// Start; the routing tree is immutable while serving.
	ErrNotEditable = errors.New("routes and middleware cannot change while the server is running")
)

// state is the lifecycle state of the server.
type state string

const (
	stateIdle       state = "idle"
	stateStarting   state = "starting"
	stateStarted    state = "started"
	stateStartError state = "start_error"
	stateStopping   state = "stopping"
)

// defaultShutdownTimeout bounds the wait for in-flight connections when
// the configuration does not set one.
const defaultShutdownTimeout = 10 * time.Second

// Options holds the dependencies and settings for a server.
// The zero value is usable: a default logger and default buffers apply.
type Options struct {
	Logger    *logging.Logger
	Server    config.ServerConfig
	WebSocket config.WebSocketConfig
}

// Server is an embeddable HTTP/1.1 + WebSocket server.
//
// It is created empty with New, configured with Route/File/Zip/Middleware,
// started with Start, and shut down with Stop. Configuration must finish
// before Start; the routing tree is treated as immutable while serving.
type Server struct {
	cfg    config.ServerConfig
	wsCfg  config.WebSocketConfig
	logger *logging.Logger
	tree   *routetree.Tree
	chain  middlewareChain
	hub    *Hub

	mu     sync.Mutex
	state  state
	ln     net.Listener
	cancel context.CancelFunc
	conns  sync.WaitGroup
}

// New creates a server with the given options. Nothing is bound until
// Start is called.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	wsCfg := opts.WebSocket
	wsCfg.Normalise()

	return &Server{
		cfg:    opts.Server,
		wsCfg:  wsCfg,
		logger: logger,
		tree:   routetree.New(),
		hub:    newHub(logger),
		state:  stateIdle,
	}
}

// Start binds a TCP listener on the chosen port (0 = any free port) and
// begins accepting connections.
//
// Parameters:
//   - port: TCP port to bind; 0 selects an ephemeral port
//
// Returns:
//   - int: the actual bound port
//   - error: ErrNotIdle on lifecycle misuse, or the bind failure
func (s *Server) Start(port int) (int, error) {
	s.mu.Lock()
	if s.state != stateIdle && s.state != stateStartError {
		s.mu.Unlock()
		return 0, ErrNotIdle
	}
	s.state = stateStarting
	s.mu.Unlock()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Lock()
		s.state = stateStartError
		s.mu.Unlock()
		return 0, fmt.Errorf("binding listener on %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.ln = ln
	s.cancel = cancel
	s.state = stateStarted
	s.mu.Unlock()

	actual := ln.Addr().(*net.TCPAddr).Port
	s.logger.Info("server started",
		"address", ln.Addr().String(),
		"native_transport", s.cfg.NativeTransport,
	)

	go s.acceptLoop(ctx, ln)
	return actual, nil
}

// Stop shuts the server down in order: disconnect all WebSocket peers,
// close the listening socket, then wait for in-flight connections up to
// the shutdown timeout.
//
// Returns:
//   - error: ErrNotStarted on lifecycle misuse
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.state != stateStarted && s.state != stateStartError {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = stateStopping
	ln := s.ln
	cancel := s.cancel
	s.ln = nil
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("server shutting down")
	s.hub.Disconnect()
	if ln != nil {
		//nolint:errcheck // Best-effort close; the listener may already be gone
		ln.Close()
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	timeout := s.cfg.ShutdownTimeout()
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn("shutdown timed out waiting for connections")
	}

	s.mu.Lock()
	s.state = stateIdle
	s.mu.Unlock()
	return nil
}

// Broadcast fans a text frame out to every connected WebSocket peer.
// Peers whose write fails are dropped from the registry; the call never
// blocks on peer I/O.
func (s *Server) Broadcast(text string) {
	s.hub.Broadcast(text, nil)
}

// BroadcastSync sends a text frame to every peer in registration order,
// awaiting each write before moving on. It returns the joined per-peer
// write errors; failed peers are dropped.
func (s *Server) BroadcastSync(text string) error {
	return s.hub.BroadcastSync(text)
}

// Peers returns the number of connected WebSocket peers.
func (s *Server) Peers() int {
	return s.hub.PeerCount()
}

// acceptLoop accepts connections until the listener closes.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}
		s.conns.Add(1)
		go s.serveConn(ctx, conn)
	}
}

// editable reports whether configuration may change in the current
// lifecycle state.
func (s *Server) editable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateIdle && s.state != stateStartError {
		return ErrNotEditable
	}
	return nil
}
