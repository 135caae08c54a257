package wicket

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/wicket/logging"
)

// closeWriteWait bounds the write of the final close frame.
const closeWriteWait = 5 * time.Second

// frame is one outbound text frame queued to a peer. The payload is
// encoded once per broadcast; every enqueue shares the same immutable
// slice.
type frame struct {
	data      []byte
	result    chan error         // non-nil for the sequential variant
	onFailure func(*Peer, error) // non-nil when the caller wants failures
}

// Peer is a connected WebSocket endpoint tracked by the registry. All
// writes to the socket go through its write pump, which is the sole
// writer for the connection's data frames.
type Peer struct {
	id   string
	conn *websocket.Conn
	send chan frame

	mu     sync.Mutex
	closed bool
}

// newPeer wraps an upgraded connection.
func newPeer(conn *websocket.Conn, sendBuffer int) *Peer {
	return &Peer{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan frame, sendBuffer),
	}
}

// ID returns the peer's registry identifier.
func (p *Peer) ID() string { return p.id }

// active reports whether the peer's channel is still open.
func (p *Peer) active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// trySend enqueues a frame. It reports false when the channel is closed
// or the buffer is full (slow peer); the frame is dropped in either case.
func (p *Peer) trySend(f frame) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.send <- f:
		return true
	default:
		return false
	}
}

// close closes the send channel exactly once. Only the registry calls it,
// from whichever goroutine removed the peer, so a double close cannot
// happen.
func (p *Peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.send)
}

// writePump writes queued frames to the socket. On a write failure the
// peer is dropped from the registry and the remaining queue is drained so
// sequential broadcasters still get their results; when the registry
// closes the channel cleanly, a normal-closure frame is sent before the
// socket closes.
func (p *Peer) writePump(h *Hub) {
	var failed error
	for f := range p.send {
		if failed != nil {
			if f.result != nil {
				f.result <- failed
			}
			continue
		}
		err := p.conn.WriteMessage(websocket.TextMessage, f.data)
		if f.result != nil {
			f.result <- err
		}
		if err != nil {
			failed = err
			if f.onFailure != nil {
				f.onFailure(p, err)
			} else {
				h.logger.Debug("dropping websocket peer after write failure",
					"peer_id", p.id,
					"error", err,
				)
			}
			// Remove closes the send channel, which ends this loop
			// once the queue drains.
			h.Remove(p)
			//nolint:errcheck // The socket is already broken
			p.conn.Close()
		}
	}
	if failed != nil {
		return
	}
	//nolint:errcheck // Best-effort close frame
	p.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeWriteWait),
	)
	//nolint:errcheck // Closing a closing socket
	p.conn.Close()
}

// Hub is the WebSocket broadcast registry. It tracks connected peers in
// registration order and fans text frames out to them.
//
// The peer slice is snapshotted for iteration, so broadcasts run
// concurrently with registration and removal.
type Hub struct {
	logger *logging.Logger

	mu    sync.RWMutex
	peers []*Peer // registration order
}

// newHub creates an empty registry.
func newHub(logger *logging.Logger) *Hub {
	return &Hub{logger: logger}
}

// Add inserts a peer and starts its write pump.
func (h *Hub) Add(p *Peer) {
	h.mu.Lock()
	h.peers = append(h.peers, p)
	h.mu.Unlock()
	go p.writePump(h)
}

// Remove deletes a peer from the registry. The goroutine that actually
// removes it closes the peer's channel; concurrent calls are safe and
// idempotent.
func (h *Hub) Remove(p *Peer) {
	h.mu.Lock()
	removed := false
	for i, candidate := range h.peers {
		if candidate == p {
			h.peers = append(h.peers[:i], h.peers[i+1:]...)
			removed = true
			break
		}
	}
	h.mu.Unlock()

	if removed {
		p.close()
	}
}

// PeerCount returns the number of registered peers.
func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Broadcast encodes text once and enqueues it to every active peer. A
// peer whose channel has closed is skipped; a peer whose write fails is
// handed to onFailure when set, otherwise dropped silently. The caller
// never blocks on peer I/O.
func (h *Hub) Broadcast(text string, onFailure func(p *Peer, err error)) {
	data := []byte(text)
	for _, p := range h.snapshot() {
		if !p.active() {
			continue
		}
		p.trySend(frame{data: data, onFailure: onFailure})
	}
}

// BroadcastSync sends text to every peer in registration order, awaiting
// each write before moving to the next. Failed peers are dropped by their
// write pumps; the joined errors are returned.
func (h *Hub) BroadcastSync(text string) error {
	data := []byte(text)
	var errs []error
	for _, p := range h.snapshot() {
		if !p.active() {
			continue
		}
		result := make(chan error, 1)
		if !p.trySend(frame{data: data, result: result}) {
			continue
		}
		if err := <-result; err != nil {
			errs = append(errs, fmt.Errorf("peer %s: %w", p.id, err))
		}
	}
	return errors.Join(errs...)
}

// Disconnect sends every peer a normal-closure frame, closes the
// channels, and empties the registry.
func (h *Hub) Disconnect() {
	h.mu.Lock()
	peers := h.peers
	h.peers = nil
	h.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
}

// snapshot copies the peer slice under the read lock.
func (h *Hub) snapshot() []*Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Peer, len(h.peers))
	copy(out, h.peers)
	return out
}
