package wicket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsPair upgrades one connection against a plain test server and returns
// both ends. No read loop runs on the server side, so the peer stays in
// whatever registry the test puts it in until a write fails.
func wsPair(t *testing.T) (server, client *websocket.Conn) {
	t.Helper()

	upgraded := make(chan *websocket.Conn, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		upgraded <- ws
	}))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s): %v", url, err)
	}
	t.Cleanup(func() {
		//nolint:errcheck // Session may already be gone
		c.Close()
	})

	select {
	case s := <-upgraded:
		t.Cleanup(func() {
			//nolint:errcheck // Session may already be gone
			s.Close()
		})
		return s, c
	case <-time.After(2 * time.Second):
		t.Fatal("no upgraded connection within deadline")
		return nil, nil
	}
}

// waitForCount polls the registry until it reaches want, or fails.
func waitForCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.PeerCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("PeerCount() = %d, want %d", hub.PeerCount(), want)
}

// A broadcast with a dead peer still registered delivers to the live
// peer, drops only the dead one, and does not raise.
func TestHub_WriteFailureDropsOnlyFailedPeer(t *testing.T) {
	hub := newHub(quietLogger())

	liveSrv, liveClient := wsPair(t)
	deadSrv, _ := wsPair(t)

	live := newPeer(liveSrv, 8)
	dead := newPeer(deadSrv, 8)
	hub.Add(live)
	hub.Add(dead)

	// Sever the dead peer's socket underneath it; its next write fails.
	if err := deadSrv.UnderlyingConn().Close(); err != nil {
		t.Fatalf("severing socket: %v", err)
	}

	failed := make(chan string, 1)
	hub.Broadcast("still delivered", func(p *Peer, _ error) {
		failed <- p.ID()
	})

	//nolint:errcheck // Deadline errors surface via ReadMessage
	liveClient.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := liveClient.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(data) != "still delivered" {
		t.Errorf("live peer received %q", data)
	}

	select {
	case id := <-failed:
		if id != dead.ID() {
			t.Errorf("failure callback for peer %s, want %s", id, dead.ID())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no failure callback within deadline")
	}

	waitForCount(t, hub, 1)
	if !live.active() {
		t.Error("live peer was closed by the dead peer's failure")
	}
}

// The sequential variant reports the failed peer's error and keeps
// delivering to the rest of the registration order.
func TestHub_BroadcastSyncReportsFailedPeer(t *testing.T) {
	hub := newHub(quietLogger())

	deadSrv, _ := wsPair(t)
	liveSrv, liveClient := wsPair(t)

	dead := newPeer(deadSrv, 8)
	live := newPeer(liveSrv, 8)
	hub.Add(dead)
	hub.Add(live)

	if err := deadSrv.UnderlyingConn().Close(); err != nil {
		t.Fatalf("severing socket: %v", err)
	}

	if err := hub.BroadcastSync("ordered"); err == nil {
		t.Error("BroadcastSync() error = nil, want the dead peer's write error")
	}

	//nolint:errcheck // Deadline errors surface via ReadMessage
	liveClient.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := liveClient.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(data) != "ordered" {
		t.Errorf("live peer received %q", data)
	}

	waitForCount(t, hub, 1)
}
