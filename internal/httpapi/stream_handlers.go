package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// handleVoiceStream serves the session event feed over SSE. Each event
// is one JSON object; a ping event with an empty payload is emitted
// after KeepaliveInterval without traffic.
func (r *Router) handleVoiceStream(w http.ResponseWriter, req *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Subscribe before the headers go out so no event published after
	// the client sees 200 is lost.
	events, cancel := r.engine.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTimer(r.cfg.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-req.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			body, err := json.Marshal(ev)
			if err != nil {
				r.logger.Printf("stream: marshal event: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, body)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		}
		keepalive.Reset(r.cfg.KeepaliveInterval)
	}
}

var feedUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleVoiceWS serves the same event feed over a websocket for clients
// that prefer a bidirectional transport. Keepalive uses ws ping frames.
func (r *Router) handleVoiceWS(w http.ResponseWriter, req *http.Request) {
	events, cancel := r.engine.Subscribe()
	defer cancel()

	conn, err := feedUpgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("ws feed: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close is noticed and control frames are
	// processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	keepalive := time.NewTicker(r.cfg.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-done:
			return
		case ev, open := <-events:
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-keepalive.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
