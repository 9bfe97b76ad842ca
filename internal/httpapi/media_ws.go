package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/calcvoice/calcvoice/internal/capture"
)

var mediaUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// mediaControl is a client control frame on the media socket.
type mediaControl struct {
	Event string `json:"event"` // "commit" or "drop"
}

// mediaAck is sent back after each recognized control frame.
type mediaAck struct {
	Event   string `json:"event"`
	Samples int    `json:"samples,omitempty"`
	Error   string `json:"error,omitempty"`
}

// maxPendingSamples caps the accumulated utterance at 10s of 16kHz audio
// so an endless stream without commits cannot grow memory.
const maxPendingSamples = 160000

// handleMediaWS ingests microphone audio for the capture device. Binary
// frames carry little-endian 16-bit PCM and accumulate into the pending
// utterance; a {"event":"commit"} text frame pushes it to the capture
// queue, {"event":"drop"} discards it.
func (r *Router) handleMediaWS(w http.ResponseWriter, req *http.Request) {
	if r.device == nil {
		writeError(w, http.StatusConflict, "no capture device configured")
		return
	}

	conn, err := mediaUpgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("media: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	r.device.SetConnected(true)
	defer r.device.SetConnected(false)
	r.logger.Printf("media: source connected from %s", req.RemoteAddr)

	var pending []int16
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.logger.Printf("media: read failed: %v", err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			pending = append(pending, capture.DecodePCM16(data)...)
			if len(pending) > maxPendingSamples {
				pending = pending[len(pending)-maxPendingSamples:]
			}

		case websocket.TextMessage:
			var ctrl mediaControl
			if err := json.Unmarshal(data, &ctrl); err != nil {
				conn.WriteJSON(mediaAck{Event: "error", Error: "invalid control frame"})
				continue
			}
			switch ctrl.Event {
			case "commit":
				seg := capture.Segment{PCM: pending, SampleRate: r.device.SampleRate()}
				if err := r.device.Push(seg); err != nil {
					conn.WriteJSON(mediaAck{Event: "error", Error: err.Error()})
					return
				}
				conn.WriteJSON(mediaAck{Event: "committed", Samples: len(pending)})
				pending = nil
			case "drop":
				conn.WriteJSON(mediaAck{Event: "dropped", Samples: len(pending)})
				pending = nil
			default:
				conn.WriteJSON(mediaAck{Event: "error", Error: "unknown event: " + ctrl.Event})
			}
		}
	}
}
