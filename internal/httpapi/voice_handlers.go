package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/calcvoice/calcvoice/internal/intent"
	"github.com/calcvoice/calcvoice/internal/store"
	"github.com/calcvoice/calcvoice/internal/voice"
)

// statusResponse is the payload for GET /voice/status.
type statusResponse struct {
	State            string   `json:"state"`
	SessionID        string   `json:"session_id,omitempty"`
	DeviceAvailable  bool     `json:"device_available"`
	DeviceConnected  bool     `json:"device_connected"`
	SupportedIntents []string `json:"supported_intents"`
}

func (r *Router) handleVoiceStart(w http.ResponseWriter, req *http.Request) {
	if err := r.engine.Start(); err != nil {
		if errors.Is(err, voice.ErrNoDevice) {
			writeError(w, http.StatusConflict, "no capture device available")
			return
		}
		captureError(req, err, "voice start failed")
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"state":      r.engine.State().String(),
		"session_id": r.engine.SessionID(),
	})
}

func (r *Router) handleVoiceStop(w http.ResponseWriter, req *http.Request) {
	if err := r.engine.Stop(); err != nil {
		captureError(req, err, "voice stop failed")
		writeError(w, http.StatusInternalServerError, "failed to stop session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": r.engine.State().String()})
}

func (r *Router) handleVoiceStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		State:            r.engine.State().String(),
		SessionID:        r.engine.SessionID(),
		DeviceAvailable:  r.engine.DeviceAvailable(),
		DeviceConnected:  r.device != nil && r.device.Connected(),
		SupportedIntents: intent.Labels,
	})
}

// handleVoiceInterpret runs the text pipeline synchronously, bypassing
// the capture loop and the fragment buffer.
func (r *Router) handleVoiceInterpret(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Transcript) == "" {
		writeError(w, http.StatusBadRequest, "transcript is required")
		return
	}
	writeJSON(w, http.StatusOK, r.engine.Interpret(body.Transcript))
}

// handleListUtterances returns interpreted utterances, newest first,
// optionally filtered to one session.
func (r *Router) handleListUtterances(w http.ResponseWriter, req *http.Request) {
	limit := 0
	if raw := req.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	utterances, err := r.store.ListUtterances(req.Context(), req.URL.Query().Get("session_id"), limit)
	if err != nil {
		captureError(req, err, "failed to list utterances")
		writeError(w, http.StatusInternalServerError, "failed to list utterances")
		return
	}
	if utterances == nil {
		utterances = []store.Utterance{}
	}
	writeJSON(w, http.StatusOK, utterances)
}
