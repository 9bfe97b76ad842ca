package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/calcvoice/calcvoice/internal/capture"
	"github.com/calcvoice/calcvoice/internal/eventlog"
	"github.com/calcvoice/calcvoice/internal/jobs"
	"github.com/calcvoice/calcvoice/internal/store"
	"github.com/calcvoice/calcvoice/internal/voice"
)

type RouterConfig struct {
	// JWT Authentication
	JWTSecret string
	JWTExpiry time.Duration

	// Admin access for the training API
	AdminPassword string

	// Event feed keepalive for SSE and websocket consumers
	KeepaliveInterval time.Duration
}

type Router struct {
	cfg      RouterConfig
	logger   *log.Logger
	store    *store.Store
	eventLog *eventlog.Logger
	engine   *voice.Engine
	device   *capture.StreamDevice
	retrain  *jobs.RetrainJob
	mux      *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, s *store.Store, eventLog *eventlog.Logger, engine *voice.Engine, device *capture.StreamDevice, retrain *jobs.RetrainJob) http.Handler {
	if cfg.KeepaliveInterval == 0 {
		cfg.KeepaliveInterval = 20 * time.Second
	}
	r := &Router{
		cfg:      cfg,
		logger:   logger,
		store:    s,
		eventLog: eventLog,
		engine:   engine,
		device:   device,
		retrain:  retrain,
		mux:      http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health check
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)

	// Session control
	r.mux.HandleFunc("POST /voice/start", r.handleVoiceStart)
	r.mux.HandleFunc("POST /voice/stop", r.handleVoiceStop)
	r.mux.HandleFunc("GET /voice/status", r.handleVoiceStatus)
	r.mux.HandleFunc("POST /voice/interpret", r.handleVoiceInterpret)
	r.mux.HandleFunc("GET /voice/utterances", r.withAuth(r.handleListUtterances))

	// Event feed
	r.mux.HandleFunc("GET /voice/stream", r.handleVoiceStream)
	r.mux.HandleFunc("GET /voice/ws", r.handleVoiceWS)

	// Audio ingest (websocket, binary PCM frames)
	r.mux.HandleFunc("GET /voice/media", r.handleMediaWS)

	// Auth endpoints (public)
	r.mux.HandleFunc("POST /auth/login", r.handleLogin)

	// Training corpus (protected)
	r.mux.HandleFunc("GET /training/labels", r.handleTrainingLabels)
	r.mux.HandleFunc("GET /training/samples", r.withAuth(r.handleListSamples))
	r.mux.HandleFunc("POST /training/samples", r.withAuth(r.handleAddSample))
	r.mux.HandleFunc("DELETE /training/samples/{id}", r.withAuth(r.handleDeleteSample))
	r.mux.HandleFunc("POST /training/import", r.withAuth(r.handleImportSamples))
	r.mux.HandleFunc("POST /training/retrain", r.withAuth(r.handleRetrain))
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
