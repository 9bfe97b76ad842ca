package voice

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/calcvoice/calcvoice/internal/capture"
	"github.com/calcvoice/calcvoice/internal/eventlog"
	"github.com/calcvoice/calcvoice/internal/intent"
	"github.com/calcvoice/calcvoice/internal/store"
)

// ErrNoDevice reports that start was called with no capture device wired.
var ErrNoDevice = errors.New("voice: no capture device available")

// Recorder persists session events out of band. *eventlog.Logger
// satisfies it.
type Recorder interface {
	LogAsync(sessionID string, eventType eventlog.EventType, data map[string]any)
}

// UtteranceStore persists interpreted utterances. *store.Store satisfies
// it.
type UtteranceStore interface {
	InsertUtterance(ctx context.Context, u store.Utterance) error
}

// Notifier reports session-fatal failures to an external channel.
type Notifier interface {
	NotifySessionError(sessionID string, err error)
}

// Config wires the engine's collaborators and tuning knobs. Zero tuning
// values fall back to defaults.
type Config struct {
	Device      capture.Device
	Transcriber capture.Transcriber
	Interpreter *intent.Interpreter
	Logger      *log.Logger
	Recorder    Recorder
	Utterances  UtteranceStore
	Notifier    Notifier

	// EnergyThreshold is the minimum RMS (16-bit scale) a segment must
	// reach to be transcribed. Calibration can only raise the gate.
	EnergyThreshold float64
	// GapTimeout is the maximum silence between fragments of one burst.
	GapTimeout time.Duration
	// AcquireTimeout bounds the wait for the next segment so the
	// cancellation flag is rechecked even during silence.
	AcquireTimeout time.Duration
	// MaxSegment caps the length of a single utterance.
	MaxSegment time.Duration
	// CalibrationWindow is how long ambient noise is measured at start.
	CalibrationWindow time.Duration
	// StopWait bounds how long Stop blocks for the worker to exit.
	StopWait time.Duration
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	if c.EnergyThreshold == 0 {
		c.EnergyThreshold = 150
	}
	if c.GapTimeout == 0 {
		c.GapTimeout = 1500 * time.Millisecond
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = 3 * time.Second
	}
	if c.MaxSegment == 0 {
		c.MaxSegment = 7 * time.Second
	}
	if c.CalibrationWindow == 0 {
		c.CalibrationWindow = 1500 * time.Millisecond
	}
	if c.StopWait == 0 {
		c.StopWait = 3 * time.Second
	}
	return c
}

// Engine owns the capture loop and all cross-utterance session state.
// State transitions and fragment-buffer mutations happen on the worker
// goroutine; Start and Stop only touch the state under the mutex.
type Engine struct {
	cfg    Config
	hub    *Hub
	logger *log.Logger

	mu        sync.Mutex
	state     State
	sessionID string
	cancel    context.CancelFunc
	done      chan struct{}

	// fragment buffer, worker-only
	fragments    []string
	lastFragment time.Time

	now func() time.Time
}

// NewEngine creates an engine in the Idle state.
func NewEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:    cfg,
		hub:    NewHub(cfg.Logger),
		logger: cfg.Logger,
		state:  StateIdle,
		now:    time.Now,
	}
}

// Subscribe attaches a consumer to the session event feed.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	return e.hub.Subscribe()
}

// State returns the current session state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SessionID returns the identifier of the current or most recent session.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// DeviceAvailable reports whether a capture device is wired.
func (e *Engine) DeviceAvailable() bool {
	return e.cfg.Device != nil
}

// Interpret runs the text pipeline synchronously, bypassing the capture
// loop and the fragment buffer.
func (e *Engine) Interpret(transcript string) intent.Result {
	return e.cfg.Interpreter.Interpret(transcript)
}

// Start begins a capture session. Calling it while one is running is a
// no-op; a missing capture device fails fast without spawning a worker.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.state.Running() {
		e.mu.Unlock()
		e.publishStatus(LevelInfo, "already listening")
		return nil
	}
	if e.cfg.Device == nil {
		e.state = StateError
		e.mu.Unlock()
		e.publishStatus(LevelError, "no capture device available")
		return ErrNoDevice
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.sessionID = newSessionID()
	e.state = StateCalibrating
	e.fragments = nil
	e.lastFragment = time.Time{}
	sessionID := e.sessionID
	e.mu.Unlock()

	e.publishStatus(LevelInfo, "calibrating")
	e.record(eventlog.EventSessionStarted, map[string]any{"session_id": sessionID})
	go e.run(ctx, done)
	return nil
}

// Stop cancels the capture loop and blocks, bounded by StopWait, until
// the worker exits. Idempotent; stopping an idle engine just re-emits
// the current state.
func (e *Engine) Stop() error {
	e.mu.Lock()
	switch e.state {
	case StateIdle, StateError:
		state := e.state
		e.mu.Unlock()
		e.publishStatus(LevelInfo, "session is "+state.String())
		return nil
	case StateStopping:
		done := e.done
		e.mu.Unlock()
		e.waitForWorker(done)
		return nil
	}
	e.state = StateStopping
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	e.publishStatus(LevelInfo, "stopping")
	cancel()
	e.waitForWorker(done)
	e.setState(StateIdle, LevelInfo, "stopped")
	e.record(eventlog.EventSessionStopped, nil)
	return nil
}

func (e *Engine) waitForWorker(done chan struct{}) {
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(e.cfg.StopWait):
		e.logger.Printf("voice: capture worker did not exit within %s", e.cfg.StopWait)
	}
}

// run is the capture loop. It owns all state transitions after start,
// except the external Stop path.
func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	floor, err := e.cfg.Device.Calibrate(ctx, e.cfg.CalibrationWindow)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.fail("calibration failed", err)
		return
	}
	threshold := e.cfg.EnergyThreshold
	if adaptive := floor * 2; adaptive > threshold {
		threshold = adaptive
	}
	e.setState(StateListening, LevelInfo, fmt.Sprintf("listening (noise floor %.0f, gate %.0f)", floor, threshold))
	e.record(eventlog.EventCalibrated, map[string]any{"noise_floor": floor, "threshold": threshold})
	e.record(eventlog.EventListening, nil)

	for {
		if ctx.Err() != nil {
			return
		}
		seg, err := e.cfg.Device.Acquire(ctx, e.cfg.AcquireTimeout, e.cfg.MaxSegment)
		switch {
		case err == nil:
		case errors.Is(err, capture.ErrAcquireTimeout):
			continue
		case ctx.Err() != nil:
			return
		default:
			e.fail("capture device lost", err)
			return
		}

		if rms := seg.RMS(); rms < threshold {
			e.publishStatus(LevelDebug, "segment below energy gate, discarded")
			e.record(eventlog.EventSegmentDiscarded, map[string]any{"rms": rms, "threshold": threshold})
			continue
		}

		transcript, err := e.cfg.Transcriber.Transcribe(ctx, seg)
		if err != nil {
			if errors.Is(err, capture.ErrUnintelligible) {
				e.publishStatus(LevelWarning, "could not understand audio")
				e.record(eventlog.EventUnintelligible, nil)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			e.fail("transcription failed", err)
			return
		}

		e.record(eventlog.EventUtterance, map[string]any{"transcript": transcript})
		res := e.cfg.Interpreter.Interpret(transcript)
		e.emitResult(res)

		if res.Action == intent.ActionStop {
			e.finishFromWorker()
			return
		}
	}
}

// emitResult applies the fragment-buffer policy and publishes exactly
// one result event for the utterance.
func (e *Engine) emitResult(res intent.Result) {
	now := e.now()
	ev := Event{
		Type:                 "result",
		Raw:                  res.Raw,
		Intent:               res.Intent,
		Confidence:           res.Confidence,
		Action:               string(res.Action),
		Expression:           res.Expression,
		ExpressionConfidence: res.ExpressionConfidence,
		Timestamp:            now,
	}

	switch res.Action {
	case intent.ActionAppendExpression:
		if !e.lastFragment.IsZero() && now.Sub(e.lastFragment) > e.cfg.GapTimeout {
			e.fragments = e.fragments[:0]
		}
		if res.Expression != nil {
			e.fragments = append(e.fragments, *res.Expression)
		}
		e.lastFragment = now
		joined := strings.Join(e.fragments, " ")
		ev.Expression = &joined

	case intent.ActionCalculate:
		joined := strings.Join(e.fragments, " ")
		e.fragments = e.fragments[:0]
		e.lastFragment = time.Time{}
		if joined == "" && res.Expression != nil {
			joined = *res.Expression
		}
		if joined != "" {
			ev.Expression = &joined
		} else {
			ev.Expression = nil
		}

	case intent.ActionClear:
		e.fragments = e.fragments[:0]
		e.lastFragment = time.Time{}
		ev.Expression = nil

	case intent.ActionBackspace, intent.ActionStop:
		e.fragments = e.fragments[:0]
		e.lastFragment = time.Time{}

	case intent.ActionNoop:
		// buffer untouched
	}

	e.hub.Publish(ev)
	e.record(eventlog.EventIntentResolved, map[string]any{
		"intent":     ev.Intent,
		"confidence": ev.Confidence,
		"action":     ev.Action,
	})
	e.storeUtterance(ev)
}

// storeUtterance persists the result without blocking the capture loop.
func (e *Engine) storeUtterance(ev Event) {
	if e.cfg.Utterances == nil {
		return
	}
	u := store.Utterance{
		SessionID:            e.SessionID(),
		Raw:                  ev.Raw,
		Intent:               ev.Intent,
		Confidence:           ev.Confidence,
		Action:               ev.Action,
		Expression:           ev.Expression,
		ExpressionConfidence: ev.ExpressionConfidence,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.cfg.Utterances.InsertUtterance(ctx, u); err != nil {
			e.logger.Printf("voice: store utterance: %v", err)
		}
	}()
}

// finishFromWorker handles a spoken stop intent: the worker transitions
// Stopping then Idle itself and exits. If an external Stop already set
// Stopping, it wins and will declare Idle after the worker's exit.
func (e *Engine) finishFromWorker() {
	e.mu.Lock()
	if e.state == StateStopping {
		e.mu.Unlock()
		return
	}
	e.state = StateStopping
	cancel := e.cancel
	e.mu.Unlock()

	e.publishStatus(LevelInfo, "stop intent received")
	cancel()
	e.setState(StateIdle, LevelInfo, "stopped")
	e.record(eventlog.EventSessionStopped, nil)
}

// fail transitions to Error and surfaces the cause. Only session-fatal
// conditions reach here.
func (e *Engine) fail(msg string, err error) {
	e.logger.Printf("voice: %s: %v", msg, err)
	sentry.CaptureException(err)
	e.setState(StateError, LevelError, msg+": "+err.Error())
	e.record(eventlog.EventSessionError, map[string]any{"error": err.Error()})
	if e.cfg.Notifier != nil {
		e.cfg.Notifier.NotifySessionError(e.SessionID(), err)
	}
}

func (e *Engine) setState(to State, level, msg string) {
	e.mu.Lock()
	e.state = to
	e.mu.Unlock()
	e.publishStatus(level, msg)
}

func (e *Engine) publishStatus(level, msg string) {
	if level == LevelWarning || level == LevelError {
		e.logger.Printf("voice: %s", msg)
	}
	e.hub.Publish(Event{
		Type:      "status",
		Message:   msg,
		Level:     level,
		State:     e.State().String(),
		Timestamp: e.now(),
	})
}

func (e *Engine) record(eventType eventlog.EventType, data map[string]any) {
	if e.cfg.Recorder == nil {
		return
	}
	e.cfg.Recorder.LogAsync(e.SessionID(), eventType, data)
}

func newSessionID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("sess-%d", time.Now().UnixNano())
	}
	return "sess-" + hex.EncodeToString(buf)
}
