package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/calcvoice/calcvoice/internal/capture"
	"github.com/calcvoice/calcvoice/internal/eventlog"
	"github.com/calcvoice/calcvoice/internal/intent"
)

// fakeRecorder captures the audit trail synchronously.
type fakeRecorder struct {
	mu     sync.Mutex
	events []eventlog.EventType
}

func (r *fakeRecorder) LogAsync(sessionID string, eventType eventlog.EventType, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *fakeRecorder) seen(eventType eventlog.EventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == eventType {
			return true
		}
	}
	return false
}

// scriptedTranscriber returns canned transcripts in order, then
// ErrUnintelligible.
type scriptedTranscriber struct {
	mu          sync.Mutex
	transcripts []string
	err         error
	calls       int
}

func (s *scriptedTranscriber) Transcribe(ctx context.Context, seg capture.Segment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.transcripts) == 0 {
		return "", capture.ErrUnintelligible
	}
	tr := s.transcripts[0]
	s.transcripts = s.transcripts[1:]
	return tr, nil
}

func (s *scriptedTranscriber) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// failingDevice errors on every call, simulating a lost audio source.
type failingDevice struct{ err error }

func (d *failingDevice) Calibrate(ctx context.Context, dur time.Duration) (float64, error) {
	return 0, d.err
}

func (d *failingDevice) Acquire(ctx context.Context, timeout, maxDuration time.Duration) (capture.Segment, error) {
	return capture.Segment{}, d.err
}

func (d *failingDevice) Close() error { return nil }

type recordingNotifier struct {
	mu   sync.Mutex
	errs []error
}

func (n *recordingNotifier) NotifySessionError(sessionID string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errs)
}

var testModel = func() *intent.Model {
	m, err := intent.BuildModel(intent.DefaultSamples())
	if err != nil {
		panic(err)
	}
	return m
}()

func loudSegment() capture.Segment {
	pcm := make([]int16, 1600)
	for i := range pcm {
		pcm[i] = 2000
	}
	return capture.Segment{PCM: pcm, SampleRate: 16000}
}

func silentSegment() capture.Segment {
	return capture.Segment{PCM: make([]int16, 1600), SampleRate: 16000}
}

func newTestEngine(dev capture.Device, tr capture.Transcriber, mutate func(*Config)) *Engine {
	cfg := Config{
		Device:            dev,
		Transcriber:       tr,
		Interpreter:       intent.NewInterpreter(testModel),
		CalibrationWindow: 10 * time.Millisecond,
		AcquireTimeout:    100 * time.Millisecond,
		GapTimeout:        10 * time.Second,
		StopWait:          2 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewEngine(cfg)
}

func waitEvent(t *testing.T, ch <-chan Event, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatal("event feed closed")
			}
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func waitResult(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	return waitEvent(t, ch, func(ev Event) bool { return ev.Type == "result" })
}

func waitState(t *testing.T, e *Engine, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if e.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("engine state = %v, want %v", e.State(), want)
}

func TestEngineUtteranceFlow(t *testing.T) {
	dev := capture.NewStreamDevice(16000)
	tr := &scriptedTranscriber{transcripts: []string{"seven times five"}}
	e := newTestEngine(dev, tr, nil)

	events, cancel := e.Subscribe()
	defer cancel()

	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitState(t, e, StateListening)

	dev.Push(loudSegment())
	ev := waitResult(t, events)
	if ev.Action != "append_expression" {
		t.Errorf("action = %q, want append_expression", ev.Action)
	}
	if ev.Expression == nil || *ev.Expression != "7*5" {
		t.Errorf("expression = %v, want 7*5", ev.Expression)
	}
	if ev.Raw != "seven times five" {
		t.Errorf("raw = %q", ev.Raw)
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if e.State() != StateIdle {
		t.Errorf("state after Stop = %v, want Idle", e.State())
	}
}

func TestEngineSilentSegmentSkipsTranscriber(t *testing.T) {
	dev := capture.NewStreamDevice(16000)
	tr := &scriptedTranscriber{transcripts: []string{"should never be used"}}
	e := newTestEngine(dev, tr, nil)

	events, cancel := e.Subscribe()
	defer cancel()

	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitState(t, e, StateListening)

	dev.Push(silentSegment())
	waitEvent(t, events, func(ev Event) bool {
		return ev.Type == "status" && strings.Contains(ev.Message, "energy gate")
	})
	if got := tr.callCount(); got != 0 {
		t.Errorf("transcriber calls = %d, want 0 for silent segment", got)
	}
	e.Stop()
}

func TestEngineAuditTrail(t *testing.T) {
	dev := capture.NewStreamDevice(16000)
	tr := &scriptedTranscriber{transcripts: []string{"seven times five"}}
	rec := &fakeRecorder{}
	e := newTestEngine(dev, tr, func(cfg *Config) {
		cfg.Recorder = rec
	})

	events, cancel := e.Subscribe()
	defer cancel()

	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitState(t, e, StateListening)

	dev.Push(loudSegment())
	waitResult(t, events)
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	for _, want := range []eventlog.EventType{
		eventlog.EventSessionStarted,
		eventlog.EventCalibrated,
		eventlog.EventListening,
		eventlog.EventUtterance,
		eventlog.EventIntentResolved,
		eventlog.EventSessionStopped,
	} {
		if !rec.seen(want) {
			t.Errorf("audit trail missing %q", want)
		}
	}
}

func TestEngineBufferStitching(t *testing.T) {
	dev := capture.NewStreamDevice(16000)
	tr := &scriptedTranscriber{transcripts: []string{"three plus four", "times nine"}}
	e := newTestEngine(dev, tr, nil)

	events, cancel := e.Subscribe()
	defer cancel()

	e.Start()
	waitState(t, e, StateListening)

	dev.Push(loudSegment())
	first := waitResult(t, events)
	if first.Expression == nil || *first.Expression != "3+4" {
		t.Fatalf("first expression = %v, want 3+4", first.Expression)
	}

	dev.Push(loudSegment())
	second := waitResult(t, events)
	if second.Expression == nil || *second.Expression != "3+4 9" {
		t.Errorf("stitched expression = %v, want %q", second.Expression, "3+4 9")
	}
	e.Stop()
}

func TestEngineBufferResetAfterGap(t *testing.T) {
	dev := capture.NewStreamDevice(16000)
	tr := &scriptedTranscriber{transcripts: []string{"three plus four", "times nine"}}
	e := newTestEngine(dev, tr, func(cfg *Config) {
		cfg.GapTimeout = 20 * time.Millisecond
	})

	events, cancel := e.Subscribe()
	defer cancel()

	e.Start()
	waitState(t, e, StateListening)

	dev.Push(loudSegment())
	waitResult(t, events)

	time.Sleep(60 * time.Millisecond)
	dev.Push(loudSegment())
	second := waitResult(t, events)
	if second.Expression == nil || *second.Expression != "9" {
		t.Errorf("post-gap expression = %v, want %q", second.Expression, "9")
	}
	e.Stop()
}

func TestEngineCalculateEmptiesBuffer(t *testing.T) {
	dev := capture.NewStreamDevice(16000)
	tr := &scriptedTranscriber{transcripts: []string{"three plus four", "equals", "five"}}
	e := newTestEngine(dev, tr, nil)

	events, cancel := e.Subscribe()
	defer cancel()

	e.Start()
	waitState(t, e, StateListening)

	dev.Push(loudSegment())
	waitResult(t, events)

	dev.Push(loudSegment())
	calc := waitResult(t, events)
	if calc.Action != "calculate" {
		t.Fatalf("action = %q, want calculate", calc.Action)
	}
	if calc.Expression == nil || *calc.Expression != "3+4" {
		t.Errorf("calculate expression = %v, want 3+4", calc.Expression)
	}

	// buffer must start fresh after calculate
	dev.Push(loudSegment())
	next := waitResult(t, events)
	if next.Expression == nil || *next.Expression != "5" {
		t.Errorf("post-calculate expression = %v, want 5", next.Expression)
	}
	e.Stop()
}

func TestEngineStopIntent(t *testing.T) {
	dev := capture.NewStreamDevice(16000)
	tr := &scriptedTranscriber{transcripts: []string{"stop listening"}}
	e := newTestEngine(dev, tr, nil)

	events, cancel := e.Subscribe()
	defer cancel()

	e.Start()
	waitState(t, e, StateListening)

	dev.Push(loudSegment())
	ev := waitResult(t, events)
	if ev.Action != "stop" {
		t.Fatalf("action = %q, want stop", ev.Action)
	}
	waitState(t, e, StateIdle)
}

func TestEngineUnintelligibleContinues(t *testing.T) {
	dev := capture.NewStreamDevice(16000)
	tr := &scriptedTranscriber{} // always unintelligible
	e := newTestEngine(dev, tr, nil)

	events, cancel := e.Subscribe()
	defer cancel()

	e.Start()
	waitState(t, e, StateListening)

	dev.Push(loudSegment())
	waitEvent(t, events, func(ev Event) bool {
		return ev.Type == "status" && ev.Level == LevelWarning
	})
	if e.State() != StateListening {
		t.Errorf("state = %v, want still Listening", e.State())
	}
	e.Stop()
}

func TestEngineServiceErrorIsFatal(t *testing.T) {
	dev := capture.NewStreamDevice(16000)
	svcErr := &capture.ServiceError{Op: "transcribe", Err: errors.New("backend down")}
	tr := &scriptedTranscriber{err: svcErr}
	notifier := &recordingNotifier{}
	e := newTestEngine(dev, tr, func(cfg *Config) {
		cfg.Notifier = notifier
	})

	e.Start()
	waitState(t, e, StateListening)

	dev.Push(loudSegment())
	waitState(t, e, StateError)
	if notifier.count() != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.count())
	}
}

func TestEngineCalibrationFailureIsFatal(t *testing.T) {
	dev := &failingDevice{err: errors.New("device unplugged")}
	e := newTestEngine(dev, &scriptedTranscriber{}, nil)

	if err := e.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitState(t, e, StateError)
}

func TestEngineStartWithoutDevice(t *testing.T) {
	e := newTestEngine(nil, &scriptedTranscriber{}, func(cfg *Config) {
		cfg.Device = nil
	})
	if err := e.Start(); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Start() error = %v, want ErrNoDevice", err)
	}
	if e.State() != StateError {
		t.Errorf("state = %v, want Error", e.State())
	}
}

func TestEngineStartWhileRunning(t *testing.T) {
	dev := capture.NewStreamDevice(16000)
	e := newTestEngine(dev, &scriptedTranscriber{}, nil)

	events, cancel := e.Subscribe()
	defer cancel()

	e.Start()
	waitState(t, e, StateListening)
	firstSession := e.SessionID()

	if err := e.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	waitEvent(t, events, func(ev Event) bool {
		return ev.Type == "status" && ev.Message == "already listening"
	})
	if e.SessionID() != firstSession {
		t.Error("second Start must not begin a new session")
	}
	e.Stop()
}

func TestEngineStopWhenIdle(t *testing.T) {
	e := newTestEngine(capture.NewStreamDevice(16000), &scriptedTranscriber{}, nil)

	events, cancel := e.Subscribe()
	defer cancel()

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() on idle engine error = %v", err)
	}
	waitEvent(t, events, func(ev Event) bool {
		return ev.Type == "status" && ev.State == "idle"
	})
}

func TestEngineInterpretBypassesBuffer(t *testing.T) {
	e := newTestEngine(capture.NewStreamDevice(16000), &scriptedTranscriber{}, nil)

	res := e.Interpret("seven times five")
	if res.Action != intent.ActionAppendExpression {
		t.Errorf("action = %q, want append_expression", res.Action)
	}
	if res.Expression == nil || *res.Expression != "7*5" {
		t.Errorf("expression = %v, want 7*5", res.Expression)
	}
}
