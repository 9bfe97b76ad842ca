package voice

import (
	"log"
	"sync"
	"time"
)

// Event is one entry on the session feed. Type is either "result" (an
// interpreted utterance) or "status" (a lifecycle or diagnostic note).
type Event struct {
	Type string `json:"type"`

	// Result fields.
	Raw                  string  `json:"raw,omitempty"`
	Intent               string  `json:"intent,omitempty"`
	Confidence           float64 `json:"confidence,omitempty"`
	Action               string  `json:"action,omitempty"`
	Expression           *string `json:"expression"`
	ExpressionConfidence float64 `json:"expression_confidence,omitempty"`

	// Status fields.
	Message string `json:"message,omitempty"`
	Level   string `json:"level,omitempty"`
	State   string `json:"state,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Status levels.
const (
	LevelDebug   = "debug"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// subscriberBuffer is the per-subscriber event backlog. A consumer that
// falls further behind costs the producer a bounded wait per event and
// then starts losing events.
const subscriberBuffer = 32

// publishTimeout is how long Publish waits on one full subscriber before
// dropping the event for it.
const publishTimeout = 100 * time.Millisecond

// Hub fans session events out to any number of subscribers. The capture
// worker is the single producer; a stalled consumer delays it by at most
// publishTimeout per event.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	logger *log.Logger
}

// NewHub creates an event hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		subs:   make(map[int]chan Event),
		logger: logger,
	}
}

// Subscribe registers a new consumer. The returned cancel func must be
// called when the consumer goes away; it closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers an event to every subscriber. A subscriber with a full
// backlog gets up to publishTimeout to make room before the event is
// dropped for it; the drop is logged. Holding the mutex for the wait
// keeps cancel from closing a channel mid-send.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		t := time.NewTimer(publishTimeout)
		select {
		case ch <- ev:
		case <-t.C:
			h.logger.Printf("hub: dropping %s event for slow subscriber %d", ev.Type, id)
		}
		t.Stop()
	}
}
