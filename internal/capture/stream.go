package capture

import (
	"context"
	"sync"
	"time"
)

// segmentBuffer is the number of pending utterances kept before the
// oldest is dropped.
const segmentBuffer = 16

// StreamDevice adapts a remote audio feed into the Device interface. A
// transport handler (the media websocket) pushes complete utterance
// segments; the capture loop pulls them with a bounded wait.
type StreamDevice struct {
	sampleRate int
	segments   chan Segment

	mu        sync.Mutex
	closed    bool
	connected bool
}

// NewStreamDevice creates a device expecting audio at the given rate.
func NewStreamDevice(sampleRate int) *StreamDevice {
	return &StreamDevice{
		sampleRate: sampleRate,
		segments:   make(chan Segment, segmentBuffer),
	}
}

// SampleRate returns the PCM rate the device expects.
func (d *StreamDevice) SampleRate() int { return d.sampleRate }

// SetConnected records whether a media source is currently attached.
func (d *StreamDevice) SetConnected(connected bool) {
	d.mu.Lock()
	d.connected = connected
	d.mu.Unlock()
}

// Connected reports whether a media source is attached.
func (d *StreamDevice) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Push queues one complete utterance segment. When the queue is full the
// oldest segment is dropped so a stalled capture loop cannot grow memory.
func (d *StreamDevice) Push(seg Segment) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	for {
		select {
		case d.segments <- seg:
			return nil
		default:
			select {
			case <-d.segments:
			default:
			}
		}
	}
}

// Calibrate measures the ambient noise floor: the mean energy of whatever
// arrives during the window. Silence calibrates to zero; that is fine.
func (d *StreamDevice) Calibrate(ctx context.Context, duration time.Duration) (float64, error) {
	deadline := time.NewTimer(duration)
	defer deadline.Stop()

	var sum float64
	var n int
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case seg, ok := <-d.segments:
			if !ok {
				return 0, ErrDeviceClosed
			}
			sum += seg.RMS()
			n++
		case <-deadline.C:
			if n == 0 {
				return 0, nil
			}
			return sum / float64(n), nil
		}
	}
}

// Acquire waits up to timeout for the next segment.
func (d *StreamDevice) Acquire(ctx context.Context, timeout, maxDuration time.Duration) (Segment, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Segment{}, ctx.Err()
	case <-timer.C:
		return Segment{}, ErrAcquireTimeout
	case seg, ok := <-d.segments:
		if !ok {
			return Segment{}, ErrDeviceClosed
		}
		return seg.Truncate(maxDuration), nil
	}
}

// Close releases the device. Pending Acquire calls return
// ErrDeviceClosed.
func (d *StreamDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	close(d.segments)
	return nil
}
