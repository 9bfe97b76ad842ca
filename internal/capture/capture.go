package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Segment is one captured audio utterance: mono 16-bit PCM samples.
type Segment struct {
	PCM        []int16
	SampleRate int
}

// RMS returns the root-mean-square energy of the segment, on the 16-bit
// sample scale. An empty segment has zero energy.
func (s Segment) RMS() float64 {
	if len(s.PCM) == 0 {
		return 0
	}
	var sum float64
	for _, sample := range s.PCM {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(s.PCM)))
}

// Duration returns the playback length of the segment.
func (s Segment) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.PCM)) * time.Second / time.Duration(s.SampleRate)
}

// Truncate limits the segment to at most maxDuration of audio.
func (s Segment) Truncate(maxDuration time.Duration) Segment {
	if s.SampleRate <= 0 || maxDuration <= 0 {
		return s
	}
	maxSamples := int(maxDuration * time.Duration(s.SampleRate) / time.Second)
	if maxSamples > 0 && len(s.PCM) > maxSamples {
		s.PCM = s.PCM[:maxSamples]
	}
	return s
}

var (
	// ErrAcquireTimeout reports that no speech arrived within the wait
	// window. Transient: the capture loop just retries.
	ErrAcquireTimeout = errors.New("capture: acquire timed out")

	// ErrDeviceClosed reports that the audio source went away.
	ErrDeviceClosed = errors.New("capture: device closed")

	// ErrUnintelligible reports that the backend could not make out any
	// words. Transient: the segment is skipped.
	ErrUnintelligible = errors.New("capture: could not understand audio")
)

// ServiceError wraps a transcription backend failure. Unlike
// ErrUnintelligible this is session-fatal.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("capture: %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Device produces audio segments for the capture loop.
type Device interface {
	// Calibrate measures the ambient noise floor for the given window
	// and returns it. Failures are session-fatal.
	Calibrate(ctx context.Context, d time.Duration) (float64, error)

	// Acquire waits up to timeout for the next segment, returning
	// ErrAcquireTimeout on silence so callers can recheck cancellation.
	// Segments longer than maxDuration are truncated.
	Acquire(ctx context.Context, timeout, maxDuration time.Duration) (Segment, error)

	Close() error
}

// Transcriber converts one audio segment to text. Failures are classified
// into exactly two kinds: ErrUnintelligible for audio the backend could
// not parse, and *ServiceError for everything else.
type Transcriber interface {
	Transcribe(ctx context.Context, seg Segment) (string, error)
}

// DecodePCM16 converts little-endian 16-bit PCM bytes into samples. A
// trailing odd byte is dropped.
func DecodePCM16(raw []byte) []int16 {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
	}
	return samples
}

// EncodePCM16 converts samples into little-endian 16-bit PCM bytes.
func EncodePCM16(samples []int16) []byte {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		raw[2*i] = byte(uint16(s))
		raw[2*i+1] = byte(uint16(s) >> 8)
	}
	return raw
}
