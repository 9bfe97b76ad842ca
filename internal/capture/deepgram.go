package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const deepgramListenURL = "https://api.deepgram.com/v1/listen"

// DeepgramTranscriber implements Transcriber against Deepgram's
// prerecorded transcription API: one HTTP request per captured segment.
type DeepgramTranscriber struct {
	apiKey     string
	model      string
	language   string
	baseURL    string
	httpClient *http.Client
}

// DeepgramConfig holds configuration for the Deepgram transcriber.
type DeepgramConfig struct {
	APIKey     string
	Model      string // e.g. "nova-3"
	Language   string // e.g. "en"
	BaseURL    string // override for tests; defaults to the public API
	HTTPClient *http.Client
}

// NewDeepgramTranscriber creates a transcriber with sensible defaults.
func NewDeepgramTranscriber(cfg DeepgramConfig) *DeepgramTranscriber {
	model := cfg.Model
	if model == "" {
		model = "nova-3"
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = deepgramListenURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &DeepgramTranscriber{
		apiKey:     cfg.APIKey,
		model:      model,
		language:   language,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// deepgramResponse is the subset of the prerecorded API response we read.
type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe sends the segment as raw linear16 audio and returns the
// transcript of the best alternative. An empty transcript maps to
// ErrUnintelligible; transport and API failures map to *ServiceError.
func (c *DeepgramTranscriber) Transcribe(ctx context.Context, seg Segment) (string, error) {
	url := fmt.Sprintf("%s?model=%s&language=%s&encoding=linear16&sample_rate=%d&channels=1",
		c.baseURL, c.model, c.language, seg.SampleRate)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(EncodePCM16(seg.PCM)))
	if err != nil {
		return "", &ServiceError{Op: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ServiceError{Op: "transcribe", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &ServiceError{
			Op:  "transcribe",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var parsed deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &ServiceError{Op: "decode response", Err: err}
	}

	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", ErrUnintelligible
	}
	transcript := strings.TrimSpace(parsed.Results.Channels[0].Alternatives[0].Transcript)
	if transcript == "" {
		return "", ErrUnintelligible
	}
	return transcript, nil
}
