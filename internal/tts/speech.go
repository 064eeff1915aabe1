package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultVoice is used when the client requests no voice or one the
// streaming synthesizer cannot serve.
const DefaultVoice = "aura-2-thalia-en"

// Synthesizer produces audio for one sentence of text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Deepgram synthesizes speech via the Deepgram speak REST API.
type Deepgram struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewDeepgram creates a Deepgram synthesizer.
func NewDeepgram(apiKey string) *Deepgram {
	return &Deepgram{
		apiKey:  apiKey,
		baseURL: "https://api.deepgram.com/v1/speak",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Synthesize requests audio for text and returns the full encoded payload.
func (d *Deepgram) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal speak request: %w", err)
	}

	u := d.baseURL + "?model=" + url.QueryEscape(voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build speak request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speak request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("speak request failed: status %d: %s", resp.StatusCode, msg)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speak response: %w", err)
	}
	return audio, nil
}
