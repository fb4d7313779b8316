// Package xtts implements the Engine interface against a Coqui-style TTS
// HTTP server hosting a multilingual multi-speaker model (XTTS v2).
//
// The server loads one model onto one compute device and exposes:
//
//	POST /load      — optional; load a model with a device preference list
//	GET  /speakers  — ordered voice identifiers of the loaded model
//	GET  /api/tts   — synthesize (text, speaker_id, language_id) to WAV
package xtts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/paperwave/paperwave/internal/config"
	"github.com/paperwave/paperwave/internal/engine"
)

// Engine is an HTTP client for the TTS server.
type Engine struct {
	baseURL string
	voices  []string
	client  *http.Client
}

// New connects to the TTS server, optionally loads the configured model,
// and enumerates its voices. Any failure here is initialization-fatal:
// an engine that cannot enumerate voices must not be usable.
func New(ctx context.Context, cfg config.EngineConfig) (*Engine, error) {
	e := &Engine{
		baseURL: strings.TrimRight(cfg.XTTS.Endpoint, "/"),
		client:  &http.Client{},
	}

	if cfg.ModelID != "" {
		if err := e.loadModel(ctx, cfg.ModelID, engine.Device(cfg.Device)); err != nil {
			return nil, err
		}
	}

	voices, err := e.fetchVoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerating voices: %w", err)
	}
	if len(voices) == 0 {
		return nil, fmt.Errorf("tts server at %s exposes no voices", e.baseURL)
	}
	e.voices = voices

	slog.Info("tts engine ready", "endpoint", e.baseURL, "voices", len(voices))
	return e, nil
}

// loadModel asks the server to load a model, handing it the device
// preference order. Servers that manage their own model answer 404, which
// is fine as long as voice enumeration succeeds afterwards.
func (e *Engine) loadModel(ctx context.Context, modelID string, device engine.Device) error {
	devices := device.PreferenceOrder()
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = string(d)
	}

	body, err := json.Marshal(map[string]any{
		"model_id": modelID,
		"devices":  names,
	})
	if err != nil {
		return fmt.Errorf("marshalling load request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/load", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating load request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		slog.Debug("tts server does not support model loading, assuming preloaded model", "model_id", modelID)
		return nil
	case resp.StatusCode != http.StatusOK:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("loading model %q failed (status %d): %s", modelID, resp.StatusCode, respBody)
	}

	slog.Info("tts model loaded", "model_id", modelID, "device_preference", names)
	return nil
}

// fetchVoices enumerates the loaded model's speakers in server order.
func (e *Engine) fetchVoices(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/speakers", nil)
	if err != nil {
		return nil, fmt.Errorf("creating speakers request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speakers request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("speakers request failed (status %d): %s", resp.StatusCode, respBody)
	}

	// Servers answer either a bare array or {"speakers": [...]}.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading speakers response: %w", err)
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var wrapper struct {
		Speakers []string `json:"speakers"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("decoding speakers response: %w", err)
	}
	return wrapper.Speakers, nil
}

// Voices returns the engine's voice identifiers in server order.
func (e *Engine) Voices() []string {
	out := make([]string, len(e.voices))
	copy(out, e.voices)
	return out
}

// SynthesizeToFile renders text to a transient WAV artifact and returns its
// path. The caller owns the artifact.
func (e *Engine) SynthesizeToFile(ctx context.Context, text, voice, language string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty text for synthesis")
	}

	q := make(url.Values)
	q.Set("text", text)
	q.Set("speaker_id", voice)
	q.Set("language_id", language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tts?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating tts request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("tts failed for voice %q language %q (status %d): %s",
			voice, language, resp.StatusCode, respBody)
	}

	artifact := filepath.Join(os.TempDir(), "paperwave-seg-"+uuid.NewString()+".wav")
	f, err := os.Create(artifact)
	if err != nil {
		return "", fmt.Errorf("creating artifact: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(artifact)
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(artifact)
		return "", fmt.Errorf("closing artifact: %w", err)
	}

	slog.Debug("synthesized segment", "voice", voice, "language", language, "text_length", len(text), "artifact", artifact)
	return artifact, nil
}

// Close is a no-op; connections are per-request.
func (e *Engine) Close() error { return nil }
