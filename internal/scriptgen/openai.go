package scriptgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/paperwave/paperwave/internal/config"
	"github.com/paperwave/paperwave/internal/extract"
	"github.com/paperwave/paperwave/internal/script"
)

// OpenAI implements Generator using the Chat Completions API.
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAI creates an OpenAI script generator from config.
func NewOpenAI(cfg config.OpenAIScriptConfig) *OpenAI {
	return &OpenAI{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{},
	}
}

// Name returns the backend identifier.
func (g *OpenAI) Name() string { return "openai" }

// Generate sends the document text + prompt to the Chat Completions API and
// parses the returned JSON script.
func (g *OpenAI) Generate(ctx context.Context, doc *extract.Document, opts Options) (*script.Script, error) {
	content, err := chatComplete(ctx, g.client, chatParams{
		url:    g.baseURL + "/chat/completions",
		apiKey: g.apiKey,
		model:  g.model,
		system: buildSystemPrompt(doc, opts),
		user:   "Here is the document content:\n\n" + doc.Text,
	})
	if err != nil {
		return nil, err
	}

	s, err := parseScript(content)
	if err != nil {
		return nil, err
	}
	slog.Info("script generated", "backend", g.Name(), "title", s.Title, "turns", len(s.Turns))
	return s, nil
}

// Close is a no-op for the OpenAI generator.
func (g *OpenAI) Close() error { return nil }

// --- Chat Completions wire types, shared with the local backend ---

type chatParams struct {
	url    string
	apiKey string
	model  string
	system string
	user   string
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatComplete runs one chat completion against any OpenAI-compatible
// endpoint and returns the first choice's content.
func chatComplete(ctx context.Context, client *http.Client, p chatParams) (string, error) {
	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: p.system},
			{Role: "user", Content: p.user},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    0.7,
		MaxTokens:      2000,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshalling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("chat failed (status %d): %s", resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from chat API")
	}
	return chatResp.Choices[0].Message.Content, nil
}
