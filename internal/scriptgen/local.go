package scriptgen

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/paperwave/paperwave/internal/config"
	"github.com/paperwave/paperwave/internal/extract"
	"github.com/paperwave/paperwave/internal/script"
)

// Local implements Generator against a self-hosted OpenAI-compatible chat
// endpoint (Ollama, vLLM, llama.cpp server).
type Local struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewLocal creates a local script generator from config.
func NewLocal(cfg config.LocalScriptConfig) *Local {
	return &Local{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		client:   &http.Client{},
	}
}

// Name returns the backend identifier.
func (g *Local) Name() string { return "local" }

// Generate sends the document text + prompt to the local chat endpoint and
// parses the returned JSON script.
func (g *Local) Generate(ctx context.Context, doc *extract.Document, opts Options) (*script.Script, error) {
	content, err := chatComplete(ctx, g.client, chatParams{
		url:    g.endpoint,
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

// Close is a no-op for the local generator.
func (g *Local) Close() error { return nil }
