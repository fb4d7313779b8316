package scriptgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/paperwave/paperwave/internal/config"
	"github.com/paperwave/paperwave/internal/extract"
)

func TestBuildSystemPromptSpeakers(t *testing.T) {
	doc := &extract.Document{Text: "x", Type: extract.TypeResearchArticle}

	p2 := buildSystemPrompt(doc, Options{NumSpeakers: 2})
	if !strings.Contains(p2, "Host, Guest") || strings.Contains(p2, "Guest 1") {
		t.Errorf("2-speaker prompt lists wrong roles:\n%s", p2)
	}

	p4 := buildSystemPrompt(doc, Options{NumSpeakers: 4})
	if !strings.Contains(p4, "Guest 2") {
		t.Errorf("4-speaker prompt missing Guest 2:\n%s", p4)
	}
}

func TestBuildSystemPromptStyleFollowsDocumentType(t *testing.T) {
	cases := []struct {
		docType extract.DocumentType
		want    string
	}{
		{extract.TypeResearchArticle, "analytical"},
		{extract.TypeReviewArticle, "explanatory"},
		{extract.TypeCaseStudy, "conversational"},
	}
	for _, c := range cases {
		p := buildSystemPrompt(&extract.Document{Type: c.docType}, Options{})
		if !strings.Contains(p, c.want) {
			t.Errorf("%s prompt missing style %q", c.docType, c.want)
		}
	}
}

func TestParseScriptRejectsEmptyDialogue(t *testing.T) {
	if _, err := parseScript(`{"title": "T", "script": []}`); err == nil {
		t.Fatal("expected error for script with no turns")
	}
	if _, err := parseScript(`not json`); err == nil {
		t.Fatal("expected error for non-JSON content")
	}
}

func TestOpenAIGenerate(t *testing.T) {
	scriptJSON := `{"title":"AI Basics","speakers":["Host","Guest"],"script":[{"speaker":"Host","text":"Welcome."},{"speaker":"Guest","text":"Glad to be here."}]}`

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			http.Error(w, "bad messages", http.StatusBadRequest)
			return
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": scriptJSON}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := NewOpenAI(config.OpenAIScriptConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gpt-4o",
	})

	doc := &extract.Document{Text: "AI is a field of study.", Type: extract.TypeResearchArticle}
	s, err := g.Generate(context.Background(), doc, Options{NumSpeakers: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s.Title != "AI Basics" || len(s.Turns) != 2 {
		t.Errorf("script = %q, %d turns", s.Title, len(s.Turns))
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestOpenAIGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewOpenAI(config.OpenAIScriptConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	doc := &extract.Document{Text: "x", Type: extract.TypeResearchArticle}
	if _, err := g.Generate(context.Background(), doc, Options{}); err == nil {
		t.Fatal("expected error from API failure")
	}
}

func TestLocalGenerateSendsNoAuth(t *testing.T) {
	scriptJSON := `{"script":[{"speaker":"Host","text":"Hi."}]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			http.Error(w, "unexpected auth", http.StatusBadRequest)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": scriptJSON}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := NewLocal(config.LocalScriptConfig{Endpoint: srv.URL, Model: "llama3"})
	doc := &extract.Document{Text: "x", Type: extract.TypeCaseStudy}
	s, err := g.Generate(context.Background(), doc, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(s.Turns) != 1 {
		t.Errorf("turns = %d", len(s.Turns))
	}
}
