// Package scriptgen defines the interface for LLM-based script generation.
//
// A generator takes extracted document text and produces a multi-speaker
// dialogue script. Paperwave ships with two backends: OpenAI (cloud) and
// Local (any OpenAI-compatible chat endpoint, e.g. Ollama or vLLM).
package scriptgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/paperwave/paperwave/internal/extract"
	"github.com/paperwave/paperwave/internal/script"
)

// Options control script generation.
type Options struct {
	// NumSpeakers is the number of dialogue roles (2–4). Defaults to 2.
	NumSpeakers int

	// Style overrides the narration style derived from the document type.
	Style string
}

// Generator turns a document into a podcast script.
type Generator interface {
	// Name returns the backend identifier (e.g., "openai", "local").
	Name() string

	// Generate produces a script from the document text.
	Generate(ctx context.Context, doc *extract.Document, opts Options) (*script.Script, error)

	// Close releases any resources held by the generator.
	Close() error
}

// speakersFor lists the role names for a speaker count.
func speakersFor(n int) []string {
	switch {
	case n >= 4:
		return []string{script.RoleHost, script.RoleGuest, script.RoleGuest1, script.RoleGuest2}
	case n == 3:
		return []string{script.RoleHost, script.RoleGuest, script.RoleGuest1}
	default:
		return []string{script.RoleHost, script.RoleGuest}
	}
}

// buildSystemPrompt composes the script-writing instructions for a document
// type and speaker count.
func buildSystemPrompt(doc *extract.Document, opts Options) string {
	n := opts.NumSpeakers
	if n < 2 {
		n = 2
	}
	style := opts.Style
	if style == "" {
		style = doc.Type.ScriptStyle()
	}
	speakers := speakersFor(n)

	var sb strings.Builder
	sb.WriteString("You are an expert podcast script writer. Create a " + style + " podcast script based on the document content provided.\n")
	fmt.Fprintf(&sb, "The podcast has %d speakers named %s.\n\n", n, strings.Join(speakers, ", "))

	sb.WriteString("Format the script as a JSON object with the following structure:\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"title\": \"Podcast title based on the document\",\n")
	sb.WriteString("  \"description\": \"Brief description of the podcast\",\n")
	fmt.Fprintf(&sb, "  \"speakers\": [\"%s\"],\n", strings.Join(speakers, "\", \""))
	sb.WriteString("  \"script\": [{\"speaker\": \"Host\", \"text\": \"Welcome to our podcast...\"}]\n")
	sb.WriteString("}\n\n")

	switch doc.Type {
	case extract.TypeReviewArticle:
		sb.WriteString("This is a REVIEW ARTICLE. Synthesize and compare the studies it covers, ")
		sb.WriteString("highlight consensus and disagreement in the field, and identify gaps in current knowledge. ")
		sb.WriteString("Have the host ask questions that compare different approaches or findings.\n")
	case extract.TypeCaseStudy:
		sb.WriteString("This is a CASE STUDY. Tell the story of the case chronologically in a conversational tone, ")
		sb.WriteString("covering context, challenges, interventions, and outcomes, and draw broader lessons from it. ")
		sb.WriteString("Have the host ask about the specific decisions and turning points.\n")
	default:
		sb.WriteString("This is a RESEARCH ARTICLE. Discuss the methods, results, and implications in depth, ")
		sb.WriteString("including limitations and future research directions. ")
		sb.WriteString("Have the host ask probing questions about the methodology and the guests explain technical concepts accessibly.\n")
	}

	return sb.String()
}

// parseScript decodes and validates the LLM's JSON output.
func parseScript(content string) (*script.Script, error) {
	s, err := script.Parse([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("could not parse LLM response as a script: %w", err)
	}
	if len(s.Turns) == 0 {
		return nil, fmt.Errorf("LLM returned a script with no turns")
	}
	return s, nil
}
