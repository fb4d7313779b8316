// Package synth turns one script turn into one decoded audio segment.
//
// The synthesizer resolves a speaker role to voice settings, invokes the
// engine, and decodes the transient WAV artifact into PCM. Role-resolution
// and language-detection failures are recovered locally with logged
// fallbacks; engine failures propagate and abort the turn.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/paperwave/paperwave/internal/audio"
	"github.com/paperwave/paperwave/internal/engine"
	"github.com/paperwave/paperwave/internal/lang"
	"github.com/paperwave/paperwave/internal/voice"
)

// Synthesizer renders single turns through the engine.
type Synthesizer struct {
	engine   engine.Engine
	registry *voice.Registry
	detector lang.Detector
}

// New creates a synthesizer over the given engine, registry, and detector.
func New(eng engine.Engine, registry *voice.Registry, detector lang.Detector) *Synthesizer {
	return &Synthesizer{engine: eng, registry: registry, detector: detector}
}

// Synthesize renders text spoken by the given role. When language is empty
// it is detected from the text; either way the effective language is
// clamped to the supported set before synthesis.
func (s *Synthesizer) Synthesize(ctx context.Context, text, role, language string) (*audio.Segment, error) {
	if language == "" {
		language = s.detector.Detect(text)
	}
	language = lang.Normalize(language)

	entry, ok := s.registry.Resolve(role)
	if !ok {
		slog.Warn("speaker role not recognized, using default voice", "role", role, "language", language)
		entry = s.registry.Default(language)
	}
	// The resolved entry is a private copy; setting the per-call language
	// here never touches the shared registry.
	entry.Language = language

	slog.Debug("synthesizing turn", "role", role, "voice", entry.Voice, "language", entry.Language, "text_length", len(text))

	artifact, err := s.engine.SynthesizeToFile(ctx, text, entry.Voice, entry.Language)
	if err != nil {
		return nil, fmt.Errorf("synthesizing for role %q: %w", role, err)
	}
	// The artifact is gone on every exit path from here, decode errors
	// included.
	defer func() {
		if rmErr := os.Remove(artifact); rmErr != nil {
			slog.Warn("failed to remove synthesis artifact", "artifact", artifact, "error", rmErr)
		}
	}()

	seg, err := audio.DecodeWAVFile(artifact)
	if err != nil {
		return nil, fmt.Errorf("decoding segment for role %q: %w", role, err)
	}
	return seg, nil
}
