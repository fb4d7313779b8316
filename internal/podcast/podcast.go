// Package podcast implements the core audio assembly engine.
//
// The assembler receives a script from the generator, detects a script-wide
// language, then walks the turns in order: resolve the speaker, synthesize
// the segment, append it to the running track with fixed silence padding.
// Turn order in the script strictly determines audio order in the output.
package podcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paperwave/paperwave/internal/audio"
	"github.com/paperwave/paperwave/internal/config"
	"github.com/paperwave/paperwave/internal/lang"
	"github.com/paperwave/paperwave/internal/script"
	"github.com/paperwave/paperwave/internal/synth"
	"github.com/paperwave/paperwave/internal/voice"
)

// TurnError reports a turn-fatal synthesis failure. Any turn failing aborts
// the whole generation; there is no partial output.
type TurnError struct {
	Index   int    // zero-based position in the script
	Speaker string // role as written in the script
	Err     error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn %d (%s): %v", e.Index, e.Speaker, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }

// Assembler orchestrates podcast generation.
//
// The engine behind the synthesizer is one loaded model whose concurrency
// guarantees are unknown, so concurrent GeneratePodcast calls on the same
// assembler are serialized with a mutex.
type Assembler struct {
	synth    *synth.Synthesizer
	registry *voice.Registry
	detector lang.Detector
	exporter audio.Exporter
	cfg      config.AudioConfig

	mu sync.Mutex
}

// New creates an assembler.
func New(s *synth.Synthesizer, registry *voice.Registry, detector lang.Detector, exporter audio.Exporter, cfg config.AudioConfig) *Assembler {
	return &Assembler{
		synth:    s,
		registry: registry,
		detector: detector,
		exporter: exporter,
		cfg:      cfg,
	}
}

// GeneratePodcast renders the script into a single audio file at outputPath
// and returns that path. An empty script produces only the lead-in and tail
// silence, which is still a valid export.
func (a *Assembler) GeneratePodcast(ctx context.Context, s *script.Script, outputPath string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	logger := slog.With("title", s.Title, "turns", len(s.Turns))
	logger.Info("podcast generation started")

	track := audio.NewTrack(a.cfg.SampleRate, a.cfg.Channels)
	track.AppendSilence(time.Duration(a.cfg.LeadInMS) * time.Millisecond)

	// One detection pass over the whole script; every turn is synthesized
	// in this language. Minority-language turns in a mixed script are read
	// with the majority language's voice model.
	scriptLanguage := lang.Default
	if len(s.Turns) > 0 {
		scriptLanguage = a.detector.Detect(s.AllText())
	}
	logger.Info("detected script language", "language", scriptLanguage)

	for i, turn := range s.Turns {
		if err := ctx.Err(); err != nil {
			return "", &TurnError{Index: i, Speaker: turn.Speaker, Err: err}
		}

		role := turn.Speaker
		if !a.registry.Has(role) {
			logger.Warn("unknown speaker, defaulting to host", "turn", i, "speaker", role)
			role = script.RoleHost
		}

		logger.Debug("synthesizing turn", "turn", i, "speaker", role)
		seg, err := a.synthesizeTurn(ctx, turn.Text, role, scriptLanguage)
		if err != nil {
			terr := &TurnError{Index: i, Speaker: turn.Speaker, Err: err}
			logger.Error("podcast generation failed", "turn", i, "error", err)
			return "", terr
		}

		track.AppendSilence(time.Duration(a.cfg.TurnGapMS) * time.Millisecond)
		track.Append(seg)
	}

	track.AppendSilence(time.Duration(a.cfg.TailMS) * time.Millisecond)

	path, err := a.exporter.Export(ctx, track, outputPath)
	if err != nil {
		logger.Error("podcast export failed", "error", err)
		return "", fmt.Errorf("exporting podcast: %w", err)
	}

	logger.Info("podcast generated", "path", path, "duration", track.Duration(), "elapsed", time.Since(start))
	return path, nil
}

// synthesizeTurn runs one synthesis call under the per-turn timeout.
func (a *Assembler) synthesizeTurn(ctx context.Context, text, role, language string) (*audio.Segment, error) {
	if timeout := a.cfg.TurnTimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return a.synth.Synthesize(ctx, text, role, language)
}
