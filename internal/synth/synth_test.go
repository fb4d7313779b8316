package synth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/paperwave/paperwave/internal/audio"
	"github.com/paperwave/paperwave/internal/script"
	"github.com/paperwave/paperwave/internal/voice"
)

// fakeEngine writes real WAV artifacts and records what it was asked for.
type fakeEngine struct {
	voices    []string
	dir       string
	frames    int
	failWith  error
	calls     []call
	artifacts []string
}

type call struct {
	text, voice, language string
}

func (f *fakeEngine) Voices() []string { return f.voices }

func (f *fakeEngine) SynthesizeToFile(ctx context.Context, text, voice, language string) (string, error) {
	f.calls = append(f.calls, call{text, voice, language})
	if f.failWith != nil {
		return "", f.failWith
	}

	path := filepath.Join(f.dir, fmt.Sprintf("artifact-%d.wav", len(f.calls)))
	track := audio.NewTrack(24000, 1)
	track.Append(&audio.Segment{Samples: make([]int, f.frames), SampleRate: 24000, Channels: 1})
	if err := track.WriteWAV(path); err != nil {
		return "", err
	}
	f.artifacts = append(f.artifacts, path)
	return path, nil
}

func (f *fakeEngine) Close() error { return nil }

// stubDetector returns a fixed code, supported or not.
type stubDetector struct{ code string }

func (d stubDetector) Detect(string) string { return d.code }

func newTestSynth(t *testing.T, eng *fakeEngine, det stubDetector) *Synthesizer {
	t.Helper()
	registry, err := voice.NewRegistry(eng.voices)
	if err != nil {
		t.Fatal(err)
	}
	return New(eng, registry, det)
}

func TestSynthesizeKnownRole(t *testing.T) {
	eng := &fakeEngine{voices: []string{"v0", "v1"}, dir: t.TempDir(), frames: 24000}
	s := newTestSynth(t, eng, stubDetector{code: "en"})

	seg, err := s.Synthesize(context.Background(), "Hello.", script.RoleGuest, "fr")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if seg.SampleRate != 24000 || len(seg.Samples) != 24000 {
		t.Errorf("segment = %d samples @ %d Hz", len(seg.Samples), seg.SampleRate)
	}

	got := eng.calls[0]
	if got.voice != "v1" || got.language != "fr" {
		t.Errorf("engine call = %+v, want voice v1 language fr", got)
	}
}

func TestSynthesizeDetectsWhenLanguageOmitted(t *testing.T) {
	eng := &fakeEngine{voices: []string{"v0"}, dir: t.TempDir(), frames: 100}
	s := newTestSynth(t, eng, stubDetector{code: "de"})

	if _, err := s.Synthesize(context.Background(), "Hallo zusammen.", script.RoleHost, ""); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if eng.calls[0].language != "de" {
		t.Errorf("language = %q, want de", eng.calls[0].language)
	}
}

func TestSynthesizeNormalizesUnsupportedLanguage(t *testing.T) {
	eng := &fakeEngine{voices: []string{"v0"}, dir: t.TempDir(), frames: 100}
	s := newTestSynth(t, eng, stubDetector{code: "xx"})

	if _, err := s.Synthesize(context.Background(), "Hello.", script.RoleHost, ""); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if eng.calls[0].language != "en" {
		t.Errorf("language = %q, want en (fallback)", eng.calls[0].language)
	}
}

func TestSynthesizeUnknownRoleFallsBackToFirstVoice(t *testing.T) {
	eng := &fakeEngine{voices: []string{"v0", "v1"}, dir: t.TempDir(), frames: 100}
	s := newTestSynth(t, eng, stubDetector{code: "en"})

	if _, err := s.Synthesize(context.Background(), "Hello.", "Narrator", "es"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	got := eng.calls[0]
	if got.voice != "v0" || got.language != "es" {
		t.Errorf("engine call = %+v, want voice v0 language es", got)
	}
}

func TestSynthesizeRemovesArtifact(t *testing.T) {
	eng := &fakeEngine{voices: []string{"v0"}, dir: t.TempDir(), frames: 100}
	s := newTestSynth(t, eng, stubDetector{code: "en"})

	if _, err := s.Synthesize(context.Background(), "Hello.", script.RoleHost, "en"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if _, err := os.Stat(eng.artifacts[0]); !os.IsNotExist(err) {
		t.Errorf("artifact %s still exists", eng.artifacts[0])
	}
}

func TestSynthesizeRemovesArtifactOnDecodeFailure(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.wav")
	if err := os.WriteFile(bad, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := &corruptEngine{path: bad}
	registry, _ := voice.NewRegistry([]string{"v0"})
	s := New(eng, registry, stubDetector{code: "en"})

	if _, err := s.Synthesize(context.Background(), "Hello.", script.RoleHost, "en"); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Error("artifact not removed on decode failure")
	}
}

func TestSynthesizeEngineErrorPropagates(t *testing.T) {
	wantErr := fmt.Errorf("engine exploded")
	eng := &fakeEngine{voices: []string{"v0"}, dir: t.TempDir(), failWith: wantErr}
	s := newTestSynth(t, eng, stubDetector{code: "en"})

	if _, err := s.Synthesize(context.Background(), "Hello.", script.RoleHost, "en"); err == nil {
		t.Fatal("expected engine error to propagate")
	}
}

// corruptEngine hands back an artifact that is not valid WAV.
type corruptEngine struct{ path string }

func (c *corruptEngine) Voices() []string { return []string{"v0"} }
func (c *corruptEngine) SynthesizeToFile(ctx context.Context, text, voice, language string) (string, error) {
	return c.path, nil
}
func (c *corruptEngine) Close() error { return nil }
