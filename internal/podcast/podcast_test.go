package podcast

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paperwave/paperwave/internal/audio"
	"github.com/paperwave/paperwave/internal/config"
	"github.com/paperwave/paperwave/internal/script"
	"github.com/paperwave/paperwave/internal/synth"
	"github.com/paperwave/paperwave/internal/voice"
)

// fakeEngine renders fixed-length segments and records the voices used, in
// call order.
type fakeEngine struct {
	voices   []string
	dir      string
	frames   int
	failAt   int // 1-based call number to fail on; 0 = never
	calls    int
	rendered []string // voice per call
}

func (f *fakeEngine) Voices() []string { return f.voices }

func (f *fakeEngine) SynthesizeToFile(ctx context.Context, text, voiceID, language string) (string, error) {
	f.calls++
	if f.failAt != 0 && f.calls == f.failAt {
		return "", fmt.Errorf("engine failure on call %d", f.calls)
	}
	f.rendered = append(f.rendered, voiceID)

	path := filepath.Join(f.dir, fmt.Sprintf("seg-%d.wav", f.calls))
	track := audio.NewTrack(24000, 1)
	track.Append(&audio.Segment{Samples: make([]int, f.frames), SampleRate: 24000, Channels: 1})
	if err := track.WriteWAV(path); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeEngine) Close() error { return nil }

// captureExporter records the track instead of encoding it.
type captureExporter struct {
	track  *audio.Track
	called bool
	fail   bool
}

func (c *captureExporter) Export(ctx context.Context, track *audio.Track, path string) (string, error) {
	c.called = true
	c.track = track
	if c.fail {
		return "", fmt.Errorf("export failed")
	}
	return path, nil
}

type stubDetector struct{ code string }

func (d stubDetector) Detect(string) string { return d.code }

func testAudioConfig() config.AudioConfig {
	return config.AudioConfig{
		SampleRate: 24000,
		Channels:   1,
		LeadInMS:   500,
		TurnGapMS:  300,
		TailMS:     1000,
	}
}

func newTestAssembler(t *testing.T, eng *fakeEngine, exp *captureExporter) *Assembler {
	t.Helper()
	registry, err := voice.NewRegistry(eng.voices)
	if err != nil {
		t.Fatal(err)
	}
	det := stubDetector{code: "en"}
	return New(synth.New(eng, registry, det), registry, det, exp, testAudioConfig())
}

func twoTurnScript() *script.Script {
	return &script.Script{
		Title: "T",
		Turns: []script.Turn{
			{Speaker: script.RoleHost, Text: "Hello."},
			{Speaker: script.RoleGuest, Text: "Hi there."},
		},
	}
}

func TestOrderPreservation(t *testing.T) {
	eng := &fakeEngine{voices: []string{"v0", "v1"}, dir: t.TempDir(), frames: 1000}
	exp := &captureExporter{}
	a := newTestAssembler(t, eng, exp)

	s := &script.Script{Turns: []script.Turn{
		{Speaker: script.RoleGuest, Text: "First."},
		{Speaker: script.RoleHost, Text: "Second."},
		{Speaker: script.RoleGuest, Text: "Third."},
	}}

	if _, err := a.GeneratePodcast(context.Background(), s, "out.mp3"); err != nil {
		t.Fatalf("GeneratePodcast: %v", err)
	}

	want := []string{"v1", "v0", "v1"}
	if len(eng.rendered) != len(want) {
		t.Fatalf("rendered %d segments, want %d", len(eng.rendered), len(want))
	}
	for i := range want {
		if eng.rendered[i] != want[i] {
			t.Errorf("segment %d voice = %q, want %q", i, eng.rendered[i], want[i])
		}
	}
}

func TestSilencePadding(t *testing.T) {
	// Each synthesized segment is exactly one second.
	eng := &fakeEngine{voices: []string{"v0", "v1"}, dir: t.TempDir(), frames: 24000}
	exp := &captureExporter{}
	a := newTestAssembler(t, eng, exp)

	if _, err := a.GeneratePodcast(context.Background(), twoTurnScript(), "out.mp3"); err != nil {
		t.Fatalf("GeneratePodcast: %v", err)
	}

	// 500 + (300+1000) + (300+1000) + 1000 ms
	want := 4100 * time.Millisecond
	if got := exp.track.Duration(); got != want {
		t.Errorf("track duration = %v, want %v", got, want)
	}
}

func TestUnknownSpeakerFallsBackToHost(t *testing.T) {
	eng := &fakeEngine{voices: []string{"v0", "v1"}, dir: t.TempDir(), frames: 1000}
	exp := &captureExporter{}
	a := newTestAssembler(t, eng, exp)

	s := &script.Script{Turns: []script.Turn{{Speaker: "Narrator", Text: "Once upon a time."}}}

	if _, err := a.GeneratePodcast(context.Background(), s, "out.mp3"); err != nil {
		t.Fatalf("GeneratePodcast: %v", err)
	}
	if eng.rendered[0] != "v0" {
		t.Errorf("unknown speaker rendered with %q, want host voice v0", eng.rendered[0])
	}
}

func TestEmptyScript(t *testing.T) {
	eng := &fakeEngine{voices: []string{"v0"}, dir: t.TempDir()}
	exp := &captureExporter{}
	a := newTestAssembler(t, eng, exp)

	path, err := a.GeneratePodcast(context.Background(), &script.Script{Title: "Empty"}, "out.mp3")
	if err != nil {
		t.Fatalf("GeneratePodcast: %v", err)
	}
	if path != "out.mp3" {
		t.Errorf("path = %q", path)
	}
	if got := exp.track.Duration(); got != 1500*time.Millisecond {
		t.Errorf("empty script duration = %v, want 1.5s", got)
	}
	if eng.calls != 0 {
		t.Errorf("engine called %d times for empty script", eng.calls)
	}
}

func TestTurnFailureAbortsGeneration(t *testing.T) {
	eng := &fakeEngine{voices: []string{"v0", "v1"}, dir: t.TempDir(), frames: 1000, failAt: 2}
	exp := &captureExporter{}
	a := newTestAssembler(t, eng, exp)

	out := filepath.Join(t.TempDir(), "out.mp3")
	_, err := a.GeneratePodcast(context.Background(), twoTurnScript(), out)
	if err == nil {
		t.Fatal("expected generation to fail")
	}

	var terr *TurnError
	if !errors.As(err, &terr) {
		t.Fatalf("error type = %T, want *TurnError", err)
	}
	if terr.Index != 1 || terr.Speaker != script.RoleGuest {
		t.Errorf("TurnError = index %d speaker %q", terr.Index, terr.Speaker)
	}

	if exp.called {
		t.Error("exporter called despite turn failure")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("output file written despite turn failure")
	}
}

func TestCancellationBetweenTurns(t *testing.T) {
	eng := &fakeEngine{voices: []string{"v0"}, dir: t.TempDir(), frames: 1000}
	exp := &captureExporter{}
	a := newTestAssembler(t, eng, exp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.GeneratePodcast(ctx, twoTurnScript(), "out.mp3")
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
	if eng.calls != 0 {
		t.Errorf("engine called %d times after cancellation", eng.calls)
	}
}

func TestExportFailurePropagates(t *testing.T) {
	eng := &fakeEngine{voices: []string{"v0"}, dir: t.TempDir(), frames: 1000}
	exp := &captureExporter{fail: true}
	a := newTestAssembler(t, eng, exp)

	if _, err := a.GeneratePodcast(context.Background(), &script.Script{}, "out.mp3"); err == nil {
		t.Fatal("expected export error")
	}
}
