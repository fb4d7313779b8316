package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Exporter writes an assembled track to a file. The concrete implementation
// is injected into the assembler so tests can capture tracks without
// touching ffmpeg.
type Exporter interface {
	// Export writes the track to path and returns path.
	Export(ctx context.Context, track *Track, path string) (string, error)
}

// FFmpegExporter exports a track as MP3 by piping a scratch WAV through
// ffmpeg. Encoding goes to a temp file first and is renamed into place, so
// a failed export never leaves a partial file at the target path.
type FFmpegExporter struct {
	// FFmpegPath is the ffmpeg binary. Defaults to "ffmpeg" on PATH.
	FFmpegPath string

	// Bitrate is the constant output bitrate (e.g., "192k").
	Bitrate string
}

// NewFFmpegExporter creates an MP3 exporter at the given bitrate.
func NewFFmpegExporter(ffmpegPath, bitrate string) *FFmpegExporter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if bitrate == "" {
		bitrate = "192k"
	}
	return &FFmpegExporter{FFmpegPath: ffmpegPath, Bitrate: bitrate}
}

// Export encodes the track to MP3 at path.
func (e *FFmpegExporter) Export(ctx context.Context, track *Track, path string) (string, error) {
	dir := filepath.Dir(path)
	scratch := filepath.Join(os.TempDir(), "paperwave-"+uuid.NewString()+".wav")
	tmpOut := filepath.Join(dir, "."+uuid.NewString()+".mp3")

	if err := track.WriteWAV(scratch); err != nil {
		return "", err
	}
	defer os.Remove(scratch)
	defer os.Remove(tmpOut)

	args := []string{
		"-y",
		"-i", scratch,
		"-codec:a", "libmp3lame",
		"-b:a", e.Bitrate,
		tmpOut,
	}

	slog.Debug("exporting track", "ffmpeg", e.FFmpegPath, "bitrate", e.Bitrate, "duration", track.Duration())

	cmd := exec.CommandContext(ctx, e.FFmpegPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg export: %w: %s", err, tail(stderr.String(), 512))
	}

	if err := os.Rename(tmpOut, path); err != nil {
		return "", fmt.Errorf("moving export into place: %w", err)
	}
	return path, nil
}

// tail returns the last n bytes of s, for error context.
func tail(s string, n int) string {
	if len(s) <= n {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[len(s)-n:])
}
