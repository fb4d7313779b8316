// Package piper implements the Engine interface using a Piper Wyoming
// protocol server.
//
// Piper is a fast, local neural text-to-speech system. The linuxserver/piper
// container exposes the Wyoming protocol on TCP port 10200. Piper voices are
// per-language models rather than speakers of one multilingual model, so the
// ordered voice list that seeds role assignment comes from configuration.
//
// Wyoming protocol format (per event):
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)
package piper

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paperwave/paperwave/internal/config"
)

// Engine synthesizes through a Piper Wyoming server.
type Engine struct {
	endpoint string
	voices   []string          // ordered voice names, first entry is the Host voice
	language map[string]string // voice name -> language the model speaks
}

// New creates a Piper engine from config. The configured voice list must be
// non-empty; without it no role assignment is possible, so this is an
// initialization failure.
func New(cfg config.EngineConfig) (*Engine, error) {
	if len(cfg.Piper.Voices) == 0 {
		return nil, fmt.Errorf("piper engine: no voices configured")
	}

	endpoint := cfg.Piper.Endpoint
	endpoint = strings.TrimPrefix(endpoint, "tcp://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if endpoint == "" {
		return nil, fmt.Errorf("piper engine: no endpoint configured")
	}

	voices := make([]string, 0, len(cfg.Piper.Voices))
	language := make(map[string]string, len(cfg.Piper.Voices))
	for _, v := range cfg.Piper.Voices {
		voices = append(voices, v.Name)
		language[v.Name] = v.Language
	}

	slog.Info("piper engine ready", "endpoint", endpoint, "voices", len(voices))
	return &Engine{endpoint: endpoint, voices: voices, language: language}, nil
}

// Voices returns the configured voice names in order.
func (e *Engine) Voices() []string {
	out := make([]string, len(e.voices))
	copy(out, e.voices)
	return out
}

// SynthesizeToFile renders text with the given voice into a transient WAV
// artifact. Piper voices are monolingual; a language the voice cannot speak
// is an engine error, matching the multi-speaker backends.
func (e *Engine) SynthesizeToFile(ctx context.Context, text, voice, language string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty text for synthesis")
	}
	if spoken, ok := e.language[voice]; ok && spoken != "" && spoken != language {
		return "", fmt.Errorf("piper voice %q speaks %q, not %q", voice, spoken, language)
	}

	pcm, sampleRate, channels, width, err := e.synthesizePCM(ctx, text, voice)
	if err != nil {
		return "", err
	}

	artifact := filepath.Join(os.TempDir(), "paperwave-seg-"+uuid.NewString()+".wav")
	wav := pcmToWAV(pcm, sampleRate, channels, width)
	if err := os.WriteFile(artifact, wav, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	return artifact, nil
}

// Close is a no-op; connections are per-request.
func (e *Engine) Close() error { return nil }

// synthesizePCM runs one Wyoming synthesize exchange and collects the raw
// PCM stream.
func (e *Engine) synthesizePCM(ctx context.Context, text, voice string) ([]byte, int, int, int, error) {
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", e.endpoint)
	if err != nil {
		return nil, 0, 0, 0, fmt.Errorf("connecting to piper: %w", err)
	}
	defer conn.Close()

	// Set deadline from context.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	synthEvent := wyomingEvent{
		Type: "synthesize",
		Data: map[string]any{
			"text": text,
			"voice": map[string]any{
				"name": voice,
			},
		},
	}
	if err := writeEvent(conn, synthEvent, nil); err != nil {
		return nil, 0, 0, 0, fmt.Errorf("sending synthesize event: %w", err)
	}

	// Read response events: audio-start → audio-chunk* → audio-stop
	var (
		pcmBuf     bytes.Buffer
		sampleRate = 22050
		channels   = 1
		width      = 2
	)

	for {
		evt, payload, err := readEvent(conn)
		if err != nil {
			return nil, 0, 0, 0, fmt.Errorf("reading piper event: %w", err)
		}

		switch evt.Type {
		case "audio-start":
			if rate, ok := evt.Data["rate"].(float64); ok {
				sampleRate = int(rate)
			}
			if ch, ok := evt.Data["channels"].(float64); ok {
				channels = int(ch)
			}
			if w, ok := evt.Data["width"].(float64); ok {
				width = int(w)
			}

		case "audio-chunk":
			if len(payload) > 0 {
				pcmBuf.Write(payload)
			}

		case "audio-stop":
			slog.Debug("piper synthesis complete", "voice", voice, "pcm_bytes", pcmBuf.Len(), "rate", sampleRate)
			return pcmBuf.Bytes(), sampleRate, channels, width, nil

		case "error":
			msg := "unknown error"
			if text, ok := evt.Data["text"].(string); ok {
				msg = text
			}
			return nil, 0, 0, 0, fmt.Errorf("piper error: %s", msg)

		default:
			slog.Debug("piper unknown event", "type", evt.Type)
		}
	}
}

// --- Wyoming protocol helpers ---

type wyomingEvent struct {
	Type          string         `json:"type"`
	Data          map[string]any `json:"data,omitempty"`
	PayloadLength int            `json:"payload_length,omitempty"`
}

// writeEvent sends a Wyoming event over the connection.
func writeEvent(w io.Writer, evt wyomingEvent, payload []byte) error {
	evt.PayloadLength = 0 // omit from JSON; length goes in the header line
	jsonBytes, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	// Header: <json_length> <payload_length>\n
	header := fmt.Sprintf("%d %d\n", len(jsonBytes), len(payload))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}

	// JSON + newline
	if _, err := w.Write(jsonBytes); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	// Payload (if any)
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}

	return nil
}

// readEvent reads a Wyoming event from the connection.
func readEvent(r io.Reader) (*wyomingEvent, []byte, error) {
	// Read header line: "<json_length> <payload_length>\n"
	headerBuf := make([]byte, 0, 64)
	oneByte := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, oneByte); err != nil {
			return nil, nil, fmt.Errorf("reading header: %w", err)
		}
		if oneByte[0] == '\n' {
			break
		}
		headerBuf = append(headerBuf, oneByte[0])
	}

	parts := strings.SplitN(string(headerBuf), " ", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid wyoming header: %q", string(headerBuf))
	}

	jsonLen, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing json_length: %w", err)
	}
	payloadLen, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing payload_length: %w", err)
	}

	// Read JSON + trailing newline.
	jsonBuf := make([]byte, jsonLen+1) // +1 for the \n
	if _, err := io.ReadFull(r, jsonBuf); err != nil {
		return nil, nil, fmt.Errorf("reading json: %w", err)
	}
	jsonBuf = jsonBuf[:jsonLen] // strip trailing newline

	var evt wyomingEvent
	if err := json.Unmarshal(jsonBuf, &evt); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	// Read payload.
	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}

	return &evt, payload, nil
}

// pcmToWAV wraps raw PCM data in a WAV container.
func pcmToWAV(pcm []byte, sampleRate, channels, bytesPerSample int) []byte {
	dataLen := len(pcm)
	fileLen := 36 + dataLen // 44-byte header minus 8 bytes for RIFF header = 36

	buf := &bytes.Buffer{}
	buf.Grow(44 + dataLen)

	// RIFF header
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(fileLen))
	buf.WriteString("WAVE")

	// fmt subchunk
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))       // subchunk1 size
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))        // audio format (PCM)
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels)) // channels
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	byteRate := sampleRate * channels * bytesPerSample
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	blockAlign := channels * bytesPerSample
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bytesPerSample*8))

	// data subchunk
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)

	return buf.Bytes()
}
