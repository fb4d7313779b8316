// Package audio holds the PCM building blocks for podcast assembly.
//
// A Segment is one decoded synthesis result. A Track is the accumulating
// podcast: segments and silence are appended in playback order at a fixed
// sample rate, then the whole thing is exported once. Segments arriving at
// a different sample rate or channel count are converted on append so the
// exported file is uniform.
package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Segment is a decoded PCM rendering of a single turn.
type Segment struct {
	// Samples holds interleaved 16-bit PCM samples.
	Samples []int

	// SampleRate in Hz.
	SampleRate int

	// Channels is the interleave width (1 = mono, 2 = stereo).
	Channels int
}

// Duration returns the playback length of the segment.
func (s *Segment) Duration() time.Duration {
	if s.SampleRate == 0 || s.Channels == 0 {
		return 0
	}
	frames := len(s.Samples) / s.Channels
	return time.Duration(frames) * time.Second / time.Duration(s.SampleRate)
}

// DecodeWAVFile reads a WAV artifact produced by the synthesis engine into
// a Segment.
func DecodeWAVFile(path string) (*Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wav artifact: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("decoding %s: not a valid wav file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.SampleRate == 0 {
		return nil, fmt.Errorf("decoding %s: missing format information", path)
	}

	return &Segment{
		Samples:    buf.Data,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

// Track is the accumulating podcast audio. All appended material is
// converted to the track's sample rate and channel count.
type Track struct {
	samples    []int
	sampleRate int
	channels   int
}

// NewTrack creates an empty track at the given output format.
func NewTrack(sampleRate, channels int) *Track {
	return &Track{sampleRate: sampleRate, channels: channels}
}

// SampleRate returns the track's output sample rate in Hz.
func (t *Track) SampleRate() int { return t.sampleRate }

// Channels returns the track's channel count.
func (t *Track) Channels() int { return t.channels }

// Duration returns the current playback length of the track.
func (t *Track) Duration() time.Duration {
	frames := len(t.samples) / t.channels
	return time.Duration(frames) * time.Second / time.Duration(t.sampleRate)
}

// AppendSilence appends d of digital silence.
func (t *Track) AppendSilence(d time.Duration) {
	frames := int(d * time.Duration(t.sampleRate) / time.Second)
	t.samples = append(t.samples, make([]int, frames*t.channels)...)
}

// Append converts a segment to the track format and appends it.
func (t *Track) Append(seg *Segment) {
	s := seg
	if s.Channels != t.channels {
		s = remap(s, t.channels)
	}
	if s.SampleRate != t.sampleRate {
		s = resample(s, t.sampleRate)
	}
	t.samples = append(t.samples, s.Samples...)
}

// Buffer returns the track content as a go-audio PCM buffer for encoding.
func (t *Track) Buffer() *audio.IntBuffer {
	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: t.channels,
			SampleRate:  t.sampleRate,
		},
		Data:           t.samples,
		SourceBitDepth: 16,
	}
}

// WriteWAV encodes the track as a 16-bit PCM WAV file at path.
func (t *Track) WriteWAV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating wav file: %w", err)
	}

	enc := wav.NewEncoder(f, t.sampleRate, 16, t.channels, 1)
	if err := enc.Write(t.Buffer()); err != nil {
		f.Close()
		return fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return f.Close()
}

// remap converts between mono and stereo interleaving.
func remap(s *Segment, channels int) *Segment {
	frames := len(s.Samples) / s.Channels
	out := make([]int, 0, frames*channels)

	for f := 0; f < frames; f++ {
		// Mix the source frame down to one value, then spread it.
		sum := 0
		for c := 0; c < s.Channels; c++ {
			sum += s.Samples[f*s.Channels+c]
		}
		v := sum / s.Channels
		for c := 0; c < channels; c++ {
			out = append(out, v)
		}
	}
	return &Segment{Samples: out, SampleRate: s.SampleRate, Channels: channels}
}

// resample converts a segment to a new sample rate by linear interpolation.
// Good enough for speech at nearby rates (22.05k ↔ 24k); the engines emit a
// single rate per model so this rarely runs.
func resample(s *Segment, rate int) *Segment {
	inFrames := len(s.Samples) / s.Channels
	if inFrames == 0 {
		return &Segment{SampleRate: rate, Channels: s.Channels}
	}

	outFrames := int(int64(inFrames) * int64(rate) / int64(s.SampleRate))
	out := make([]int, outFrames*s.Channels)

	for f := 0; f < outFrames; f++ {
		pos := float64(f) * float64(s.SampleRate) / float64(rate)
		i := int(pos)
		frac := pos - float64(i)
		j := i + 1
		if j >= inFrames {
			j = inFrames - 1
		}
		for c := 0; c < s.Channels; c++ {
			a := float64(s.Samples[i*s.Channels+c])
			b := float64(s.Samples[j*s.Channels+c])
			out[f*s.Channels+c] = int(a + (b-a)*frac)
		}
	}
	return &Segment{Samples: out, SampleRate: rate, Channels: s.Channels}
}
