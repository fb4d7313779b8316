// Package engine defines the boundary to the neural TTS engine.
//
// Paperwave treats the engine as an external collaborator: one loaded
// multilingual multi-speaker model whose concurrency guarantees are unknown,
// so callers must serialize synthesis calls. The engine exposes an ordered
// voice list at initialization; the voice registry is built from that order.
package engine

import "context"

// Engine renders text to transient WAV artifacts.
type Engine interface {
	// Voices returns the engine's voice identifiers in its native order.
	// The list is fixed for the lifetime of the engine.
	Voices() []string

	// SynthesizeToFile renders text with the given voice and ISO-639-1
	// language into a WAV artifact and returns its path. The caller owns
	// the artifact and must remove it.
	SynthesizeToFile(ctx context.Context, text, voice, language string) (string, error)

	// Close releases any resources held by the engine.
	Close() error
}

// Device is a compute device preference for model loading.
type Device string

const (
	// DeviceAuto resolves to the best available device: Metal, then CUDA,
	// then CPU.
	DeviceAuto Device = "auto"

	// DeviceMetal is Apple Metal (MPS) GPU acceleration.
	DeviceMetal Device = "mps"

	// DeviceCUDA is NVIDIA GPU acceleration.
	DeviceCUDA Device = "cuda"

	// DeviceCPU is general-purpose CPU computation.
	DeviceCPU Device = "cpu"
)

// PreferenceOrder expands a device preference into the ordered candidate
// list handed to the engine server, which picks the first one it has.
func (d Device) PreferenceOrder() []Device {
	switch d {
	case DeviceMetal, DeviceCUDA:
		return []Device{d, DeviceCPU}
	case DeviceCPU:
		return []Device{DeviceCPU}
	default:
		return []Device{DeviceMetal, DeviceCUDA, DeviceCPU}
	}
}
