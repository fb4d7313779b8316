// Package lang detects the language of script text.
//
// Detection is restricted to the languages the synthesis engine can speak.
// Failures never propagate: anything the detector cannot place inside the
// supported set comes back as English, logged at warning level.
package lang

import (
	"log/slog"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Default is the fallback language code used whenever detection fails or
// yields an unsupported language.
const Default = "en"

// supported is the set of ISO-639-1 codes the synthesis engine accepts.
var supported = map[string]bool{
	"en": true, "fr": true, "es": true, "de": true,
	"it": true, "pt": true, "pl": true, "tr": true,
	"ru": true, "nl": true, "cs": true, "ar": true,
	"zh": true, "ja": true, "ko": true, "hu": true,
}

var linguaLanguages = []lingua.Language{
	lingua.English, lingua.French, lingua.Spanish, lingua.German,
	lingua.Italian, lingua.Portuguese, lingua.Polish, lingua.Turkish,
	lingua.Russian, lingua.Dutch, lingua.Czech, lingua.Arabic,
	lingua.Chinese, lingua.Japanese, lingua.Korean, lingua.Hungarian,
}

// Supported reports whether code is a language the engine can speak.
func Supported(code string) bool {
	return supported[strings.ToLower(code)]
}

// Normalize clamps a language code to the supported set, falling back to
// the default. Callers apply this to any externally supplied code before
// handing it to the engine.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if supported[code] {
		return code
	}
	return Default
}

// Detector identifies the language of a text. Implementations must never
// fail: unsupported or undetectable input yields the default language.
type Detector interface {
	Detect(text string) string
}

// LinguaDetector implements Detector using the lingua language identifier,
// built over the supported language set only.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewDetector builds a detector restricted to the supported languages.
func NewDetector() *LinguaDetector {
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(linguaLanguages...).
			Build(),
	}
}

// Detect returns the ISO-639-1 code for text, or the default when the text
// is empty or cannot be identified with any confidence.
func (d *LinguaDetector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		slog.Warn("language detection on empty text, defaulting", "language", Default)
		return Default
	}

	detected, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		slog.Warn("language detection failed, defaulting", "language", Default, "text_length", len(text))
		return Default
	}

	code := strings.ToLower(detected.IsoCode639_1().String())
	if !supported[code] {
		slog.Warn("detected unsupported language, defaulting", "detected", code, "language", Default)
		return Default
	}
	return code
}
