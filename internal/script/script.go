// Package script defines the core data types flowing through the paperwave pipeline.
package script

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Speaker role names as produced by the script generator. Unknown roles are
// tolerated downstream and resolved to RoleHost.
const (
	RoleHost   = "Host"
	RoleGuest  = "Guest"
	RoleGuest1 = "Guest 1"
	RoleGuest2 = "Guest 2"
)

// Turn is one utterance by one speaker. Turns are immutable once produced
// by the script generator; their order is the playback order.
type Turn struct {
	// Speaker is the logical role name (e.g., "Host", "Guest").
	Speaker string `json:"speaker"`

	// Text is the utterance to synthesize.
	Text string `json:"text"`
}

// Script is an ordered dialogue produced by the script generator.
type Script struct {
	// Title of the episode. May be empty.
	Title string `json:"title,omitempty"`

	// Description is a short episode summary. May be empty.
	Description string `json:"description,omitempty"`

	// Speakers lists the roles appearing in the script.
	Speakers []string `json:"speakers,omitempty"`

	// Turns is the dialogue in playback order. An empty list is valid and
	// produces a podcast consisting only of the lead-in and tail silence.
	Turns []Turn `json:"script"`
}

// Parse decodes a Script from its JSON wire form.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks structural invariants. Title, description, and speakers
// are optional; turns with empty text are rejected because the synthesis
// engine cannot render them.
func (s *Script) Validate() error {
	for i, turn := range s.Turns {
		if strings.TrimSpace(turn.Text) == "" {
			return fmt.Errorf("script turn %d (%q): empty text", i, turn.Speaker)
		}
	}
	return nil
}

// AllText joins the text of every turn with single spaces. Used for
// script-wide language detection.
func (s *Script) AllText() string {
	parts := make([]string, 0, len(s.Turns))
	for _, turn := range s.Turns {
		parts = append(parts, turn.Text)
	}
	return strings.Join(parts, " ")
}
