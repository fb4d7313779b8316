// Package voice maps logical speaker roles to synthesis voices.
//
// The registry is built once from the ordered voice list the engine exposes
// and is immutable afterwards. Resolution hands out value copies, so a
// caller that wants a different language for one synthesis call sets it on
// its copy; the shared table is never written after construction. This
// keeps concurrent podcast generations safe without extra locking here.
package voice

import (
	"fmt"

	"github.com/paperwave/paperwave/internal/lang"
	"github.com/paperwave/paperwave/internal/script"
)

// Entry pairs a synthesis voice identifier with the language it should speak.
type Entry struct {
	Voice    string
	Language string
}

// Registry is an immutable role → Entry table.
type Registry struct {
	entries map[string]Entry
	first   string // first engine voice, used for fallbacks
}

// roleOrder fixes the positional voice assignment: the n-th engine voice
// goes to the n-th role, reusing the first voice when the engine exposes
// fewer voices than roles.
var roleOrder = []string{script.RoleHost, script.RoleGuest, script.RoleGuest1, script.RoleGuest2}

// NewRegistry builds the role table from the engine's ordered voice list.
// Every role starts with the default language.
func NewRegistry(voices []string) (*Registry, error) {
	if len(voices) == 0 {
		return nil, fmt.Errorf("voice registry: engine exposes no voices")
	}

	entries := make(map[string]Entry, len(roleOrder))
	for i, role := range roleOrder {
		v := voices[0]
		if i < len(voices) {
			v = voices[i]
		}
		entries[role] = Entry{Voice: v, Language: lang.Default}
	}

	return &Registry{entries: entries, first: voices[0]}, nil
}

// Resolve looks up the entry for a role. The returned Entry is a copy;
// mutating it does not affect the registry.
func (r *Registry) Resolve(role string) (Entry, bool) {
	e, ok := r.entries[role]
	return e, ok
}

// Has reports whether a role is present in the registry.
func (r *Registry) Has(role string) bool {
	_, ok := r.entries[role]
	return ok
}

// Default returns the fallback entry for unrecognized roles: the first
// engine voice speaking the caller-supplied language.
func (r *Registry) Default(language string) Entry {
	return Entry{Voice: r.first, Language: language}
}

// Roles returns the roles the registry knows, in assignment order.
func (r *Registry) Roles() []string {
	out := make([]string, len(roleOrder))
	copy(out, roleOrder)
	return out
}
