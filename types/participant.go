package types

import "fmt"

// Participant is one configured persona in a deliberation session.
// Immutable once a session starts; the roster shrinks only via elimination.
type Participant struct {
	// Key uniquely identifies the participant within a session.
	Key string `json:"key" yaml:"key"`

	// Name is the display name used in prompts and transcripts.
	Name string `json:"name" yaml:"name"`

	// Provider selects the completion provider this participant is bound to.
	Provider string `json:"provider" yaml:"provider"`

	// Model is the model identifier passed to the provider.
	Model string `json:"model" yaml:"model"`

	// Traits is a short free-form description of the persona's character.
	Traits string `json:"traits" yaml:"traits"`

	// Perspective describes the analytical angle the persona argues from.
	Perspective string `json:"perspective" yaml:"perspective"`

	// Persistence is the resistance to revising a position, in [0,1].
	Persistence float64 `json:"persistence" yaml:"persistence"`

	// ReasoningDepth is an integer tier controlling requested prompt depth.
	ReasoningDepth int `json:"reasoning_depth" yaml:"reasoning_depth"`

	// TruthSeeking biases prompt framing toward evidence over persuasion, in [0,1].
	TruthSeeking float64 `json:"truth_seeking" yaml:"truth_seeking"`

	// EliminationExempt participants are never removed by the elimination policy.
	EliminationExempt bool `json:"elimination_exempt,omitempty" yaml:"elimination_exempt,omitempty"`
}

// Validate checks the participant's numeric trait ranges at load time.
func (p Participant) Validate() error {
	if p.Key == "" {
		return NewError(ErrConfiguration, "participant key is required")
	}
	if p.Name == "" {
		return NewErrorf(ErrConfiguration, "participant %q: name is required", p.Key)
	}
	if p.Persistence < 0 || p.Persistence > 1 {
		return NewErrorf(ErrConfiguration, "participant %q: persistence %.2f out of range [0,1]", p.Key, p.Persistence)
	}
	if p.TruthSeeking < 0 || p.TruthSeeking > 1 {
		return NewErrorf(ErrConfiguration, "participant %q: truth_seeking %.2f out of range [0,1]", p.Key, p.TruthSeeking)
	}
	if p.ReasoningDepth < 1 {
		return NewErrorf(ErrConfiguration, "participant %q: reasoning_depth must be >= 1", p.Key)
	}
	return nil
}

// Roster is the ordered, duplicate-free set of active participants.
type Roster []Participant

// ValidateRoster checks ordering constraints common to every session.
func ValidateRoster(roster Roster) error {
	if len(roster) < 2 {
		return NewErrorf(ErrQuorum, "roster needs at least 2 participants, got %d", len(roster))
	}
	seen := make(map[string]struct{}, len(roster))
	for _, p := range roster {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.Key]; dup {
			return NewErrorf(ErrConfiguration, "duplicate participant key %q", p.Key)
		}
		seen[p.Key] = struct{}{}
	}
	return nil
}

// Keys returns the participant keys in roster order.
func (r Roster) Keys() []string {
	keys := make([]string, 0, len(r))
	for _, p := range r {
		keys = append(keys, p.Key)
	}
	return keys
}

// Find returns the participant with the given key.
func (r Roster) Find(key string) (Participant, bool) {
	for _, p := range r {
		if p.Key == key {
			return p, true
		}
	}
	return Participant{}, false
}

// Remove returns a new roster without the given key. Removing an absent
// key is a no-op so repeated eliminations stay idempotent.
func (r Roster) Remove(key string) Roster {
	out := make(Roster, 0, len(r))
	for _, p := range r {
		if p.Key != key {
			out = append(out, p)
		}
	}
	return out
}

// String implements fmt.Stringer for log output.
func (p Participant) String() string {
	return fmt.Sprintf("%s(%s/%s)", p.Key, p.Provider, p.Model)
}
