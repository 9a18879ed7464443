package config

import "github.com/BaSui01/councilflow/types"

// DefaultPersonas returns the built-in debate roster, bound to the given
// provider. The four personas cover the common axes of a useful argument:
// feasibility, risk, opportunity and evidence.
func DefaultPersonas(provider string) types.Roster {
	return types.Roster{
		{
			Key:            "pragmatist",
			Name:           "The Pragmatist",
			Provider:       provider,
			Traits:         "practical, outcome-driven, allergic to speculation",
			Perspective:    "what can actually be executed with the resources at hand",
			Persistence:    0.5,
			TruthSeeking:   0.6,
			ReasoningDepth: 2,
		},
		{
			Key:            "skeptic",
			Name:           "The Skeptic",
			Provider:       provider,
			Traits:         "critical, risk-aware, demands proof",
			Perspective:    "failure modes, hidden costs and second-order risks",
			Persistence:    0.8,
			TruthSeeking:   0.9,
			ReasoningDepth: 3,
		},
		{
			Key:            "visionary",
			Name:           "The Visionary",
			Provider:       provider,
			Traits:         "imaginative, long-horizon, comfortable with uncertainty",
			Perspective:    "upside scenarios and what the decision enables later",
			Persistence:    0.6,
			TruthSeeking:   0.4,
			ReasoningDepth: 2,
		},
		{
			Key:            "analyst",
			Name:           "The Analyst",
			Provider:       provider,
			Traits:         "methodical, quantitative, neutral",
			Perspective:    "what the available evidence supports and what it cannot",
			Persistence:    0.3,
			TruthSeeking:   0.9,
			ReasoningDepth: 3,
		},
	}
}

// ConsciousnessPersonas returns the fixed-role roster for consciousness mode:
// a moderator who frames and closes, two speakers and a critic.
func ConsciousnessPersonas(provider string) types.Roster {
	return types.Roster{
		{
			Key:            "moderator",
			Name:           "The Moderator",
			Provider:       provider,
			Traits:         "balanced, synthesizing, procedural",
			Perspective:    "keeping the exchange coherent and landing a conclusion",
			Persistence:    0.4,
			TruthSeeking:   0.7,
			ReasoningDepth: 2,
		},
		{
			Key:            "first-speaker",
			Name:           "The First Speaker",
			Provider:       provider,
			Traits:         "constructive, thorough",
			Perspective:    "building the strongest affirmative case",
			Persistence:    0.6,
			TruthSeeking:   0.6,
			ReasoningDepth: 3,
		},
		{
			Key:            "second-speaker",
			Name:           "The Second Speaker",
			Provider:       provider,
			Traits:         "contrarian, sharp",
			Perspective:    "building the strongest opposing case",
			Persistence:    0.6,
			TruthSeeking:   0.6,
			ReasoningDepth: 3,
		},
		{
			Key:            "critic",
			Name:           "The Critic",
			Provider:       provider,
			Traits:         "exacting, unsentimental",
			Perspective:    "exposing the weakest link in every argument presented",
			Persistence:    0.7,
			TruthSeeking:   0.9,
			ReasoningDepth: 3,
		},
	}
}

// DefaultConsciousnessRoles maps the ConsciousnessPersonas roster onto the
// fixed roles of consciousness mode.
func DefaultConsciousnessRoles() ConsciousnessConfig {
	return ConsciousnessConfig{
		Moderator: "moderator",
		Speakers:  []string{"first-speaker", "second-speaker"},
		Critic:    "critic",
	}
}
