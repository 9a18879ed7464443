package council

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/types"
)

// CollaborationStrategy selects the goal of a collaborative (non-competitive)
// session. Voting and consensus detection still run, but prompts steer the
// council toward joint work instead of winning.
type CollaborationStrategy string

const (
	StrategyConsensusBuilding CollaborationStrategy = "consensus"
	StrategyProblemSolving    CollaborationStrategy = "problem_solving"
	StrategySynthesis         CollaborationStrategy = "synthesis"
	StrategyBrainstorming     CollaborationStrategy = "brainstorming"
)

// CollaborationConfig enables collaborative mode. Subgroups > 0 partitions
// the roster so sub-teams tackle different aspects; Grouping is "balanced"
// (even split, the default) or "specialized" (by reasoning depth).
type CollaborationConfig struct {
	Enabled   bool                  `yaml:"enabled"`
	Strategy  CollaborationStrategy `yaml:"strategy"`
	Subgroups int                   `yaml:"subgroups"`
	Grouping  string                `yaml:"grouping"`
}

func (c CollaborationConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Strategy {
	case "", StrategyConsensusBuilding, StrategyProblemSolving, StrategySynthesis, StrategyBrainstorming:
	default:
		return types.NewErrorf(types.ErrConfiguration, "unknown collaboration strategy %q", c.Strategy)
	}
	switch c.Grouping {
	case "", "balanced", "specialized":
	default:
		return types.NewErrorf(types.ErrConfiguration, "unknown grouping %q", c.Grouping)
	}
	if c.Subgroups < 0 {
		return types.NewError(types.ErrConfiguration, "subgroups must not be negative")
	}
	return nil
}

func (c CollaborationConfig) strategy() CollaborationStrategy {
	if c.Strategy == "" {
		return StrategyConsensusBuilding
	}
	return c.Strategy
}

// SubGroup is one sub-team of a collaborative session.
type SubGroup struct {
	Name        string
	Members     []string // participant keys
	Focus       string
	Coordinator string // participant key
}

// FormSubgroups partitions the roster into n sub-teams. "balanced" splits
// evenly in roster order; "specialized" groups by reasoning depth so deep
// reasoners, balanced thinkers, and quick responders each get a team. The
// first member of each group coordinates it.
func FormSubgroups(roster types.Roster, n int, grouping string) []SubGroup {
	if len(roster) == 0 {
		return nil
	}
	// Specialized grouping is tiered by trait, so n does not apply.
	if grouping == "specialized" {
		tiers := []struct {
			name  string
			focus string
			match func(types.Participant) bool
		}{
			{"Deep Analysis Team", "complex reasoning and implications", func(p types.Participant) bool { return p.ReasoningDepth >= 3 }},
			{"Balanced Team", "practical solutions and trade-offs", func(p types.Participant) bool { return p.ReasoningDepth == 2 }},
			{"Quick Response Team", "rapid assessment and key insights", func(p types.Participant) bool { return p.ReasoningDepth <= 1 }},
		}
		var groups []SubGroup
		for _, tier := range tiers {
			var members []string
			for _, p := range roster {
				if tier.match(p) {
					members = append(members, p.Key)
				}
			}
			if len(members) == 0 {
				continue
			}
			groups = append(groups, SubGroup{
				Name:        tier.name,
				Focus:       tier.focus,
				Members:     members,
				Coordinator: members[0],
			})
		}
		return groups
	}

	if n <= 0 {
		return nil
	}
	if n > len(roster) {
		n = len(roster)
	}
	size := len(roster) / n
	groups := make([]SubGroup, 0, n)
	for i := 0; i < n; i++ {
		start := i * size
		end := start + size
		if i == n-1 {
			end = len(roster)
		}
		members := make([]string, 0, end-start)
		for _, p := range roster[start:end] {
			members = append(members, p.Key)
		}
		groups = append(groups, SubGroup{
			Name:        fmt.Sprintf("Team %c", 'A'+i),
			Focus:       fmt.Sprintf("aspect %d", i+1),
			Members:     members,
			Coordinator: members[0],
		})
	}
	return groups
}

// ConsensusItems partitions the council's key points into those most voices
// repeat (70% of contributors or more) and those only a single voice raised.
// Points are compared case-insensitively after trimming.
func ConsensusItems(contributions map[string][]string) (consensus, divergent []string) {
	pointVoices := make(map[string]map[string]struct{})
	for key, points := range contributions {
		for _, point := range points {
			normalized := strings.ToLower(strings.TrimSpace(point))
			if normalized == "" {
				continue
			}
			if pointVoices[normalized] == nil {
				pointVoices[normalized] = make(map[string]struct{})
			}
			pointVoices[normalized][key] = struct{}{}
		}
	}

	threshold := float64(len(contributions)) * 0.7
	for point, voices := range pointVoices {
		switch {
		case float64(len(voices)) >= threshold:
			consensus = append(consensus, point)
		case len(voices) == 1:
			divergent = append(divergent, point)
		}
	}
	sort.Strings(consensus)
	sort.Strings(divergent)
	return consensus, divergent
}

// Compromise marks a pair of positions with enough common ground to merge.
type Compromise struct {
	Round        int
	Participants []string
	Rationale    string
}

// DetectCompromise scans current positions pairwise for shared vocabulary.
// Any pair overlapping on four or more substantive words (5+ letters, to
// skip connectives) is a compromise opportunity. Keys are scanned in sorted
// order so detection is deterministic.
func DetectCompromise(positions map[string]string, round int) (Compromise, bool) {
	keys := make([]string, 0, len(positions))
	for k := range positions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	words := func(text string) map[string]struct{} {
		set := make(map[string]struct{})
		for _, w := range strings.Fields(strings.ToLower(text)) {
			w = strings.Trim(w, ".,!?;:\"'()")
			if len(w) >= 5 {
				set[w] = struct{}{}
			}
		}
		return set
	}

	for i := 0; i < len(keys); i++ {
		a := words(positions[keys[i]])
		for j := i + 1; j < len(keys); j++ {
			overlap := 0
			for w := range words(positions[keys[j]]) {
				if _, ok := a[w]; ok {
					overlap++
				}
			}
			if overlap >= 4 {
				return Compromise{
					Round:        round,
					Participants: []string{keys[i], keys[j]},
					Rationale:    fmt.Sprintf("positions share %d substantive terms", overlap),
				}, true
			}
		}
	}
	return Compromise{}, false
}

// collaborationFraming renders the collaborative system prompt block for one
// participant, including their sub-group and the current shared workspace.
func collaborationFraming(cfg CollaborationConfig, group *SubGroup, state *types.SessionState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "MODE: collaborative, strategy %s. This is joint work, not a contest.\n", cfg.strategy())
	sb.WriteString("Build on the other voices, acknowledge their contributions, seek common ground, and propose compromises where positions differ.\n")

	switch cfg.strategy() {
	case StrategyConsensusBuilding:
		sb.WriteString("Priority: identify agreements and work through disagreements with constructive dialogue.\n")
	case StrategyProblemSolving:
		sb.WriteString("Priority: break the problem down, contribute your expertise, and integrate the partial solutions.\n")
	case StrategySynthesis:
		sb.WriteString("Priority: find the complementary aspects of each viewpoint and merge them into a holistic perspective.\n")
	case StrategyBrainstorming:
		sb.WriteString("Priority: generate ideas freely, build on others, and defer judgment.\n")
	}

	if group != nil {
		fmt.Fprintf(&sb, "Your sub-group: %s (focus: %s, coordinator: %s, members: %s).\n",
			group.Name, group.Focus, group.Coordinator, strings.Join(group.Members, ", "))
	}
	if len(state.ConsensusItems) > 0 {
		sb.WriteString("Points the council already agrees on:\n")
		for _, item := range state.ConsensusItems {
			fmt.Fprintf(&sb, "- %s\n", item)
		}
	}
	if len(state.DivergentItems) > 0 {
		sb.WriteString("Points still held by a single voice:\n")
		for _, item := range state.DivergentItems {
			fmt.Fprintf(&sb, "- %s\n", item)
		}
	}
	return sb.String()
}

// keyPoints extracts the bullet- and numbered-list lines of an argument; a
// contribution without list structure counts as one point per sentence-ish
// line.
func keyPoints(content string) []string {
	var points []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. ")
		if line != "" {
			points = append(points, line)
		}
	}
	return points
}

// collaborationPhase refreshes the shared workspace from one round's
// arguments and records any compromise opening as a session event.
func (e *Engine) collaborationPhase(state *types.SessionState, result *types.RoundResult) {
	if !e.cfg.Collaboration.Enabled {
		return
	}

	contributions := make(map[string][]string)
	positions := make(map[string]string)
	for _, arg := range result.Arguments {
		if arg.Abstained {
			continue
		}
		contributions[arg.ParticipantKey] = keyPoints(arg.Content)
		positions[arg.ParticipantKey] = arg.Content
	}
	state.ConsensusItems, state.DivergentItems = ConsensusItems(contributions)

	if comp, ok := DetectCompromise(positions, result.Round); ok {
		e.appendEvent(state, types.SessionEvent{
			Kind:   types.EventCompromise,
			Round:  result.Round,
			Detail: fmt.Sprintf("%s: %s", strings.Join(comp.Participants, " and "), comp.Rationale),
		})
		e.logger.Info("compromise opportunity detected",
			zap.Int("round", result.Round),
			zap.Strings("participants", comp.Participants))
	}
}
