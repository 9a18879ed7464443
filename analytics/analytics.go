// Package analytics derives per-participant statistics, voting patterns, and
// reports from finished deliberation sessions. Everything here is pure
// computation over the persisted session state.
package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BaSui01/councilflow/types"
)

// AgentStats is one participant's performance in a single session.
type AgentStats struct {
	Key               string  `json:"key"`
	Name              string  `json:"name"`
	Arguments         int     `json:"arguments"`
	Abstentions       int     `json:"abstentions"`
	AvgFocusScore     float64 `json:"avg_focus_score"`
	FirstPlaceVotes   int     `json:"first_place_votes"`
	WeightedVotes     int     `json:"weighted_votes"`
	WinRate           float64 `json:"win_rate"`
	AvgArgumentLength float64 `json:"avg_argument_length"`
	Rounds            int     `json:"rounds"`
}

// GraphNode is one argument in the argument graph.
type GraphNode struct {
	ID             string `json:"id"`
	ParticipantKey string `json:"participant_key"`
	Round          int    `json:"round"`
	Excerpt        string `json:"excerpt"`
}

// GraphLink connects an argument to one it responds to.
type GraphLink struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ArgumentGraph is the session's reply structure in node-link form: every
// argument of round N responds to every argument of round N-1.
type ArgumentGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Report is the full analysis of one session.
type Report struct {
	SessionID          string                    `json:"session_id"`
	Question           string                    `json:"question"`
	Rounds             int                       `json:"rounds"`
	ConsensusReached   bool                      `json:"consensus_reached"`
	Outcome            types.Outcome             `json:"outcome"`
	Winner             string                    `json:"winner,omitempty"`
	Agents             map[string]AgentStats     `json:"agents"`
	VotingMatrix       map[string]map[string]int `json:"voting_matrix"`
	SupportProgression []float64                 `json:"support_progression"`
	Graph              ArgumentGraph             `json:"argument_graph"`
}

// Analyze computes the full report for one session. The state is read only.
func Analyze(state *types.SessionState) *Report {
	r := &Report{
		SessionID:    state.ID,
		Question:     state.Question,
		Rounds:       len(state.Rounds),
		Outcome:      state.Outcome,
		Agents:       make(map[string]AgentStats),
		VotingMatrix: make(map[string]map[string]int),
	}
	if len(state.Rounds) > 0 {
		last := state.Rounds[len(state.Rounds)-1]
		r.ConsensusReached = last.Consensus.Reached
		if author, ok := authorOf(state, last.Consensus.LeadingArgumentID); ok {
			r.Winner = author
		}
	}

	r.Agents = agentStats(state)
	r.VotingMatrix = votingMatrix(state)
	r.SupportProgression = supportProgression(state)
	r.Graph = argumentGraph(state)
	return r
}

func authorOf(state *types.SessionState, argumentID string) (string, bool) {
	if argumentID == "" {
		return "", false
	}
	for _, a := range state.Opening {
		if a.ID == argumentID {
			return a.ParticipantKey, true
		}
	}
	for _, round := range state.Rounds {
		for _, a := range round.Arguments {
			if a.ID == argumentID {
				return a.ParticipantKey, true
			}
		}
	}
	return "", false
}

// allArguments walks opening plus every round in order.
func allArguments(state *types.SessionState, fn func(types.Argument)) {
	for _, a := range state.Opening {
		fn(a)
	}
	for _, round := range state.Rounds {
		for _, a := range round.Arguments {
			fn(a)
		}
	}
}

func agentStats(state *types.SessionState) map[string]AgentStats {
	stats := make(map[string]AgentStats, len(state.Participants))
	for _, p := range state.Participants {
		stats[p.Key] = AgentStats{Key: p.Key, Name: p.Name, Rounds: len(state.Rounds)}
	}

	lengths := make(map[string]int)
	focusSums := make(map[string]float64)
	focusCounts := make(map[string]int)
	allArguments(state, func(a types.Argument) {
		s := stats[a.ParticipantKey]
		if a.Abstained {
			s.Abstentions++
		} else {
			s.Arguments++
			lengths[a.ParticipantKey] += len(a.Content)
			if a.Focus != nil {
				focusSums[a.ParticipantKey] += a.Focus.Score
				focusCounts[a.ParticipantKey]++
			}
		}
		stats[a.ParticipantKey] = s
	})

	for _, round := range state.Rounds {
		author := make(map[string]string, len(round.Arguments))
		for _, a := range round.Arguments {
			author[a.ID] = a.ParticipantKey
		}
		for _, v := range round.Votes {
			if v.Abstained {
				continue
			}
			n := len(v.Ranking)
			for pos, id := range v.Ranking {
				key, ok := author[id]
				if !ok {
					continue
				}
				s := stats[key]
				s.WeightedVotes += n - pos
				if pos == 0 {
					s.FirstPlaceVotes++
				}
				stats[key] = s
			}
		}
	}

	for key, s := range stats {
		if s.Arguments > 0 {
			s.AvgArgumentLength = float64(lengths[key]) / float64(s.Arguments)
		}
		if focusCounts[key] > 0 {
			s.AvgFocusScore = focusSums[key] / float64(focusCounts[key])
		}
		if s.Rounds > 0 {
			s.WinRate = float64(s.FirstPlaceVotes) / float64(s.Rounds)
		}
		stats[key] = s
	}
	return stats
}

// votingMatrix weights each ballot by inverse rank: on a ballot of N
// arguments the first choice's author earns N points from that voter.
func votingMatrix(state *types.SessionState) map[string]map[string]int {
	matrix := make(map[string]map[string]int)
	for _, round := range state.Rounds {
		author := make(map[string]string, len(round.Arguments))
		for _, a := range round.Arguments {
			author[a.ID] = a.ParticipantKey
		}
		for _, v := range round.Votes {
			if v.Abstained {
				continue
			}
			n := len(v.Ranking)
			for pos, id := range v.Ranking {
				key, ok := author[id]
				if !ok {
					continue
				}
				if matrix[v.VoterKey] == nil {
					matrix[v.VoterKey] = make(map[string]int)
				}
				matrix[v.VoterKey][key] += n - pos
			}
		}
	}
	return matrix
}

func supportProgression(state *types.SessionState) []float64 {
	progression := make([]float64, 0, len(state.Rounds))
	for _, round := range state.Rounds {
		progression = append(progression, round.Consensus.SupportFraction)
	}
	return progression
}

func argumentGraph(state *types.SessionState) ArgumentGraph {
	var g ArgumentGraph
	var prev []string
	addLayer := func(args []types.Argument) {
		var current []string
		for _, a := range args {
			if a.Abstained {
				continue
			}
			g.Nodes = append(g.Nodes, GraphNode{
				ID:             a.ID,
				ParticipantKey: a.ParticipantKey,
				Round:          a.Round,
				Excerpt:        excerpt(a.Content, 100),
			})
			for _, from := range prev {
				g.Links = append(g.Links, GraphLink{From: from, To: a.ID})
			}
			current = append(current, a.ID)
		}
		if len(current) > 0 {
			prev = current
		}
	}
	addLayer(state.Opening)
	for _, round := range state.Rounds {
		addLayer(round.Arguments)
	}
	return g
}

func excerpt(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}

// Render produces the human-readable session report.
func (r *Report) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Debate Report: %s\n\n", r.SessionID)
	fmt.Fprintf(&sb, "Question: %s\n", r.Question)
	fmt.Fprintf(&sb, "Rounds: %d, outcome: %s, consensus: %v\n", r.Rounds, r.Outcome, r.ConsensusReached)
	if r.Winner != "" {
		fmt.Fprintf(&sb, "Leading voice: %s\n", r.Winner)
	}

	sb.WriteString("\n## Participants\n\n")
	keys := make([]string, 0, len(r.Agents))
	for key := range r.Agents {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := r.Agents[keys[i]], r.Agents[keys[j]]
		if a.WeightedVotes != b.WeightedVotes {
			return a.WeightedVotes > b.WeightedVotes
		}
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		s := r.Agents[key]
		fmt.Fprintf(&sb, "- %s: %d arguments, %d first-place votes, win rate %.2f, avg length %.0f",
			s.Name, s.Arguments, s.FirstPlaceVotes, s.WinRate, s.AvgArgumentLength)
		if s.AvgFocusScore > 0 {
			fmt.Fprintf(&sb, ", avg focus %.2f", s.AvgFocusScore)
		}
		if s.Abstentions > 0 {
			fmt.Fprintf(&sb, ", %d abstentions", s.Abstentions)
		}
		sb.WriteString("\n")
	}

	if len(r.SupportProgression) > 0 {
		sb.WriteString("\n## Consensus progression\n\n")
		for i, support := range r.SupportProgression {
			fmt.Fprintf(&sb, "- round %d: %.0f%% support\n", i+1, support*100)
		}
	}
	return sb.String()
}
