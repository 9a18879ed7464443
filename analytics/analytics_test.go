package analytics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/councilflow/types"
)

// twoRoundSession builds a finished session: three voices, two voting rounds,
// consensus on alice's second-round argument, cara abstaining in round two.
func twoRoundSession() *types.SessionState {
	arg := func(id, key string, round int, length int, focus float64) types.Argument {
		a := types.Argument{
			ID:             id,
			ParticipantKey: key,
			Round:          round,
			Content:        strings.Repeat("x", length),
		}
		if focus > 0 {
			a.Focus = &types.FocusScore{Score: focus, IsFocused: true}
		}
		return a
	}

	return &types.SessionState{
		ID:       "sess-1",
		Question: "Which path?",
		Outcome:  types.OutcomeConsensus,
		Participants: types.Roster{
			{Key: "alice", Name: "Alice"},
			{Key: "bob", Name: "Bob"},
			{Key: "cara", Name: "Cara"},
		},
		Opening: []types.Argument{
			arg("op-alice", "alice", 0, 10, 0),
			arg("op-bob", "bob", 0, 10, 0),
			arg("op-cara", "cara", 0, 10, 0),
		},
		Rounds: []types.RoundResult{
			{
				Round: 1,
				Arguments: []types.Argument{
					arg("r1-alice", "alice", 1, 20, 0.9),
					arg("r1-bob", "bob", 1, 20, 0.7),
					arg("r1-cara", "cara", 1, 20, 0),
				},
				Votes: []types.Vote{
					{Round: 1, VoterKey: "alice", Ranking: []string{"r1-bob", "r1-alice", "r1-cara"}},
					{Round: 1, VoterKey: "bob", Ranking: []string{"r1-alice", "r1-bob", "r1-cara"}},
					{Round: 1, VoterKey: "cara", Ranking: []string{"r1-alice", "r1-cara", "r1-bob"}},
				},
				Consensus: types.ConsensusResult{LeadingArgumentID: "r1-alice", SupportFraction: 2.0 / 3.0},
			},
			{
				Round: 2,
				Arguments: []types.Argument{
					arg("r2-alice", "alice", 2, 30, 0.8),
					arg("r2-bob", "bob", 2, 30, 0),
					{ID: "r2-cara", ParticipantKey: "cara", Round: 2, Abstained: true},
				},
				Votes: []types.Vote{
					{Round: 2, VoterKey: "alice", Ranking: []string{"r2-alice", "r2-bob"}},
					{Round: 2, VoterKey: "bob", Ranking: []string{"r2-alice", "r2-bob"}},
					{Round: 2, VoterKey: "cara", Abstained: true},
				},
				Consensus: types.ConsensusResult{Reached: true, LeadingArgumentID: "r2-alice", SupportFraction: 1.0},
			},
		},
	}
}

func TestAnalyzeAgentStats(t *testing.T) {
	t.Parallel()

	r := Analyze(twoRoundSession())

	assert.Equal(t, "sess-1", r.SessionID)
	assert.Equal(t, 2, r.Rounds)
	assert.True(t, r.ConsensusReached)
	assert.Equal(t, "alice", r.Winner)

	require.Len(t, r.Agents, 3)

	alice := r.Agents["alice"]
	assert.Equal(t, 3, alice.Arguments)
	assert.Equal(t, 0, alice.Abstentions)
	// Round 1: 2 first places, ballot weights 2+3+3; round 2: 2 first
	// places, weights 2+2.
	assert.Equal(t, 4, alice.FirstPlaceVotes)
	assert.Equal(t, 12, alice.WeightedVotes)
	assert.InDelta(t, 2.0, alice.WinRate, 1e-9)
	assert.InDelta(t, 20.0, alice.AvgArgumentLength, 1e-9)
	assert.InDelta(t, 0.85, alice.AvgFocusScore, 1e-9)

	bob := r.Agents["bob"]
	assert.Equal(t, 1, bob.FirstPlaceVotes)
	assert.Equal(t, 8, bob.WeightedVotes)
	assert.InDelta(t, 0.5, bob.WinRate, 1e-9)
	assert.InDelta(t, 0.7, bob.AvgFocusScore, 1e-9)

	cara := r.Agents["cara"]
	assert.Equal(t, 2, cara.Arguments)
	assert.Equal(t, 1, cara.Abstentions)
	assert.Equal(t, 0, cara.FirstPlaceVotes)
	assert.Equal(t, 4, cara.WeightedVotes)
	assert.Zero(t, cara.AvgFocusScore)
}

func TestAnalyzeVotingMatrixAndProgression(t *testing.T) {
	t.Parallel()

	r := Analyze(twoRoundSession())

	assert.Equal(t, 4, r.VotingMatrix["alice"]["alice"])
	assert.Equal(t, 4, r.VotingMatrix["alice"]["bob"])
	assert.Equal(t, 3, r.VotingMatrix["cara"]["alice"])
	// Cara abstained in round two, so her row stops at round one.
	assert.Equal(t, 2, r.VotingMatrix["cara"]["cara"])

	require.Len(t, r.SupportProgression, 2)
	assert.InDelta(t, 2.0/3.0, r.SupportProgression[0], 1e-9)
	assert.InDelta(t, 1.0, r.SupportProgression[1], 1e-9)
}

func TestAnalyzeArgumentGraph(t *testing.T) {
	t.Parallel()

	g := Analyze(twoRoundSession()).Graph

	// Cara's round-two abstention drops her node and its incoming links.
	assert.Len(t, g.Nodes, 8)
	assert.Len(t, g.Links, 9+6)

	for _, link := range g.Links {
		assert.NotEqual(t, "r2-cara", link.To)
	}
}

func TestReportRender(t *testing.T) {
	t.Parallel()

	out := Analyze(twoRoundSession()).Render()

	assert.Contains(t, out, "# Debate Report: sess-1")
	assert.Contains(t, out, "Leading voice: alice")
	assert.Contains(t, out, "- Cara: 2 arguments, 0 first-place votes")
	assert.Contains(t, out, "1 abstentions")
	assert.Contains(t, out, "round 2: 100% support")

	// Participants are listed by weighted votes, strongest first.
	require.Less(t, strings.Index(out, "- Alice:"), strings.Index(out, "- Bob:"))
	require.Less(t, strings.Index(out, "- Bob:"), strings.Index(out, "- Cara:"))
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	first := Analyze(twoRoundSession())

	second := &Report{
		Agents: map[string]AgentStats{
			"alice": {Key: "alice", Name: "Alice", Arguments: 2, FirstPlaceVotes: 0, WinRate: 0, AvgFocusScore: 0},
			"dana":  {Key: "dana", Name: "Dana", Arguments: 2, FirstPlaceVotes: 2, WinRate: 1.0, AvgFocusScore: 0.6},
		},
	}

	totals := Aggregate([]*Report{first, second})
	require.Len(t, totals, 4)

	alice := totals["alice"]
	assert.Equal(t, 2, alice.Sessions)
	assert.Equal(t, 5, alice.Arguments)
	assert.Equal(t, 4, alice.FirstPlaceVotes)
	assert.InDelta(t, 1.0, alice.AvgWinRate, 1e-9)
	// Focus counts only the sessions where it was scored.
	assert.InDelta(t, 0.85, alice.AvgFocusScore, 1e-9)

	dana := totals["dana"]
	assert.Equal(t, 1, dana.Sessions)
	assert.InDelta(t, 1.0, dana.AvgWinRate, 1e-9)
}
