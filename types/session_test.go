package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewSessionID(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	id := NewSessionID(now, "Should We Ship")
	require.Equal(t, "20260314_092653_Should_We_Ship", id)

	id = NewSessionID(now, "")
	require.Equal(t, "20260314_092653_session", id)

	long := NewSessionID(now, "a very long title that keeps going well past the maximum slug length boundary")
	require.LessOrEqual(t, len(long), len("20060102_150405_")+48)
}

func TestIsPermutation(t *testing.T) {
	t.Parallel()

	visible := []Argument{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	require.True(t, IsPermutation([]string{"b", "a", "c"}, visible))
	require.False(t, IsPermutation([]string{"a", "b"}, visible), "partial ranking")
	require.False(t, IsPermutation([]string{"a", "a", "b"}, visible), "duplicate entry")
	require.False(t, IsPermutation([]string{"a", "b", "z"}, visible), "dangling reference")
	require.False(t, IsPermutation([]string{"a", "b", "c", "c"}, visible))
}

func TestValidateRoster(t *testing.T) {
	t.Parallel()

	valid := Roster{
		{Key: "one", Name: "One", Persistence: 0.5, TruthSeeking: 0.7, ReasoningDepth: 2},
		{Key: "two", Name: "Two", Persistence: 0.5, TruthSeeking: 0.7, ReasoningDepth: 1},
	}
	require.NoError(t, ValidateRoster(valid))

	require.Error(t, ValidateRoster(valid[:1]), "single participant has no quorum")

	dup := append(Roster{}, valid...)
	dup = append(dup, valid[0])
	err := ValidateRoster(dup)
	require.Error(t, err)
	require.Equal(t, ErrConfiguration, CodeOf(err))

	bad := Roster{
		{Key: "one", Name: "One", Persistence: 1.5, TruthSeeking: 0.7, ReasoningDepth: 2},
		valid[1],
	}
	require.Equal(t, ErrConfiguration, CodeOf(ValidateRoster(bad)))
}

func TestRosterRemove(t *testing.T) {
	t.Parallel()

	r := Roster{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	r = r.Remove("b")
	require.Equal(t, []string{"a", "c"}, r.Keys())

	// Removing an absent key is a no-op.
	r = r.Remove("b")
	require.Equal(t, []string{"a", "c"}, r.Keys())
}

func TestVisibleArgumentsExcludesAbstentions(t *testing.T) {
	t.Parallel()

	round := RoundResult{Arguments: []Argument{
		{ID: "a1"},
		{ID: "a2", Abstained: true},
		{ID: "a3"},
	}}
	visible := round.VisibleArguments()
	require.Len(t, visible, 2)
	require.Equal(t, "a1", visible[0].ID)
	require.Equal(t, "a3", visible[1].ID)
}

func TestConsensusModeDefaults(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.50, ConsensusMajority.DefaultThreshold())
	require.Equal(t, 0.66, ConsensusSupermajority.DefaultThreshold())
	require.Equal(t, 1.0, ConsensusUnanimity.DefaultThreshold())
	require.True(t, ConsensusMajority.Strict())
	require.False(t, ConsensusUnanimity.Strict())
}
