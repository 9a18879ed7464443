package council

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/councilflow/types"
)

func TestParseRanking(t *testing.T) {
	t.Parallel()

	visible := args("a", "b", "c")

	cases := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "labelled",
			input: "RANKING: 2, 1, 3",
			want:  []string{"arg-b", "arg-a", "arg-c"},
		},
		{
			name:  "labelled lowercase with chatter",
			input: "After careful thought:\nranking: 3 > 1 > 2\nThat is my final answer.",
			want:  []string{"arg-c", "arg-a", "arg-b"},
		},
		{
			name:  "bare number list fallback",
			input: "1, 2, 3",
			want:  []string{"arg-a", "arg-b", "arg-c"},
		},
		{name: "partial ranking", input: "RANKING: 1, 2", wantErr: true},
		{name: "duplicate entries", input: "RANKING: 1, 1, 2", wantErr: true},
		{name: "out of range", input: "RANKING: 1, 2, 4", wantErr: true},
		{name: "no numbers at all", input: "I prefer the first argument.", wantErr: true},
		{name: "empty response", input: "", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRanking(tc.input, visible)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.True(t, types.IsPermutation(got, visible))
		})
	}
}

func TestParseRankingMalformedCodeIsMalformedVote(t *testing.T) {
	t.Parallel()

	_, err := ParseRanking("RANKING: 1, 2", args("a", "b", "c"))
	require.Error(t, err)
	assert.Equal(t, types.ErrMalformedVote, types.CodeOf(err))
}

func TestParseRankingNoVisibleArguments(t *testing.T) {
	t.Parallel()

	_, err := ParseRanking("RANKING: 1", nil)
	require.Error(t, err)
}
