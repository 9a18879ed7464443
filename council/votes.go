package council

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BaSui01/councilflow/types"
)

// ParseRanking extracts a full ranking from a voter's response. The vote
// prompt numbers the visible arguments 1..N and asks for a line like
// "RANKING: 2, 1, 3"; bare number lists without the label are accepted too.
// The result must be an exact permutation of the visible argument IDs —
// partial, duplicated, or out-of-range rankings are errors, and the caller
// records the vote as an abstention.
func ParseRanking(text string, visible []types.Argument) ([]string, error) {
	n := len(visible)
	if n == 0 {
		return nil, fmt.Errorf("no visible arguments to rank")
	}

	line := rankingLine(text)
	if line == "" {
		return nil, fmt.Errorf("no ranking line in response")
	}

	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if len(fields) != n {
		return nil, types.NewErrorf(types.ErrMalformedVote,
			"ranking has %d entries, want %d", len(fields), n)
	}

	ranking := make([]string, 0, n)
	for _, f := range fields {
		idx, err := strconv.Atoi(f)
		if err != nil || idx < 1 || idx > n {
			return nil, types.NewErrorf(types.ErrMalformedVote, "rank entry %q out of range 1..%d", f, n)
		}
		ranking = append(ranking, visible[idx-1].ID)
	}
	if !types.IsPermutation(ranking, visible) {
		return nil, types.NewError(types.ErrMalformedVote, "ranking is not a permutation of the visible arguments")
	}
	return ranking, nil
}

// rankingLine finds the line carrying the ranking. Prefers an explicit
// "RANKING:" label, falls back to the first line that is only numbers and
// separators.
func rankingLine(text string) string {
	var fallback string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if strings.HasPrefix(upper, "RANKING:") {
			return strings.TrimSpace(line[len("RANKING:"):])
		}
		if fallback == "" && isNumberList(line) {
			fallback = line
		}
	}
	return fallback
}

func isNumberList(line string) bool {
	hasDigit := false
	for _, r := range line {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == ',' || r == ' ' || r == '>' || r == '-' || r == '．' || r == '.':
		default:
			return false
		}
	}
	return hasDigit
}
