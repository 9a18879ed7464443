package council

import (
	"github.com/BaSui01/councilflow/types"
)

// SelectElimination picks the participant to remove after a voting round
// using inverse-rank scoring: on a ballot ranking N arguments, rank 1 earns
// its author N points and the last rank earns 1. The active, non-exempt
// participant with the lowest aggregate is eliminated; a participant whose
// argument was never ranked (or who abstained) scores zero.
//
// Ties at the minimum are broken by lexicographically greatest key so the
// choice is reproducible. Returns ok=false when elimination must be skipped:
// removal would shrink the roster below two, or no eligible candidate exists.
func SelectElimination(votes []types.Vote, visible []types.Argument, active types.Roster) (string, bool) {
	if len(active) <= 2 {
		return "", false
	}

	authorOf := make(map[string]string, len(visible))
	for _, a := range visible {
		authorOf[a.ID] = a.ParticipantKey
	}

	scores := make(map[string]int, len(active))
	for _, p := range active {
		scores[p.Key] = 0
	}
	for _, v := range votes {
		if v.Abstained {
			continue
		}
		n := len(v.Ranking)
		for pos, id := range v.Ranking {
			author, ok := authorOf[id]
			if !ok {
				continue
			}
			if _, isActive := scores[author]; !isActive {
				continue
			}
			scores[author] += n - pos
		}
	}

	var (
		worst    string
		worstPts int
		found    bool
	)
	for _, p := range active {
		if p.EliminationExempt {
			continue
		}
		pts := scores[p.Key]
		switch {
		case !found:
			worst, worstPts, found = p.Key, pts, true
		case pts < worstPts:
			worst, worstPts = p.Key, pts
		case pts == worstPts && p.Key > worst:
			worst = p.Key
		}
	}
	if !found {
		return "", false
	}
	return worst, true
}
