package council

import (
	"sort"

	"github.com/BaSui01/councilflow/types"
)

// EvaluateConsensus runs the first-place plurality rule over one round's
// votes. The leading argument is the one ranked first by the most voters;
// support is leading first-place count over the active participant count.
// Majority and supermajority modes require support strictly greater than the
// threshold; unanimity requires the full fraction.
//
// Ties at the maximum first-place count are broken by (1) lower mean rank
// position across all ballots, then (2) lexicographically lowest author key.
// Both orders are total, so identical input always yields the identical
// leader.
func EvaluateConsensus(votes []types.Vote, visible []types.Argument, activeCount int, mode types.ConsensusMode, threshold float64) types.ConsensusResult {
	if len(visible) == 0 || activeCount == 0 {
		return types.ConsensusResult{}
	}
	if threshold <= 0 {
		threshold = mode.DefaultThreshold()
	}

	authorOf := make(map[string]string, len(visible))
	for _, a := range visible {
		authorOf[a.ID] = a.ParticipantKey
	}

	firstPlace := make(map[string]int)
	rankSum := make(map[string]int)
	rankCount := make(map[string]int)
	for _, v := range votes {
		if v.Abstained {
			continue
		}
		for pos, id := range v.Ranking {
			rankSum[id] += pos + 1
			rankCount[id]++
		}
		if len(v.Ranking) > 0 {
			firstPlace[v.Ranking[0]]++
		}
	}

	meanRank := func(id string) float64 {
		if rankCount[id] == 0 {
			return float64(len(visible) + 1)
		}
		return float64(rankSum[id]) / float64(rankCount[id])
	}

	ids := make([]string, 0, len(visible))
	for _, a := range visible {
		ids = append(ids, a.ID)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if firstPlace[a] != firstPlace[b] {
			return firstPlace[a] > firstPlace[b]
		}
		if ma, mb := meanRank(a), meanRank(b); ma != mb {
			return ma < mb
		}
		return authorOf[a] < authorOf[b]
	})

	leader := ids[0]
	support := float64(firstPlace[leader]) / float64(activeCount)

	var reached bool
	if mode.Strict() {
		reached = support > threshold
	} else {
		reached = support >= threshold
	}
	return types.ConsensusResult{
		Reached:           reached,
		LeadingArgumentID: leader,
		SupportFraction:   support,
	}
}
