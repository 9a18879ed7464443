package analytics

// AgentTotals accumulates one participant's performance across sessions.
type AgentTotals struct {
	Key             string  `json:"key"`
	Name            string  `json:"name"`
	Sessions        int     `json:"sessions"`
	Arguments       int     `json:"arguments"`
	FirstPlaceVotes int     `json:"first_place_votes"`
	AvgWinRate      float64 `json:"avg_win_rate"`
	AvgFocusScore   float64 `json:"avg_focus_score"`
}

// Aggregate folds per-session reports into per-participant totals, keyed by
// participant key. Win rate and focus averages weigh every session equally.
func Aggregate(reports []*Report) map[string]AgentTotals {
	totals := make(map[string]AgentTotals)
	winSums := make(map[string]float64)
	focusSums := make(map[string]float64)
	focusSessions := make(map[string]int)

	for _, r := range reports {
		for key, s := range r.Agents {
			t := totals[key]
			t.Key = key
			t.Name = s.Name
			t.Sessions++
			t.Arguments += s.Arguments
			t.FirstPlaceVotes += s.FirstPlaceVotes
			totals[key] = t

			winSums[key] += s.WinRate
			if s.AvgFocusScore > 0 {
				focusSums[key] += s.AvgFocusScore
				focusSessions[key]++
			}
		}
	}

	for key, t := range totals {
		t.AvgWinRate = winSums[key] / float64(t.Sessions)
		if focusSessions[key] > 0 {
			t.AvgFocusScore = focusSums[key] / float64(focusSessions[key])
		}
		totals[key] = t
	}
	return totals
}
