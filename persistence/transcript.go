package persistence

import (
	"fmt"
	"strings"

	"github.com/BaSui01/councilflow/types"
)

// RenderTranscript formats a session as a markdown transcript.
func RenderTranscript(state *types.SessionState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", state.Title)
	fmt.Fprintf(&sb, "**Question:** %s\n\n", state.Question)
	fmt.Fprintf(&sb, "**Session:** `%s` · **Status:** %s", state.ID, state.Status)
	if state.Outcome != "" {
		fmt.Fprintf(&sb, " · **Outcome:** %s", state.Outcome)
	}
	sb.WriteString("\n\n## Participants\n\n")
	for _, p := range state.Participants {
		marker := ""
		if !state.IsActive(p.Key) {
			marker = " ~~eliminated~~"
		}
		fmt.Fprintf(&sb, "- **%s** (%s/%s)%s — %s\n", p.Name, p.Provider, p.Model, marker, p.Perspective)
	}

	if len(state.Opening) > 0 {
		sb.WriteString("\n## Opening Statements\n")
		for _, arg := range state.Opening {
			writeArgument(&sb, state, arg)
		}
	}

	for _, round := range state.Rounds {
		fmt.Fprintf(&sb, "\n## Round %d\n", round.Round)
		for _, arg := range round.Arguments {
			writeArgument(&sb, state, arg)
		}
		if len(round.Votes) > 0 {
			sb.WriteString("\n### Votes\n\n")
			for _, vote := range round.Votes {
				if vote.Abstained {
					fmt.Fprintf(&sb, "- %s: abstained\n", vote.VoterKey)
					continue
				}
				fmt.Fprintf(&sb, "- %s: %s\n", vote.VoterKey, strings.Join(vote.Ranking, " > "))
			}
		}
		if len(round.Votes) > 0 {
			sb.WriteString("\n### Consensus Check\n\n")
			if round.Consensus.Reached {
				fmt.Fprintf(&sb, "Consensus reached on `%s` with %.0f%% support.\n",
					round.Consensus.LeadingArgumentID, round.Consensus.SupportFraction*100)
			} else {
				fmt.Fprintf(&sb, "No consensus (leading support %.0f%%).\n",
					round.Consensus.SupportFraction*100)
			}
		}
	}

	if len(state.Events) > 0 {
		sb.WriteString("\n## Events\n\n")
		for _, ev := range state.Events {
			fmt.Fprintf(&sb, "- round %d [%s] %s\n", ev.Round, ev.Kind, ev.Detail)
		}
	}

	if state.JudgeDecision != "" {
		sb.WriteString("\n## Judge Decision\n\n")
		sb.WriteString(state.JudgeDecision)
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeArgument(sb *strings.Builder, state *types.SessionState, arg types.Argument) {
	name := arg.ParticipantKey
	if p, ok := state.Participants.Find(arg.ParticipantKey); ok {
		name = p.Name
	}
	fmt.Fprintf(sb, "\n### %s\n\n", name)
	if arg.Abstained {
		sb.WriteString("*Abstained (provider unavailable).*\n")
		return
	}
	sb.WriteString(arg.Content)
	sb.WriteString("\n")
	if arg.Focus != nil {
		fmt.Fprintf(sb, "\n*Focus: %.2f — %s*\n", arg.Focus.Score, arg.Focus.Reasoning)
	}
}
