package council

import (
	"fmt"
	"strings"

	"github.com/BaSui01/councilflow/types"
)

// personaSystemPrompt renders a participant's traits into the system message
// framing every completion call for that participant.
func personaSystemPrompt(p types.Participant) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, one voice in a deliberation council.\n", p.Name)
	if p.Perspective != "" {
		fmt.Fprintf(&sb, "Your perspective: %s.\n", p.Perspective)
	}
	if p.Traits != "" {
		fmt.Fprintf(&sb, "Your traits: %s.\n", p.Traits)
	}

	switch {
	case p.Persistence >= 0.7:
		sb.WriteString("Hold your position firmly; concede only to decisive evidence.\n")
	case p.Persistence <= 0.3:
		sb.WriteString("Update your position readily when others make strong points.\n")
	}

	if p.TruthSeeking >= 0.7 {
		sb.WriteString("Prioritize evidence and accuracy over persuasion or rhetoric.\n")
	}

	switch {
	case p.ReasoningDepth >= 3:
		sb.WriteString("Reason step by step and examine second-order consequences before concluding.\n")
	case p.ReasoningDepth <= 1:
		sb.WriteString("Be brief and direct; state your conclusion with one or two supporting reasons.\n")
	}
	return sb.String()
}

// historyWindow renders the most recent prior arguments, bounded to limit.
func historyWindow(state *types.SessionState, limit int) string {
	var entries []string
	appendArgs := func(args []types.Argument) {
		for _, a := range args {
			if a.Abstained {
				continue
			}
			name := a.ParticipantKey
			if p, ok := state.Participants.Find(a.ParticipantKey); ok {
				name = p.Name
			}
			entries = append(entries, fmt.Sprintf("%s (round %d): %s", name, a.Round, a.Content))
		}
	}
	appendArgs(state.Opening)
	for _, round := range state.Rounds {
		appendArgs(round.Arguments)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	if len(entries) == 0 {
		return ""
	}
	return "Prior contributions:\n" + strings.Join(entries, "\n\n")
}

func openingPrompt(question, background, context string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The council is deliberating the question:\n%s\n\n", question)
	if background != "" {
		fmt.Fprintf(&sb, "Background from earlier deliberations:\n%s\n\n", background)
	}
	if context != "" {
		sb.WriteString(context)
		sb.WriteString("\n")
	}
	sb.WriteString("Give your opening statement: your initial position and the reasoning behind it.")
	return sb.String()
}

func argumentPrompt(question, history, context string, round int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question under deliberation:\n%s\n\n", question)
	if context != "" {
		sb.WriteString(context)
		sb.WriteString("\n")
	}
	if history != "" {
		sb.WriteString(history)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "This is argument round %d. Respond to the strongest opposing points and advance your position.", round)
	return sb.String()
}

func votePrompt(question string, visible []types.Argument, state *types.SessionState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question under deliberation:\n%s\n\n", question)
	sb.WriteString("Rank ALL of this round's arguments from most to least convincing.\n\n")
	for i, a := range visible {
		name := a.ParticipantKey
		if p, ok := state.Participants.Find(a.ParticipantKey); ok {
			name = p.Name
		}
		fmt.Fprintf(&sb, "%d. %s: %s\n\n", i+1, name, a.Content)
	}
	fmt.Fprintf(&sb, "Reply with exactly one line in the form:\nRANKING: <comma-separated argument numbers, best first, all %d numbers exactly once>", len(visible))
	return sb.String()
}

func judgePrompt(state *types.SessionState, history string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the judge of a deliberation council.\n\nQuestion:\n%s\n\n", state.Question)
	if history != "" {
		sb.WriteString(history)
		sb.WriteString("\n\n")
	}
	if len(state.Rounds) > 0 {
		last := state.Rounds[len(state.Rounds)-1]
		if last.Consensus.Reached {
			fmt.Fprintf(&sb, "The council reached consensus with %.0f%% support.\n\n", last.Consensus.SupportFraction*100)
		} else {
			sb.WriteString("The council did not reach consensus within the allotted rounds.\n\n")
		}
	}
	sb.WriteString("Synthesize the deliberation into a final decision: state the conclusion, the strongest supporting reasoning, and any significant dissent.")
	return sb.String()
}
