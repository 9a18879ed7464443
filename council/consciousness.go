package council

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/llm"
	"github.com/BaSui01/councilflow/persistence"
	"github.com/BaSui01/councilflow/types"
)

// ConsciousnessRoles assigns the fixed roles of a consciousness session.
// The moderator opens and closes, speakers argue and reflect, the critic
// challenges the speakers' arguments.
type ConsciousnessRoles struct {
	Moderator string
	Speakers  []string
	Critic    string
}

// Validate checks role keys against the roster.
func (r ConsciousnessRoles) Validate(roster types.Roster) error {
	if _, ok := roster.Find(r.Moderator); !ok {
		return types.NewErrorf(types.ErrConfiguration, "moderator %q not in roster", r.Moderator)
	}
	if _, ok := roster.Find(r.Critic); !ok {
		return types.NewErrorf(types.ErrConfiguration, "critic %q not in roster", r.Critic)
	}
	if len(r.Speakers) < 2 {
		return types.NewError(types.ErrConfiguration, "consciousness mode requires at least 2 speakers")
	}
	for _, key := range r.Speakers {
		if _, ok := roster.Find(key); !ok {
			return types.NewErrorf(types.ErrConfiguration, "speaker %q not in roster", key)
		}
	}
	return nil
}

// RunConsciousness drives a single-pass fixed-role council: the moderator
// frames the question, each speaker argues, the critic challenges, speakers
// reflect on the critique, and the moderator closes with a synthesis. Every
// phase is checkpointed and, when memory is wired, recorded.
func (e *Engine) RunConsciousness(ctx context.Context, question string, roles ConsciousnessRoles) (*types.SessionState, error) {
	ctx, span := e.tracer.Start(ctx, "council.consciousness")
	defer span.End()

	if err := roles.Validate(e.roster); err != nil {
		return nil, err
	}

	state := e.newState(question)
	seq := 0
	checkpoint := func(phase string) error {
		seq++
		state.UpdatedAt = e.now()
		return e.deps.Checkpoints.Save(ctx, &persistence.Checkpoint{
			SessionID: state.ID,
			Phase:     phase,
			Sequence:  seq,
			State:     state,
			CreatedAt: state.UpdatedAt,
		})
	}

	e.logger.Info("consciousness session starting",
		zap.String("session_id", state.ID),
		zap.Int("speakers", len(roles.Speakers)))

	background := e.sessionBackground(ctx, question)
	moderator, _ := e.roster.Find(roles.Moderator)
	critic, _ := e.roster.Find(roles.Critic)

	// Opening: the moderator frames the deliberation.
	opening, evs := e.generateArgument(ctx, moderator, 0, types.PhaseOpening, "",
		openingPrompt(question, background, e.retrieveContext(ctx, state)))
	e.absorb(state, evs)
	state.Opening = []types.Argument{opening}
	e.recordArguments(ctx, state, state.Opening)
	if opening.Abstained {
		return e.fail(ctx, state, checkpoint, types.NewError(types.ErrQuorum, "moderator failed to open the session"))
	}
	if err := checkpoint("opening"); err != nil {
		return state, err
	}

	// Argument round: every speaker contributes in parallel.
	speakerRoster := make(types.Roster, 0, len(roles.Speakers))
	for _, key := range roles.Speakers {
		p, _ := e.roster.Find(key)
		speakerRoster = append(speakerRoster, p)
	}
	speakerState := *state
	speakerState.ActiveKeys = roles.Speakers
	history := historyWindow(state, e.cfg.HistoryWindow)
	args, err := e.collectArguments(ctx, &speakerState, 1, types.PhaseArgument, func(types.Participant) string {
		return argumentPrompt(question, history, "", 1)
	})
	if err != nil {
		return e.fail(ctx, state, checkpoint, err)
	}
	state.Events = speakerState.Events
	state.Rounds = append(state.Rounds, types.RoundResult{Round: 1, Arguments: args})
	round := &state.Rounds[len(state.Rounds)-1]
	e.recordArguments(ctx, state, args)
	if err := e.checkQuorum(state, args); err != nil {
		return e.fail(ctx, state, checkpoint, err)
	}
	e.focusPhase(ctx, state, round)
	if err := checkpoint("argument"); err != nil {
		return state, err
	}

	// Critique: the critic challenges the speakers.
	critique, evs := e.generateArgument(ctx, critic, 1, types.PhaseCritique, "",
		critiquePrompt(question, round.VisibleArguments(), state))
	e.absorb(state, evs)
	round.Arguments = append(round.Arguments, critique)
	if !critique.Abstained {
		e.recordArguments(ctx, state, []types.Argument{critique})
	}
	if err := checkpoint("critique"); err != nil {
		return state, err
	}

	// Reflection: speakers revisit their positions in light of the critique.
	reflectState := *state
	reflectState.ActiveKeys = roles.Speakers
	reflectHistory := historyWindow(state, e.cfg.HistoryWindow)
	reflections, err := e.collectArguments(ctx, &reflectState, 1, types.PhaseReflection, func(types.Participant) string {
		return reflectionPrompt(question, reflectHistory)
	})
	if err != nil {
		return e.fail(ctx, state, checkpoint, err)
	}
	state.Events = reflectState.Events
	round.Arguments = append(round.Arguments, reflections...)
	e.recordArguments(ctx, state, reflections)
	if err := checkpoint("reflection"); err != nil {
		return state, err
	}

	// Closing: the moderator synthesizes.
	closing, evs := e.generateArgument(ctx, moderator, 1, types.PhaseClosing, "",
		closingPrompt(question, historyWindow(state, 0)))
	e.absorb(state, evs)
	if closing.Abstained {
		return e.fail(ctx, state, checkpoint, types.NewError(types.ErrProvider, "moderator failed to close the session"))
	}
	round.Arguments = append(round.Arguments, closing)
	state.JudgeDecision = closing.Content
	e.recordArguments(ctx, state, []types.Argument{closing})

	// Optional elimination suggestion: advisory only in this mode, recorded
	// as an event rather than applied to the roster.
	if e.cfg.EliminationEnabled {
		e.suggestElimination(ctx, state, round, critic)
	}

	state.Status = types.StatusClosed
	state.Outcome = types.OutcomeConsensus
	if err := checkpoint("closing"); err != nil {
		return state, err
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordSession(string(state.Outcome), 1)
	}
	e.logger.Info("consciousness session closed", zap.String("session_id", state.ID))
	return state, nil
}

// suggestElimination asks the critic's provider which speaker contributed
// least. Best effort; failures are logged and skipped.
func (e *Engine) suggestElimination(ctx context.Context, state *types.SessionState, round *types.RoundResult, critic types.Participant) {
	provider, ok := e.deps.Providers[critic.Provider]
	if !ok {
		return
	}
	var names []string
	for _, a := range round.VisibleArguments() {
		if a.Phase == types.PhaseArgument {
			names = append(names, a.ParticipantKey)
		}
	}
	if len(names) == 0 {
		return
	}
	prompt := fmt.Sprintf(
		"Of the speakers %s, which single speaker contributed least to answering:\n%s\n\nReply with only the speaker key.",
		strings.Join(names, ", "), state.Question)
	resp, err := provider.Completion(ctx, &llm.ChatRequest{
		Model:    critic.Model,
		Messages: []types.Message{types.NewUserMessage(prompt)},
	})
	if err != nil {
		e.logger.Warn("elimination suggestion failed", zap.Error(err))
		return
	}
	suggested := strings.TrimSpace(resp.Text())
	for _, key := range names {
		if strings.Contains(suggested, key) {
			e.appendEvent(state, types.SessionEvent{
				Kind:           types.EventElimination,
				Round:          round.Round,
				ParticipantKey: key,
				Detail:         "suggested weakest contributor (advisory)",
			})
			return
		}
	}
}

func (e *Engine) absorb(state *types.SessionState, events []types.SessionEvent) {
	for _, ev := range events {
		e.appendEvent(state, ev)
	}
}

func critiquePrompt(question string, visible []types.Argument, state *types.SessionState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question under deliberation:\n%s\n\nThe speakers argued:\n\n", question)
	for _, a := range visible {
		name := a.ParticipantKey
		if p, ok := state.Participants.Find(a.ParticipantKey); ok {
			name = p.Name
		}
		fmt.Fprintf(&sb, "%s: %s\n\n", name, a.Content)
	}
	sb.WriteString("Challenge these arguments: identify weak assumptions, missing evidence, and contradictions. Do not take a side.")
	return sb.String()
}

func reflectionPrompt(question, history string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question under deliberation:\n%s\n\n", question)
	if history != "" {
		sb.WriteString(history)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Reflect on the critique of your argument: concede what is fair, defend what holds, and restate your position.")
	return sb.String()
}

func closingPrompt(question, history string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question under deliberation:\n%s\n\n", question)
	if history != "" {
		sb.WriteString(history)
		sb.WriteString("\n\n")
	}
	sb.WriteString("As moderator, close the session: synthesize the arguments, critique, and reflections into a final narrative answer.")
	return sb.String()
}
