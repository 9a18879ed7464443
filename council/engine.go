package council

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/councilflow/focus"
	"github.com/BaSui01/councilflow/internal/metrics"
	"github.com/BaSui01/councilflow/llm"
	"github.com/BaSui01/councilflow/llm/embedding"
	"github.com/BaSui01/councilflow/llm/retry"
	"github.com/BaSui01/councilflow/memory"
	"github.com/BaSui01/councilflow/persistence"
	"github.com/BaSui01/councilflow/rag"
	"github.com/BaSui01/councilflow/types"
)

// RetrievalConfig controls context retrieval for prompts.
type RetrievalConfig struct {
	Enabled       bool    `yaml:"enabled"`
	UseMemory     bool    `yaml:"use_memory"`
	UseDocuments  bool    `yaml:"use_documents"`
	TopK          int     `yaml:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

// Config is the per-session deliberation configuration.
type Config struct {
	Title              string              `yaml:"title"`
	MinIterations      int                 `yaml:"min_iterations"`
	MaxIterations      int                 `yaml:"max_iterations"`
	ConsensusMode      types.ConsensusMode `yaml:"consensus_mode"`
	ConsensusThreshold float64             `yaml:"consensus_threshold"`
	EliminationEnabled bool                `yaml:"elimination_enabled"`
	FocusThreshold     float64             `yaml:"focus_threshold"`
	Retrieval          RetrievalConfig     `yaml:"retrieval"`
	// HistoryWindow bounds how many prior arguments each prompt sees.
	HistoryWindow int `yaml:"history_window"`

	// Format applies a structured debate format; zero value is freeform.
	Format FormatConfig `yaml:"format"`
	// Collaboration switches prompts to cooperative framing. Mutually
	// exclusive with a structured format.
	Collaboration CollaborationConfig `yaml:"collaboration"`

	// Now is the clock; tests inject a fixed one. Defaults to time.Now.
	Now func() time.Time `yaml:"-"`
}

// DefaultConfig returns the default deliberation configuration.
func DefaultConfig() Config {
	return Config{
		MinIterations:  1,
		MaxIterations:  3,
		ConsensusMode:  types.ConsensusMajority,
		FocusThreshold: 0.70,
		HistoryWindow:  12,
		Retrieval: RetrievalConfig{
			TopK:          8,
			MinSimilarity: 0.2,
		},
	}
}

// Validate fails fast on impossible configurations, before any session work.
func (c Config) Validate() error {
	if c.MinIterations < 1 {
		return types.NewError(types.ErrConfiguration, "min_iterations must be at least 1")
	}
	if c.MaxIterations < c.MinIterations {
		return types.NewErrorf(types.ErrConfiguration,
			"max_iterations %d below min_iterations %d", c.MaxIterations, c.MinIterations)
	}
	switch c.ConsensusMode {
	case types.ConsensusMajority, types.ConsensusSupermajority, types.ConsensusUnanimity:
	default:
		return types.NewErrorf(types.ErrConfiguration, "unknown consensus mode %q", c.ConsensusMode)
	}
	if c.ConsensusThreshold < 0 || c.ConsensusThreshold > 1 {
		return types.NewErrorf(types.ErrConfiguration, "consensus_threshold %v outside [0,1]", c.ConsensusThreshold)
	}
	if c.FocusThreshold < 0 || c.FocusThreshold > 1 {
		return types.NewErrorf(types.ErrConfiguration, "focus_threshold %v outside [0,1]", c.FocusThreshold)
	}
	if c.Format.enabled() && c.Collaboration.Enabled {
		return types.NewError(types.ErrConfiguration, "a structured format and collaboration mode cannot be combined")
	}
	return c.Collaboration.validate()
}

// Dependencies carries the engine's collaborators. Providers is keyed by
// provider name as referenced from Participant.Provider. Optional fields may
// be nil: Scorer disables focus scoring, Memory disables episodic writes,
// Assembler disables retrieval, Metrics disables instrumentation.
type Dependencies struct {
	Providers   map[string]llm.Provider
	Judge       llm.Provider
	JudgeModel  string
	Scorer      *focus.Scorer
	Memory      memory.Store
	Embedder    embedding.Provider
	Assembler   *rag.Assembler
	Summarizer  *memory.Summarizer
	Checkpoints persistence.Store
	Retryer     retry.Retryer
	Metrics     *metrics.Collector
	Logger      *zap.Logger

	// OnToken, when set, switches argument generation to streaming and
	// forwards each participant's deltas in generation order. Interleaving
	// across participants is unordered; it must only be used for display.
	OnToken func(participantKey, delta string)
}

// Engine drives one deliberation session at a time.
type Engine struct {
	cfg         Config
	roster      types.Roster
	deps        Dependencies
	formatRoles map[string]string    // participant key -> format role
	groups      map[string]*SubGroup // participant key -> collaboration sub-group
	tracer      trace.Tracer
	logger      *zap.Logger
	now         func() time.Time
}

// NewEngine validates configuration and roster and builds an engine.
// Configuration problems surface here, never mid-session.
func NewEngine(cfg Config, roster types.Roster, deps Dependencies) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := types.ValidateRoster(roster); err != nil {
		return nil, err
	}
	for _, p := range roster {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, ok := deps.Providers[p.Provider]; !ok {
			return nil, types.NewErrorf(types.ErrConfiguration,
				"participant %s references unknown provider %q", p.Key, p.Provider)
		}
	}
	formatRoles, err := cfg.Format.normalize(roster)
	if err != nil {
		return nil, err
	}
	var groups map[string]*SubGroup
	if cfg.Collaboration.Enabled && (cfg.Collaboration.Subgroups > 0 || cfg.Collaboration.Grouping == "specialized") {
		groups = make(map[string]*SubGroup)
		formed := FormSubgroups(roster, cfg.Collaboration.Subgroups, cfg.Collaboration.Grouping)
		for i := range formed {
			for _, key := range formed[i].Members {
				groups[key] = &formed[i]
			}
		}
	}
	if deps.Judge == nil {
		return nil, types.NewError(types.ErrConfiguration, "judge provider is required")
	}
	if deps.Checkpoints == nil {
		return nil, types.NewError(types.ErrConfiguration, "checkpoint store is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Retryer == nil {
		deps.Retryer = retry.NewBackoffRetryer(retry.DefaultPolicy(), deps.Logger)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:         cfg,
		roster:      roster,
		deps:        deps,
		formatRoles: formatRoles,
		groups:      groups,
		tracer:      otel.Tracer("councilflow/council"),
		logger:      deps.Logger.With(zap.String("component", "council_engine")),
		now:         now,
	}, nil
}

// Run drives a full deliberation: Opening, then argument/voting rounds until
// consensus (past the minimum-iteration floor) or the maximum-iteration cap,
// then judge synthesis. The returned state is also checkpointed after every
// phase, so an error still leaves the last phase recoverable.
func (e *Engine) Run(ctx context.Context, question string) (*types.SessionState, error) {
	ctx, span := e.tracer.Start(ctx, "council.run",
		trace.WithAttributes(attribute.String("council.title", e.cfg.Title)))
	defer span.End()

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

	e.logger.Info("session starting",
		zap.String("session_id", state.ID),
		zap.Int("participants", len(e.roster)),
		zap.String("consensus_mode", string(e.cfg.ConsensusMode)))

	background := e.sessionBackground(ctx, question)

	// Opening phase.
	if err := e.openingPhase(ctx, state, background); err != nil {
		return e.fail(ctx, state, checkpoint, err)
	}
	if err := checkpoint("opening"); err != nil {
		return state, err
	}

	consensusReached := false
	for round := 1; round <= e.cfg.MaxIterations; round++ {
		result, err := e.runRound(ctx, state, round, checkpoint)
		if err != nil {
			return e.fail(ctx, state, checkpoint, err)
		}
		consensusReached = result.Consensus.Reached

		if consensusReached && round >= e.cfg.MinIterations {
			break
		}
		if round == e.cfg.MaxIterations {
			break
		}
		if e.cfg.EliminationEnabled {
			e.eliminationPhase(state, result)
			if err := checkpoint("elimination"); err != nil {
				return state, err
			}
		}
	}

	// Judge phase.
	if err := e.judgePhase(ctx, state); err != nil {
		return e.fail(ctx, state, checkpoint, err)
	}

	state.Status = types.StatusClosed
	if consensusReached {
		state.Outcome = types.OutcomeConsensus
	} else {
		state.Outcome = types.OutcomeMaxIterations
	}
	if err := checkpoint("judge"); err != nil {
		return state, err
	}

	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordSession(string(state.Outcome), len(state.Rounds))
	}
	e.logger.Info("session closed",
		zap.String("session_id", state.ID),
		zap.String("outcome", string(state.Outcome)),
		zap.Int("rounds", len(state.Rounds)))
	return state, nil
}

func (e *Engine) newState(question string) *types.SessionState {
	now := e.now()
	title := e.cfg.Title
	if title == "" {
		title = "Deliberation"
	}
	return &types.SessionState{
		ID:           types.NewSessionID(now, title),
		Title:        title,
		Question:     question,
		Participants: e.roster,
		ActiveKeys:   e.roster.Keys(),
		Status:       types.StatusRunning,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// fail marks the session failed, checkpoints, and returns the original error.
// The last successful checkpoint always survives a fatal error.
func (e *Engine) fail(ctx context.Context, state *types.SessionState, checkpoint func(string) error, err error) (*types.SessionState, error) {
	state.Status = types.StatusFailed
	if types.CodeOf(err) == types.ErrQuorum {
		state.Outcome = types.OutcomeQuorumLost
	}
	if cpErr := checkpoint("failed"); cpErr != nil {
		e.logger.Error("failed to checkpoint failed session", zap.Error(cpErr))
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordSession("failed", len(state.Rounds))
	}
	e.logger.Error("session failed", zap.String("session_id", state.ID), zap.Error(err))
	return state, err
}

// sessionBackground condenses prior memories about related questions into a
// short brief, once per session. Best effort: failures log and inject
// nothing.
func (e *Engine) sessionBackground(ctx context.Context, question string) string {
	if e.deps.Summarizer == nil || !e.cfg.Retrieval.Enabled || !e.cfg.Retrieval.UseMemory {
		return ""
	}
	rec, err := e.deps.Summarizer.Summarize(ctx, "", 50)
	if err != nil {
		e.logger.Warn("memory summarization failed, continuing without background", zap.Error(err))
		return ""
	}
	if rec == nil {
		return ""
	}
	return rec.Content
}

// retrieveContext assembles the RAG block for the current round. Computed
// once per phase and shared by every participant prompt in it.
func (e *Engine) retrieveContext(ctx context.Context, state *types.SessionState) string {
	if !e.cfg.Retrieval.Enabled || e.deps.Assembler == nil {
		return ""
	}
	rc, err := e.deps.Assembler.Assemble(ctx, state.ID, state.Question)
	if err != nil {
		e.logger.Warn("context assembly failed, continuing without retrieval", zap.Error(err))
		return ""
	}
	return rc.Render()
}

// openingPhase collects one opening statement per participant in parallel.
func (e *Engine) openingPhase(ctx context.Context, state *types.SessionState, background string) error {
	ctx, span := e.tracer.Start(ctx, "council.phase.opening")
	defer span.End()

	contextBlock := e.retrieveContext(ctx, state)
	prompt := openingPrompt(state.Question, background, contextBlock)
	args, err := e.collectArguments(ctx, state, 0, types.PhaseOpening, func(types.Participant) string {
		return prompt
	})
	if err != nil {
		return err
	}
	state.Opening = args
	e.recordArguments(ctx, state, args)
	e.countPhase("opening")
	return e.checkQuorum(state, args)
}

// runRound executes one full Argument → Focus → Voting → ConsensusCheck
// cycle and appends the RoundResult to the session.
func (e *Engine) runRound(ctx context.Context, state *types.SessionState, round int, checkpoint func(string) error) (*types.RoundResult, error) {
	ctx, span := e.tracer.Start(ctx, "council.phase.round",
		trace.WithAttributes(attribute.Int("council.round", round)))
	defer span.End()

	// Argument phase.
	contextBlock := e.retrieveContext(ctx, state)
	history := historyWindow(state, e.cfg.HistoryWindow)
	args, err := e.collectArguments(ctx, state, round, types.PhaseArgument, func(types.Participant) string {
		return argumentPrompt(state.Question, history, contextBlock, round)
	})
	if err != nil {
		return nil, err
	}

	state.Rounds = append(state.Rounds, types.RoundResult{Round: round, Arguments: args})
	result := &state.Rounds[len(state.Rounds)-1]
	e.recordArguments(ctx, state, args)
	e.countPhase("argument")
	if err := e.checkQuorum(state, args); err != nil {
		return nil, err
	}
	e.collaborationPhase(state, result)

	// Focus scoring, advisory only.
	e.focusPhase(ctx, state, result)
	if err := checkpoint("argument"); err != nil {
		return nil, err
	}

	// Voting phase.
	visible := result.VisibleArguments()
	votes := e.votingPhase(ctx, state, round, visible)
	result.Votes = votes
	e.countPhase("voting")
	if err := checkpoint("voting"); err != nil {
		return nil, err
	}

	// Consensus check.
	result.Consensus = EvaluateConsensus(votes, visible, len(state.ActiveKeys),
		e.cfg.ConsensusMode, e.cfg.ConsensusThreshold)
	e.countPhase("consensus")
	e.logger.Info("consensus evaluated",
		zap.Int("round", round),
		zap.Bool("reached", result.Consensus.Reached),
		zap.Float64("support", result.Consensus.SupportFraction),
		zap.String("leading", result.Consensus.LeadingArgumentID))
	if err := checkpoint("consensus"); err != nil {
		return nil, err
	}
	return result, nil
}

// collectArguments dispatches one completion per active participant in
// parallel and joins the results in roster order. Provider errors degrade to
// abstention sentinels after the retry budget; they never abort the phase.
func (e *Engine) collectArguments(ctx context.Context, state *types.SessionState, round int, phase types.Phase, promptFor func(types.Participant) string) ([]types.Argument, error) {
	active := state.ActiveRoster()
	args := make([]types.Argument, len(active))
	events := make([][]types.SessionEvent, len(active))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range active {
		i, p := i, p
		// Framing reads session state, so it is rendered before the
		// goroutines start.
		framing := e.framingFor(state, p, round)
		g.Go(func() error {
			args[i], events[i] = e.generateArgument(gctx, p, round, phase, framing, promptFor(p))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Session state is mutated only here, after the parallel joins.
	for _, evs := range events {
		for _, ev := range evs {
			e.appendEvent(state, ev)
		}
	}
	return args, nil
}

// generateArgument runs one participant's completion with retries; exhausted
// retries yield an abstention sentinel and a session event. Runs inside the
// phase's worker group, so it returns events instead of touching state.
func (e *Engine) generateArgument(ctx context.Context, p types.Participant, round int, phase types.Phase, framing, prompt string) (types.Argument, []types.SessionEvent) {
	arg := types.Argument{
		ID:             fmt.Sprintf("r%d-%s", round, p.Key),
		Round:          round,
		ParticipantKey: p.Key,
		Phase:          phase,
		CreatedAt:      e.now(),
	}

	start := e.now()
	text, usage, err := e.complete(ctx, p, framing, prompt)
	if e.deps.Metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		e.deps.Metrics.RecordProviderRequest(p.Provider, p.Model, status, e.now().Sub(start))
		e.deps.Metrics.RecordTokens(p.Provider, p.Model, usage.PromptTokens, usage.CompletionTokens)
	}
	if err != nil {
		arg.Abstained = true
		if e.deps.Metrics != nil {
			e.deps.Metrics.RecordAbstention("argument")
		}
		e.logger.Warn("participant abstained",
			zap.String("participant", p.Key),
			zap.Int("round", round),
			zap.Error(err))
		return arg, []types.SessionEvent{{
			Kind:           types.EventAbstention,
			Round:          round,
			ParticipantKey: p.Key,
			Detail:         fmt.Sprintf("completion failed after retries: %v", err),
		}}
	}
	arg.Content = text
	return arg, nil
}

// complete runs one persona completion with retries, streaming when an
// OnToken sink is wired. Streamed text matches what Completion would return.
// A non-empty framing block (format role or collaboration mode) extends the
// persona system prompt.
func (e *Engine) complete(ctx context.Context, p types.Participant, framing, prompt string) (string, llm.ChatUsage, error) {
	system := personaSystemPrompt(p)
	if framing != "" {
		system += "\n" + framing
	}
	provider := e.deps.Providers[p.Provider]
	req := &llm.ChatRequest{
		Model: p.Model,
		Messages: []types.Message{
			types.NewSystemMessage(system),
			types.NewUserMessage(prompt),
		},
	}

	var text string
	var usage llm.ChatUsage
	err := e.retryDo(ctx, p.Provider, func() error {
		if e.deps.OnToken != nil {
			ch, callErr := provider.Stream(ctx, req)
			if callErr != nil {
				return callErr
			}
			streamed, callErr := llm.CollectStream(ctx, ch, func(delta string) {
				e.deps.OnToken(p.Key, delta)
			})
			if callErr != nil {
				return callErr
			}
			text = streamed
			return nil
		}
		resp, callErr := provider.Completion(ctx, req)
		if callErr != nil {
			return callErr
		}
		text = resp.Text()
		usage = resp.Usage
		return nil
	})
	return text, usage, err
}

// framingFor resolves the system-prompt framing block for one participant's
// argument: the format role's duties, or the collaborative workspace.
// Freeform sessions get none.
func (e *Engine) framingFor(state *types.SessionState, p types.Participant, round int) string {
	if e.cfg.Collaboration.Enabled {
		return collaborationFraming(e.cfg.Collaboration, e.groups[p.Key], state)
	}
	if e.cfg.Format.enabled() {
		return formatFraming(e.cfg.Format, e.formatRoles[p.Key], e.formatPhase(round))
	}
	return ""
}

// retryDo wraps the retryer so each re-attempt against a provider is
// counted. The attempt counter needs no lock: the retryer calls fn serially.
func (e *Engine) retryDo(ctx context.Context, provider string, fn func() error) error {
	attempt := 0
	return e.deps.Retryer.Do(ctx, func() error {
		attempt++
		if attempt > 1 && e.deps.Metrics != nil {
			e.deps.Metrics.RecordRetry(provider)
		}
		return fn()
	})
}

// focusPhase scores each visible argument and surfaces warnings for
// below-threshold scores. Advisory: nothing is ever rejected here.
func (e *Engine) focusPhase(ctx context.Context, state *types.SessionState, result *types.RoundResult) {
	if e.deps.Scorer == nil {
		return
	}
	ctx, span := e.tracer.Start(ctx, "council.phase.focus")
	defer span.End()

	for i := range result.Arguments {
		arg := &result.Arguments[i]
		if arg.Abstained {
			continue
		}
		score := e.deps.Scorer.Score(ctx, state.Question, arg.Content)
		score.IsFocused = score.Score >= e.cfg.FocusThreshold
		arg.Focus = &score
		if e.deps.Metrics != nil {
			e.deps.Metrics.RecordFocusScore(score.Score)
		}
		if !score.IsFocused {
			e.appendEvent(state, types.SessionEvent{
				Kind:           types.EventFocusWarning,
				Round:          result.Round,
				ParticipantKey: arg.ParticipantKey,
				Detail:         fmt.Sprintf("focus %.2f below threshold %.2f: %s", score.Score, e.cfg.FocusThreshold, score.Reasoning),
			})
		}
	}
	e.countPhase("focus")
}

// votingPhase collects one ranking per active participant in parallel.
// Malformed rankings become abstention votes with a session event.
func (e *Engine) votingPhase(ctx context.Context, state *types.SessionState, round int, visible []types.Argument) []types.Vote {
	ctx, span := e.tracer.Start(ctx, "council.phase.voting")
	defer span.End()

	active := state.ActiveRoster()
	votes := make([]types.Vote, len(active))
	events := make([][]types.SessionEvent, len(active))
	prompt := votePrompt(state.Question, visible, state)

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range active {
		i, p := i, p
		g.Go(func() error {
			votes[i], events[i] = e.collectVote(gctx, p, round, visible, prompt)
			return nil
		})
	}
	_ = g.Wait()
	for _, evs := range events {
		for _, ev := range evs {
			e.appendEvent(state, ev)
		}
	}
	return votes
}

func (e *Engine) collectVote(ctx context.Context, p types.Participant, round int, visible []types.Argument, prompt string) (types.Vote, []types.SessionEvent) {
	vote := types.Vote{Round: round, VoterKey: p.Key, CreatedAt: e.now()}

	provider := e.deps.Providers[p.Provider]
	var resp *llm.ChatResponse
	err := e.retryDo(ctx, p.Provider, func() error {
		var callErr error
		resp, callErr = provider.Completion(ctx, &llm.ChatRequest{
			Model: p.Model,
			Messages: []types.Message{
				types.NewSystemMessage(personaSystemPrompt(p)),
				types.NewUserMessage(prompt),
			},
		})
		return callErr
	})
	if err != nil {
		vote.Abstained = true
		if e.deps.Metrics != nil {
			e.deps.Metrics.RecordAbstention("vote")
		}
		return vote, []types.SessionEvent{{
			Kind:           types.EventAbstention,
			Round:          round,
			ParticipantKey: p.Key,
			Detail:         fmt.Sprintf("vote failed after retries: %v", err),
		}}
	}

	ranking, err := ParseRanking(resp.Text(), visible)
	if err != nil {
		vote.Abstained = true
		if e.deps.Metrics != nil {
			e.deps.Metrics.RecordAbstention("vote")
		}
		e.logger.Warn("malformed vote",
			zap.String("participant", p.Key),
			zap.Int("round", round),
			zap.Error(err))
		return vote, []types.SessionEvent{{
			Kind:           types.EventAbstention,
			Round:          round,
			ParticipantKey: p.Key,
			Detail:         fmt.Sprintf("malformed ranking treated as abstention: %v", err),
		}}
	}
	vote.Ranking = ranking
	return vote, nil
}

// eliminationPhase removes the round's lowest-scored participant, guarded so
// the roster never drops below two.
func (e *Engine) eliminationPhase(state *types.SessionState, result *types.RoundResult) {
	key, ok := SelectElimination(result.Votes, result.VisibleArguments(), state.ActiveRoster())
	if !ok {
		e.logger.Info("elimination skipped", zap.Int("round", result.Round),
			zap.Int("active", len(state.ActiveKeys)))
		return
	}
	if !state.IsActive(key) {
		return
	}
	state.ActiveKeys = removeKey(state.ActiveKeys, key)
	e.appendEvent(state, types.SessionEvent{
		Kind:           types.EventElimination,
		Round:          result.Round,
		ParticipantKey: key,
		Detail:         "lowest aggregate vote score",
	})
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordElimination()
	}
	e.logger.Info("participant eliminated",
		zap.String("participant", key),
		zap.Int("round", result.Round),
		zap.Int("remaining", len(state.ActiveKeys)))
}

// judgePhase synthesizes the full history into a final decision.
func (e *Engine) judgePhase(ctx context.Context, state *types.SessionState) error {
	ctx, span := e.tracer.Start(ctx, "council.phase.judge")
	defer span.End()

	history := historyWindow(state, 0)
	var resp *llm.ChatResponse
	err := e.retryDo(ctx, e.deps.Judge.Name(), func() error {
		var callErr error
		resp, callErr = e.deps.Judge.Completion(ctx, &llm.ChatRequest{
			Model: e.deps.JudgeModel,
			Messages: []types.Message{
				types.NewUserMessage(judgePrompt(state, history)),
			},
		})
		return callErr
	})
	if err != nil {
		return types.NewError(types.ErrProvider, "judge synthesis failed").WithCause(err)
	}
	state.JudgeDecision = resp.Text()
	e.countPhase("judge")

	if e.deps.Memory != nil && e.deps.Embedder != nil {
		e.writeMemory(ctx, state, memory.Record{
			SessionID: state.ID,
			Kind:      memory.KindDecision,
			Content:   state.JudgeDecision,
		})
	}
	return nil
}

// checkQuorum fails the session when fewer than two real (non-abstained)
// contributions remain in a phase.
func (e *Engine) checkQuorum(state *types.SessionState, args []types.Argument) error {
	visible := 0
	for _, a := range args {
		if !a.Abstained {
			visible++
		}
	}
	if visible < 2 {
		return types.NewErrorf(types.ErrQuorum,
			"only %d participants contributed; at least 2 required", visible)
	}
	return nil
}

// recordArguments writes the phase's visible arguments to episodic memory.
// Writes happen at phase boundaries, serialized behind this single caller.
func (e *Engine) recordArguments(ctx context.Context, state *types.SessionState, args []types.Argument) {
	if e.deps.Memory == nil || e.deps.Embedder == nil {
		return
	}
	for _, arg := range args {
		if arg.Abstained {
			continue
		}
		e.writeMemory(ctx, state, memory.Record{
			SessionID:      state.ID,
			Kind:           memory.KindArgument,
			ParticipantKey: arg.ParticipantKey,
			Round:          arg.Round,
			Content:        arg.Content,
		})
	}
}

func (e *Engine) writeMemory(ctx context.Context, state *types.SessionState, rec memory.Record) {
	vec, err := e.deps.Embedder.EmbedQuery(ctx, rec.Content)
	if err != nil {
		e.logger.Warn("embedding failed, memory record skipped", zap.Error(err))
		return
	}
	rec.Embedding = vec
	if err := e.deps.Memory.Record(ctx, &rec); err != nil {
		e.logger.Warn("memory write failed", zap.Error(err))
	}
}

func (e *Engine) appendEvent(state *types.SessionState, ev types.SessionEvent) {
	ev.Timestamp = e.now()
	state.Events = append(state.Events, ev)
}

func (e *Engine) countPhase(phase string) {
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordRound(phase)
	}
}

func removeKey(keys []string, key string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}
