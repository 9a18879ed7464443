package types

import (
	"strings"
	"time"
)

// Phase tags one contribution within a deliberation session.
type Phase string

const (
	PhaseOpening    Phase = "opening"
	PhaseArgument   Phase = "argument"
	PhaseCritique   Phase = "critique"
	PhaseReflection Phase = "reflection"
	PhaseClosing    Phase = "closing"
	PhaseVoting     Phase = "voting"
	PhaseJudge      Phase = "judge"
)

// ConsensusMode is the fractional agreement rule used to decide termination.
type ConsensusMode string

const (
	ConsensusMajority      ConsensusMode = "majority"
	ConsensusSupermajority ConsensusMode = "supermajority"
	ConsensusUnanimity     ConsensusMode = "unanimity"
)

// DefaultThreshold returns the default support fraction for the mode.
// Majority and supermajority require strictly greater support than the
// threshold; unanimity requires the full fraction.
func (m ConsensusMode) DefaultThreshold() float64 {
	switch m {
	case ConsensusSupermajority:
		return 0.66
	case ConsensusUnanimity:
		return 1.0
	default:
		return 0.50
	}
}

// Strict reports whether the mode compares support with strict greater-than.
func (m ConsensusMode) Strict() bool {
	return m != ConsensusUnanimity
}

// FocusScore is the advisory on-topic rating attached to an argument.
type FocusScore struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
	IsFocused bool    `json:"is_focused"`
}

// Argument is one participant's contribution in one round. Append-only;
// never edited after creation.
type Argument struct {
	ID             string      `json:"id"`
	Round          int         `json:"round"`
	ParticipantKey string      `json:"participant_key"`
	Phase          Phase       `json:"phase"`
	Content        string      `json:"content"`
	Abstained      bool        `json:"abstained,omitempty"`
	Focus          *FocusScore `json:"focus,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Vote is one participant's full ranking of a round's visible arguments,
// ordered best to worst by argument ID. Malformed or partial rankings are
// recorded as abstentions.
type Vote struct {
	Round     int       `json:"round"`
	VoterKey  string    `json:"voter_key"`
	Ranking   []string  `json:"ranking,omitempty"`
	Abstained bool      `json:"abstained,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ConsensusResult is the consensus engine output for one voting round.
type ConsensusResult struct {
	Reached           bool    `json:"reached"`
	LeadingArgumentID string  `json:"leading_argument_id,omitempty"`
	SupportFraction   float64 `json:"support_fraction"`
}

// RoundResult aggregates one full argument-and-voting cycle.
type RoundResult struct {
	Round     int             `json:"round"`
	Arguments []Argument      `json:"arguments"`
	Votes     []Vote          `json:"votes"`
	Consensus ConsensusResult `json:"consensus"`
}

// VisibleArguments returns the arguments eligible for ranking in this round:
// real contributions only, abstention sentinels excluded.
func (r RoundResult) VisibleArguments() []Argument {
	out := make([]Argument, 0, len(r.Arguments))
	for _, a := range r.Arguments {
		if !a.Abstained {
			out = append(out, a)
		}
	}
	return out
}

// EventKind distinguishes session history events.
type EventKind string

const (
	EventElimination  EventKind = "elimination"
	EventAbstention   EventKind = "abstention"
	EventFocusWarning EventKind = "focus_warning"
	EventPhase        EventKind = "phase"
	EventCompromise   EventKind = "compromise"
)

// SessionEvent records a state change that must not be dropped from history,
// such as an elimination or an abstention fallback.
type SessionEvent struct {
	Kind           EventKind `json:"kind"`
	Round          int       `json:"round"`
	ParticipantKey string    `json:"participant_key,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	StatusRunning SessionStatus = "running"
	StatusClosed  SessionStatus = "closed"
	StatusFailed  SessionStatus = "failed"
)

// Outcome is the terminal reason a session's deliberation loop ended.
type Outcome string

const (
	OutcomeConsensus     Outcome = "consensus"
	OutcomeMaxIterations Outcome = "max_iterations"
	OutcomeQuorumLost    Outcome = "quorum_lost"
)

// SessionState is the aggregate root of one deliberation run. It is owned
// exclusively by the orchestrator and checkpointed after every phase, so an
// interrupted run leaves a recoverable partial artifact.
type SessionState struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Question      string         `json:"question"`
	Participants  Roster         `json:"participants"`
	ActiveKeys    []string       `json:"active_keys"`
	Opening       []Argument     `json:"opening,omitempty"`
	Rounds        []RoundResult  `json:"rounds"`
	Events        []SessionEvent `json:"events,omitempty"`
	JudgeDecision string         `json:"judge_decision,omitempty"`
	Status        SessionStatus  `json:"status"`
	Outcome       Outcome        `json:"outcome,omitempty"`

	// ConsensusItems and DivergentItems form the shared workspace of a
	// collaborative session: points most of the council repeats versus
	// points only one voice raised. Empty outside collaboration mode.
	ConsensusItems []string `json:"consensus_items,omitempty"`
	DivergentItems []string `json:"divergent_items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessionID derives the timestamp+title-derived identifier used to key
// both the Markdown transcript and the JSON checkpoint.
func NewSessionID(now time.Time, title string) string {
	slug := strings.TrimSpace(title)
	if slug == "" {
		slug = "session"
	}
	slug = strings.ReplaceAll(slug, " ", "_")
	if len(slug) > 48 {
		slug = slug[:48]
	}
	return now.UTC().Format("20060102_150405") + "_" + slug
}

// ActiveRoster resolves ActiveKeys against the participant catalog.
func (s *SessionState) ActiveRoster() Roster {
	out := make(Roster, 0, len(s.ActiveKeys))
	for _, key := range s.ActiveKeys {
		if p, ok := s.Participants.Find(key); ok {
			out = append(out, p)
		}
	}
	return out
}

// IsActive reports whether the participant is still in the roster.
func (s *SessionState) IsActive(key string) bool {
	for _, k := range s.ActiveKeys {
		if k == key {
			return true
		}
	}
	return false
}

// IsPermutation reports whether ranking is exactly a permutation of the IDs
// of the visible arguments: no duplicates, no missing entries, no references
// to arguments that do not exist at vote time.
func IsPermutation(ranking []string, visible []Argument) bool {
	if len(ranking) != len(visible) {
		return false
	}
	want := make(map[string]bool, len(visible))
	for _, a := range visible {
		want[a.ID] = false
	}
	for _, id := range ranking {
		seen, ok := want[id]
		if !ok || seen {
			return false
		}
		want[id] = true
	}
	return true
}
