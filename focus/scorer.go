// Package focus scores arguments for topical relevance. Scores are advisory:
// an unfocused argument triggers a warning event but is never rejected.
package focus

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/llm"
	"github.com/BaSui01/councilflow/types"
)

const scorePrompt = `You are evaluating whether a debate contribution stays on topic.

Question under deliberation:
%s

Contribution:
%s

Reply with exactly two lines:
SCORE: <number between 0.0 and 1.0>
REASONING: <one sentence>`

// Config tunes the scorer.
type Config struct {
	// Model overrides the provider's default model when non-empty.
	Model string
	// Threshold below which an argument counts as unfocused.
	Threshold float64
}

// DefaultConfig returns the default scorer configuration.
func DefaultConfig() Config {
	return Config{Threshold: 0.5}
}

// Scorer asks an evaluator model how on-topic an argument is.
type Scorer struct {
	cfg      Config
	provider llm.Provider
	logger   *zap.Logger
}

// NewScorer creates a focus scorer.
func NewScorer(cfg Config, provider llm.Provider, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	return &Scorer{
		cfg:      cfg,
		provider: provider,
		logger:   logger.With(zap.String("component", "focus_scorer")),
	}
}

// Score evaluates how focused content is on the question. Evaluator failures
// degrade to a neutral 0.5 unfocused score instead of propagating: focus is
// advisory and must never stall a round.
func (s *Scorer) Score(ctx context.Context, question, content string) types.FocusScore {
	resp, err := s.provider.Completion(ctx, &llm.ChatRequest{
		Model: s.cfg.Model,
		Messages: []types.Message{
			types.NewUserMessage(fmt.Sprintf(scorePrompt, question, content)),
		},
	})
	if err != nil {
		s.logger.Warn("focus evaluation failed, degrading to neutral", zap.Error(err))
		return types.FocusScore{Score: 0.5, Reasoning: "evaluator unavailable", IsFocused: false}
	}

	score, reasoning, err := Parse(resp.Text())
	if err != nil {
		s.logger.Warn("focus evaluation unparseable, degrading to neutral",
			zap.Error(err), zap.String("raw", resp.Text()))
		return types.FocusScore{Score: 0.5, Reasoning: "evaluator output unparseable", IsFocused: false}
	}
	return types.FocusScore{
		Score:     score,
		Reasoning: reasoning,
		IsFocused: score >= s.cfg.Threshold,
	}
}

// Threshold returns the configured focus threshold.
func (s *Scorer) Threshold() float64 { return s.cfg.Threshold }

// Parse extracts the SCORE and REASONING lines from evaluator output. The
// score is clamped to [0, 1].
func Parse(text string) (float64, string, error) {
	var (
		score     float64
		reasoning string
		found     bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "SCORE:"):
			raw := strings.TrimSpace(line[len("SCORE:"):])
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return 0, "", fmt.Errorf("invalid score %q: %w", raw, err)
			}
			score = clamp01(v)
			found = true
		case strings.HasPrefix(upper, "REASONING:"):
			reasoning = strings.TrimSpace(line[len("REASONING:"):])
		}
	}
	if !found {
		return 0, "", fmt.Errorf("no SCORE line in evaluator output")
	}
	return score, reasoning, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
