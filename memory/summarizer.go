package memory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/llm"
	"github.com/BaSui01/councilflow/llm/embedding"
	"github.com/BaSui01/councilflow/types"
)

const summaryPrompt = `Condense the following deliberation memories into a short summary.
Keep the key positions, decisions, and unresolved disagreements. Be factual and terse.

Memories:
%s`

// Summarizer condenses a session's accumulated records into a single summary
// record. The summary is appended like any other record; originals are never
// touched.
type Summarizer struct {
	store    Store
	provider llm.Provider
	embedder embedding.Provider
	model    string
	logger   *zap.Logger
}

// NewSummarizer creates a summarizer that writes summaries back to store.
func NewSummarizer(store Store, provider llm.Provider, embedder embedding.Provider, model string, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{
		store:    store,
		provider: provider,
		embedder: embedder,
		model:    model,
		logger:   logger.With(zap.String("component", "memory_summarizer")),
	}
}

// Summarize condenses up to maxRecords recent records of a session and
// appends the result as a KindSummary record. It returns the new record,
// or nil if there was nothing to summarize.
func (s *Summarizer) Summarize(ctx context.Context, sessionID string, maxRecords int) (*Record, error) {
	if maxRecords <= 0 {
		maxRecords = 50
	}
	records, err := s.store.FetchRecent(ctx, sessionID, maxRecords)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i := len(records) - 1; i >= 0; i-- { // oldest first reads better
		rec := records[i]
		fmt.Fprintf(&sb, "- [%s round %d, %s] %s\n", rec.Kind, rec.Round, rec.ParticipantKey, rec.Content)
	}

	resp, err := s.provider.Completion(ctx, &llm.ChatRequest{
		Model: s.model,
		Messages: []types.Message{
			types.NewUserMessage(fmt.Sprintf(summaryPrompt, sb.String())),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("summary completion failed: %w", err)
	}
	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return nil, fmt.Errorf("summary completion returned empty text")
	}

	vec, err := s.embedder.EmbedQuery(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("summary embedding failed: %w", err)
	}

	summary := &Record{
		SessionID: sessionID,
		Kind:      KindSummary,
		Content:   content,
		Embedding: vec,
	}
	if err := s.store.Record(ctx, summary); err != nil {
		return nil, err
	}
	s.logger.Info("session memories summarized",
		zap.String("session_id", sessionID),
		zap.Int("source_records", len(records)))
	return summary, nil
}
