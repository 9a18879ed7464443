package rag

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Tokenizer counts tokens for budget enforcement.
type Tokenizer interface {
	CountTokens(text string) int
}

// TiktokenTokenizer counts tokens with a tiktoken encoding, falling back to
// a character estimate when the encoding data cannot be loaded (tiktoken may
// download it on first use).
type TiktokenTokenizer struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
	initErr  error
	logger   *zap.Logger
}

// NewTiktokenTokenizer creates a tokenizer for the given model. The encoding
// is initialized lazily on first count.
func NewTiktokenTokenizer(model string, logger *zap.Logger) *TiktokenTokenizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TiktokenTokenizer{
		encoding: encodingForModel(model),
		logger:   logger.With(zap.String("component", "tokenizer")),
	}
}

func encodingForModel(model string) string {
	switch model {
	case "gpt-4o", "gpt-4o-mini", "gpt-4.1", "o1", "o3":
		return "o200k_base"
	case "gpt-4", "gpt-3.5-turbo", "text-embedding-3-small", "text-embedding-3-large":
		return "cl100k_base"
	default:
		return "cl100k_base"
	}
}

func (t *TiktokenTokenizer) init() {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
}

// CountTokens returns the token count for text. On encoding init failure it
// falls back to len(text)/4 and logs a warning once per call site.
func (t *TiktokenTokenizer) CountTokens(text string) int {
	t.init()
	if t.initErr != nil {
		t.logger.Warn("tiktoken unavailable, using character estimate", zap.Error(t.initErr))
		return estimateTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// EstimatorTokenizer approximates token counts at ~4 characters per token
// without any encoding data. Used offline and in tests.
type EstimatorTokenizer struct{}

// CountTokens returns the estimated token count for text.
func (EstimatorTokenizer) CountTokens(text string) int { return estimateTokens(text) }

func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}
