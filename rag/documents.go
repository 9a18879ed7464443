package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/councilflow/llm/embedding"
	"github.com/BaSui01/councilflow/memory"
)

// Chunk is a pre-embedded slice of an external document.
type Chunk struct {
	Source    string    `json:"source"`
	Index     int       `json:"index"`
	Content   string    `json:"content"`
	Embedding []float64 `json:"embedding"`
}

// ChunkingConfig controls how documents are split before embedding.
type ChunkingConfig struct {
	// ChunkSize is the target chunk length in tokens.
	ChunkSize int
	// ChunkOverlap is how many tokens adjacent chunks share.
	ChunkOverlap int
}

// DefaultChunkingConfig returns production defaults: 512-token chunks with
// 20% overlap.
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{ChunkSize: 512, ChunkOverlap: 102}
}

// DocumentLoader loads plain-text and markdown files, splits them into
// overlapping chunks, and embeds each chunk once up front.
type DocumentLoader struct {
	cfg       ChunkingConfig
	tokenizer Tokenizer
	embedder  embedding.Provider
	logger    *zap.Logger
}

// NewDocumentLoader creates a document loader.
func NewDocumentLoader(cfg ChunkingConfig, tokenizer Tokenizer, embedder embedding.Provider, logger *zap.Logger) *DocumentLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChunkSize <= 0 {
		cfg = DefaultChunkingConfig()
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}
	return &DocumentLoader{
		cfg:       cfg,
		tokenizer: tokenizer,
		embedder:  embedder,
		logger:    logger.With(zap.String("component", "document_loader")),
	}
}

// LoadPaths loads each path (files only, .txt and .md), chunks the content,
// and embeds every chunk.
func (l *DocumentLoader) LoadPaths(ctx context.Context, paths []string) ([]Chunk, error) {
	var chunks []Chunk
	for _, path := range paths {
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil, fmt.Errorf("unsupported document type %q for %s", ext, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read document %s: %w", path, err)
		}
		pieces := l.Split(string(data))
		for i, piece := range pieces {
			chunks = append(chunks, Chunk{
				Source:  filepath.Base(path),
				Index:   i,
				Content: piece,
			})
		}
		l.logger.Debug("document chunked",
			zap.String("path", path),
			zap.Int("chunks", len(pieces)))
	}
	if len(chunks) == 0 {
		return chunks, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := l.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed document chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return chunks, nil
}

// Split breaks text into overlapping chunks along paragraph boundaries,
// falling back to hard splits for oversized paragraphs.
func (l *DocumentLoader) Split(text string) []string {
	paragraphs := strings.Split(text, "\n\n")
	var (
		chunks  []string
		current strings.Builder
		tokens  int
	)
	flush := func() {
		piece := strings.TrimSpace(current.String())
		if piece != "" {
			chunks = append(chunks, piece)
		}
		current.Reset()
		tokens = 0
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		pt := l.tokenizer.CountTokens(para)
		if pt > l.cfg.ChunkSize {
			flush()
			for _, piece := range l.hardSplit(para) {
				chunks = append(chunks, piece)
			}
			continue
		}
		if tokens+pt > l.cfg.ChunkSize {
			tail := overlapTail(current.String(), l.cfg.ChunkOverlap, l.tokenizer)
			flush()
			if tail != "" {
				current.WriteString(tail)
				current.WriteString("\n\n")
				tokens = l.tokenizer.CountTokens(tail)
			}
		}
		current.WriteString(para)
		current.WriteString("\n\n")
		tokens += pt
	}
	flush()
	return chunks
}

// hardSplit cuts an oversized paragraph on sentence-ish boundaries.
func (l *DocumentLoader) hardSplit(text string) []string {
	var (
		chunks  []string
		current strings.Builder
		tokens  int
	)
	for _, sentence := range strings.SplitAfter(text, ". ") {
		st := l.tokenizer.CountTokens(sentence)
		if tokens+st > l.cfg.ChunkSize && current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			tokens = 0
		}
		current.WriteString(sentence)
		tokens += st
	}
	if piece := strings.TrimSpace(current.String()); piece != "" {
		chunks = append(chunks, piece)
	}
	return chunks
}

// overlapTail returns roughly the last overlapTokens worth of text.
func overlapTail(text string, overlapTokens int, tok Tokenizer) string {
	if overlapTokens <= 0 {
		return ""
	}
	words := strings.Fields(text)
	for start := len(words) - 1; start >= 0; start-- {
		tail := strings.Join(words[start:], " ")
		if tok.CountTokens(tail) >= overlapTokens {
			return tail
		}
	}
	return strings.Join(words, " ")
}

// MemoryRecords converts chunks into memory records for sessions that want
// external documents retrievable through the episodic store as well.
func MemoryRecords(sessionID string, chunks []Chunk) []memory.Record {
	records := make([]memory.Record, len(chunks))
	for i, c := range chunks {
		records[i] = memory.Record{
			SessionID: sessionID,
			Kind:      memory.KindObservation,
			Content:   c.Content,
			Embedding: c.Embedding,
		}
	}
	return records
}
