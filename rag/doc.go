// Package rag assembles the retrieval-augmented context injected into
// participant prompts. It merges episodic memory hits with pre-embedded
// external document chunks by score and truncates the blend to a token
// budget, dropping the lowest-scored items first.
package rag
