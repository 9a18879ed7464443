// Package memory implements the episodic memory subsystem. Deliberation
// outcomes are written as append-only records with embeddings, and retrieval
// weights cosine similarity by an exponential time decay so that older
// memories fade without ever being rewritten.
package memory
