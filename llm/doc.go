// Package llm defines the completion provider contract consumed by the
// deliberation orchestrator: a synchronous Completion call and a streaming
// variant whose chunks concatenate to the same result.
package llm
