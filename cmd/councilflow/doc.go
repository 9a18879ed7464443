// Command councilflow runs multi-persona deliberation sessions from the
// terminal: a ranked-voting debate council or a fixed-role consciousness
// session, both checkpointed after every phase.
package main
