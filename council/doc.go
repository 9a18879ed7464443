// Package council implements the deliberation orchestrator: the phase state
// machine that drives argument generation, peer ranked voting, consensus
// detection, optional elimination, focus scoring, and judge synthesis.
//
// The engine owns the SessionState exclusively. Per-participant provider
// failures are contained as abstention records; only quorum loss and
// configuration errors are fatal to a session.
package council
