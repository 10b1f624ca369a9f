package interview

import "strings"

// DetectPhase inspects an assistant reply for the literal marker phrases the
// system prompt instructs the model to emit when it transitions between
// interview stages, and returns the resulting phase. No marker means no
// change. Progression is monotonic: a marker for an earlier stage never moves
// the interview backward.
//
// This is brittle on purpose: correctness depends on the external model
// obeying the exact phrases in the prompt. When the model rephrases, the
// interview silently stays in its current phase; there is no recovery path
// beyond the user continuing the conversation.
func DetectPhase(prior Phase, reply string) Phase {
	next := prior

	switch {
	case strings.Contains(reply, markerPart1) ||
		strings.Contains(reply, markerNarr) ||
		strings.Contains(reply, markerBoard):
		next = PhaseComplete
	case strings.Contains(reply, hardenMarkerA) ||
		strings.Contains(reply, hardenMarkerB) ||
		strings.Contains(reply, hardenMarkerC):
		next = PhaseHardening
	case strings.Contains(reply, clusterMarkerA) ||
		strings.Contains(reply, clusterMarkerB):
		next = PhaseClustering
	}

	if next.rank() < prior.rank() {
		return prior
	}
	return next
}
