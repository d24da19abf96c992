package appender

import "raftlog/pkg/journal"

// decision is the outcome of classifying a journal append failure.
type decision int

const (
	// decisionRetry re-issues the attempt against the same index, up to
	// the attempt cap.
	decisionRetry decision = iota

	// decisionFailLocal resolves the request with the error and keeps the
	// leader serving. Only entry-too-large maps here: the condition is
	// local to the rejected entry.
	decisionFailLocal

	// decisionStepDown resolves the request with the error and relinquishes
	// leadership.
	decisionStepDown
)

// classify maps a journal failure onto the closed decision set.
// Anything outside the typed storage taxonomy is an unexpected fault and
// therefore fatal for the leader.
func classify(err error) decision {
	serr, ok := journal.AsStorageError(err)
	if !ok {
		return decisionStepDown
	}
	switch serr.Kind {
	case journal.KindIOFault:
		return decisionRetry
	case journal.KindTooLarge:
		return decisionFailLocal
	default:
		return decisionStepDown
	}
}

// failureKind is the metrics label for a terminal append failure.
func failureKind(err error) string {
	if serr, ok := journal.AsStorageError(err); ok {
		return serr.Kind.String()
	}
	return "unclassified"
}
