package lineage

import (
	"fmt"
	"time"

	"github.com/capitolsignal/backend/internal/contracts"
)

// TransitionEntry builds a validated lifecycle entry for a state change.
// Returns an error when the state graph does not allow the move; callers
// decide whether that is fatal or just skipped.
func TransitionEntry(signalID, from, to, reason, by string, at time.Time) (contracts.LifecycleEntry, error) {
	if !contracts.ValidTransition(from, to) {
		return contracts.LifecycleEntry{}, fmt.Errorf("invalid lifecycle transition %q -> %q for signal %s", from, to, signalID)
	}

	entry := contracts.LifecycleEntry{
		SignalID:         signalID,
		CurrentState:     to,
		TransitionReason: reason,
		TransitionedBy:   by,
		Timestamp:        at,
	}
	if from != "" {
		prev := from
		entry.PreviousState = &prev
	}
	return entry, nil
}
