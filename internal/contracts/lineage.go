package contracts

import "time"

// Model is a reference row identifying what produced a signal. When no
// trained ML model is active, a "heuristic" pseudo-model row is used so
// every signal has a non-null model id.
type Model struct {
	ID                  string     `json:"id"`
	ModelName           string     `json:"model_name"`
	ModelVersion        string     `json:"model_version"`
	Status              string     `json:"status"` // "active" | "inactive"
	TrainingCompletedAt *time.Time `json:"training_completed_at,omitempty"`
}

// HeuristicModelName names the pseudo-model used when no trained model exists.
const HeuristicModelName = "heuristic"

// Model version strings stamped onto signals per run mode.
const (
	VersionManual     = "v2.0"
	VersionService    = "v2.1-service"
	VersionMLEnhanced = "v2.1-ml-enhanced"
)

// AuditEventType is the lifecycle event recorded in the audit trail.
type AuditEventType string

const (
	AuditCreated     AuditEventType = "created"
	AuditUpdated     AuditEventType = "updated"
	AuditExecuted    AuditEventType = "executed"
	AuditExpired     AuditEventType = "expired"
	AuditInvalidated AuditEventType = "invalidated"
)

// AuditTrailEntry is one append-only row per signal lifecycle event.
type AuditTrailEntry struct {
	SignalID       string                 `json:"signal_id"`
	EventType      AuditEventType         `json:"event_type"`
	SignalSnapshot Signal                 `json:"signal_snapshot"`
	ModelID        string                 `json:"model_id"`
	ModelVersion   string                 `json:"model_version"`
	SourceSystem   string                 `json:"source_system"`
	TriggeredBy    string                 `json:"triggered_by"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}

// Lifecycle states of a signal.
const (
	StateGenerated = "generated"
	StateActive    = "active"
	StateInCart    = "in_cart"
	StateOrdered   = "ordered"
	StateFilled    = "filled"
	StateCanceled  = "canceled"
	StateExpired   = "expired"
)

// LifecycleEntry is one append-only row per state transition.
type LifecycleEntry struct {
	SignalID         string    `json:"signal_id"`
	PreviousState    *string   `json:"previous_state,omitempty"`
	CurrentState     string    `json:"current_state"`
	TransitionReason string    `json:"transition_reason"`
	TransitionedBy   string    `json:"transitioned_by"`
	Timestamp        time.Time `json:"timestamp"`
}

// lifecycleTransitions is the allowed state graph. filled and expired are
// terminal; canceled signals can be re-activated.
var lifecycleTransitions = map[string][]string{
	StateGenerated: {StateActive},
	StateActive:    {StateInCart, StateExpired},
	StateInCart:    {StateOrdered},
	StateOrdered:   {StateFilled, StateCanceled},
	StateCanceled:  {StateActive},
	StateFilled:    {},
	StateExpired:   {},
}

// ValidTransition reports whether a signal may move between the two states.
// An empty previous state is only valid when entering the generated state.
func ValidTransition(from, to string) bool {
	if from == "" {
		return to == StateGenerated
	}
	for _, next := range lifecycleTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
