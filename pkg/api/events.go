package api

import "time"

// EventKind classifies an outbound event.
type EventKind string

const (
	EventStepEntered   EventKind = "step_entered"
	EventRedirected    EventKind = "redirected"
	EventStepCompleted EventKind = "step_completed"
	EventParamApplied  EventKind = "param_applied"
	EventParamConflict EventKind = "param_conflict"
	EventCheckoutDone  EventKind = "checkout_completed"
	EventStartedOver   EventKind = "started_over"
)

// OutboundEvent is a fire-and-forget side effect (analytics, notification)
// recorded by a transition. The state machine only collects events; a
// Dispatcher drains and delivers them so transitions stay free of I/O.
type OutboundEvent struct {
	Kind      EventKind
	SessionID string
	At        time.Time
	Fields    map[string]string
}

// NewEvent builds an OutboundEvent stamped with the current time.
func NewEvent(kind EventKind, sessionID string, fields map[string]string) OutboundEvent {
	return OutboundEvent{
		Kind:      kind,
		SessionID: sessionID,
		At:        time.Now(),
		Fields:    fields,
	}
}
