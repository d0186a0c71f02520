package api

// ReturnSignal marks how the user arrived back from the payment provider.
type ReturnSignal string

const (
	// ReturnNone means the arrival is an ordinary in-app navigation.
	ReturnNone ReturnSignal = ""

	// ReturnSuccess means the checkout completed; drafts must never
	// resurrect after this signal.
	ReturnSuccess ReturnSignal = "success"

	// ReturnCancel means the checkout was cancelled or abandoned and the
	// user is resuming the wizard.
	ReturnCancel ReturnSignal = "cancel"
)

// Arrival describes one navigation attempt presented to the guard.
type Arrival struct {
	// Target is the ordinal of the requested step.
	Target int

	// Return carries the checkout-return signal, if any.
	Return ReturnSignal
}

// Decision is the guard's verdict for one arrival. Evaluating an arrival
// yields at most one redirect, so re-running the guard on every render can
// never loop.
type Decision struct {
	// Allowed reports whether the target step may be entered.
	Allowed bool

	// RedirectTo is the ordinal to send the user to instead when the
	// target is not allowed.
	RedirectTo int

	// ClearedState is set when a success return wiped the draft.
	ClearedState bool

	// Rehydrated is set when a cancel return reloaded persisted state.
	Rehydrated bool

	// Healed is set when entry to the terminal step backfilled the
	// completed-steps set from the predicates.
	Healed bool

	// Events are outbound side effects recorded during evaluation,
	// to be drained by a dispatcher.
	Events []OutboundEvent
}
