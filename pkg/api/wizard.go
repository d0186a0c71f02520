package api

import (
	"context"
	"io"
	"net/url"
)

// Wizard is the high-level intake wizard engine API.
//
// A Wizard owns one form-state container, one step graph and one background
// syncer. All state mutation is funneled through it; concurrent callers
// (upload completions, geocode responses, catalog matches) are serialized
// against the latest committed state.
type Wizard interface {
	// Navigate evaluates an arrival at a step and either admits it or
	// redirects. It is safe to call on every render.
	Navigate(ctx context.Context, arrival Arrival) Decision

	// Advance performs a forward transition from the given step: it
	// force-syncs the remote record, runs hard prerequisites, marks the
	// departing step complete and admits the next step.
	//
	// A *PrerequisiteError return means navigation halted and the error
	// must be surfaced as retryable.
	Advance(ctx context.Context, from int) (Decision, error)

	// ApplyQuery ingests URL query parameters (preselected service,
	// currency, ad-click id). The returned Decision is meaningful only
	// when applied is true, in which case it admits the documents step.
	ApplyQuery(ctx context.Context, query url.Values) (d Decision, applied bool, err error)

	// StartOver abandons the draft: form state and completed steps are
	// cleared and a fresh session begins.
	StartOver(ctx context.Context)

	// BeginCheckout force-syncs and creates a payment-provider session,
	// returning the redirect URL. Failures are *PrerequisiteError.
	BeginCheckout(ctx context.Context) (redirectURL string, err error)

	// State returns a deep copy of the current form state.
	State() FormState

	// UpdateState applies fn to the latest committed state and persists
	// the result. fn must not retain the pointer after returning.
	UpdateState(fn func(*FormState)) FormState

	// AttachDocument uploads a file to the blob store and appends its
	// metadata under the given catalog item.
	AttachDocument(ctx context.Context, itemID, name, mimeType string, r io.Reader, size int64) (DocumentRecord, error)

	// RemoveDocument deletes a document from storage and from the state.
	RemoveDocument(ctx context.Context, itemID, storageRef string) error

	// AutoFillAddress resolves the contact's address through the lookup
	// service and merges derived fields. Lookup failures degrade to
	// manual entry and return nil.
	AutoFillAddress(ctx context.Context) error

	// CompletedSteps returns the sorted completed ordinals.
	CompletedSteps() []int

	// SessionID returns the stable per-session identifier.
	SessionID() string

	// ForceSync replicates the current state to the remote record and
	// waits for the result.
	ForceSync(ctx context.Context) (recordID string, err error)

	// Total computes the displayable total in minor units from the
	// selection and chosen options.
	Total(ctx context.Context) (int64, error)

	// SetCurrency switches the display currency and resets conversions.
	SetCurrency(code string)

	// FormatPriceSync returns the best currently-cached formatted price;
	// it never blocks rendering.
	FormatPriceSync(amountMinor int64) string

	// FormatPriceAsync fetches the authoritative conversion, updates the
	// cache and returns the corrected string.
	FormatPriceAsync(ctx context.Context, amountMinor int64) (string, error)

	// Close stops the background syncer and releases resources.
	Close()
}
