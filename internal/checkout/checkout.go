// Package checkout handles the payment-provider handoff: creating the
// provider session at checkout time and interpreting the return journey.
package checkout

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/stepgate/stepgate/pkg/api"
)

// ReturnParam is the query parameter the provider appends on the journey
// back into the wizard.
const ReturnParam = "checkout"

const (
	returnSuccess = "success"
	returnCancel  = "cancel"
)

// ParseReturn extracts the provider return signal from arrival query
// parameters. Unknown or absent values mean a plain arrival.
func ParseReturn(q url.Values) api.ReturnSignal {
	switch q.Get(ReturnParam) {
	case returnSuccess:
		return api.ReturnSuccess
	case returnCancel:
		return api.ReturnCancel
	default:
		return api.ReturnNone
	}
}

// SuccessURL and CancelURL build the return URLs handed to the provider so
// its redirects land back on the given wizard path with the right signal.
func SuccessURL(base string) string { return appendSignal(base, returnSuccess) }
func CancelURL(base string) string  { return appendSignal(base, returnCancel) }

func appendSignal(base, signal string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(ReturnParam, signal)
	u.RawQuery = q.Encode()
	return u.String()
}

// MemorySessionCreator issues local checkout sessions without a provider.
// Intended for tests and development environments.
type MemorySessionCreator struct {
	// RedirectBase is the URL prefix of issued sessions.
	RedirectBase string

	mu       sync.Mutex
	sessions []api.Snapshot
}

var _ api.SessionCreator = (*MemorySessionCreator)(nil)

func (c *MemorySessionCreator) Create(ctx context.Context, snap api.Snapshot) (api.CheckoutSession, error) {
	if snap.TotalMinor <= 0 {
		return api.CheckoutSession{}, fmt.Errorf("checkout session for session %s: non-positive total %d", snap.SessionID, snap.TotalMinor)
	}

	c.mu.Lock()
	c.sessions = append(c.sessions, snap)
	c.mu.Unlock()

	base := c.RedirectBase
	if base == "" {
		base = "https://checkout.invalid/session/"
	}
	return api.CheckoutSession{RedirectURL: base + uuid.NewString()}, nil
}

// Created returns the snapshots passed to Create, in order.
func (c *MemorySessionCreator) Created() []api.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Snapshot, len(c.sessions))
	copy(out, c.sessions)
	return out
}
