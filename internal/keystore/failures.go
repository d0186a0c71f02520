// Package keystore implements the persistent keyed store: a synchronous,
// size-bounded local key-value medium whose write failures are reported
// through a subscription channel instead of panicking into caller code.
package keystore

import (
	"sync"

	"github.com/stepgate/stepgate/pkg/api"
)

// notifier manages failure subscriptions shared by the store
// implementations.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(api.Failure)
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]func(api.Failure))}
}

func (n *notifier) subscribe(fn func(api.Failure)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	n.subs[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) notify(f api.Failure) {
	n.mu.Lock()
	fns := make([]func(api.Failure), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(f)
	}
}
