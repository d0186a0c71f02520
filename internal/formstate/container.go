// Package formstate implements the canonical in-memory form state container,
// mirrored to the persistent keyed store on every commit.
package formstate

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/stepgate/stepgate/pkg/api"
)

// Persisted key names. All values are opaque serialized snapshots.
const (
	KeyFormState      = "form-state"
	KeyCompletedSteps = "completed-steps"
	KeySessionID      = "session-id"
	KeyCurrencyPref   = "currency-preference"
)

// Container owns the wizard's mutable state: the FormState aggregate, the
// completed-steps set, the session id and the outstanding-upload counter.
//
// Every mutation goes through Set or Update under a single-writer lock, so
// concurrent asynchronous callbacks (two uploads finishing moments apart)
// always observe the latest committed value and can never drop each other's
// writes. Commits persist optimistically: a failed store write keeps the
// in-memory update and reports the failure via the store's subscription.
type Container struct {
	store api.KeyStore

	mu        sync.Mutex
	state     api.FormState
	completed map[int]struct{}
	version   uint64
	uploads   int

	listeners *changeList
}

// New creates a Container hydrated from the given store. A session id is
// generated exactly once and persisted; it stays stable across rehydrations
// within the session.
func New(store api.KeyStore) (*Container, error) {
	c := &Container{
		store:     store,
		completed: make(map[int]struct{}),
		listeners: newChangeList(),
	}
	if err := c.hydrate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) hydrate() error {
	sessionID, err := c.loadSessionID()
	if err != nil {
		return err
	}

	if raw, err := c.store.Read(KeyFormState); err == nil {
		var fs api.FormState
		if err := json.Unmarshal(raw, &fs); err != nil {
			return fmt.Errorf("formstate: corrupt %s snapshot: %w", KeyFormState, err)
		}
		c.state = fs
	}
	c.state.Meta.SessionID = sessionID
	if c.state.Commerce.CurrencyCode == "" {
		c.state.Commerce.CurrencyCode = c.CurrencyPreference()
	}

	if raw, err := c.store.Read(KeyCompletedSteps); err == nil {
		var ordinals []int
		if err := json.Unmarshal(raw, &ordinals); err != nil {
			return fmt.Errorf("formstate: corrupt %s snapshot: %w", KeyCompletedSteps, err)
		}
		for _, ord := range ordinals {
			c.completed[ord] = struct{}{}
		}
	}
	return nil
}

func (c *Container) loadSessionID() (string, error) {
	if raw, err := c.store.Read(KeySessionID); err == nil && len(raw) > 0 {
		return string(raw), nil
	}
	id := uuid.NewString()
	// A failed write is optimistic like any other: the id stays valid for
	// this process lifetime and the failure reaches store subscribers.
	c.store.Write(KeySessionID, []byte(id))
	return id, nil
}

// Get returns a deep copy of the latest committed state.
func (c *Container) Get() api.FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Set replaces the whole state and persists it.
func (c *Container) Set(fs api.FormState) api.FormState {
	return c.Update(func(cur *api.FormState) {
		session := cur.Meta.SessionID
		*cur = fs
		cur.Meta.SessionID = session
	})
}

// Update applies fn to the latest committed state under the single-writer
// lock, prunes orphaned document entries, persists the result and returns a
// copy of the committed value. Change listeners run after the commit with
// that same copy.
func (c *Container) Update(fn func(*api.FormState)) api.FormState {
	c.mu.Lock()

	next := c.state.Clone()
	fn(&next)
	next.PruneDocuments()
	next.Meta.SessionID = c.state.Meta.SessionID

	c.state = next
	c.version++
	c.persistStateLocked()

	committed := c.state.Clone()
	c.mu.Unlock()

	c.listeners.fire(committed)
	return committed
}

// Version returns the commit counter, incremented on every Update/Set.
func (c *Container) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// SessionID returns the stable per-session identifier.
func (c *Container) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Meta.SessionID
}

// MarkComplete adds the ordinal to the completed set. Adding an
// already-present ordinal is a no-op; it reports whether the set changed.
func (c *Container) MarkComplete(ordinal int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.completed[ordinal]; ok {
		return false
	}
	c.completed[ordinal] = struct{}{}
	c.persistCompletedLocked()
	return true
}

// Backfill marks steps 1..upTo complete and returns the ordinals that were
// newly added, in order.
func (c *Container) Backfill(upTo int) []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var added []int
	for ord := 1; ord <= upTo; ord++ {
		if _, ok := c.completed[ord]; !ok {
			c.completed[ord] = struct{}{}
			added = append(added, ord)
		}
	}
	if len(added) > 0 {
		c.persistCompletedLocked()
	}
	return added
}

// IsCompleted reports whether the ordinal is in the completed set.
func (c *Container) IsCompleted(ordinal int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.completed[ordinal]
	return ok
}

// Completed returns the completed ordinals in ascending order.
func (c *Container) Completed() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]int, 0, len(c.completed))
	for ord := range c.completed {
		out = append(out, ord)
	}
	sort.Ints(out)
	return out
}

// MaxCompleted returns the highest completed ordinal, or 0 when none.
func (c *Container) MaxCompleted() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	max := 0
	for ord := range c.completed {
		if ord > max {
			max = ord
		}
	}
	return max
}

// Rehydrate reloads state and completed steps from the store, discarding
// in-memory values that never made it to disk. It is invoked on
// checkout-cancel returns, where a provider redirect may have raced an
// unflushed write.
func (c *Container) Rehydrate() error {
	c.mu.Lock()

	var fs api.FormState
	if raw, err := c.store.Read(KeyFormState); err == nil {
		if err := json.Unmarshal(raw, &fs); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("formstate: corrupt %s snapshot: %w", KeyFormState, err)
		}
	}
	fs.Meta.SessionID = c.state.Meta.SessionID
	c.state = fs

	c.completed = make(map[int]struct{})
	if raw, err := c.store.Read(KeyCompletedSteps); err == nil {
		var ordinals []int
		if err := json.Unmarshal(raw, &ordinals); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("formstate: corrupt %s snapshot: %w", KeyCompletedSteps, err)
		}
		for _, ord := range ordinals {
			c.completed[ord] = struct{}{}
		}
	}
	c.version++

	committed := c.state.Clone()
	c.mu.Unlock()

	c.listeners.fire(committed)
	return nil
}

// Clear abandons the draft: form state and completed steps are wiped and a
// fresh session id is generated, so the old remote record can never be
// resurrected by a later sync. The currency preference survives.
func (c *Container) Clear() {
	c.mu.Lock()

	currency := c.currencyPreferenceLocked()
	c.state = api.FormState{}
	c.state.Meta.SessionID = uuid.NewString()
	c.state.Commerce.CurrencyCode = currency
	c.completed = make(map[int]struct{})
	c.version++

	c.store.Delete(KeyFormState)
	c.store.Delete(KeyCompletedSteps)
	c.store.Write(KeySessionID, []byte(c.state.Meta.SessionID))

	c.mu.Unlock()
}

// OnChange registers a listener called with a copy of the committed state
// after every Update, Set or Rehydrate. The returned function unsubscribes.
func (c *Container) OnChange(fn func(api.FormState)) func() {
	return c.listeners.add(fn)
}

// BeginUpload records an outstanding document upload.
func (c *Container) BeginUpload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploads++
}

// EndUpload marks one outstanding upload as finished.
func (c *Container) EndUpload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploads > 0 {
		c.uploads--
	}
}

// UploadsOutstanding reports how many uploads are in flight.
func (c *Container) UploadsOutstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploads
}

// CurrencyPreference returns the persisted display currency, or "".
func (c *Container) CurrencyPreference() string {
	raw, err := c.store.Read(KeyCurrencyPref)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (c *Container) currencyPreferenceLocked() string {
	raw, err := c.store.Read(KeyCurrencyPref)
	if err != nil {
		return ""
	}
	return string(raw)
}

// SetCurrencyPreference persists the display currency and mirrors it into
// the commerce section.
func (c *Container) SetCurrencyPreference(code string) {
	c.store.Write(KeyCurrencyPref, []byte(code))
	c.Update(func(fs *api.FormState) {
		fs.Commerce.CurrencyCode = code
	})
}

func (c *Container) persistStateLocked() {
	raw, err := json.Marshal(c.state)
	if err != nil {
		// FormState is always JSON-serializable; reaching this means a
		// programming error in the aggregate itself.
		panic("formstate: marshal form state: " + err.Error())
	}
	c.store.Write(KeyFormState, raw)
}

func (c *Container) persistCompletedLocked() {
	ordinals := make([]int, 0, len(c.completed))
	for ord := range c.completed {
		ordinals = append(ordinals, ord)
	}
	sort.Ints(ordinals)

	raw, err := json.Marshal(ordinals)
	if err != nil {
		panic("formstate: marshal completed steps: " + err.Error())
	}
	c.store.Write(KeyCompletedSteps, raw)
}

// changeList manages change listeners.
type changeList struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(api.FormState)
}

func newChangeList() *changeList {
	return &changeList{fns: make(map[int]func(api.FormState))}
}

func (l *changeList) add(fn func(api.FormState)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.next
	l.next++
	l.fns[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *changeList) fire(fs api.FormState) {
	l.mu.Lock()
	fns := make([]func(api.FormState), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(fs)
	}
}
