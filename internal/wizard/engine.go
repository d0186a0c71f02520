// Package wizard wires the step graph, guard, resolver, syncer and pricing
// projector into the engine behind the public Wizard interface.
package wizard

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stepgate/stepgate/internal/catalog"
	"github.com/stepgate/stepgate/internal/events"
	"github.com/stepgate/stepgate/internal/formstate"
	"github.com/stepgate/stepgate/internal/guard"
	"github.com/stepgate/stepgate/internal/pricing"
	"github.com/stepgate/stepgate/internal/remotesync"
	"github.com/stepgate/stepgate/internal/resolver"
	"github.com/stepgate/stepgate/pkg/api"
)

// Deps carries the collaborators of an Engine. Graph, Store, Records and
// Catalog are required; everything else is optional and degrades to a no-op.
type Deps struct {
	Graph   *api.Graph
	Store   api.KeyStore
	Records api.RecordStore
	Catalog api.CatalogService

	Blobs     api.BlobStore
	Addresses api.AddressLookup
	Accounts  api.AccountCreator
	Sessions  api.SessionCreator
	Converter api.Converter

	// SourceCurrency is the catalog's native currency. Empty means USD.
	SourceCurrency string

	// Debounce tunes the auto-save quiet period; zero selects the default.
	Debounce time.Duration

	// Retry governs hard-prerequisite calls (account and checkout-session
	// creation). A zero value means a single attempt.
	Retry api.RetryPolicy

	Observer api.Observer

	// Queue receives outbound analytics events. Nil disables publication.
	Queue *events.InMemoryQueue
}

// Engine is the Wizard implementation.
type Engine struct {
	graph     *api.Graph
	state     *formstate.Container
	guard     *guard.Guard
	resolver  *resolver.Resolver
	catalog   api.CatalogService
	blobs     api.BlobStore
	addresses api.AddressLookup
	accounts  api.AccountCreator
	sessions  api.SessionCreator
	syncer    *remotesync.Syncer
	projector *pricing.Projector
	queue     *events.InMemoryQueue
	obs       api.Observer
	retry     api.RetryPolicy
}

var _ api.Wizard = (*Engine)(nil)

// New builds an Engine, hydrates the draft from the keyed store and starts
// the background syncer.
func New(deps Deps) (*Engine, error) {
	if deps.Graph == nil {
		return nil, fmt.Errorf("wizard: graph is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("wizard: key store is required")
	}
	if deps.Records == nil {
		return nil, fmt.Errorf("wizard: record store is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("wizard: catalog is required")
	}
	obs := deps.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}

	state, err := formstate.New(deps.Store)
	if err != nil {
		return nil, fmt.Errorf("wizard: hydrate state: %w", err)
	}

	source := deps.SourceCurrency
	if source == "" {
		source = "USD"
	}
	conv := deps.Converter
	if conv == nil {
		conv = pricing.NewStaticConverter(nil)
	}
	projector := pricing.NewProjector(conv, source, obs)
	if pref := state.CurrencyPreference(); pref != "" {
		projector.SetCurrency(pref)
	}

	e := &Engine{
		graph:     deps.Graph,
		state:     state,
		guard:     guard.New(deps.Graph, state, obs),
		resolver:  resolver.New(deps.Catalog, state, obs),
		catalog:   deps.Catalog,
		blobs:     deps.Blobs,
		addresses: deps.Addresses,
		accounts:  deps.Accounts,
		sessions:  deps.Sessions,
		projector: projector,
		queue:     deps.Queue,
		obs:       obs,
		retry:     deps.Retry,
	}

	e.syncer = remotesync.NewSyncer(deps.Records, state, func(ctx context.Context, fs api.FormState) (int64, error) {
		return catalog.Total(ctx, deps.Catalog, fs)
	}, deps.Debounce, obs)
	e.syncer.Start()

	// Surface keyed-store failures through the observer; the draft keeps
	// working in memory either way.
	deps.Store.Subscribe(func(f api.Failure) {
		obs.OnStorageFailure(context.Background(), f.Key, f.Kind == api.FailureQuotaExceeded, f.Err)
	})

	return e, nil
}

func (e *Engine) Navigate(ctx context.Context, arrival api.Arrival) api.Decision {
	d := e.guard.Evaluate(ctx, arrival)
	e.publish(d.Events)
	return d
}

// Advance leaves the given step: uploads must be settled, the step's
// completion predicate must hold, the remote record is force-synced and the
// account prerequisite runs before entry to the terminal step.
func (e *Engine) Advance(ctx context.Context, from int) (api.Decision, error) {
	step, ok := e.graph.Step(from)
	if !ok {
		return api.Decision{}, fmt.Errorf("advance from %d: %w", from, api.ErrUnknownStep)
	}
	if e.state.UploadsOutstanding() > 0 {
		return api.Decision{}, fmt.Errorf("advance from %s: %w", step.Name, api.ErrUploadsOutstanding)
	}

	fs := e.state.Get()
	if !step.IsComplete(fs) {
		return api.Decision{}, fmt.Errorf("advance from %s: %w", step.Name, api.ErrStepIncomplete)
	}

	next := from + 1
	if next > e.graph.Len() {
		return api.Decision{}, fmt.Errorf("advance from %s: already at the terminal step", step.Name)
	}

	// The remote record must reflect at least this step's answers before
	// anything downstream consumes it.
	recordID, syncErr := e.syncer.ForceSync(ctx)

	if next == e.graph.Terminal().Ordinal && e.accounts != nil && !fs.Contact.Authenticated {
		if syncErr != nil {
			return api.Decision{}, &api.PrerequisiteError{
				Op:  "account-create",
				Err: fmt.Errorf("remote sync: %w", syncErr),
			}
		}
		snap := e.snapshot(ctx)
		err := e.withRetry(ctx, func(ctx context.Context) error {
			return e.accounts.EnsureAccount(ctx, snap, recordID)
		})
		if err != nil {
			return api.Decision{}, &api.PrerequisiteError{Op: "account-create", Err: err}
		}
	}

	if e.state.MarkComplete(from) {
		e.obs.OnStepCompleted(ctx, e.state.SessionID(), from)
		e.publish([]api.OutboundEvent{api.NewEvent(api.EventStepCompleted, e.state.SessionID(), map[string]string{
			"step": step.Name,
		})})
	}

	return e.Navigate(ctx, api.Arrival{Target: next}), nil
}

func (e *Engine) ApplyQuery(ctx context.Context, query url.Values) (api.Decision, bool, error) {
	applied, evs, err := e.resolver.IngestQuery(ctx, query)
	e.publish(evs)

	if pref := e.state.CurrencyPreference(); pref != "" {
		e.projector.SetCurrency(pref)
	}
	if err != nil || !applied {
		return api.Decision{}, applied, err
	}

	// A successful preselection skips the services step; land on the one
	// after it.
	return e.Navigate(ctx, api.Arrival{Target: 2}), true, nil
}

func (e *Engine) StartOver(ctx context.Context) {
	session := e.state.SessionID()
	e.state.Clear()
	e.publish([]api.OutboundEvent{api.NewEvent(api.EventStartedOver, session, nil)})
}

func (e *Engine) BeginCheckout(ctx context.Context) (string, error) {
	if e.sessions == nil {
		return "", fmt.Errorf("begin checkout: no session creator configured")
	}

	if _, err := e.syncer.ForceSync(ctx); err != nil {
		return "", &api.PrerequisiteError{
			Op:  "checkout-session",
			Err: fmt.Errorf("remote sync: %w", err),
		}
	}

	snap := e.snapshot(ctx)
	var sess api.CheckoutSession
	err := e.withRetry(ctx, func(ctx context.Context) error {
		var createErr error
		sess, createErr = e.sessions.Create(ctx, snap)
		return createErr
	})
	if err != nil {
		return "", &api.PrerequisiteError{Op: "checkout-session", Err: err}
	}
	return sess.RedirectURL, nil
}

func (e *Engine) State() api.FormState {
	return e.state.Get()
}

func (e *Engine) UpdateState(fn func(*api.FormState)) api.FormState {
	return e.state.Update(fn)
}

func (e *Engine) AttachDocument(ctx context.Context, itemID, name, mimeType string, r io.Reader, size int64) (api.DocumentRecord, error) {
	if e.blobs == nil {
		return api.DocumentRecord{}, fmt.Errorf("attach document: no blob store configured")
	}

	e.state.BeginUpload()
	defer e.state.EndUpload()

	obj, err := e.blobs.Upload(ctx, e.state.SessionID(), name, mimeType, r, size)
	if err != nil {
		return api.DocumentRecord{}, fmt.Errorf("attach document %q: %w", name, err)
	}

	doc := api.DocumentRecord{
		Name:       name,
		Size:       size,
		MimeType:   mimeType,
		StorageRef: obj.StorageRef,
		PublicURL:  obj.PublicURL,
	}
	e.state.Update(func(fs *api.FormState) {
		fs.AppendDocument(itemID, doc)
	})
	return doc, nil
}

func (e *Engine) RemoveDocument(ctx context.Context, itemID, storageRef string) error {
	var removed bool
	e.state.Update(func(fs *api.FormState) {
		removed = fs.RemoveDocument(itemID, storageRef)
	})
	if !removed {
		return fmt.Errorf("remove document: no document %q under item %q", storageRef, itemID)
	}

	if e.blobs != nil {
		if err := e.blobs.Delete(ctx, storageRef); err != nil {
			// The state no longer references the object; an orphaned
			// blob is surfaced but does not fail the removal.
			e.obs.OnLookupFailed(ctx, "blob-delete", err)
		}
	}
	return nil
}

// AutoFillAddress resolves the typed address and merges derived fields into
// the contact. Only empty fields are filled; user input always wins.
func (e *Engine) AutoFillAddress(ctx context.Context) error {
	if e.addresses == nil {
		return nil
	}

	fs := e.state.Get()
	text := strings.TrimSpace(fs.Contact.Address)
	if text == "" {
		return nil
	}

	res, err := e.addresses.Resolve(ctx, api.AddressQuery{FreeText: text})
	if err != nil {
		e.obs.OnLookupFailed(ctx, "geocode", err)
		return nil
	}

	e.state.Update(func(fs *api.FormState) {
		if fs.Contact.City == "" {
			fs.Contact.City = res.City
		}
		if fs.Contact.PostalCode == "" {
			fs.Contact.PostalCode = res.PostalCode
		}
		if fs.Contact.Country == "" {
			fs.Contact.Country = res.Country
		}
		if fs.Contact.TimeZoneID == "" {
			fs.Contact.TimeZoneID = res.TimeZoneID
		}
		fs.Contact.AddressAutoPopulated = true
	})
	return nil
}

func (e *Engine) CompletedSteps() []int {
	return e.state.Completed()
}

func (e *Engine) SessionID() string {
	return e.state.SessionID()
}

func (e *Engine) ForceSync(ctx context.Context) (string, error) {
	return e.syncer.ForceSync(ctx)
}

func (e *Engine) Total(ctx context.Context) (int64, error) {
	return catalog.Total(ctx, e.catalog, e.state.Get())
}

func (e *Engine) SetCurrency(code string) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return
	}
	e.state.SetCurrencyPreference(code)
	e.projector.SetCurrency(code)
}

func (e *Engine) FormatPriceSync(amountMinor int64) string {
	return e.projector.FormatSync(amountMinor)
}

func (e *Engine) FormatPriceAsync(ctx context.Context, amountMinor int64) (string, error) {
	return e.projector.FormatAsync(ctx, amountMinor)
}

func (e *Engine) Close() {
	e.syncer.Stop()
}

// snapshot assembles the replication payload from the current state.
func (e *Engine) snapshot(ctx context.Context) api.Snapshot {
	fs := e.state.Get()
	total, err := catalog.Total(ctx, e.catalog, fs)
	if err != nil {
		e.obs.OnLookupFailed(ctx, "total", err)
		total = 0
	}
	return api.Snapshot{
		SessionID:  fs.Meta.SessionID,
		State:      fs,
		Completed:  e.state.Completed(),
		TotalMinor: total,
		Currency:   fs.Commerce.CurrencyCode,
		TakenAt:    time.Now(),
	}
}

// withRetry runs fn under the engine's retry policy, backing off between
// attempts. The last error is returned.
func (e *Engine) withRetry(ctx context.Context, fn func(context.Context) error) error {
	attempts := e.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(e.retry.Backoff(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		e.obs.OnLookupFailed(ctx, "prerequisite-attempt-"+strconv.Itoa(attempt), lastErr)
	}
	return lastErr
}

func (e *Engine) publish(evs []api.OutboundEvent) {
	if e.queue == nil {
		return
	}
	for _, ev := range evs {
		e.queue.TryEnqueue(ev)
	}
}
