package stepgate

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/stepgate/stepgate/internal/catalog"
	"github.com/stepgate/stepgate/internal/checkout"
	"github.com/stepgate/stepgate/internal/docstore"
	"github.com/stepgate/stepgate/internal/events"
	"github.com/stepgate/stepgate/internal/geoloc"
	"github.com/stepgate/stepgate/internal/keystore"
	"github.com/stepgate/stepgate/internal/pricing"
	"github.com/stepgate/stepgate/internal/remotesync"
	"github.com/stepgate/stepgate/internal/wizard"
	"github.com/stepgate/stepgate/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Wizard         = api.Wizard
	FormState      = api.FormState
	DocumentRecord = api.DocumentRecord
	Contact        = api.Contact
	Commerce       = api.Commerce
	DeliveryMethod = api.DeliveryMethod
	Graph          = api.Graph
	StepDefinition = api.StepDefinition
	PredicateFunc  = api.PredicateFunc
	Arrival        = api.Arrival
	Decision       = api.Decision
	ReturnSignal   = api.ReturnSignal
	OutboundEvent  = api.OutboundEvent
	EventKind      = api.EventKind
	RetryPolicy    = api.RetryPolicy
	Snapshot       = api.Snapshot
	Record         = api.Record
	Item           = api.Item
	Option         = api.Option

	KeyStore       = api.KeyStore
	RecordStore    = api.RecordStore
	CatalogService = api.CatalogService
	BlobStore      = api.BlobStore
	StoredObject   = api.StoredObject
	AddressLookup  = api.AddressLookup
	AddressQuery   = api.AddressQuery
	AddressResult  = api.AddressResult
	SessionCreator = api.SessionCreator
	AccountCreator = api.AccountCreator
	Converter      = api.Converter

	Observer          = api.Observer
	NoopObserver      = api.NoopObserver
	CompositeObserver = api.CompositeObserver
	LoggingObserver   = api.LoggingObserver

	MinioConfig = docstore.MinioConfig
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export the default intake graph and its ordinals.

var DefaultIntakeGraph = api.DefaultIntakeGraph

const (
	StepServices  = api.StepServices
	StepDocuments = api.StepDocuments
	StepDelivery  = api.StepDelivery
	StepContact   = api.StepContact
	StepSummary   = api.StepSummary
)

// Re-export delivery methods and checkout return signals.

const (
	DeliveryUnset      = api.DeliveryUnset
	DeliveryPostal     = api.DeliveryPostal
	DeliveryElectronic = api.DeliveryElectronic

	ReturnNone    = api.ReturnNone
	ReturnSuccess = api.ReturnSuccess
	ReturnCancel  = api.ReturnCancel
)

// Re-export sentinel errors.

var (
	ErrStepIncomplete     = api.ErrStepIncomplete
	ErrUploadsOutstanding = api.ErrUploadsOutstanding
	ErrUnknownStep        = api.ErrUnknownStep
	ErrKeyNotFound        = api.ErrKeyNotFound
	ErrRecordNotFound     = api.ErrRecordNotFound
)

// IsPrerequisiteFailure reports whether err wraps a hard-prerequisite
// failure (account or checkout-session creation).
var IsPrerequisiteFailure = api.IsPrerequisiteFailure

// ParseCheckoutReturn extracts the payment-provider return signal from
// arrival query parameters, for feeding into Arrival.Return.
var ParseCheckoutReturn = checkout.ParseReturn

// Store constructors
// These wrap the internal packages so external callers never need to import
// internal packages.

// NewMemoryKeyStore returns a quota-bounded in-memory keyed store.
// quotaBytes <= 0 selects the default quota.
func NewMemoryKeyStore(quotaBytes int) KeyStore {
	return keystore.NewMemoryStore(quotaBytes)
}

// NewSQLiteKeyStore returns a keyed store that persists drafts in a SQLite
// database.
func NewSQLiteKeyStore(db *sql.DB) (KeyStore, error) {
	return keystore.NewSQLiteStore(db)
}

// NewMemoryRecordStore returns an in-memory remote-record store.
func NewMemoryRecordStore() RecordStore {
	return remotesync.NewMemoryRecordStore()
}

// NewSQLiteRecordStore returns a remote-record store backed by SQLite.
func NewSQLiteRecordStore(db *sql.DB) (RecordStore, error) {
	return remotesync.NewSQLiteRecordStore(db)
}

// NewStaticCatalog returns a catalog served from the given items and options.
func NewStaticCatalog(items []Item, options []Option) CatalogService {
	return catalog.NewStaticService(items, options)
}

// NewMemoryDocumentStore returns an in-memory document store, intended for
// tests and development.
func NewMemoryDocumentStore() BlobStore {
	return docstore.NewMemoryStore()
}

// NewMinioDocumentStore returns a document store backed by an S3-compatible
// object store.
func NewMinioDocumentStore(ctx context.Context, cfg MinioConfig) (BlobStore, error) {
	return docstore.NewMinioStore(ctx, cfg)
}

// NewHTTPAddressLookup returns an address lookup against a geocoding
// endpoint. A nil client gets a default with a short timeout.
func NewHTTPAddressLookup(endpoint string, client *http.Client) AddressLookup {
	return geoloc.NewHTTPLookup(endpoint, client)
}

// NewHTTPConverter returns a currency converter against an exchange-rate
// endpoint.
func NewHTTPConverter(endpoint string, client *http.Client) Converter {
	return pricing.NewHTTPConverter(endpoint, client)
}

// NewStaticConverter returns a converter with a fixed rate table. Keys are
// "FROM/TO" pairs, e.g. "USD/EUR".
func NewStaticConverter(rates map[string]float64) Converter {
	return pricing.NewStaticConverter(rates)
}

// FormatPrice renders an amount in minor units as a display string.
var FormatPrice = pricing.Format

// Options configures a Wizard. Catalog is required; zero values everywhere
// else select sensible defaults (in-memory stores, the default intake graph,
// no external services).
type Options struct {
	Graph   *Graph
	Store   KeyStore
	Records RecordStore
	Catalog CatalogService

	Documents BlobStore
	Addresses AddressLookup
	Accounts  AccountCreator
	Checkout  SessionCreator
	Converter Converter

	// SourceCurrency is the catalog's native currency. Empty means USD.
	SourceCurrency string

	// SyncDebounce tunes the auto-save quiet period; zero selects the
	// default.
	SyncDebounce time.Duration

	// Retry governs hard-prerequisite calls. A zero value means a single
	// attempt.
	Retry RetryPolicy

	Observer Observer

	// EventSink receives outbound analytics events through a background
	// dispatcher. Nil disables event dispatch.
	EventSink EventSink

	// EventWorkers is the dispatcher concurrency; zero means 1.
	EventWorkers int

	// EventBuffer is the event queue capacity; zero selects the default.
	EventBuffer int
}

// NewWizard constructs a Wizard from the given options and starts its
// background machinery (the debounced syncer and, when an EventSink is
// configured, the event dispatcher).
func NewWizard(opts Options) (Wizard, error) {
	if opts.Store == nil {
		opts.Store = NewMemoryKeyStore(0)
	}
	if opts.Records == nil {
		opts.Records = NewMemoryRecordStore()
	}
	if opts.Graph == nil {
		opts.Graph = DefaultIntakeGraph()
	}

	var queue *events.InMemoryQueue
	var dispatcher *Dispatcher
	if opts.EventSink != nil {
		queue = events.NewInMemoryQueue(opts.EventBuffer)
		dispatcher = NewDispatcher(queue, opts.EventSink)
	}

	e, err := wizard.New(wizard.Deps{
		Graph:          opts.Graph,
		Store:          opts.Store,
		Records:        opts.Records,
		Catalog:        opts.Catalog,
		Blobs:          opts.Documents,
		Addresses:      opts.Addresses,
		Accounts:       opts.Accounts,
		Sessions:       opts.Checkout,
		Converter:      opts.Converter,
		SourceCurrency: opts.SourceCurrency,
		Debounce:       opts.SyncDebounce,
		Retry:          opts.Retry,
		Observer:       opts.Observer,
		Queue:          queue,
	})
	if err != nil {
		return nil, err
	}

	if dispatcher == nil {
		return e, nil
	}
	if err := dispatcher.Start(context.Background(), opts.EventWorkers); err != nil {
		e.Close()
		return nil, err
	}
	return &dispatchingWizard{Wizard: e, dispatcher: dispatcher}, nil
}

// NewInMemoryWizard returns a Wizard backed entirely by in-memory stores.
func NewInMemoryWizard(cat CatalogService) (Wizard, error) {
	return NewWizard(Options{Catalog: cat})
}

// dispatchingWizard ties the dispatcher's lifetime to the wizard's.
type dispatchingWizard struct {
	Wizard
	dispatcher *Dispatcher
}

func (w *dispatchingWizard) Close() {
	w.dispatcher.Stop()
	w.Wizard.Close()
}
