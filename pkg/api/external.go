package api

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrKeyNotFound is returned by keyed-store reads for absent keys.
	ErrKeyNotFound = errors.New("key not found")

	// ErrRecordNotFound is returned when no remote record exists for a
	// session.
	ErrRecordNotFound = errors.New("remote record not found")
)

// FailureKind classifies a keyed-store write failure. Quota-exceeded is kept
// distinct from generic write errors because recovering from it usually means
// removing large document blobs, while write errors are often transient.
type FailureKind string

const (
	FailureQuotaExceeded FailureKind = "quota_exceeded"
	FailureWriteError    FailureKind = "write_error"
)

// Failure describes a failed keyed-store write.
type Failure struct {
	Key  string
	Kind FailureKind
	Err  error
}

func (f Failure) Error() string {
	return "keystore write " + f.Key + ": " + string(f.Kind) + ": " + f.Err.Error()
}

func (f Failure) Unwrap() error { return f.Err }

// KeyStore is the persistent keyed store: a synchronous, size-bounded local
// key-value medium. Writes never panic into caller code; failures are
// returned and simultaneously reported to subscribers so the UI can surface
// a "your changes may not be saved" notice without crashing the wizard.
type KeyStore interface {
	// Read returns the stored value, or ErrKeyNotFound.
	Read(key string) ([]byte, error)

	// Write stores the value. A nil return means the write is durable.
	// On failure, the previously stored value (if any) is retained.
	Write(key string, value []byte) *Failure

	// Delete removes the key. Deleting an absent key is a no-op.
	Delete(key string)

	// Subscribe registers a callback invoked on every write failure.
	// The returned function unsubscribes.
	Subscribe(fn func(Failure)) (unsubscribe func())
}

// Snapshot is the payload replicated to the remote record: the form state
// plus step progress and the computed total.
type Snapshot struct {
	SessionID  string    `json:"sessionId"`
	State      FormState `json:"state"`
	Completed  []int     `json:"completedSteps"`
	TotalMinor int64     `json:"totalMinor"`
	Currency   string    `json:"currency"`
	TakenAt    time.Time `json:"takenAt"`
}

// Record is a stored remote mirror of a Snapshot.
type Record struct {
	ID        string    `json:"id"`
	Snapshot  Snapshot  `json:"snapshot"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecordStore persists remote records. Upsert is idempotent per session:
// repeated calls for the same session update one record, never duplicate it.
type RecordStore interface {
	Upsert(ctx context.Context, snap Snapshot) (recordID string, err error)
	Get(ctx context.Context, sessionID string) (*Record, error)
}

// Item is one sellable catalog entry. The optional identity fields mirror
// the upstream catalog, which names the same concept differently across
// sources; the resolver probes them in a documented precedence.
type Item struct {
	ID             string `json:"id"`
	Slug           string `json:"slug,omitempty"`
	Code           string `json:"code,omitempty"`
	Key            string `json:"key,omitempty"`
	URLKey         string `json:"urlKey,omitempty"`
	Name           string `json:"name"`
	BasePriceMinor int64  `json:"basePriceMinor"`
}

// Option is an add-on that may apply to a specific item.
type Option struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	AdditionalPriceMinor int64  `json:"additionalPriceMinor"`
	AppliesToItemID      string `json:"appliesToItemId,omitempty"`
}

// CatalogService is the read-only catalog contract.
type CatalogService interface {
	Items(ctx context.Context) ([]Item, error)
	Options(ctx context.Context) ([]Option, error)
}

// StoredObject identifies an uploaded document in external storage.
type StoredObject struct {
	StorageRef string
	PublicURL  string
}

// BlobStore is the document storage boundary. Only the returned reference
// and metadata enter FormState; raw bytes are never persisted locally.
type BlobStore interface {
	Upload(ctx context.Context, scopeID, name, mimeType string, r io.Reader, size int64) (StoredObject, error)
	Delete(ctx context.Context, storageRef string) error
}

// AddressQuery is a free-text or coordinate lookup request.
type AddressQuery struct {
	FreeText  string
	Lat, Long float64
	HasCoords bool
}

// AddressResult carries the derived address and time-zone fields.
type AddressResult struct {
	FormattedAddress string
	City             string
	PostalCode       string
	Country          string
	Lat, Long        float64
	TimeZoneID       string
}

// AddressLookup resolves addresses and time zones. Failures must not block
// form submission; callers degrade to manual entry.
type AddressLookup interface {
	Resolve(ctx context.Context, q AddressQuery) (*AddressResult, error)
}

// CheckoutSession is the provider handoff target.
type CheckoutSession struct {
	RedirectURL string
}

// SessionCreator creates a payment-provider checkout session from the
// current snapshot.
type SessionCreator interface {
	Create(ctx context.Context, snap Snapshot) (CheckoutSession, error)
}

// AccountCreator provisions the downstream account before entry to the
// summary step. recordID links the account to the remote record. A failure
// here halts navigation and is surfaced, never swallowed.
type AccountCreator interface {
	EnsureAccount(ctx context.Context, snap Snapshot, recordID string) error
}

// Converter performs currency conversion. CachedRate is the synchronous
// estimate path; Convert is the authoritative asynchronous path.
type Converter interface {
	// CachedRate returns the last known rate for the pair, if any.
	CachedRate(from, to string) (float64, bool)

	// Convert fetches the authoritative conversion for the amount.
	Convert(ctx context.Context, amountMinor int64, from, to string) (int64, error)
}
