package remotesync

import (
	"context"
	"sync"
	"time"

	"github.com/stepgate/stepgate/internal/formstate"
	"github.com/stepgate/stepgate/pkg/api"
)

// DefaultDebounce is the quiet period after the last state change before an
// auto-save fires.
const DefaultDebounce = 2 * time.Second

// TotalFunc computes the snapshot total from the current state.
type TotalFunc func(ctx context.Context, fs api.FormState) (int64, error)

// Syncer replicates the container's state to a RecordStore.
//
// Auto-saves are debounced and fire-and-forget: failures are reported to the
// observer and dropped, the next debounce cycle or force-sync acting as the
// retry. ForceSync is the awaited path used before step transitions.
type Syncer struct {
	store api.RecordStore
	state *formstate.Container
	total TotalFunc
	obs   api.Observer

	debounce time.Duration

	mu          sync.Mutex
	timer       *time.Timer
	unsubscribe func()
	stopped     bool
}

// NewSyncer creates a Syncer. debounce <= 0 selects DefaultDebounce; a nil
// observer defaults to NoopObserver; a nil total function records zero
// totals.
func NewSyncer(store api.RecordStore, state *formstate.Container, total TotalFunc, debounce time.Duration, obs api.Observer) *Syncer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if obs == nil {
		obs = api.NoopObserver{}
	}
	if total == nil {
		total = func(context.Context, api.FormState) (int64, error) { return 0, nil }
	}
	return &Syncer{
		store:    store,
		state:    state,
		total:    total,
		obs:      obs,
		debounce: debounce,
	}
}

// Start subscribes to container changes and begins debounced auto-saving.
func (s *Syncer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil || s.stopped {
		return
	}
	s.unsubscribe = s.state.OnChange(func(api.FormState) {
		s.schedule()
	})
}

// Stop cancels the pending auto-save and detaches from the container.
func (s *Syncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Syncer) schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.autoSave)
}

// autoSave runs on timer expiry. It reads the state as of fire time, never
// an earlier snapshot, and skips sessions without real progress.
func (s *Syncer) autoSave() {
	fs := s.state.Get()
	if !hasRealProgress(fs) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Fire-and-forget: the error has already been reported to the
	// observer; the next cycle retries naturally.
	_, _ = s.flush(ctx)
}

// ForceSync replicates the current state immediately and waits for the
// result. It guarantees the remote record reflects at least the state at
// the moment of the call.
func (s *Syncer) ForceSync(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.timer != nil {
		// The forced write supersedes the pending auto-save.
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	return s.flush(ctx)
}

func (s *Syncer) flush(ctx context.Context) (string, error) {
	fs := s.state.Get()
	session := fs.Meta.SessionID

	totalMinor, err := s.total(ctx, fs)
	if err != nil {
		// A failed total computation degrades to zero rather than
		// blocking replication.
		s.obs.OnLookupFailed(ctx, "total", err)
		totalMinor = 0
	}

	snap := api.Snapshot{
		SessionID:  session,
		State:      fs,
		Completed:  s.state.Completed(),
		TotalMinor: totalMinor,
		Currency:   fs.Commerce.CurrencyCode,
		TakenAt:    time.Now(),
	}

	started := time.Now()
	recordID, err := s.store.Upsert(ctx, snap)
	s.obs.OnSyncCompleted(ctx, session, recordID, err, time.Since(started))
	return recordID, err
}

// hasRealProgress reports whether the draft is worth replicating: a
// selection, any document, or contact name/email present.
func hasRealProgress(fs api.FormState) bool {
	if len(fs.Selection) > 0 {
		return true
	}
	if fs.HasAnyDocument() {
		return true
	}
	return fs.Contact.Name != "" || fs.Contact.Email != ""
}
