package guard

import (
	"context"
	"testing"

	"github.com/stepgate/stepgate/internal/formstate"
	"github.com/stepgate/stepgate/internal/keystore"
	"github.com/stepgate/stepgate/pkg/api"
)

func newTestGuard(t *testing.T) (*Guard, *formstate.Container, *keystore.MemoryStore) {
	t.Helper()

	store := keystore.NewMemoryStore(0)
	state, err := formstate.New(store)
	if err != nil {
		t.Fatalf("formstate.New failed: %v", err)
	}
	return New(api.DefaultIntakeGraph(), state, nil), state, store
}

// fillComplete populates the state so every non-terminal predicate holds.
func fillComplete(state *formstate.Container) {
	state.Update(func(fs *api.FormState) {
		fs.Selection = []string{"svc-a"}
		fs.AppendDocument("svc-a", api.DocumentRecord{Name: "deed.pdf", Size: 10})
		fs.Delivery = api.DeliveryElectronic
		fs.Contact.Name = "Alice Example"
		fs.Contact.Address = "Main Street 1"
		fs.Contact.Email = "alice@example.com"
		fs.Contact.Password = "correct horse"
	})
}

func TestStepOneAlwaysReachable(t *testing.T) {
	g, _, _ := newTestGuard(t)

	d := g.Evaluate(context.Background(), api.Arrival{Target: api.StepServices})
	if !d.Allowed {
		t.Fatalf("step 1 must always be reachable, got redirect to %d", d.RedirectTo)
	}
}

func TestUnreachableStepRedirectsToNextAfterCompleted(t *testing.T) {
	g, state, _ := newTestGuard(t)

	state.MarkComplete(1)
	state.MarkComplete(2)

	d := g.Evaluate(context.Background(), api.Arrival{Target: api.StepContact})
	if d.Allowed {
		t.Fatalf("step 4 must not be reachable with only steps 1-2 complete")
	}
	if d.RedirectTo != 3 {
		t.Fatalf("expected redirect to max(completed)+1 = 3, got %d", d.RedirectTo)
	}
}

func TestGuardMonotonicity(t *testing.T) {
	// If k is reachable under C, it stays reachable under any superset.
	base := []int{1, 2}
	superset := []int{1, 2, 3, 4}

	for target := 1; target <= 5; target++ {
		reachableUnder := func(completed []int) bool {
			g, state, _ := newTestGuard(t)
			for _, ord := range completed {
				state.MarkComplete(ord)
			}
			// Keep predicates failing so terminal recovery cannot
			// mask pure reachability.
			d := g.Evaluate(context.Background(), api.Arrival{Target: target})
			return d.Allowed
		}

		if reachableUnder(base) && !reachableUnder(superset) {
			t.Fatalf("step %d reachable under %v but not under superset %v", target, base, superset)
		}
	}
}

func TestTerminalRecoveryRedirectsToFirstFailingPredicate(t *testing.T) {
	g, state, _ := newTestGuard(t)

	// selection + one document, delivery unset.
	state.Update(func(fs *api.FormState) {
		fs.Selection = []string{"svc-a"}
		fs.AppendDocument("svc-a", api.DocumentRecord{Name: "deed.pdf"})
	})

	d := g.Evaluate(context.Background(), api.Arrival{Target: api.StepSummary})
	if d.Allowed {
		t.Fatalf("summary must not be reachable with delivery unset")
	}
	if d.RedirectTo != api.StepDelivery {
		t.Fatalf("expected data-driven redirect to the delivery step, got %d", d.RedirectTo)
	}
}

func TestTerminalSelfHealingBackfillsAndAllows(t *testing.T) {
	g, state, _ := newTestGuard(t)
	fillComplete(state)

	// Completed set is empty, but every predicate holds.
	d := g.Evaluate(context.Background(), api.Arrival{Target: api.StepSummary})
	if !d.Allowed {
		t.Fatalf("expected self-healing entry, got redirect to %d", d.RedirectTo)
	}
	if !d.Healed {
		t.Fatalf("expected decision to be marked healed")
	}

	got := state.Completed()
	want := []int{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected backfilled completed steps %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected backfilled completed steps %v, got %v", want, got)
		}
	}

	// A second evaluation is a no-op: still allowed, nothing re-healed.
	d2 := g.Evaluate(context.Background(), api.Arrival{Target: api.StepSummary})
	if !d2.Allowed {
		t.Fatalf("second evaluation must still allow entry")
	}
	if d2.Healed {
		t.Fatalf("second evaluation must not heal again")
	}
}

func TestCheckoutSuccessClearsDraft(t *testing.T) {
	g, state, _ := newTestGuard(t)
	fillComplete(state)
	state.Backfill(4)
	oldSession := state.SessionID()

	d := g.Evaluate(context.Background(), api.Arrival{Target: api.StepSummary, Return: api.ReturnSuccess})
	if !d.ClearedState {
		t.Fatalf("success return must clear the draft")
	}
	if state.SessionID() == oldSession {
		t.Fatalf("success return must start a fresh session")
	}
	if d.Allowed {
		t.Fatalf("summary must not be reachable after the draft is cleared")
	}
	if d.RedirectTo != api.StepServices {
		t.Fatalf("expected redirect to step 1 after clearing, got %d", d.RedirectTo)
	}

	var sawCheckoutDone bool
	for _, ev := range d.Events {
		if ev.Kind == api.EventCheckoutDone && ev.SessionID == oldSession {
			sawCheckoutDone = true
		}
	}
	if !sawCheckoutDone {
		t.Fatalf("expected a checkout_completed event for the old session, got %+v", d.Events)
	}
}

func TestCheckoutCancelRehydratesFromStore(t *testing.T) {
	g, state, _ := newTestGuard(t)

	state.Update(func(fs *api.FormState) {
		fs.Selection = []string{"svc-a"}
		fs.AppendDocument("svc-a", api.DocumentRecord{Name: "uploaded-before-redirect.pdf"})
	})
	state.MarkComplete(1)

	d := g.Evaluate(context.Background(), api.Arrival{Target: api.StepDocuments, Return: api.ReturnCancel})
	if !d.Rehydrated {
		t.Fatalf("cancel return must rehydrate persisted state")
	}
	if !d.Allowed {
		t.Fatalf("documents step must stay reachable after rehydration")
	}
	if got := state.Get(); got.DocumentCount("svc-a") != 1 {
		t.Fatalf("rehydration must preserve persisted documents, got %+v", got.Documents)
	}
}

func TestUnknownStepRedirectsToStart(t *testing.T) {
	g, _, _ := newTestGuard(t)

	d := g.Evaluate(context.Background(), api.Arrival{Target: 42})
	if d.Allowed || d.RedirectTo != 1 {
		t.Fatalf("unknown step must redirect to step 1, got %+v", d)
	}
}

func TestEvaluationEmitsAtMostOneRedirect(t *testing.T) {
	g, state, _ := newTestGuard(t)
	state.MarkComplete(1)

	d := g.Evaluate(context.Background(), api.Arrival{Target: api.StepSummary})

	redirects := 0
	for _, ev := range d.Events {
		if ev.Kind == api.EventRedirected {
			redirects++
		}
	}
	if redirects != 1 {
		t.Fatalf("expected exactly one redirect event per evaluation, got %d", redirects)
	}
}
