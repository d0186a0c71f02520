package resolver

import (
	"context"
	"net/url"
	"testing"

	"github.com/stepgate/stepgate/internal/catalog"
	"github.com/stepgate/stepgate/internal/formstate"
	"github.com/stepgate/stepgate/internal/keystore"
	"github.com/stepgate/stepgate/pkg/api"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Notarization of Signature ": "notarization-of-signature",
		"Käännös / Apostille":          "kaannos-apostille",
		"UPPER_case--slug":             "upper-case-slug",
		"émigré":                       "emigre",
		"":                             "",
		"---":                          "",
	}
	for in, want := range cases {
		if got := normalize(in); got != want {
			t.Fatalf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func testItems() []api.Item {
	return []api.Item{
		{ID: "itm-1", Slug: "notarization-of-signature", Name: "Notarization of Signature", BasePriceMinor: 3500},
		{ID: "itm-2", Slug: "apostille", Name: "Apostille", BasePriceMinor: 5000},
		{ID: "itm-3", Code: "NOTARY-COPY", Name: "Notarized Copy", BasePriceMinor: 2000},
	}
}

func newTestResolver(t *testing.T, items []api.Item) (*Resolver, *formstate.Container) {
	t.Helper()

	state, err := formstate.New(keystore.NewMemoryStore(0))
	if err != nil {
		t.Fatalf("formstate.New failed: %v", err)
	}
	svc := catalog.NewStaticService(items, nil)
	return New(svc, state, nil), state
}

func TestApplySelectsExactSlugMatch(t *testing.T) {
	r, state := newTestResolver(t, testItems())

	// Pre-existing unrelated selection must be wholly replaced.
	state.Update(func(fs *api.FormState) {
		fs.Selection = []string{"itm-2"}
	})

	applied, _, err := r.Apply(context.Background(), "notarization-of-signature")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !applied {
		t.Fatalf("expected the parameter to be applied")
	}

	got := state.Get()
	if !got.SelectionEquals([]string{"itm-1"}) {
		t.Fatalf("expected selection wholly replaced with itm-1, got %v", got.Selection)
	}
	if !state.IsCompleted(1) {
		t.Fatalf("expected step 1 to be marked complete")
	}
}

func TestApplyIsAtMostOncePerValue(t *testing.T) {
	r, state := newTestResolver(t, testItems())

	applied, _, err := r.Apply(context.Background(), "apostille")
	if err != nil || !applied {
		t.Fatalf("first Apply = (%v, %v), want applied", applied, err)
	}

	applied, _, err = r.Apply(context.Background(), "apostille")
	if err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}
	if applied {
		t.Fatalf("second application of the same value must be a no-op")
	}

	got := state.Get()
	if len(got.Selection) != 1 {
		t.Fatalf("re-application must never duplicate selection entries: %v", got.Selection)
	}
}

func TestApplyPrefersExactOverPrefix(t *testing.T) {
	items := []api.Item{
		{ID: "long", Slug: "apostille-express", Name: "Apostille Express"},
		{ID: "short", Slug: "apostille", Name: "Apostille"},
	}
	r, state := newTestResolver(t, items)

	applied, _, err := r.Apply(context.Background(), "apostille")
	if err != nil || !applied {
		t.Fatalf("Apply = (%v, %v), want applied", applied, err)
	}
	if got := state.Get(); !got.SelectionEquals([]string{"short"}) {
		t.Fatalf("exact match must win over prefix match, got %v", got.Selection)
	}
}

func TestApplyFallsBackToPrefixMatch(t *testing.T) {
	r, state := newTestResolver(t, []api.Item{
		{ID: "itm-x", Slug: "legalization-of-documents", Name: "Legalization"},
	})

	applied, _, err := r.Apply(context.Background(), "legalization")
	if err != nil || !applied {
		t.Fatalf("Apply = (%v, %v), want prefix fallback to apply", applied, err)
	}
	if got := state.Get(); !got.SelectionEquals([]string{"itm-x"}) {
		t.Fatalf("expected prefix match applied, got %v", got.Selection)
	}
}

func TestApplyConflictAppliesFirstAndWarns(t *testing.T) {
	items := []api.Item{
		{ID: "a", Slug: "duplicate"},
		{ID: "b", Code: "duplicate"},
	}
	r, state := newTestResolver(t, items)

	applied, events, err := r.Apply(context.Background(), "duplicate")
	if err != nil || !applied {
		t.Fatalf("Apply = (%v, %v), want applied", applied, err)
	}
	if got := state.Get(); !got.SelectionEquals([]string{"a"}) {
		t.Fatalf("only the first match may be applied, got %v", got.Selection)
	}

	var conflict bool
	for _, ev := range events {
		if ev.Kind == api.EventParamConflict {
			conflict = true
		}
	}
	if !conflict {
		t.Fatalf("expected a data-quality conflict event, got %+v", events)
	}
}

func TestRedundantReapplicationKeepsDocuments(t *testing.T) {
	r, state := newTestResolver(t, testItems())

	if _, _, err := r.Apply(context.Background(), "apostille"); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	state.Update(func(fs *api.FormState) {
		fs.AppendDocument("itm-2", api.DocumentRecord{Name: "in-progress.pdf"})
	})

	// Same item via a different parameter value: redundant for the
	// selection, so in-progress uploads survive.
	applied, _, err := r.Apply(context.Background(), "Apostille ")
	if err != nil || !applied {
		t.Fatalf("Apply = (%v, %v), want applied", applied, err)
	}
	if got := state.Get(); got.DocumentCount("itm-2") != 1 {
		t.Fatalf("redundant re-application must not destroy documents, got %+v", got.Documents)
	}

	// A genuinely different selection clears the slate.
	if _, _, err := r.Apply(context.Background(), "notarization-of-signature"); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got := state.Get(); got.HasAnyDocument() {
		t.Fatalf("new selection must start with a clean document slate, got %+v", got.Documents)
	}
}

func TestIngestQueryMergesCommerceParams(t *testing.T) {
	r, state := newTestResolver(t, testItems())

	query := url.Values{
		ParamService:  []string{"apostille"},
		ParamCurrency: []string{"eur"},
		ParamAdClick:  []string{"click-123"},
	}
	applied, _, err := r.IngestQuery(context.Background(), query)
	if err != nil {
		t.Fatalf("IngestQuery failed: %v", err)
	}
	if !applied {
		t.Fatalf("expected service hint to be applied")
	}

	got := state.Get()
	if got.Commerce.CurrencyCode != "EUR" {
		t.Fatalf("expected currency EUR, got %q", got.Commerce.CurrencyCode)
	}
	if got.Commerce.AdClickID != "click-123" {
		t.Fatalf("expected ad click id to be recorded, got %q", got.Commerce.AdClickID)
	}
}

func TestIngestQueryNoMatchIsNoop(t *testing.T) {
	r, state := newTestResolver(t, testItems())

	applied, _, err := r.IngestQuery(context.Background(), url.Values{ParamService: []string{"does-not-exist"}})
	if err != nil {
		t.Fatalf("IngestQuery failed: %v", err)
	}
	if applied {
		t.Fatalf("unmatched parameter must not be applied")
	}
	if got := state.Get(); len(got.Selection) != 0 {
		t.Fatalf("unmatched parameter must not touch the selection: %v", got.Selection)
	}
}
