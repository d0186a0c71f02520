// Package resolver ingests URL query parameters (preselected service,
// currency, ad-click id) and merges them into the form state exactly once
// per distinct parameter value, using normalized matching against the
// remotely-loaded catalog.
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/stepgate/stepgate/internal/formstate"
	"github.com/stepgate/stepgate/pkg/api"
)

// Query parameter names recognized by IngestQuery.
const (
	ParamService  = "service"
	ParamCurrency = "currency"
	ParamAdClick  = "adclid"
)

// fieldExtractor probes one candidate identity field of a catalog item.
// The slice order is the documented matching precedence.
type fieldExtractor struct {
	name string
	get  func(api.Item) string
}

var extractors = []fieldExtractor{
	{"slug", func(it api.Item) string { return it.Slug }},
	{"code", func(it api.Item) string { return it.Code }},
	{"key", func(it api.Item) string { return it.Key }},
	{"urlKey", func(it api.Item) string { return it.URLKey }},
	{"name", func(it api.Item) string { return it.Name }},
	{"id", func(it api.Item) string { return it.ID }},
}

// Resolver applies external catalog hints to the form state.
type Resolver struct {
	catalog api.CatalogService
	state   *formstate.Container
	obs     api.Observer
}

// New creates a Resolver. A nil observer defaults to NoopObserver.
func New(catalog api.CatalogService, state *formstate.Container, obs api.Observer) *Resolver {
	if obs == nil {
		obs = api.NoopObserver{}
	}
	return &Resolver{catalog: catalog, state: state, obs: obs}
}

// IngestQuery merges recognized query parameters into the form state.
// The service parameter goes through catalog matching; currency and
// ad-click id are copied into the commerce section. It reports whether a
// service hint was applied (in which case the caller should admit the
// documents step directly).
//
// Multi-value service parameters are treated as independent single matches;
// each successful application wholly replaces the selection, so the last
// matching value wins.
func (r *Resolver) IngestQuery(ctx context.Context, query url.Values) (applied bool, events []api.OutboundEvent, err error) {
	if code := strings.ToUpper(strings.TrimSpace(query.Get(ParamCurrency))); code != "" {
		if r.state.CurrencyPreference() != code {
			r.state.SetCurrencyPreference(code)
		}
	}
	if click := strings.TrimSpace(query.Get(ParamAdClick)); click != "" {
		if r.state.Get().Commerce.AdClickID != click {
			r.state.Update(func(fs *api.FormState) {
				fs.Commerce.AdClickID = click
			})
		}
	}

	for _, raw := range query[ParamService] {
		for _, value := range strings.Split(raw, ",") {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			ok, evs, applyErr := r.Apply(ctx, value)
			events = append(events, evs...)
			if applyErr != nil {
				return applied, events, applyErr
			}
			applied = applied || ok
		}
	}
	return applied, events, nil
}

// Apply matches one service parameter value against the catalog and, on
// success, wholly replaces the selection, marks step 1 complete and records
// the parameter so re-applications of the same value are no-ops.
func (r *Resolver) Apply(ctx context.Context, param string) (bool, []api.OutboundEvent, error) {
	if r.state.Get().Meta.LastAppliedParam == param {
		return false, nil, nil
	}

	items, err := r.catalog.Items(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("resolver: load catalog: %w", err)
	}

	matched, conflicts := match(items, param)
	if matched == nil {
		return false, nil, nil
	}

	var events []api.OutboundEvent
	session := r.state.SessionID()
	if conflicts > 1 {
		// More than one catalog entry matched; only the first is
		// applied, never a silent merge of several selections.
		events = append(events, api.NewEvent(api.EventParamConflict, session, map[string]string{
			"param":   param,
			"matches": strconv.Itoa(conflicts),
			"applied": matched.ID,
		}))
		r.obs.OnLookupFailed(ctx, "catalog-param-conflict",
			fmt.Errorf("parameter %q matched %d catalog entries, applied %q", param, conflicts, matched.ID))
	}

	item := *matched
	r.state.Update(func(fs *api.FormState) {
		redundant := fs.SelectionEquals([]string{item.ID}) && fs.HasAnyDocument()
		fs.Selection = []string{item.ID}
		if !redundant {
			// A genuinely new selection starts with a clean document
			// slate; a redundant re-application must not destroy
			// in-progress uploads.
			fs.Documents = nil
		}
		fs.Meta.LastAppliedParam = param
	})
	r.state.MarkComplete(1)

	events = append(events, api.NewEvent(api.EventParamApplied, session, map[string]string{
		"param":   param,
		"item_id": item.ID,
	}))
	r.obs.OnParamApplied(ctx, session, param, item.ID)
	return true, events, nil
}

// match finds the catalog entry for the normalized target. Exact matches
// always win over prefix matches; within a pass, candidate fields are probed
// in precedence order and the first matching item is returned together with
// the total number of distinct matching items in that tier.
func match(items []api.Item, param string) (*api.Item, int) {
	target := normalize(param)
	if target == "" {
		return nil, 0
	}

	exact := func(candidate string) bool { return candidate == target }
	prefix := func(candidate string) bool {
		return candidate == target || strings.HasPrefix(candidate, target+"-")
	}

	for _, matches := range []func(string) bool{exact, prefix} {
		var first *api.Item
		seen := make(map[string]struct{})
		for _, ext := range extractors {
			for i := range items {
				candidate := normalize(ext.get(items[i]))
				if candidate == "" || !matches(candidate) {
					continue
				}
				if _, dup := seen[items[i].ID]; dup {
					continue
				}
				seen[items[i].ID] = struct{}{}
				if first == nil {
					first = &items[i]
				}
			}
		}
		if first != nil {
			return first, len(seen)
		}
	}
	return nil, 0
}
