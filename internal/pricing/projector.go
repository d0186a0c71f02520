// Package pricing derives displayable totals from the price catalog, with a
// synchronous cached formatting path that never blocks rendering and an
// asynchronous authoritative path that corrects it.
package pricing

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/stepgate/stepgate/pkg/api"
)

type cacheKey struct {
	amountMinor int64
	currency    string
}

type cacheEntry struct {
	value string

	// authoritative entries come from the async conversion path and are
	// never overwritten by estimates, so displayed values cannot regress.
	authoritative bool
}

// Projector memoizes formatted (amount, currency) pairs.
//
// FormatSync returns the best currently-cached value immediately, falling
// back to the source currency when no conversion is known yet. FormatAsync
// fetches the authoritative rate and pins the corrected string: every later
// FormatSync for the same pair returns that exact value until the currency
// changes.
type Projector struct {
	conv   api.Converter
	source string
	obs    api.Observer

	mu     sync.Mutex
	target string
	cache  map[cacheKey]cacheEntry
}

// NewProjector creates a Projector. source is the catalog's native currency;
// a nil observer defaults to NoopObserver.
func NewProjector(conv api.Converter, source string, obs api.Observer) *Projector {
	if obs == nil {
		obs = api.NoopObserver{}
	}
	return &Projector{
		conv:   conv,
		source: source,
		obs:    obs,
		target: source,
		cache:  make(map[cacheKey]cacheEntry),
	}
}

// SetCurrency switches the display currency. Changing currency invalidates
// every cached conversion; setting the same currency is a no-op.
func (p *Projector) SetCurrency(code string) {
	if code == "" {
		code = p.source
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if code == p.target {
		return
	}
	p.target = code
	p.cache = make(map[cacheKey]cacheEntry)
}

// Currency returns the current display currency.
func (p *Projector) Currency() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

// FormatSync returns the best currently-cached formatted value. It never
// performs I/O.
func (p *Projector) FormatSync(amountMinor int64) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.target == p.source {
		return Format(amountMinor, p.source)
	}

	key := cacheKey{amountMinor: amountMinor, currency: p.target}
	if e, ok := p.cache[key]; ok {
		return e.value
	}

	if rate, ok := p.conv.CachedRate(p.source, p.target); ok {
		converted := int64(math.Round(float64(amountMinor) * rate))
		value := Format(converted, p.target)
		p.cache[key] = cacheEntry{value: value}
		return value
	}

	// No conversion known yet: show the source currency rather than
	// blocking or guessing.
	return Format(amountMinor, p.source)
}

// FormatAsync fetches the authoritative conversion, updates the cache and
// returns the corrected string. On conversion failure it degrades to the
// sync value and reports the error.
func (p *Projector) FormatAsync(ctx context.Context, amountMinor int64) (string, error) {
	p.mu.Lock()
	target := p.target
	if target == p.source {
		p.mu.Unlock()
		return Format(amountMinor, p.source), nil
	}
	key := cacheKey{amountMinor: amountMinor, currency: target}
	if e, ok := p.cache[key]; ok && e.authoritative {
		p.mu.Unlock()
		return e.value, nil
	}
	p.mu.Unlock()

	converted, err := p.conv.Convert(ctx, amountMinor, p.source, target)
	if err != nil {
		p.obs.OnLookupFailed(ctx, "currency", err)
		return p.FormatSync(amountMinor), err
	}

	value := Format(converted, target)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.target != target {
		// The currency changed while the fetch was in flight; the
		// result is stale and must not touch the new cache.
		return value, nil
	}
	p.cache[key] = cacheEntry{value: value, authoritative: true}
	return value, nil
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// zeroDecimalCurrencies have no minor unit.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
}

// Format renders an amount in minor units as a display string, e.g.
// Format(12345, "USD") == "$123.45" and Format(500, "SEK") == "SEK 5.00".
func Format(amountMinor int64, currency string) string {
	if zeroDecimalCurrencies[currency] {
		if sym, ok := currencySymbols[currency]; ok {
			return fmt.Sprintf("%s%d", sym, amountMinor)
		}
		return fmt.Sprintf("%s %d", currency, amountMinor)
	}

	major := amountMinor / 100
	minor := amountMinor % 100
	if minor < 0 {
		minor = -minor
	}
	if sym, ok := currencySymbols[currency]; ok {
		return fmt.Sprintf("%s%d.%02d", sym, major, minor)
	}
	return fmt.Sprintf("%s %d.%02d", currency, major, minor)
}
