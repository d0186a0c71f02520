package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFormatSyncSourceCurrencyNeedsNoConversion(t *testing.T) {
	p := NewProjector(NewStaticConverter(nil), "USD", nil)

	if got := p.FormatSync(12345); got != "$123.45" {
		t.Fatalf("expected $123.45, got %q", got)
	}
}

func TestFormatSyncFallsBackToSourceWithoutRate(t *testing.T) {
	p := NewProjector(NewStaticConverter(nil), "USD", nil)
	p.SetCurrency("EUR")

	// No rate is known yet; the source-currency value is shown rather
	// than a guess.
	if got := p.FormatSync(10000); got != "$100.00" {
		t.Fatalf("expected source fallback $100.00, got %q", got)
	}
}

func TestAuthoritativeValueNeverRegresses(t *testing.T) {
	conv := NewStaticConverter(map[string]float64{"USD/EUR": 0.90})
	p := NewProjector(conv, "USD", nil)
	p.SetCurrency("EUR")

	got, err := p.FormatAsync(context.Background(), 10000)
	if err != nil {
		t.Fatalf("FormatAsync failed: %v", err)
	}
	if got != "€90.00" {
		t.Fatalf("expected €90.00, got %q", got)
	}

	// The cached rate changing must not disturb the pinned value.
	conv.SetRate("USD", "EUR", 0.95)
	for i := 0; i < 3; i++ {
		if got := p.FormatSync(10000); got != "€90.00" {
			t.Fatalf("sync call %d regressed authoritative value: %q", i, got)
		}
	}

	// A fresh amount uses the new estimate.
	if got := p.FormatSync(20000); got != "€190.00" {
		t.Fatalf("expected estimate €190.00 for new amount, got %q", got)
	}
}

func TestSetCurrencyInvalidatesCache(t *testing.T) {
	conv := NewStaticConverter(map[string]float64{
		"USD/EUR": 0.90,
		"USD/GBP": 0.80,
	})
	p := NewProjector(conv, "USD", nil)
	p.SetCurrency("EUR")

	if _, err := p.FormatAsync(context.Background(), 10000); err != nil {
		t.Fatalf("FormatAsync failed: %v", err)
	}

	p.SetCurrency("GBP")
	if got := p.FormatSync(10000); got != "£80.00" {
		t.Fatalf("expected £80.00 after currency switch, got %q", got)
	}

	// Switching back starts from a clean cache, no stale pins.
	conv.SetRate("USD", "EUR", 0.50)
	p.SetCurrency("EUR")
	if got := p.FormatSync(10000); got != "€50.00" {
		t.Fatalf("expected fresh estimate €50.00, got %q", got)
	}
}

func TestSetCurrencySameCodeKeepsCache(t *testing.T) {
	conv := NewStaticConverter(map[string]float64{"USD/EUR": 0.90})
	p := NewProjector(conv, "USD", nil)
	p.SetCurrency("EUR")

	if _, err := p.FormatAsync(context.Background(), 10000); err != nil {
		t.Fatalf("FormatAsync failed: %v", err)
	}
	conv.SetRate("USD", "EUR", 0.10)

	p.SetCurrency("EUR")
	if got := p.FormatSync(10000); got != "€90.00" {
		t.Fatalf("re-setting the same currency must keep the cache, got %q", got)
	}
}

type failingConverter struct{}

func (failingConverter) CachedRate(from, to string) (float64, bool) { return 0, false }
func (failingConverter) Convert(context.Context, int64, string, string) (int64, error) {
	return 0, errors.New("upstream down")
}

func TestFormatAsyncDegradesOnFailure(t *testing.T) {
	p := NewProjector(failingConverter{}, "USD", nil)
	p.SetCurrency("EUR")

	got, err := p.FormatAsync(context.Background(), 10000)
	if err == nil {
		t.Fatalf("expected the conversion error to surface")
	}
	if got != "$100.00" {
		t.Fatalf("expected degraded source value $100.00, got %q", got)
	}
}

func TestFormatZeroDecimalAndUnknownCurrencies(t *testing.T) {
	if got := Format(500, "JPY"); got != "¥500" {
		t.Fatalf("expected ¥500, got %q", got)
	}
	if got := Format(12345, "SEK"); got != "SEK 123.45" {
		t.Fatalf("expected SEK 123.45, got %q", got)
	}
}

func TestHTTPConverterCachesObservedRate(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("from") != "USD" || r.URL.Query().Get("to") != "EUR" {
			t.Errorf("unexpected pair: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(conversionResponse{Rate: 0.90, ConvertedAmount: 9000})
	}))
	defer srv.Close()

	conv := NewHTTPConverter(srv.URL, srv.Client())

	if _, ok := conv.CachedRate("USD", "EUR"); ok {
		t.Fatalf("expected no cached rate before the first fetch")
	}

	got, err := conv.Convert(context.Background(), 10000, "USD", "EUR")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if got != 9000 {
		t.Fatalf("expected 9000, got %d", got)
	}

	rate, ok := conv.CachedRate("USD", "EUR")
	if !ok || rate != 0.90 {
		t.Fatalf("expected cached rate 0.90, got %v (%v)", rate, ok)
	}
	if calls != 1 {
		t.Fatalf("expected one upstream call, got %d", calls)
	}
}

func TestHTTPConverterRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	conv := NewHTTPConverter(srv.URL, srv.Client())
	if _, err := conv.Convert(context.Background(), 100, "USD", "EUR"); err == nil {
		t.Fatalf("expected an error on non-200 status")
	}
}
