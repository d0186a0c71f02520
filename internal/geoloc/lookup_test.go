package geoloc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stepgate/stepgate/pkg/api"
)

func TestResolveFreeText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Mannerheimintie 1" {
			t.Errorf("unexpected query %q", got)
		}
		_ = json.NewEncoder(w).Encode([]candidate{{
			FormattedAddress: "Mannerheimintie 1, 00100 Helsinki",
			City:             "Helsinki",
			PostalCode:       "00100",
			Country:          "FI",
			Lat:              60.17,
			Lon:              24.94,
			TimeZoneID:       "Europe/Helsinki",
		}})
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL, srv.Client())
	res, err := l.Resolve(context.Background(), api.AddressQuery{FreeText: "Mannerheimintie 1"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.City != "Helsinki" || res.TimeZoneID != "Europe/Helsinki" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestResolveCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") == "" || r.URL.Query().Get("lon") == "" {
			t.Errorf("expected coordinate parameters, got %q", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode([]candidate{{City: "Espoo", Country: "FI"}})
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL, srv.Client())
	res, err := l.Resolve(context.Background(), api.AddressQuery{Lat: 60.2, Long: 24.6, HasCoords: true})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.City != "Espoo" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestResolveNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL, srv.Client())
	_, err := l.Resolve(context.Background(), api.AddressQuery{FreeText: "nowhere"})
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestResolveEmptyQuery(t *testing.T) {
	l := NewHTTPLookup("http://unused", nil)
	if _, err := l.Resolve(context.Background(), api.AddressQuery{}); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch for empty query, got %v", err)
	}
}

func TestResolveServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL, srv.Client())
	if _, err := l.Resolve(context.Background(), api.AddressQuery{FreeText: "x"}); err == nil {
		t.Fatalf("expected an error on server failure")
	}
}
