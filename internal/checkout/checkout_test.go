package checkout

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stepgate/stepgate/pkg/api"
)

func TestParseReturn(t *testing.T) {
	cases := []struct {
		raw  string
		want api.ReturnSignal
	}{
		{"checkout=success", api.ReturnSuccess},
		{"checkout=cancel", api.ReturnCancel},
		{"checkout=bogus", api.ReturnNone},
		{"", api.ReturnNone},
		{"service=apostille", api.ReturnNone},
	}
	for _, c := range cases {
		q, err := url.ParseQuery(c.raw)
		if err != nil {
			t.Fatalf("bad test query %q: %v", c.raw, err)
		}
		if got := ParseReturn(q); got != c.want {
			t.Errorf("ParseReturn(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestReturnURLsRoundTrip(t *testing.T) {
	base := "https://example.test/wizard/summary?service=apostille"

	su, err := url.Parse(SuccessURL(base))
	if err != nil {
		t.Fatalf("bad success URL: %v", err)
	}
	if got := ParseReturn(su.Query()); got != api.ReturnSuccess {
		t.Fatalf("success URL must parse back to ReturnSuccess, got %v", got)
	}
	if su.Query().Get("service") != "apostille" {
		t.Fatalf("existing parameters must survive, got %q", su.RawQuery)
	}

	cu, err := url.Parse(CancelURL(base))
	if err != nil {
		t.Fatalf("bad cancel URL: %v", err)
	}
	if got := ParseReturn(cu.Query()); got != api.ReturnCancel {
		t.Fatalf("cancel URL must parse back to ReturnCancel, got %v", got)
	}
}

func TestMemorySessionCreator(t *testing.T) {
	c := &MemorySessionCreator{}

	sess, err := c.Create(context.Background(), api.Snapshot{SessionID: "s-1", TotalMinor: 4200})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !strings.HasPrefix(sess.RedirectURL, "https://checkout.invalid/session/") {
		t.Fatalf("unexpected redirect URL %q", sess.RedirectURL)
	}
	if got := c.Created(); len(got) != 1 || got[0].SessionID != "s-1" {
		t.Fatalf("expected the snapshot to be recorded, got %+v", got)
	}
}

func TestMemorySessionCreatorRejectsEmptyTotal(t *testing.T) {
	c := &MemorySessionCreator{}
	if _, err := c.Create(context.Background(), api.Snapshot{SessionID: "s-1"}); err == nil {
		t.Fatalf("expected an error for a non-positive total")
	}
}
