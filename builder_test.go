package stepgate

import (
	"testing"
)

func TestGraphBuilderAssignsOrdinals(t *testing.T) {
	always := func(FormState) bool { return true }

	g, err := NewGraphBuilder().
		Step("plan", "/plan", always).
		Step("billing", "/billing", always).
		Step("confirm", "/confirm", always).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if g.Len() != 3 {
		t.Fatalf("expected 3 steps, got %d", g.Len())
	}
	if g.Terminal().Name != "confirm" {
		t.Fatalf("expected confirm terminal, got %q", g.Terminal().Name)
	}
	step, ok := g.Step(2)
	if !ok || step.Name != "billing" || step.Path != "/billing" {
		t.Fatalf("unexpected step 2: %+v (%v)", step, ok)
	}
}

func TestGraphBuilderRejectsDuplicatePaths(t *testing.T) {
	always := func(FormState) bool { return true }

	_, err := NewGraphBuilder().
		Step("a", "/same", always).
		Step("b", "/same", always).
		Build()
	if err == nil {
		t.Fatalf("expected duplicate paths to be rejected")
	}
}

func TestGraphBuilderPanicsOnEmptyName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for an empty step name")
		}
	}()
	NewGraphBuilder().Step("", "/x", func(FormState) bool { return true })
}

func TestGraphBuilderPanicsOnNilPredicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for a nil predicate")
		}
	}()
	NewGraphBuilder().Step("x", "/x", nil)
}
