package api

import "testing"

func always(FormState) bool { return true }
func never(FormState) bool  { return false }

func TestNewGraphValidatesOrdinals(t *testing.T) {
	_, err := NewGraph(
		StepDefinition{Ordinal: 1, Name: "a", Path: "/a", IsComplete: always},
		StepDefinition{Ordinal: 3, Name: "b", Path: "/b", IsComplete: always},
	)
	if err == nil {
		t.Fatalf("expected non-contiguous ordinals to be rejected")
	}
}

func TestNewGraphRejectsDuplicatePaths(t *testing.T) {
	_, err := NewGraph(
		StepDefinition{Ordinal: 1, Name: "a", Path: "/same", IsComplete: always},
		StepDefinition{Ordinal: 2, Name: "b", Path: "/same", IsComplete: always},
	)
	if err == nil {
		t.Fatalf("expected duplicate paths to be rejected")
	}
}

func TestGraphLookups(t *testing.T) {
	g, err := NewGraph(
		StepDefinition{Ordinal: 1, Name: "a", Path: "/a", IsComplete: always},
		StepDefinition{Ordinal: 2, Name: "b", Path: "/b", IsComplete: never},
	)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	if step, ok := g.Step(2); !ok || step.Name != "b" {
		t.Fatalf("Step(2) = %+v (%v)", step, ok)
	}
	if _, ok := g.Step(3); ok {
		t.Fatalf("Step(3) must not exist")
	}
	if step, ok := g.ByPath("/a"); !ok || step.Ordinal != 1 {
		t.Fatalf("ByPath(/a) = %+v (%v)", step, ok)
	}
	if g.Terminal().Ordinal != 2 {
		t.Fatalf("unexpected terminal %+v", g.Terminal())
	}
}

func TestFirstIncomplete(t *testing.T) {
	g, _ := NewGraph(
		StepDefinition{Ordinal: 1, Name: "a", Path: "/a", IsComplete: always},
		StepDefinition{Ordinal: 2, Name: "b", Path: "/b", IsComplete: never},
		StepDefinition{Ordinal: 3, Name: "c", Path: "/c", IsComplete: always},
	)

	if got := g.FirstIncomplete(FormState{}); got != 2 {
		t.Fatalf("expected first failing predicate 2, got %d", got)
	}
}

func TestDefaultIntakePredicates(t *testing.T) {
	g := DefaultIntakeGraph()

	fs := FormState{}
	if got := g.FirstIncomplete(fs); got != StepServices {
		t.Fatalf("blank state: expected services incomplete, got %d", got)
	}

	fs.Selection = []string{"itm-1"}
	if got := g.FirstIncomplete(fs); got != StepDocuments {
		t.Fatalf("no documents: expected documents incomplete, got %d", got)
	}

	// Every selected item needs at least one document.
	fs.Selection = []string{"itm-1", "itm-2"}
	fs.Documents = map[string][]DocumentRecord{"itm-1": {{Name: "a.pdf"}}}
	if got := g.FirstIncomplete(fs); got != StepDocuments {
		t.Fatalf("partial documents: expected documents incomplete, got %d", got)
	}

	fs.Documents["itm-2"] = []DocumentRecord{{Name: "b.pdf"}}
	fs.Delivery = DeliveryPostal
	if got := g.FirstIncomplete(fs); got != StepContact {
		t.Fatalf("expected contact incomplete, got %d", got)
	}

	// Unauthenticated contacts need a valid email and a password.
	fs.Contact = Contact{Name: "Alice", Address: "Somewhere 1", Email: "not-an-email", Password: "pw"}
	if got := g.FirstIncomplete(fs); got != StepContact {
		t.Fatalf("invalid email: expected contact incomplete, got %d", got)
	}

	fs.Contact.Email = "alice@example.com"
	if got := g.FirstIncomplete(fs); got != 0 {
		t.Fatalf("expected every predicate to hold, got %d", got)
	}

	// Authenticated contacts skip the credential checks.
	fs.Contact = Contact{Name: "Alice", Address: "Somewhere 1", Authenticated: true}
	if got := g.FirstIncomplete(fs); got != 0 {
		t.Fatalf("authenticated contact: expected every predicate to hold, got %d", got)
	}
}
