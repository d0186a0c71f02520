package stepgate

import (
	"fmt"

	"github.com/stepgate/stepgate/pkg/api"
)

// GraphBuilder provides a fluent API for defining custom step graphs:
//
//	graph, err := stepgate.NewGraphBuilder().
//	    Step("plan", "/plan", planComplete).
//	    Step("billing", "/billing", billingComplete).
//	    Step("confirm", "/confirm", confirmComplete).
//	    Build()
//
// Ordinals are assigned in declaration order, starting at 1; the last step
// declared is the terminal step.
type GraphBuilder struct {
	steps []api.StepDefinition
}

// NewGraphBuilder creates an empty graph builder.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{}
}

// Step appends a step with the given name, route path and completion
// predicate.
func (b *GraphBuilder) Step(name, path string, isComplete PredicateFunc) *GraphBuilder {
	if name == "" {
		panic("stepgate: step name must not be empty")
	}
	if isComplete == nil {
		panic(fmt.Sprintf("stepgate: step %q has nil completion predicate", name))
	}

	b.steps = append(b.steps, api.StepDefinition{
		Ordinal:    len(b.steps) + 1,
		Name:       name,
		Path:       path,
		IsComplete: isComplete,
	})
	return b
}

// Len returns the number of steps declared so far.
func (b *GraphBuilder) Len() int {
	return len(b.steps)
}

// Build validates the declared steps and returns the immutable graph.
func (b *GraphBuilder) Build() (*Graph, error) {
	return api.NewGraph(b.steps...)
}

// MustBuild is like Build but panics on error. Useful for initialization in
// main().
func (b *GraphBuilder) MustBuild() *Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
