package api

import (
	"errors"
	"fmt"
)

// PredicateFunc decides whether a step is complete for the given state.
//
// Predicates must be pure: the guard calls them speculatively on every
// navigation, so they may not mutate state or perform I/O.
type PredicateFunc func(FormState) bool

// StepDefinition describes one wizard step.
type StepDefinition struct {
	// Ordinal is the 1-based position of the step in the graph.
	Ordinal int

	// Name is a short identifier used in logs and events.
	Name string

	// Path is the URL path the step is served under.
	Path string

	// IsComplete reports whether the step's requirements are satisfied.
	IsComplete PredicateFunc
}

// Graph is an ordered, fixed list of wizard steps.
//
// Graphs are immutable after construction; they carry no mutable state and
// are safe for concurrent use.
type Graph struct {
	steps []StepDefinition
}

// NewGraph validates and builds a Graph from step definitions.
// Ordinals must be contiguous starting at 1 and paths must be unique.
func NewGraph(steps ...StepDefinition) (*Graph, error) {
	if len(steps) < 2 {
		return nil, errors.New("graph must have at least two steps")
	}
	paths := make(map[string]struct{}, len(steps))
	for i, s := range steps {
		if s.Ordinal != i+1 {
			return nil, fmt.Errorf("step %q has ordinal %d, want %d", s.Name, s.Ordinal, i+1)
		}
		if s.Name == "" {
			return nil, fmt.Errorf("step at ordinal %d has no name", s.Ordinal)
		}
		if s.Path == "" {
			return nil, fmt.Errorf("step %q has no path", s.Name)
		}
		if s.IsComplete == nil {
			return nil, fmt.Errorf("step %q has no completion predicate", s.Name)
		}
		if _, dup := paths[s.Path]; dup {
			return nil, fmt.Errorf("duplicate step path %q", s.Path)
		}
		paths[s.Path] = struct{}{}
	}
	return &Graph{steps: append([]StepDefinition(nil), steps...)}, nil
}

// Len returns the number of steps.
func (g *Graph) Len() int { return len(g.steps) }

// Step returns the step with the given ordinal.
func (g *Graph) Step(ordinal int) (StepDefinition, bool) {
	if ordinal < 1 || ordinal > len(g.steps) {
		return StepDefinition{}, false
	}
	return g.steps[ordinal-1], true
}

// ByPath returns the step served under the given URL path.
func (g *Graph) ByPath(path string) (StepDefinition, bool) {
	for _, s := range g.steps {
		if s.Path == path {
			return s, true
		}
	}
	return StepDefinition{}, false
}

// Terminal returns the last step of the graph.
func (g *Graph) Terminal() StepDefinition {
	return g.steps[len(g.steps)-1]
}

// Steps returns a copy of all step definitions in order.
func (g *Graph) Steps() []StepDefinition {
	return append([]StepDefinition(nil), g.steps...)
}

// FirstIncomplete evaluates the predicates of steps 1..n-1 in order and
// returns the ordinal of the first step whose predicate fails, or 0 when
// every non-terminal step is complete.
func (g *Graph) FirstIncomplete(fs FormState) int {
	for _, s := range g.steps[:len(g.steps)-1] {
		if !s.IsComplete(fs) {
			return s.Ordinal
		}
	}
	return 0
}
