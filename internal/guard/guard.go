// Package guard implements the navigation state machine: given the set of
// previously completed steps, it decides on every route change whether the
// requested step is reachable and where to redirect otherwise.
package guard

import (
	"context"
	"strconv"

	"github.com/stepgate/stepgate/internal/formstate"
	"github.com/stepgate/stepgate/pkg/api"
)

// Guard evaluates arrivals against the step graph and the completed-steps
// set. Evaluation performs at most one redirect per call and never throws:
// every check is a pure read, so it is safe to re-run on every render.
type Guard struct {
	graph *api.Graph
	state *formstate.Container
	obs   api.Observer
}

// New creates a Guard. A nil observer defaults to NoopObserver.
func New(graph *api.Graph, state *formstate.Container, obs api.Observer) *Guard {
	if obs == nil {
		obs = api.NoopObserver{}
	}
	return &Guard{graph: graph, state: state, obs: obs}
}

// Evaluate runs the guard algorithm for one arrival.
//
//  1. A cancelled checkout return rehydrates persisted state first, so a
//     provider redirect that raced an unflushed write cannot lose documents.
//  2. A success return clears the draft unconditionally; paid drafts must
//     never resurrect.
//  3. Reachability: step k is reachable iff k = 1, or step k-1 is completed,
//     or k is the terminal step and every step 1..n-1 is completed.
//  4. An unreachable terminal step attempts data-driven recovery: redirect
//     to the first step whose predicate fails, or self-heal the completed
//     set when every predicate already holds.
//  5. Any other unreachable step redirects to max(completed)+1.
func (g *Guard) Evaluate(ctx context.Context, arr api.Arrival) api.Decision {
	var d api.Decision

	switch arr.Return {
	case api.ReturnCancel:
		// Ignore a rehydration error; the in-memory draft remains the
		// best available state and the wizard must stay usable.
		if err := g.state.Rehydrate(); err == nil {
			d.Rehydrated = true
		}
	case api.ReturnSuccess:
		session := g.state.SessionID()
		g.state.Clear()
		d.ClearedState = true
		d.Events = append(d.Events, api.NewEvent(api.EventCheckoutDone, session, nil))
	}

	step, ok := g.graph.Step(arr.Target)
	if !ok {
		return g.redirect(ctx, d, arr.Target, 1, "unknown step")
	}

	if g.reachable(arr.Target) {
		return g.allow(ctx, d, step)
	}

	if arr.Target == g.graph.Terminal().Ordinal {
		fs := g.state.Get()
		if failed := g.graph.FirstIncomplete(fs); failed != 0 {
			return g.redirect(ctx, d, arr.Target, failed, "summary recovery: step "+strconv.Itoa(failed)+" incomplete")
		}
		// Every predicate holds despite the incomplete set: backfill
		// and allow entry.
		for _, ord := range g.state.Backfill(g.graph.Len() - 1) {
			g.obs.OnStepCompleted(ctx, g.state.SessionID(), ord)
		}
		d.Healed = true
		return g.allow(ctx, d, step)
	}

	next := g.state.MaxCompleted() + 1
	if next > g.graph.Len() {
		next = g.graph.Len()
	}
	return g.redirect(ctx, d, arr.Target, next, "step not yet reachable")
}

func (g *Guard) reachable(target int) bool {
	if target == 1 {
		return true
	}
	if g.state.IsCompleted(target - 1) {
		return true
	}
	if target == g.graph.Terminal().Ordinal {
		for ord := 1; ord < g.graph.Len(); ord++ {
			if !g.state.IsCompleted(ord) {
				return false
			}
		}
		return true
	}
	return false
}

func (g *Guard) allow(ctx context.Context, d api.Decision, step api.StepDefinition) api.Decision {
	session := g.state.SessionID()
	d.Allowed = true
	d.Events = append(d.Events, api.NewEvent(api.EventStepEntered, session, map[string]string{
		"step": step.Name,
	}))
	g.obs.OnStepEntered(ctx, session, step)
	return d
}

func (g *Guard) redirect(ctx context.Context, d api.Decision, target, to int, reason string) api.Decision {
	session := g.state.SessionID()
	d.Allowed = false
	d.RedirectTo = to
	d.Events = append(d.Events, api.NewEvent(api.EventRedirected, session, map[string]string{
		"target":      strconv.Itoa(target),
		"redirect_to": strconv.Itoa(to),
		"reason":      reason,
	}))
	g.obs.OnRedirect(ctx, session, target, to, reason)
	return d
}
