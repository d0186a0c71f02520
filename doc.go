// Package stepgate provides an embeddable multi-step intake wizard engine
// for Go.
//
// Stepgate is designed for backend services that drive a user through an
// ordered sequence of form steps — pick services, upload documents, choose
// delivery, enter contact details, confirm — with recoverable drafts,
// guarded navigation, and background replication to a remote record. It runs
// fully in Go, supports in-memory and SQLite persistence, and integrates
// cleanly into existing codebases.
//
// # Core Concepts
//
// The programming model is intentionally small and idiomatic:
//
//  1. Wizard
//  2. Graph
//  3. Guarded navigation
//  4. Form state
//  5. Background sync
//
// # Wizard
//
// The Wizard is the single entry point. It owns one form-state container,
// one step graph and one background syncer, and provides APIs to:
//   - evaluate arrivals at steps (Navigate)
//   - perform forward transitions with prerequisites (Advance)
//   - ingest URL query parameters (ApplyQuery)
//   - attach and remove documents
//   - compute and format totals
//   - hand off to a payment provider (BeginCheckout)
//
// Wizards can persist drafts in different backings:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability, see NewSQLiteBundle)
//
// All state mutation is funneled through the wizard; concurrent callers such
// as upload completions and geocode responses are serialized against the
// latest committed state, so no update can clobber another.
//
// # Graph
//
// A Graph is an immutable, ordered set of steps. Each step carries a route
// path and a completion predicate computed from the form state alone.
// DefaultIntakeGraph returns the standard five-step intake flow; GraphBuilder
// defines custom flows:
//
//	graph := stepgate.NewGraphBuilder().
//	    Step("plan", "/plan", planComplete).
//	    Step("confirm", "/confirm", confirmComplete).
//	    MustBuild()
//
// # Guarded navigation
//
// Every arrival is evaluated against the completed-steps set: step k is
// reachable iff step k-1 is completed (step 1 is always reachable, and the
// terminal step additionally requires every earlier step). Unreachable
// arrivals redirect — at most once per evaluation — to the most advanced
// permitted step. An unreachable terminal step attempts data-driven
// recovery: the wizard re-derives progress from the answers themselves,
// redirecting to the first step whose predicate fails or self-healing the
// completed set when every predicate already holds.
//
// # Form state
//
// The draft lives in a keyed store (in-memory or SQLite) and survives
// process restarts under a stable session id. Writes are optimistic: a
// failed store write keeps the in-memory draft intact and notifies
// subscribers, so the flow keeps working when storage is full.
//
// # Background sync
//
// Changes are replicated to a remote record through a debounced background
// syncer; one record per session, updated idempotently. Step transitions and
// checkout force an awaited sync first, so downstream consumers (account
// provisioning, payment sessions) always see the latest answers.
//
// # Summary
//
// Stepgate's goal is to give Go developers an intake-flow engine that feels
// like Go: easy to embed, easy to test, deterministic, and without
// operational overhead. The Wizard drives the flow, the Graph defines it,
// the guard keeps URLs honest, and the syncer keeps the remote record fresh.
//
// For examples, see the /examples directory or the project README.
package stepgate
