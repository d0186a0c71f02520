package api

import (
	"context"
	"log/slog"
	"time"
)

// Observer receives callbacks from the wizard engine for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay navigation.
type Observer interface {
	// OnStepEntered is called when the guard allows entry to a step.
	OnStepEntered(ctx context.Context, sessionID string, step StepDefinition)

	// OnRedirect is called when the guard redirects an arrival.
	OnRedirect(ctx context.Context, sessionID string, target, redirectTo int, reason string)

	// OnStepCompleted is called when a step ordinal is added to the
	// completed set, including self-healing backfills.
	OnStepCompleted(ctx context.Context, sessionID string, ordinal int)

	// OnSyncCompleted is called after every remote upsert attempt, for
	// both successes and failures (err != nil).
	OnSyncCompleted(ctx context.Context, sessionID, recordID string, err error, duration time.Duration)

	// OnStorageFailure is called when a local keyed-store write fails.
	OnStorageFailure(ctx context.Context, key string, quotaExceeded bool, err error)

	// OnParamApplied is called when an external catalog parameter is
	// merged into the state.
	OnParamApplied(ctx context.Context, sessionID, param, itemID string)

	// OnLookupFailed is called when an external lookup (address,
	// time-zone, currency) degrades to manual entry or a stale value.
	OnLookupFailed(ctx context.Context, kind string, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnStepEntered(ctx context.Context, sessionID string, step StepDefinition) {}
func (NoopObserver) OnRedirect(ctx context.Context, sessionID string, target, redirectTo int, reason string) {
}
func (NoopObserver) OnStepCompleted(ctx context.Context, sessionID string, ordinal int) {}
func (NoopObserver) OnSyncCompleted(ctx context.Context, sessionID, recordID string, err error, d time.Duration) {
}
func (NoopObserver) OnStorageFailure(ctx context.Context, key string, quotaExceeded bool, err error) {
}
func (NoopObserver) OnParamApplied(ctx context.Context, sessionID, param, itemID string) {}
func (NoopObserver) OnLookupFailed(ctx context.Context, kind string, err error)          {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnStepEntered(ctx context.Context, sessionID string, step StepDefinition) {
	for _, o := range c.observers {
		o.OnStepEntered(ctx, sessionID, step)
	}
}

func (c *CompositeObserver) OnRedirect(ctx context.Context, sessionID string, target, redirectTo int, reason string) {
	for _, o := range c.observers {
		o.OnRedirect(ctx, sessionID, target, redirectTo, reason)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, sessionID string, ordinal int) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, sessionID, ordinal)
	}
}

func (c *CompositeObserver) OnSyncCompleted(ctx context.Context, sessionID, recordID string, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnSyncCompleted(ctx, sessionID, recordID, err, d)
	}
}

func (c *CompositeObserver) OnStorageFailure(ctx context.Context, key string, quotaExceeded bool, err error) {
	for _, o := range c.observers {
		o.OnStorageFailure(ctx, key, quotaExceeded, err)
	}
}

func (c *CompositeObserver) OnParamApplied(ctx context.Context, sessionID, param, itemID string) {
	for _, o := range c.observers {
		o.OnParamApplied(ctx, sessionID, param, itemID)
	}
}

func (c *CompositeObserver) OnLookupFailed(ctx context.Context, kind string, err error) {
	for _, o := range c.observers {
		o.OnLookupFailed(ctx, kind, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs wizard lifecycle events
// using the provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnStepEntered(ctx context.Context, sessionID string, step StepDefinition) {
	o.Logger.InfoContext(ctx, "step_entered",
		slog.String("session_id", sessionID),
		slog.String("step", step.Name),
		slog.Int("ordinal", step.Ordinal),
	)
}

func (o *LoggingObserver) OnRedirect(ctx context.Context, sessionID string, target, redirectTo int, reason string) {
	o.Logger.InfoContext(ctx, "redirect",
		slog.String("session_id", sessionID),
		slog.Int("target", target),
		slog.Int("redirect_to", redirectTo),
		slog.String("reason", reason),
	)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, sessionID string, ordinal int) {
	o.Logger.DebugContext(ctx, "step_completed",
		slog.String("session_id", sessionID),
		slog.Int("ordinal", ordinal),
	)
}

func (o *LoggingObserver) OnSyncCompleted(ctx context.Context, sessionID, recordID string, err error, d time.Duration) {
	if err != nil {
		o.Logger.WarnContext(ctx, "sync_failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
			slog.Duration("duration", d),
		)
		return
	}
	o.Logger.DebugContext(ctx, "sync_completed",
		slog.String("session_id", sessionID),
		slog.String("record_id", recordID),
		slog.Duration("duration", d),
	)
}

func (o *LoggingObserver) OnStorageFailure(ctx context.Context, key string, quotaExceeded bool, err error) {
	o.Logger.ErrorContext(ctx, "storage_failure",
		slog.String("key", key),
		slog.Bool("quota_exceeded", quotaExceeded),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnParamApplied(ctx context.Context, sessionID, param, itemID string) {
	o.Logger.InfoContext(ctx, "param_applied",
		slog.String("session_id", sessionID),
		slog.String("param", param),
		slog.String("item_id", itemID),
	)
}

func (o *LoggingObserver) OnLookupFailed(ctx context.Context, kind string, err error) {
	o.Logger.WarnContext(ctx, "lookup_failed",
		slog.String("kind", kind),
		slog.Any("error", err),
	)
}
