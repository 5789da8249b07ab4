package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"brandpulse/pkg/errors"
)

// flushTimeout bounds how long Flush waits for queued events
const flushTimeout = 2 * time.Second

// maxBreadcrumbs keeps enough history for one full workflow run
const maxBreadcrumbs = 50

// Tracker reports to Sentry. Each event gets its own scope so tags from
// concurrent runs never mix.
type Tracker struct {
	hub *sentry.Hub
}

// New initializes the Sentry SDK and returns a tracker on its hub
func New(dsn, environment, release string) (*Tracker, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:            dsn,
		Environment:    environment,
		Release:        release,
		MaxBreadcrumbs: maxBreadcrumbs,
	})
	if err != nil {
		return nil, errors.Wrap(err, "sentry init")
	}
	return &Tracker{hub: sentry.CurrentHub()}, nil
}

// CaptureError sends err. When the tags identify a workflow run they are
// also grouped under a "workflow" context.
func (t *Tracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	if err == nil {
		return nil
	}
	t.scoped(ctx, tags, func(hub *sentry.Hub, scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		hub.CaptureException(err)
	})
	return nil
}

// CaptureMessage sends a plain message at level
func (t *Tracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	t.scoped(ctx, tags, func(hub *sentry.Hub, scope *sentry.Scope) {
		scope.SetLevel(convertLevel(level))
		hub.CaptureMessage(message)
	})
	return nil
}

// AddBreadcrumb records a step on the shared hub
func (t *Tracker) AddBreadcrumb(ctx context.Context, message string, category string, level errors.Level, data map[string]interface{}) {
	t.hubFor(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     convertLevel(level),
		Data:      data,
		Timestamp: time.Now(),
	}, nil)
}

// Flush waits for queued events. Sentry reports a timeout as false.
func (t *Tracker) Flush(ctx context.Context) error {
	timeout := flushTimeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	if !t.hub.Flush(timeout) {
		return errors.Wrap(errors.ErrTimeout, "sentry flush")
	}
	return nil
}

// hubFor prefers a hub carried by ctx (set by sentry middleware)
func (t *Tracker) hubFor(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return t.hub
}

func (t *Tracker) scoped(ctx context.Context, tags map[string]string, fn func(*sentry.Hub, *sentry.Scope)) {
	hub := t.hubFor(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		if runID := tags[errors.TagRunID]; runID != "" {
			scope.SetContext("workflow", sentry.Context{
				errors.TagRunID: runID,
				errors.TagBrand: tags[errors.TagBrand],
				errors.TagStep:  tags[errors.TagStep],
			})
		}
		fn(hub, scope)
	})
}

func convertLevel(level errors.Level) sentry.Level {
	switch level {
	case errors.LevelDebug:
		return sentry.LevelDebug
	case errors.LevelWarning:
		return sentry.LevelWarning
	case errors.LevelError:
		return sentry.LevelError
	case errors.LevelFatal:
		return sentry.LevelFatal
	default:
		return sentry.LevelInfo
	}
}
