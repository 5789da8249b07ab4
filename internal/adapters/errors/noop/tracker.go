package noop

import (
	"context"
	"sync/atomic"

	"brandpulse/pkg/errors"
)

// Tracker stands in when error tracking is disabled. It only counts what
// it was asked to capture.
type Tracker struct {
	errs atomic.Int64
	msgs atomic.Int64
}

func New() *Tracker { return &Tracker{} }

func (t *Tracker) CaptureError(context.Context, error, map[string]string) error {
	t.errs.Add(1)
	return nil
}

func (t *Tracker) CaptureMessage(context.Context, string, errors.Level, map[string]string) error {
	t.msgs.Add(1)
	return nil
}

func (t *Tracker) AddBreadcrumb(context.Context, string, string, errors.Level, map[string]interface{}) {
}

func (t *Tracker) Flush(context.Context) error { return nil }

// Captured is the number of CaptureError calls
func (t *Tracker) Captured() int { return int(t.errs.Load()) }

// Messages is the number of CaptureMessage calls
func (t *Tracker) Messages() int { return int(t.msgs.Load()) }
