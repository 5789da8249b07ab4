package errors

import (
	"context"
)

// Tracker reports errors to an external service (Sentry, or noop when
// tracking is off). Implementations must be safe for concurrent runs.
type Tracker interface {
	CaptureError(ctx context.Context, err error, tags map[string]string) error
	CaptureMessage(ctx context.Context, message string, level Level, tags map[string]string) error
	// AddBreadcrumb records a step leading up to a later error
	AddBreadcrumb(ctx context.Context, message string, category string, level Level, data map[string]interface{})
	Flush(ctx context.Context) error
}

// Level is the severity of a captured event
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

func (l Level) String() string { return string(l) }

// Tag keys shared by every tracker event from a workflow run
const (
	TagComponent = "component"
	TagRunID     = "run_id"
	TagBrand     = "brand"
	TagStep      = "step"
)

// Tags is the tag set attached to a tracker event
type Tags map[string]string

// RunTags tags an event with the run it belongs to
func RunTags(component, runID, brand string) Tags {
	return Tags{TagComponent: component, TagRunID: runID, TagBrand: brand}
}

// With returns a copy of t with key set
func (t Tags) With(key, value string) Tags {
	out := make(Tags, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	out[key] = value
	return out
}
