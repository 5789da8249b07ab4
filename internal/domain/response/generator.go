package response

import "context"

// Generator produces candidate responses and next actions.
// Failures are reported as errors.ErrGenerationUnavailable.
type Generator interface {
	Generate(ctx context.Context, in Input) (Plan, error)
}
