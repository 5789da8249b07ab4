package workflow

import (
	"strings"
	"unicode/utf8"

	"brandpulse/pkg/errors"
)

// Request bounds and defaults
const (
	MinBrandLength      = 2
	MaxBrandLength      = 80
	MinDocuments        = 3
	MaxDocuments        = 25
	DefaultMaxDocuments = 10
	MinDaysBack         = 1
	MaxDaysBack         = 30
	DefaultDaysBack     = 7
)

// Request is the inbound analysis request. Zero numeric fields take defaults.
type Request struct {
	Brand        string `json:"brand_name"`
	MaxDocuments int    `json:"max_documents,omitempty"`
	DaysBack     int    `json:"days_back,omitempty"`
}

// Normalize trims the brand and fills defaults, returning a copy
func (r Request) Normalize() Request {
	r.Brand = strings.TrimSpace(r.Brand)
	if r.MaxDocuments == 0 {
		r.MaxDocuments = DefaultMaxDocuments
	}
	if r.DaysBack == 0 {
		r.DaysBack = DefaultDaysBack
	}
	return r
}

// Validate checks declared bounds. The returned error matches errors.ErrInvalidRequest.
func (r Request) Validate() error {
	var errs errors.ValidationErrors

	if n := utf8.RuneCountInString(r.Brand); n < MinBrandLength || n > MaxBrandLength {
		errs = append(errs, errors.NewValidationError("brand_name", "must be 2..80 characters", r.Brand))
	}
	if r.MaxDocuments < MinDocuments || r.MaxDocuments > MaxDocuments {
		errs = append(errs, errors.NewValidationError("max_documents", "must be 3..25", r.MaxDocuments))
	}
	if r.DaysBack < MinDaysBack || r.DaysBack > MaxDaysBack {
		errs = append(errs, errors.NewValidationError("days_back", "must be 1..30", r.DaysBack))
	}

	return errs.ToError()
}
