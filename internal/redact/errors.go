package redact

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/redactor/internal/privacy"
)

// ErrApply marks a mask that could not be registered or burned in.
var ErrApply = errors.New("redaction apply failed")

// ApplyError reports a failure to redact one item.
type ApplyError struct {
	Page     int
	Category privacy.Category
	Err      error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("redact %s on page %d: %v", e.Category, e.Page, e.Err)
}

func (e *ApplyError) Unwrap() []error { return []error{ErrApply, e.Err} }
