package document

import (
	"errors"
	"fmt"
)

var (
	// ErrOpen marks failures to open or parse an input document.
	ErrOpen = errors.New("document open failed")
	// ErrPersist marks failures to write the output document.
	ErrPersist = errors.New("document persist failed")
	// ErrEncrypted is returned for password protected inputs.
	ErrEncrypted = errors.New("document is encrypted")
	// ErrPageRange is returned for page positions outside the document.
	ErrPageRange = errors.New("page index out of range")
	// ErrInvalidRect is returned when a redaction rectangle is empty,
	// non-finite or outside the page.
	ErrInvalidRect = errors.New("invalid redaction rectangle")
	// ErrClosed is returned for operations on a closed document.
	ErrClosed = errors.New("document is closed")
)

// OpenError describes an unreadable or corrupt input document.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() []error { return []error{ErrOpen, e.Err} }

// PersistError describes a failed final save.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() []error { return []error{ErrPersist, e.Err} }
