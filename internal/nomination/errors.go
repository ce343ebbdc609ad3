package nomination

import (
	"errors"
	"fmt"
)

// Sentinel errors used to classify failures across the pipeline.
var (
	ErrFetch   = errors.New("fetch failed")
	ErrParse   = errors.New("parse failed")
	ErrStorage = errors.New("storage failed")
	ErrExport  = errors.New("export failed")
)

// FetchError reports a page that could not be retrieved.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetch, e.Err}
}

// ParseError reports an expected structural element that is absent or malformed.
type ParseError struct {
	Context string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Context, e.Reason)
}

// Unwrap returns ErrParse.
func (e *ParseError) Unwrap() error {
	return ErrParse
}

// ExportError reports an export destination that could not be written.
type ExportError struct {
	Destination string
	Err         error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export to %s: %v", e.Destination, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ExportError) Unwrap() []error {
	return []error{ErrExport, e.Err}
}

// StorageErrorf wraps err with ErrStorage and a short description of the operation.
func StorageErrorf(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
