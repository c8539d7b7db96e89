package video

import (
	"errors"
	"fmt"
)

// Sentinel errors for video package operations.
// These errors enable reliable error classification using errors.Is().

// Composition errors. Both are frame-level: the stream keeps going.
var (
	// ErrSizeMismatch indicates the color and mask regions differ in size,
	// or the source frame cannot be split into two equal regions.
	ErrSizeMismatch = errors.New("composition size mismatch")

	// ErrProcessingFailed indicates pixel data could not be read or written.
	ErrProcessingFailed = errors.New("composition processing failed")
)

// ErrRegionInvariant is the panic value class for frames handed to the
// splitter that violate the two-region layout. It signals a caller bug.
var ErrRegionInvariant = errors.New("source frame violates two-region layout")

var errNilFrame = errors.New("nil frame")

// Scaling errors.
var (
	// ErrInvalidDimensions indicates a zero or negative target size.
	ErrInvalidDimensions = errors.New("invalid dimensions")
)

// CompositionError describes a failed frame composition.
//
// Kind is ErrSizeMismatch or ErrProcessingFailed; Err carries the cause.
// errors.Is matches both the kind and anything in the cause chain.
type CompositionError struct {
	Kind  error
	Frame int
	Err   error
}

func (e *CompositionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("frame %d: %v", e.Frame, e.Kind)
	}
	return fmt.Sprintf("frame %d: %v: %v", e.Frame, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *CompositionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func sizeMismatch(format string, args ...any) *CompositionError {
	return &CompositionError{Kind: ErrSizeMismatch, Frame: -1, Err: fmt.Errorf(format, args...)}
}

func processingFailed(cause error) *CompositionError {
	return &CompositionError{Kind: ErrProcessingFailed, Frame: -1, Err: cause}
}
