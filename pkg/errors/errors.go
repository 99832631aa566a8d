// Package errors provides error wrapping utilities and the pipeline's
// error-class taxonomy for context-aware error messages.
package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context information.
// If err is nil, it returns nil without wrapping.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Class is a short, stable error-class tag stored alongside volume and
// product rows so an operator can see what kind of failure happened
// without parsing the long message.
type Class string

const (
	ClassTransient       Class = "TRANSIENT"
	ClassChecksumMismatch Class = "CHECKSUM_MISMATCH"
	ClassFileNotFound    Class = "FILE_NOT_FOUND"
	ClassGeometryMismatch Class = "GEOMETRY_MISMATCH"
	ClassIO              Class = "IO_ERROR"
	ClassDecoder         Class = "DECODER_ERROR"
	ClassReadError       Class = "READ_ERROR"
	ClassStandardize     Class = "STANDARDIZE"
	ClassPlot            Class = "PLOT"
	ClassFatal           Class = "FATAL"
)

// Classified is an error tagged with one of the Class values above. Workers
// never let an item-level error propagate out of their loop; they convert
// it to a Classified error and store ClassOf(err)/Error() in the owning row.
type Classified struct {
	class Class
	err   error
}

// New creates a Classified error wrapping err under the given class.
func New(class Class, err error) *Classified {
	return &Classified{class: class, err: err}
}

func (c *Classified) Error() string {
	if c.err == nil {
		return string(c.class)
	}
	return fmt.Sprintf("%s: %v", c.class, c.err)
}

func (c *Classified) Unwrap() error { return c.err }

// ClassOf returns the error class, defaulting to ClassFatal for an error
// that was never classified.
func ClassOf(err error) Class {
	var classified *Classified
	if errors.As(err, &classified) {
		return classified.class
	}
	return ClassFatal
}

// Is supports errors.Is(err, errors.ErrIO) style matching by class: any
// *Classified target carrying the same class matches.
func (c *Classified) Is(target error) bool {
	other, ok := target.(*Classified)
	if !ok {
		return false
	}
	return c.class == other.class
}

// Sentinel markers usable with errors.Is for the most common classes.
var (
	ErrNotFound          = New(ClassFileNotFound, nil)
	ErrChecksumMismatch  = New(ClassChecksumMismatch, nil)
	ErrGeometryMismatch  = New(ClassGeometryMismatch, nil)
	ErrIO                = New(ClassIO, nil)
)
