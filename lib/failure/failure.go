// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package failure

import (
	"context"
	"errors"
	"fmt"
)

// Class categorizes a failure by how the caller must react to it.
type Class uint8

const (
	// Unclassified is the zero value. Errors that never passed through
	// a component boundary report this class.
	Unclassified Class = iota
	Format
	Codec
	IO
	Cache
	FFIContract
)

// String returns the lowercase class name used in logs and CLI output.
func (c Class) String() string {
	switch c {
	case Format:
		return "format"
	case Codec:
		return "codec"
	case IO:
		return "io"
	case Cache:
		return "cache"
	case FFIContract:
		return "ffi_contract"
	default:
		return "unclassified"
	}
}

// Error attaches a class, the failed operation, and the affected path
// (an entry name or a file path) to an underlying error.
type Error struct {
	Class Class
	Op    string
	Path  string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s %s: %s error", e.Op, e.Path, e.Class)
	default:
		return fmt.Sprintf("%s: %s error", e.Op, e.Class)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given class. Returns nil when err is nil so
// call sites can wrap unconditionally.
func New(class Class, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Class: class, Op: op, Path: path, Err: err}
}

// Formatf builds a Format error from a message.
func Formatf(op, path, format string, args ...any) error {
	return &Error{Class: Format, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// ClassOf returns the class of the outermost classified error in the
// chain, or Unclassified.
func ClassOf(err error) Class {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Class
	}
	return Unclassified
}

// Is reports whether err carries the given class anywhere in its chain.
func Is(err error, class Class) bool {
	for err != nil {
		var classified *Error
		if !errors.As(err, &classified) {
			return false
		}
		if classified.Class == class {
			return true
		}
		err = classified.Err
	}
	return false
}

// Process exit codes for cmd/renpak.
const (
	ExitOK         = 0
	ExitUsage      = 1
	ExitFormat     = 2
	ExitCodec      = 3
	ExitIO         = 4
	ExitIncomplete = 5
)

// ExitCode maps err to a process exit code. Cancellation takes
// precedence over the class so an interrupted build always reports
// ExitIncomplete.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ExitIncomplete
	}
	switch ClassOf(err) {
	case Format:
		return ExitFormat
	case Codec:
		return ExitCodec
	case IO:
		return ExitIO
	default:
		return ExitUsage
	}
}
