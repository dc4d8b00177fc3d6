// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imagecodec

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/renpak/lib/failure"
)

// Reason is a machine-readable codec failure cause.
type Reason string

const (
	ReasonUnsupportedFormat Reason = "unsupported_format"
	ReasonDimensionOverflow Reason = "dimension_overflow"
	ReasonFrameMismatch     Reason = "frame_mismatch"
	ReasonFrameIndex        Reason = "frame_index"
	ReasonCorruptPayload    Reason = "corrupt_payload"
	ReasonColorPolicy       Reason = "color_policy"
	ReasonBackend           Reason = "backend"
)

// CodecError reports a failed encode or decode. It never accompanies
// substitute output: a call that returns a CodecError returns no
// pixels or bytes.
type CodecError struct {
	Reason Reason
	Op     string
	Err    error
}

func (e *CodecError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// codecError builds a CodecError wrapped in the Codec failure class.
func codecError(reason Reason, op string, format string, args ...any) error {
	return &failure.Error{
		Class: failure.Codec,
		Op:    op,
		Err:   &CodecError{Reason: reason, Op: op, Err: fmt.Errorf(format, args...)},
	}
}

// wrapBackend classifies an error returned by a backend.
func wrapBackend(op string, err error) error {
	var existing *CodecError
	if errors.As(err, &existing) {
		return err
	}
	return &failure.Error{
		Class: failure.Codec,
		Op:    op,
		Err:   &CodecError{Reason: ReasonBackend, Op: op, Err: err},
	}
}

// ReasonOf extracts the Reason from err, or "" when err is not a codec
// failure.
func ReasonOf(err error) Reason {
	var codecErr *CodecError
	if errors.As(err, &codecErr) {
		return codecErr.Reason
	}
	return ""
}
