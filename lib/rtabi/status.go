// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rtabi

import "fmt"

// Status is the int32 result of every ABI call. Zero is success;
// failures are negative so a host can test "< 0".
type Status int32

const (
	StatusOK                 Status = 0
	StatusNullArgument       Status = -1
	StatusBadPayload         Status = -2
	StatusBadHandle          Status = -3
	StatusFrameIndex         Status = -4
	StatusDecode             Status = -5
	StatusAlloc              Status = -6
	StatusDoubleFree         Status = -7
	StatusBusy               Status = -8
	StatusBuffersOutstanding Status = -9
	StatusForeignBuffer      Status = -10
)

var statusNames = map[Status]string{
	StatusOK:                 "ok",
	StatusNullArgument:       "null argument",
	StatusBadPayload:         "bad payload",
	StatusBadHandle:          "bad handle",
	StatusFrameIndex:         "frame index out of range",
	StatusDecode:             "decode failed",
	StatusAlloc:              "allocation failed",
	StatusDoubleFree:         "buffer already released",
	StatusBusy:               "handle in use by another thread",
	StatusBuffersOutstanding: "buffers still outstanding",
	StatusForeignBuffer:      "buffer not issued by this library",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Err returns nil for StatusOK and an error carrying s otherwise, for
// Go callers that prefer error values.
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	return &StatusError{Status: s}
}

// StatusError is a non-OK Status as an error.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("renpak runtime: %s (%d)", e.Status, int32(e.Status))
}
