// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rtabi

import "sync/atomic"

// Buffer is one allocation handed across the boundary. Data views the
// allocation; Addr identifies it to the host and is what the host
// passes back on release.
type Buffer struct {
	Data []byte
	Addr uintptr
}

// Allocator supplies the memory frame buffers are written into. The
// shared library uses the C allocator so the host can read buffers
// without the Go runtime's involvement; Go hosts and tests use
// HeapAllocator.
type Allocator interface {
	// Allocate returns a buffer of exactly size bytes, or false when
	// the allocation fails.
	Allocate(size int) (Buffer, bool)

	// Release returns a buffer obtained from Allocate.
	Release(Buffer)
}

// HeapAllocator allocates from the Go heap. Addr is a synthetic
// identifier, unique per allocation.
type HeapAllocator struct {
	next atomic.Uint64
}

// Allocate implements Allocator.
func (h *HeapAllocator) Allocate(size int) (Buffer, bool) {
	if size < 0 {
		return Buffer{}, false
	}
	return Buffer{Data: make([]byte, size), Addr: uintptr(h.next.Add(1))}, true
}

// Release implements Allocator. The garbage collector reclaims the
// memory.
func (h *HeapAllocator) Release(Buffer) {}
