// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rtabi

import (
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/renpak/lib/imagecodec"
)

// Format is the pixel layout of a returned frame buffer.
type Format uint32

const (
	// FormatRGBA8 is straight (non-premultiplied) 8-bit RGBA, rows
	// Stride bytes apart.
	FormatRGBA8 Format = 1

	// FormatPNG is a complete PNG file.
	FormatPNG Format = 2
)

// Frame describes a decoded buffer. Owner and Token identify it for
// FreeBuffer; the host must not alter them.
type Frame struct {
	Buffer Buffer
	Width  int
	Height int
	Stride int
	Format Format
	Owner  uint64
	Token  uint64
}

// Info describes an open payload.
type Info struct {
	Width      int
	Height     int
	FrameCount int
	Sequence   bool
	Lossless   bool
}

// Table maps opaque handles to decode contexts. Contexts share nothing
// but the allocator; the table lock is held only to find or remove a
// context, never while decoding.
type Table struct {
	allocator Allocator

	mu       sync.Mutex
	next     uint64
	contexts map[uint64]*decodeContext
}

// NewTable returns an empty table whose buffers come from allocator.
func NewTable(allocator Allocator) *Table {
	return &Table{allocator: allocator, contexts: make(map[uint64]*decodeContext)}
}

// decodeContext is one open payload. busy admits a single decode or
// close at a time; mu guards the buffer ledger, which FreeBuffer may
// touch while a decode runs.
type decodeContext struct {
	handle  uint64
	decoder *imagecodec.Decoder
	busy    atomic.Bool

	mu          sync.Mutex
	outstanding map[uint64]Buffer
	nextToken   uint64
}

// Open copies payload, validates it, and returns a new handle. Handles
// are never reused.
func (t *Table) Open(payload []byte) (uint64, Status) {
	if len(payload) == 0 {
		return 0, StatusNullArgument
	}
	owned := make([]byte, len(payload))
	copy(owned, payload)
	decoder, err := imagecodec.Open(owned)
	if err != nil {
		return 0, StatusBadPayload
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.contexts[t.next] = &decodeContext{
		handle:      t.next,
		decoder:     decoder,
		outstanding: make(map[uint64]Buffer),
	}
	return t.next, StatusOK
}

func (t *Table) lookup(handle uint64) (*decodeContext, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ctx, ok := t.contexts[handle]
	return ctx, ok
}

// issued reports whether handle was ever returned by Open.
func (t *Table) issued(handle uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return handle != 0 && handle <= t.next
}

// Info describes the payload behind handle.
func (t *Table) Info(handle uint64) (Info, Status) {
	ctx, ok := t.lookup(handle)
	if !ok {
		return Info{}, StatusBadHandle
	}
	info := ctx.decoder.Info()
	return Info{
		Width:      info.Width,
		Height:     info.Height,
		FrameCount: info.FrameCount(),
		Sequence:   info.Kind == imagecodec.PayloadSequence,
		Lossless:   info.Lossless,
	}, StatusOK
}

// DecodeFrame decodes frame index into a fresh RGBA buffer. Any index
// costs at most one keyframe decode plus one body decode.
func (t *Table) DecodeFrame(handle uint64, index int) (Frame, Status) {
	return t.decode(handle, index, FormatRGBA8)
}

// DecodeFramePNG decodes frame index and returns it as a PNG file.
func (t *Table) DecodeFramePNG(handle uint64, index int) (Frame, Status) {
	return t.decode(handle, index, FormatPNG)
}

func (t *Table) decode(handle uint64, index int, format Format) (Frame, Status) {
	ctx, ok := t.lookup(handle)
	if !ok {
		return Frame{}, StatusBadHandle
	}
	if !ctx.busy.CompareAndSwap(false, true) {
		return Frame{}, StatusBusy
	}
	defer ctx.busy.Store(false)

	if index < 0 || index >= ctx.decoder.Info().FrameCount() {
		return Frame{}, StatusFrameIndex
	}
	img, err := ctx.decoder.DecodeFrame(index)
	if err != nil {
		if imagecodec.ReasonOf(err) == imagecodec.ReasonFrameIndex {
			return Frame{}, StatusFrameIndex
		}
		return Frame{}, StatusDecode
	}
	width, height := img.Rect.Dx(), img.Rect.Dy()

	var (
		contents []byte
		stride   int
	)
	switch format {
	case FormatPNG:
		contents, err = imagecodec.EncodePNG(img)
		if err != nil {
			return Frame{}, StatusDecode
		}
	default:
		stride = width * 4
		contents = packRows(img.Pix, img.Stride, stride, height)
	}

	buffer, ok := t.allocator.Allocate(len(contents))
	if !ok {
		return Frame{}, StatusAlloc
	}
	copy(buffer.Data, contents)

	ctx.mu.Lock()
	ctx.nextToken++
	token := ctx.nextToken
	ctx.outstanding[token] = buffer
	ctx.mu.Unlock()

	return Frame{
		Buffer: buffer,
		Width:  width,
		Height: height,
		Stride: stride,
		Format: format,
		Owner:  handle,
		Token:  token,
	}, StatusOK
}

// packRows returns pixel rows without inter-row padding.
func packRows(pix []byte, sourceStride, rowBytes, rows int) []byte {
	if sourceStride == rowBytes {
		return pix[:rowBytes*rows]
	}
	packed := make([]byte, rowBytes*rows)
	for y := 0; y < rows; y++ {
		copy(packed[y*rowBytes:(y+1)*rowBytes], pix[y*sourceStride:])
	}
	return packed
}

// FreeBuffer releases a buffer returned by DecodeFrame or
// DecodeFramePNG. addr is the buffer address the host holds; zero
// means the host no longer has it, which is only valid for a buffer
// already released. A buffer of a closed context can only have been
// released already, since Close refuses while buffers are outstanding.
func (t *Table) FreeBuffer(owner, token uint64, addr uintptr) Status {
	ctx, ok := t.lookup(owner)
	if !ok {
		if t.issued(owner) && token != 0 {
			return StatusDoubleFree
		}
		return StatusForeignBuffer
	}

	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if token == 0 || token > ctx.nextToken {
		return StatusForeignBuffer
	}
	buffer, outstanding := ctx.outstanding[token]
	if !outstanding {
		return StatusDoubleFree
	}
	if addr == 0 {
		return StatusNullArgument
	}
	if addr != buffer.Addr {
		return StatusForeignBuffer
	}
	delete(ctx.outstanding, token)
	t.allocator.Release(buffer)
	return StatusOK
}

// Close releases the context behind handle. It fails while buffers
// are outstanding or another thread is decoding, leaving the handle
// open.
func (t *Table) Close(handle uint64) Status {
	ctx, ok := t.lookup(handle)
	if !ok {
		return StatusBadHandle
	}
	if !ctx.busy.CompareAndSwap(false, true) {
		return StatusBusy
	}
	ctx.mu.Lock()
	outstanding := len(ctx.outstanding)
	ctx.mu.Unlock()
	if outstanding > 0 {
		ctx.busy.Store(false)
		return StatusBuffersOutstanding
	}

	t.mu.Lock()
	delete(t.contexts, handle)
	t.mu.Unlock()
	ctx.decoder.Close()
	return StatusOK
}

// Outstanding returns the number of unreleased buffers for handle, or
// -1 for an unknown handle.
func (t *Table) Outstanding(handle uint64) int {
	ctx, ok := t.lookup(handle)
	if !ok {
		return -1
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return len(ctx.outstanding)
}

// Len returns the number of open handles.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.contexts)
}
