// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build cgo

// librenpak-rt is the runtime decoder shared library loaded by the
// game's hook. Build with:
//
//	go build -buildmode=c-shared -o librenpak-rt.so ./cmd/librenpak-rt
//
// The exported functions are declared in renpak_rt.h. Frame buffers
// come from the C allocator and must be returned through
// renpak_free_buffer.
package main

/*
#include <stdlib.h>
#include <string.h>
#include "renpak_rt.h"
*/
import "C"

import (
	"unsafe"

	"github.com/bureau-foundation/renpak/lib/rtabi"
)

// cAllocator hands out malloc'd memory so the host can hold frame
// buffers independently of the Go heap.
type cAllocator struct{}

func (cAllocator) Allocate(size int) (rtabi.Buffer, bool) {
	if size <= 0 {
		return rtabi.Buffer{}, false
	}
	pointer := C.malloc(C.size_t(size))
	if pointer == nil {
		return rtabi.Buffer{}, false
	}
	return rtabi.Buffer{
		Data: unsafe.Slice((*byte)(pointer), size),
		Addr: uintptr(pointer),
	}, true
}

func (cAllocator) Release(buffer rtabi.Buffer) {
	C.free(unsafe.Pointer(unsafe.SliceData(buffer.Data)))
}

var table = rtabi.NewTable(cAllocator{})

func status(s rtabi.Status) C.int32_t { return C.int32_t(s) }

//export renpak_rt_abi_version
func renpak_rt_abi_version() C.uint32_t {
	return C.uint32_t(rtabi.ABIVersion)
}

//export renpak_open
func renpak_open(data *C.uint8_t, length C.size_t, outHandle *C.uint64_t) C.int32_t {
	if data == nil || outHandle == nil || length == 0 {
		return status(rtabi.StatusNullArgument)
	}
	payload := unsafe.Slice((*byte)(unsafe.Pointer(data)), int(length))
	handle, result := table.Open(payload)
	if result == rtabi.StatusOK {
		*outHandle = C.uint64_t(handle)
	}
	return status(result)
}

//export renpak_frame_info
func renpak_frame_info(handle C.uint64_t, out *C.renpak_info) C.int32_t {
	if out == nil {
		return status(rtabi.StatusNullArgument)
	}
	info, result := table.Info(uint64(handle))
	if result != rtabi.StatusOK {
		return status(result)
	}
	out.width = C.uint32_t(info.Width)
	out.height = C.uint32_t(info.Height)
	out.frame_count = C.uint32_t(info.FrameCount)
	out.sequence = boolean(info.Sequence)
	out.lossless = boolean(info.Lossless)
	return status(rtabi.StatusOK)
}

//export renpak_decode_frame
func renpak_decode_frame(handle C.uint64_t, index C.uint32_t, out *C.renpak_frame) C.int32_t {
	if out == nil {
		return status(rtabi.StatusNullArgument)
	}
	frame, result := table.DecodeFrame(uint64(handle), int(index))
	return fill(out, frame, result)
}

//export renpak_decode_frame_png
func renpak_decode_frame_png(handle C.uint64_t, index C.uint32_t, out *C.renpak_frame) C.int32_t {
	if out == nil {
		return status(rtabi.StatusNullArgument)
	}
	frame, result := table.DecodeFramePNG(uint64(handle), int(index))
	return fill(out, frame, result)
}

//export renpak_free_buffer
func renpak_free_buffer(frame *C.renpak_frame) C.int32_t {
	if frame == nil {
		return status(rtabi.StatusNullArgument)
	}
	result := table.FreeBuffer(uint64(frame.owner), uint64(frame.token), uintptr(unsafe.Pointer(frame.data)))
	if result == rtabi.StatusOK {
		frame.data = nil
		frame.len = 0
	}
	return status(result)
}

//export renpak_close
func renpak_close(handle C.uint64_t) C.int32_t {
	return status(table.Close(uint64(handle)))
}

func fill(out *C.renpak_frame, frame rtabi.Frame, result rtabi.Status) C.int32_t {
	if result != rtabi.StatusOK {
		C.memset(unsafe.Pointer(out), 0, C.sizeof_renpak_frame)
		return status(result)
	}
	out.data = (*C.uint8_t)(unsafe.Pointer(unsafe.SliceData(frame.Buffer.Data)))
	out.len = C.size_t(len(frame.Buffer.Data))
	out.width = C.uint32_t(frame.Width)
	out.height = C.uint32_t(frame.Height)
	out.stride = C.uint32_t(frame.Stride)
	out.format = C.uint32_t(frame.Format)
	out.owner = C.uint64_t(frame.Owner)
	out.token = C.uint64_t(frame.Token)
	return status(rtabi.StatusOK)
}

func boolean(value bool) C.uint32_t {
	if value {
		return 1
	}
	return 0
}

func main() {}
