// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build cgo && libavif

package imagecodec

/*
#cgo pkg-config: libavif
#include <stdlib.h>
#include <string.h>
#include <avif/avif.h>

// renpak_avif_encode converts one RGBA plane to 4:4:4 YUV with the
// given CICP description and writes it as an AVIF still. On success
// *out holds encoder-owned bytes that must be released with
// avifRWDataFree.
static avifResult renpak_avif_encode(
	const uint8_t *pixels, uint32_t width, uint32_t height, uint32_t row_bytes,
	uint16_t primaries, uint16_t transfer, uint16_t matrix, int full_range,
	int quality, int speed, avifRWData *out)
{
	avifImage *image = avifImageCreate(width, height, 8, AVIF_PIXEL_FORMAT_YUV444);
	if (image == NULL) {
		return AVIF_RESULT_OUT_OF_MEMORY;
	}
	image->colorPrimaries = (avifColorPrimaries)primaries;
	image->transferCharacteristics = (avifTransferCharacteristics)transfer;
	image->matrixCoefficients = (avifMatrixCoefficients)matrix;
	image->yuvRange = full_range ? AVIF_RANGE_FULL : AVIF_RANGE_LIMITED;

	avifRGBImage rgb;
	avifRGBImageSetDefaults(&rgb, image);
	rgb.format = AVIF_RGB_FORMAT_RGBA;
	rgb.depth = 8;
	rgb.pixels = (uint8_t *)pixels;
	rgb.rowBytes = row_bytes;

	avifResult result = avifImageRGBToYUV(image, &rgb);
	if (result != AVIF_RESULT_OK) {
		avifImageDestroy(image);
		return result;
	}

	avifEncoder *encoder = avifEncoderCreate();
	if (encoder == NULL) {
		avifImageDestroy(image);
		return AVIF_RESULT_OUT_OF_MEMORY;
	}
	encoder->quality = quality;
	encoder->qualityAlpha = quality;
	encoder->speed = speed;
	encoder->maxThreads = 4;

	result = avifEncoderWrite(encoder, image, out);
	avifEncoderDestroy(encoder);
	avifImageDestroy(image);
	return result;
}

// renpak_avif_decode decodes an AVIF still into caller-provided RGBA
// memory of exactly width*height*4 bytes.
static avifResult renpak_avif_decode(
	avifDecoder *decoder, const uint8_t *data, size_t size,
	uint8_t *pixels, uint32_t width, uint32_t height)
{
	avifImage *image = avifImageCreateEmpty();
	if (image == NULL) {
		return AVIF_RESULT_OUT_OF_MEMORY;
	}
	avifResult result = avifDecoderReadMemory(decoder, image, data, size);
	if (result != AVIF_RESULT_OK) {
		avifImageDestroy(image);
		return result;
	}
	if (image->width != width || image->height != height) {
		avifImageDestroy(image);
		return AVIF_RESULT_INVALID_IMAGE_GRID;
	}

	avifRGBImage rgb;
	avifRGBImageSetDefaults(&rgb, image);
	rgb.format = AVIF_RGB_FORMAT_RGBA;
	rgb.depth = 8;
	rgb.pixels = pixels;
	rgb.rowBytes = width * 4;
	result = avifImageYUVToRGB(image, &rgb);
	avifImageDestroy(image);
	return result;
}
*/
import "C"

import (
	"fmt"
	"image"
	"unsafe"
)

// avifBackend encodes each plane as an AVIF still through libavif.
type avifBackend struct{}

func init() { register(avifBackend{}) }

func (avifBackend) Name() string    { return AVIFBackendName }
func (avifBackend) Version() string { return "libavif-" + C.GoString(C.avifVersion()) }
func (avifBackend) Lossless() bool  { return false }

func (avifBackend) NewEncoder(params Params, color ColorDescriptor) (PlaneEncoder, error) {
	return &avifEncoder{params: params, color: color}, nil
}

func (avifBackend) NewDecoder() (PlaneDecoder, error) {
	decoder := C.avifDecoderCreate()
	if decoder == nil {
		return nil, fmt.Errorf("avifDecoderCreate failed")
	}
	return &avifDecoder{decoder: decoder}, nil
}

type avifEncoder struct {
	params Params
	color  ColorDescriptor
}

func (e *avifEncoder) Encode(plane *image.NRGBA) ([]byte, error) {
	width, height := plane.Rect.Dx(), plane.Rect.Dy()
	pixels := C.CBytes(plane.Pix[:height*plane.Stride])
	defer C.free(pixels)

	fullRange := C.int(0)
	if e.color.FullRange {
		fullRange = 1
	}

	var output C.avifRWData
	result := C.renpak_avif_encode(
		(*C.uint8_t)(pixels), C.uint32_t(width), C.uint32_t(height), C.uint32_t(plane.Stride),
		C.uint16_t(e.color.Primaries), C.uint16_t(e.color.Transfer), C.uint16_t(e.color.Matrix), fullRange,
		C.int(e.params.Quality), C.int(e.params.Speed), &output,
	)
	defer C.avifRWDataFree(&output)
	if result != C.AVIF_RESULT_OK {
		return nil, fmt.Errorf("libavif encode: %s", C.GoString(C.avifResultToString(result)))
	}
	return C.GoBytes(unsafe.Pointer(output.data), C.int(output.size)), nil
}

func (e *avifEncoder) Close() error { return nil }

type avifDecoder struct {
	decoder *C.avifDecoder
}

func (d *avifDecoder) Decode(body []byte, width, height int) (*image.NRGBA, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("empty AVIF body")
	}
	data := C.CBytes(body)
	defer C.free(data)
	pixels := C.malloc(C.size_t(width * height * 4))
	if pixels == nil {
		return nil, fmt.Errorf("allocating %dx%d RGBA", width, height)
	}
	defer C.free(pixels)

	result := C.renpak_avif_decode(d.decoder, (*C.uint8_t)(data), C.size_t(len(body)),
		(*C.uint8_t)(pixels), C.uint32_t(width), C.uint32_t(height))
	if result != C.AVIF_RESULT_OK {
		return nil, fmt.Errorf("libavif decode: %s", C.GoString(C.avifResultToString(result)))
	}

	plane := image.NewNRGBA(image.Rect(0, 0, width, height))
	copy(plane.Pix, unsafe.Slice((*byte)(pixels), width*height*4))
	return plane, nil
}

func (d *avifDecoder) Close() error {
	if d.decoder != nil {
		C.avifDecoderDestroy(d.decoder)
		d.decoder = nil
	}
	return nil
}
