// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Same logical data always
// produces identical bytes, which the cache relies on when it hashes
// encoded parameter fingerprints.
var encMode cbor.EncMode

// decMode is the CBOR decoder. Unknown fields are ignored so an older
// reader can open a payload header written by a newer encoder that
// only added fields; incompatible changes bump the envelope version
// instead.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// renpak never uses non-string map keys; any-typed targets
		// decode to map[string]any so they interoperate with
		// encoding/json in diagnostics output.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Payload headers are small. Bound nesting and lengths so a
		// corrupt or hostile payload cannot make the decoder allocate
		// without limit.
		MaxNestedLevels:  16,
		MaxArrayElements: 1 << 20,
		MaxMapPairs:      1 << 16,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for
// data. `renpak payload --cbor` uses it to show envelope headers.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
