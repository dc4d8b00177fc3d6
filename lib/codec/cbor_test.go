// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type sampleFingerprint struct {
	Backend string `cbor:"backend"`
	Quality int    `cbor:"quality"`
	Speed   int    `cbor:"speed"`
}

type sampleDual struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleFingerprint{Backend: "raw-zstd", Quality: 60, Speed: 8}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sampleFingerprint
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]int{"speed": 8, "quality": 60, "frames": 12}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestJSONTagFallback(t *testing.T) {
	data, err := Marshal(sampleDual{Width: 512, Height: 513})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	for _, want := range []string{`"width"`, "512", `"height"`, "513"} {
		if !strings.Contains(diagnostic, want) {
			t.Errorf("notation %q does not contain %s", diagnostic, want)
		}
	}
	if strings.Contains(diagnostic, "Width") {
		t.Errorf("json tags not honored: %s", diagnostic)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	data, err := Marshal(map[string]any{"backend": "avif", "quality": 70, "speed": 6, "future": true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sampleFingerprint
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Backend != "avif" || decoded.Quality != 70 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestAnyDecodesToStringMap(t *testing.T) {
	data, err := Marshal(map[string]any{"kind": "image"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := decoded.(map[string]any); !ok {
		t.Errorf("decoded type = %T, want map[string]any", decoded)
	}
}
