// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/renpak/lib/imagecodec"
)

func testFingerprint(t *testing.T, params imagecodec.Params) Fingerprint {
	t.Helper()
	c, err := imagecodec.New(imagecodec.RawBackendName, params, imagecodec.StandardColor)
	if err != nil {
		t.Fatalf("imagecodec.New: %v", err)
	}
	return FingerprintOf(c, imagecodec.PayloadImage)
}

func mustKey(t *testing.T, content Hash, fingerprint Fingerprint) Hash {
	t.Helper()
	key, err := Key(content, fingerprint)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	return key
}

func openCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return c
}

func TestKeyDependsOnParametersNotName(t *testing.T) {
	content := ContentHash([]byte("identical source bytes"))
	base := testFingerprint(t, imagecodec.Params{Quality: 60, Speed: 8})
	baseKey := mustKey(t, content, base)

	if mustKey(t, ContentHash([]byte("identical source bytes")), base) != baseKey {
		t.Fatal("identical content and parameters produced different keys")
	}

	variants := map[string]Fingerprint{}
	quality := base
	quality.Quality = 61
	variants["quality"] = quality
	speed := base
	speed.Speed = 7
	variants["speed"] = speed
	backendVersion := base
	backendVersion.BackendVersion = "2"
	variants["backend version"] = backendVersion
	kind := base
	kind.Kind = imagecodec.PayloadSequence
	variants["kind"] = kind
	color := base
	color.Color.FullRange = false
	variants["color range"] = color
	envelope := base
	envelope.EnvelopeVersion++
	variants["envelope version"] = envelope

	for name, fingerprint := range variants {
		if mustKey(t, content, fingerprint) == baseKey {
			t.Errorf("changing %s did not change the key", name)
		}
	}
	if mustKey(t, ContentHash([]byte("other bytes")), base) == baseKey {
		t.Error("changing content did not change the key")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openCache(t)
	fingerprint := testFingerprint(t, imagecodec.DefaultParams)

	payloads := map[string][]byte{
		"empty":        {},
		"compressible": bytes.Repeat([]byte("renpak "), 4096),
		"random-ish":   noise(8192),
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			content := ContentHash([]byte(name))
			key := mustKey(t, content, fingerprint)
			if err := c.Put(key, content, fingerprint, payload); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, ok := c.Get(key, content, fingerprint)
			if !ok {
				t.Fatal("Get missed after Put")
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("Get returned %d bytes, want %d", len(got), len(payload))
			}
		})
	}

	stats := c.Stats()
	if stats.Hits != 3 || stats.Stores != 3 || stats.Misses != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPathLayout(t *testing.T) {
	c := openCache(t)
	key := ContentHash([]byte("k"))
	path := c.Path(key)
	rel, err := filepath.Rel(c.Directory(), path)
	if err != nil {
		t.Fatalf("Rel: %v", err)
	}
	want := filepath.Join(key.String()[:2], key.String()+FileExtension)
	if rel != want {
		t.Errorf("relative path = %q, want %q", rel, want)
	}
}

func TestGetMissing(t *testing.T) {
	c := openCache(t)
	fingerprint := testFingerprint(t, imagecodec.DefaultParams)
	content := ContentHash([]byte("absent"))
	if _, ok := c.Get(mustKey(t, content, fingerprint), content, fingerprint); ok {
		t.Fatal("Get hit on an empty cache")
	}
	if stats := c.Stats(); stats.Misses != 1 || stats.Rejected != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGetRejectsMismatchedEntries(t *testing.T) {
	fingerprint := testFingerprint(t, imagecodec.DefaultParams)
	content := ContentHash([]byte("source"))
	key := mustKey(t, content, fingerprint)
	payload := bytes.Repeat([]byte{1, 2, 3, 4}, 1000)

	tests := []struct {
		name   string
		mutate func(t *testing.T, c *Cache)
		get    func(c *Cache) bool
	}{
		{
			name: "different content hash",
			get: func(c *Cache) bool {
				_, ok := c.Get(key, ContentHash([]byte("colliding source")), fingerprint)
				return ok
			},
		},
		{
			name: "different fingerprint",
			get: func(c *Cache) bool {
				other := fingerprint
				other.Quality++
				_, ok := c.Get(key, content, other)
				return ok
			},
		},
		{
			name: "flipped body byte",
			mutate: func(t *testing.T, c *Cache) {
				data, err := os.ReadFile(c.Path(key))
				if err != nil {
					t.Fatal(err)
				}
				data[len(data)-1] ^= 0xFF
				if err := os.WriteFile(c.Path(key), data, 0o644); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "truncated",
			mutate: func(t *testing.T, c *Cache) {
				if err := os.Truncate(c.Path(key), 6); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "entry stored under another key",
			mutate: func(t *testing.T, c *Cache) {
				otherContent := ContentHash([]byte("elsewhere"))
				otherKey := mustKey(t, otherContent, fingerprint)
				if err := c.Put(otherKey, content, fingerprint, payload); err != nil {
					t.Fatal(err)
				}
				if err := os.Rename(c.Path(otherKey), c.Path(key)); err != nil {
					t.Fatal(err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := openCache(t)
			if err := c.Put(key, content, fingerprint, payload); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if tt.mutate != nil {
				tt.mutate(t, c)
			}
			get := tt.get
			if get == nil {
				get = func(c *Cache) bool {
					_, ok := c.Get(key, content, fingerprint)
					return ok
				}
			}
			if get(c) {
				t.Fatal("Get accepted a mismatched entry")
			}
			if c.Stats().Rejected != 1 {
				t.Errorf("rejected count = %d, want 1", c.Stats().Rejected)
			}
		})
	}
}

func TestPutLeavesNoTemporaryFiles(t *testing.T) {
	c := openCache(t)
	fingerprint := testFingerprint(t, imagecodec.DefaultParams)
	content := ContentHash([]byte("tidy"))
	key := mustKey(t, content, fingerprint)
	if err := c.Put(key, content, fingerprint, []byte("payload")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(c.Path(key)))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			t.Errorf("temporary file %s left behind", entry.Name())
		}
	}
}

// noise returns deterministic bytes with no exploitable redundancy.
func noise(n int) []byte {
	out := make([]byte, n)
	state := uint32(2463534242)
	for i := range out {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		out[i] = byte(state)
	}
	return out
}
