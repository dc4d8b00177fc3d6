// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import "testing"

func TestContentHashDomainSeparation(t *testing.T) {
	data := []byte("images/bg.png")
	if ContentHash(data) == checksum(data) {
		t.Error("content and checksum domains produced the same hash")
	}
	if ContentHash(data) != ContentHash([]byte("images/bg.png")) {
		t.Error("ContentHash is not deterministic")
	}
}

func TestSequenceHashOrderSensitive(t *testing.T) {
	a := ContentHash([]byte("frame a"))
	b := ContentHash([]byte("frame b"))

	tests := []struct {
		name        string
		left, right []Hash
	}{
		{"reordered", []Hash{a, b}, []Hash{b, a}},
		{"extra frame", []Hash{a, b}, []Hash{a, b, b}},
		{"single vs content", []Hash{a}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if SequenceHash(tt.left) == SequenceHash(tt.right) {
				t.Error("different frame lists produced the same sequence hash")
			}
		})
	}
	if SequenceHash([]Hash{a}) == a {
		t.Error("single-frame sequence hash equals the frame's content hash")
	}
}

func TestParseHashRoundTrip(t *testing.T) {
	hash := ContentHash([]byte("x"))
	parsed, err := ParseHash(hash.String())
	if err != nil {
		t.Fatalf("ParseHash: %v", err)
	}
	if parsed != hash {
		t.Fatalf("ParseHash = %s, want %s", parsed, hash)
	}
	if len(hash.Short()) != 12 {
		t.Errorf("Short() = %q", hash.Short())
	}
	for _, bad := range []string{"", "zz", hash.String()[:62]} {
		if _, err := ParseHash(bad); err == nil {
			t.Errorf("ParseHash(%q) succeeded", bad)
		}
	}
}
