// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. The same bytes
// hashed in different domains never collide.
type domainKey [32]byte

// Domain keys are the ASCII domain name zero-padded to 32 bytes.
// Changing one invalidates every hash in that domain.
var (
	contentDomainKey = domainKey{
		'r', 'e', 'n', 'p', 'a', 'k', '.', 'c', 'a', 'c', 'h', 'e', '.',
		'c', 'o', 'n', 't', 'e', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	sequenceDomainKey = domainKey{
		'r', 'e', 'n', 'p', 'a', 'k', '.', 'c', 'a', 'c', 'h', 'e', '.',
		's', 'e', 'q', 'u', 'e', 'n', 'c', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	keyDomainKey = domainKey{
		'r', 'e', 'n', 'p', 'a', 'k', '.', 'c', 'a', 'c', 'h', 'e', '.',
		'k', 'e', 'y', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	checksumDomainKey = domainKey{
		'r', 'e', 'n', 'p', 'a', 'k', '.', 'c', 'a', 'c', 'h', 'e', '.',
		'c', 'h', 'e', 'c', 'k', 's', 'u', 'm', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// ContentHash hashes the bytes of one source entry.
func ContentHash(data []byte) Hash {
	return keyedHash(contentDomainKey, data)
}

// SequenceHash combines the content hashes of a sequence's frames, in
// frame order, into one content hash. Reordering, adding, or removing
// a frame changes the result.
func SequenceHash(frames []Hash) Hash {
	hasher := newHasher(sequenceDomainKey)
	var count [8]byte
	for i := range count {
		count[i] = byte(uint64(len(frames)) >> (8 * i))
	}
	hasher.Write(count[:])
	for _, frame := range frames {
		hasher.Write(frame[:])
	}
	return sum(hasher)
}

// checksum hashes a stored payload so Get can detect bit rot.
func checksum(payload []byte) Hash {
	return keyedHash(checksumDomainKey, payload)
}

// String returns the hex encoding, the form used in paths and logs.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex digits for log lines.
func (h Hash) Short() string {
	return hex.EncodeToString(h[:6])
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash parses a 64-character hex string.
func ParseHash(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("parsing cache hash: %w", err)
	}
	if len(decoded) != len(hash) {
		return hash, fmt.Errorf("cache hash is %d bytes, want %d", len(decoded), len(hash))
	}
	copy(hash[:], decoded)
	return hash, nil
}

func keyedHash(key domainKey, data []byte) Hash {
	hasher := newHasher(key)
	hasher.Write(data)
	return sum(hasher)
}

func newHasher(key domainKey) *blake3.Hasher {
	// NewKeyed only fails for keys that are not 32 bytes.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("cache: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

func sum(hasher *blake3.Hasher) Hash {
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}
