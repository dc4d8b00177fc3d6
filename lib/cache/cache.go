// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/bureau-foundation/renpak/lib/codec"
	"github.com/bureau-foundation/renpak/lib/failure"
)

// FileExtension is the suffix of every cache entry file.
const FileExtension = ".rpkc"

var entryMagic = [4]byte{'R', 'P', 'K', 'C'}

// maxEntryHeader bounds the CBOR header of an entry file.
const maxEntryHeader = 64 << 10

// entryHeader is the self-description stored ahead of every body.
type entryHeader struct {
	Key         Hash        `cbor:"key"`
	ContentHash Hash        `cbor:"content_hash"`
	Fingerprint Fingerprint `cbor:"fingerprint"`
	Compression Compression `cbor:"compression"`
	Size        int         `cbor:"size"`
	Checksum    Hash        `cbor:"checksum"`
}

// Stats counts cache outcomes since the Cache was opened.
type Stats struct {
	Hits     int64
	Misses   int64
	Rejected int64
	Stores   int64
}

// Cache is a directory of immutable payload entries. It is safe for
// concurrent use; concurrent Puts of the same key are benign because
// each publishes an identical file by rename.
type Cache struct {
	directory string
	logger    *slog.Logger

	hits     atomic.Int64
	misses   atomic.Int64
	rejected atomic.Int64
	stores   atomic.Int64
}

// Open prepares directory for use, creating it if needed.
func Open(directory string, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, failure.New(failure.IO, "open cache", directory, err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{directory: directory, logger: logger}, nil
}

// Directory returns the root directory of the cache.
func (c *Cache) Directory() string { return c.directory }

// Path returns where the entry for key is stored.
func (c *Cache) Path(key Hash) string {
	name := key.String()
	return filepath.Join(c.directory, name[:2], name+FileExtension)
}

// Stats returns a snapshot of the outcome counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Rejected: c.rejected.Load(),
		Stores:   c.stores.Load(),
	}
}

// Get returns the payload stored under key if the entry exists and
// was stored for exactly this content hash and fingerprint. Anything
// else, including an unreadable or corrupt file, is a miss: the cache
// never fails a build. Corruption is logged as a cache failure.
func (c *Cache) Get(key, content Hash, fingerprint Fingerprint) ([]byte, bool) {
	path := c.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		c.misses.Add(1)
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("cache entry unreadable, treating as miss",
				"key", key.Short(), "error", failure.New(failure.Cache, "read cache entry", path, err))
		}
		return nil, false
	}

	payload, err := c.verify(data, key, content, fingerprint)
	if err != nil {
		c.misses.Add(1)
		c.rejected.Add(1)
		c.logger.Warn("cache entry rejected, treating as miss",
			"key", key.Short(), "error", failure.New(failure.Cache, "verify cache entry", path, err))
		return nil, false
	}
	c.hits.Add(1)
	return payload, true
}

func (c *Cache) verify(data []byte, key, content Hash, fingerprint Fingerprint) ([]byte, error) {
	if len(data) < 8 || !bytes.Equal(data[:4], entryMagic[:]) {
		return nil, errors.New("missing RPKC magic")
	}
	headerLength := binary.BigEndian.Uint32(data[4:8])
	if headerLength > maxEntryHeader || int(headerLength) > len(data)-8 {
		return nil, fmt.Errorf("header length %d exceeds entry", headerLength)
	}
	var header entryHeader
	if err := codec.Unmarshal(data[8:8+headerLength], &header); err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	if header.Key != key {
		return nil, fmt.Errorf("entry stored under key %s", header.Key.Short())
	}
	if header.ContentHash != content {
		return nil, fmt.Errorf("entry content hash %s, want %s", header.ContentHash.Short(), content.Short())
	}
	if header.Fingerprint != fingerprint {
		return nil, fmt.Errorf("entry fingerprint %+v, want %+v", header.Fingerprint, fingerprint)
	}
	compression, err := ParseCompression(string(header.Compression))
	if err != nil {
		return nil, err
	}
	if header.Size < 0 {
		return nil, fmt.Errorf("negative payload size %d", header.Size)
	}
	payload, err := decompress(data[8+headerLength:], compression, header.Size)
	if err != nil {
		return nil, err
	}
	if checksum(payload) != header.Checksum {
		return nil, errors.New("payload checksum mismatch")
	}
	return payload, nil
}

// Put stores payload under key. The entry becomes visible atomically;
// a crash leaves at most a stray temporary file in the shard
// directory.
func (c *Cache) Put(key, content Hash, fingerprint Fingerprint, payload []byte) error {
	path := c.Path(key)
	body, compression := compressAuto(payload)
	header, err := codec.Marshal(entryHeader{
		Key:         key,
		ContentHash: content,
		Fingerprint: fingerprint,
		Compression: compression,
		Size:        len(payload),
		Checksum:    checksum(payload),
	})
	if err != nil {
		return failure.New(failure.Cache, "encode cache entry", path, err)
	}

	shard := filepath.Dir(path)
	if err := os.MkdirAll(shard, 0o755); err != nil {
		return failure.New(failure.IO, "create cache shard", shard, err)
	}
	temp, err := os.CreateTemp(shard, ".tmp-*")
	if err != nil {
		return failure.New(failure.IO, "create cache entry", shard, err)
	}
	tempPath := temp.Name()
	published := false
	defer func() {
		if !published {
			temp.Close()
			os.Remove(tempPath)
		}
	}()

	prefix := make([]byte, 0, 8)
	prefix = append(prefix, entryMagic[:]...)
	prefix = binary.BigEndian.AppendUint32(prefix, uint32(len(header)))
	for _, chunk := range [][]byte{prefix, header, body} {
		if _, err := temp.Write(chunk); err != nil {
			return failure.New(failure.IO, "write cache entry", tempPath, err)
		}
	}
	if err := temp.Sync(); err != nil {
		return failure.New(failure.IO, "sync cache entry", tempPath, err)
	}
	if err := temp.Close(); err != nil {
		return failure.New(failure.IO, "close cache entry", tempPath, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return failure.New(failure.IO, "publish cache entry", path, err)
	}
	published = true
	c.stores.Add(1)
	c.logger.Debug("cache entry stored",
		"key", key.Short(), "size", len(payload), "stored", len(body), "compression", string(compression))
	return nil
}
