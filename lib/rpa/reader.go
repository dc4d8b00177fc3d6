// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpa

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bureau-foundation/renpak/lib/failure"
)

// ErrTruncatedEntry is returned when an entry's declared byte range
// extends past the end of the archive file.
var ErrTruncatedEntry = errors.New("entry extends past end of archive")

// Entry describes one archive member. Content is Prefix followed by
// Length bytes read from Offset.
type Entry struct {
	Name   string
	Offset int64
	Length int64
	Prefix []byte
}

// Size is the full content length including the prefix.
func (e Entry) Size() int64 { return int64(len(e.Prefix)) + e.Length }

// Reader gives random access to the members of an RPA-3.0 archive.
// The index is decoded once at open and is immutable afterwards.
type Reader struct {
	source io.ReaderAt
	closer io.Closer
	path   string
	size   int64
	header Header

	// entries is in physical offset order, the only stable order an
	// archive has once its dict index is decoded.
	entries []Entry
	byName  map[string]int
}

// Open opens the archive at path. The returned Reader owns the file.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, failure.New(failure.IO, "open archive", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, failure.New(failure.IO, "stat archive", path, err)
	}
	reader, err := newReader(file, info.Size(), path)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.closer = file
	return reader, nil
}

// NewReader reads an archive held by any io.ReaderAt of the given
// size. The caller keeps ownership of source.
func NewReader(source io.ReaderAt, size int64) (*Reader, error) {
	return newReader(source, size, "")
}

func newReader(source io.ReaderAt, size int64, path string) (*Reader, error) {
	var headerBytes [HeaderSize]byte
	if _, err := source.ReadAt(headerBytes[:], 0); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, failure.New(failure.Format, "read header", path, fmt.Errorf("%w: file is %d bytes", ErrNotArchive, size))
		}
		return nil, failure.New(failure.IO, "read header", path, err)
	}
	header, err := ParseHeader(headerBytes[:])
	if err != nil {
		return nil, failure.New(failure.Format, "read header", path, err)
	}
	if header.IndexOffset < headerLineSize || header.IndexOffset >= size {
		return nil, failure.New(failure.Format, "read index", path,
			fmt.Errorf("%w: index offset %d outside file of %d bytes", ErrCorruptIndex, header.IndexOffset, size))
	}

	raw, err := decodeIndex(io.NewSectionReader(source, header.IndexOffset, size-header.IndexOffset))
	if err != nil {
		return nil, failure.New(failure.Format, "read index", path, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, record := range raw {
		span, err := header.Key.Deobfuscate(record.span)
		if err != nil {
			return nil, failure.New(failure.Format, "read index", path,
				fmt.Errorf("%w: entry %q: %v", ErrCorruptIndex, record.name, err))
		}
		entries = append(entries, Entry{
			Name:   record.name,
			Offset: span.Offset,
			Length: span.Length,
			Prefix: record.prefix,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Offset != entries[j].Offset {
			return entries[i].Offset < entries[j].Offset
		}
		return entries[i].Name < entries[j].Name
	})

	byName := make(map[string]int, len(entries))
	for i, entry := range entries {
		byName[entry.Name] = i
	}

	return &Reader{
		source:  source,
		path:    path,
		size:    size,
		header:  header,
		entries: entries,
		byName:  byName,
	}, nil
}

// Header returns the decoded archive header.
func (r *Reader) Header() Header { return r.header }

// Key returns the archive's obfuscation key.
func (r *Reader) Key() Key { return r.header.Key }

// Size returns the archive file size in bytes.
func (r *Reader) Size() int64 { return r.size }

// Path returns the file path the archive was opened from, or "" for
// archives opened with NewReader.
func (r *Reader) Path() string { return r.path }

// Len returns the number of entries.
func (r *Reader) Len() int { return len(r.entries) }

// Entries returns a copy of the entry table in stable input order.
func (r *Reader) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Lookup finds an entry by exact name.
func (r *Reader) Lookup(name string) (Entry, bool) {
	index, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[index], true
}

// checkBounds verifies that an entry's byte range lies inside the file.
func (r *Reader) checkBounds(entry Entry) error {
	if entry.Offset < 0 || entry.Length < 0 || entry.Offset > r.size || entry.Length > r.size-entry.Offset {
		return failure.New(failure.Format, "read entry", entry.Name,
			fmt.Errorf("%w: [%d, %d) beyond %d bytes", ErrTruncatedEntry, entry.Offset, entry.Offset+entry.Length, r.size))
	}
	return nil
}

// ReadEntry returns the full content of an entry, prefix included.
func (r *Reader) ReadEntry(entry Entry) ([]byte, error) {
	if err := r.checkBounds(entry); err != nil {
		return nil, err
	}
	out := make([]byte, entry.Size())
	copy(out, entry.Prefix)
	if _, err := r.source.ReadAt(out[len(entry.Prefix):], entry.Offset); err != nil && !(errors.Is(err, io.EOF) && entry.Length == 0) {
		return nil, failure.New(failure.IO, "read entry", entry.Name, err)
	}
	return out, nil
}

// Read returns the content of the named entry.
func (r *Reader) Read(name string) ([]byte, error) {
	entry, ok := r.Lookup(name)
	if !ok {
		return nil, failure.New(failure.Format, "read entry", name, os.ErrNotExist)
	}
	return r.ReadEntry(entry)
}

// EntryReader streams an entry's content without materializing it.
// Multiple EntryReaders may be used concurrently.
func (r *Reader) EntryReader(entry Entry) (io.Reader, error) {
	if err := r.checkBounds(entry); err != nil {
		return nil, err
	}
	section := io.NewSectionReader(r.source, entry.Offset, entry.Length)
	if len(entry.Prefix) == 0 {
		return section, nil
	}
	return io.MultiReader(bytes.NewReader(entry.Prefix), section), nil
}

// Close releases the underlying file when the Reader was created by
// Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
